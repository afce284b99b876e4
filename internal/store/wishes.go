package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/coopco/wishbot/internal/identity"
	"github.com/coopco/wishbot/internal/wish"
)

// CanModify reports whether requestor may change a wish created by createdBy.
func (s *Store) CanModify(createdBy, requestor string) bool {
	return identity.Same(createdBy, requestor) || s.owner.Matches(requestor)
}

// AddWish schedules a new wish. Arguments are expected to be validated.
func (s *Store) AddWish(ctx context.Context, date, clock, recipient, text, createdBy string) (wish.Wish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := wish.Wish{
		ID:        s.ids.Next(),
		Date:      date,
		Time:      clock,
		Recipient: recipient,
		Message:   text,
		CreatedBy: createdBy,
		CreatedAt: s.now(),
	}
	next := append(cloneWishes(s.wishes), w)
	if err := s.docs.Save(ctx, DocWishes, next); err != nil {
		return wish.Wish{}, fmt.Errorf("failed to save wish: %w", err)
	}
	s.wishes = next
	return w, nil
}

// Wish returns the active wish with id.
func (s *Store) Wish(id string) (wish.Wish, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.wishIndex(id); i >= 0 {
		return s.wishes[i], true
	}
	return wish.Wish{}, false
}

// Wishes returns active wishes in chronological order. A non-empty
// createdBy restricts the result to that creator.
func (s *Store) Wishes(createdBy string) []wish.Wish {
	s.mu.RLock()
	out := make([]wish.Wish, 0, len(s.wishes))
	for _, w := range s.wishes {
		if createdBy == "" || identity.Same(w.CreatedBy, createdBy) {
			out = append(out, w)
		}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b wish.Wish) int {
		ta, errA := wish.At(a.Date, a.Time)
		tb, errB := wish.At(b.Date, b.Time)
		if errA != nil || errB != nil {
			return strings.Compare(a.ID, b.ID)
		}
		return ta.Compare(tb)
	})
	return out
}

// DueWishes returns active wishes scheduled for exactly the given minute.
func (s *Store) DueWishes(at wish.Stamp) []wish.Wish {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []wish.Wish
	for _, w := range s.wishes {
		if w.Due(at) {
			out = append(out, w)
		}
	}
	return out
}

// DeleteWish removes an active wish without archiving it.
func (s *Store) DeleteWish(ctx context.Context, id, requestor string) (wish.Wish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.wishIndex(id)
	if i < 0 {
		return wish.Wish{}, ErrWishNotFound
	}
	w := s.wishes[i]
	if !s.CanModify(w.CreatedBy, requestor) {
		return wish.Wish{}, ErrForbidden
	}
	next := slices.Delete(cloneWishes(s.wishes), i, i+1)
	if err := s.docs.Save(ctx, DocWishes, next); err != nil {
		return wish.Wish{}, fmt.Errorf("failed to save wishes: %w", err)
	}
	s.wishes = next
	return w, nil
}

// ArchiveWish moves w out of the active set. The archived record is built
// from w as passed, so callers can stamp delivery fields beforehand. All
// archival goes through here.
func (s *Store) ArchiveWish(ctx context.Context, w wish.Wish, reason wish.ArchiveReason) (wish.ArchivedWish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.archiveLocked(ctx, w, reason)
}

// ArchiveOwnWish archives the active wish id on behalf of requestor.
func (s *Store) ArchiveOwnWish(ctx context.Context, id, requestor string) (wish.ArchivedWish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.wishIndex(id)
	if i < 0 {
		return wish.ArchivedWish{}, ErrWishNotFound
	}
	if !s.CanModify(s.wishes[i].CreatedBy, requestor) {
		return wish.ArchivedWish{}, ErrForbidden
	}
	return s.archiveLocked(ctx, s.wishes[i], wish.ReasonManual)
}

// archiveLocked saves the archive first, then the active list. If the second
// save fails the archive document is put back. Caller must hold s.mu.
func (s *Store) archiveLocked(ctx context.Context, w wish.Wish, reason wish.ArchiveReason) (wish.ArchivedWish, error) {
	i := s.wishIndex(w.ID)
	if i < 0 {
		return wish.ArchivedWish{}, ErrWishNotFound
	}

	w.Archived = true
	a := wish.ArchivedWish{Wish: w, ArchivedAt: s.now(), ArchivedReason: reason}
	nextArchived := append(cloneArchived(s.archived), a)
	nextWishes := slices.Delete(cloneWishes(s.wishes), i, i+1)

	if err := s.docs.Save(ctx, DocArchivedWishes, nextArchived); err != nil {
		return wish.ArchivedWish{}, fmt.Errorf("failed to save archive: %w", err)
	}
	if err := s.docs.Save(ctx, DocWishes, nextWishes); err != nil {
		if rerr := s.docs.Save(ctx, DocArchivedWishes, s.archived); rerr != nil {
			slog.Error("failed to roll back archive document", "wish_id", w.ID, "error", rerr)
		}
		return wish.ArchivedWish{}, fmt.Errorf("failed to save wishes: %w", err)
	}
	s.archived = nextArchived
	s.wishes = nextWishes
	return a, nil
}

// ArchivePastWishes archives every active wish scheduled before the current
// minute with reason auto_archived_past_date.
func (s *Store) ArchivePastWishes(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Truncate(time.Minute)
	var past []wish.Wish
	for _, w := range s.wishes {
		at, err := wish.At(w.Date, w.Time)
		if err != nil {
			slog.Warn("skipping wish with unparseable schedule", "wish_id", w.ID, "date", w.Date, "time", w.Time)
			continue
		}
		if at.Before(cutoff) {
			past = append(past, w)
		}
	}

	count := 0
	for _, w := range past {
		if _, err := s.archiveLocked(ctx, w, wish.ReasonPastDate); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// FlushWishes persists the active list as it stands.
func (s *Store) FlushWishes(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs.Save(ctx, DocWishes, s.wishes)
}

// ArchivedWish returns the archived record with id.
func (s *Store) ArchivedWish(id string) (wish.ArchivedWish, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.archivedIndex(id); i >= 0 {
		return s.archived[i], true
	}
	return wish.ArchivedWish{}, false
}

// ArchivedWishes returns archived records newest first, optionally limited
// to one creator and one reason.
func (s *Store) ArchivedWishes(createdBy string, reason wish.ArchiveReason) []wish.ArchivedWish {
	s.mu.RLock()
	out := make([]wish.ArchivedWish, 0, len(s.archived))
	for _, a := range s.archived {
		if createdBy != "" && !identity.Same(a.CreatedBy, createdBy) {
			continue
		}
		if reason != "" && a.ArchivedReason != reason {
			continue
		}
		out = append(out, a)
	}
	s.mu.RUnlock()

	slices.SortStableFunc(out, func(a, b wish.ArchivedWish) int {
		return b.ArchivedAt.Compare(a.ArchivedAt)
	})
	return out
}

// UnarchiveWish forks a new active wish from an archived record. The
// archived record is kept, so one record can be rescheduled many times.
func (s *Store) UnarchiveWish(ctx context.Context, archivedID, date, clock string) (wish.Wish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unarchiveLocked(ctx, archivedID, date, clock)
}

// RescheduleWish is UnarchiveWish gated on requestor owning the record.
func (s *Store) RescheduleWish(ctx context.Context, archivedID, requestor, date, clock string) (wish.Wish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.archivedIndex(archivedID)
	if i < 0 {
		return wish.Wish{}, ErrArchivedNotFound
	}
	if !s.CanModify(s.archived[i].CreatedBy, requestor) {
		return wish.Wish{}, ErrForbidden
	}
	return s.unarchiveLocked(ctx, archivedID, date, clock)
}

func (s *Store) unarchiveLocked(ctx context.Context, archivedID, date, clock string) (wish.Wish, error) {
	i := s.archivedIndex(archivedID)
	if i < 0 {
		return wish.Wish{}, ErrArchivedNotFound
	}
	src := s.archived[i]
	w := wish.Wish{
		ID:              s.ids.Next(),
		Date:            date,
		Time:            clock,
		Recipient:       src.Recipient,
		Message:         src.Message,
		CreatedBy:       src.CreatedBy,
		CreatedAt:       s.now(),
		RescheduledFrom: src.ID,
	}
	next := append(cloneWishes(s.wishes), w)
	if err := s.docs.Save(ctx, DocWishes, next); err != nil {
		return wish.Wish{}, fmt.Errorf("failed to save wishes: %w", err)
	}
	s.wishes = next
	return w, nil
}

// DeleteArchivedWish permanently removes an archived record.
func (s *Store) DeleteArchivedWish(ctx context.Context, id, requestor string) (wish.ArchivedWish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.archivedIndex(id)
	if i < 0 {
		return wish.ArchivedWish{}, ErrArchivedNotFound
	}
	a := s.archived[i]
	if !s.CanModify(a.CreatedBy, requestor) {
		return wish.ArchivedWish{}, ErrForbidden
	}
	next := slices.Delete(cloneArchived(s.archived), i, i+1)
	if err := s.docs.Save(ctx, DocArchivedWishes, next); err != nil {
		return wish.ArchivedWish{}, fmt.Errorf("failed to save archive: %w", err)
	}
	s.archived = next
	return a, nil
}

// ClearArchives drops archived records, keeping the keepLast most recent
// by archive time. It returns how many were removed.
func (s *Store) ClearArchives(ctx context.Context, keepLast int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.archived)
	next := cloneArchived(s.archived)
	if keepLast > 0 {
		slices.SortStableFunc(next, func(a, b wish.ArchivedWish) int {
			return b.ArchivedAt.Compare(a.ArchivedAt)
		})
		if keepLast < len(next) {
			next = next[:keepLast]
		}
	} else {
		next = next[:0]
	}
	if err := s.docs.Save(ctx, DocArchivedWishes, next); err != nil {
		return 0, fmt.Errorf("failed to save archive: %w", err)
	}
	s.archived = next
	return total - len(next), nil
}

func (s *Store) wishIndex(id string) int {
	return slices.IndexFunc(s.wishes, func(w wish.Wish) bool { return w.ID == id })
}

func (s *Store) archivedIndex(id string) int {
	return slices.IndexFunc(s.archived, func(a wish.ArchivedWish) bool { return a.ID == id })
}
