package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/coopco/wishbot/internal/docstore"
	"github.com/coopco/wishbot/internal/identity"
	"github.com/coopco/wishbot/internal/wish"
)

// Whitelisted reports whether address is on the whitelist, comparing by
// phone key so the alias and stable forms of one number agree.
func (s *Store) Whitelisted(address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.whitelistIndex(address) >= 0
}

func (s *Store) whitelistIndex(address string) int {
	return slices.IndexFunc(s.whitelist, func(e string) bool { return identity.Same(e, address) })
}

// Whitelist returns the stored entries in insertion order.
func (s *Store) Whitelist() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.whitelist...)
}

// AddToWhitelist stores address.
func (s *Store) AddToWhitelist(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.whitelistIndex(address) >= 0 {
		return ErrAlreadyWhitelisted
	}
	next := append(append(make([]string, 0, len(s.whitelist)+1), s.whitelist...), address)
	if err := s.docs.Save(ctx, DocWhitelist, next); err != nil {
		return fmt.Errorf("failed to save whitelist: %w", err)
	}
	s.whitelist = next
	return nil
}

// RemoveFromWhitelist drops address. The owner can never be removed.
func (s *Store) RemoveFromWhitelist(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owner.Matches(address) {
		return ErrOwnerProtected
	}
	i := s.whitelistIndex(address)
	if i < 0 {
		return ErrNotWhitelisted
	}
	next := slices.Delete(append([]string{}, s.whitelist...), i, i+1)
	if err := s.docs.Save(ctx, DocWhitelist, next); err != nil {
		return fmt.Errorf("failed to save whitelist: %w", err)
	}
	s.whitelist = next
	return nil
}

// State returns the bot run state.
func (s *Store) State() wish.BotState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Active reports whether the bot is processing.
func (s *Store) Active() bool {
	return s.State().Active
}

// SetActive switches the run state. It reports false without saving when
// the bot is already in the requested state.
func (s *Store) SetActive(ctx context.Context, active bool, by string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Active == active {
		return false, nil
	}
	now := s.now()
	next := s.state
	next.Active = active
	next.LastActivity = now
	if active {
		next.ActivatedBy, next.ActivatedAt = by, &now
	} else {
		next.DeactivatedBy, next.DeactivatedAt = by, &now
	}
	if err := s.docs.Save(ctx, DocBotConfig, next); err != nil {
		return false, fmt.Errorf("failed to save bot config: %w", err)
	}
	s.state = next
	return true, nil
}

// Touch records activity now.
func (s *Store) Touch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	next.LastActivity = s.now()
	if err := s.docs.Save(ctx, DocBotConfig, next); err != nil {
		return fmt.Errorf("failed to save bot config: %w", err)
	}
	s.state = next
	return nil
}

// LogActivity appends an event to the capped activity log. Failures are
// logged and otherwise ignored.
func (s *Store) LogActivity(ctx context.Context, kind string, fields map[string]any) {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	next := append(append(make([]wish.Activity, 0, len(s.activities)+1), s.activities...),
		wish.Activity{Type: kind, Timestamp: s.now(), Fields: fields})
	if len(next) > MaxActivities {
		next = next[len(next)-MaxActivities:]
	}
	if err := s.docs.Save(ctx, DocActivityLog, next); err != nil {
		slog.Warn("failed to write activity log", "type", kind, "error", err)
		return
	}
	s.activities = next
}

// Activities returns the activity log oldest first.
func (s *Store) Activities() []wish.Activity {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	return append([]wish.Activity{}, s.activities...)
}

// ClearLogs empties the activity log and returns how many entries it held.
func (s *Store) ClearLogs(ctx context.Context) (int, error) {
	s.logMu.Lock()
	defer s.logMu.Unlock()

	n := len(s.activities)
	if err := s.docs.Save(ctx, DocActivityLog, []wish.Activity{}); err != nil {
		return 0, fmt.Errorf("failed to clear activity log: %w", err)
	}
	s.activities = nil
	return n, nil
}

// BackupName renders the deterministic backup file name for t.
func BackupName(t time.Time) string {
	return "backup_" + t.Local().Format("2006-01-02_15-04-05") + ".json"
}

// Backup snapshots every collection into one document and returns its file
// name. Two backups within the same second overwrite each other.
func (s *Store) Backup(ctx context.Context) (string, error) {
	s.mu.RLock()
	snap := s.snapshotLocked()
	s.mu.RUnlock()

	name := BackupName(snap.BackupDate)
	if err := s.docs.Save(ctx, backupPrefix+strings.TrimSuffix(name, ".json"), snap); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	slog.Info("backup created", "file", name)
	return name, nil
}

// restoreDoc mirrors wish.Backup with optional fields so absent
// collections can fall back to defaults.
type restoreDoc struct {
	Wishes         []wish.Wish           `json:"wishes"`
	ArchivedWishes []wish.ArchivedWish   `json:"archivedWishes"`
	GroupWishes    []wish.GroupWish      `json:"groupWishes"`
	UserGroups     map[string]wish.Group `json:"userGroups"`
	Whitelist      []string              `json:"whitelist"`
	BotConfig      *wish.BotState        `json:"botConfig"`
}

// Restore replaces every collection from a backup. A missing or unreadable
// backup leaves the current state untouched. Once the backup is read the
// in-memory model is replaced in full, then each collection is saved; any
// save failures are joined into the returned error.
func (s *Store) Restore(ctx context.Context, file string) error {
	name := strings.TrimSuffix(strings.TrimSpace(file), ".json")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidBackupName, file)
	}

	var loaded *restoreDoc
	if err := s.docs.Load(ctx, backupPrefix+name, &loaded); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrBackupNotFound, file)
		}
		return fmt.Errorf("failed to read backup %s: %w", file, err)
	}
	// a null document decodes cleanly but carries no backup
	if loaded == nil {
		return fmt.Errorf("%w: %s", ErrInvalidBackup, file)
	}
	doc := *loaded

	s.mu.Lock()
	defer s.mu.Unlock()

	s.wishes = doc.Wishes
	s.archived = doc.ArchivedWishes
	s.groupWishes = doc.GroupWishes
	s.groups = doc.UserGroups
	s.whitelist = doc.Whitelist
	if s.whitelist == nil {
		s.whitelist = s.defaultWhitelist()
	}
	if doc.BotConfig != nil {
		s.state = *doc.BotConfig
	} else {
		s.state = wish.BotState{Active: true, LastActivity: s.now()}
	}
	s.normalize()
	for _, w := range s.wishes {
		s.ids.Observe(w.ID)
	}
	for _, a := range s.archived {
		s.ids.Observe(a.ID)
	}
	for _, gw := range s.groupWishes {
		s.ids.Observe(gw.ID)
	}

	var errs []error
	saves := []struct {
		name string
		v    any
	}{
		{DocWishes, s.wishes},
		{DocArchivedWishes, s.archived},
		{DocGroupWishes, s.groupWishes},
		{DocUserGroups, s.groups},
		{DocWhitelist, s.whitelist},
		{DocBotConfig, s.state},
	}
	for _, sv := range saves {
		if err := s.docs.Save(ctx, sv.name, sv.v); err != nil {
			errs = append(errs, fmt.Errorf("save %s: %w", sv.name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		slog.Error("restore left documents inconsistent", "file", file, "error", err)
		return fmt.Errorf("%w: %w", ErrRestoreIncomplete, err)
	}
	slog.Info("data restored", "file", file)
	return nil
}
