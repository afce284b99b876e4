package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/coopco/wishbot/internal/identity"
	"github.com/coopco/wishbot/internal/wish"
)

// CreateGroup adds an empty named group. Names are case sensitive.
func (s *Store) CreateGroup(ctx context.Context, name, description, createdBy string) (wish.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[name]; ok {
		return wish.Group{}, ErrGroupExists
	}
	g := wish.Group{
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   s.now(),
		Members:     []wish.Member{},
	}
	next := cloneGroups(s.groups)
	next[name] = g
	if err := s.docs.Save(ctx, DocUserGroups, next); err != nil {
		return wish.Group{}, fmt.Errorf("failed to save groups: %w", err)
	}
	s.groups = next
	return g, nil
}

// Group returns a copy of the named group.
func (s *Store) Group(name string) (wish.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[name]
	if ok {
		g.Members = append([]wish.Member{}, g.Members...)
	}
	return g, ok
}

// Groups returns every group sorted by name.
func (s *Store) Groups() []wish.Group {
	s.mu.RLock()
	out := make([]wish.Group, 0, len(s.groups))
	for _, g := range cloneGroups(s.groups) {
		out = append(out, g)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b wish.Group) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// AddMember appends m to the named group. Members are unique by address key.
func (s *Store) AddMember(ctx context.Context, group string, m wish.Member) (wish.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[group]
	if !ok {
		return wish.Group{}, ErrGroupNotFound
	}
	if memberIndex(g, m.Address) >= 0 {
		return wish.Group{}, ErrMemberExists
	}
	if m.AddedAt.IsZero() {
		m.AddedAt = s.now()
	}
	next := cloneGroups(s.groups)
	g = next[group]
	g.Members = append(g.Members, m)
	next[group] = g
	if err := s.docs.Save(ctx, DocUserGroups, next); err != nil {
		return wish.Group{}, fmt.Errorf("failed to save groups: %w", err)
	}
	s.groups = next
	return g, nil
}

// RemoveMember drops address from the named group.
func (s *Store) RemoveMember(ctx context.Context, group, address string) (wish.Member, wish.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[group]
	if !ok {
		return wish.Member{}, wish.Group{}, ErrGroupNotFound
	}
	i := memberIndex(g, address)
	if i < 0 {
		return wish.Member{}, wish.Group{}, ErrMemberNotFound
	}
	next := cloneGroups(s.groups)
	g = next[group]
	removed := g.Members[i]
	g.Members = slices.Delete(g.Members, i, i+1)
	next[group] = g
	if err := s.docs.Save(ctx, DocUserGroups, next); err != nil {
		return wish.Member{}, wish.Group{}, fmt.Errorf("failed to save groups: %w", err)
	}
	s.groups = next
	return removed, g, nil
}

func memberIndex(g wish.Group, address string) int {
	return slices.IndexFunc(g.Members, func(m wish.Member) bool {
		return m.Address == address || identity.Same(m.Address, address)
	})
}

// AddGroupWish schedules a broadcast to an existing, non-empty group.
func (s *Store) AddGroupWish(ctx context.Context, monthDay, clock, group, text, createdBy string) (wish.GroupWish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[group]
	if !ok {
		return wish.GroupWish{}, ErrGroupNotFound
	}
	if len(g.Members) == 0 {
		return wish.GroupWish{}, ErrGroupEmpty
	}
	gw := wish.GroupWish{
		ID:        s.ids.Next(),
		Date:      monthDay,
		Time:      clock,
		GroupName: group,
		Message:   text,
		CreatedBy: createdBy,
		CreatedAt: s.now(),
	}
	next := append(append(make([]wish.GroupWish, 0, len(s.groupWishes)+1), s.groupWishes...), gw)
	if err := s.docs.Save(ctx, DocGroupWishes, next); err != nil {
		return wish.GroupWish{}, fmt.Errorf("failed to save group wishes: %w", err)
	}
	s.groupWishes = next
	return gw, nil
}

// GroupWishes returns group wishes ordered by month, day and time.
func (s *Store) GroupWishes(createdBy string) []wish.GroupWish {
	s.mu.RLock()
	out := make([]wish.GroupWish, 0, len(s.groupWishes))
	for _, gw := range s.groupWishes {
		if createdBy == "" || identity.Same(gw.CreatedBy, createdBy) {
			out = append(out, gw)
		}
	}
	s.mu.RUnlock()
	slices.SortStableFunc(out, func(a, b wish.GroupWish) int {
		return strings.Compare(monthDayKey(a), monthDayKey(b))
	})
	return out
}

// monthDayKey renders DD/MM HH:MM as MMDDHHMM for ordering.
func monthDayKey(gw wish.GroupWish) string {
	d, m, _ := strings.Cut(gw.Date, "/")
	return m + d + gw.Time
}

// DueGroupWishes returns group wishes firing on the month/day and minute of at.
func (s *Store) DueGroupWishes(at wish.Stamp) []wish.GroupWish {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []wish.GroupWish
	for _, gw := range s.groupWishes {
		if gw.Due(at) {
			out = append(out, gw)
		}
	}
	return out
}

// RemoveGroupWishes deletes the given ids in one save. Fired group wishes
// are never retried, so the ids leave memory even when the save fails.
func (s *Store) RemoveGroupWishes(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groupWishes = slices.DeleteFunc(append([]wish.GroupWish{}, s.groupWishes...), func(gw wish.GroupWish) bool {
		return slices.Contains(ids, gw.ID)
	})
	if err := s.docs.Save(ctx, DocGroupWishes, s.groupWishes); err != nil {
		return fmt.Errorf("failed to save group wishes: %w", err)
	}
	return nil
}
