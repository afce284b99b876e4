// Package store owns every persisted collection of the bot and the
// transitions between them. Each mutation stages a copy, saves it and only
// then swaps it in, so memory never runs ahead of a failed save.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coopco/wishbot/internal/docstore"
	"github.com/coopco/wishbot/internal/identity"
	"github.com/coopco/wishbot/internal/wish"
)

// Document names.
const (
	DocWishes         = "wishes"
	DocArchivedWishes = "archived_wishes"
	DocGroupWishes    = "group_wishes"
	DocUserGroups     = "user_groups"
	DocWhitelist      = "whitelist"
	DocBotConfig      = "bot_config"
	DocActivityLog    = "bot_log"
	backupPrefix      = "backups/"
)

// MaxActivities caps the activity log.
const MaxActivities = 1000

var (
	ErrWishNotFound       = errors.New("wish not found")
	ErrArchivedNotFound   = errors.New("archived wish not found")
	ErrForbidden          = errors.New("not the creator of this wish")
	ErrGroupExists        = errors.New("group already exists")
	ErrGroupNotFound      = errors.New("group not found")
	ErrGroupEmpty         = errors.New("group has no members")
	ErrMemberExists       = errors.New("already a member")
	ErrMemberNotFound     = errors.New("not a member")
	ErrAlreadyWhitelisted = errors.New("already whitelisted")
	ErrNotWhitelisted     = errors.New("not whitelisted")
	ErrOwnerProtected     = errors.New("the owner cannot be removed")
	ErrBackupNotFound     = errors.New("backup not found")
	ErrInvalidBackupName  = errors.New("invalid backup name")
	ErrInvalidBackup      = errors.New("backup is empty or not an object")
	ErrRestoreIncomplete  = errors.New("restore saved only some collections")
)

// Options configures a Store.
type Options struct {
	Owner identity.Owner
	Now   func() time.Time
}

// Store holds the in-memory model and persists it through a docstore.
type Store struct {
	docs  docstore.Store
	owner identity.Owner
	now   func() time.Time
	ids   *wish.IDSource

	mu          sync.RWMutex
	wishes      []wish.Wish
	archived    []wish.ArchivedWish
	groupWishes []wish.GroupWish
	groups      map[string]wish.Group
	whitelist   []string
	state       wish.BotState

	logMu      sync.Mutex
	activities []wish.Activity
}

// New creates an empty Store. Call Load to read persisted state.
func New(docs docstore.Store, opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Store{
		docs:  docs,
		owner: opts.Owner,
		now:   now,
		ids:   wish.NewIDSource(now),
	}
	s.resetDefaults()
	return s
}

func (s *Store) resetDefaults() {
	s.wishes = []wish.Wish{}
	s.archived = []wish.ArchivedWish{}
	s.groupWishes = []wish.GroupWish{}
	s.groups = map[string]wish.Group{}
	s.whitelist = s.defaultWhitelist()
	s.state = wish.BotState{Active: true, LastActivity: s.now()}
}

func (s *Store) defaultWhitelist() []string {
	if s.owner.Address == "" {
		return []string{}
	}
	return []string{s.owner.Address}
}

// Owner returns the configured owner identity.
func (s *Store) Owner() identity.Owner { return s.owner }

// Load reads every collection. Missing documents keep their defaults; an
// unreadable document is an error.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetDefaults()

	targets := []struct {
		name string
		v    any
	}{
		{DocWishes, &s.wishes},
		{DocArchivedWishes, &s.archived},
		{DocGroupWishes, &s.groupWishes},
		{DocUserGroups, &s.groups},
		{DocWhitelist, &s.whitelist},
		{DocBotConfig, &s.state},
	}
	for _, t := range targets {
		if err := s.docs.Load(ctx, t.name, t.v); err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("failed to load %s: %w", t.name, err)
		}
	}
	s.normalize()

	s.logMu.Lock()
	s.activities = nil
	if err := s.docs.Load(ctx, DocActivityLog, &s.activities); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		slog.Warn("activity log unreadable, starting empty", "error", err)
		s.activities = nil
	}
	s.logMu.Unlock()

	for _, w := range s.wishes {
		s.ids.Observe(w.ID)
	}
	for _, a := range s.archived {
		s.ids.Observe(a.ID)
	}
	for _, g := range s.groupWishes {
		s.ids.Observe(g.ID)
	}
	slog.Info("store loaded",
		"wishes", len(s.wishes),
		"archived", len(s.archived),
		"group_wishes", len(s.groupWishes),
		"groups", len(s.groups),
		"whitelist", len(s.whitelist),
		"active", s.state.Active)
	return nil
}

// normalize replaces JSON nulls with empty collections. Caller must hold s.mu.
func (s *Store) normalize() {
	if s.wishes == nil {
		s.wishes = []wish.Wish{}
	}
	if s.archived == nil {
		s.archived = []wish.ArchivedWish{}
	}
	if s.groupWishes == nil {
		s.groupWishes = []wish.GroupWish{}
	}
	if s.groups == nil {
		s.groups = map[string]wish.Group{}
	}
	if s.whitelist == nil {
		s.whitelist = []string{}
	}
}

// Snapshot returns a deep copy of every collection in backup form.
func (s *Store) Snapshot() wish.Backup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() wish.Backup {
	return wish.Backup{
		Wishes:         cloneWishes(s.wishes),
		ArchivedWishes: cloneArchived(s.archived),
		GroupWishes:    append([]wish.GroupWish{}, s.groupWishes...),
		UserGroups:     cloneGroups(s.groups),
		Whitelist:      append([]string{}, s.whitelist...),
		BotConfig:      s.state,
		BackupDate:     s.now(),
	}
}

// Counts summarises collection sizes.
type Counts struct {
	Wishes      int `json:"wishes"`
	Archived    int `json:"archived"`
	GroupWishes int `json:"group_wishes"`
	Groups      int `json:"groups"`
	Whitelist   int `json:"whitelist"`
}

func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Wishes:      len(s.wishes),
		Archived:    len(s.archived),
		GroupWishes: len(s.groupWishes),
		Groups:      len(s.groups),
		Whitelist:   len(s.whitelist),
	}
}

func cloneWishes(in []wish.Wish) []wish.Wish {
	return append(make([]wish.Wish, 0, len(in)+1), in...)
}

func cloneArchived(in []wish.ArchivedWish) []wish.ArchivedWish {
	return append(make([]wish.ArchivedWish, 0, len(in)+1), in...)
}

func cloneGroups(in map[string]wish.Group) map[string]wish.Group {
	out := make(map[string]wish.Group, len(in))
	for k, g := range in {
		g.Members = append([]wish.Member{}, g.Members...)
		out[k] = g
	}
	return out
}
