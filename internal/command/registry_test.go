package command

import (
	"context"
	"slices"
	"testing"

	"github.com/coopco/wishbot/internal/auth"
)

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFunc("ping", auth.LevelPublic, func(_ context.Context, c *Call) error {
		c.Reply("pong")
		return nil
	}))
	got, ok := r.Get("ping")
	if !ok {
		t.Fatal("expected to find registered command")
	}
	if got.Level() != auth.LevelPublic {
		t.Errorf("level = %v", got.Level())
	}

	var replies []string
	if err := got.Execute(context.Background(), &Call{reply: func(s string) { replies = append(replies, s) }}); err != nil {
		t.Fatal(err)
	}
	if len(replies) != 1 || replies[0] != "pong" {
		t.Errorf("replies = %q", replies)
	}

	if _, ok := r.Get("PING"); ok {
		t.Error("lookups are by lowercase name only")
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFunc("x", auth.LevelMember, nil))
	r.Register(NewFunc("x", auth.LevelOwner, nil))
	got, _ := r.Get("x")
	if got.Level() != auth.LevelOwner {
		t.Errorf("expected the later registration to win")
	}
}

func TestBuiltinsCoverEveryCommand(t *testing.T) {
	r := NewRegistry()
	r.Register(Builtins(&Env{})...)

	want := []string{
		"addgroupwish", "addtogroup", "addwish", "archiveoldwishes", "archivewish",
		"backup", "checkid", "cleararchives", "clearlogs", "creategroup",
		"deletearchivedwish", "deletewish", "help", "listarchives", "listgroupmembers",
		"listgroups", "listgroupwishes", "listwhitelist", "listwishes", "removefromgroup",
		"removewhitelist", "reschedulewish", "restore", "sendgroupwishnow", "start",
		"status", "stop", "whitelist",
	}
	if got := r.Names(); !slices.Equal(got, want) {
		t.Fatalf("Names() = %v\nwant %v", got, want)
	}

	levels := map[string]auth.Level{
		"help":             auth.LevelPublic,
		"checkid":          auth.LevelPublic,
		"addwish":          auth.LevelMember,
		"listarchives":     auth.LevelMember,
		"sendgroupwishnow": auth.LevelMember,
		"start":            auth.LevelOwner,
		"restore":          auth.LevelOwner,
		"cleararchives":    auth.LevelOwner,
		"archiveoldwishes": auth.LevelOwner,
	}
	for name, level := range levels {
		c, _ := r.Get(name)
		if c.Level() != level {
			t.Errorf("%s level = %v, want %v", name, c.Level(), level)
		}
	}
}
