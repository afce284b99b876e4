// Package command implements the text command surface: parsing, the
// name to handler registry, authorization gating and every built-in
// command.
package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/coopco/wishbot/internal/auth"
	"github.com/coopco/wishbot/internal/delivery"
	"github.com/coopco/wishbot/internal/store"
)

// Command is the interface all commands must implement.
type Command interface {
	Name() string
	Level() auth.Level
	Execute(ctx context.Context, call *Call) error
}

// Call is one invocation of a command.
type Call struct {
	Sender  string
	Channel string
	Args    []string
	reply   func(text string)
}

// Reply sends text back to wherever the command came from.
func (c *Call) Reply(text string) {
	if c.reply != nil {
		c.reply(text)
	}
}

func (c *Call) Replyf(format string, args ...any) {
	c.Reply(fmt.Sprintf(format, args...))
}

// rest joins the arguments from index i on with single spaces.
func (c *Call) rest(i int) string {
	if i >= len(c.Args) {
		return ""
	}
	return strings.Join(c.Args[i:], " ")
}

// Func adapts a plain function to Command.
type Func struct {
	name  string
	level auth.Level
	fn    func(ctx context.Context, call *Call) error
}

// NewFunc returns a Command named name that runs fn.
func NewFunc(name string, level auth.Level, fn func(ctx context.Context, call *Call) error) *Func {
	return &Func{name: name, level: level, fn: fn}
}

func (f *Func) Name() string      { return f.name }
func (f *Func) Level() auth.Level { return f.level }
func (f *Func) Execute(ctx context.Context, call *Call) error {
	return f.fn(ctx, call)
}

// Env is what the built-in commands operate on.
type Env struct {
	Store   *store.Store
	Policy  *auth.Policy
	Gateway *delivery.Gateway
	Prefix  string
	Now     func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// when renders t as a local timestamp followed by how long ago it was.
func (e *Env) when(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("02/01/2006 15:04") + " (" + humanize.RelTime(t, e.now(), "ago", "from now") + ")"
}

// scope returns the creator filter for list commands: the owner sees
// everything, everyone else sees their own records.
func (e *Env) scope(sender string) string {
	if e.Policy.IsOwner(sender) {
		return ""
	}
	return sender
}

// Builtins returns every built-in command bound to env.
func Builtins(env *Env) []Command {
	return []Command{
		NewFunc("help", auth.LevelPublic, env.help),
		NewFunc("checkid", auth.LevelPublic, env.checkID),
		NewFunc("status", auth.LevelOwner, env.status),

		NewFunc("addwish", auth.LevelMember, env.addWish),
		NewFunc("deletewish", auth.LevelMember, env.deleteWish),
		NewFunc("archivewish", auth.LevelMember, env.archiveWish),
		NewFunc("listwishes", auth.LevelMember, env.listWishes),

		NewFunc("listarchives", auth.LevelMember, env.listArchives),
		NewFunc("reschedulewish", auth.LevelMember, env.rescheduleWish),
		NewFunc("deletearchivedwish", auth.LevelMember, env.deleteArchivedWish),
		NewFunc("cleararchives", auth.LevelOwner, env.clearArchives),

		NewFunc("creategroup", auth.LevelMember, env.createGroup),
		NewFunc("addtogroup", auth.LevelMember, env.addToGroup),
		NewFunc("removefromgroup", auth.LevelMember, env.removeFromGroup),
		NewFunc("listgroups", auth.LevelMember, env.listGroups),
		NewFunc("listgroupmembers", auth.LevelMember, env.listGroupMembers),
		NewFunc("addgroupwish", auth.LevelMember, env.addGroupWish),
		NewFunc("listgroupwishes", auth.LevelMember, env.listGroupWishes),
		NewFunc("sendgroupwishnow", auth.LevelMember, env.sendGroupWishNow),

		NewFunc("start", auth.LevelOwner, env.start),
		NewFunc("stop", auth.LevelOwner, env.stop),
		NewFunc("whitelist", auth.LevelOwner, env.whitelist),
		NewFunc("removewhitelist", auth.LevelOwner, env.removeWhitelist),
		NewFunc("listwhitelist", auth.LevelOwner, env.listWhitelist),
		NewFunc("backup", auth.LevelOwner, env.backup),
		NewFunc("restore", auth.LevelOwner, env.restore),
		NewFunc("clearlogs", auth.LevelOwner, env.clearLogs),
		NewFunc("archiveoldwishes", auth.LevelOwner, env.archiveOldWishes),
	}
}
