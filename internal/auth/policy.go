// Package auth decides whether a sender may run a command.
package auth

import (
	"fmt"
	"strings"

	"github.com/coopco/wishbot/internal/identity"
)

// Mode selects how non-whitelisted senders are treated.
type Mode string

const (
	ModeStrict  Mode = "strict"  // whitelist only, silent denial
	ModeRelaxed Mode = "relaxed" // public commands open to anyone
)

// ParseMode maps a config value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeStrict, "":
		return ModeStrict, nil
	case ModeRelaxed:
		return ModeRelaxed, nil
	default:
		return "", fmt.Errorf("unknown auth mode %q", s)
	}
}

// Level is the minimum privilege a command requires.
type Level int

const (
	LevelMember Level = iota // whitelisted senders
	LevelPublic              // anyone in relaxed mode
	LevelOwner               // the owner only
)

func (l Level) String() string {
	switch l {
	case LevelPublic:
		return "public"
	case LevelOwner:
		return "owner"
	default:
		return "member"
	}
}

// Decision is the outcome of a policy check.
type Decision int

const (
	Allow Decision = iota
	DenySilent
	DenyExplain
	DenyOwnerOnly
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenySilent:
		return "deny_silent"
	case DenyExplain:
		return "deny_explain"
	case DenyOwnerOnly:
		return "deny_owner_only"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Whitelist answers membership by phone key.
type Whitelist interface {
	Whitelisted(address string) bool
}

// Request is one authorization question.
type Request struct {
	Sender  string
	Command string
	Known   bool  // whether the command exists
	Level   Level // ignored when Known is false
}

// Policy combines owner identity, whitelist and mode.
type Policy struct {
	Owner     identity.Owner
	Whitelist Whitelist
	Mode      Mode
}

// IsOwner reports whether sender is the configured owner.
func (p *Policy) IsOwner(sender string) bool {
	return p.Owner.Matches(sender)
}

// IsWhitelisted reports whether sender is the owner or on the whitelist.
func (p *Policy) IsWhitelisted(sender string) bool {
	if p.IsOwner(sender) {
		return true
	}
	if p.Whitelist == nil {
		return false
	}
	return p.Whitelist.Whitelisted(sender)
}

// Decide applies the policy to req.
func (p *Policy) Decide(req Request) Decision {
	listed := p.IsWhitelisted(req.Sender)

	// never reveal the bot to strangers probing for commands
	if !req.Known {
		if listed {
			return Allow
		}
		return DenySilent
	}

	if !listed {
		if p.Mode == ModeRelaxed {
			if req.Level == LevelPublic {
				return Allow
			}
			return DenyExplain
		}
		return DenySilent
	}

	if req.Level == LevelOwner && !p.IsOwner(req.Sender) {
		return DenyOwnerOnly
	}
	return Allow
}
