package auth

import (
	"testing"

	"github.com/coopco/wishbot/internal/identity"
)

type staticWhitelist map[string]bool

func (w staticWhitelist) Whitelisted(address string) bool {
	return w[identity.Normalize(address)]
}

const (
	ownerAddr    = "15550001111@s.whatsapp.net"
	memberAddr   = "15552223333@s.whatsapp.net"
	memberAlias  = "15552223333@lid"
	strangerAddr = "15559998888@s.whatsapp.net"
)

func newPolicy(mode Mode) *Policy {
	return &Policy{
		Owner:     identity.Owner{Address: ownerAddr},
		Whitelist: staticWhitelist{"15552223333": true},
		Mode:      mode,
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		req  Request
		want Decision
	}{
		{"strict stranger member cmd", ModeStrict, Request{Sender: strangerAddr, Command: "addwish", Known: true, Level: LevelMember}, DenySilent},
		{"strict stranger public cmd", ModeStrict, Request{Sender: strangerAddr, Command: "help", Known: true, Level: LevelPublic}, DenySilent},
		{"strict member", ModeStrict, Request{Sender: memberAddr, Command: "addwish", Known: true, Level: LevelMember}, Allow},
		{"strict member alias form", ModeStrict, Request{Sender: memberAlias, Command: "addwish", Known: true, Level: LevelMember}, Allow},
		{"relaxed stranger public", ModeRelaxed, Request{Sender: strangerAddr, Command: "checkid", Known: true, Level: LevelPublic}, Allow},
		{"relaxed stranger member", ModeRelaxed, Request{Sender: strangerAddr, Command: "addwish", Known: true, Level: LevelMember}, DenyExplain},
		{"unknown cmd stranger", ModeRelaxed, Request{Sender: strangerAddr, Command: "bogus"}, DenySilent},
		{"unknown cmd member", ModeStrict, Request{Sender: memberAddr, Command: "bogus"}, Allow},
		{"owner only by member", ModeStrict, Request{Sender: memberAddr, Command: "backup", Known: true, Level: LevelOwner}, DenyOwnerOnly},
		{"owner only by owner", ModeStrict, Request{Sender: ownerAddr, Command: "backup", Known: true, Level: LevelOwner}, Allow},
		{"owner only by stranger relaxed", ModeRelaxed, Request{Sender: strangerAddr, Command: "backup", Known: true, Level: LevelOwner}, DenyExplain},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := newPolicy(tc.mode).Decide(tc.req); got != tc.want {
				t.Errorf("Decide = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOwnerAlwaysWhitelisted(t *testing.T) {
	p := &Policy{Owner: identity.Owner{Address: ownerAddr, Alias: "42@lid"}, Mode: ModeStrict}
	for _, s := range []string{ownerAddr, "42@lid"} {
		if !p.IsWhitelisted(s) {
			t.Errorf("owner form %q not whitelisted", s)
		}
	}
	if p.IsWhitelisted(memberAddr) {
		t.Error("nil whitelist should only admit the owner")
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeStrict, "strict": ModeStrict, "Relaxed": ModeRelaxed} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMode("open"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
