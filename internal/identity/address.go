// Package identity resolves the several address formats a sender can
// arrive under to a single comparable key.
package identity

import (
	"strings"
)

// Kind tags which address format a raw string uses.
type Kind int

const (
	KindUnknown Kind = iota
	KindPhone        // stable phone-keyed address, e.g. 15551234567@s.whatsapp.net
	KindAlias        // session-local alias, e.g. 15551234567@lid
	KindChat         // chat-scoped id on a non-phone transport, e.g. 4242@telegram
)

func (k Kind) String() string {
	switch k {
	case KindPhone:
		return "phone"
	case KindAlias:
		return "alias"
	case KindChat:
		return "chat"
	default:
		return "unknown"
	}
}

const (
	PhoneDomain = "s.whatsapp.net"
	AliasDomain = "lid"
)

// chatDomains are transports whose ids are not phone numbers.
var chatDomains = map[string]bool{
	"telegram": true,
	"discord":  true,
	"slack":    true,
}

// Address is a raw address together with its detected format.
type Address struct {
	Raw    string
	Local  string
	Domain string
	Kind   Kind
}

// Parse splits raw into local part and domain and classifies it.
func Parse(raw string) Address {
	raw = strings.TrimSpace(raw)
	a := Address{Raw: raw}
	if raw == "" {
		return a
	}
	local, domain, found := strings.Cut(raw, "@")
	a.Local = local
	if !found {
		a.Kind = KindPhone
		return a
	}
	a.Domain = strings.ToLower(domain)
	switch {
	case a.Domain == AliasDomain:
		a.Kind = KindAlias
	case a.Domain == PhoneDomain || a.Domain == "c.us":
		a.Kind = KindPhone
	case chatDomains[a.Domain]:
		a.Kind = KindChat
	default:
		a.Kind = KindUnknown
	}
	return a
}

// Key returns the canonical comparison key. Phone and alias forms reduce to
// the digits of the local part with any device suffix dropped; chat-scoped
// ids keep their transport so they never collide with a phone key.
func (a Address) Key() string {
	if a.Kind == KindChat {
		if a.Local == "" {
			return ""
		}
		return a.Domain + ":" + a.Local
	}
	local, _, _ := strings.Cut(a.Local, ":")
	return digitsOnly(local)
}

func (a Address) String() string { return a.Raw }

// Normalize returns the phone key of raw. Empty input yields an empty key,
// which never matches anything.
func Normalize(raw string) string {
	return Parse(raw).Key()
}

// IsAlias reports whether raw carries the session-alias marker.
func IsAlias(raw string) bool {
	return Parse(raw).Kind == KindAlias
}

// Same reports whether a and b resolve to the same non-empty key.
func Same(a, b string) bool {
	ka := Normalize(a)
	return ka != "" && ka == Normalize(b)
}

// Format turns user input into a full address. Bare numbers become stable
// phone addresses; anything already carrying a domain is returned as is.
func Format(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "@") {
		return raw
	}
	return digitsOnly(raw) + "@" + PhoneDomain
}

// Resolve formats raw like Format and reports whether the result is an
// address a message can be delivered to: a known format with a non-empty key.
func Resolve(raw string) (string, bool) {
	addr := Format(raw)
	a := Parse(addr)
	if a.Kind == KindUnknown || a.Key() == "" {
		return addr, false
	}
	return addr, true
}

// Chat builds the address of a chat-scoped id on a non-phone transport.
func Chat(domain, id string) string {
	return id + "@" + domain
}

// Owner describes the bot owner's identity.
type Owner struct {
	Address string
	Alias   string // optional, matched verbatim
}

// Matches reports whether raw belongs to the owner. The alias form is
// session scoped, so it is only ever compared verbatim.
func (o Owner) Matches(raw string) bool {
	if raw == "" {
		return false
	}
	if o.Alias != "" && raw == o.Alias {
		return true
	}
	return Same(raw, o.Address)
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
