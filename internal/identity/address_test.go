package identity

import "testing"

func TestParseKinds(t *testing.T) {
	tests := []struct {
		raw  string
		kind Kind
		key  string
	}{
		{"15551234567@s.whatsapp.net", KindPhone, "15551234567"},
		{"15551234567:12@s.whatsapp.net", KindPhone, "15551234567"},
		{"15551234567@c.us", KindPhone, "15551234567"},
		{"98765@lid", KindAlias, "98765"},
		{"+1 (555) 123-4567", KindPhone, "15551234567"},
		{"4242@telegram", KindChat, "telegram:4242"},
		{"U123@slack", KindChat, "slack:U123"},
		{"abc@example.com", KindUnknown, ""},
		{"", KindUnknown, ""},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			a := Parse(tc.raw)
			if a.Kind != tc.kind {
				t.Errorf("kind = %v, want %v", a.Kind, tc.kind)
			}
			if got := a.Key(); got != tc.key {
				t.Errorf("key = %q, want %q", got, tc.key)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"+1-555-123-4567", "15551234567@s.whatsapp.net", true},
		{"98765@lid", "98765@lid", true},
		{"4242@telegram", "4242@telegram", true},
		{"hello", "@s.whatsapp.net", false},
		{"abc@example.com", "abc@example.com", false},
		{"@telegram", "@telegram", false},
		{"", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := Resolve(tc.raw)
			if got != tc.want || ok != tc.ok {
				t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tc.raw, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestSame(t *testing.T) {
	if !Same("15551234567@s.whatsapp.net", "15551234567@lid") {
		t.Error("phone and alias forms of one number should compare equal")
	}
	if Same("", "") {
		t.Error("empty addresses must never match")
	}
	if Same("4242@telegram", "4242@s.whatsapp.net") {
		t.Error("chat ids must not collide with phone keys")
	}
}

func TestIsAlias(t *testing.T) {
	if !IsAlias("123@lid") {
		t.Error("expected alias")
	}
	if IsAlias("123@s.whatsapp.net") {
		t.Error("phone form reported as alias")
	}
}

func TestFormat(t *testing.T) {
	tests := map[string]string{
		"15551234567":        "15551234567@s.whatsapp.net",
		"+1 555 123 4567":    "15551234567@s.whatsapp.net",
		"555@s.whatsapp.net": "555@s.whatsapp.net",
		"4242@telegram":      "4242@telegram",
		"":                   "",
	}
	for in, want := range tests {
		if got := Format(in); got != want {
			t.Errorf("Format(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOwnerMatches(t *testing.T) {
	owner := Owner{Address: "15550001111@s.whatsapp.net", Alias: "777@lid"}

	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"stable form", "15550001111@s.whatsapp.net", true},
		{"device suffix", "15550001111:3@s.whatsapp.net", true},
		{"alias verbatim", "777@lid", true},
		{"alias carrying the owner digits", "15550001111@lid", true},
		{"other alias", "778@lid", false},
		{"stranger", "15559999999@s.whatsapp.net", false},
		{"empty", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := owner.Matches(tc.raw); got != tc.want {
				t.Errorf("Matches(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}

	if (Owner{}).Matches("123@s.whatsapp.net") {
		t.Error("zero owner must not match anyone")
	}
}
