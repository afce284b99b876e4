package wish

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"25/12/2025", "25/12/2025", false},
		{"1/2/2026", "01/02/2026", false},
		{"29/02/2024", "29/02/2024", false},
		{"29/02/2025", "", true},
		{"31/04/2025", "", true},
		{"25-12-2025", "", true},
		{"25/12/25", "", true},
		{"aa/bb/cccc", "", true},
		{"", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseDate(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidDate) {
					t.Fatalf("expected ErrInvalidDate, got %q, %v", got, err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("ParseDate(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"09:00", "09:00", false},
		{"9:00", "09:00", false},
		{"23:59", "23:59", false},
		{"00:00", "00:00", false},
		{"24:00", "", true},
		{"12:60", "", true},
		{"12:5", "", true},
		{"noon", "", true},
		{"+9:+5", "", true},
		{"+9:05", "", true},
		{"-1:00", "", true},
		{"09:-1", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseTime(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidTime) {
					t.Fatalf("expected ErrInvalidTime, got %q, %v", got, err)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("ParseTime(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
			}
		})
	}
}

func TestParseMonthDay(t *testing.T) {
	tests := map[string]string{
		"01/01":      "01/01",
		"1/1":        "01/01",
		"29/02":      "29/02",
		"01/01/2026": "01/01",
	}
	for in, want := range tests {
		got, err := ParseMonthDay(in)
		if err != nil || got != want {
			t.Errorf("ParseMonthDay(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"32/01", "01", "00/12", "ab/cd"} {
		if _, err := ParseMonthDay(bad); err == nil {
			t.Errorf("ParseMonthDay(%q): expected error", bad)
		}
	}
}

func TestStampAndDue(t *testing.T) {
	now := time.Date(2025, 12, 25, 9, 0, 42, 0, time.Local)
	s := StampOf(now)
	if s.Date != "25/12/2025" || s.Time != "09:00" {
		t.Fatalf("unexpected stamp %+v", s)
	}
	if s.MonthDay() != "25/12" {
		t.Fatalf("MonthDay = %q", s.MonthDay())
	}

	w := Wish{Date: "25/12/2025", Time: "09:00"}
	if !w.Due(s) {
		t.Error("wish should be due at its exact minute")
	}
	if w.Due(StampOf(now.Add(time.Minute))) {
		t.Error("wish must not match the following minute")
	}
	if w.Due(StampOf(now.AddDate(0, 0, -1))) {
		t.Error("wish must not match the previous day")
	}

	g := GroupWish{Date: "25/12", Time: "09:00"}
	if !g.Due(StampOf(now.AddDate(3, 0, 0))) {
		t.Error("group wish should recur every year")
	}
}

func TestMarkSent(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var w Wish
	w.MarkSent(at, errors.New("network down"))
	if w.SentSuccessfully == nil || *w.SentSuccessfully {
		t.Fatal("expected sent_successfully=false")
	}
	if w.ErrorMessage != "network down" {
		t.Fatalf("error message = %q", w.ErrorMessage)
	}

	var ok Wish
	ok.MarkSent(at, nil)
	if ok.SentSuccessfully == nil || !*ok.SentSuccessfully || ok.ErrorMessage != "" {
		t.Fatalf("unexpected success stamp %+v", ok)
	}
}

func TestArchivedWishJSONFlattensWish(t *testing.T) {
	a := ArchivedWish{
		Wish:           Wish{ID: "1", Date: "01/01/2025", Time: "00:00", Recipient: "1@s.whatsapp.net"},
		ArchivedReason: ReasonSendFailed,
	}
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"id":"1"`, `"jid":"1@s.whatsapp.net"`, `"archived_reason":"send_failed"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("missing %s in %s", key, data)
		}
	}
}

func TestIDSourceMonotonic(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	ids := NewIDSource(func() time.Time { return fixed })

	a, b := ids.Next(), ids.Next()
	if a == b {
		t.Fatalf("ids collided: %s", a)
	}
	if a != "1700000000000" || b != "1700000000001" {
		t.Fatalf("unexpected ids %s %s", a, b)
	}

	ids.Observe("1800000000000")
	if got := ids.Next(); got != "1800000000001" {
		t.Fatalf("Next after Observe = %s", got)
	}
	ids.Observe("not-a-number")
}
