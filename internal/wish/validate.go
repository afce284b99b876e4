package wish

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout = "02/01/2006"
	timeLayout = "15:04"
)

var (
	ErrInvalidDate = errors.New("invalid date")
	ErrInvalidTime = errors.New("invalid time")
)

// Stamp is a wall-clock minute in the formats wishes are stored in.
type Stamp struct {
	Date string // DD/MM/YYYY
	Time string // HH:MM
}

// StampOf renders t in local time at minute granularity.
func StampOf(t time.Time) Stamp {
	t = t.Local()
	return Stamp{Date: t.Format(dateLayout), Time: t.Format(timeLayout)}
}

// MonthDay returns the DD/MM prefix of the stamp's date.
func (s Stamp) MonthDay() string {
	if len(s.Date) < 5 {
		return s.Date
	}
	return s.Date[:5]
}

func (s Stamp) String() string { return s.Date + " " + s.Time }

// ParseDate validates a DD/MM/YYYY date and returns it zero padded.
func ParseDate(s string) (string, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 || len(parts[2]) != 4 {
		return "", fmt.Errorf("%w %q: want DD/MM/YYYY", ErrInvalidDate, s)
	}
	d, m, y, err := atoi3(parts[0], parts[1], parts[2])
	if err != nil {
		return "", fmt.Errorf("%w %q: want DD/MM/YYYY", ErrInvalidDate, s)
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.Local)
	if t.Day() != d || int(t.Month()) != m {
		return "", fmt.Errorf("%w %q: no such day", ErrInvalidDate, s)
	}
	return t.Format(dateLayout), nil
}

// ParseMonthDay validates a DD/MM date, also accepting DD/MM/YYYY and
// dropping the year. 29/02 is always accepted.
func ParseMonthDay(s string) (string, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) == 3 {
		parts = parts[:2]
	}
	if len(parts) != 2 {
		return "", fmt.Errorf("%w %q: want DD/MM", ErrInvalidDate, s)
	}
	// leap year so 29/02 survives the round trip
	d, m, _, err := atoi3(parts[0], parts[1], "2024")
	if err != nil {
		return "", fmt.Errorf("%w %q: want DD/MM", ErrInvalidDate, s)
	}
	t := time.Date(2024, time.Month(m), d, 0, 0, 0, 0, time.Local)
	if t.Day() != d || int(t.Month()) != m {
		return "", fmt.Errorf("%w %q: no such day", ErrInvalidDate, s)
	}
	return t.Format("02/01"), nil
}

// ParseTime validates H:MM or HH:MM and returns HH:MM.
func ParseTime(s string) (string, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) < 1 || len(h) > 2 || len(m) != 2 || !allDigits(h) || !allDigits(m) {
		return "", fmt.Errorf("%w %q: want HH:MM", ErrInvalidTime, s)
	}
	hour, err1 := strconv.Atoi(h)
	minute, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return "", fmt.Errorf("%w %q: want HH:MM", ErrInvalidTime, s)
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// At resolves a stored date and time into a local instant.
func At(date, clock string) (time.Time, error) {
	return time.ParseInLocation(dateLayout+" "+timeLayout, date+" "+clock, time.Local)
}

// MonthDayAt resolves a DD/MM date and time within year.
func MonthDayAt(monthDay, clock string, year int) (time.Time, error) {
	return time.ParseInLocation("02/01/2006 15:04", fmt.Sprintf("%s/%04d %s", monthDay, year, clock), time.Local)
}

func atoi3(a, b, c string) (int, int, int, error) {
	for _, s := range []string{a, b, c} {
		if s == "" || len(s) > 4 || !allDigits(s) {
			return 0, 0, 0, strconv.ErrSyntax
		}
	}
	x, _ := strconv.Atoi(a)
	y, _ := strconv.Atoi(b)
	z, _ := strconv.Atoi(c)
	return x, y, z, nil
}

// allDigits rejects the signs strconv.Atoi would accept.
func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
