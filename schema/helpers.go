package schema

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date representation used in keys, files and flags.
const DateLayout = "2006-01-02"

// NormalizeDate strips the clock from t, keeping its calendar date in t's location,
// and returns midnight UTC of that date.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string into a normalized date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return NormalizeDate(t), nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns the current calendar date in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return NormalizeDate(now.In(loc))
}

// LookbackDate returns the date w days before runDate.
func LookbackDate(runDate time.Time, w Window) time.Time {
	return NormalizeDate(runDate).AddDate(0, 0, -int(w))
}

// LookbackDates returns the target date of every window, keyed by window.
func LookbackDates(runDate time.Time) map[Window]time.Time {
	dates := make(map[Window]time.Time, len(AllWindows))
	for _, w := range AllWindows {
		dates[w] = LookbackDate(runDate, w)
	}
	return dates
}

// Label returns the short label of a window, e.g. "24h" or "30d".
func (w Window) Label() string {
	switch w {
	case Window24h:
		return "24h"
	case Window72h:
		return "72h"
	default:
		return fmt.Sprintf("%dd", int(w))
	}
}
