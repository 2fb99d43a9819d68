package period

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

// Type identifies the length of a summarized period.
type Type string

const (
	Daily   Type = "daily"
	Weekly  Type = "weekly"
	Monthly Type = "monthly"
)

// Types lists the supported period types in ascending length.
var Types = []Type{Daily, Weekly, Monthly}

// ParseType accepts the canonical names plus the short CLI aliases day/week/month.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day":
		return Daily, nil
	case "weekly", "week":
		return Weekly, nil
	case "monthly", "month":
		return Monthly, nil
	default:
		return "", fmt.Errorf("invalid period %q (must be daily, weekly or monthly)", s)
	}
}

func (t Type) String() string { return string(t) }

// Range is a half-open calendar range [Start, End) for one period.
// Start and End are civil dates: midnight UTC carrying the caller's calendar fields.
type Range struct {
	Type  Type
	Start time.Time
	End   time.Time
}

// Key returns the canonical period key, e.g. "weekly/2025-01-13".
func (r Range) Key() string {
	return string(r.Type) + "/" + FormatDate(r.Start)
}

// Days is the number of calendar days in the range.
func (r Range) Days() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// LastDay returns the inclusive last date of the range.
func (r Range) LastDay() time.Time {
	return r.End.AddDate(0, 0, -1)
}

// DateOf drops the clock and the zone of t, keeping the calendar date t shows
// in its own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return d, nil
}

// FormatDate renders a civil date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}
