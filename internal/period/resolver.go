package period

import (
	"fmt"
	"time"
)

// Resolver turns a requested date, or the caller's "today", into a period range.
// Today is always taken from the caller's location, never from UTC.
type Resolver struct {
	Location *time.Location
	Now      func() time.Time
}

// NewResolver creates a Resolver for the given location. A nil location means time.Local.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{Location: loc, Now: time.Now}
}

// Today returns the caller's local calendar date.
func (r *Resolver) Today() time.Time {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	return DateOf(now().In(loc))
}

// Resolve returns the range for a daily or weekly period. A nil requested date means today.
// Monthly periods need an explicit range, see Month.
func (r *Resolver) Resolve(t Type, requested *time.Time) (Range, error) {
	date := r.Today()
	if requested != nil {
		date = DateOf(*requested)
	}

	switch t {
	case Daily:
		return Day(date), nil
	case Weekly:
		return Week(date), nil
	case Monthly:
		return Range{}, fmt.Errorf("monthly periods need an explicit start and end date")
	default:
		return Range{}, fmt.Errorf("unsupported period type: %s", t)
	}
}

// Day returns the single-date range for date.
func Day(date time.Time) Range {
	start := DateOf(date)
	return Range{Type: Daily, Start: start, End: start.AddDate(0, 0, 1)}
}

// Week returns the ISO week (Monday to Sunday) containing date.
func Week(date time.Time) Range {
	start := WeekStart(date)
	return Range{Type: Weekly, Start: start, End: start.AddDate(0, 0, 7)}
}

// WeekStart returns the Monday of the ISO week containing date.
func WeekStart(date time.Time) time.Time {
	d := DateOf(date)
	// Monday=0 ... Sunday=6
	idx := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -idx)
}

// Month returns the range [start, end] with end inclusive, as supplied by the caller.
func Month(start, end time.Time) (Range, error) {
	s, e := DateOf(start), DateOf(end)
	if e.Before(s) {
		return Range{}, fmt.Errorf("month end %s is before month start %s", FormatDate(e), FormatDate(s))
	}
	return Range{Type: Monthly, Start: s, End: e.AddDate(0, 0, 1)}, nil
}

// CalendarMonth returns the first and last day of the calendar month containing date.
// Callers use it as their "this month" policy before calling Month.
func CalendarMonth(date time.Time) (time.Time, time.Time) {
	d := DateOf(date)
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}

// Previous returns the complete period that ended right before the one containing today.
// Used by the scheduler: yesterday for daily, last ISO week for weekly,
// last calendar month for monthly.
func (r *Resolver) Previous(t Type) (Range, error) {
	today := r.Today()
	switch t {
	case Daily:
		return Day(today.AddDate(0, 0, -1)), nil
	case Weekly:
		return Week(WeekStart(today).AddDate(0, 0, -7)), nil
	case Monthly:
		first, _ := CalendarMonth(today)
		start, end := CalendarMonth(first.AddDate(0, 0, -1))
		return Month(start, end)
	default:
		return Range{}, fmt.Errorf("unsupported period type: %s", t)
	}
}
