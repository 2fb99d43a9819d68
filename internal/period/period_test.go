package period

import (
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q) error = %v", s, err)
	}
	return d
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"daily", Daily, false},
		{"day", Daily, false},
		{"Weekly", Weekly, false},
		{" week ", Weekly, false},
		{"monthly", Monthly, false},
		{"month", Monthly, false},
		{"yearly", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWeekStart_AlwaysMonday(t *testing.T) {
	start := mustDate(t, "2023-12-20")
	for i := 0; i < 800; i++ {
		d := start.AddDate(0, 0, i)
		ws := WeekStart(d)
		if ws.Weekday() != time.Monday {
			t.Fatalf("WeekStart(%s) = %s (%s), want a Monday", FormatDate(d), FormatDate(ws), ws.Weekday())
		}
		if d.Before(ws) || !d.Before(ws.AddDate(0, 0, 7)) {
			t.Fatalf("WeekStart(%s) = %s does not contain the date", FormatDate(d), FormatDate(ws))
		}
	}
}

func TestWeek_SameStartForWholeWeek(t *testing.T) {
	tests := []struct {
		name   string
		monday string
	}{
		{"mid year", "2025-06-09"},
		{"crosses year boundary", "2024-12-30"},
		{"leap day week", "2024-02-26"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			monday := mustDate(t, tt.monday)
			for i := 0; i < 7; i++ {
				r := Week(monday.AddDate(0, 0, i))
				if !r.Start.Equal(monday) {
					t.Errorf("Week(%s).Start = %s, want %s", FormatDate(monday.AddDate(0, 0, i)), FormatDate(r.Start), tt.monday)
				}
				if r.Days() != 7 {
					t.Errorf("Week(...).Days() = %d, want 7", r.Days())
				}
			}
		})
	}
}

func TestDay(t *testing.T) {
	d := mustDate(t, "2025-03-01")
	r := Day(d)
	if r.Type != Daily {
		t.Errorf("Type = %s, want daily", r.Type)
	}
	if FormatDate(r.Start) != "2025-03-01" || FormatDate(r.End) != "2025-03-02" {
		t.Errorf("Day = [%s, %s), want [2025-03-01, 2025-03-02)", FormatDate(r.Start), FormatDate(r.End))
	}
	if r.Days() != 1 {
		t.Errorf("Days() = %d, want 1", r.Days())
	}
}

func TestMonth(t *testing.T) {
	r, err := Month(mustDate(t, "2025-02-01"), mustDate(t, "2025-02-28"))
	if err != nil {
		t.Fatalf("Month() error = %v", err)
	}
	if FormatDate(r.End) != "2025-03-01" {
		t.Errorf("End = %s, want 2025-03-01", FormatDate(r.End))
	}
	if FormatDate(r.LastDay()) != "2025-02-28" {
		t.Errorf("LastDay = %s, want 2025-02-28", FormatDate(r.LastDay()))
	}

	if _, err := Month(mustDate(t, "2025-02-10"), mustDate(t, "2025-02-09")); err == nil {
		t.Error("Month() with end before start should fail")
	}

	single, err := Month(mustDate(t, "2025-02-10"), mustDate(t, "2025-02-10"))
	if err != nil {
		t.Fatalf("Month() single day error = %v", err)
	}
	if single.Days() != 1 {
		t.Errorf("single day month Days() = %d, want 1", single.Days())
	}
}

func TestCalendarMonth(t *testing.T) {
	first, last := CalendarMonth(mustDate(t, "2024-02-17"))
	if FormatDate(first) != "2024-02-01" || FormatDate(last) != "2024-02-29" {
		t.Errorf("CalendarMonth = %s..%s, want 2024-02-01..2024-02-29", FormatDate(first), FormatDate(last))
	}
}

func TestResolver_TodayUsesCallerLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 2025-01-05 20:30 UTC is already 2025-01-06 in Tokyo.
	now := time.Date(2025, 1, 5, 20, 30, 0, 0, time.UTC)

	r := &Resolver{Location: tokyo, Now: func() time.Time { return now }}
	if got := FormatDate(r.Today()); got != "2025-01-06" {
		t.Errorf("Today() = %s, want 2025-01-06", got)
	}

	daily, err := r.Resolve(Daily, nil)
	if err != nil {
		t.Fatalf("Resolve(daily) error = %v", err)
	}
	if FormatDate(daily.Start) != "2025-01-06" {
		t.Errorf("daily start = %s, want 2025-01-06", FormatDate(daily.Start))
	}

	weekly, err := r.Resolve(Weekly, nil)
	if err != nil {
		t.Fatalf("Resolve(weekly) error = %v", err)
	}
	if FormatDate(weekly.Start) != "2025-01-06" {
		t.Errorf("weekly start = %s, want 2025-01-06 (a Monday)", FormatDate(weekly.Start))
	}

	utc := &Resolver{Location: time.UTC, Now: func() time.Time { return now }}
	if got := FormatDate(utc.Today()); got != "2025-01-05" {
		t.Errorf("UTC Today() = %s, want 2025-01-05", got)
	}
}

func TestResolver_RequestedDate(t *testing.T) {
	r := NewResolver(time.UTC)
	req := mustDate(t, "2025-01-09")

	got, err := r.Resolve(Weekly, &req)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if FormatDate(got.Start) != "2025-01-06" {
		t.Errorf("Start = %s, want 2025-01-06", FormatDate(got.Start))
	}
	if got.Key() != "weekly/2025-01-06" {
		t.Errorf("Key() = %s", got.Key())
	}

	if _, err := r.Resolve(Monthly, &req); err == nil {
		t.Error("Resolve(monthly) should require an explicit range")
	}
}

func TestResolver_Previous(t *testing.T) {
	now := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC) // Wednesday
	r := &Resolver{Location: time.UTC, Now: func() time.Time { return now }}

	tests := []struct {
		typ       Type
		wantStart string
		wantEnd   string
	}{
		{Daily, "2025-03-04", "2025-03-05"},
		{Weekly, "2025-02-24", "2025-03-03"},
		{Monthly, "2025-02-01", "2025-03-01"},
	}

	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			got, err := r.Previous(tt.typ)
			if err != nil {
				t.Fatalf("Previous() error = %v", err)
			}
			if FormatDate(got.Start) != tt.wantStart || FormatDate(got.End) != tt.wantEnd {
				t.Errorf("Previous(%s) = [%s, %s), want [%s, %s)", tt.typ,
					FormatDate(got.Start), FormatDate(got.End), tt.wantStart, tt.wantEnd)
			}
		})
	}
}
