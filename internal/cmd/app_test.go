package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"journal-digest/internal/period"
)

func testResolver() *period.Resolver {
	return &period.Resolver{Location: time.UTC, Now: func() time.Time {
		return time.Date(2025, 1, 8, 12, 0, 0, 0, time.UTC)
	}}
}

func TestResolveRange(t *testing.T) {
	tests := []struct {
		name      string
		period    string
		date      string
		end       string
		wantStart string
		wantEnd   string
		wantErr   bool
	}{
		{name: "daily today", period: "daily", wantStart: "2025-01-08", wantEnd: "2025-01-09"},
		{name: "daily date", period: "day", date: "2024-02-29", wantStart: "2024-02-29", wantEnd: "2024-03-01"},
		{name: "weekly any day", period: "weekly", date: "2025-01-05", wantStart: "2024-12-30", wantEnd: "2025-01-06"},
		{name: "monthly current", period: "monthly", wantStart: "2025-01-01", wantEnd: "2025-02-01"},
		{name: "monthly explicit", period: "month", date: "2025-01-15", end: "2025-02-14", wantStart: "2025-01-15", wantEnd: "2025-02-15"},
		{name: "monthly only start", period: "monthly", date: "2025-01-01", wantErr: true},
		{name: "end on daily", period: "daily", end: "2025-01-09", wantErr: true},
		{name: "unknown period", period: "yearly", wantErr: true},
		{name: "bad date", period: "daily", date: "08.01.2025", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveRange(testResolver(), tt.period, tt.date, tt.end)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("resolveRange() = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveRange() error = %v", err)
			}
			if s := period.FormatDate(got.Start); s != tt.wantStart {
				t.Errorf("Start = %s, want %s", s, tt.wantStart)
			}
			if e := period.FormatDate(got.End); e != tt.wantEnd {
				t.Errorf("End = %s, want %s", e, tt.wantEnd)
			}
		})
	}
}

func TestReadEntryText(t *testing.T) {
	got, err := readEntryText(strings.NewReader("ignored"), []string{"Fixed", "the", "bug."})
	if err != nil || got != "Fixed the bug." {
		t.Errorf("args: got %q, %v", got, err)
	}

	got, err = readEntryText(strings.NewReader("  Met Alex for lunch.\n"), []string{"-"})
	if err != nil || got != "Met Alex for lunch." {
		t.Errorf("stdin: got %q, %v", got, err)
	}

	if _, err := readEntryText(strings.NewReader(" \n"), nil); err == nil {
		t.Error("blank entry must be rejected")
	}
}

func TestParseUserID(t *testing.T) {
	if _, err := parseUserID(""); err == nil {
		t.Error("empty user must be rejected")
	}
	if _, err := parseUserID("bob"); err == nil {
		t.Error("non-uuid user must be rejected")
	}
	if _, err := parseUserID("7f1c2a9e-3b4d-4c5e-8f6a-0b1c2d3e4f5a"); err != nil {
		t.Errorf("valid uuid rejected: %v", err)
	}
}

func TestTruncateAndMask(t *testing.T) {
	if got := truncate("line one\nline two", 8); got != "line one..." {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("äöü", 3); got != "äöü" {
		t.Errorf("truncate() must count runes, got %q", got)
	}
	if got := maskSecret("sk-1234567890abcd"); got != "sk-1...abcd" {
		t.Errorf("maskSecret() = %q", got)
	}
	if got := maskSecret(""); got != "(not set)" {
		t.Errorf("maskSecret() = %q", got)
	}
}

type activityCounterMock struct {
	entries   map[string]int
	summaries map[string]int
}

func (m *activityCounterMock) CountEntries(_ context.Context, _ uuid.UUID, start, _ time.Time) (int, error) {
	return m.entries[period.FormatDate(start)], nil
}

func (m *activityCounterMock) CountSummaries(_ context.Context, _ uuid.UUID, p period.Type, start time.Time) (int, error) {
	return m.summaries[string(p)+"/"+period.FormatDate(start)], nil
}

func TestPrintUserActivity(t *testing.T) {
	today := period.Day(testResolver().Today())
	week := period.Week(today.Start)
	c := &activityCounterMock{
		entries:   map[string]int{"2025-01-08": 2, "2025-01-06": 5},
		summaries: map[string]int{"weekly/2025-01-06": 1},
	}

	var buf bytes.Buffer
	if err := printUserActivity(context.Background(), &buf, c, uuid.New(), today, week); err != nil {
		t.Fatalf("printUserActivity() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "2025-01-08 - 2025-01-08: 2 entries, summary missing") {
		t.Errorf("daily line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "2025-01-06 - 2025-01-12: 5 entries, summary stored") {
		t.Errorf("weekly line = %q", lines[1])
	}
}
