package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"journal-digest/internal/period"
)

var statusUser string

func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show database status and recent activity",
		RunE:  runStatus,
	}
	cmd.Flags().StringVarP(&statusUser, "user", "u", "", "Also show entry and summary counts for this user id")
	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	var userID uuid.UUID
	if statusUser != "" {
		if userID, err = parseUserID(statusUser); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	version, err := a.store.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	today := period.Day(a.resolver().Today())
	week := period.Week(today.Start)
	month, err := period.Month(period.CalendarMonth(today.Start))
	if err != nil {
		return err
	}

	todayUsers, err := a.store.ListUsersWithEntries(ctx, today.Start, today.End)
	if err != nil {
		return fmt.Errorf("failed to query entries: %w", err)
	}
	weekUsers, err := a.store.ListUsersWithEntries(ctx, week.Start, week.End)
	if err != nil {
		return fmt.Errorf("failed to query entries: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Journal-digest Status\n")
	fmt.Fprintf(w, "=====================\n\n")
	fmt.Fprintf(w, "Database: %s (schema version %d)\n", a.cfg.Storage.DBPath, version)
	fmt.Fprintf(w, "Timezone: %s\n", a.location)
	fmt.Fprintf(w, "Users with entries today (%s): %d\n", period.FormatDate(today.Start), len(todayUsers))
	fmt.Fprintf(w, "Users with entries this week (from %s): %d\n", period.FormatDate(week.Start), len(weekUsers))
	fmt.Fprintf(w, "Scheduler: %s\n", enabledString(a.cfg.Scheduler.Enabled))

	if pid, err := readPid(); err == nil && isProcessRunning(pid) {
		fmt.Fprintf(w, "Daemon: running (PID: %d)\n", pid)
	} else {
		fmt.Fprintf(w, "Daemon: not running\n")
	}

	if statusUser != "" {
		fmt.Fprintf(w, "\nUser %s:\n", userID)
		return printUserActivity(ctx, w, a.store, userID, today, week, month)
	}
	return nil
}

type activityCounter interface {
	CountEntries(ctx context.Context, userID uuid.UUID, start, end time.Time) (int, error)
	CountSummaries(ctx context.Context, userID uuid.UUID, p period.Type, start time.Time) (int, error)
}

// printUserActivity prints one line per range: entry count and whether a
// summary is stored for it.
func printUserActivity(ctx context.Context, w io.Writer, c activityCounter, userID uuid.UUID, ranges ...period.Range) error {
	for _, r := range ranges {
		entries, err := c.CountEntries(ctx, userID, r.Start, r.End)
		if err != nil {
			return fmt.Errorf("failed to count entries: %w", err)
		}
		stored, err := c.CountSummaries(ctx, userID, r.Type, r.Start)
		if err != nil {
			return fmt.Errorf("failed to count summaries: %w", err)
		}
		state := "missing"
		if stored > 0 {
			state = "stored"
		}
		fmt.Fprintf(w, "  %-7s %s - %s: %d entries, summary %s\n",
			r.Type, period.FormatDate(r.Start), period.FormatDate(r.LastDay()), entries, state)
	}
	return nil
}

func enabledString(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
