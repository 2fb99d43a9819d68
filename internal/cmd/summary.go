package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"journal-digest/internal/domain"
	"journal-digest/internal/period"
)

var summaryUser string
var summaryPeriod string
var summaryDate string
var summaryJSON bool

func NewSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "List stored summaries, most recent first",
		RunE:  runSummary,
	}

	cmd.Flags().StringVarP(&summaryUser, "user", "u", "", "User id (UUID)")
	cmd.Flags().StringVarP(&summaryPeriod, "period", "p", "", "Only this period type (daily, weekly, monthly)")
	cmd.Flags().StringVarP(&summaryDate, "date", "d", "", "Only summaries starting on this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&summaryJSON, "json", false, "Print summaries as JSON")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runSummary(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(summaryUser)
	if err != nil {
		return err
	}

	var filter domain.SummaryFilter
	if summaryPeriod != "" {
		p, err := period.ParseType(summaryPeriod)
		if err != nil {
			return err
		}
		filter.Period = &p
	}
	if summaryDate != "" {
		d, err := period.ParseDate(summaryDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		filter.PeriodStart = &d
	}

	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	summaries, err := a.store.ListSummaries(cmd.Context(), userID, filter)
	if err != nil {
		return fmt.Errorf("failed to query summaries: %w", err)
	}

	if summaryJSON {
		return printJSON(cmd.OutOrStdout(), summaries)
	}
	printSummaries(cmd.OutOrStdout(), summaries)
	return nil
}

func printSummaries(w io.Writer, summaries []domain.Summary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No summaries found.")
		return
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "[%s] %s - %s  (%d entries, created %s)\n",
			s.Period, period.FormatDate(s.PeriodStart), period.FormatDate(s.Range().LastDay()),
			len(s.EntryLinks), s.CreatedAt.Local().Format("2006-01-02 15:04"))
		fmt.Fprintf(w, "  %s\n\n", truncate(s.Text, 120))
	}
}
