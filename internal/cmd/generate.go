package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"journal-digest/internal/period"
	"journal-digest/internal/summary"
)

var generateUser string
var generatePeriod string
var generateDate string
var generateEnd string
var generateContext string
var generateLocale string
var generateJSON bool

func NewGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and store the summary of one period",
		Long:  "Generate the summary of one period for a user and replace any stored summary of the same period. Daily and weekly periods are resolved from --date (default today); monthly periods take --date as first day and --end as last day, or the current calendar month when both are omitted.",
		RunE:  runGenerate,
	}

	cmd.Flags().StringVarP(&generateUser, "user", "u", "", "User id (UUID)")
	cmd.Flags().StringVarP(&generatePeriod, "period", "p", "daily", "Period type (daily, weekly, monthly)")
	cmd.Flags().StringVarP(&generateDate, "date", "d", "", "Date in the period (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&generateEnd, "end", "", "Last day of a monthly range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&generateContext, "context", "", "Extra context for the model, never treated as an entry")
	cmd.Flags().StringVar(&generateLocale, "locale", "", "Output language, defaults to summary.locale")
	cmd.Flags().BoolVar(&generateJSON, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(generateUser)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	rng, err := resolveRange(a.resolver(), generatePeriod, generateDate, generateEnd)
	if err != nil {
		return err
	}

	svc, err := a.summaryService()
	if err != nil {
		return err
	}

	if !generateJSON {
		fmt.Fprintf(os.Stderr, "Generating %s summary %s - %s (%d days)...\n", rng.Type, period.FormatDate(rng.Start), period.FormatDate(rng.LastDay()), rng.Days())
	}

	res, err := svc.Generate(cmd.Context(), summary.GenerateInput{
		UserID:      userID,
		Range:       rng,
		Locale:      generateLocale,
		ContextHint: generateContext,
	})
	if err != nil {
		return fmt.Errorf("failed to generate %s summary: %w", rng.Type, err)
	}

	if generateJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func printResult(w io.Writer, res *summary.Result) {
	s := res.Summary
	fmt.Fprintf(w, "%s summary %s - %s (id %s)\n\n", s.Period, period.FormatDate(s.PeriodStart), period.FormatDate(s.Range().LastDay()), s.ID)
	for i, sent := range res.Sentences {
		fmt.Fprintf(w, "%2d. %s\n", i+1, sent.Text)
		if len(sent.EntryIDs) > 0 {
			fmt.Fprintf(w, "    entries: %v\n", sent.EntryIDs)
		}
	}
	fmt.Fprintf(w, "\nLinked entries: %d\n", len(s.EntryLinks))
	if len(res.Violations) > 0 {
		fmt.Fprintf(w, "Dropped unknown entry ids: %d\n", len(res.Violations))
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
