package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"journal-digest/internal/domain"
	"journal-digest/internal/period"
)

var entryUser string
var entryDate string
var entryFrom string
var entryTo string
var entryID string

func NewEntryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Manage journal entries (add/list/delete)",
	}

	cmd.PersistentFlags().StringVarP(&entryUser, "user", "u", "", "User id (UUID)")
	_ = cmd.MarkPersistentFlagRequired("user")

	cmd.AddCommand(newEntryAddCmd())
	cmd.AddCommand(newEntryListCmd())
	cmd.AddCommand(newEntryDeleteCmd())
	return cmd
}

func newEntryAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Add an entry; text is read from stdin when omitted or '-'",
		RunE:  runEntryAdd,
	}
	cmd.Flags().StringVarP(&entryDate, "date", "d", "", "Entry date (YYYY-MM-DD), defaults to today")
	return cmd
}

func newEntryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries between two dates, oldest first",
		RunE:  runEntryList,
	}
	cmd.Flags().StringVar(&entryFrom, "from", "", "First day (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&entryTo, "to", "", "Last day (YYYY-MM-DD), defaults to --from")
	return cmd
}

func newEntryDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an entry",
		RunE:  runEntryDelete,
	}
	cmd.Flags().StringVar(&entryID, "id", "", "Entry id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func runEntryAdd(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(entryUser)
	if err != nil {
		return err
	}

	text, err := readEntryText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	date := a.resolver().Today()
	if entryDate != "" {
		if date, err = period.ParseDate(entryDate); err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	e := &domain.Entry{UserID: userID, RawText: text, Date: date}
	if err := a.store.SaveEntry(cmd.Context(), e); err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Entry %s saved for %s\n", e.ID, period.FormatDate(e.Date))
	return nil
}

func readEntryText(stdin io.Reader, args []string) (string, error) {
	var text string
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read entry from stdin: %w", err)
		}
		text = string(data)
	} else {
		text = strings.Join(args, " ")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("entry text is empty")
	}
	return text, nil
}

func runEntryList(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(entryUser)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	from := a.resolver().Today()
	if entryFrom != "" {
		if from, err = period.ParseDate(entryFrom); err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
	}
	to := from
	if entryTo != "" {
		if to, err = period.ParseDate(entryTo); err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
	}
	if to.Before(from) {
		return fmt.Errorf("--to %s is before --from %s", period.FormatDate(to), period.FormatDate(from))
	}

	entries, err := a.store.ListEntries(cmd.Context(), userID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("failed to query entries: %w", err)
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s  %s\n", period.FormatDate(e.Date), e.ID, truncate(e.RawText, 80))
	}
	return nil
}

func runEntryDelete(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(entryUser)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.DeleteEntry(cmd.Context(), userID, entryID); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Entry %s deleted. Stored summaries are not regenerated automatically.\n", entryID)
	return nil
}
