package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateStatusOnly bool

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE:  runMigrate,
	}
	cmd.Flags().BoolVar(&migrateStatusOnly, "status", false, "Only print the current schema version")
	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	w := cmd.OutOrStdout()
	if !migrateStatusOnly {
		results, err := a.store.Migrate(cmd.Context())
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Fprintln(w, "No pending migrations.")
		}
		for _, r := range results {
			fmt.Fprintf(w, "Applied %05d %s (%s)\n", r.Version, r.Source, r.Duration)
		}
	}

	version, err := a.store.SchemaVersion(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Schema version: %d\n", version)
	return nil
}
