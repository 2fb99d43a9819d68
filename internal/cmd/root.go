package cmd

import (
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X journal-digest/internal/cmd.Version=...".
var Version = "dev"

var configPath string

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "journal-digest",
		Short:         "Journal digest - AI summaries of journal entries with evidence links",
		Long:          "Generates daily, weekly and monthly summaries of journal entries. Every summary sentence is linked to the entries that support it.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewDaemonCmd())
	rootCmd.AddCommand(NewGenerateCmd())
	rootCmd.AddCommand(NewSummaryCmd())
	rootCmd.AddCommand(NewEntryCmd())
	rootCmd.AddCommand(NewTokenCmd())
	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewStatusCmd())
	rootCmd.AddCommand(NewConfigCmd())

	return rootCmd
}
