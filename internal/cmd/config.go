package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"journal-digest/internal/config"
)

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE:  runConfig,
	}
	return cmd
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	printConfig(cmd.OutOrStdout(), cfg)
	return nil
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Configuration\n")
	fmt.Fprintf(w, "=============\n\n")
	fmt.Fprintf(w, "Server:\n")
	fmt.Fprintf(w, "  Addr: %s\n", cfg.Server.Addr)
	fmt.Fprintf(w, "  Read/Write Timeout: %s / %s\n", cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	fmt.Fprintf(w, "\nOpenAI:\n")
	fmt.Fprintf(w, "  Base URL: %s\n", cfg.OpenAI.BaseURL)
	fmt.Fprintf(w, "  Model: %s\n", cfg.OpenAI.Model)
	fmt.Fprintf(w, "  Max Output Tokens: %d\n", cfg.OpenAI.MaxOutputTokens)
	fmt.Fprintf(w, "  API Key: %s\n", maskSecret(cfg.OpenAI.APIKey))
	fmt.Fprintf(w, "  Summary Prompts: %s (main %s, daily %s, weekly %s, monthly %s)\n",
		cfg.OpenAI.SummaryPath,
		promptSource(cfg.OpenAI.MainPromptContent),
		promptSource(cfg.OpenAI.DailyPromptContent),
		promptSource(cfg.OpenAI.WeeklyPromptContent),
		promptSource(cfg.OpenAI.MonthlyPromptContent))
	fmt.Fprintf(w, "\nSummary:\n")
	fmt.Fprintf(w, "  Timezone: %s\n", cfg.Summary.Timezone)
	fmt.Fprintf(w, "  Locale: %s\n", cfg.Summary.Locale)
	fmt.Fprintf(w, "  Lock Scope: %s\n", cfg.Summary.LockScope)
	fmt.Fprintf(w, "  Model Timeout: %s\n", cfg.Summary.ModelTimeout)
	fmt.Fprintf(w, "\nAuth:\n")
	fmt.Fprintf(w, "  Issuer: %s\n", cfg.Auth.Issuer)
	fmt.Fprintf(w, "  Token TTL: %s\n", cfg.Auth.TokenTTL)
	fmt.Fprintf(w, "  JWT Secret: %s\n", maskSecret(cfg.Auth.JWTSecret))
	fmt.Fprintf(w, "\nScheduler: %s\n", enabledString(cfg.Scheduler.Enabled))
	fmt.Fprintf(w, "  Daily: %s\n", trigger(cfg.Scheduler.DailyCron, cfg.Scheduler.DailyInterval))
	fmt.Fprintf(w, "  Weekly: %s\n", trigger(cfg.Scheduler.WeeklyCron, cfg.Scheduler.WeeklyInterval))
	fmt.Fprintf(w, "  Monthly: %s\n", trigger(cfg.Scheduler.MonthlyCron, cfg.Scheduler.MonthlyInterval))
	fmt.Fprintf(w, "  Max Parallel: %d\n", cfg.Scheduler.MaxParallel)
	fmt.Fprintf(w, "\nStorage:\n")
	fmt.Fprintf(w, "  DB Path: %s\n", cfg.Storage.DBPath)
	fmt.Fprintf(w, "  Log Path: %s\n", cfg.Storage.LogPath)
	fmt.Fprintf(w, "  Log Level: %s (%s)\n", cfg.Storage.Log.Level, cfg.Storage.Log.Format)
}

// trigger describes when a period job fires; a cron spec wins over an interval.
func trigger(cron, interval string) string {
	switch {
	case cron != "":
		return "cron " + cron
	case interval != "":
		return "every " + interval
	default:
		return "off"
	}
}

func promptSource(content string) string {
	if content == "" {
		return "built-in"
	}
	return "file"
}

func maskSecret(key string) string {
	if len(key) == 0 {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
