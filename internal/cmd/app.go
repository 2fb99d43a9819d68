package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"journal-digest/internal/analyzer"
	"journal-digest/internal/auth"
	"journal-digest/internal/config"
	"journal-digest/internal/keylock"
	"journal-digest/internal/logger"
	"journal-digest/internal/period"
	"journal-digest/internal/storage"
	"journal-digest/internal/summary"
)

// app is the wiring shared by all commands that touch the database.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	store    *storage.SQLiteStorage
	location *time.Location
}

// newApp loads config, initializes the logger and opens storage. With
// migrate set, pending migrations are applied first.
func newApp(ctx context.Context, migrate bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.InitLogger(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()

	loc, err := cfg.Summary.Location()
	if err != nil {
		return nil, err
	}

	if err := cfg.Storage.EnsureDBPath(); err != nil {
		return nil, fmt.Errorf("failed to create db path: %w", err)
	}

	var st *storage.SQLiteStorage
	if migrate {
		st, err = storage.Open(ctx, cfg.Storage.DBPath, log)
	} else {
		st, err = storage.OpenWithoutMigrations(cfg.Storage.DBPath, log)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return &app{cfg: cfg, log: log, store: st, location: loc}, nil
}

func (a *app) Close() error {
	err := a.store.Close()
	if lerr := logger.Close(); err == nil {
		err = lerr
	}
	return err
}

// summaryService wires the generation pipeline over the app's storage.
func (a *app) summaryService() (*summary.Service, error) {
	oc := a.cfg.OpenAI
	summarizer, err := analyzer.NewOpenAI(analyzer.Config{
		APIKey:          oc.APIKey,
		BaseURL:         oc.BaseURL,
		Model:           oc.Model,
		MaxOutputTokens: oc.MaxOutputTokens,
		Locale:          a.cfg.Summary.Locale,
		Prompts: analyzer.Prompts{
			Main:    oc.MainPromptContent,
			Daily:   oc.DailyPromptContent,
			Weekly:  oc.WeeklyPromptContent,
			Monthly: oc.MonthlyPromptContent,
		},
	}, a.log)
	if err != nil {
		return nil, fmt.Errorf("failed to create summarizer: %w", err)
	}

	scope, err := summary.ParseLockScope(a.cfg.Summary.LockScope)
	if err != nil {
		return nil, err
	}

	return summary.NewService(a.store, summarizer, a.store, keylock.NewArena(), summary.Options{
		LockScope:    scope,
		ModelTimeout: a.cfg.Summary.ModelTimeout,
	}, a.log), nil
}

func (a *app) jwtManager() (*auth.JWTManager, error) {
	m, err := auth.NewJWTManager(a.cfg.Auth.JWTSecret, a.cfg.Auth.Issuer, a.cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth: %w (set auth.jwt_secret or JOURNAL_AUTH_JWT_SECRET)", err)
	}
	return m, nil
}

func (a *app) resolver() *period.Resolver {
	return period.NewResolver(a.location)
}

func parseUserID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, fmt.Errorf("--user is required")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --user %q: %w", s, err)
	}
	return id, nil
}

// resolveRange maps CLI flags to a period range. Monthly ranges take --date as
// first day and --end as last day; without both, the current calendar month.
func resolveRange(r *period.Resolver, periodFlag, dateFlag, endFlag string) (period.Range, error) {
	t, err := period.ParseType(periodFlag)
	if err != nil {
		return period.Range{}, err
	}

	var date *time.Time
	if dateFlag != "" {
		d, err := period.ParseDate(dateFlag)
		if err != nil {
			return period.Range{}, fmt.Errorf("invalid --date: %w", err)
		}
		date = &d
	}

	if t != period.Monthly {
		if endFlag != "" {
			return period.Range{}, fmt.Errorf("--end is only valid for monthly periods")
		}
		return r.Resolve(t, date)
	}

	switch {
	case date == nil && endFlag == "":
		return period.Month(period.CalendarMonth(r.Today()))
	case date == nil || endFlag == "":
		return period.Range{}, fmt.Errorf("monthly periods need both --date and --end, or neither")
	}
	end, err := period.ParseDate(endFlag)
	if err != nil {
		return period.Range{}, fmt.Errorf("invalid --end: %w", err)
	}
	return period.Month(*date, end)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
