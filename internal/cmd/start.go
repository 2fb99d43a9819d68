package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"journal-digest/internal/period"
	"journal-digest/internal/scheduler"
	"journal-digest/internal/summary"
	"journal-digest/internal/transport/rest"
)

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the HTTP API and, when enabled, the summary scheduler",
		RunE:    runServe,
	}
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	svc, err := a.summaryService()
	if err != nil {
		return err
	}
	tokens, err := a.jwtManager()
	if err != nil {
		return err
	}

	router := rest.NewRouter(rest.RouterDeps{
		Summaries: rest.NewSummaryHandler(svc, a.location, a.log),
		Health:    rest.NewHealthHandler(a.store, Version),
		Tokens:    tokens,
		Log:       a.log,
	})

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
	}

	scheds, err := startSchedulers(ctx, a, svc)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.log.Info("Stopping...")
	case serveErr = <-errCh:
	}

	for _, s := range scheds {
		if err := s.Stop(); err != nil {
			a.log.WithError(err).Warn("Failed to stop scheduler")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	if serveErr != nil {
		return fmt.Errorf("http server: %w", serveErr)
	}

	a.log.Info("Stopped.")
	return nil
}

// startSchedulers registers one job per configured period, on its cron spec
// or, when the cron is empty, on its fixed interval. Jobs run with ctx, so a
// shutdown cancels in-flight generations.
func startSchedulers(ctx context.Context, a *app, svc *summary.Service) ([]scheduler.Scheduler, error) {
	sc := a.cfg.Scheduler
	if !sc.Enabled {
		return nil, nil
	}

	specs := []struct {
		period   period.Type
		cron     string
		interval string
	}{
		{period.Daily, sc.DailyCron, sc.DailyInterval},
		{period.Weekly, sc.WeeklyCron, sc.WeeklyInterval},
		{period.Monthly, sc.MonthlyCron, sc.MonthlyInterval},
	}

	var started []scheduler.Scheduler
	for _, s := range specs {
		if s.cron == "" && s.interval == "" {
			continue
		}
		sched, err := scheduler.NewScheduler(s.interval, s.cron, a.location, a.log)
		if err != nil {
			stopAll(started)
			return nil, fmt.Errorf("%s scheduler: %w", s.period, err)
		}

		job := &scheduler.PeriodJob{
			Period:      s.period,
			Resolver:    a.resolver(),
			Users:       a.store,
			Summaries:   svc,
			MaxParallel: sc.MaxParallel,
			Locale:      a.cfg.Summary.Locale,
			Log:         a.log.WithField("job", s.period),
		}
		if err := sched.Start(func() error {
			_, err := job.Run(ctx)
			return err
		}); err != nil {
			stopAll(started)
			return nil, fmt.Errorf("%s scheduler: %w", s.period, err)
		}

		fields := logrus.Fields{"period": s.period}
		if cs, ok := sched.(*scheduler.CronScheduler); ok {
			fields["cron"] = s.cron
			fields["next"] = cs.Next()
		} else {
			fields["interval"] = s.interval
		}
		a.log.WithFields(fields).Info("Summary scheduler started")
		started = append(started, sched)
	}
	return started, nil
}

func stopAll(scheds []scheduler.Scheduler) {
	for _, s := range scheds {
		_ = s.Stop()
	}
}
