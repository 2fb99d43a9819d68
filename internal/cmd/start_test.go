package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"journal-digest/internal/config"
	"journal-digest/internal/scheduler"
)

func schedulerApp(sc config.SchedulerConfig) *app {
	log, _ := test.NewNullLogger()
	cfg := &config.Config{Scheduler: sc}
	cfg.Summary.Locale = "en"
	return &app{cfg: cfg, log: log, location: time.UTC}
}

func TestStartSchedulers(t *testing.T) {
	tests := []struct {
		name      string
		sc        config.SchedulerConfig
		wantTypes []string
		wantErr   bool
	}{
		{
			name: "disabled",
			sc:   config.SchedulerConfig{DailyCron: "0 10 0 * * *", MaxParallel: 1},
		},
		{
			name:      "interval when cron is empty",
			sc:        config.SchedulerConfig{Enabled: true, DailyInterval: "1h", MaxParallel: 1},
			wantTypes: []string{"fixed"},
		},
		{
			name: "cron wins over interval",
			sc: config.SchedulerConfig{
				Enabled: true, DailyCron: "0 10 0 * * *", DailyInterval: "1h",
				WeeklyInterval: "168h", MaxParallel: 1,
			},
			wantTypes: []string{"cron", "fixed"},
		},
		{
			name:    "bad interval",
			sc:      config.SchedulerConfig{Enabled: true, MonthlyInterval: "monthly", MaxParallel: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			started, err := startSchedulers(context.Background(), schedulerApp(tt.sc), nil)
			defer stopAll(started)
			if tt.wantErr {
				if err == nil {
					t.Fatal("startSchedulers() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("startSchedulers() error = %v", err)
			}
			if len(started) != len(tt.wantTypes) {
				t.Fatalf("started %d schedulers, want %d", len(started), len(tt.wantTypes))
			}
			for i, s := range started {
				var got string
				switch s.(type) {
				case *scheduler.CronScheduler:
					got = "cron"
				case *scheduler.FixedRateScheduler:
					got = "fixed"
				}
				if got != tt.wantTypes[i] {
					t.Errorf("scheduler %d is %s, want %s", i, got, tt.wantTypes[i])
				}
			}
		})
	}
}
