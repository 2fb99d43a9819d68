package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type Scheduler interface {
	Start(task func() error) error
	Stop() error
}

// FixedRateScheduler runs a task every interval. Runs never overlap.
type FixedRateScheduler struct {
	interval time.Duration
	log      logrus.FieldLogger
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewFixedRateScheduler(interval time.Duration, log logrus.FieldLogger) *FixedRateScheduler {
	return &FixedRateScheduler{
		interval: interval,
		log:      log,
		done:     make(chan struct{}),
	}
}

func (s *FixedRateScheduler) Start(task func() error) error {
	if s.interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", s.interval)
	}
	s.ticker = time.NewTicker(s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.ticker.C:
				if err := task(); err != nil {
					s.log.WithError(err).Error("Scheduled task execution failed")
				}
			case <-s.done:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker and waits for a running task to return.
func (s *FixedRateScheduler) Stop() error {
	s.stopOnce.Do(func() {
		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.done)
	})
	s.wg.Wait()
	return nil
}

// CronScheduler runs a task on a six-field (seconds first) cron spec.
type CronScheduler struct {
	spec  string
	log   logrus.FieldLogger
	cron  *cron.Cron
	entry cron.EntryID
}

func NewCronScheduler(spec string, loc *time.Location, log logrus.FieldLogger) (*CronScheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &CronScheduler{spec: spec, log: log, cron: c}, nil
}

func (s *CronScheduler) Start(task func() error) error {
	entryID, err := s.cron.AddFunc(s.spec, func() {
		if err := task(); err != nil {
			s.log.WithError(err).WithField("cron", s.spec).Error("Scheduled task execution failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec: %w", err)
	}

	s.entry = entryID
	s.cron.Start()
	return nil
}

// Next reports the next activation time, zero before Start.
func (s *CronScheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Stop halts the cron and waits for running jobs to finish.
func (s *CronScheduler) Stop() error {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	return nil
}

// NewScheduler picks a cron scheduler when cronSpec is set, a fixed-rate one otherwise.
func NewScheduler(interval string, cronSpec string, loc *time.Location, log logrus.FieldLogger) (Scheduler, error) {
	if cronSpec != "" {
		return NewCronScheduler(cronSpec, loc, log)
	}

	if interval != "" {
		duration, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid interval: %w", err)
		}
		return NewFixedRateScheduler(duration, log), nil
	}

	return nil, fmt.Errorf("either interval or cron must be specified")
}
