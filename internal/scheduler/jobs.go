package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"journal-digest/internal/domain"
	"journal-digest/internal/period"
	"journal-digest/internal/summary"
)

type userLister interface {
	ListUsersWithEntries(ctx context.Context, start, end time.Time) ([]uuid.UUID, error)
}

type generator interface {
	Generate(ctx context.Context, in summary.GenerateInput) (*summary.Result, error)
}

// PeriodJob generates the summary of the period that just ended for every
// user who wrote entries in it.
type PeriodJob struct {
	Period      period.Type
	Resolver    *period.Resolver
	Users       userLister
	Summaries   generator
	MaxParallel int
	Locale      string
	Log         logrus.FieldLogger
}

// Report counts the outcome of one PeriodJob run.
type Report struct {
	Range     period.Range
	Users     int
	Generated int64
	Skipped   int64
	Failed    int64
}

// Run summarizes the previous period for each user. A failure for one user is
// logged and counted and does not stop the others. The returned error is only
// set when the user list cannot be read or ctx is done.
func (j *PeriodJob) Run(ctx context.Context) (Report, error) {
	rng, err := j.Resolver.Previous(j.Period)
	if err != nil {
		return Report{}, err
	}
	log := j.Log.WithFields(logrus.Fields{"period": rng.Type, "period_start": period.FormatDate(rng.Start), "days": rng.Days()})

	users, err := j.Users.ListUsersWithEntries(ctx, rng.Start, rng.End)
	if err != nil {
		return Report{Range: rng}, fmt.Errorf("list users: %w", err)
	}

	report := Report{Range: rng, Users: len(users)}
	if len(users) == 0 {
		log.Debug("No users with entries, nothing to summarize")
		return report, nil
	}

	var generated, skipped, failed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(max(j.MaxParallel, 1))
	for _, userID := range users {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			_, err := j.Summaries.Generate(ctx, summary.GenerateInput{
				UserID: userID,
				Range:  rng,
				Locale: j.Locale,
			})
			switch {
			case err == nil:
				generated.Add(1)
			case errors.Is(err, domain.ErrNoEntries):
				skipped.Add(1)
			default:
				failed.Add(1)
				log.WithError(err).WithField("user_id", userID).Error("Scheduled summary generation failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Generated = generated.Load()
	report.Skipped = skipped.Load()
	report.Failed = failed.Load()

	log.WithFields(logrus.Fields{
		"users":     report.Users,
		"generated": report.Generated,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
	}).Info("Scheduled summary run finished")

	return report, ctx.Err()
}
