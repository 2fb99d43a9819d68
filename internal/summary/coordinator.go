package summary

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"journal-digest/internal/domain"
	"journal-digest/internal/period"
	"journal-digest/internal/storage"
)

// State is a step of one regeneration. It is logged, never persisted.
type State string

const (
	StatePending   State = "pending"
	StateDeleting  State = "deleting"
	StateInserting State = "inserting"
	StateCommitted State = "committed"
	StateFailed    State = "failed"
)

type summaryWriter interface {
	ReplaceSummaryTx(ctx context.Context, fn func(tx storage.SummaryTx) error) error
}

// RegenerateInput is a validated summary ready to be stored.
type RegenerateInput struct {
	UserID uuid.UUID
	Range  period.Range
	Text   string
	Links  []string
}

// Coordinator is the only writer of summaries. It replaces the row of a
// (user, period, period_start) key inside one transaction; callers hold the
// key lock around it.
type Coordinator struct {
	store summaryWriter
	log   logrus.FieldLogger
	now   func() time.Time
	newID func() uuid.UUID
}

func NewCoordinator(store summaryWriter, log logrus.FieldLogger) *Coordinator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Coordinator{store: store, log: log, now: time.Now, newID: uuid.New}
}

// Regenerate deletes any existing summary for the key and inserts a new one.
// On failure nothing is changed.
func (c *Coordinator) Regenerate(ctx context.Context, in RegenerateInput) (*domain.Summary, error) {
	log := c.log.WithFields(logrus.Fields{
		"user_id": in.UserID,
		"period":  in.Range.Type,
		"start":   period.FormatDate(in.Range.Start),
	})
	state := StatePending
	transition := func(next State) {
		log.WithFields(logrus.Fields{"from": state, "to": next}).Debug("Regeneration state")
		state = next
	}

	links := in.Links
	if links == nil {
		links = []string{}
	}
	sum := &domain.Summary{
		ID:          c.newID(),
		UserID:      in.UserID,
		Period:      in.Range.Type,
		PeriodStart: in.Range.Start,
		PeriodEnd:   in.Range.End,
		Text:        in.Text,
		EntryLinks:  links,
		CreatedAt:   c.now(),
	}

	err := c.store.ReplaceSummaryTx(ctx, func(tx storage.SummaryTx) error {
		transition(StateDeleting)
		deleted, err := tx.DeleteSummary(ctx, in.UserID, in.Range.Type, in.Range.Start)
		if err != nil {
			return err
		}
		if deleted > 0 {
			log.WithField("deleted", deleted).Debug("Superseding previous summary")
		}

		transition(StateInserting)
		return tx.InsertSummary(ctx, sum)
	})
	if err != nil {
		transition(StateFailed)
		return nil, err
	}

	transition(StateCommitted)
	return sum, nil
}
