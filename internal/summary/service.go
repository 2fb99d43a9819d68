package summary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"journal-digest/internal/domain"
	"journal-digest/internal/keylock"
	"journal-digest/internal/period"
)

// Summarizer turns the entries of a period into attributed sentences.
type Summarizer interface {
	Summarize(ctx context.Context, req domain.SummaryRequest) ([]domain.Sentence, error)
}

type summaryStore interface {
	summaryWriter
	GetSummary(ctx context.Context, userID uuid.UUID, p period.Type, start time.Time) (*domain.Summary, error)
	ListSummaries(ctx context.Context, userID uuid.UUID, filter domain.SummaryFilter) ([]domain.Summary, error)
}

// LockScope selects which generations exclude each other.
type LockScope string

const (
	// LockPerPeriod serializes generations of the same (user, period, period_start).
	LockPerPeriod LockScope = "period"
	// LockPerUser serializes every generation of a user, across period types.
	LockPerUser LockScope = "user"
)

// ParseLockScope validates a configured lock scope. Empty means LockPerPeriod.
func ParseLockScope(s string) (LockScope, error) {
	switch LockScope(s) {
	case "", LockPerPeriod:
		return LockPerPeriod, nil
	case LockPerUser:
		return LockPerUser, nil
	default:
		return "", fmt.Errorf("invalid lock scope %q (must be period or user)", s)
	}
}

type Options struct {
	LockScope    LockScope
	ModelTimeout time.Duration // zero means no deadline beyond the caller's
}

// GenerateInput is one generation request.
type GenerateInput struct {
	UserID      uuid.UUID
	Range       period.Range
	Locale      string
	ContextHint string
}

// Result is a stored summary plus what the model said about it.
type Result struct {
	Summary    *domain.Summary                   `json:"summary"`
	Sentences  []domain.Sentence                 `json:"sentences"`
	Violations []*domain.InvalidModelOutputError `json:"violations,omitempty"`
}

// Service runs the generation pipeline: aggregate, summarize, validate,
// link and replace.
type Service struct {
	aggregator  *Aggregator
	summarizer  Summarizer
	coordinator *Coordinator
	store       summaryStore
	locks       *keylock.Arena
	opts        Options
	log         logrus.FieldLogger
}

func NewService(entries entryReader, summarizer Summarizer, store summaryStore, locks *keylock.Arena, opts Options, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if locks == nil {
		locks = keylock.NewArena()
	}
	if opts.LockScope == "" {
		opts.LockScope = LockPerPeriod
	}
	log = log.WithField("component", "summary")
	return &Service{
		aggregator:  NewAggregator(entries),
		summarizer:  summarizer,
		coordinator: NewCoordinator(store, log),
		store:       store,
		locks:       locks,
		opts:        opts,
		log:         log,
	}
}

func (s *Service) lockKey(in GenerateInput) string {
	if s.opts.LockScope == LockPerUser {
		return in.UserID.String()
	}
	return in.UserID.String() + "/" + in.Range.Key()
}

// Generate produces and stores the summary of one period. The key lock is held
// from reading entries until the replace commits. Any failure before the
// write, including cancellation, leaves stored summaries untouched.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*Result, error) {
	log := s.log.WithFields(logrus.Fields{
		"user_id": in.UserID,
		"period":  in.Range.Type,
		"start":   period.FormatDate(in.Range.Start),
	})

	unlock, err := s.locks.Lock(ctx, s.lockKey(in))
	if err != nil {
		return nil, fmt.Errorf("waiting for summary lock: %w", err)
	}
	defer unlock()

	entries, err := s.aggregator.Fetch(ctx, in.UserID, in.Range)
	if err != nil {
		return nil, err
	}

	sentences, err := s.summarize(ctx, domain.SummaryRequest{
		Range:       in.Range,
		Entries:     entries,
		Locale:      in.Locale,
		ContextHint: in.ContextHint,
	})
	if err != nil {
		log.WithError(err).Warn("Summary generation failed")
		return nil, err
	}

	sentences, violations := ValidateSentences(sentences, entries)
	for _, v := range violations {
		log.WithFields(logrus.Fields{
			"sentence": v.SentenceIndex,
			"entry_id": v.EntryID,
		}).Warn("Model cited an entry it was not given; reference dropped")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, links := Link(sentences)
	sum, err := s.coordinator.Regenerate(ctx, RegenerateInput{
		UserID: in.UserID,
		Range:  in.Range,
		Text:   text,
		Links:  links,
	})
	if err != nil {
		log.WithError(err).Error("Failed to store summary")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"entries":   len(entries),
		"sentences": len(sentences),
		"links":     len(links),
	}).Info("Summary generated")

	return &Result{Summary: sum, Sentences: sentences, Violations: violations}, nil
}

func (s *Service) summarize(ctx context.Context, req domain.SummaryRequest) ([]domain.Sentence, error) {
	mctx := ctx
	if s.opts.ModelTimeout > 0 {
		var cancel context.CancelFunc
		mctx, cancel = context.WithTimeout(ctx, s.opts.ModelTimeout)
		defer cancel()
	}

	sentences, err := s.summarizer.Summarize(mctx, req)
	if err != nil {
		var unavailable *domain.ModelUnavailableError
		if mctx.Err() != nil && !errors.As(err, &unavailable) {
			return nil, &domain.ModelUnavailableError{Err: mctx.Err()}
		}
		return nil, err
	}
	if len(sentences) == 0 {
		return nil, domain.NewMalformedOutputError(-1, "no sentences")
	}
	return sentences, nil
}

// Get returns the stored summary of one period.
func (s *Service) Get(ctx context.Context, userID uuid.UUID, r period.Range) (*domain.Summary, error) {
	return s.store.GetSummary(ctx, userID, r.Type, r.Start)
}

// List returns the user's summaries, most recent period_start first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, filter domain.SummaryFilter) ([]domain.Summary, error) {
	return s.store.ListSummaries(ctx, userID, filter)
}
