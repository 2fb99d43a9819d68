package summary

import (
	"context"
	"time"

	"github.com/google/uuid"

	"journal-digest/internal/domain"
	"journal-digest/internal/period"
)

type entryReader interface {
	ListEntries(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]domain.Entry, error)
}

// Aggregator loads the entries of one period, oldest first.
type Aggregator struct {
	entries entryReader
}

func NewAggregator(entries entryReader) *Aggregator {
	return &Aggregator{entries: entries}
}

// Fetch returns the user's entries inside r. An empty period is a NoEntriesError.
func (a *Aggregator) Fetch(ctx context.Context, userID uuid.UUID, r period.Range) ([]domain.Entry, error) {
	entries, err := a.entries.ListEntries(ctx, userID, r.Start, r.End)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, &domain.NoEntriesError{Period: string(r.Type), Start: period.FormatDate(r.Start)}
	}
	return entries, nil
}
