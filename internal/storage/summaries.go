package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"journal-digest/internal/domain"
	"journal-digest/internal/period"
)

var summaryColumns = []string{"id", "user_id", "period", "period_start", "period_end", "text", "entry_links", "created_at"}

// SummaryTx is the write side of one summary replacement.
// It is only valid inside the function passed to ReplaceSummaryTx.
type SummaryTx interface {
	DeleteSummary(ctx context.Context, userID uuid.UUID, p period.Type, start time.Time) (int64, error)
	InsertSummary(ctx context.Context, s *domain.Summary) error
}

type summaryTx struct {
	tx *sql.Tx
}

// ReplaceSummaryTx runs fn inside one transaction. The transaction commits only
// when fn returns nil; otherwise every write done through tx is rolled back.
func (s *SQLiteStorage) ReplaceSummaryTx(ctx context.Context, fn func(tx SummaryTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&summaryTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: "commit", Err: err}
	}
	return nil
}

func (t *summaryTx) DeleteSummary(ctx context.Context, userID uuid.UUID, p period.Type, start time.Time) (int64, error) {
	query, args, err := psql.Delete("summaries").
		Where(squirrel.Eq{
			"user_id":      userID.String(),
			"period":       string(p),
			"period_start": period.FormatDate(start),
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build summary delete: %w", err)
	}

	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, &domain.StorageError{Op: "delete summary", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &domain.StorageError{Op: "delete summary", Err: err}
	}
	return n, nil
}

func (t *summaryTx) InsertSummary(ctx context.Context, sum *domain.Summary) error {
	links := sum.EntryLinks
	if links == nil {
		links = []string{}
	}
	linksJSON, err := json.Marshal(links)
	if err != nil {
		return fmt.Errorf("failed to marshal entry links: %w", err)
	}

	query, args, err := psql.Insert("summaries").
		Columns(summaryColumns...).
		Values(
			sum.ID.String(),
			sum.UserID.String(),
			string(sum.Period),
			period.FormatDate(sum.PeriodStart),
			period.FormatDate(sum.PeriodEnd),
			sum.Text,
			string(linksJSON),
			formatTimestamp(sum.CreatedAt),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build summary insert: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return &domain.StorageError{Op: "insert summary", Err: err}
	}
	return nil
}

// GetSummary returns the summary for one key, or domain.ErrNotFound.
func (s *SQLiteStorage) GetSummary(ctx context.Context, userID uuid.UUID, p period.Type, start time.Time) (*domain.Summary, error) {
	query, args, err := psql.Select(summaryColumns...).
		From("summaries").
		Where(squirrel.Eq{
			"user_id":      userID.String(),
			"period":       string(p),
			"period_start": period.FormatDate(start),
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build summary query: %w", err)
	}

	sum, err := scanSummary(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("summary %s/%s: %w", p, period.FormatDate(start), domain.ErrNotFound)
	}
	if err != nil {
		return nil, &domain.StorageError{Op: "get summary", Err: err}
	}
	return sum, nil
}

// ListSummaries returns the user's summaries, most recent period_start first.
func (s *SQLiteStorage) ListSummaries(ctx context.Context, userID uuid.UUID, filter domain.SummaryFilter) ([]domain.Summary, error) {
	q := psql.Select(summaryColumns...).
		From("summaries").
		Where(squirrel.Eq{"user_id": userID.String()})
	if filter.Period != nil {
		q = q.Where(squirrel.Eq{"period": string(*filter.Period)})
	}
	if filter.PeriodStart != nil {
		q = q.Where(squirrel.Eq{"period_start": period.FormatDate(*filter.PeriodStart)})
	}

	query, args, err := q.OrderBy("period_start DESC", "period ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build summary query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "list summaries", Err: err}
	}
	defer rows.Close()

	summaries := []domain.Summary{}
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "list summaries", Err: err}
		}
		summaries = append(summaries, *sum)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list summaries", Err: err}
	}
	return summaries, nil
}

// CountSummaries returns how many rows exist for one key; at most one.
func (s *SQLiteStorage) CountSummaries(ctx context.Context, userID uuid.UUID, p period.Type, start time.Time) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("summaries").
		Where(squirrel.Eq{
			"user_id":      userID.String(),
			"period":       string(p),
			"period_start": period.FormatDate(start),
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, &domain.StorageError{Op: "count summaries", Err: err}
	}
	return n, nil
}

func scanSummary(row rowScanner) (*domain.Summary, error) {
	var (
		sum                                             domain.Summary
		id, userID, p, start, end, linksJSON, createdAt string
	)
	if err := row.Scan(&id, &userID, &p, &start, &end, &sum.Text, &linksJSON, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if sum.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("failed to parse summary id: %w", err)
	}
	if sum.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("failed to parse user id: %w", err)
	}
	if sum.Period, err = period.ParseType(p); err != nil {
		return nil, err
	}
	if sum.PeriodStart, err = period.ParseDate(start); err != nil {
		return nil, err
	}
	if sum.PeriodEnd, err = period.ParseDate(end); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(linksJSON), &sum.EntryLinks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry links: %w", err)
	}
	if sum.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	return &sum, nil
}
