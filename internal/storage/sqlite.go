package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"journal-digest/internal/domain"
	"journal-digest/internal/period"
)

var entryColumns = []string{"id", "user_id", "raw_text", "entry_date", "created_at"}

// SaveEntry stores a journal entry. Missing ID and CreatedAt are filled in.
func (s *SQLiteStorage) SaveEntry(ctx context.Context, e *domain.Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	query, args, err := psql.Insert("entries").
		Columns(entryColumns...).
		Values(e.ID, e.UserID.String(), e.RawText, period.FormatDate(e.Date), formatTimestamp(e.CreatedAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build entry insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return &domain.StorageError{Op: "save entry", Err: err}
	}
	return nil
}

// ListEntries returns the user's entries with start <= date < end,
// oldest first. Entries created at the same instant keep insertion order.
func (s *SQLiteStorage) ListEntries(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]domain.Entry, error) {
	query, args, err := psql.Select(entryColumns...).
		From("entries").
		Where(squirrel.Eq{"user_id": userID.String()}).
		Where(squirrel.GtOrEq{"entry_date": period.FormatDate(start)}).
		Where(squirrel.Lt{"entry_date": period.FormatDate(end)}).
		OrderBy("created_at ASC", "rowid ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build entry query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "list entries", Err: err}
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "list entries", Err: err}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list entries", Err: err}
	}
	return entries, nil
}

// DeleteEntry removes one entry of the user. Missing entries are not an error.
func (s *SQLiteStorage) DeleteEntry(ctx context.Context, userID uuid.UUID, id string) error {
	query, args, err := psql.Delete("entries").
		Where(squirrel.Eq{"id": id, "user_id": userID.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build entry delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return &domain.StorageError{Op: "delete entry", Err: err}
	}
	return nil
}

// ListUsersWithEntries returns the distinct users that wrote at least one entry in [start, end).
func (s *SQLiteStorage) ListUsersWithEntries(ctx context.Context, start, end time.Time) ([]uuid.UUID, error) {
	query, args, err := psql.Select("user_id").Distinct().
		From("entries").
		Where(squirrel.GtOrEq{"entry_date": period.FormatDate(start)}).
		Where(squirrel.Lt{"entry_date": period.FormatDate(end)}).
		OrderBy("user_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "list users", Err: err}
	}
	defer rows.Close()

	var users []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, &domain.StorageError{Op: "list users", Err: err}
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			s.log.WithField("user_id", raw).Warn("Skipping entries with malformed user id")
			continue
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

// CountEntries returns the number of entries the user has in [start, end).
func (s *SQLiteStorage) CountEntries(ctx context.Context, userID uuid.UUID, start, end time.Time) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From("entries").
		Where(squirrel.Eq{"user_id": userID.String()}).
		Where(squirrel.GtOrEq{"entry_date": period.FormatDate(start)}).
		Where(squirrel.Lt{"entry_date": period.FormatDate(end)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, &domain.StorageError{Op: "count entries", Err: err}
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (domain.Entry, error) {
	var (
		e                       domain.Entry
		userID, date, createdAt string
	)
	if err := row.Scan(&e.ID, &userID, &e.RawText, &date, &createdAt); err != nil {
		return e, fmt.Errorf("failed to scan entry: %w", err)
	}

	var err error
	if e.UserID, err = uuid.Parse(userID); err != nil {
		return e, fmt.Errorf("failed to parse user id: %w", err)
	}
	if e.Date, err = period.ParseDate(date); err != nil {
		return e, err
	}
	if e.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return e, err
	}
	return e, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	return t, nil
}
