package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Time layout for created_at columns. Calendar dates use period.DateLayout.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// psql builds SQLite statements with ? placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// SQLiteStorage holds journal entries and generated summaries in one SQLite file.
type SQLiteStorage struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// Open opens (creating if needed) the database at dbPath and applies pending migrations.
func Open(ctx context.Context, dbPath string, log logrus.FieldLogger) (*SQLiteStorage, error) {
	s, err := OpenWithoutMigrations(dbPath, log)
	if err != nil {
		return nil, err
	}
	if _, err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

// OpenWithoutMigrations opens the database without touching its schema.
func OpenWithoutMigrations(dbPath string, log logrus.FieldLogger) (*SQLiteStorage, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer connection keeps the replace transaction free of SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	return &SQLiteStorage{db: db, log: log.WithField("component", "storage")}, nil
}

// MigrationResult describes one applied migration.
type MigrationResult struct {
	Version  int64
	Source   string
	Duration string
}

// Migrate applies all pending embedded migrations and returns what was applied.
func (s *SQLiteStorage) Migrate(ctx context.Context) ([]MigrationResult, error) {
	provider, err := s.migrationProvider()
	if err != nil {
		return nil, err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("goose up: %w", err)
	}

	applied := make([]MigrationResult, 0, len(results))
	for _, r := range results {
		applied = append(applied, MigrationResult{
			Version:  r.Source.Version,
			Source:   filepath.Base(r.Source.Path),
			Duration: r.Duration.String(),
		})
		s.log.WithField("version", r.Source.Version).Debug("Applied migration")
	}
	return applied, nil
}

// SchemaVersion returns the current goose schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int64, error) {
	provider, err := s.migrationProvider()
	if err != nil {
		return 0, err
	}
	v, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose version: %w", err)
	}
	return v, nil
}

func (s *SQLiteStorage) migrationProvider() (*goose.Provider, error) {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose new provider: %w", err)
	}
	return provider, nil
}

// Ping checks that the database is reachable.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
