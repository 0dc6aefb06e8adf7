// Package store provides SQLite-backed persistence for the circulate server.
//
// All mutating circulation paths (issue, reserve, cancel, gate toggle) run
// inside a single write transaction via WithTx; SQLite's single-writer model
// gives the per-book and per-user serialization the admission logic requires.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds all query methods. It is embedded in both Store and Tx so the
// same methods work inside and outside a transaction.
type queries struct {
	db dbtx
}

// Store provides SQLite-backed persistence.
type Store struct {
	queries
	sqlDB  *sql.DB
	logger *slog.Logger
}

// Tx is a transactional view of the store. All queries methods called on a Tx
// run inside the same write transaction.
type Tx struct {
	queries
}

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs schema migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	// _txlock=immediate makes BeginTx take the write lock up front, so
	// concurrent admission transactions queue instead of failing at commit.
	db, err := sql.Open("sqlite", "file:"+path+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	s := &Store{
		queries: queries{db: db},
		sqlDB:   db,
		logger:  logger,
	}

	if err := s.ensureSettings(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure settings: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.sqlDB.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// WithTx runs fn inside a write transaction. The transaction is rolled back
// if fn returns an error or panics, committed otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&Tx{queries: queries{db: sqlTx}}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// timestampLayout is RFC3339 with fixed-width nanoseconds. Instants are
// stored in UTC; the fixed width keeps lexicographic ORDER BY chronological,
// which RFC3339Nano's trimmed trailing zeros would break.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime formats an instant for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTime parses a stored instant back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// formatDate stores a civil date as its date-only string, in the date's own
// location. Civil dates carry no instant: pushing them through UTC shifts
// the day for non-UTC zones.
func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// parseDate reads a civil date back as local midnight, the zone all due-date
// and fine arithmetic runs in.
func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, time.Local)
}

// parseNullableDate parses an optional civil-date string.
func parseNullableDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// nullDateString returns a sql.NullString from an optional civil date.
func nullDateString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(*t), Valid: true}
}

// boolToInt converts a bool to an int for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
