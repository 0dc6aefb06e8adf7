package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/circulateapp/circulate-server/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// makeTestUser creates a domain.User with sensible defaults for testing.
func makeTestUser(id, email, barcode string) *domain.User {
	now := time.Now()
	return &domain.User{
		Record: domain.Record{
			ID:        id,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:        email,
		PasswordHash: "$argon2id$fakehashfortest",
		Role:         domain.RoleStudent,
		DisplayName:  "Test User",
		Barcode:      barcode,
		ValidityDate: now.AddDate(1, 0, 0),
	}
}

// makeTestBook creates a domain.Book with the given copy count.
func makeTestBook(id, title string, copies int) *domain.Book {
	now := time.Now()
	return &domain.Book{
		Record: domain.Record{
			ID:        id,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Title:          title,
		Author:         "Test Author",
		NumberOfCopies: copies,
	}
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	if err := s.sqlDB.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	// Verify tables exist.
	tables := []string{
		"users", "books", "circulation_records", "reservations",
		"holidays", "library_settings", "gate_events",
	}
	for _, table := range tables {
		var name string
		err := s.sqlDB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent).
	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	defer s2.Close()
}

func TestWithTxRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	wantErr := context.Canceled
	err := s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.CreateUser(ctx, makeTestUser("usr-tx", "tx@example.com", "TX001")); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected fn error back, got %v", err)
	}

	if _, err := s.GetUser(ctx, "usr-tx"); err != ErrNotFound {
		t.Errorf("expected rollback to discard insert, got %v", err)
	}
}

func TestWithTxCommit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.CreateUser(ctx, makeTestUser("usr-tx2", "tx2@example.com", "TX002"))
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	if _, err := s.GetUser(ctx, "usr-tx2"); err != nil {
		t.Errorf("expected committed user, got %v", err)
	}
}
