package store

import (
	"context"
	"testing"
	"time"

	"github.com/circulateapp/circulate-server/internal/domain"
)

func TestLastGateDirection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("usr-1", "a@example.com", "LIB001")); err != nil {
		t.Fatalf("create user: %v", err)
	}

	// No scans yet: first scan has no prior direction.
	if _, err := s.LastGateDirection(ctx, "usr-1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound before any scan, got %v", err)
	}

	base := time.Now()
	events := []*domain.GateEvent{
		{ID: "gte-1", UserID: "usr-1", Barcode: "LIB001", Direction: domain.GateIn, OccurredAt: base},
		{ID: "gte-2", UserID: "usr-1", Barcode: "LIB001", Direction: domain.GateOut, OccurredAt: base.Add(time.Hour)},
	}
	for _, e := range events {
		if err := s.InsertGateEvent(ctx, e); err != nil {
			t.Fatalf("insert event %s: %v", e.ID, err)
		}
	}

	dir, err := s.LastGateDirection(ctx, "usr-1")
	if err != nil {
		t.Fatalf("last direction: %v", err)
	}
	if dir != domain.GateOut {
		t.Errorf("expected out, got %s", dir)
	}
}

func TestLastGateDirectionSameTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("usr-1", "a@example.com", "LIB001")); err != nil {
		t.Fatalf("create user: %v", err)
	}

	// Two scans in the same instant: insertion order breaks the tie.
	at := time.Now()
	s.InsertGateEvent(ctx, &domain.GateEvent{ID: "gte-1", UserID: "usr-1", Barcode: "LIB001", Direction: domain.GateIn, OccurredAt: at})
	s.InsertGateEvent(ctx, &domain.GateEvent{ID: "gte-2", UserID: "usr-1", Barcode: "LIB001", Direction: domain.GateOut, OccurredAt: at})

	dir, err := s.LastGateDirection(ctx, "usr-1")
	if err != nil {
		t.Fatalf("last direction: %v", err)
	}
	if dir != domain.GateOut {
		t.Errorf("expected the later insert to win, got %s", dir)
	}
}

func TestListRecentGateEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("usr-1", "a@example.com", "LIB001")); err != nil {
		t.Fatalf("create user: %v", err)
	}

	base := time.Now()
	for i := 0; i < 5; i++ {
		dir := domain.GateIn
		if i%2 == 1 {
			dir = domain.GateOut
		}
		e := &domain.GateEvent{
			ID:         "gte-" + string(rune('a'+i)),
			UserID:     "usr-1",
			Barcode:    "LIB001",
			Direction:  dir,
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.InsertGateEvent(ctx, e); err != nil {
			t.Fatalf("insert event: %v", err)
		}
	}

	recent, err := s.ListRecentGateEvents(ctx, 3)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 events, got %d", len(recent))
	}
	// Newest first.
	if recent[0].ID != "gte-e" {
		t.Errorf("expected gte-e first, got %s", recent[0].ID)
	}
}

func TestLastGateDirectionSubSecondOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, makeTestUser("usr-1", "a@example.com", "LIB001")); err != nil {
		t.Fatalf("create user: %v", err)
	}

	// Milliseconds apart, and chosen so that trimming trailing fractional
	// zeros would make the earlier timestamp sort lexicographically after
	// the later one (".12" vs ".123").
	base := time.Date(2026, 3, 6, 10, 0, 0, 120_000_000, time.UTC)
	events := []*domain.GateEvent{
		{ID: "gte-1", UserID: "usr-1", Barcode: "LIB001", Direction: domain.GateIn, OccurredAt: base},
		{ID: "gte-2", UserID: "usr-1", Barcode: "LIB001", Direction: domain.GateOut, OccurredAt: base.Add(3 * time.Millisecond)},
	}
	for _, e := range events {
		if err := s.InsertGateEvent(ctx, e); err != nil {
			t.Fatalf("insert event %s: %v", e.ID, err)
		}
	}

	dir, err := s.LastGateDirection(ctx, "usr-1")
	if err != nil {
		t.Fatalf("last direction: %v", err)
	}
	if dir != domain.GateOut {
		t.Errorf("expected out from the later event, got %s", dir)
	}

	recent, err := s.ListRecentGateEvents(ctx, 10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "gte-2" {
		t.Errorf("expected gte-2 newest, got %+v", recent[0])
	}
}
