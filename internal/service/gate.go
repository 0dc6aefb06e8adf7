package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/circulateapp/circulate-server/internal/domain"
	domainerrors "github.com/circulateapp/circulate-server/internal/errors"
	"github.com/circulateapp/circulate-server/internal/store"
)

const (
	minBarcodeLength = 2
	maxBarcodeLength = 50
)

// GateService correlates raw gate scans to identities and flips the per-user
// in/out state. The read-toggle-write runs in one transaction so duplicate
// near-simultaneous scans can never record two consecutive "in" events.
// Debouncing rapid double-scans is the kiosk client's concern; every accepted
// call here is logged.
type GateService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewGateService creates a gate service.
func NewGateService(st *store.Store, logger *slog.Logger) *GateService {
	return &GateService{
		store:  st,
		logger: logger,
	}
}

// ScanResult is the outcome of an accepted gate scan.
type ScanResult struct {
	User      *domain.User         `json:"user"`
	Direction domain.GateDirection `json:"direction"`
	Timestamp time.Time            `json:"timestamp"`
}

// SanitizeBarcode strips non-alphanumeric characters from a raw scan.
func SanitizeBarcode(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HandleScan processes one raw barcode scan.
//
// The scan is sanitized and length-checked, resolved to a user, then toggled
// against the user's last recorded direction. A user with no prior scans is
// recorded as entering.
func (s *GateService) HandleScan(ctx context.Context, rawBarcode string) (*ScanResult, error) {
	barcode := SanitizeBarcode(rawBarcode)
	if len(barcode) < minBarcodeLength || len(barcode) > maxBarcodeLength {
		return nil, domainerrors.InvalidBarcode("barcode must be 2-50 alphanumeric characters")
	}

	var result *ScanResult
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		user, err := tx.GetUserByBarcode(ctx, barcode)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domainerrors.UnknownIdentity("no account matches this barcode")
			}
			return fmt.Errorf("get user by barcode: %w", err)
		}

		direction := domain.GateIn
		last, err := tx.LastGateDirection(ctx, user.ID)
		if err == nil {
			direction = last.Opposite()
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("last gate direction: %w", err)
		}

		now := time.Now()
		event := &domain.GateEvent{
			ID:         uuid.NewString(),
			UserID:     user.ID,
			Barcode:    barcode,
			Direction:  direction,
			OccurredAt: now,
		}
		if err := tx.InsertGateEvent(ctx, event); err != nil {
			return fmt.Errorf("insert gate event: %w", err)
		}

		result = &ScanResult{
			User:      user,
			Direction: direction,
			Timestamp: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("gate scan",
		"user_id", result.User.ID,
		"direction", result.Direction,
	)
	return result, nil
}

// RecentEvents returns the newest gate events, for the kiosk's live log.
func (s *GateService) RecentEvents(ctx context.Context, limit int) ([]*domain.GateEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListRecentGateEvents(ctx, limit)
}
