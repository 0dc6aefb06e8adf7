package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/circulateapp/circulate-server/internal/domain"
	domainerrors "github.com/circulateapp/circulate-server/internal/errors"
	"github.com/circulateapp/circulate-server/internal/id"
	"github.com/circulateapp/circulate-server/internal/store"
)

// ReservationService manages per-book pickup queues. All queue mutations for
// a book run inside a write transaction so position assignment and
// re-densification never race.
type ReservationService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewReservationService creates a reservation service.
func NewReservationService(st *store.Store, logger *slog.Logger) *ReservationService {
	return &ReservationService{
		store:  st,
		logger: logger,
	}
}

// PickupTooEarlyDetails carries the soonest date a copy is expected back.
type PickupTooEarlyDetails struct {
	EarliestAvailableDate time.Time `json:"earliest_available_date"`
}

// Reserve places a user at the tail of a book's pickup queue.
//
// The pickup date must fall within the configured window from today. When no
// copy is currently available, the pickup date must also be no earlier than
// the soonest due date among the book's active loans; the failure carries
// that date so the caller can retry with it.
func (s *ReservationService) Reserve(ctx context.Context, userID, bookID string, pickupDate time.Time, notes string) (*domain.Reservation, error) {
	var reservation *domain.Reservation
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		settings, err := tx.GetSettings(ctx)
		if err != nil {
			return fmt.Errorf("get settings: %w", err)
		}

		if _, err := tx.GetUser(ctx, userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domainerrors.NotFound("user not found")
			}
			return fmt.Errorf("get user: %w", err)
		}

		book, err := tx.GetBook(ctx, bookID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domainerrors.NotFound("book not found")
			}
			return fmt.Errorf("get book: %w", err)
		}

		now := time.Now()
		today := domain.DateOnly(now)
		pickup := domain.DateOnly(pickupDate)
		windowEnd := today.AddDate(0, 0, settings.ReservationPickupWindowDays)
		if pickup.Before(today) || pickup.After(windowEnd) {
			return domainerrors.InvalidPickupDate(fmt.Sprintf("pickup date must fall within %d days from today", settings.ReservationPickupWindowDays))
		}

		if _, err := tx.GetActiveReservation(ctx, userID, bookID); err == nil {
			return domainerrors.AlreadyReserved("user already holds an active reservation for this book")
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("get active reservation: %w", err)
		}

		if _, err := tx.GetActiveLoan(ctx, userID, bookID); err == nil {
			return domainerrors.AlreadyBorrowed("user currently holds this book on loan")
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("get active loan: %w", err)
		}

		// With no copy on the shelf the reservation still succeeds, but not
		// for a pickup before any copy can plausibly come back.
		if book.AvailableCopies <= 0 {
			earliest, err := tx.EarliestDueDate(ctx, bookID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("earliest due date: %w", err)
			}
			if earliest != nil && pickup.Before(domain.DateOnly(earliest.DueDate)) {
				return domainerrors.PickupTooEarly("no copy is due back before the requested pickup date").
					WithDetails(PickupTooEarlyDetails{
						EarliestAvailableDate: domain.DateOnly(earliest.DueDate),
					})
			}
		}

		queueLength, err := tx.CountActiveReservations(ctx, bookID)
		if err != nil {
			return fmt.Errorf("count active reservations: %w", err)
		}

		reservationID, err := id.Generate("res")
		if err != nil {
			return fmt.Errorf("generate reservation ID: %w", err)
		}

		reservation = &domain.Reservation{
			Record: domain.Record{
				ID:        reservationID,
				CreatedAt: now,
				UpdatedAt: now,
			},
			UserID:          userID,
			BookID:          bookID,
			ReservationDate: now,
			PickupDate:      pickup,
			PickupDeadline:  pickup.AddDate(0, 0, settings.ReservationPickupWindowDays),
			QueuePosition:   queueLength + 1,
			Status:          domain.ReservationActive,
			Notes:           notes,
		}
		if err := tx.CreateReservation(ctx, reservation); err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("reservation created",
		"reservation_id", reservation.ID,
		"user_id", userID,
		"book_id", bookID,
		"queue_position", reservation.QueuePosition,
	)
	return reservation, nil
}

// Cancel withdraws an active reservation and shifts the tail of the queue up.
func (s *ReservationService) Cancel(ctx context.Context, reservationID string) error {
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		r, err := tx.GetReservation(ctx, reservationID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domainerrors.NotFound("reservation not found")
			}
			return fmt.Errorf("get reservation: %w", err)
		}
		if r.Status != domain.ReservationActive {
			return domainerrors.NotActive("reservation is not active")
		}
		if err := tx.CloseReservation(ctx, reservationID, domain.ReservationCancelled); err != nil {
			return fmt.Errorf("close reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("reservation cancelled", "reservation_id", reservationID)
	return nil
}

// Get returns a single reservation.
func (s *ReservationService) Get(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	r, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("reservation not found")
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return r, nil
}

// ListForUser returns a user's reservations, newest first.
func (s *ReservationService) ListForUser(ctx context.Context, userID string) ([]*domain.Reservation, error) {
	return s.store.ListReservationsForUser(ctx, userID)
}

// ListQueueForBook returns a book's active queue in position order.
func (s *ReservationService) ListQueueForBook(ctx context.Context, bookID string) ([]*domain.Reservation, error) {
	return s.store.ListActiveReservationsForBook(ctx, bookID)
}

// ExpireSweep transitions active reservations past their pickup deadline to
// expired. It runs unattended from a background job: individual failures are
// logged and skipped so one bad row never stalls the sweep.
func (s *ReservationService) ExpireSweep(ctx context.Context) (int, error) {
	stale, err := s.store.ListExpiredActive(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("list expired reservations: %w", err)
	}

	expired := 0
	for _, r := range stale {
		err := s.store.WithTx(ctx, func(tx *store.Tx) error {
			return tx.CloseReservation(ctx, r.ID, domain.ReservationExpired)
		})
		if err != nil {
			// Already closed by a concurrent cancel/fulfil is fine.
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			s.logger.Error("failed to expire reservation", "reservation_id", r.ID, "error", err)
			continue
		}
		expired++
	}

	if expired > 0 {
		s.logger.Info("reservation sweep expired entries", "count", expired)
	}
	return expired, nil
}
