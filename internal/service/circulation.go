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

// CirculationService is the admission point for issuing, renewing and
// returning books. Every operation validates and commits inside a single
// write transaction so concurrent requests for the same book or user never
// observe partial state.
type CirculationService struct {
	store    *store.Store
	calendar *CalendarService
	fines    *FineService
	logger   *slog.Logger
}

// NewCirculationService creates a circulation service.
func NewCirculationService(st *store.Store, calendar *CalendarService, fines *FineService, logger *slog.Logger) *CirculationService {
	return &CirculationService{
		store:    st,
		calendar: calendar,
		fines:    fines,
		logger:   logger,
	}
}

// IssueRequest carries the parameters for issuing a book.
type IssueRequest struct {
	UserID string
	BookID string

	// DueDate, when set, overrides the computed due date. Only privileged
	// actors may set it, and it must not precede the issue date.
	DueDate *time.Time

	// OverrideReservation issues the book despite another user holding the
	// head reservation. The queued reservation stays active; reconciling it
	// is a separate administrative action.
	OverrideReservation bool
}

// ReservationConflictDetails names the reservation blocking an issue.
type ReservationConflictDetails struct {
	ReservationID string    `json:"reservation_id"`
	HolderID      string    `json:"holder_id"`
	HolderName    string    `json:"holder_name"`
	QueuePosition int       `json:"queue_position"`
	PickupDate    time.Time `json:"pickup_date"`
}

// Issue runs the admission sequence for a single issue attempt.
//
// Validation order: account expiry, outstanding fine, borrowing cap,
// reservation priority, copy availability. Every failure is raised before
// any write, inside the same transaction that commits the loan.
func (s *CirculationService) Issue(ctx context.Context, actor *domain.User, req IssueRequest) (*domain.CirculationRecord, error) {
	if req.DueDate != nil && !actor.IsPrivileged() {
		return nil, domainerrors.Forbidden("only librarians may set an explicit due date")
	}
	if req.OverrideReservation && !actor.IsPrivileged() {
		return nil, domainerrors.Forbidden("only librarians may override a reservation conflict")
	}

	var rec *domain.CirculationRecord
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		settings, err := tx.GetSettings(ctx)
		if err != nil {
			return fmt.Errorf("get settings: %w", err)
		}

		user, err := tx.GetUser(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domainerrors.NotFound("user not found")
			}
			return fmt.Errorf("get user: %w", err)
		}

		now := time.Now()
		if user.IsExpired(now) {
			return domainerrors.AccountExpired("account validity date has passed")
		}
		if user.OutstandingFine > 0 {
			return domainerrors.OutstandingFine("outstanding fine must be cleared before borrowing").
				WithDetails(map[string]int64{"outstanding_fine": user.OutstandingFine})
		}

		activeLoans, err := tx.CountActiveLoansForUser(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("count active loans: %w", err)
		}
		if activeLoans >= user.BorrowLimit(settings) {
			return domainerrors.LimitExceeded(fmt.Sprintf("borrowing limit of %d reached", user.BorrowLimit(settings)))
		}

		book, err := tx.GetBook(ctx, req.BookID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domainerrors.NotFound("book not found")
			}
			return fmt.Errorf("get book: %w", err)
		}

		// Reservation priority: the head of the queue wins over a walk-in
		// unless the walk-in user owns that reservation or the actor
		// overrides.
		head, err := tx.GetHeadReservation(ctx, book.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("get head reservation: %w", err)
		}
		if head != nil && head.UserID != user.ID && !req.OverrideReservation {
			holder, err := tx.GetUser(ctx, head.UserID)
			if err != nil {
				return fmt.Errorf("get reservation holder: %w", err)
			}
			return domainerrors.ReservationConflict("book is reserved by another user").
				WithDetails(ReservationConflictDetails{
					ReservationID: head.ID,
					HolderID:      holder.ID,
					HolderName:    holder.DisplayName,
					QueuePosition: head.QueuePosition,
					PickupDate:    head.PickupDate,
				})
		}

		if book.AvailableCopies <= 0 && !req.OverrideReservation {
			return domainerrors.NoCopyAvailable("no copies available")
		}

		dueDate, err := s.resolveDueDate(now, req.DueDate, settings)
		if err != nil {
			return err
		}

		recordID, err := id.Generate("cir")
		if err != nil {
			return fmt.Errorf("generate record ID: %w", err)
		}

		rec = &domain.CirculationRecord{
			Record: domain.Record{
				ID:        recordID,
				CreatedAt: now,
				UpdatedAt: now,
			},
			UserID:    user.ID,
			BookID:    book.ID,
			IssueDate: now,
			DueDate:   dueDate,
			IssuedBy:  actor.ID,
		}
		if err := tx.CreateCirculation(ctx, rec); err != nil {
			return fmt.Errorf("create circulation record: %w", err)
		}

		// The user collecting their own head reservation fulfils it.
		if head != nil && head.UserID == user.ID {
			if err := tx.CloseReservation(ctx, head.ID, domain.ReservationFulfilled); err != nil {
				return fmt.Errorf("fulfil reservation: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book issued",
		"record_id", rec.ID,
		"user_id", rec.UserID,
		"book_id", rec.BookID,
		"due_date", rec.DueDate,
		"issued_by", rec.IssuedBy,
		"override", req.OverrideReservation,
	)
	return rec, nil
}

// resolveDueDate picks the explicit due date when supplied, otherwise
// issue date plus the standard loan period, rolled forward past holidays.
func (s *CirculationService) resolveDueDate(issueDate time.Time, explicit *time.Time, settings *domain.LibrarySettings) (time.Time, error) {
	if explicit != nil {
		due := domain.DateOnly(*explicit)
		if due.Before(domain.DateOnly(issueDate)) {
			return time.Time{}, domainerrors.Validation("due date cannot precede the issue date")
		}
		return due, nil
	}
	due := domain.DateOnly(issueDate).AddDate(0, 0, settings.StandardLoanPeriodDays)
	return s.calendar.NextBusinessDay(due), nil
}

// RenewResult reports the outcome of a renewal.
type RenewResult struct {
	Record       *domain.CirculationRecord
	DueDate      time.Time
	RenewalCount int
}

// Renew extends a loan by one standard loan period.
//
// An overdue loan cannot be renewed, nor can one at the renewal cap. Only an
// admin may replace the computed due date with an explicit one.
func (s *CirculationService) Renew(ctx context.Context, actor *domain.User, recordID string, explicitDue *time.Time) (*RenewResult, error) {
	if explicitDue != nil && !actor.IsAdmin() {
		return nil, domainerrors.Forbidden("only admins may set an explicit renewal due date")
	}

	var result *RenewResult
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		settings, err := tx.GetSettings(ctx)
		if err != nil {
			return fmt.Errorf("get settings: %w", err)
		}

		rec, err := tx.GetCirculation(ctx, recordID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domainerrors.NotFound("circulation record not found")
			}
			return fmt.Errorf("get circulation record: %w", err)
		}
		if !rec.IsActive() {
			return domainerrors.AlreadyReturned("loan has already been returned")
		}

		now := time.Now()
		if rec.IsOverdue(now) {
			return domainerrors.Overdue("overdue loans cannot be renewed")
		}
		if rec.RenewalCount >= settings.RenewalCap {
			return domainerrors.RenewalLimit(fmt.Sprintf("renewal limit of %d reached", settings.RenewalCap))
		}

		dueDate, err := s.resolveDueDate(now, explicitDue, settings)
		if err != nil {
			return err
		}

		rec.DueDate = dueDate
		rec.RenewalCount++
		rec.Touch()
		if err := tx.UpdateCirculation(ctx, rec); err != nil {
			return fmt.Errorf("update circulation record: %w", err)
		}

		result = &RenewResult{
			Record:       rec,
			DueDate:      rec.DueDate,
			RenewalCount: rec.RenewalCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("loan renewed",
		"record_id", recordID,
		"due_date", result.DueDate,
		"renewal_count", result.RenewalCount,
	)
	return result, nil
}

// ReturnResult reports the outcome of a return.
type ReturnResult struct {
	Record     *domain.CirculationRecord
	FineAmount int64
}

// Return finalizes a loan. The fine is computed once against the return
// date and frozen on the record; any amount owed is added to the user's
// outstanding balance.
func (s *CirculationService) Return(ctx context.Context, recordID string, returnDate time.Time) (*ReturnResult, error) {
	var result *ReturnResult
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		settings, err := tx.GetSettings(ctx)
		if err != nil {
			return fmt.Errorf("get settings: %w", err)
		}

		rec, err := tx.GetCirculation(ctx, recordID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domainerrors.NotFound("circulation record not found")
			}
			return fmt.Errorf("get circulation record: %w", err)
		}
		if !rec.IsActive() {
			return domainerrors.AlreadyReturned("loan has already been returned")
		}

		returned := domain.DateOnly(returnDate)
		rec.ReturnDate = &returned
		rec.FineAmount = s.fines.ComputeFine(rec, returned, settings)
		rec.Touch()
		if err := tx.UpdateCirculation(ctx, rec); err != nil {
			return fmt.Errorf("update circulation record: %w", err)
		}

		if rec.FineAmount > 0 {
			if err := tx.AddUserFine(ctx, rec.UserID, rec.FineAmount); err != nil {
				return fmt.Errorf("add user fine: %w", err)
			}
		}

		result = &ReturnResult{
			Record:     rec,
			FineAmount: rec.FineAmount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("book returned",
		"record_id", recordID,
		"fine_amount", result.FineAmount,
	)
	return result, nil
}

// GetRecord returns a single circulation record.
func (s *CirculationService) GetRecord(ctx context.Context, recordID string) (*domain.CirculationRecord, error) {
	rec, err := s.store.GetCirculation(ctx, recordID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("circulation record not found")
		}
		return nil, fmt.Errorf("get circulation record: %w", err)
	}
	return rec, nil
}

// ListLoansForUser returns a user's loans, optionally only active ones.
func (s *CirculationService) ListLoansForUser(ctx context.Context, userID string, activeOnly bool) ([]*domain.CirculationRecord, error) {
	return s.store.ListLoansForUser(ctx, userID, activeOnly)
}

// ListActiveLoansForBook returns the active loans for a book.
func (s *CirculationService) ListActiveLoansForBook(ctx context.Context, bookID string) ([]*domain.CirculationRecord, error) {
	return s.store.ListActiveLoansForBook(ctx, bookID)
}

// ListOverdue returns active loans past their due date.
func (s *CirculationService) ListOverdue(ctx context.Context) ([]*domain.CirculationRecord, error) {
	return s.store.ListOverdueActive(ctx, time.Now())
}

// FineAssessment pairs an overdue loan with its accrued fine.
type FineAssessment struct {
	Record     *domain.CirculationRecord
	FineAmount int64
}

// RecomputeFines recalculates the accrued fine on every overdue active loan
// under the current policy settings. Policy changes apply prospectively, so
// this is how an admin sees the effect of a fine-rate or Sunday-toggle change
// on loans still out. Nothing is written: fines are only finalized at return.
func (s *CirculationService) RecomputeFines(ctx context.Context) ([]FineAssessment, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	now := time.Now()
	recs, err := s.store.ListOverdueActive(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list overdue loans: %w", err)
	}

	assessments := make([]FineAssessment, 0, len(recs))
	for _, rec := range recs {
		assessments = append(assessments, FineAssessment{
			Record:     rec,
			FineAmount: s.fines.ComputeFine(rec, now, settings),
		})
	}
	return assessments, nil
}
