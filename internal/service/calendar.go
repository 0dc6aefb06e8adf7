// Package service contains the business logic between the HTTP layer and the store.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/circulateapp/circulate-server/internal/domain"
	domainerrors "github.com/circulateapp/circulate-server/internal/errors"
	"github.com/circulateapp/circulate-server/internal/id"
	"github.com/circulateapp/circulate-server/internal/store"
)

// CalendarService answers whether a date is a library-closed day and manages
// the holiday set. Holidays are loaded once and cached; CRUD operations
// refresh the cache so due-date and fine math always see the current set.
type CalendarService struct {
	store  *store.Store
	logger *slog.Logger

	mu       sync.RWMutex
	holidays []*domain.Holiday
}

// NewCalendarService creates a calendar service and loads the holiday set.
func NewCalendarService(ctx context.Context, st *store.Store, logger *slog.Logger) (*CalendarService, error) {
	s := &CalendarService{
		store:  st,
		logger: logger,
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	return s, nil
}

// Refresh reloads the holiday cache from the store.
func (s *CalendarService) Refresh(ctx context.Context) error {
	holidays, err := s.store.ListHolidays(ctx)
	if err != nil {
		return fmt.Errorf("list holidays: %w", err)
	}

	s.mu.Lock()
	s.holidays = holidays
	s.mu.Unlock()

	return nil
}

// IsHoliday reports whether the given date is a library-closed day.
// A date matches a non-recurring holiday on the exact date, or a recurring
// holiday on (month, day) regardless of year.
func (s *CalendarService) IsHoliday(date time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, h := range s.holidays {
		if h.Matches(date) {
			return true
		}
	}
	return false
}

// NextBusinessDay returns the first day at or after date that is not a
// holiday. Sundays are open days for circulation purposes; they only matter
// for fine accrual.
func (s *CalendarService) NextBusinessDay(date time.Time) time.Time {
	d := domain.DateOnly(date)
	for s.IsHoliday(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// ListHolidays returns all holidays.
func (s *CalendarService) ListHolidays(ctx context.Context) ([]*domain.Holiday, error) {
	return s.store.ListHolidays(ctx)
}

// AddHoliday creates a holiday and refreshes the cache.
func (s *CalendarService) AddHoliday(ctx context.Context, name string, date time.Time, recurring bool) (*domain.Holiday, error) {
	holidayID, err := id.Generate("hol")
	if err != nil {
		return nil, fmt.Errorf("generate holiday ID: %w", err)
	}

	now := time.Now()
	holiday := &domain.Holiday{
		Record: domain.Record{
			ID:        holidayID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        name,
		Date:        domain.DateOnly(date),
		IsRecurring: recurring,
	}

	if err := s.store.CreateHoliday(ctx, holiday); err != nil {
		return nil, fmt.Errorf("create holiday: %w", err)
	}

	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("holiday added", "holiday_id", holidayID, "name", name, "recurring", recurring)
	return holiday, nil
}

// DeleteHoliday removes a holiday and refreshes the cache.
func (s *CalendarService) DeleteHoliday(ctx context.Context, holidayID string) error {
	if err := s.store.DeleteHoliday(ctx, holidayID); err != nil {
		if err == store.ErrNotFound {
			return domainerrors.NotFound("holiday not found")
		}
		return fmt.Errorf("delete holiday: %w", err)
	}

	if err := s.Refresh(ctx); err != nil {
		return err
	}

	s.logger.Info("holiday deleted", "holiday_id", holidayID)
	return nil
}
