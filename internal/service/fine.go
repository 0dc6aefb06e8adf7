package service

import (
	"time"

	"github.com/circulateapp/circulate-server/internal/domain"
)

// FineService computes overdue fines against the holiday calendar and the
// Sunday-fine toggle. Computation is pure: it never writes state. A record's
// fine is finalized (written) exactly once, at return time.
type FineService struct {
	calendar *CalendarService
}

// NewFineService creates a fine service.
func NewFineService(calendar *CalendarService) *FineService {
	return &FineService{calendar: calendar}
}

// ComputeFine returns the fine owed on a loan as of the given date.
func (s *FineService) ComputeFine(rec *domain.CirculationRecord, asOf time.Time, settings *domain.LibrarySettings) int64 {
	return s.OverdueDays(rec, asOf, settings) * settings.FinePerDay
}

// OverdueDays returns the number of chargeable overdue days for a loan.
//
// Chargeable days are calendar days strictly after the due date up to and
// including asOf, excluding holidays, and excluding Sundays unless the
// apply-fines-on-Sunday setting is on. Once the loan is returned the count is
// frozen: days after the return date never count.
func (s *FineService) OverdueDays(rec *domain.CirculationRecord, asOf time.Time, settings *domain.LibrarySettings) int64 {
	end := domain.DateOnly(asOf)
	if rec.ReturnDate != nil {
		returned := domain.DateOnly(*rec.ReturnDate)
		if returned.Before(end) {
			end = returned
		}
	}

	due := domain.DateOnly(rec.DueDate)
	if !end.After(due) {
		return 0
	}

	days := int64(0)
	for d := due.AddDate(0, 0, 1); !d.After(end); d = d.AddDate(0, 0, 1) {
		if s.calendar.IsHoliday(d) {
			continue
		}
		if d.Weekday() == time.Sunday && !settings.ApplyFinesOnSunday {
			continue
		}
		days++
	}

	return days
}
