package domain

import "time"

// LibrarySettings contains library-wide circulation policy.
// Stored as a single row; Version increments on every update so an admission
// decision can record which policy version it was made under.
type LibrarySettings struct {
	Version                     int       `json:"version"`
	ApplyFinesOnSunday          bool      `json:"apply_fines_on_sunday"`
	MaxBooksPerStudent          int       `json:"max_books_per_student"`
	MaxBooksPerStaff            int       `json:"max_books_per_staff"`
	StandardLoanPeriodDays      int       `json:"standard_loan_period_days"`
	RenewalCap                  int       `json:"renewal_cap"`
	FinePerDay                  int64     `json:"fine_per_day"` // Smallest currency unit
	ReservationPickupWindowDays int       `json:"reservation_pickup_window_days"`
	UpdatedAt                   time.Time `json:"updated_at"`
}

// DefaultLibrarySettings returns settings with sensible defaults.
func DefaultLibrarySettings() *LibrarySettings {
	return &LibrarySettings{
		Version:                     1,
		ApplyFinesOnSunday:          false,
		MaxBooksPerStudent:          3,
		MaxBooksPerStaff:            5,
		StandardLoanPeriodDays:      14,
		RenewalCap:                  3,
		FinePerDay:                  500,
		ReservationPickupWindowDays: 30,
		UpdatedAt:                   time.Now(),
	}
}
