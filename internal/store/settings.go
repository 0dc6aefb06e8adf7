package store

import (
	"context"
	"time"

	"github.com/circulateapp/circulate-server/internal/domain"
)

// ensureSettings seeds the single settings row with defaults if absent.
func (s *Store) ensureSettings(ctx context.Context) error {
	def := domain.DefaultLibrarySettings()
	_, err := s.sqlDB.ExecContext(ctx, `
		INSERT OR IGNORE INTO library_settings (
			id, version, apply_fines_on_sunday, max_books_per_student,
			max_books_per_staff, standard_loan_period_days, renewal_cap,
			fine_per_day, reservation_pickup_window_days, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		def.Version,
		boolToInt(def.ApplyFinesOnSunday),
		def.MaxBooksPerStudent,
		def.MaxBooksPerStaff,
		def.StandardLoanPeriodDays,
		def.RenewalCap,
		def.FinePerDay,
		def.ReservationPickupWindowDays,
		formatTime(def.UpdatedAt),
	)
	return err
}

// GetSettings returns the single library policy row.
func (q *queries) GetSettings(ctx context.Context) (*domain.LibrarySettings, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT version, apply_fines_on_sunday, max_books_per_student,
			max_books_per_staff, standard_loan_period_days, renewal_cap,
			fine_per_day, reservation_pickup_window_days, updated_at
		FROM library_settings WHERE id = 1`)

	var s domain.LibrarySettings
	var sunday int
	var updatedAt string
	err := row.Scan(
		&s.Version,
		&sunday,
		&s.MaxBooksPerStudent,
		&s.MaxBooksPerStaff,
		&s.StandardLoanPeriodDays,
		&s.RenewalCap,
		&s.FinePerDay,
		&s.ReservationPickupWindowDays,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.ApplyFinesOnSunday = sunday != 0
	if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSettings replaces the policy row and bumps its version.
// Readers always fetch settings at the start of a transaction, so a policy
// change never lands in the middle of an admission decision.
func (q *queries) UpdateSettings(ctx context.Context, s *domain.LibrarySettings) error {
	s.Version++
	s.UpdatedAt = time.Now()

	_, err := q.db.ExecContext(ctx, `
		UPDATE library_settings SET
			version = ?,
			apply_fines_on_sunday = ?,
			max_books_per_student = ?,
			max_books_per_staff = ?,
			standard_loan_period_days = ?,
			renewal_cap = ?,
			fine_per_day = ?,
			reservation_pickup_window_days = ?,
			updated_at = ?
		WHERE id = 1`,
		s.Version,
		boolToInt(s.ApplyFinesOnSunday),
		s.MaxBooksPerStudent,
		s.MaxBooksPerStaff,
		s.StandardLoanPeriodDays,
		s.RenewalCap,
		s.FinePerDay,
		s.ReservationPickupWindowDays,
		formatTime(s.UpdatedAt),
	)
	return err
}
