package store

import (
	"context"
	"database/sql"

	"github.com/circulateapp/circulate-server/internal/domain"
)

const holidayColumns = `id, created_at, updated_at, name, date, is_recurring`

// scanHoliday scans a row into a domain.Holiday.
func scanHoliday(scanner interface{ Scan(dest ...any) error }) (*domain.Holiday, error) {
	var h domain.Holiday
	var createdAt, updatedAt, date string
	var recurring int

	err := scanner.Scan(&h.ID, &createdAt, &updatedAt, &h.Name, &date, &recurring)
	if err != nil {
		return nil, err
	}

	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if h.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if h.Date, err = parseDate(date); err != nil {
		return nil, err
	}
	h.IsRecurring = recurring != 0
	return &h, nil
}

// CreateHoliday inserts a new holiday.
func (q *queries) CreateHoliday(ctx context.Context, h *domain.Holiday) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO holidays (id, created_at, updated_at, name, date, is_recurring)
		VALUES (?, ?, ?, ?, ?, ?)`,
		h.ID,
		formatTime(h.CreatedAt),
		formatTime(h.UpdatedAt),
		h.Name,
		formatDate(h.Date),
		boolToInt(h.IsRecurring),
	)
	return err
}

// GetHoliday retrieves a holiday by ID.
func (q *queries) GetHoliday(ctx context.Context, id string) (*domain.Holiday, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+holidayColumns+` FROM holidays WHERE id = ?`, id)

	h, err := scanHoliday(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// ListHolidays returns all holidays ordered by date.
func (q *queries) ListHolidays(ctx context.Context) ([]*domain.Holiday, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+holidayColumns+` FROM holidays ORDER BY date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hs []*domain.Holiday
	for rows.Next() {
		h, err := scanHoliday(rows)
		if err != nil {
			return nil, err
		}
		hs = append(hs, h)
	}
	return hs, rows.Err()
}

// DeleteHoliday removes a holiday.
func (q *queries) DeleteHoliday(ctx context.Context, id string) error {
	result, err := q.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
