package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/circulateapp/circulate-server/internal/domain"
)

// reservationColumns is the ordered list of columns selected in reservation
// queries. Must match the scan order in scanReservation.
const reservationColumns = `id, created_at, updated_at, user_id, book_id,
	reservation_date, pickup_date, pickup_deadline, queue_position, status, notes`

// scanReservation scans a row into a domain.Reservation.
func scanReservation(scanner interface{ Scan(dest ...any) error }) (*domain.Reservation, error) {
	var r domain.Reservation
	var (
		createdAt       string
		updatedAt       string
		reservationDate string
		pickupDate      string
		pickupDeadline  string
		status          string
	)

	err := scanner.Scan(
		&r.ID,
		&createdAt,
		&updatedAt,
		&r.UserID,
		&r.BookID,
		&reservationDate,
		&pickupDate,
		&pickupDeadline,
		&r.QueuePosition,
		&status,
		&r.Notes,
	)
	if err != nil {
		return nil, err
	}

	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if r.ReservationDate, err = parseTime(reservationDate); err != nil {
		return nil, err
	}
	if r.PickupDate, err = parseDate(pickupDate); err != nil {
		return nil, err
	}
	if r.PickupDeadline, err = parseDate(pickupDeadline); err != nil {
		return nil, err
	}
	r.Status = domain.ReservationStatus(status)
	return &r, nil
}

// CreateReservation inserts a new reservation.
func (q *queries) CreateReservation(ctx context.Context, r *domain.Reservation) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO reservations (
			id, created_at, updated_at, user_id, book_id,
			reservation_date, pickup_date, pickup_deadline, queue_position, status, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
		r.UserID,
		r.BookID,
		formatTime(r.ReservationDate),
		formatDate(r.PickupDate),
		formatDate(r.PickupDeadline),
		r.QueuePosition,
		string(r.Status),
		r.Notes,
	)
	return err
}

// GetReservation retrieves a reservation by ID.
func (q *queries) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)

	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetActiveReservation returns the user's active reservation for the book, if any.
func (q *queries) GetActiveReservation(ctx context.Context, userID, bookID string) (*domain.Reservation, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE user_id = ? AND book_id = ? AND status = 'active'`,
		userID, bookID)

	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetHeadReservation returns the active reservation at queue position 1 for
// the book, or ErrNotFound if the queue is empty.
func (q *queries) GetHeadReservation(ctx context.Context, bookID string) (*domain.Reservation, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE book_id = ? AND status = 'active' AND queue_position = 1`,
		bookID)

	r, err := scanReservation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// CountActiveReservations returns the current queue length for a book.
func (q *queries) CountActiveReservations(ctx context.Context, bookID string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE book_id = ? AND status = 'active'`,
		bookID).Scan(&n)
	return n, err
}

// ListActiveReservationsForBook returns the book's queue in position order.
func (q *queries) ListActiveReservationsForBook(ctx context.Context, bookID string) ([]*domain.Reservation, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE book_id = ? AND status = 'active' ORDER BY queue_position ASC`,
		bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ListReservationsForUser returns a user's reservations, newest first.
func (q *queries) ListReservationsForUser(ctx context.Context, userID string) ([]*domain.Reservation, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE user_id = ? ORDER BY reservation_date DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// ListExpiredActive returns active reservations whose pickup deadline day
// has passed, for the expiration sweep. The deadline day itself is still a
// valid pickup day.
func (q *queries) ListExpiredActive(ctx context.Context, now time.Time) ([]*domain.Reservation, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE status = 'active' AND pickup_deadline < ?
		 ORDER BY book_id, queue_position ASC`,
		formatDate(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectReservations(rows)
}

// UpdateReservationDeadline sets a reservation's pickup deadline.
func (q *queries) UpdateReservationDeadline(ctx context.Context, id string, deadline time.Time) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE reservations SET pickup_deadline = ?, updated_at = ? WHERE id = ?`,
		formatDate(deadline), formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CloseReservation moves a reservation from active to the given terminal
// status and shifts every later active entry in the same book's queue down by
// one, keeping positions dense. Returns ErrNotFound if the reservation is not
// active (terminal states are final).
//
// Must run inside a transaction: the status change and the re-densify are one
// queue mutation.
func (q *queries) CloseReservation(ctx context.Context, id string, status domain.ReservationStatus) error {
	now := formatTime(time.Now())

	row := q.db.QueryRowContext(ctx,
		`SELECT book_id, queue_position FROM reservations WHERE id = ? AND status = 'active'`, id)
	var bookID string
	var position int
	if err := row.Scan(&bookID, &position); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}

	if _, err := q.db.ExecContext(ctx,
		`UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), now, id); err != nil {
		return err
	}

	_, err := q.db.ExecContext(ctx, `
		UPDATE reservations SET queue_position = queue_position - 1, updated_at = ?
		WHERE book_id = ? AND status = 'active' AND queue_position > ?`,
		now, bookID, position)
	return err
}

func collectReservations(rows *sql.Rows) ([]*domain.Reservation, error) {
	var rs []*domain.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	return rs, rows.Err()
}
