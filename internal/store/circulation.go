package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/circulateapp/circulate-server/internal/domain"
)

// circulationColumns is the ordered list of columns selected in circulation
// queries. Must match the scan order in scanCirculation.
const circulationColumns = `id, created_at, updated_at, user_id, book_id,
	issue_date, due_date, return_date, renewal_count, fine_amount, issued_by`

// scanCirculation scans a row into a domain.CirculationRecord.
func scanCirculation(scanner interface{ Scan(dest ...any) error }) (*domain.CirculationRecord, error) {
	var c domain.CirculationRecord
	var (
		createdAt  string
		updatedAt  string
		issueDate  string
		dueDate    string
		returnDate sql.NullString
	)

	err := scanner.Scan(
		&c.ID,
		&createdAt,
		&updatedAt,
		&c.UserID,
		&c.BookID,
		&issueDate,
		&dueDate,
		&returnDate,
		&c.RenewalCount,
		&c.FineAmount,
		&c.IssuedBy,
	)
	if err != nil {
		return nil, err
	}

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if c.IssueDate, err = parseTime(issueDate); err != nil {
		return nil, err
	}
	if c.DueDate, err = parseDate(dueDate); err != nil {
		return nil, err
	}
	if c.ReturnDate, err = parseNullableDate(returnDate); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCirculation inserts a new circulation record.
func (q *queries) CreateCirculation(ctx context.Context, rec *domain.CirculationRecord) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO circulation_records (
			id, created_at, updated_at, user_id, book_id,
			issue_date, due_date, return_date, renewal_count, fine_amount, issued_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
		rec.UserID,
		rec.BookID,
		formatTime(rec.IssueDate),
		formatDate(rec.DueDate),
		nullDateString(rec.ReturnDate),
		rec.RenewalCount,
		rec.FineAmount,
		rec.IssuedBy,
	)
	return err
}

// GetCirculation retrieves a circulation record by ID.
func (q *queries) GetCirculation(ctx context.Context, id string) (*domain.CirculationRecord, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+circulationColumns+` FROM circulation_records WHERE id = ?`, id)

	c, err := scanCirculation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCirculation updates the mutable fields of a circulation record.
func (q *queries) UpdateCirculation(ctx context.Context, rec *domain.CirculationRecord) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE circulation_records SET
			updated_at = ?,
			due_date = ?,
			return_date = ?,
			renewal_count = ?,
			fine_amount = ?
		WHERE id = ?`,
		formatTime(rec.UpdatedAt),
		formatDate(rec.DueDate),
		nullDateString(rec.ReturnDate),
		rec.RenewalCount,
		rec.FineAmount,
		rec.ID,
	)
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

// CountActiveLoansForUser returns the number of loans the user has out.
func (q *queries) CountActiveLoansForUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM circulation_records WHERE user_id = ? AND return_date IS NULL`,
		userID).Scan(&n)
	return n, err
}

// CountActiveLoansForBook returns the number of copies of the book out on loan.
func (q *queries) CountActiveLoansForBook(ctx context.Context, bookID string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM circulation_records WHERE book_id = ? AND return_date IS NULL`,
		bookID).Scan(&n)
	return n, err
}

// GetActiveLoan returns the user's active loan of the given book, if any.
func (q *queries) GetActiveLoan(ctx context.Context, userID, bookID string) (*domain.CirculationRecord, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+circulationColumns+` FROM circulation_records
		 WHERE user_id = ? AND book_id = ? AND return_date IS NULL`,
		userID, bookID)

	c, err := scanCirculation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListLoansForUser returns the user's circulation records, newest first.
// When activeOnly is set, returned loans are excluded.
func (q *queries) ListLoansForUser(ctx context.Context, userID string, activeOnly bool) ([]*domain.CirculationRecord, error) {
	query := `SELECT ` + circulationColumns + ` FROM circulation_records WHERE user_id = ?`
	if activeOnly {
		query += ` AND return_date IS NULL`
	}
	query += ` ORDER BY issue_date DESC`

	rows, err := q.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCirculations(rows)
}

// ListActiveLoansForBook returns the book's outstanding loans ordered by due date.
func (q *queries) ListActiveLoansForBook(ctx context.Context, bookID string) ([]*domain.CirculationRecord, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+circulationColumns+` FROM circulation_records
		 WHERE book_id = ? AND return_date IS NULL ORDER BY due_date ASC`,
		bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCirculations(rows)
}

// EarliestDueDate returns the soonest due date among the book's active loans.
// Returns ErrNotFound when the book has no active loans.
func (q *queries) EarliestDueDate(ctx context.Context, bookID string) (*domain.CirculationRecord, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+circulationColumns+` FROM circulation_records
		 WHERE book_id = ? AND return_date IS NULL ORDER BY due_date ASC LIMIT 1`,
		bookID)

	c, err := scanCirculation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListOverdueActive returns all active loans whose due date falls on a civil
// day before cutoff's. Used by the admin-triggered fine recompute.
func (q *queries) ListOverdueActive(ctx context.Context, cutoff time.Time) ([]*domain.CirculationRecord, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+circulationColumns+` FROM circulation_records
		 WHERE return_date IS NULL AND due_date < ? ORDER BY due_date ASC`,
		formatDate(cutoff))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCirculations(rows)
}

func collectCirculations(rows *sql.Rows) ([]*domain.CirculationRecord, error) {
	var recs []*domain.CirculationRecord
	for rows.Next() {
		c, err := scanCirculation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, c)
	}
	return recs, rows.Err()
}
