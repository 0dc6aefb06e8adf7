package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/circulateapp/circulate-server/internal/domain"
)

// userColumns is the ordered list of columns selected in user queries.
// Must match the scan order in scanUser.
const userColumns = `id, created_at, updated_at, email, password_hash, role,
	display_name, barcode, validity_date, outstanding_fine, must_change_password`

// scanUser scans a sql.Row (or sql.Rows via its Scan method) into a domain.User.
func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var u domain.User

	var (
		createdAt    string
		updatedAt    string
		passwordH    sql.NullString
		role         string
		validityDate string
		mustChange   int
	)

	err := scanner.Scan(
		&u.ID,
		&createdAt,
		&updatedAt,
		&u.Email,
		&passwordH,
		&role,
		&u.DisplayName,
		&u.Barcode,
		&validityDate,
		&u.OutstandingFine,
		&mustChange,
	)
	if err != nil {
		return nil, err
	}

	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	u.ValidityDate, err = parseDate(validityDate)
	if err != nil {
		return nil, err
	}

	if passwordH.Valid {
		u.PasswordHash = passwordH.String
	}
	u.Role = domain.Role(role)
	u.MustChangePassword = mustChange != 0

	return &u, nil
}

// CreateUser inserts a new user.
// Returns ErrAlreadyExists if the ID, email, or barcode is taken.
func (q *queries) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO users (
			id, created_at, updated_at, email, email_lower, password_hash, role,
			display_name, barcode, validity_date, outstanding_fine, must_change_password
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
		user.Email,
		strings.ToLower(strings.TrimSpace(user.Email)),
		nullString(user.PasswordHash),
		string(user.Role),
		user.DisplayName,
		user.Barcode,
		formatDate(user.ValidityDate),
		user.OutstandingFine,
		boolToInt(user.MustChangePassword),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetUser retrieves a user by ID.
func (q *queries) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByEmail retrieves a user by lowercased email.
func (q *queries) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	lower := strings.ToLower(strings.TrimSpace(email))
	row := q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email_lower = ?`, lower)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByBarcode retrieves a user by their ID-card barcode.
func (q *queries) GetUserByBarcode(ctx context.Context, barcode string) (*domain.User, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE barcode = ?`, barcode)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns all users ordered by creation time.
func (q *queries) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser performs a full row update on an existing user.
func (q *queries) UpdateUser(ctx context.Context, user *domain.User) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE users SET
			updated_at = ?,
			email = ?,
			email_lower = ?,
			password_hash = ?,
			role = ?,
			display_name = ?,
			barcode = ?,
			validity_date = ?,
			outstanding_fine = ?,
			must_change_password = ?
		WHERE id = ?`,
		formatTime(user.UpdatedAt),
		user.Email,
		strings.ToLower(strings.TrimSpace(user.Email)),
		nullString(user.PasswordHash),
		string(user.Role),
		user.DisplayName,
		user.Barcode,
		formatDate(user.ValidityDate),
		user.OutstandingFine,
		boolToInt(user.MustChangePassword),
		user.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrAlreadyExists
		}
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

// AddUserFine adjusts the user's outstanding fine balance by delta, which may
// be negative for payments. The balance never goes below zero.
func (q *queries) AddUserFine(ctx context.Context, userID string, delta int64) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE users SET
			outstanding_fine = MAX(0, outstanding_fine + ?),
			updated_at = ?
		WHERE id = ?`,
		delta, formatTime(time.Now()), userID)
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

// nullString returns a sql.NullString from a string, NULL when empty.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
