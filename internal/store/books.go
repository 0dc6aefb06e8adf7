package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/circulateapp/circulate-server/internal/domain"
)

// bookColumns selects bibliographic fields plus the derived available-copies
// count: number_of_copies minus circulation records with a NULL return_date.
// Must match the scan order in scanBook.
const bookColumns = `b.id, b.created_at, b.updated_at, b.title, b.author, b.isbn,
	b.publisher, b.subject, b.call_number, b.number_of_copies,
	b.number_of_copies - (
		SELECT COUNT(*) FROM circulation_records c
		WHERE c.book_id = b.id AND c.return_date IS NULL
	) AS available_copies`

// scanBook scans a row into a domain.Book.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var b domain.Book
	var createdAt, updatedAt string

	err := scanner.Scan(
		&b.ID,
		&createdAt,
		&updatedAt,
		&b.Title,
		&b.Author,
		&b.ISBN,
		&b.Publisher,
		&b.Subject,
		&b.CallNumber,
		&b.NumberOfCopies,
		&b.AvailableCopies,
	)
	if err != nil {
		return nil, err
	}

	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	b.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBook inserts a new catalog entry.
func (q *queries) CreateBook(ctx context.Context, book *domain.Book) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO books (
			id, created_at, updated_at, title, author, isbn,
			publisher, subject, call_number, number_of_copies
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID,
		formatTime(book.CreatedAt),
		formatTime(book.UpdatedAt),
		book.Title,
		book.Author,
		book.ISBN,
		book.Publisher,
		book.Subject,
		book.CallNumber,
		book.NumberOfCopies,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetBook retrieves a book by ID, with its derived available-copies count.
func (q *queries) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books b WHERE b.id = ?`, id)

	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBooks returns catalog entries ordered by title.
func (q *queries) ListBooks(ctx context.Context, limit, offset int) ([]*domain.Book, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books b ORDER BY b.title ASC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// UpdateBook performs a full row update on catalog fields.
func (q *queries) UpdateBook(ctx context.Context, book *domain.Book) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE books SET
			updated_at = ?,
			title = ?,
			author = ?,
			isbn = ?,
			publisher = ?,
			subject = ?,
			call_number = ?,
			number_of_copies = ?
		WHERE id = ?`,
		formatTime(book.UpdatedAt),
		book.Title,
		book.Author,
		book.ISBN,
		book.Publisher,
		book.Subject,
		book.CallNumber,
		book.NumberOfCopies,
		book.ID,
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

// DeleteBook removes a catalog entry. Referential integrity rejects deletion
// while circulation records reference the book.
func (q *queries) DeleteBook(ctx context.Context, id string) error {
	result, err := q.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
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
