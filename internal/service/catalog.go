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
	"github.com/circulateapp/circulate-server/internal/search"
	"github.com/circulateapp/circulate-server/internal/store"
)

// CatalogService manages the book catalog and keeps the search index in step
// with it. Index write failures are logged, not surfaced: the store is the
// source of truth and the index can always be rebuilt.
type CatalogService struct {
	store  *store.Store
	index  *search.CatalogIndex
	logger *slog.Logger
}

// NewCatalogService creates a catalog service.
func NewCatalogService(st *store.Store, index *search.CatalogIndex, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:  st,
		index:  index,
		logger: logger,
	}
}

// CreateBookRequest carries the fields for a new catalog entry.
type CreateBookRequest struct {
	Title          string
	Author         string
	ISBN           string
	Publisher      string
	Subject        string
	CallNumber     string
	NumberOfCopies int
}

// CreateBook adds a catalog entry and indexes it.
func (s *CatalogService) CreateBook(ctx context.Context, req CreateBookRequest) (*domain.Book, error) {
	if req.NumberOfCopies < 1 {
		return nil, domainerrors.Validation("number of copies must be at least 1")
	}

	bookID, err := id.Generate("bok")
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	now := time.Now()
	book := &domain.Book{
		Record: domain.Record{
			ID:        bookID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Title:          req.Title,
		Author:         req.Author,
		ISBN:           req.ISBN,
		Publisher:      req.Publisher,
		Subject:        req.Subject,
		CallNumber:     req.CallNumber,
		NumberOfCopies: req.NumberOfCopies,
	}

	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	book.AvailableCopies = book.NumberOfCopies

	if err := s.index.IndexDocument(search.BookToDocument(book)); err != nil {
		s.logger.Error("failed to index book", "book_id", bookID, "error", err)
	}

	s.logger.Info("book created", "book_id", bookID, "title", req.Title)
	return book, nil
}

// GetBook returns a single catalog entry with its derived available copies.
func (s *CatalogService) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// ListBooks returns a page of the catalog.
func (s *CatalogService) ListBooks(ctx context.Context, limit, offset int) ([]*domain.Book, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListBooks(ctx, limit, offset)
}

// UpdateBookRequest contains the mutable catalog fields.
// Nil fields are left unchanged.
type UpdateBookRequest struct {
	Title          *string
	Author         *string
	ISBN           *string
	Publisher      *string
	Subject        *string
	CallNumber     *string
	NumberOfCopies *int
}

// UpdateBook applies the supplied fields and reindexes the entry.
// The copy count may not drop below the number currently on loan.
func (s *CatalogService) UpdateBook(ctx context.Context, bookID string, req UpdateBookRequest) (*domain.Book, error) {
	book, err := s.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.Author != nil {
		book.Author = *req.Author
	}
	if req.ISBN != nil {
		book.ISBN = *req.ISBN
	}
	if req.Publisher != nil {
		book.Publisher = *req.Publisher
	}
	if req.Subject != nil {
		book.Subject = *req.Subject
	}
	if req.CallNumber != nil {
		book.CallNumber = *req.CallNumber
	}
	if req.NumberOfCopies != nil {
		onLoan, err := s.store.CountActiveLoansForBook(ctx, bookID)
		if err != nil {
			return nil, fmt.Errorf("count active loans: %w", err)
		}
		if *req.NumberOfCopies < onLoan {
			return nil, domainerrors.Validationf("cannot reduce copies below the %d currently on loan", onLoan)
		}
		book.NumberOfCopies = *req.NumberOfCopies
	}
	book.Touch()

	if err := s.store.UpdateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	updated, err := s.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if err := s.index.IndexDocument(search.BookToDocument(updated)); err != nil {
		s.logger.Error("failed to reindex book", "book_id", bookID, "error", err)
	}

	s.logger.Info("book updated", "book_id", bookID)
	return updated, nil
}

// DeleteBook removes a catalog entry. Entries with active loans or an active
// reservation queue cannot be removed.
func (s *CatalogService) DeleteBook(ctx context.Context, bookID string) error {
	if _, err := s.GetBook(ctx, bookID); err != nil {
		return err
	}

	onLoan, err := s.store.CountActiveLoansForBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("count active loans: %w", err)
	}
	if onLoan > 0 {
		return domainerrors.Conflict("book has copies on loan")
	}

	queued, err := s.store.CountActiveReservations(ctx, bookID)
	if err != nil {
		return fmt.Errorf("count active reservations: %w", err)
	}
	if queued > 0 {
		return domainerrors.Conflict("book has an active reservation queue")
	}

	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if err := s.index.DeleteDocument(bookID); err != nil {
		s.logger.Error("failed to remove book from index", "book_id", bookID, "error", err)
	}

	s.logger.Info("book deleted", "book_id", bookID)
	return nil
}

// IndexedDocumentCount reports how many catalog entries the search index holds.
func (s *CatalogService) IndexedDocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}

// Search runs a full-text query against the catalog index.
func (s *CatalogService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	return s.index.Search(ctx, params)
}

// RebuildIndex reindexes the whole catalog from the store.
// Run at startup and on demand after index corruption.
func (s *CatalogService) RebuildIndex(ctx context.Context) error {
	if err := s.index.Rebuild(); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	const pageSize = 500
	offset := 0
	total := 0
	for {
		books, err := s.store.ListBooks(ctx, pageSize, offset)
		if err != nil {
			return fmt.Errorf("list books: %w", err)
		}
		if len(books) == 0 {
			break
		}

		docs := make([]*search.CatalogDocument, 0, len(books))
		for _, b := range books {
			docs = append(docs, search.BookToDocument(b))
		}
		if err := s.index.IndexDocuments(docs); err != nil {
			return fmt.Errorf("index batch: %w", err)
		}

		total += len(books)
		offset += pageSize
	}

	s.logger.Info("catalog index rebuilt", "books", total)
	return nil
}
