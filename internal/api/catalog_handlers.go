package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/circulateapp/circulate-server/internal/domain"
	"github.com/circulateapp/circulate-server/internal/search"
	"github.com/circulateapp/circulate-server/internal/service"
)

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns a paginated list of catalog entries",
		Tags:        []string{"Catalog"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/search",
		Summary:     "Search catalog",
		Description: "Full-text search over titles, authors, ISBNs, and call numbers",
		Tags:        []string{"Catalog"},
	}, s.handleSearchBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns a catalog entry by ID",
		Tags:        []string{"Catalog"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "createBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/books",
		Summary:     "Create book",
		Description: "Adds a catalog entry. Librarian or admin only.",
		Tags:        []string{"Catalog"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Updates a catalog entry. Librarian or admin only.",
		Tags:        []string{"Catalog"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}",
		Summary:     "Delete book",
		Description: "Removes a catalog entry with no active loans or reservations. Librarian or admin only.",
		Tags:        []string{"Catalog"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "rebuildCatalogIndex",
		Method:      http.MethodPost,
		Path:        "/api/v1/books/reindex",
		Summary:     "Rebuild search index",
		Description: "Reindexes the whole catalog from the database. Admin only.",
		Tags:        []string{"Catalog"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRebuildIndex)
}

// === DTOs ===

// BookResponse contains catalog entry data in API responses.
type BookResponse struct {
	ID              string    `json:"id" doc:"Book ID"`
	Title           string    `json:"title" doc:"Title"`
	Author          string    `json:"author" doc:"Author"`
	ISBN            string    `json:"isbn,omitempty" doc:"ISBN"`
	Publisher       string    `json:"publisher,omitempty" doc:"Publisher"`
	Subject         string    `json:"subject,omitempty" doc:"Subject classification"`
	CallNumber      string    `json:"call_number,omitempty" doc:"Shelf call number"`
	NumberOfCopies  int       `json:"number_of_copies" doc:"Total copies owned"`
	AvailableCopies int       `json:"available_copies" doc:"Copies not currently on loan"`
	CreatedAt       time.Time `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt       time.Time `json:"updated_at" doc:"Last update timestamp"`
}

// BookOutput wraps a book response for Huma.
type BookOutput struct {
	Body BookResponse
}

// ListBooksInput contains pagination parameters for listing books.
type ListBooksInput struct {
	Limit  int `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Page size"`
	Offset int `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
}

// ListBooksResponse contains a page of catalog entries.
type ListBooksResponse struct {
	Books []BookResponse `json:"books" doc:"Catalog entries"`
}

// ListBooksOutput wraps the list books response for Huma.
type ListBooksOutput struct {
	Body ListBooksResponse
}

// SearchBooksInput contains full-text search parameters.
type SearchBooksInput struct {
	Query   string `query:"q" doc:"Search query"`
	Subject string `query:"subject" doc:"Filter by exact subject"`
	Limit   int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Page size"`
	Offset  int    `query:"offset" default:"0" minimum:"0" doc:"Page offset"`
	SortBy  string `query:"sort" default:"relevance" enum:"relevance,title,author,recent" doc:"Sort order"`
	Facets  bool   `query:"facets" default:"true" doc:"Include subject facet counts"`
}

// SearchBooksOutput wraps search results for Huma.
type SearchBooksOutput struct {
	Body search.SearchResult
}

// CreateBookRequest is the request body for creating a catalog entry.
type CreateBookRequest struct {
	Title          string `json:"title" validate:"required,min=1,max=500" doc:"Title"`
	Author         string `json:"author" validate:"required,min=1,max=200" doc:"Author"`
	ISBN           string `json:"isbn,omitempty" validate:"omitempty,max=20" doc:"ISBN"`
	Publisher      string `json:"publisher,omitempty" validate:"omitempty,max=200" doc:"Publisher"`
	Subject        string `json:"subject,omitempty" validate:"omitempty,max=100" doc:"Subject classification"`
	CallNumber     string `json:"call_number,omitempty" validate:"omitempty,max=50" doc:"Shelf call number"`
	NumberOfCopies int    `json:"number_of_copies" validate:"required,min=1" doc:"Total copies owned"`
}

// CreateBookInput wraps the create book request for Huma.
type CreateBookInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateBookRequest
}

// GetBookInput contains parameters for getting a book.
type GetBookInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// UpdateBookRequest is the request body for updating a catalog entry.
type UpdateBookRequest struct {
	Title          *string `json:"title,omitempty" validate:"omitempty,min=1,max=500" doc:"Title"`
	Author         *string `json:"author,omitempty" validate:"omitempty,min=1,max=200" doc:"Author"`
	ISBN           *string `json:"isbn,omitempty" validate:"omitempty,max=20" doc:"ISBN"`
	Publisher      *string `json:"publisher,omitempty" validate:"omitempty,max=200" doc:"Publisher"`
	Subject        *string `json:"subject,omitempty" validate:"omitempty,max=100" doc:"Subject classification"`
	CallNumber     *string `json:"call_number,omitempty" validate:"omitempty,max=50" doc:"Shelf call number"`
	NumberOfCopies *int    `json:"number_of_copies,omitempty" validate:"omitempty,min=1" doc:"Total copies owned"`
}

// UpdateBookInput wraps the update book request for Huma.
type UpdateBookInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Book ID"`
	Body          UpdateBookRequest
}

// DeleteBookInput contains parameters for deleting a book.
type DeleteBookInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Book ID"`
}

// ReindexInput contains parameters for rebuilding the search index.
type ReindexInput struct {
	Authorization string `header:"Authorization"`
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
	books, err := s.services.Catalog.ListBooks(ctx, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}

	resp := make([]BookResponse, len(books))
	for i, b := range books {
		resp[i] = mapBookResponse(b)
	}

	return &ListBooksOutput{Body: ListBooksResponse{Books: resp}}, nil
}

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*SearchBooksOutput, error) {
	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.Subject = input.Subject
	params.Limit = input.Limit
	params.Offset = input.Offset
	params.SortBy = input.SortBy
	params.IncludeFacets = input.Facets

	result, err := s.services.Catalog.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	return &SearchBooksOutput{Body: *result}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	book, err := s.services.Catalog.GetBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: mapBookResponse(book)}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	if _, err := s.authenticateAndRequirePrivileged(ctx, input.Authorization); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	book, err := s.services.Catalog.CreateBook(ctx, service.CreateBookRequest{
		Title:          input.Body.Title,
		Author:         input.Body.Author,
		ISBN:           input.Body.ISBN,
		Publisher:      input.Body.Publisher,
		Subject:        input.Body.Subject,
		CallNumber:     input.Body.CallNumber,
		NumberOfCopies: input.Body.NumberOfCopies,
	})
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: mapBookResponse(book)}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	if _, err := s.authenticateAndRequirePrivileged(ctx, input.Authorization); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	book, err := s.services.Catalog.UpdateBook(ctx, input.ID, service.UpdateBookRequest{
		Title:          input.Body.Title,
		Author:         input.Body.Author,
		ISBN:           input.Body.ISBN,
		Publisher:      input.Body.Publisher,
		Subject:        input.Body.Subject,
		CallNumber:     input.Body.CallNumber,
		NumberOfCopies: input.Body.NumberOfCopies,
	})
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: mapBookResponse(book)}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *DeleteBookInput) (*MessageOutput, error) {
	if _, err := s.authenticateAndRequirePrivileged(ctx, input.Authorization); err != nil {
		return nil, err
	}

	if err := s.services.Catalog.DeleteBook(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Book deleted"}}, nil
}

func (s *Server) handleRebuildIndex(ctx context.Context, input *ReindexInput) (*MessageOutput, error) {
	if _, err := s.authenticateAndRequireAdmin(ctx, input.Authorization); err != nil {
		return nil, err
	}

	if err := s.services.Catalog.RebuildIndex(ctx); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Index rebuilt"}}, nil
}

// === Helpers ===

func mapBookResponse(b *domain.Book) BookResponse {
	return BookResponse{
		ID:              b.ID,
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		Publisher:       b.Publisher,
		Subject:         b.Subject,
		CallNumber:      b.CallNumber,
		NumberOfCopies:  b.NumberOfCopies,
		AvailableCopies: b.AvailableCopies,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}
