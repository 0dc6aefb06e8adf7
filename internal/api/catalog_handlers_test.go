package api

import (
	"encoding/json/v2"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circulateapp/circulate-server/internal/domain"
)

func TestCreateBook(t *testing.T) {
	ts := setupTestServer(t)

	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)

	resp := ts.api.Post("/api/v1/books", librarianAuth, map[string]any{
		"title":            "The Go Programming Language",
		"author":           "Donovan and Kernighan",
		"isbn":             "9780134190440",
		"subject":          "Computing",
		"call_number":      "005.13 DON",
		"number_of_copies": 3,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var book BookResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &book))
	assert.NotEmpty(t, book.ID)
	assert.Equal(t, 3, book.NumberOfCopies)
	assert.Equal(t, 3, book.AvailableCopies)
}

func TestCreateBook_ValidationAndAccess(t *testing.T) {
	ts := setupTestServer(t)

	_, borrowerAuth := ts.createUser(t, domain.RoleStudent)
	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)

	// Students may not touch the catalog.
	resp := ts.api.Post("/api/v1/books", borrowerAuth, map[string]any{
		"title":            "Nope",
		"author":           "Nobody",
		"number_of_copies": 1,
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	// Missing author is rejected.
	resp = ts.api.Post("/api/v1/books", librarianAuth, map[string]any{
		"title":            "No Author",
		"number_of_copies": 1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSearchBooks(t *testing.T) {
	ts := setupTestServer(t)

	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)

	for _, b := range []map[string]any{
		{"title": "The Pragmatic Programmer", "author": "Hunt and Thomas", "subject": "Computing", "number_of_copies": 1},
		{"title": "Pride and Prejudice", "author": "Jane Austen", "subject": "Fiction", "number_of_copies": 2},
	} {
		resp := ts.api.Post("/api/v1/books", librarianAuth, b)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	}

	resp := ts.api.Get("/api/v1/books/search?q=" + url.QueryEscape("pragmatic"))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var result struct {
		Total uint64 `json:"total"`
		Hits  []struct {
			Title string `json:"title"`
		} `json:"hits"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.EqualValues(t, 1, result.Total)
	assert.Equal(t, "The Pragmatic Programmer", result.Hits[0].Title)
}

func TestUpdateAndDeleteBook(t *testing.T) {
	ts := setupTestServer(t)

	borrower, _ := ts.createUser(t, domain.RoleStudent)
	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)
	book := ts.createBook(t, 2)

	resp := ts.api.Patch("/api/v1/books/"+book.ID, librarianAuth, map[string]any{
		"number_of_copies": 5,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var updated BookResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
	assert.Equal(t, 5, updated.NumberOfCopies)

	// A book with an active loan cannot be deleted.
	issueResp := ts.api.Post("/api/v1/circulation/issue", librarianAuth, map[string]any{
		"user_id": borrower.ID,
		"book_id": book.ID,
	})
	require.Equal(t, http.StatusOK, issueResp.Code)

	del := ts.api.Delete("/api/v1/books/"+book.ID, librarianAuth)
	assert.Equal(t, http.StatusConflict, del.Code)
}

func TestGetBook_NotFound(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/books/missing")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRebuildIndex_AdminOnly(t *testing.T) {
	ts := setupTestServer(t)

	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)
	_, adminAuth := ts.createUser(t, domain.RoleAdmin)
	ts.createBook(t, 1)

	resp := ts.api.Post("/api/v1/books/reindex", librarianAuth)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/api/v1/books/reindex", adminAuth)
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
}
