package api

import (
	"context"
	"encoding/json/v2"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circulateapp/circulate-server/internal/domain"
)

func TestIssueBook_Success(t *testing.T) {
	ts := setupTestServer(t)

	borrower, _ := ts.createUser(t, domain.RoleStudent)
	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)
	book := ts.createBook(t, 2)

	resp := ts.api.Post("/api/v1/circulation/issue", librarianAuth, map[string]any{
		"user_id": borrower.ID,
		"book_id": book.ID,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var rec CirculationRecordResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rec))
	assert.Equal(t, borrower.ID, rec.UserID)
	assert.Equal(t, book.ID, rec.BookID)
	assert.Nil(t, rec.ReturnDate)
	assert.True(t, rec.DueDate.After(rec.IssueDate))

	// The loaned copy is no longer available.
	bookResp := ts.api.Get("/api/v1/books/" + book.ID)
	require.Equal(t, http.StatusOK, bookResp.Code)
	var b BookResponse
	require.NoError(t, json.Unmarshal(bookResp.Body.Bytes(), &b))
	assert.Equal(t, 1, b.AvailableCopies)
}

func TestIssueBook_StudentForbidden(t *testing.T) {
	ts := setupTestServer(t)

	borrower, borrowerAuth := ts.createUser(t, domain.RoleStudent)
	book := ts.createBook(t, 1)

	resp := ts.api.Post("/api/v1/circulation/issue", borrowerAuth, map[string]any{
		"user_id": borrower.ID,
		"book_id": book.ID,
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestIssueBook_ReservationConflictCode(t *testing.T) {
	ts := setupTestServer(t)

	borrower, _ := ts.createUser(t, domain.RoleStudent)
	_, holderAuth := ts.createUser(t, domain.RoleStudent)
	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)
	book := ts.createBook(t, 1)

	pickup := time.Now().AddDate(0, 0, 3).Format(time.RFC3339)
	reserveResp := ts.api.Post("/api/v1/reservations", holderAuth, map[string]any{
		"book_id":     book.ID,
		"pickup_date": pickup,
	})
	require.Equal(t, http.StatusOK, reserveResp.Code, reserveResp.Body.String())

	resp := ts.api.Post("/api/v1/circulation/issue", librarianAuth, map[string]any{
		"user_id": borrower.ID,
		"book_id": book.ID,
	})
	assert.Equal(t, http.StatusConflict, resp.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "RESERVATION_CONFLICT", apiErr.Code)
	assert.NotNil(t, apiErr.Details)
}

func TestIssueBook_OverrideKeepsReservation(t *testing.T) {
	ts := setupTestServer(t)

	borrower, _ := ts.createUser(t, domain.RoleStudent)
	_, holderAuth := ts.createUser(t, domain.RoleStudent)
	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)
	book := ts.createBook(t, 1)

	pickup := time.Now().AddDate(0, 0, 3).Format(time.RFC3339)
	reserveResp := ts.api.Post("/api/v1/reservations", holderAuth, map[string]any{
		"book_id":     book.ID,
		"pickup_date": pickup,
	})
	require.Equal(t, http.StatusOK, reserveResp.Code)

	resp := ts.api.Post("/api/v1/circulation/issue", librarianAuth, map[string]any{
		"user_id":              borrower.ID,
		"book_id":              book.ID,
		"override_reservation": true,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// The bypassed reservation stays queued at position 1.
	queueResp := ts.api.Get("/api/v1/books/"+book.ID+"/queue", librarianAuth)
	require.Equal(t, http.StatusOK, queueResp.Code)
	var queue ListReservationsResponse
	require.NoError(t, json.Unmarshal(queueResp.Body.Bytes(), &queue))
	require.Len(t, queue.Reservations, 1)
	assert.Equal(t, "active", queue.Reservations[0].Status)
	assert.Equal(t, 1, queue.Reservations[0].QueuePosition)
}

func TestRenewAndReturn(t *testing.T) {
	ts := setupTestServer(t)

	borrower, _ := ts.createUser(t, domain.RoleStudent)
	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)
	book := ts.createBook(t, 1)

	issueResp := ts.api.Post("/api/v1/circulation/issue", librarianAuth, map[string]any{
		"user_id": borrower.ID,
		"book_id": book.ID,
	})
	require.Equal(t, http.StatusOK, issueResp.Code)
	var rec CirculationRecordResponse
	require.NoError(t, json.Unmarshal(issueResp.Body.Bytes(), &rec))

	renewResp := ts.api.Post("/api/v1/circulation/"+rec.ID+"/renew", librarianAuth, map[string]any{})
	require.Equal(t, http.StatusOK, renewResp.Code, renewResp.Body.String())
	var renewed RenewLoanResponse
	require.NoError(t, json.Unmarshal(renewResp.Body.Bytes(), &renewed))
	assert.Equal(t, 1, renewed.RenewalCount)
	assert.True(t, renewed.DueDate.After(rec.DueDate))

	returnResp := ts.api.Post("/api/v1/circulation/"+rec.ID+"/return", librarianAuth, map[string]any{})
	require.Equal(t, http.StatusOK, returnResp.Code, returnResp.Body.String())
	var returned ReturnBookResponse
	require.NoError(t, json.Unmarshal(returnResp.Body.Bytes(), &returned))
	assert.NotNil(t, returned.Record.ReturnDate)
	assert.Zero(t, returned.FineAmount)

	// Returning twice is rejected.
	again := ts.api.Post("/api/v1/circulation/"+rec.ID+"/return", librarianAuth, map[string]any{})
	assert.Equal(t, http.StatusConflict, again.Code)
	var apiErr APIError
	require.NoError(t, json.Unmarshal(again.Body.Bytes(), &apiErr))
	assert.Equal(t, "ALREADY_RETURNED", apiErr.Code)
}

func TestListUserLoans_SelfAccess(t *testing.T) {
	ts := setupTestServer(t)

	borrower, borrowerAuth := ts.createUser(t, domain.RoleStudent)
	_, otherAuth := ts.createUser(t, domain.RoleStudent)
	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)
	book := ts.createBook(t, 1)

	issueResp := ts.api.Post("/api/v1/circulation/issue", librarianAuth, map[string]any{
		"user_id": borrower.ID,
		"book_id": book.ID,
	})
	require.Equal(t, http.StatusOK, issueResp.Code)

	// Borrowers can read their own loans.
	resp := ts.api.Get("/api/v1/users/"+borrower.ID+"/loans?active=true", borrowerAuth)
	require.Equal(t, http.StatusOK, resp.Code)
	var loans ListLoansResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &loans))
	assert.Len(t, loans.Loans, 1)

	// But not anyone else's.
	resp = ts.api.Get("/api/v1/users/"+borrower.ID+"/loans", otherAuth)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestListOverdue_RequiresPrivilege(t *testing.T) {
	ts := setupTestServer(t)

	_, borrowerAuth := ts.createUser(t, domain.RoleStudent)
	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)

	resp := ts.api.Get("/api/v1/circulation/overdue", borrowerAuth)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Get("/api/v1/circulation/overdue", librarianAuth)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestIssueBook_ExplicitDueDate(t *testing.T) {
	ts := setupTestServer(t)

	borrower, _ := ts.createUser(t, domain.RoleStudent)
	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)
	book := ts.createBook(t, 1)

	due := time.Now().AddDate(0, 0, 7)
	resp := ts.api.Post("/api/v1/circulation/issue", librarianAuth, map[string]any{
		"user_id":  borrower.ID,
		"book_id":  book.ID,
		"due_date": due.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var rec CirculationRecordResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rec))
	assert.Equal(t, due.Format(time.DateOnly), rec.DueDate.Format(time.DateOnly))
}

func TestGetCirculationRecord(t *testing.T) {
	ts := setupTestServer(t)

	borrower, _ := ts.createUser(t, domain.RoleStudent)
	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)
	book := ts.createBook(t, 1)

	issueResp := ts.api.Post("/api/v1/circulation/issue", librarianAuth, map[string]any{
		"user_id": borrower.ID,
		"book_id": book.ID,
	})
	require.Equal(t, http.StatusOK, issueResp.Code)
	var rec CirculationRecordResponse
	require.NoError(t, json.Unmarshal(issueResp.Body.Bytes(), &rec))

	resp := ts.api.Get("/api/v1/circulation/"+rec.ID, librarianAuth)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/circulation/missing", librarianAuth)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListBookLoans_Privileged(t *testing.T) {
	ts := setupTestServer(t)

	borrower, borrowerAuth := ts.createUser(t, domain.RoleStudent)
	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)
	book := ts.createBook(t, 2)

	issueResp := ts.api.Post("/api/v1/circulation/issue", librarianAuth, map[string]any{
		"user_id": borrower.ID,
		"book_id": book.ID,
	})
	require.Equal(t, http.StatusOK, issueResp.Code)

	resp := ts.api.Get("/api/v1/books/"+book.ID+"/loans", librarianAuth)
	require.Equal(t, http.StatusOK, resp.Code)

	var list ListLoansResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list.Loans, 1)
	assert.Equal(t, borrower.ID, list.Loans[0].UserID)

	resp = ts.api.Get("/api/v1/books/"+book.ID+"/loans", borrowerAuth)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRecomputeFines_AdminOnly(t *testing.T) {
	ts := setupTestServer(t)

	borrower, _ := ts.createUser(t, domain.RoleStudent)
	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)
	_, adminAuth := ts.createUser(t, domain.RoleAdmin)
	book := ts.createBook(t, 1)

	issueResp := ts.api.Post("/api/v1/circulation/issue", librarianAuth, map[string]any{
		"user_id": borrower.ID,
		"book_id": book.ID,
	})
	require.Equal(t, http.StatusOK, issueResp.Code)
	var rec CirculationRecordResponse
	require.NoError(t, json.Unmarshal(issueResp.Body.Bytes(), &rec))

	// Backdate the due date so the loan is well overdue.
	stored, err := ts.store.GetCirculation(context.Background(), rec.ID)
	require.NoError(t, err)
	stored.DueDate = domain.DateOnly(time.Now().AddDate(0, 0, -10))
	require.NoError(t, ts.store.UpdateCirculation(context.Background(), stored))

	resp := ts.api.Post("/api/v1/circulation/fines/recompute", librarianAuth)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/api/v1/circulation/fines/recompute", adminAuth)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var report RecomputeFinesResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &report))
	require.Len(t, report.Assessments, 1)
	assert.Equal(t, rec.ID, report.Assessments[0].Record.ID)
	assert.Positive(t, report.Assessments[0].FineAmount)

	// Recompute is a report, not a write: the stored record is untouched.
	after, err := ts.store.GetCirculation(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Zero(t, after.FineAmount)
}
