package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/circulateapp/circulate-server/internal/domain"
	"github.com/circulateapp/circulate-server/internal/service"
)

func (s *Server) registerCirculationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "issueBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/circulation/issue",
		Summary:     "Issue book",
		Description: "Runs the admission checks and issues a book to a user in one transaction. Librarian or admin only.",
		Tags:        []string{"Circulation"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleIssueBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "renewLoan",
		Method:      http.MethodPost,
		Path:        "/api/v1/circulation/{id}/renew",
		Summary:     "Renew loan",
		Description: "Extends a loan by one standard loan period. Librarian or admin only.",
		Tags:        []string{"Circulation"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRenewLoan)

	huma.Register(s.api, huma.Operation{
		OperationID: "returnBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/circulation/{id}/return",
		Summary:     "Return book",
		Description: "Finalizes a loan and freezes any accrued fine on the record. Librarian or admin only.",
		Tags:        []string{"Circulation"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReturnBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCirculationRecord",
		Method:      http.MethodGet,
		Path:        "/api/v1/circulation/{id}",
		Summary:     "Get circulation record",
		Description: "Returns one loan ledger entry. Librarian or admin only.",
		Tags:        []string{"Circulation"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCirculationRecord)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUserLoans",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/loans",
		Summary:     "List user loans",
		Description: "Returns a user's loans, optionally only active ones. Users may read their own.",
		Tags:        []string{"Circulation"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListUserLoans)

	huma.Register(s.api, huma.Operation{
		OperationID: "listOverdueLoans",
		Method:      http.MethodGet,
		Path:        "/api/v1/circulation/overdue",
		Summary:     "List overdue loans",
		Description: "Returns all active loans past their due date. Librarian or admin only.",
		Tags:        []string{"Circulation"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListOverdueLoans)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBookLoans",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/loans",
		Summary:     "List book loans",
		Description: "Returns the active loans for a book, feeding the issue screen's conflict view. Librarian or admin only.",
		Tags:        []string{"Circulation"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListBookLoans)

	huma.Register(s.api, huma.Operation{
		OperationID: "recomputeFines",
		Method:      http.MethodPost,
		Path:        "/api/v1/circulation/fines/recompute",
		Summary:     "Recompute accrued fines",
		Description: "Recalculates the accrued fine on every overdue active loan under the current policy settings. Read-only: fines are finalized at return. Admin only.",
		Tags:        []string{"Circulation"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRecomputeFines)
}

// === DTOs ===

// CirculationRecordResponse contains loan ledger data in API responses.
type CirculationRecordResponse struct {
	ID           string     `json:"id" doc:"Record ID"`
	UserID       string     `json:"user_id" doc:"Borrower user ID"`
	BookID       string     `json:"book_id" doc:"Book ID"`
	IssueDate    time.Time  `json:"issue_date" doc:"Issue date"`
	DueDate      time.Time  `json:"due_date" doc:"Due date"`
	ReturnDate   *time.Time `json:"return_date,omitempty" doc:"Return date, absent while the loan is out"`
	RenewalCount int        `json:"renewal_count" doc:"Times renewed"`
	FineAmount   int64      `json:"fine_amount" doc:"Fine in smallest currency unit, frozen once returned"`
	IssuedBy     string     `json:"issued_by" doc:"Acting librarian user ID"`
}

// CirculationRecordOutput wraps a circulation record for Huma.
type CirculationRecordOutput struct {
	Body CirculationRecordResponse
}

// IssueBookRequest is the request body for issuing a book.
type IssueBookRequest struct {
	UserID              string     `json:"user_id" validate:"required" doc:"Borrower user ID"`
	BookID              string     `json:"book_id" validate:"required" doc:"Book ID"`
	DueDate             *time.Time `json:"due_date,omitempty" doc:"Explicit due date, replaces the computed one"`
	OverrideReservation bool       `json:"override_reservation,omitempty" doc:"Issue despite another user holding the head reservation"`
}

// IssueBookInput wraps the issue request for Huma.
type IssueBookInput struct {
	Authorization string `header:"Authorization"`
	Body          IssueBookRequest
}

// RenewLoanRequest is the request body for renewing a loan.
type RenewLoanRequest struct {
	DueDate *time.Time `json:"due_date,omitempty" doc:"Explicit due date, admin only"`
}

// RenewLoanInput wraps the renew request for Huma.
type RenewLoanInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Circulation record ID"`
	Body          RenewLoanRequest
}

// RenewLoanResponse contains the outcome of a renewal.
type RenewLoanResponse struct {
	Record       CirculationRecordResponse `json:"record" doc:"Updated record"`
	DueDate      time.Time                 `json:"due_date" doc:"New due date"`
	RenewalCount int                       `json:"renewal_count" doc:"Renewals used"`
}

// RenewLoanOutput wraps the renew response for Huma.
type RenewLoanOutput struct {
	Body RenewLoanResponse
}

// ReturnBookRequest is the request body for returning a book.
type ReturnBookRequest struct {
	ReturnDate *time.Time `json:"return_date,omitempty" doc:"Return date, defaults to today"`
}

// ReturnBookInput wraps the return request for Huma.
type ReturnBookInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Circulation record ID"`
	Body          ReturnBookRequest
}

// ReturnBookResponse contains the outcome of a return.
type ReturnBookResponse struct {
	Record     CirculationRecordResponse `json:"record" doc:"Finalized record"`
	FineAmount int64                     `json:"fine_amount" doc:"Fine frozen on the record"`
}

// ReturnBookOutput wraps the return response for Huma.
type ReturnBookOutput struct {
	Body ReturnBookResponse
}

// GetCirculationRecordInput contains parameters for reading a record.
type GetCirculationRecordInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Circulation record ID"`
}

// ListUserLoansInput contains parameters for listing a user's loans.
type ListUserLoansInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"User ID"`
	ActiveOnly    bool   `query:"active" default:"false" doc:"Only loans currently out"`
}

// ListLoansResponse contains a list of circulation records.
type ListLoansResponse struct {
	Loans []CirculationRecordResponse `json:"loans" doc:"Circulation records"`
}

// ListLoansOutput wraps the loan list for Huma.
type ListLoansOutput struct {
	Body ListLoansResponse
}

// ListOverdueInput contains parameters for the overdue report.
type ListOverdueInput struct {
	Authorization string `header:"Authorization"`
}

// ListBookLoansInput contains parameters for listing a book's active loans.
type ListBookLoansInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Book ID"`
}

// RecomputeFinesInput contains parameters for the fine recompute.
type RecomputeFinesInput struct {
	Authorization string `header:"Authorization"`
}

// FineAssessmentResponse pairs an overdue loan with its accrued fine.
type FineAssessmentResponse struct {
	Record     CirculationRecordResponse `json:"record" doc:"Overdue loan"`
	FineAmount int64                     `json:"fine_amount" doc:"Fine accrued as of now, smallest currency unit"`
}

// RecomputeFinesResponse contains the fine recompute report.
type RecomputeFinesResponse struct {
	Assessments []FineAssessmentResponse `json:"assessments" doc:"One entry per overdue active loan"`
}

// RecomputeFinesOutput wraps the recompute report for Huma.
type RecomputeFinesOutput struct {
	Body RecomputeFinesResponse
}

// === Handlers ===

func (s *Server) handleIssueBook(ctx context.Context, input *IssueBookInput) (*CirculationRecordOutput, error) {
	actor, err := s.authenticateAndRequirePrivileged(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	record, err := s.services.Circulation.Issue(ctx, actor, service.IssueRequest{
		UserID:              input.Body.UserID,
		BookID:              input.Body.BookID,
		DueDate:             input.Body.DueDate,
		OverrideReservation: input.Body.OverrideReservation,
	})
	if err != nil {
		return nil, err
	}

	return &CirculationRecordOutput{Body: mapCirculationRecord(record)}, nil
}

func (s *Server) handleRenewLoan(ctx context.Context, input *RenewLoanInput) (*RenewLoanOutput, error) {
	actor, err := s.authenticateAndRequirePrivileged(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Circulation.Renew(ctx, actor, input.ID, input.Body.DueDate)
	if err != nil {
		return nil, err
	}

	return &RenewLoanOutput{
		Body: RenewLoanResponse{
			Record:       mapCirculationRecord(result.Record),
			DueDate:      result.DueDate,
			RenewalCount: result.RenewalCount,
		},
	}, nil
}

func (s *Server) handleReturnBook(ctx context.Context, input *ReturnBookInput) (*ReturnBookOutput, error) {
	if _, err := s.authenticateAndRequirePrivileged(ctx, input.Authorization); err != nil {
		return nil, err
	}

	returnDate := time.Now()
	if input.Body.ReturnDate != nil {
		returnDate = *input.Body.ReturnDate
	}

	result, err := s.services.Circulation.Return(ctx, input.ID, returnDate)
	if err != nil {
		return nil, err
	}

	return &ReturnBookOutput{
		Body: ReturnBookResponse{
			Record:     mapCirculationRecord(result.Record),
			FineAmount: result.FineAmount,
		},
	}, nil
}

func (s *Server) handleGetCirculationRecord(ctx context.Context, input *GetCirculationRecordInput) (*CirculationRecordOutput, error) {
	if _, err := s.authenticateAndRequirePrivileged(ctx, input.Authorization); err != nil {
		return nil, err
	}

	record, err := s.services.Circulation.GetRecord(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &CirculationRecordOutput{Body: mapCirculationRecord(record)}, nil
}

func (s *Server) handleListUserLoans(ctx context.Context, input *ListUserLoansInput) (*ListLoansOutput, error) {
	if _, err := s.authenticateSelfOrPrivileged(ctx, input.Authorization, input.ID); err != nil {
		return nil, err
	}

	loans, err := s.services.Circulation.ListLoansForUser(ctx, input.ID, input.ActiveOnly)
	if err != nil {
		return nil, err
	}

	return &ListLoansOutput{Body: mapLoanList(loans)}, nil
}

func (s *Server) handleListOverdueLoans(ctx context.Context, input *ListOverdueInput) (*ListLoansOutput, error) {
	if _, err := s.authenticateAndRequirePrivileged(ctx, input.Authorization); err != nil {
		return nil, err
	}

	loans, err := s.services.Circulation.ListOverdue(ctx)
	if err != nil {
		return nil, err
	}

	return &ListLoansOutput{Body: mapLoanList(loans)}, nil
}

func (s *Server) handleListBookLoans(ctx context.Context, input *ListBookLoansInput) (*ListLoansOutput, error) {
	if _, err := s.authenticateAndRequirePrivileged(ctx, input.Authorization); err != nil {
		return nil, err
	}

	loans, err := s.services.Circulation.ListActiveLoansForBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &ListLoansOutput{Body: mapLoanList(loans)}, nil
}

func (s *Server) handleRecomputeFines(ctx context.Context, input *RecomputeFinesInput) (*RecomputeFinesOutput, error) {
	if _, err := s.authenticateAndRequireAdmin(ctx, input.Authorization); err != nil {
		return nil, err
	}

	assessments, err := s.services.Circulation.RecomputeFines(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]FineAssessmentResponse, len(assessments))
	for i, a := range assessments {
		resp[i] = FineAssessmentResponse{
			Record:     mapCirculationRecord(a.Record),
			FineAmount: a.FineAmount,
		}
	}
	return &RecomputeFinesOutput{Body: RecomputeFinesResponse{Assessments: resp}}, nil
}

// === Helpers ===

func mapCirculationRecord(r *domain.CirculationRecord) CirculationRecordResponse {
	return CirculationRecordResponse{
		ID:           r.ID,
		UserID:       r.UserID,
		BookID:       r.BookID,
		IssueDate:    r.IssueDate,
		DueDate:      r.DueDate,
		ReturnDate:   r.ReturnDate,
		RenewalCount: r.RenewalCount,
		FineAmount:   r.FineAmount,
		IssuedBy:     r.IssuedBy,
	}
}

func mapLoanList(loans []*domain.CirculationRecord) ListLoansResponse {
	resp := make([]CirculationRecordResponse, len(loans))
	for i, l := range loans {
		resp[i] = mapCirculationRecord(l)
	}
	return ListLoansResponse{Loans: resp}
}
