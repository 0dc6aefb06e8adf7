package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/circulateapp/circulate-server/internal/domain"
)

func (s *Server) registerReservationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createReservation",
		Method:      http.MethodPost,
		Path:        "/api/v1/reservations",
		Summary:     "Reserve book",
		Description: "Places a pickup reservation at the tail of the book's queue",
		Tags:        []string{"Reservations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateReservation)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReservation",
		Method:      http.MethodGet,
		Path:        "/api/v1/reservations/{id}",
		Summary:     "Get reservation",
		Description: "Returns a reservation by ID",
		Tags:        []string{"Reservations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetReservation)

	huma.Register(s.api, huma.Operation{
		OperationID: "cancelReservation",
		Method:      http.MethodDelete,
		Path:        "/api/v1/reservations/{id}",
		Summary:     "Cancel reservation",
		Description: "Withdraws an active reservation and closes the queue gap",
		Tags:        []string{"Reservations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCancelReservation)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUserReservations",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/reservations",
		Summary:     "List user reservations",
		Description: "Returns a user's reservations, newest first. Users may read their own.",
		Tags:        []string{"Reservations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListUserReservations)

	huma.Register(s.api, huma.Operation{
		OperationID: "listBookQueue",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/queue",
		Summary:     "List book queue",
		Description: "Returns the book's active reservation queue in position order. Librarian or admin only.",
		Tags:        []string{"Reservations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListBookQueue)

	huma.Register(s.api, huma.Operation{
		OperationID: "expireReservations",
		Method:      http.MethodPost,
		Path:        "/api/v1/reservations/expire",
		Summary:     "Expire stale reservations",
		Description: "Closes active reservations whose pickup deadline has passed. Admin only; also runs on a schedule.",
		Tags:        []string{"Reservations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleExpireReservations)
}

// === DTOs ===

// ReservationResponse contains reservation data in API responses.
type ReservationResponse struct {
	ID              string     `json:"id" doc:"Reservation ID"`
	UserID          string     `json:"user_id" doc:"Holder user ID"`
	BookID          string     `json:"book_id" doc:"Book ID"`
	ReservationDate time.Time  `json:"reservation_date" doc:"When the reservation was placed"`
	PickupDate      time.Time  `json:"pickup_date" doc:"Intended pickup date"`
	PickupDeadline  time.Time  `json:"pickup_deadline" doc:"Deadline after which the reservation expires"`
	QueuePosition   int        `json:"queue_position" doc:"1-based position in the book's queue"`
	Status          string     `json:"status" doc:"active, fulfilled, cancelled, or expired"`
	Notes           string     `json:"notes,omitempty" doc:"Free-form notes"`
	CreatedAt       time.Time  `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt       time.Time  `json:"updated_at" doc:"Last update timestamp"`
}

// ReservationOutput wraps a reservation response for Huma.
type ReservationOutput struct {
	Body ReservationResponse
}

// CreateReservationRequest is the request body for placing a reservation.
type CreateReservationRequest struct {
	UserID     string    `json:"user_id,omitempty" doc:"Holder user ID; librarians may reserve on behalf of others"`
	BookID     string    `json:"book_id" validate:"required" doc:"Book ID"`
	PickupDate time.Time `json:"pickup_date" validate:"required" doc:"Intended pickup date"`
	Notes      string    `json:"notes,omitempty" validate:"omitempty,max=500" doc:"Free-form notes"`
}

// CreateReservationInput wraps the create reservation request for Huma.
type CreateReservationInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateReservationRequest
}

// GetReservationInput contains parameters for reading a reservation.
type GetReservationInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Reservation ID"`
}

// CancelReservationInput contains parameters for cancelling a reservation.
type CancelReservationInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Reservation ID"`
}

// ListUserReservationsInput contains parameters for listing a user's reservations.
type ListUserReservationsInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"User ID"`
}

// ListReservationsResponse contains a list of reservations.
type ListReservationsResponse struct {
	Reservations []ReservationResponse `json:"reservations" doc:"Reservations"`
}

// ListReservationsOutput wraps the reservation list for Huma.
type ListReservationsOutput struct {
	Body ListReservationsResponse
}

// ListBookQueueInput contains parameters for reading a book's queue.
type ListBookQueueInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Book ID"`
}

// ExpireReservationsInput contains parameters for the expiry sweep.
type ExpireReservationsInput struct {
	Authorization string `header:"Authorization"`
}

// ExpireReservationsResponse reports how many reservations were expired.
type ExpireReservationsResponse struct {
	Expired int `json:"expired" doc:"Reservations moved to expired status"`
}

// ExpireReservationsOutput wraps the expiry response for Huma.
type ExpireReservationsOutput struct {
	Body ExpireReservationsResponse
}

// === Handlers ===

func (s *Server) handleCreateReservation(ctx context.Context, input *CreateReservationInput) (*ReservationOutput, error) {
	actor, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	holderID := actor.ID
	if input.Body.UserID != "" && input.Body.UserID != actor.ID {
		if !actor.IsPrivileged() {
			return nil, huma.Error403Forbidden("only librarians may reserve on behalf of another user")
		}
		holderID = input.Body.UserID
	}

	res, err := s.services.Reservations.Reserve(ctx, holderID, input.Body.BookID, input.Body.PickupDate, input.Body.Notes)
	if err != nil {
		return nil, err
	}

	return &ReservationOutput{Body: mapReservationResponse(res)}, nil
}

func (s *Server) handleGetReservation(ctx context.Context, input *GetReservationInput) (*ReservationOutput, error) {
	actor, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Reservations.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if res.UserID != actor.ID && !actor.IsPrivileged() {
		return nil, huma.Error403Forbidden("access denied")
	}

	return &ReservationOutput{Body: mapReservationResponse(res)}, nil
}

func (s *Server) handleCancelReservation(ctx context.Context, input *CancelReservationInput) (*MessageOutput, error) {
	actor, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Reservations.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if res.UserID != actor.ID && !actor.IsPrivileged() {
		return nil, huma.Error403Forbidden("access denied")
	}

	if err := s.services.Reservations.Cancel(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Reservation cancelled"}}, nil
}

func (s *Server) handleListUserReservations(ctx context.Context, input *ListUserReservationsInput) (*ListReservationsOutput, error) {
	if _, err := s.authenticateSelfOrPrivileged(ctx, input.Authorization, input.ID); err != nil {
		return nil, err
	}

	reservations, err := s.services.Reservations.ListForUser(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &ListReservationsOutput{Body: mapReservationList(reservations)}, nil
}

func (s *Server) handleListBookQueue(ctx context.Context, input *ListBookQueueInput) (*ListReservationsOutput, error) {
	if _, err := s.authenticateAndRequirePrivileged(ctx, input.Authorization); err != nil {
		return nil, err
	}

	queue, err := s.services.Reservations.ListQueueForBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &ListReservationsOutput{Body: mapReservationList(queue)}, nil
}

func (s *Server) handleExpireReservations(ctx context.Context, input *ExpireReservationsInput) (*ExpireReservationsOutput, error) {
	if _, err := s.authenticateAndRequireAdmin(ctx, input.Authorization); err != nil {
		return nil, err
	}

	expired, err := s.services.Reservations.ExpireSweep(ctx)
	if err != nil {
		return nil, err
	}

	return &ExpireReservationsOutput{Body: ExpireReservationsResponse{Expired: expired}}, nil
}

// === Helpers ===

func mapReservationResponse(r *domain.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:              r.ID,
		UserID:          r.UserID,
		BookID:          r.BookID,
		ReservationDate: r.ReservationDate,
		PickupDate:      r.PickupDate,
		PickupDeadline:  r.PickupDeadline,
		QueuePosition:   r.QueuePosition,
		Status:          string(r.Status),
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func mapReservationList(reservations []*domain.Reservation) ListReservationsResponse {
	resp := make([]ReservationResponse, len(reservations))
	for i, r := range reservations {
		resp[i] = mapReservationResponse(r)
	}
	return ListReservationsResponse{Reservations: resp}
}
