package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/circulateapp/circulate-server/internal/domain"
	"github.com/circulateapp/circulate-server/internal/service"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createUser",
		Method:      http.MethodPost,
		Path:        "/api/v1/users",
		Summary:     "Create user",
		Description: "Creates a member or staff account. Admin only.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "listUsers",
		Method:      http.MethodGet,
		Path:        "/api/v1/users",
		Summary:     "List users",
		Description: "Returns all accounts. Librarian or admin only.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListUsers)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}",
		Summary:     "Get user",
		Description: "Returns an account by ID. Users may read their own account.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateUser",
		Method:      http.MethodPatch,
		Path:        "/api/v1/users/{id}",
		Summary:     "Update user",
		Description: "Updates account fields. Admin only.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "payFine",
		Method:      http.MethodPost,
		Path:        "/api/v1/users/{id}/fines/pay",
		Summary:     "Pay fine",
		Description: "Records a fine payment against the user's outstanding balance. Librarian or admin only.",
		Tags:        []string{"Users"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handlePayFine)
}

// === DTOs ===

// UserResponse contains account data in API responses.
type UserResponse struct {
	ID                 string    `json:"id" doc:"User ID"`
	Email              string    `json:"email" doc:"Email address"`
	DisplayName        string    `json:"display_name" doc:"Display name"`
	Role               string    `json:"role" doc:"Role: student, staff, librarian, or admin"`
	Barcode            string    `json:"barcode" doc:"ID-card barcode"`
	ValidityDate       time.Time `json:"validity_date" doc:"Account expiry date"`
	OutstandingFine    int64     `json:"outstanding_fine" doc:"Unpaid fine balance in smallest currency unit"`
	MustChangePassword bool      `json:"must_change_password" doc:"Whether a password change is required at next login"`
	CreatedAt          time.Time `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt          time.Time `json:"updated_at" doc:"Last update timestamp"`
}

// CreateUserRequest is the request body for creating an account.
type CreateUserRequest struct {
	Email        string    `json:"email" validate:"required,email,max=254" doc:"Email address"`
	Password     string    `json:"password" validate:"required,min=8,max=1024" doc:"Initial password"`
	DisplayName  string    `json:"display_name" validate:"required,min=1,max=100" doc:"Display name"`
	Role         string    `json:"role" validate:"required,oneof=student staff librarian admin" doc:"Account role"`
	Barcode      string    `json:"barcode" validate:"required,alphanum,min=2,max=50" doc:"ID-card barcode"`
	ValidityDate time.Time `json:"validity_date" doc:"Account expiry date"`
}

// CreateUserInput wraps the create user request for Huma.
type CreateUserInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateUserRequest
}

// ListUsersInput contains parameters for listing users.
type ListUsersInput struct {
	Authorization string `header:"Authorization"`
}

// ListUsersResponse contains a list of accounts.
type ListUsersResponse struct {
	Users []UserResponse `json:"users" doc:"List of accounts"`
}

// ListUsersOutput wraps the list users response for Huma.
type ListUsersOutput struct {
	Body ListUsersResponse
}

// GetUserInput contains parameters for getting a user.
type GetUserInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"User ID"`
}

// UpdateUserRequest is the request body for updating an account.
type UpdateUserRequest struct {
	DisplayName  *string    `json:"display_name,omitempty" validate:"omitempty,min=1,max=100" doc:"Display name"`
	Role         *string    `json:"role,omitempty" validate:"omitempty,oneof=student staff librarian admin" doc:"Account role"`
	Barcode      *string    `json:"barcode,omitempty" validate:"omitempty,alphanum,min=2,max=50" doc:"ID-card barcode"`
	ValidityDate *time.Time `json:"validity_date,omitempty" doc:"Account expiry date"`
}

// UpdateUserInput wraps the update user request for Huma.
type UpdateUserInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"User ID"`
	Body          UpdateUserRequest
}

// PayFineRequest is the request body for recording a fine payment.
type PayFineRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0" doc:"Payment amount in smallest currency unit"`
}

// PayFineInput wraps the pay fine request for Huma.
type PayFineInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"User ID"`
	Body          PayFineRequest
}

// === Handlers ===

func (s *Server) handleCreateUser(ctx context.Context, input *CreateUserInput) (*UserOutput, error) {
	if _, err := s.authenticateAndRequireAdmin(ctx, input.Authorization); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	user, err := s.services.Users.Create(ctx, service.CreateUserRequest{
		Email:        input.Body.Email,
		Password:     input.Body.Password,
		DisplayName:  input.Body.DisplayName,
		Role:         domain.Role(input.Body.Role),
		Barcode:      input.Body.Barcode,
		ValidityDate: input.Body.ValidityDate,
	})
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUserResponse(user)}, nil
}

func (s *Server) handleListUsers(ctx context.Context, input *ListUsersInput) (*ListUsersOutput, error) {
	if _, err := s.authenticateAndRequirePrivileged(ctx, input.Authorization); err != nil {
		return nil, err
	}

	users, err := s.services.Users.List(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]UserResponse, len(users))
	for i, u := range users {
		resp[i] = mapUserResponse(u)
	}

	return &ListUsersOutput{Body: ListUsersResponse{Users: resp}}, nil
}

func (s *Server) handleGetUser(ctx context.Context, input *GetUserInput) (*UserOutput, error) {
	if _, err := s.authenticateSelfOrPrivileged(ctx, input.Authorization, input.ID); err != nil {
		return nil, err
	}

	user, err := s.services.Users.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUserResponse(user)}, nil
}

func (s *Server) handleUpdateUser(ctx context.Context, input *UpdateUserInput) (*UserOutput, error) {
	if _, err := s.authenticateAndRequireAdmin(ctx, input.Authorization); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	req := service.UpdateUserRequest{
		DisplayName:  input.Body.DisplayName,
		Barcode:      input.Body.Barcode,
		ValidityDate: input.Body.ValidityDate,
	}
	if input.Body.Role != nil {
		role := domain.Role(*input.Body.Role)
		req.Role = &role
	}

	user, err := s.services.Users.Update(ctx, input.ID, req)
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUserResponse(user)}, nil
}

func (s *Server) handlePayFine(ctx context.Context, input *PayFineInput) (*UserOutput, error) {
	if _, err := s.authenticateAndRequirePrivileged(ctx, input.Authorization); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	user, err := s.services.Users.PayFine(ctx, input.ID, input.Body.Amount)
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUserResponse(user)}, nil
}

// === Helpers ===

func mapUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:                 u.ID,
		Email:              u.Email,
		DisplayName:        u.DisplayName,
		Role:               string(u.Role),
		Barcode:            u.Barcode,
		ValidityDate:       u.ValidityDate,
		OutstandingFine:    u.OutstandingFine,
		MustChangePassword: u.MustChangePassword,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}
