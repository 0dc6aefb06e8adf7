package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/circulateapp/circulate-server/internal/errors"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "User login",
		Description: "Authenticates a user and returns an access token",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/me",
		Summary:     "Current user",
		Description: "Returns the authenticated user's account",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCurrentUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "changePassword",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/change-password",
		Summary:     "Change password",
		Description: "Changes the authenticated user's password",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleChangePassword)
}

// === DTOs ===

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254" doc:"User email"`
	Password string `json:"password" validate:"required,max=1024" doc:"User password"`
}

// LoginInput wraps the login request with headers for Huma.
type LoginInput struct {
	Body          LoginRequest
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
}

// AuthResponse contains the access token and user info.
type AuthResponse struct {
	AccessToken string       `json:"access_token" doc:"PASETO access token"`
	TokenType   string       `json:"token_type" doc:"Token type (Bearer)"`
	ExpiresIn   int          `json:"expires_in" doc:"Token expiry in seconds"`
	User        UserResponse `json:"user" doc:"Authenticated user"`
}

// AuthOutput wraps the auth response for Huma.
type AuthOutput struct {
	Body AuthResponse
}

// UserOutput wraps a user response for Huma.
type UserOutput struct {
	Body UserResponse
}

// ChangePasswordRequest is the request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,max=1024" doc:"Current password"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=1024" doc:"New password"`
}

// ChangePasswordInput wraps the change password request for Huma.
type ChangePasswordInput struct {
	Authorization string `header:"Authorization"`
	Body          ChangePasswordRequest
}

// MessageResponse contains a simple message.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps the message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	ip := extractIP(input.XForwardedFor, input.XRealIP)
	if ip == "" {
		ip = "unknown"
	}
	if !s.loginLimiter.Allow(ip) {
		s.logger.Warn("login rate limit exceeded", "ip", ip)
		return nil, domainerrors.RateLimited("too many login attempts, try again later")
	}

	result, err := s.services.Auth.Login(ctx, input.Body.Email, input.Body.Password)
	if err != nil {
		return nil, err
	}

	return &AuthOutput{
		Body: AuthResponse{
			AccessToken: result.Token,
			TokenType:   "Bearer",
			ExpiresIn:   int(s.services.Auth.TokenDuration().Seconds()),
			User:        mapUserResponse(result.User),
		},
	}, nil
}

func (s *Server) handleGetCurrentUser(ctx context.Context, input *struct {
	Authorization string `header:"Authorization"`
}) (*UserOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	return &UserOutput{Body: mapUserResponse(user)}, nil
}

func (s *Server) handleChangePassword(ctx context.Context, input *ChangePasswordInput) (*MessageOutput, error) {
	user, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	if err := s.services.Users.ChangePassword(ctx, user.ID, input.Body.CurrentPassword, input.Body.NewPassword); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Password changed"}}, nil
}
