package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/circulateapp/circulate-server/internal/auth"
	"github.com/circulateapp/circulate-server/internal/domain"
	domainerrors "github.com/circulateapp/circulate-server/internal/errors"
	"github.com/circulateapp/circulate-server/internal/store"
)

// AuthService handles login and token verification.
type AuthService struct {
	store  *store.Store
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewAuthService creates an auth service.
func NewAuthService(st *store.Store, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:  st,
		tokens: tokens,
		logger: logger,
	}
}

// LoginResult carries the issued token and the authenticated user.
type LoginResult struct {
	Token string
	User  *domain.User
}

// Login verifies credentials and issues an access token.
// Unknown email and wrong password return the same error so the endpoint
// doesn't reveal which accounts exist.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.logger.Warn("failed login attempt", "user_id", user.ID)
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return &LoginResult{
		Token: token,
		User:  user,
	}, nil
}

// Authenticate resolves a bearer token to the current user record.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired token")
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

// TokenDuration returns the access token lifetime.
func (s *AuthService) TokenDuration() time.Duration {
	return s.tokens.AccessTokenDuration()
}
