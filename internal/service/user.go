package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/circulateapp/circulate-server/internal/auth"
	"github.com/circulateapp/circulate-server/internal/domain"
	domainerrors "github.com/circulateapp/circulate-server/internal/errors"
	"github.com/circulateapp/circulate-server/internal/id"
	"github.com/circulateapp/circulate-server/internal/store"
)

// UserService handles member and staff account management.
type UserService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewUserService creates a user service.
func NewUserService(st *store.Store, logger *slog.Logger) *UserService {
	return &UserService{
		store:  st,
		logger: logger,
	}
}

// CreateUserRequest carries the fields for a new account.
type CreateUserRequest struct {
	Email        string
	Password     string
	DisplayName  string
	Role         domain.Role
	Barcode      string
	ValidityDate time.Time
}

// Create registers a new account. The initial password is set by the admin,
// so the account is flagged to change it on first login.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	if !req.Role.Valid() {
		return nil, domainerrors.Validationf("unknown role %q", req.Role)
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, domainerrors.Validation("invalid password").WithCause(err)
	}

	userID, err := id.Generate("usr")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		Record: domain.Record{
			ID:        userID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:              strings.TrimSpace(req.Email),
		PasswordHash:       passwordHash,
		Role:               req.Role,
		DisplayName:        req.DisplayName,
		Barcode:            req.Barcode,
		ValidityDate:       domain.DateOnly(req.ValidityDate),
		MustChangePassword: true,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("an account with this email or barcode already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user created", "user_id", userID, "role", req.Role)
	return user, nil
}

// Get returns a single user.
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.store.ListUsers(ctx)
}

// UpdateUserRequest contains the fields that can be updated on a user.
// Nil fields are left unchanged.
type UpdateUserRequest struct {
	DisplayName  *string
	Role         *domain.Role
	Barcode      *string
	ValidityDate *time.Time
}

// Update applies the supplied fields to a user.
func (s *UserService) Update(ctx context.Context, userID string, req UpdateUserRequest) (*domain.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Role != nil {
		if !req.Role.Valid() {
			return nil, domainerrors.Validationf("unknown role %q", *req.Role)
		}
		user.Role = *req.Role
	}
	if req.Barcode != nil {
		user.Barcode = *req.Barcode
	}
	if req.ValidityDate != nil {
		user.ValidityDate = domain.DateOnly(*req.ValidityDate)
	}
	user.Touch()

	if err := s.store.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("an account with this email or barcode already exists")
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("user updated", "user_id", userID)
	return user, nil
}

// ChangePassword replaces the user's password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, currentPassword)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return domainerrors.InvalidCredentials("current password is incorrect")
	}

	newHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return domainerrors.Validation("invalid password").WithCause(err)
	}

	user.PasswordHash = newHash
	user.MustChangePassword = false
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// PayFine records a fine payment against the user's outstanding balance.
// The balance never goes below zero.
func (s *UserService) PayFine(ctx context.Context, userID string, amount int64) (*domain.User, error) {
	if amount <= 0 {
		return nil, domainerrors.Validation("payment amount must be positive")
	}

	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.store.AddUserFine(ctx, userID, -amount); err != nil {
		return nil, fmt.Errorf("apply fine payment: %w", err)
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("fine payment recorded", "user_id", userID, "amount", amount, "remaining", user.OutstandingFine)
	return user, nil
}
