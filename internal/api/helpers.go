package api

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/circulateapp/circulate-server/internal/domain"
	domainerrors "github.com/circulateapp/circulate-server/internal/errors"
)

// authenticateRequest validates the Authorization header and returns the user.
func (s *Server) authenticateRequest(ctx context.Context, authHeader string) (*domain.User, error) {
	if authHeader == "" {
		return nil, huma.Error401Unauthorized("Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, huma.Error401Unauthorized("Invalid authorization header format")
	}

	user, err := s.services.Auth.Authenticate(ctx, parts[1])
	if err != nil {
		return nil, huma.Error401Unauthorized("Invalid or expired token")
	}

	return user, nil
}

// authenticateAndRequirePrivileged validates the token and requires a
// librarian or admin, the roles allowed to operate the circulation desk.
func (s *Server) authenticateAndRequirePrivileged(ctx context.Context, authHeader string) (*domain.User, error) {
	user, err := s.authenticateRequest(ctx, authHeader)
	if err != nil {
		return nil, err
	}

	if !user.IsPrivileged() {
		return nil, domainerrors.Forbidden("librarian access required")
	}

	return user, nil
}

// authenticateAndRequireAdmin validates the token and requires admin role.
func (s *Server) authenticateAndRequireAdmin(ctx context.Context, authHeader string) (*domain.User, error) {
	user, err := s.authenticateRequest(ctx, authHeader)
	if err != nil {
		return nil, err
	}

	if !user.IsAdmin() {
		return nil, domainerrors.Forbidden("admin access required")
	}

	return user, nil
}

// authenticateSelfOrPrivileged allows a user to act on their own account, or
// a librarian/admin to act on anyone's.
func (s *Server) authenticateSelfOrPrivileged(ctx context.Context, authHeader, targetUserID string) (*domain.User, error) {
	user, err := s.authenticateRequest(ctx, authHeader)
	if err != nil {
		return nil, err
	}

	if user.ID != targetUserID && !user.IsPrivileged() {
		return nil, domainerrors.Forbidden("access denied")
	}

	return user, nil
}

// extractIP returns the client IP from forwarding headers, preferring the
// first entry of X-Forwarded-For.
func extractIP(xForwardedFor, xRealIP string) string {
	if xForwardedFor != "" {
		for i := 0; i < len(xForwardedFor); i++ {
			if xForwardedFor[i] == ',' {
				return xForwardedFor[:i]
			}
		}
		return xForwardedFor
	}
	return xRealIP
}
