package api

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circulateapp/circulate-server/internal/auth"
	"github.com/circulateapp/circulate-server/internal/domain"
	"github.com/circulateapp/circulate-server/internal/search"
	"github.com/circulateapp/circulate-server/internal/service"
	"github.com/circulateapp/circulate-server/internal/store"
	"github.com/circulateapp/circulate-server/internal/validation"
)

// testServer wraps the API server with a humatest client.
type testServer struct {
	*Server
	api          humatest.TestAPI
	tokenService *auth.TokenService
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.Open(tmpDir+"/test.db", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() }) //nolint:errcheck // Test cleanup

	index, err := search.NewCatalogIndex(search.Options{DataPath: tmpDir, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() }) //nolint:errcheck // Test cleanup

	keyHex := strings.Repeat("ab", 32)
	tokenService, err := auth.NewTokenService(keyHex, 15*time.Minute)
	require.NoError(t, err)

	calendar, err := service.NewCalendarService(context.Background(), st, logger)
	require.NoError(t, err)
	fines := service.NewFineService(calendar)

	services := &Services{
		Auth:         service.NewAuthService(st, tokenService, logger),
		Users:        service.NewUserService(st, logger),
		Catalog:      service.NewCatalogService(st, index, logger),
		Circulation:  service.NewCirculationService(st, calendar, fines, logger),
		Reservations: service.NewReservationService(st, logger),
		Gate:         service.NewGateService(st, logger),
		Calendar:     calendar,
		Settings:     service.NewSettingsService(st, logger),
	}

	s := NewServer(st, services, validation.New(), logger)

	return &testServer{
		Server:       s,
		api:          humatest.Wrap(t, s.api),
		tokenService: tokenService,
	}
}

var apiUserSeq int

// createUser inserts a user directly into the store and returns it with a
// valid bearer token. Password hashing is skipped for speed; login tests
// create their own user with a real hash.
func (ts *testServer) createUser(t *testing.T, role domain.Role) (*domain.User, string) {
	t.Helper()

	apiUserSeq++
	now := time.Now()
	user := &domain.User{
		Record: domain.Record{
			ID:        fmt.Sprintf("usr-api-%d", apiUserSeq),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:        fmt.Sprintf("api%d@example.com", apiUserSeq),
		PasswordHash: "$argon2id$fakehashfortest",
		Role:         role,
		DisplayName:  fmt.Sprintf("API User %d", apiUserSeq),
		Barcode:      fmt.Sprintf("API%04d", apiUserSeq),
		ValidityDate: now.AddDate(1, 0, 0),
	}
	require.NoError(t, ts.store.CreateUser(context.Background(), user))

	token, err := ts.tokenService.GenerateAccessToken(user)
	require.NoError(t, err)

	return user, "Authorization: Bearer " + token
}

var apiBookSeq int

func (ts *testServer) createBook(t *testing.T, copies int) *domain.Book {
	t.Helper()

	apiBookSeq++
	now := time.Now()
	book := &domain.Book{
		Record: domain.Record{
			ID:        fmt.Sprintf("bok-api-%d", apiBookSeq),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Title:          fmt.Sprintf("API Book %d", apiBookSeq),
		Author:         "API Author",
		NumberOfCopies: copies,
	}
	require.NoError(t, ts.store.CreateBook(context.Background(), book))
	return book
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "healthy", body.Components["database"].Status)
	assert.Equal(t, "healthy", body.Components["search"].Status)
}

func TestLogin_Success(t *testing.T) {
	ts := setupTestServer(t)

	hash, err := auth.HashPassword("CorrectHorse9!")
	require.NoError(t, err)

	now := time.Now()
	user := &domain.User{
		Record:       domain.Record{ID: "usr-login-1", CreatedAt: now, UpdatedAt: now},
		Email:        "borrower@example.com",
		PasswordHash: hash,
		Role:         domain.RoleStudent,
		DisplayName:  "Borrower",
		Barcode:      "LOGIN001",
		ValidityDate: now.AddDate(1, 0, 0),
	}
	require.NoError(t, ts.store.CreateUser(context.Background(), user))

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "borrower@example.com",
		"password": "CorrectHorse9!",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.NotEmpty(t, body.AccessToken)
	assert.Equal(t, "Bearer", body.TokenType)
	assert.Equal(t, "borrower@example.com", body.User.Email)
	assert.Positive(t, body.ExpiresIn)

	// Issued token works against a protected endpoint.
	me := ts.api.Get("/api/v1/auth/me", "Authorization: Bearer "+body.AccessToken)
	assert.Equal(t, http.StatusOK, me.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	ts := setupTestServer(t)

	hash, err := auth.HashPassword("CorrectHorse9!")
	require.NoError(t, err)

	now := time.Now()
	user := &domain.User{
		Record:       domain.Record{ID: "usr-login-2", CreatedAt: now, UpdatedAt: now},
		Email:        "borrower2@example.com",
		PasswordHash: hash,
		Role:         domain.RoleStudent,
		DisplayName:  "Borrower",
		Barcode:      "LOGIN002",
		ValidityDate: now.AddDate(1, 0, 0),
	}
	require.NoError(t, ts.store.CreateUser(context.Background(), user))

	resp := ts.api.Post("/api/v1/auth/login", map[string]any{
		"email":    "borrower2@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "INVALID_CREDENTIALS", apiErr.Code)
}

func TestLogin_RateLimited(t *testing.T) {
	ts := setupTestServer(t)

	var last int
	for i := 0; i < 6; i++ {
		resp := ts.api.Post("/api/v1/auth/login", map[string]any{
			"email":    "nobody@example.com",
			"password": "whatever1",
		})
		last = resp.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestProtectedEndpointRequiresToken(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/auth/me")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Get("/api/v1/auth/me", "Authorization: Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestChangePassword(t *testing.T) {
	ts := setupTestServer(t)

	hash, err := auth.HashPassword("OldPassword1!")
	require.NoError(t, err)

	now := time.Now()
	user := &domain.User{
		Record:       domain.Record{ID: "usr-chpw-1", CreatedAt: now, UpdatedAt: now},
		Email:        "chpw@example.com",
		PasswordHash: hash,
		Role:         domain.RoleStudent,
		DisplayName:  "Changer",
		Barcode:      "CHPW0001",
		ValidityDate: now.AddDate(1, 0, 0),
	}
	require.NoError(t, ts.store.CreateUser(context.Background(), user))

	token, err := ts.tokenService.GenerateAccessToken(user)
	require.NoError(t, err)
	authHeader := "Authorization: Bearer " + token

	// Wrong current password is rejected.
	resp := ts.api.Post("/api/v1/auth/change-password", authHeader, map[string]any{
		"current_password": "nope",
		"new_password":     "NewPassword1!",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Post("/api/v1/auth/change-password", authHeader, map[string]any{
		"current_password": "OldPassword1!",
		"new_password":     "NewPassword1!",
	})
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	updated, err := ts.store.GetUser(context.Background(), user.ID)
	require.NoError(t, err)
	ok, err := auth.VerifyPassword(updated.PasswordHash, "NewPassword1!")
	require.NoError(t, err)
	assert.True(t, ok)
}
