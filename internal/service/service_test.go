package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/circulateapp/circulate-server/internal/domain"
	"github.com/circulateapp/circulate-server/internal/store"
)

// testEnv wires the full service stack against a temp database.
type testEnv struct {
	store        *store.Store
	calendar     *CalendarService
	fines        *FineService
	circulation  *CirculationService
	reservations *ReservationService
	gate         *GateService
	settings     *SettingsService
	users        *UserService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "circulate-service-test-*")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	testStore, err := store.Open(filepath.Join(tmpDir, "test.db"), logger)
	require.NoError(t, err)

	calendar, err := NewCalendarService(context.Background(), testStore, logger)
	require.NoError(t, err)

	fines := NewFineService(calendar)

	env := &testEnv{
		store:        testStore,
		calendar:     calendar,
		fines:        fines,
		circulation:  NewCirculationService(testStore, calendar, fines, logger),
		reservations: NewReservationService(testStore, logger),
		gate:         NewGateService(testStore, logger),
		settings:     NewSettingsService(testStore, logger),
		users:        NewUserService(testStore, logger),
	}

	t.Cleanup(func() {
		_ = testStore.Close()    //nolint:errcheck // Test cleanup
		_ = os.RemoveAll(tmpDir) //nolint:errcheck // Test cleanup
	})

	return env
}

var testUserSeq int

// createTestUser inserts a user directly into the store, bypassing password
// hashing for speed.
func createTestUser(t *testing.T, env *testEnv, role domain.Role) *domain.User {
	t.Helper()

	testUserSeq++
	now := time.Now()
	user := &domain.User{
		Record: domain.Record{
			ID:        fmt.Sprintf("usr-test-%d", testUserSeq),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:        fmt.Sprintf("user%d@example.com", testUserSeq),
		PasswordHash: "$argon2id$fakehashfortest",
		Role:         role,
		DisplayName:  fmt.Sprintf("Test User %d", testUserSeq),
		Barcode:      fmt.Sprintf("LIB%04d", testUserSeq),
		ValidityDate: now.AddDate(1, 0, 0),
	}
	require.NoError(t, env.store.CreateUser(context.Background(), user))
	return user
}

var testBookSeq int

func createTestBook(t *testing.T, env *testEnv, copies int) *domain.Book {
	t.Helper()

	testBookSeq++
	now := time.Now()
	book := &domain.Book{
		Record: domain.Record{
			ID:        fmt.Sprintf("bok-test-%d", testBookSeq),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Title:          fmt.Sprintf("Test Book %d", testBookSeq),
		Author:         "Test Author",
		NumberOfCopies: copies,
	}
	require.NoError(t, env.store.CreateBook(context.Background(), book))
	return book
}

// createTestLoan inserts a circulation record directly, for setting up
// overdue and historical states the services would refuse to create.
func createTestLoan(t *testing.T, env *testEnv, userID, bookID string, issued, due time.Time) *domain.CirculationRecord {
	t.Helper()

	rec := &domain.CirculationRecord{
		Record: domain.Record{
			ID:        fmt.Sprintf("cir-test-%s-%s-%d", userID, bookID, due.UnixNano()),
			CreatedAt: issued,
			UpdatedAt: issued,
		},
		UserID:    userID,
		BookID:    bookID,
		IssueDate: issued,
		DueDate:   due,
		IssuedBy:  "usr-desk",
	}
	require.NoError(t, env.store.CreateCirculation(context.Background(), rec))
	return rec
}
