package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circulateapp/circulate-server/internal/domain"
	domainerrors "github.com/circulateapp/circulate-server/internal/errors"
)

func TestSanitizeBarcode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"clean", "LIB0042", "LIB0042"},
		{"scanner prefix garbage", "*LIB-0042\n", "LIB0042"},
		{"spaces and symbols", "  LIB 00 42!!", "LIB0042"},
		{"all symbols", "***---", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeBarcode(tt.raw))
		})
	}
}

func TestHandleScan_InvalidBarcode(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	for _, raw := range []string{"", "!!!", "x"} {
		_, err := env.gate.HandleScan(ctx, raw)
		assert.True(t, errors.Is(err, domainerrors.ErrInvalidBarcode), "raw=%q got %v", raw, err)
	}

	// 51 characters after sanitization is out of bounds too.
	long := make([]byte, 51)
	for i := range long {
		long[i] = 'A'
	}
	_, err := env.gate.HandleScan(ctx, string(long))
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidBarcode))
}

func TestHandleScan_UnknownIdentity(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.gate.HandleScan(context.Background(), "NOSUCH99")
	assert.True(t, errors.Is(err, domainerrors.ErrUnknownIdentity), "got %v", err)
}

func TestHandleScan_TogglesDirection(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	user := createTestUser(t, env, domain.RoleStudent)

	// First ever scan records an entry.
	first, err := env.gate.HandleScan(ctx, user.Barcode)
	require.NoError(t, err)
	assert.Equal(t, domain.GateIn, first.Direction)
	assert.Equal(t, user.ID, first.User.ID)

	second, err := env.gate.HandleScan(ctx, user.Barcode)
	require.NoError(t, err)
	assert.Equal(t, domain.GateOut, second.Direction)

	third, err := env.gate.HandleScan(ctx, user.Barcode)
	require.NoError(t, err)
	assert.Equal(t, domain.GateIn, third.Direction)
}

func TestHandleScan_SanitizesBeforeLookup(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	user := createTestUser(t, env, domain.RoleStudent)

	// Scanner noise around the barcode still resolves the user.
	result, err := env.gate.HandleScan(ctx, "*"+user.Barcode+"\r\n")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
}

func TestRecentEvents(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	userA := createTestUser(t, env, domain.RoleStudent)
	userB := createTestUser(t, env, domain.RoleStudent)

	_, err := env.gate.HandleScan(ctx, userA.Barcode)
	require.NoError(t, err)
	_, err = env.gate.HandleScan(ctx, userB.Barcode)
	require.NoError(t, err)

	events, err := env.gate.RecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	// Newest first.
	assert.Equal(t, userB.ID, events[0].UserID)
}
