package api

import (
	"encoding/json/v2"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circulateapp/circulate-server/internal/domain"
)

func TestGateScan_ToggleDirection(t *testing.T) {
	ts := setupTestServer(t)

	user, _ := ts.createUser(t, domain.RoleStudent)

	scan := func() GateScanResponse {
		resp := ts.api.Post("/api/v1/gate/scan", map[string]any{
			"barcode": user.Barcode,
			"station": "main-entrance",
		})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		var body GateScanResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		return body
	}

	first := scan()
	assert.Equal(t, "in", first.Direction)
	assert.Equal(t, user.ID, first.UserID)

	second := scan()
	assert.Equal(t, "out", second.Direction)

	third := scan()
	assert.Equal(t, "in", third.Direction)
}

func TestGateScan_SanitizesScannerNoise(t *testing.T) {
	ts := setupTestServer(t)

	user, _ := ts.createUser(t, domain.RoleStudent)

	resp := ts.api.Post("/api/v1/gate/scan", map[string]any{
		"barcode": "*" + user.Barcode + "\r\n",
		"station": "side-door",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body GateScanResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, user.ID, body.UserID)
}

func TestGateScan_InvalidBarcode(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/gate/scan", map[string]any{
		"barcode": "!!!",
		"station": "kiosk-a",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "INVALID_BARCODE", apiErr.Code)
}

func TestGateScan_UnknownBarcode(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/gate/scan", map[string]any{
		"barcode": "NOSUCH999",
		"station": "kiosk-b",
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	assert.Equal(t, "UNKNOWN_IDENTITY", apiErr.Code)
}

func TestListGateEvents(t *testing.T) {
	ts := setupTestServer(t)

	user, _ := ts.createUser(t, domain.RoleStudent)
	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)

	for i := 0; i < 3; i++ {
		resp := ts.api.Post("/api/v1/gate/scan", map[string]any{
			"barcode": user.Barcode,
			"station": "main-entrance",
		})
		require.Equal(t, http.StatusOK, resp.Code)
	}

	resp := ts.api.Get("/api/v1/gate/events?limit=2", librarianAuth)
	require.Equal(t, http.StatusOK, resp.Code)

	var body ListGateEventsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Events, 2)
	// Newest first: the third scan was an entry again.
	assert.Equal(t, "in", body.Events[0].Direction)
	assert.Equal(t, "out", body.Events[1].Direction)

	// The feed is staff-only.
	unauth := ts.api.Get("/api/v1/gate/events")
	assert.Equal(t, http.StatusUnauthorized, unauth.Code)
}
