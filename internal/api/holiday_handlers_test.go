package api

import (
	"encoding/json/v2"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circulateapp/circulate-server/internal/domain"
)

func TestHolidayLifecycle(t *testing.T) {
	ts := setupTestServer(t)

	_, adminAuth := ts.createUser(t, domain.RoleAdmin)

	resp := ts.api.Post("/api/v1/holidays", adminAuth, map[string]any{
		"name":         "Founders Day",
		"date":         "2026-09-15T00:00:00Z",
		"is_recurring": true,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var created HolidayResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.True(t, created.IsRecurring)

	list := ts.api.Get("/api/v1/holidays")
	require.Equal(t, http.StatusOK, list.Code)
	var holidays ListHolidaysResponse
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &holidays))
	require.Len(t, holidays.Holidays, 1)

	del := ts.api.Delete("/api/v1/holidays/"+created.ID, adminAuth)
	require.Equal(t, http.StatusOK, del.Code)

	list = ts.api.Get("/api/v1/holidays")
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &holidays))
	assert.Empty(t, holidays.Holidays)
}

func TestCreateHoliday_AdminOnly(t *testing.T) {
	ts := setupTestServer(t)

	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)

	resp := ts.api.Post("/api/v1/holidays", librarianAuth, map[string]any{
		"name": "Sneaky Day Off",
		"date": "2026-10-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestNextBusinessDay(t *testing.T) {
	ts := setupTestServer(t)

	_, adminAuth := ts.createUser(t, domain.RoleAdmin)

	resp := ts.api.Post("/api/v1/holidays", adminAuth, map[string]any{
		"name": "Closure",
		"date": "2026-11-03T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	next := ts.api.Get("/api/v1/holidays/next-business-day?date=2026-11-03")
	require.Equal(t, http.StatusOK, next.Code)

	var body NextBusinessDayResponse
	require.NoError(t, json.Unmarshal(next.Body.Bytes(), &body))
	assert.Equal(t, "2026-11-04", body.Date)

	// An open day resolves to itself.
	open := ts.api.Get("/api/v1/holidays/next-business-day?date=2026-11-05")
	require.Equal(t, http.StatusOK, open.Code)
	require.NoError(t, json.Unmarshal(open.Body.Bytes(), &body))
	assert.Equal(t, "2026-11-05", body.Date)

	bad := ts.api.Get("/api/v1/holidays/next-business-day?date=not-a-date")
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}
