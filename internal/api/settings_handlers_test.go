package api

import (
	"encoding/json/v2"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circulateapp/circulate-server/internal/domain"
)

func TestGetSettings(t *testing.T) {
	ts := setupTestServer(t)

	_, borrowerAuth := ts.createUser(t, domain.RoleStudent)
	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)

	resp := ts.api.Get("/api/v1/settings", borrowerAuth)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Get("/api/v1/settings", librarianAuth)
	require.Equal(t, http.StatusOK, resp.Code)

	var settings SettingsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &settings))
	assert.Equal(t, 3, settings.MaxBooksPerStudent)
	assert.Equal(t, 14, settings.StandardLoanPeriodDays)
}

func TestUpdateSettings(t *testing.T) {
	ts := setupTestServer(t)

	_, librarianAuth := ts.createUser(t, domain.RoleLibrarian)
	_, adminAuth := ts.createUser(t, domain.RoleAdmin)

	// Librarians can read but not write policy.
	resp := ts.api.Patch("/api/v1/settings", librarianAuth, map[string]any{
		"renewal_cap": 2,
	})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Patch("/api/v1/settings", adminAuth, map[string]any{
		"renewal_cap":  2,
		"fine_per_day": 250,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var settings SettingsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &settings))
	assert.Equal(t, 2, settings.RenewalCap)
	assert.EqualValues(t, 250, settings.FinePerDay)
	assert.Equal(t, 2, settings.Version)

	// Untouched fields survive.
	assert.Equal(t, 3, settings.MaxBooksPerStudent)
}
