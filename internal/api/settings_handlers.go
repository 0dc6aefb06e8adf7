package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/circulateapp/circulate-server/internal/domain"
	"github.com/circulateapp/circulate-server/internal/service"
)

func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSettings",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings",
		Summary:     "Get settings",
		Description: "Returns the current circulation policy. Librarian or admin only.",
		Tags:        []string{"Settings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSettings",
		Method:      http.MethodPatch,
		Path:        "/api/v1/settings",
		Summary:     "Update settings",
		Description: "Updates circulation policy fields. Changes apply prospectively. Admin only.",
		Tags:        []string{"Settings"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateSettings)
}

// === DTOs ===

// SettingsResponse contains circulation policy data in API responses.
type SettingsResponse struct {
	Version                     int       `json:"version" doc:"Policy version, bumped on every update"`
	ApplyFinesOnSunday          bool      `json:"apply_fines_on_sunday" doc:"Whether Sundays count toward fines"`
	MaxBooksPerStudent          int       `json:"max_books_per_student" doc:"Concurrent loan cap for students"`
	MaxBooksPerStaff            int       `json:"max_books_per_staff" doc:"Concurrent loan cap for staff"`
	StandardLoanPeriodDays      int       `json:"standard_loan_period_days" doc:"Default loan period"`
	RenewalCap                  int       `json:"renewal_cap" doc:"Maximum renewals per loan"`
	FinePerDay                  int64     `json:"fine_per_day" doc:"Fine per chargeable overdue day, smallest currency unit"`
	ReservationPickupWindowDays int       `json:"reservation_pickup_window_days" doc:"How far ahead pickups may be scheduled"`
	UpdatedAt                   time.Time `json:"updated_at" doc:"Last update timestamp"`
}

// SettingsOutput wraps the settings response for Huma.
type SettingsOutput struct {
	Body SettingsResponse
}

// GetSettingsInput contains parameters for reading settings.
type GetSettingsInput struct {
	Authorization string `header:"Authorization"`
}

// UpdateSettingsRequest is the request body for updating policy fields.
type UpdateSettingsRequest struct {
	ApplyFinesOnSunday          *bool  `json:"apply_fines_on_sunday,omitempty" doc:"Whether Sundays count toward fines"`
	MaxBooksPerStudent          *int   `json:"max_books_per_student,omitempty" validate:"omitempty,min=1" doc:"Concurrent loan cap for students"`
	MaxBooksPerStaff            *int   `json:"max_books_per_staff,omitempty" validate:"omitempty,min=1" doc:"Concurrent loan cap for staff"`
	StandardLoanPeriodDays      *int   `json:"standard_loan_period_days,omitempty" validate:"omitempty,min=1" doc:"Default loan period"`
	RenewalCap                  *int   `json:"renewal_cap,omitempty" validate:"omitempty,min=0" doc:"Maximum renewals per loan"`
	FinePerDay                  *int64 `json:"fine_per_day,omitempty" validate:"omitempty,min=0" doc:"Fine per chargeable overdue day"`
	ReservationPickupWindowDays *int   `json:"reservation_pickup_window_days,omitempty" validate:"omitempty,min=1" doc:"Pickup scheduling window"`
}

// UpdateSettingsInput wraps the update settings request for Huma.
type UpdateSettingsInput struct {
	Authorization string `header:"Authorization"`
	Body          UpdateSettingsRequest
}

// === Handlers ===

func (s *Server) handleGetSettings(ctx context.Context, input *GetSettingsInput) (*SettingsOutput, error) {
	if _, err := s.authenticateAndRequirePrivileged(ctx, input.Authorization); err != nil {
		return nil, err
	}

	settings, err := s.services.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	return &SettingsOutput{Body: mapSettingsResponse(settings)}, nil
}

func (s *Server) handleUpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*SettingsOutput, error) {
	if _, err := s.authenticateAndRequireAdmin(ctx, input.Authorization); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	settings, err := s.services.Settings.Update(ctx, service.UpdateSettingsRequest{
		ApplyFinesOnSunday:          input.Body.ApplyFinesOnSunday,
		MaxBooksPerStudent:          input.Body.MaxBooksPerStudent,
		MaxBooksPerStaff:            input.Body.MaxBooksPerStaff,
		StandardLoanPeriodDays:      input.Body.StandardLoanPeriodDays,
		RenewalCap:                  input.Body.RenewalCap,
		FinePerDay:                  input.Body.FinePerDay,
		ReservationPickupWindowDays: input.Body.ReservationPickupWindowDays,
	})
	if err != nil {
		return nil, err
	}

	return &SettingsOutput{Body: mapSettingsResponse(settings)}, nil
}

// === Helpers ===

func mapSettingsResponse(s *domain.LibrarySettings) SettingsResponse {
	return SettingsResponse{
		Version:                     s.Version,
		ApplyFinesOnSunday:          s.ApplyFinesOnSunday,
		MaxBooksPerStudent:          s.MaxBooksPerStudent,
		MaxBooksPerStaff:            s.MaxBooksPerStaff,
		StandardLoanPeriodDays:      s.StandardLoanPeriodDays,
		RenewalCap:                  s.RenewalCap,
		FinePerDay:                  s.FinePerDay,
		ReservationPickupWindowDays: s.ReservationPickupWindowDays,
		UpdatedAt:                   s.UpdatedAt,
	}
}
