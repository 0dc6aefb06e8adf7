package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/circulateapp/circulate-server/internal/domain"
	domainerrors "github.com/circulateapp/circulate-server/internal/errors"
	"github.com/circulateapp/circulate-server/internal/store"
)

// SettingsService reads and updates the single library settings row.
// Admission decisions read settings inside their own transaction, so an
// update never changes policy under an in-flight decision.
type SettingsService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewSettingsService creates a settings service.
func NewSettingsService(st *store.Store, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		store:  st,
		logger: logger,
	}
}

// Get returns the current settings.
func (s *SettingsService) Get(ctx context.Context) (*domain.LibrarySettings, error) {
	return s.store.GetSettings(ctx)
}

// UpdateSettingsRequest carries the updatable settings fields.
// Nil fields are left unchanged.
type UpdateSettingsRequest struct {
	ApplyFinesOnSunday          *bool
	MaxBooksPerStudent          *int
	MaxBooksPerStaff            *int
	StandardLoanPeriodDays      *int
	RenewalCap                  *int
	FinePerDay                  *int64
	ReservationPickupWindowDays *int
}

// Update applies the supplied fields and bumps the settings version.
// Changes apply prospectively: fines already frozen on returned loans are
// never recalculated.
func (s *SettingsService) Update(ctx context.Context, req UpdateSettingsRequest) (*domain.LibrarySettings, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	if req.ApplyFinesOnSunday != nil {
		settings.ApplyFinesOnSunday = *req.ApplyFinesOnSunday
	}
	if req.MaxBooksPerStudent != nil {
		settings.MaxBooksPerStudent = *req.MaxBooksPerStudent
	}
	if req.MaxBooksPerStaff != nil {
		settings.MaxBooksPerStaff = *req.MaxBooksPerStaff
	}
	if req.StandardLoanPeriodDays != nil {
		settings.StandardLoanPeriodDays = *req.StandardLoanPeriodDays
	}
	if req.RenewalCap != nil {
		settings.RenewalCap = *req.RenewalCap
	}
	if req.FinePerDay != nil {
		settings.FinePerDay = *req.FinePerDay
	}
	if req.ReservationPickupWindowDays != nil {
		settings.ReservationPickupWindowDays = *req.ReservationPickupWindowDays
	}

	if err := validateSettings(settings); err != nil {
		return nil, err
	}

	if err := s.store.UpdateSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}

	s.logger.Info("settings updated", "version", settings.Version)
	return settings, nil
}

func validateSettings(s *domain.LibrarySettings) error {
	if s.MaxBooksPerStudent < 1 || s.MaxBooksPerStaff < 1 {
		return domainerrors.Validation("borrowing caps must be at least 1")
	}
	if s.StandardLoanPeriodDays < 1 {
		return domainerrors.Validation("loan period must be at least 1 day")
	}
	if s.RenewalCap < 0 {
		return domainerrors.Validation("renewal cap cannot be negative")
	}
	if s.FinePerDay < 0 {
		return domainerrors.Validation("fine per day cannot be negative")
	}
	if s.ReservationPickupWindowDays < 1 {
		return domainerrors.Validation("pickup window must be at least 1 day")
	}
	return nil
}
