package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/circulateapp/circulate-server/internal/auth"
	"github.com/circulateapp/circulate-server/internal/logger"
	"github.com/circulateapp/circulate-server/internal/service"
	"github.com/circulateapp/circulate-server/internal/validation"
)

// ProvideValidator provides the request body validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideCalendarService provides the holiday calendar service.
func ProvideCalendarService(i do.Injector) (*service.CalendarService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCalendarService(context.Background(), storeHandle.Store, log.Logger)
}

// ProvideFineService provides the fine computation service.
func ProvideFineService(i do.Injector) (*service.FineService, error) {
	calendar := do.MustInvoke[*service.CalendarService](i)

	return service.NewFineService(calendar), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, log.Logger), nil
}

// ProvideUserService provides the user management service.
func ProvideUserService(i do.Injector) (*service.UserService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUserService(storeHandle.Store, log.Logger), nil
}

// ProvideCatalogService provides the catalog service.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCatalogService(storeHandle.Store, indexHandle.CatalogIndex, log.Logger), nil
}

// ProvideCirculationService provides the loan lifecycle service.
func ProvideCirculationService(i do.Injector) (*service.CirculationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	calendar := do.MustInvoke[*service.CalendarService](i)
	fines := do.MustInvoke[*service.FineService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCirculationService(storeHandle.Store, calendar, fines, log.Logger), nil
}

// ProvideReservationService provides the reservation queue service.
func ProvideReservationService(i do.Injector) (*service.ReservationService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReservationService(storeHandle.Store, log.Logger), nil
}

// ProvideGateService provides the entry gate service.
func ProvideGateService(i do.Injector) (*service.GateService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewGateService(storeHandle.Store, log.Logger), nil
}

// ProvideSettingsService provides the circulation policy settings service.
func ProvideSettingsService(i do.Injector) (*service.SettingsService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSettingsService(storeHandle.Store, log.Logger), nil
}
