package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/circulateapp/circulate-server/internal/api"
	"github.com/circulateapp/circulate-server/internal/config"
	"github.com/circulateapp/circulate-server/internal/logger"
	"github.com/circulateapp/circulate-server/internal/service"
	"github.com/circulateapp/circulate-server/internal/validation"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	validator := do.MustInvoke[*validation.Validator](i)

	// Get all services
	authService := do.MustInvoke[*service.AuthService](i)
	userService := do.MustInvoke[*service.UserService](i)
	catalogService := do.MustInvoke[*service.CatalogService](i)
	circulationService := do.MustInvoke[*service.CirculationService](i)
	reservationService := do.MustInvoke[*service.ReservationService](i)
	gateService := do.MustInvoke[*service.GateService](i)
	calendarService := do.MustInvoke[*service.CalendarService](i)
	settingsService := do.MustInvoke[*service.SettingsService](i)

	services := &api.Services{
		Auth:         authService,
		Users:        userService,
		Catalog:      catalogService,
		Circulation:  circulationService,
		Reservations: reservationService,
		Gate:         gateService,
		Calendar:     calendarService,
		Settings:     settingsService,
	}

	handler := api.NewServer(storeHandle.Store, services, validator, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
