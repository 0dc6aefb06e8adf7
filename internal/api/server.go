// Package api provides the HTTP API server and handlers for the Circulate application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/circulateapp/circulate-server/internal/ratelimit"
	"github.com/circulateapp/circulate-server/internal/service"
	"github.com/circulateapp/circulate-server/internal/store"
	"github.com/circulateapp/circulate-server/internal/validation"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Auth         *service.AuthService
	Users        *service.UserService
	Catalog      *service.CatalogService
	Circulation  *service.CirculationService
	Reservations *service.ReservationService
	Gate         *service.GateService
	Calendar     *service.CalendarService
	Settings     *service.SettingsService
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store     *store.Store
	services  *Services
	validator *validation.Validator

	// loginLimiter throttles login attempts per client IP.
	loginLimiter *ratelimit.KeyedRateLimiter
	// gateLimiter throttles gate scans per kiosk, absorbing scanner
	// double-fires without starving a busy entrance.
	gateLimiter *ratelimit.KeyedRateLimiter

	router *chi.Mux
	api    huma.API
	logger *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, services *Services, validator *validation.Validator, logger *slog.Logger) *Server {
	s := &Server{
		store:        st,
		services:     services,
		validator:    validator,
		loginLimiter: ratelimit.New(10.0/60.0, 5),
		gateLimiter:  ratelimit.New(2, 10),
		router:       chi.NewRouter(),
		logger:       logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Circulate API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}

	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()
	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// registerRoutes registers all API operations.
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerUserRoutes()
	s.registerCatalogRoutes()
	s.registerCirculationRoutes()
	s.registerReservationRoutes()
	s.registerGateRoutes()
	s.registerHolidayRoutes()
	s.registerSettingsRoutes()
}
