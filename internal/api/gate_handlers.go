package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/circulateapp/circulate-server/internal/domain"
	domainerrors "github.com/circulateapp/circulate-server/internal/errors"
)

func (s *Server) registerGateRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "gateScan",
		Method:      http.MethodPost,
		Path:        "/api/v1/gate/scan",
		Summary:     "Record gate scan",
		Description: "Resolves a kiosk barcode scan to a user and records an entry or exit event",
		Tags:        []string{"Gate"},
	}, s.handleGateScan)

	huma.Register(s.api, huma.Operation{
		OperationID: "listGateEvents",
		Method:      http.MethodGet,
		Path:        "/api/v1/gate/events",
		Summary:     "Recent gate events",
		Description: "Returns the most recent gate events, newest first. Librarian or admin only.",
		Tags:        []string{"Gate"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListGateEvents)
}

// === DTOs ===

// GateScanRequest is the request body for a kiosk scan.
type GateScanRequest struct {
	Barcode string `json:"barcode" validate:"required,max=200" doc:"Raw scanner output, sanitized server-side"`
	Station string `json:"station,omitempty" validate:"omitempty,max=50" doc:"Kiosk identifier, used for scan throttling"`
}

// GateScanInput wraps the scan request for Huma.
type GateScanInput struct {
	Body          GateScanRequest
	XForwardedFor string `header:"X-Forwarded-For"`
	XRealIP       string `header:"X-Real-IP"`
}

// GateScanResponse contains the outcome of an accepted scan.
type GateScanResponse struct {
	UserID      string    `json:"user_id" doc:"Resolved user ID"`
	DisplayName string    `json:"display_name" doc:"Resolved user name, for the kiosk greeting"`
	Direction   string    `json:"direction" doc:"in or out"`
	Timestamp   time.Time `json:"timestamp" doc:"When the event was recorded"`
}

// GateScanOutput wraps the scan response for Huma.
type GateScanOutput struct {
	Body GateScanResponse
}

// GateEventResponse contains one gate ledger entry.
type GateEventResponse struct {
	ID         string    `json:"id" doc:"Event ID"`
	UserID     string    `json:"user_id" doc:"User ID"`
	Barcode    string    `json:"barcode" doc:"Sanitized barcode"`
	Direction  string    `json:"direction" doc:"in or out"`
	OccurredAt time.Time `json:"occurred_at" doc:"Event timestamp"`
}

// ListGateEventsInput contains parameters for the gate event feed.
type ListGateEventsInput struct {
	Authorization string `header:"Authorization"`
	Limit         int    `query:"limit" default:"50" minimum:"1" maximum:"200" doc:"Number of events"`
}

// ListGateEventsResponse contains recent gate events.
type ListGateEventsResponse struct {
	Events []GateEventResponse `json:"events" doc:"Gate events, newest first"`
}

// ListGateEventsOutput wraps the event feed for Huma.
type ListGateEventsOutput struct {
	Body ListGateEventsResponse
}

// === Handlers ===

func (s *Server) handleGateScan(ctx context.Context, input *GateScanInput) (*GateScanOutput, error) {
	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	// Throttle per kiosk when identified, otherwise per source IP.
	key := input.Body.Station
	if key == "" {
		key = extractIP(input.XForwardedFor, input.XRealIP)
	}
	if key == "" {
		key = "unknown"
	}
	if !s.gateLimiter.Allow(key) {
		s.logger.Warn("gate scan rate limit exceeded", "station", key)
		return nil, domainerrors.RateLimited("scanning too fast, try again")
	}

	result, err := s.services.Gate.HandleScan(ctx, input.Body.Barcode)
	if err != nil {
		return nil, err
	}

	return &GateScanOutput{
		Body: GateScanResponse{
			UserID:      result.User.ID,
			DisplayName: result.User.DisplayName,
			Direction:   string(result.Direction),
			Timestamp:   result.Timestamp,
		},
	}, nil
}

func (s *Server) handleListGateEvents(ctx context.Context, input *ListGateEventsInput) (*ListGateEventsOutput, error) {
	if _, err := s.authenticateAndRequirePrivileged(ctx, input.Authorization); err != nil {
		return nil, err
	}

	events, err := s.services.Gate.RecentEvents(ctx, input.Limit)
	if err != nil {
		return nil, err
	}

	resp := make([]GateEventResponse, len(events))
	for i, e := range events {
		resp[i] = mapGateEvent(e)
	}

	return &ListGateEventsOutput{Body: ListGateEventsResponse{Events: resp}}, nil
}

// === Helpers ===

func mapGateEvent(e *domain.GateEvent) GateEventResponse {
	return GateEventResponse{
		ID:         e.ID,
		UserID:     e.UserID,
		Barcode:    e.Barcode,
		Direction:  string(e.Direction),
		OccurredAt: e.OccurredAt,
	}
}
