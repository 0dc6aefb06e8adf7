package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/circulateapp/circulate-server/internal/domain"
)

func (s *Server) registerHolidayRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listHolidays",
		Method:      http.MethodGet,
		Path:        "/api/v1/holidays",
		Summary:     "List holidays",
		Description: "Returns all configured library-closed days",
		Tags:        []string{"Holidays"},
	}, s.handleListHolidays)

	huma.Register(s.api, huma.Operation{
		OperationID: "createHoliday",
		Method:      http.MethodPost,
		Path:        "/api/v1/holidays",
		Summary:     "Add holiday",
		Description: "Adds a one-off or annually recurring closed day. Admin only.",
		Tags:        []string{"Holidays"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateHoliday)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteHoliday",
		Method:      http.MethodDelete,
		Path:        "/api/v1/holidays/{id}",
		Summary:     "Delete holiday",
		Description: "Removes a closed day. Admin only.",
		Tags:        []string{"Holidays"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteHoliday)

	huma.Register(s.api, huma.Operation{
		OperationID: "nextBusinessDay",
		Method:      http.MethodGet,
		Path:        "/api/v1/holidays/next-business-day",
		Summary:     "Next business day",
		Description: "Returns the first open day on or after the given date",
		Tags:        []string{"Holidays"},
	}, s.handleNextBusinessDay)
}

// === DTOs ===

// HolidayResponse contains holiday data in API responses.
type HolidayResponse struct {
	ID          string    `json:"id" doc:"Holiday ID"`
	Name        string    `json:"name" doc:"Holiday name"`
	Date        time.Time `json:"date" doc:"Civil date"`
	IsRecurring bool      `json:"is_recurring" doc:"Repeats annually on the same month and day"`
}

// HolidayOutput wraps a holiday response for Huma.
type HolidayOutput struct {
	Body HolidayResponse
}

// ListHolidaysResponse contains all configured holidays.
type ListHolidaysResponse struct {
	Holidays []HolidayResponse `json:"holidays" doc:"Configured holidays"`
}

// ListHolidaysOutput wraps the holiday list for Huma.
type ListHolidaysOutput struct {
	Body ListHolidaysResponse
}

// CreateHolidayRequest is the request body for adding a holiday.
type CreateHolidayRequest struct {
	Name        string    `json:"name" validate:"required,min=1,max=100" doc:"Holiday name"`
	Date        time.Time `json:"date" validate:"required" doc:"Civil date"`
	IsRecurring bool      `json:"is_recurring,omitempty" doc:"Repeats annually"`
}

// CreateHolidayInput wraps the create holiday request for Huma.
type CreateHolidayInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateHolidayRequest
}

// DeleteHolidayInput contains parameters for removing a holiday.
type DeleteHolidayInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Holiday ID"`
}

// NextBusinessDayInput contains the date to resolve.
type NextBusinessDayInput struct {
	Date string `query:"date" doc:"Date in YYYY-MM-DD form, defaults to today"`
}

// NextBusinessDayResponse contains the resolved open day.
type NextBusinessDayResponse struct {
	Date string `json:"date" doc:"First open day on or after the input date, YYYY-MM-DD"`
}

// NextBusinessDayOutput wraps the next business day response for Huma.
type NextBusinessDayOutput struct {
	Body NextBusinessDayResponse
}

// === Handlers ===

func (s *Server) handleListHolidays(ctx context.Context, _ *struct{}) (*ListHolidaysOutput, error) {
	holidays, err := s.services.Calendar.ListHolidays(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]HolidayResponse, len(holidays))
	for i, h := range holidays {
		resp[i] = mapHolidayResponse(h)
	}

	return &ListHolidaysOutput{Body: ListHolidaysResponse{Holidays: resp}}, nil
}

func (s *Server) handleCreateHoliday(ctx context.Context, input *CreateHolidayInput) (*HolidayOutput, error) {
	if _, err := s.authenticateAndRequireAdmin(ctx, input.Authorization); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(&input.Body); err != nil {
		return nil, err
	}

	holiday, err := s.services.Calendar.AddHoliday(ctx, input.Body.Name, input.Body.Date, input.Body.IsRecurring)
	if err != nil {
		return nil, err
	}

	return &HolidayOutput{Body: mapHolidayResponse(holiday)}, nil
}

func (s *Server) handleDeleteHoliday(ctx context.Context, input *DeleteHolidayInput) (*MessageOutput, error) {
	if _, err := s.authenticateAndRequireAdmin(ctx, input.Authorization); err != nil {
		return nil, err
	}

	if err := s.services.Calendar.DeleteHoliday(ctx, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Holiday deleted"}}, nil
}

func (s *Server) handleNextBusinessDay(ctx context.Context, input *NextBusinessDayInput) (*NextBusinessDayOutput, error) {
	date := time.Now()
	if input.Date != "" {
		parsed, err := time.Parse(time.DateOnly, input.Date)
		if err != nil {
			return nil, huma.Error400BadRequest("date must be in YYYY-MM-DD form")
		}
		date = parsed
	}

	next := s.services.Calendar.NextBusinessDay(date)
	return &NextBusinessDayOutput{Body: NextBusinessDayResponse{Date: next.Format(time.DateOnly)}}, nil
}

// === Helpers ===

func mapHolidayResponse(h *domain.Holiday) HolidayResponse {
	return HolidayResponse{
		ID:          h.ID,
		Name:        h.Name,
		Date:        h.Date,
		IsRecurring: h.IsRecurring,
	}
}
