package domain

import "time"

// Holiday is a library-closed day. Recurring holidays repeat annually on the
// same month and day regardless of year.
type Holiday struct {
	Record
	Name        string    `json:"name"`
	Date        time.Time `json:"date"` // Civil date; time-of-day is ignored
	IsRecurring bool      `json:"is_recurring"`
}

// Matches reports whether the given date falls on this holiday.
func (h *Holiday) Matches(date time.Time) bool {
	if h.IsRecurring {
		return h.Date.Month() == date.Month() && h.Date.Day() == date.Day()
	}
	return SameDate(h.Date, date)
}
