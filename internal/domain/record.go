// Package domain defines the core types of the circulation system: users,
// books, circulation records, reservations, holidays, and gate events.
package domain

import "time"

// Record holds the identity and bookkeeping fields shared by all persisted entities.
type Record struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch updates the record's UpdatedAt timestamp.
func (r *Record) Touch() {
	r.UpdatedAt = time.Now()
}

// DateOnly truncates t to its civil date in t's location.
// All due-date, holiday, and fine arithmetic operates on civil dates.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDate reports whether a and b fall on the same civil date.
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
