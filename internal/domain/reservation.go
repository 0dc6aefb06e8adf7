package domain

import "time"

// ReservationStatus represents the lifecycle state of a reservation.
// The three terminal states (fulfilled, cancelled, expired) are final.
type ReservationStatus string

const (
	// ReservationActive is a pending entry in the book's queue.
	ReservationActive ReservationStatus = "active"
	// ReservationFulfilled means the book was issued against this reservation.
	ReservationFulfilled ReservationStatus = "fulfilled"
	// ReservationCancelled means the holder withdrew.
	ReservationCancelled ReservationStatus = "cancelled"
	// ReservationExpired means the pickup deadline passed.
	ReservationExpired ReservationStatus = "expired"
)

// Terminal reports whether the status is final.
func (s ReservationStatus) Terminal() bool {
	return s != ReservationActive
}

// Reservation is one user's place in a book's pickup queue.
//
// QueuePosition is 1-based and dense per book: active reservations for a book
// always occupy positions 1..N with no gaps. The store re-densifies positions
// whenever an earlier entry leaves the queue.
type Reservation struct {
	Record
	UserID          string            `json:"user_id"`
	BookID          string            `json:"book_id"`
	ReservationDate time.Time         `json:"reservation_date"`
	PickupDate      time.Time         `json:"pickup_date"`
	PickupDeadline  time.Time         `json:"pickup_deadline"`
	QueuePosition   int               `json:"queue_position"`
	Status          ReservationStatus `json:"status"`
	Notes           string            `json:"notes,omitempty"`
}

// IsActive reports whether the reservation is still queued.
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationActive
}

// IsExpired reports whether an active reservation has passed its pickup deadline.
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.IsActive() && now.After(r.PickupDeadline)
}
