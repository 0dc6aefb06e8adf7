package domain

import "time"

// GateDirection is the direction of an accepted gate scan.
type GateDirection string

const (
	// GateIn records the user entering the library.
	GateIn GateDirection = "in"
	// GateOut records the user leaving.
	GateOut GateDirection = "out"
)

// Opposite returns the other direction.
func (d GateDirection) Opposite() GateDirection {
	if d == GateIn {
		return GateOut
	}
	return GateIn
}

// GateEvent is one accepted scan at the entry kiosk. Direction is derived from
// the user's previous event: a user last seen entering is now leaving, and
// vice versa. A user with no prior events is entering.
type GateEvent struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	Barcode    string        `json:"barcode"`
	Direction  GateDirection `json:"direction"`
	OccurredAt time.Time     `json:"occurred_at"`
}
