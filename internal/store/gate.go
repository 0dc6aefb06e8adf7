package store

import (
	"context"
	"database/sql"

	"github.com/circulateapp/circulate-server/internal/domain"
)

// InsertGateEvent records an accepted gate scan.
func (q *queries) InsertGateEvent(ctx context.Context, e *domain.GateEvent) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO gate_events (id, user_id, barcode, direction, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Barcode, string(e.Direction), formatTime(e.OccurredAt))
	return err
}

// LastGateDirection returns the direction of the user's most recent gate
// event, or ErrNotFound for a user with no events.
func (q *queries) LastGateDirection(ctx context.Context, userID string) (domain.GateDirection, error) {
	var dir string
	err := q.db.QueryRowContext(ctx, `
		SELECT direction FROM gate_events
		WHERE user_id = ? ORDER BY occurred_at DESC, id DESC LIMIT 1`,
		userID).Scan(&dir)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return domain.GateDirection(dir), nil
}

// ListRecentGateEvents returns the newest gate events, for the kiosk dashboard.
func (q *queries) ListRecentGateEvents(ctx context.Context, limit int) ([]*domain.GateEvent, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, barcode, direction, occurred_at FROM gate_events
		ORDER BY occurred_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.GateEvent
	for rows.Next() {
		var e domain.GateEvent
		var dir, occurredAt string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Barcode, &dir, &occurredAt); err != nil {
			return nil, err
		}
		e.Direction = domain.GateDirection(dir)
		if e.OccurredAt, err = parseTime(occurredAt); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
