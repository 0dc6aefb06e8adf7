package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/circulateapp/circulate-server/internal/logger"
	"github.com/circulateapp/circulate-server/internal/service"
)

// reservationSweepInterval is how often expired reservations are swept.
const reservationSweepInterval = 15 * time.Minute

// ReservationExpiryJob runs the periodic reservation expiry sweep.
type ReservationExpiryJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *ReservationExpiryJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideReservationExpiryJob provides the periodic reservation expiry job.
func ProvideReservationExpiryJob(i do.Injector) (*ReservationExpiryJob, error) {
	reservations := do.MustInvoke[*service.ReservationService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(reservationSweepInterval)
		defer ticker.Stop()

		// Initial sweep on startup
		if count, err := reservations.ExpireSweep(ctx); err != nil {
			log.Warn("Initial reservation sweep failed", "error", err)
		} else if count > 0 {
			log.Info("Initial reservation sweep completed", "expired", count)
		}

		for {
			select {
			case <-ticker.C:
				if count, err := reservations.ExpireSweep(ctx); err != nil {
					log.Warn("Reservation sweep failed", "error", err)
				} else if count > 0 {
					log.Info("Reservation sweep completed", "expired", count)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Reservation expiry job started")

	return &ReservationExpiryJob{cancel: cancel}, nil
}
