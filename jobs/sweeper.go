package jobs

import (
	"context"
	"time"

	"inventory-ledger/services"

	"go.uber.org/zap"
)

// Sweeper periodically expires overdue reservations. It is an in-process
// convenience around the same idempotent sweep entry point the HTTP trigger
// uses, so running it alongside an external cron is safe.
type Sweeper struct {
	reservations services.ReservationService
	interval     time.Duration
	logger       *zap.Logger
}

// NewSweeper creates a Sweeper. Interval must be positive; callers disable
// the sweeper by not starting it.
func NewSweeper(reservations services.ReservationService, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{reservations: reservations, interval: interval, logger: logger}
}

// Run sweeps on every tick until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("Reservation sweeper started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reservation sweeper stopped")
			return
		case <-ticker.C:
			swept, svcErr := s.reservations.SweepExpired(ctx, time.Now().UTC())
			if svcErr != nil {
				s.logger.Error("Expiry sweep failed", zap.String("error", svcErr.Message))
				continue
			}
			if swept.Processed > 0 {
				s.logger.Info("Expired reservations swept", zap.Int("processed", swept.Processed))
			}
		}
	}
}
