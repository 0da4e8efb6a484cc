package service

import (
	"context"
	"time"

	"github.com/pharmadisti/pharmadisti-backend/pkg/logger"
)

// ExpiryScheduler runs the lot expiry sweep periodically.
// A zero interval disables the scheduler entirely.
type ExpiryScheduler struct {
	lots     *LotService
	interval time.Duration
	logger   *logger.Logger
	cancel   context.CancelFunc
}

// NewExpiryScheduler creates a new expiry scheduler
func NewExpiryScheduler(lots *LotService, interval time.Duration, log *logger.Logger) *ExpiryScheduler {
	return &ExpiryScheduler{
		lots:     lots,
		interval: interval,
		logger:   log,
	}
}

// Start starts the scheduler in a background goroutine
func (s *ExpiryScheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info().Msg("expiry scheduler disabled")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		s.logger.Info().Dur("interval", s.interval).Msg("expiry scheduler started")

		// Run an initial sweep immediately
		s.runSweep(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("expiry scheduler stopped")
				return
			case <-ticker.C:
				s.runSweep(ctx)
			}
		}
	}()
}

// Stop stops the scheduler goroutine
func (s *ExpiryScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *ExpiryScheduler) runSweep(ctx context.Context) {
	start := time.Now()

	count, err := s.lots.MarkExpiredLots(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("expiry sweep failed")
		return
	}

	s.logger.Info().
		Dur("duration", time.Since(start)).
		Int64("expired", count).
		Msg("expiry sweep completed")
}
