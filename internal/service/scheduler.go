package service

import (
	"context"
	"time"

	"multi-merchant-settlement/internal/core/ports"
	"multi-merchant-settlement/pkg/logger"

	"github.com/rs/zerolog"
)

// Scheduler runs the periodic sync sweep and sales cleanup.
type Scheduler struct {
	recon           ports.ReconciliationService
	syncInterval    time.Duration
	cleanupInterval time.Duration
	retentionDays   int
	log             zerolog.Logger
}

// NewScheduler creates a Scheduler. A non-positive interval disables that job.
func NewScheduler(recon ports.ReconciliationService, syncInterval, cleanupInterval time.Duration, retentionDays int, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		recon:           recon,
		syncInterval:    syncInterval,
		cleanupInterval: cleanupInterval,
		retentionDays:   retentionDays,
		log:             logger.Component(log, "scheduler"),
	}
}

// Run blocks until ctx is cancelled. Both jobs run on the calling goroutine.
func (s *Scheduler) Run(ctx context.Context) error {
	syncC, stopSync := tickerChan(s.syncInterval)
	defer stopSync()
	cleanupC, stopCleanup := tickerChan(s.cleanupInterval)
	defer stopCleanup()

	s.log.Info().
		Dur("sync_interval", s.syncInterval).
		Dur("cleanup_interval", s.cleanupInterval).
		Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-syncC:
			if _, err := s.recon.SyncAll(ctx); err != nil {
				s.log.Error().Err(err).Msg("scheduled sync failed")
			}
		case <-cleanupC:
			if _, err := s.recon.CleanupOldSales(ctx, s.retentionDays); err != nil {
				s.log.Error().Err(err).Msg("scheduled cleanup failed")
			}
		}
	}
}

// tickerChan returns a nil channel for a disabled job; receiving from it
// blocks forever.
func tickerChan(interval time.Duration) (<-chan time.Time, func()) {
	if interval <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(interval)
	return t.C, t.Stop
}
