package session

import (
	"context"
	"time"

	"wikibio/internal/infra"
)

// Purger reclaims a session's storage after it has been expired.
type Purger interface {
	PurgeSession(id string) error
}

// Sweeper evicts abandoned sessions in the background. Without it the
// session table grows until an administrative clear-all.
type Sweeper struct {
	registry *Registry
	purger   Purger
	logger   infra.Logger
	maxIdle  time.Duration
	interval time.Duration
}

// NewSweeper wires a sweeper over the registry and storage purger.
func NewSweeper(registry *Registry, purger Purger, logger infra.Logger, maxIdle, interval time.Duration) *Sweeper {
	return &Sweeper{
		registry: registry,
		purger:   purger,
		logger:   logger,
		maxIdle:  maxIdle,
		interval: interval,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	expired := s.registry.ExpireIdle(s.maxIdle)
	for _, id := range expired {
		if err := s.purger.PurgeSession(id); err != nil {
			s.logger.Error().Err(err).Str("session_id", id).Msg("sweeper: purge failed")
			continue
		}
		s.registry.Forget(id)
	}
	if len(expired) > 0 {
		s.logger.Info().Int("evicted", len(expired)).Msg("sweeper: evicted idle sessions")
	}
}
