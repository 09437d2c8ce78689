package dropi

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Processor periodically re-syncs every active connection so cached
// data stays fresh without manual triggers.
type Processor struct {
	service  *Service
	interval time.Duration
}

func NewProcessor(service *Service, interval time.Duration) *Processor {
	if interval <= 0 {
		interval = 2 * time.Hour
	}
	return &Processor{
		service:  service,
		interval: interval,
	}
}

// Start begins the periodic sync loop
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "sync_processor").Logger()
	logger.Info().Dur("interval", p.interval).Msg("starting sync processor")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down sync processor")
			return
		case <-ticker.C:
			p.service.SyncAll(ctx)
		}
	}
}
