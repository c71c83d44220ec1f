package auth

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourorg/gigachat-gateway/internal/logging"
)

// DefaultRefreshInterval is how often the refresher renews the token.
const DefaultRefreshInterval = time.Minute

type refreshable interface {
	Refresh(ctx context.Context) (string, error)
}

// Refresher renews the token on a fixed interval regardless of its expiry,
// keeping the cache warm. A failed tick is logged and the next tick tries
// again.
type Refresher struct {
	tokens   refreshable
	interval time.Duration
	log      zerolog.Logger
}

func NewRefresher(tokens refreshable, interval time.Duration, logger zerolog.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		tokens:   tokens,
		interval: interval,
		log:      logging.Component(logger, "token_refresher"),
	}
}

// Run blocks until ctx is cancelled. It always returns nil so that it can sit
// in an errgroup without tearing down its siblings.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Msg("token refresher started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("token refresher stopped")
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	start := time.Now()
	if _, err := r.tokens.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.log.Error().Err(err).Msg("scheduled token refresh failed")
		return
	}
	r.log.Debug().Dur("dur", time.Since(start)).Msg("scheduled token refresh")
}
