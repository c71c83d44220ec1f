package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourorg/gigachat-gateway/internal/logging"
)

const (
	windowMinute = "minute"
	retention    = time.Hour
)

// Counters is the fixed-window counter storage, satisfied by
// store.CountersRepo.
type Counters interface {
	IncAndCheck(ctx context.Context, subject, window string, windowStart time.Time, limit int) (bool, error)
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Postgres limits each key to rpm requests per calendar minute using shared
// counters, so the budget holds across gateway replicas.
type Postgres struct {
	counters Counters
	rpm      int
	log      zerolog.Logger
	now      func() time.Time

	mu         sync.Mutex
	lastPruned time.Time
}

func NewPostgres(counters Counters, rpm int, logger zerolog.Logger) *Postgres {
	return &Postgres{
		counters: counters,
		rpm:      rpm,
		log:      logging.Component(logger, "ratelimit"),
		now:      time.Now,
	}
}

func (p *Postgres) Allow(ctx context.Context, key string) (bool, error) {
	start := p.now().UTC().Truncate(time.Minute)
	p.maybePrune(ctx, start)
	return p.counters.IncAndCheck(ctx, key, windowMinute, start, p.rpm)
}

// maybePrune clears old windows once per new minute.
func (p *Postgres) maybePrune(ctx context.Context, start time.Time) {
	p.mu.Lock()
	if !start.After(p.lastPruned) {
		p.mu.Unlock()
		return
	}
	p.lastPruned = start
	p.mu.Unlock()

	n, err := p.counters.Prune(ctx, start.Add(-retention))
	if err != nil {
		p.log.Warn().Err(err).Msg("pruning rate-limit counters")
		return
	}
	if n > 0 {
		p.log.Debug().Int64("rows", n).Msg("pruned rate-limit counters")
	}
}
