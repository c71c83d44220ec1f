package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Memory is a sliding-window limiter kept in process memory.
type Memory struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	window   time.Duration
	max      int
	now      func() time.Time
}

func NewMemory(window time.Duration, max int) *Memory {
	return &Memory{
		requests: make(map[string][]time.Time),
		window:   window,
		max:      max,
		now:      time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	windowStart := now.Add(-m.window)

	valid := m.requests[key][:0]
	for _, t := range m.requests[key] {
		if t.After(windowStart) {
			valid = append(valid, t)
		}
	}

	if len(valid) >= m.max {
		m.requests[key] = valid
		return false, nil
	}
	m.requests[key] = append(valid, now)
	return true, nil
}

// Sweep drops keys with no request inside the window.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.window)
	removed := 0
	for key, times := range m.requests {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(m.requests, key)
			removed++
		}
	}
	return removed
}

// Run sweeps idle keys once per window until ctx is done.
func (m *Memory) Run(ctx context.Context) error {
	t := time.NewTicker(m.window)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.Sweep()
		}
	}
}
