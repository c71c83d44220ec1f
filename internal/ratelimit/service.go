// Package ratelimit enforces per-caller request budgets.
package ratelimit

import (
	"context"
	"fmt"

	apperrors "github.com/yourorg/gigachat-gateway/internal/errors"
)

var ErrRateLimited = apperrors.ErrRateLimited

// Limiter counts one request for key and reports whether it is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Service is nil-safe: a nil Service or one without a limiter allows
// everything.
type Service struct {
	limiter Limiter
}

func New(l Limiter) *Service { return &Service{limiter: l} }

// Enabled reports whether requests are actually limited.
func (s *Service) Enabled() bool { return s != nil && s.limiter != nil }

// Allow returns ErrRateLimited when key has used up its budget.
func (s *Service) Allow(ctx context.Context, key string) error {
	if !s.Enabled() {
		return nil
	}
	ok, err := s.limiter.Allow(ctx, key)
	if err != nil {
		return fmt.Errorf("checking rate limit: %w", err)
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}
