// Package errors holds the sentinel errors shared across the gateway.
// Concrete error types in other packages wrap one of these so callers can
// classify failures with errors.Is.
package errors

import "errors"

// Upstream auth errors.
var (
	ErrAuth         = errors.New("upstream authentication failed")
	ErrAuthProtocol = errors.New("unusable token response")
)

// Upstream chat errors.
var (
	ErrUpstream = errors.New("upstream chat request failed")
)

// Client errors.
var (
	ErrValidation  = errors.New("invalid request")
	ErrRateLimited = errors.New("rate limit exceeded")
	ErrNotFound    = errors.New("not found")
)
