package auth

import (
	"fmt"
	"net/http"

	apperrors "github.com/yourorg/gigachat-gateway/internal/errors"
)

// Error is returned when every exchange attempt failed. It matches
// errors.ErrAuth and wraps the last attempt's failure.
type Error struct {
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v after %d attempt(s): %v", apperrors.ErrAuth, e.Attempts, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{apperrors.ErrAuth, e.Err}
}

// StatusError is a non-2xx answer from the auth endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("auth endpoint returned %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// RateLimited reports whether the provider throttled the exchange.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}
