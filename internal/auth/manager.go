// Package auth owns the upstream bearer token: it performs the
// client-credentials exchange, caches the result until expiry and coordinates
// concurrent refreshes so that at most one exchange is in flight.
package auth

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/yourorg/gigachat-gateway/internal/logging"
)

const (
	// MaxRefreshAttempts bounds the exchange attempts of one refresh.
	MaxRefreshAttempts = 3

	exchangeTimeout = 30 * time.Second
	backoffStep     = 5 * time.Second
	maxBodyBytes    = 1 << 20
	flightKey       = "token"
)

// Token status values reported by Status.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// Status is a point-in-time view of the token state.
type Status struct {
	TokenStatus     string     `json:"token_status"`
	ExpiresAt       *time.Time `json:"token_expires_at"`
	LastRefreshAt   *time.Time `json:"last_refresh_at"`
	RefreshAttempts int        `json:"refresh_attempts"`
	LastError       string     `json:"last_error,omitempty"`
}

type Manager struct {
	creds      Credentials
	httpClient *http.Client
	log        zerolog.Logger

	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	requestID func() string

	flight singleflight.Group

	mu          sync.RWMutex
	token       *oauth2.Token
	attempts    int
	lastRefresh time.Time
	lastErr     error
}

type Option func(*Manager)

// WithHTTPClient replaces the client used for the exchange.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// WithInsecureSkipVerify disables TLS verification of the auth endpoint.
func WithInsecureSkipVerify() Option {
	return func(m *Manager) {
		m.httpClient = &http.Client{
			Timeout: exchangeTimeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSleep replaces the backoff wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Manager) { m.sleep = sleep }
}

func NewManager(creds Credentials, logger zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		creds:      creds,
		httpClient: &http.Client{Timeout: exchangeTimeout},
		log:        logging.Component(logger, "token_manager"),
		now:        time.Now,
		sleep:      sleepContext,
		requestID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns a bearer token that has not expired yet, refreshing first when
// there is none or the cached one is at or past its expiry.
func (m *Manager) Token(ctx context.Context) (string, error) {
	if tok, ok := m.cached(); ok {
		return tok, nil
	}
	return m.Refresh(ctx)
}

// Refresh performs the exchange regardless of the cached token's validity.
// Concurrent callers share a single in-flight exchange. The exchange itself
// is not bound to ctx, so a caller giving up does not fail the others.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	ch := m.flight.DoChan(flightKey, func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Status reports whether the cached token is still active.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Status{TokenStatus: StatusExpired, RefreshAttempts: m.attempts}
	if m.token != nil {
		exp := m.token.Expiry
		st.ExpiresAt = &exp
		if m.now().Before(exp) {
			st.TokenStatus = StatusActive
		}
	}
	if !m.lastRefresh.IsZero() {
		last := m.lastRefresh
		st.LastRefreshAt = &last
	}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	return st
}

func (m *Manager) cached() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil || !m.now().Before(m.token.Expiry) {
		return "", false
	}
	return m.token.AccessToken, true
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	var (
		lastErr error
		attempt int
	)
	for attempt = 1; attempt <= MaxRefreshAttempts; attempt++ {
		m.setAttempts(attempt)

		tok, err := m.exchange(ctx)
		if err == nil {
			m.store(tok)
			m.log.Info().
				Time("expires_at", tok.Expiry).
				Int("attempt", attempt).
				Msg("token refreshed")
			return tok.AccessToken, nil
		}
		lastErr = err

		ev := m.log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", MaxRefreshAttempts)
		var se *StatusError
		if errors.As(err, &se) && se.RateLimited() {
			ev = ev.Bool("rate_limited", true)
		}
		ev.Msg("token exchange failed")

		if attempt == MaxRefreshAttempts {
			break
		}
		if err := m.sleep(ctx, backoffStep*time.Duration(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	authErr := &Error{Attempts: attempt, Err: lastErr}
	m.mu.Lock()
	m.lastErr = authErr
	m.mu.Unlock()
	m.log.Error().Err(authErr).Msg("token refresh exhausted")
	return "", authErr
}

func (m *Manager) exchange(ctx context.Context) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.creds.AuthURL, strings.NewReader(m.creds.form().Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", m.requestID())
	m.creds.authorize(req)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return TokenFromResponse(body, m.now())
}

func (m *Manager) setAttempts(n int) {
	m.mu.Lock()
	m.attempts = n
	m.mu.Unlock()
}

// store swaps the token and its expiry in one step.
func (m *Manager) store(tok *oauth2.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = tok
	m.attempts = 0
	m.lastRefresh = m.now()
	m.lastErr = nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
