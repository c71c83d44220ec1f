// Package gigachat is the chat-completion client for the upstream model API.
package gigachat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	apperrors "github.com/yourorg/gigachat-gateway/internal/errors"
	"github.com/yourorg/gigachat-gateway/internal/logging"
	"github.com/yourorg/gigachat-gateway/internal/openai"
)

const (
	requestTimeout = 60 * time.Second
	maxBodyBytes   = 4 << 20
)

//go:generate mockgen -destination=mock_token_source_test.go -package=gigachat . TokenSource

// TokenSource hands out bearer tokens. Refresh must bypass any cache.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	log        zerolog.Logger
}

// Completion is the first choice of a chat completion. Empty is set when the
// upstream answered without any choice.
type Completion struct {
	Content      string
	Model        string
	FinishReason string
	Usage        *openai.Usage
	Empty        bool
}

// StatusError is a non-2xx answer from the chat endpoint.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat endpoint returned %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error { return apperrors.ErrUpstream }

// NewHTTPClient returns the client used for chat calls.
func NewHTTPClient(insecureSkipVerify bool) *http.Client {
	c := &http.Client{Timeout: requestTimeout}
	if insecureSkipVerify {
		c.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return c
}

// NewClient creates a client for baseURL (the API root, without
// /chat/completions). A nil httpClient gets a default with a 60s timeout.
func NewClient(baseURL string, tokens TokenSource, logger zerolog.Logger, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(false)
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		log:        logging.Component(logger, "gigachat"),
	}
}

// Complete sends one chat completion. A 401 triggers one forced token
// refresh and exactly one retry; anything after that is returned as is.
func (c *Client) Complete(ctx context.Context, req openai.ChatCompletionsRequest) (Completion, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return Completion{}, fmt.Errorf("obtaining token: %w", err)
	}

	start := time.Now()
	resp, err := c.post(ctx, token, req)

	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized {
		c.log.Info().Msg("chat request unauthorized, forcing token refresh")
		token, err = c.tokens.Refresh(ctx)
		if err != nil {
			return Completion{}, fmt.Errorf("refreshing token after 401: %w", err)
		}
		resp, err = c.post(ctx, token, req)
	}

	c.log.Debug().
		Str("model", req.Model).
		Int("messages", len(req.Messages)).
		Dur("dur", time.Since(start)).
		Err(err).
		Msg("chat")
	if err != nil {
		return Completion{}, err
	}
	return completionFrom(resp), nil
}

func (c *Client) post(ctx context.Context, token string, payload openai.ChatCompletionsRequest) (*openai.ChatCompletionsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling chat request: %w", err)
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	r.Header.Set("Authorization", "Bearer "+token)
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(r)
	if err != nil {
		return nil, fmt.Errorf("%w: sending chat request: %w", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading chat response: %w", apperrors.ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	var out openai.ChatCompletionsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decoding chat response: %w", apperrors.ErrUpstream, err)
	}
	return &out, nil
}

func completionFrom(resp *openai.ChatCompletionsResponse) Completion {
	if len(resp.Choices) == 0 {
		return Completion{Model: resp.Model, Usage: resp.Usage, Empty: true}
	}
	ch := resp.Choices[0]
	return Completion{
		Content:      strings.TrimSpace(ch.Message.Content),
		Model:        resp.Model,
		FinishReason: ch.FinishReason,
		Usage:        resp.Usage,
	}
}

// errorMessage pulls a readable message out of an upstream error body, which
// comes either as {"message": ...} or as OpenAI's {"error": {"message": ...}}.
func errorMessage(raw []byte) string {
	if gjson.ValidBytes(raw) {
		for _, path := range []string{"message", "error.message", "error"} {
			if v := gjson.GetBytes(raw, path); v.Type == gjson.String && v.Str != "" {
				return v.Str
			}
		}
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return msg
}
