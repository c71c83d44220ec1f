package gigachat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	apperrors "github.com/yourorg/gigachat-gateway/internal/errors"
	"github.com/yourorg/gigachat-gateway/internal/openai"
)

func chatRequest() openai.ChatCompletionsRequest {
	return openai.ChatCompletionsRequest{
		Model:       "GigaChat",
		Messages:    openai.UserMessage("hello"),
		Temperature: 0.7,
		MaxTokens:   1500,
	}
}

const okBody = `{"model":"GigaChat","choices":[{"index":0,"message":{"role":"assistant","content":"  hi there \n"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`

func TestComplete_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := NewMockTokenSource(ctrl)
	tokens.EXPECT().Token(gomock.Any()).Return("tok-1", nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var got openai.ChatCompletionsRequest
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, chatRequest(), got)

		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", tokens, zerolog.Nop(), srv.Client())
	got, err := c.Complete(context.Background(), chatRequest())
	require.NoError(t, err)
	assert.Equal(t, "hi there", got.Content)
	assert.Equal(t, "stop", got.FinishReason)
	assert.False(t, got.Empty)
	require.NotNil(t, got.Usage)
	assert.Equal(t, 5, got.Usage.TotalTokens)
}

func TestComplete_UnauthorizedRefreshesOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := NewMockTokenSource(ctrl)
	gomock.InOrder(
		tokens.EXPECT().Token(gomock.Any()).Return("stale", nil),
		tokens.EXPECT().Refresh(gomock.Any()).Return("fresh", nil),
	)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, tokens, zerolog.Nop(), srv.Client())
	got, err := c.Complete(context.Background(), chatRequest())
	require.NoError(t, err)
	assert.Equal(t, "hi there", got.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestComplete_SecondUnauthorizedIsUpstreamError(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := NewMockTokenSource(ctrl)
	tokens.EXPECT().Token(gomock.Any()).Return("stale", nil)
	tokens.EXPECT().Refresh(gomock.Any()).Return("still-bad", nil).Times(1)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"status":401,"message":"Token has expired"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, tokens, zerolog.Nop(), srv.Client())
	_, err := c.Complete(context.Background(), chatRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, "Token has expired", se.Message)
	assert.Equal(t, int32(2), calls.Load())
}

func TestComplete_RefreshFailurePropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := NewMockTokenSource(ctrl)
	refreshErr := errors.Join(apperrors.ErrAuth, errors.New("exhausted"))
	tokens.EXPECT().Token(gomock.Any()).Return("stale", nil)
	tokens.EXPECT().Refresh(gomock.Any()).Return("", refreshErr)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, tokens, zerolog.Nop(), srv.Client())
	_, err := c.Complete(context.Background(), chatRequest())
	assert.ErrorIs(t, err, apperrors.ErrAuth)
	assert.NotErrorIs(t, err, apperrors.ErrUpstream)
}

func TestComplete_OtherStatusDoesNotRefresh(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := NewMockTokenSource(ctrl)
	tokens.EXPECT().Token(gomock.Any()).Return("tok", nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"boom"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, tokens, zerolog.Nop(), srv.Client())
	_, err := c.Complete(context.Background(), chatRequest())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "boom", se.Message)
}

func TestComplete_NoChoices(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := NewMockTokenSource(ctrl)
	tokens.EXPECT().Token(gomock.Any()).Return("tok", nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"model":"GigaChat","choices":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, tokens, zerolog.Nop(), srv.Client())
	got, err := c.Complete(context.Background(), chatRequest())
	require.NoError(t, err)
	assert.True(t, got.Empty)
	assert.Empty(t, got.Content)
}

func TestComplete_TokenErrorSkipsRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := NewMockTokenSource(ctrl)
	tokens.EXPECT().Token(gomock.Any()).Return("", apperrors.ErrAuth)

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("chat endpoint must not be called without a token")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, tokens, zerolog.Nop(), srv.Client())
	_, err := c.Complete(context.Background(), chatRequest())
	assert.ErrorIs(t, err, apperrors.ErrAuth)
}

func TestComplete_MalformedBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	tokens := NewMockTokenSource(ctrl)
	tokens.EXPECT().Token(gomock.Any()).Return("tok", nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, tokens, zerolog.Nop(), srv.Client())
	_, err := c.Complete(context.Background(), chatRequest())
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
}
