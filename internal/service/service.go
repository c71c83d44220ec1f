// Package service turns validated requests into model calls and shapes the
// answers.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/yourorg/gigachat-gateway/internal/errors"
	"github.com/yourorg/gigachat-gateway/internal/gigachat"
	"github.com/yourorg/gigachat-gateway/internal/openai"
	"github.com/yourorg/gigachat-gateway/internal/store"
)

//go:generate mockgen -destination=mocks_test.go -package=service . Completer,Journal

// Completer is the chat client.
type Completer interface {
	Complete(ctx context.Context, req openai.ChatCompletionsRequest) (gigachat.Completion, error)
}

// Journal stores interactions. It is optional everywhere it is accepted.
type Journal interface {
	Record(ctx context.Context, in store.Interaction) error
	ListByUser(ctx context.Context, userID string, limit int) ([]store.Interaction, error)
}

// ModelParams are the sampling settings sent with every request of a service.
type ModelParams struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

func (p ModelParams) request(messages []openai.ChatMessage) openai.ChatCompletionsRequest {
	return openai.ChatCompletionsRequest{
		Model:       p.Model,
		Messages:    messages,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}
}

const journalTimeout = 5 * time.Second

// record writes to the journal without failing the caller.
func record(ctx context.Context, j Journal, log zerolog.Logger, in store.Interaction) {
	if j == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := j.Record(ctx, in); err != nil {
		log.Warn().Err(err).Str("kind", in.Kind).Msg("journal write failed")
	}
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", apperrors.ErrValidation, field)
	}
	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
