package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/yourorg/gigachat-gateway/internal/errors"
	"github.com/yourorg/gigachat-gateway/internal/logging"
	"github.com/yourorg/gigachat-gateway/internal/prompts"
	"github.com/yourorg/gigachat-gateway/internal/store"
)

// NoAssistantAnswer is returned when the model produced no choices.
const NoAssistantAnswer = "Не удалось получить ответ от ассистента."

type AskInput struct {
	Query   string
	Context string
	UserID  string
}

// SearchResult is the platform search answer. Search is not implemented yet,
// so Result is empty and RelevantSections is always an empty list.
type SearchResult struct {
	Query            string   `json:"query"`
	Result           string   `json:"result"`
	RelevantSections []string `json:"relevant_sections"`
}

type Assistant struct {
	chat         Completer
	params       ModelParams
	platformInfo string
	journal      Journal
	log          zerolog.Logger

	loadInfo func(path string) (string, error)
}

// NewAssistant builds the platform assistant. platformInfoPath names the
// reference document; it is re-read on every question. journal may be nil.
func NewAssistant(chat Completer, params ModelParams, platformInfoPath string, journal Journal, logger zerolog.Logger) *Assistant {
	return &Assistant{
		chat:         chat,
		params:       params,
		platformInfo: platformInfoPath,
		journal:      journal,
		log:          logging.Component(logger, "assistant"),
		loadInfo:     prompts.LoadPlatformInfo,
	}
}

// Ask answers a platform question. Answers that point the user to outside
// services are replaced with the support message.
func (a *Assistant) Ask(ctx context.Context, in AskInput) (string, error) {
	if err := required("query", in.Query); err != nil {
		return "", err
	}

	info, err := a.loadInfo(a.platformInfo)
	if err != nil {
		a.log.Warn().Err(err).Msg("platform info unavailable")
		info = ""
	}

	start := time.Now()
	answer, err := a.complete(ctx, in, info)
	record(ctx, a.journal, a.log, store.Interaction{
		Kind:       store.KindAssistant,
		UserID:     in.UserID,
		Input:      in.Query,
		Context:    in.Context,
		Output:     answer,
		Error:      errString(err),
		DurationMS: time.Since(start).Milliseconds(),
	})
	return answer, err
}

func (a *Assistant) complete(ctx context.Context, in AskInput, info string) (string, error) {
	c, err := a.chat.Complete(ctx, a.params.request(prompts.Assistant(in.Query, in.Context, info)))
	if err != nil {
		return "", err
	}
	if c.Empty {
		return NoAssistantAnswer, nil
	}
	answer, blocked := prompts.Filter(c.Content)
	if blocked {
		a.log.Info().Str("user_id", in.UserID).Msg("answer replaced with support message")
	}
	return answer, nil
}

// Search looks up platform documentation for query.
func (a *Assistant) Search(_ context.Context, query string) (SearchResult, error) {
	if err := required("query", query); err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Query: query, Result: "", RelevantSections: []string{}}, nil
}

// HistoryEnabled reports whether History can return anything.
func (a *Assistant) HistoryEnabled() bool { return a.journal != nil }

// History returns the user's recent interactions. Without a journal it fails
// with ErrNotFound.
func (a *Assistant) History(ctx context.Context, userID string, limit int) ([]store.Interaction, error) {
	if a.journal == nil {
		return nil, fmt.Errorf("%w: interaction journal is disabled", apperrors.ErrNotFound)
	}
	if err := required("user_id", userID); err != nil {
		return nil, err
	}
	items, err := a.journal.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []store.Interaction{}
	}
	return items, nil
}
