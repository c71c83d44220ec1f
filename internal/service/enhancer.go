package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourorg/gigachat-gateway/internal/logging"
	"github.com/yourorg/gigachat-gateway/internal/openai"
	"github.com/yourorg/gigachat-gateway/internal/prompts"
	"github.com/yourorg/gigachat-gateway/internal/store"
)

// NoEnhancerAnswer is returned when the model produced no choices.
const NoEnhancerAnswer = "Не удалось получить ответ от нейросети."

type EnhanceInput struct {
	Text   string
	Style  string
	Length string
	UserID string
}

type CompanyInput struct {
	Text           string
	Industry       string
	TargetAudience string
	UniqueFeatures string
	UserID         string
}

type Enhancer struct {
	chat    Completer
	params  ModelParams
	journal Journal
	log     zerolog.Logger
}

// NewEnhancer builds the copy enhancer. journal may be nil.
func NewEnhancer(chat Completer, params ModelParams, journal Journal, logger zerolog.Logger) *Enhancer {
	return &Enhancer{
		chat:    chat,
		params:  params,
		journal: journal,
		log:     logging.Component(logger, "enhancer"),
	}
}

// Enhance rewrites in.Text, honouring the optional style and length.
func (e *Enhancer) Enhance(ctx context.Context, in EnhanceInput) (string, error) {
	if err := required("text", in.Text); err != nil {
		return "", err
	}
	kind := store.KindEnhance
	if in.Style != "" || in.Length != "" {
		kind = store.KindEnhanceAdvanced
	}
	return e.run(ctx, kind, in.UserID, in.Text, prompts.Enhance(in.Text, in.Style, in.Length))
}

// EnhanceCompany rewrites a company description.
func (e *Enhancer) EnhanceCompany(ctx context.Context, in CompanyInput) (string, error) {
	if err := required("text", in.Text); err != nil {
		return "", err
	}
	prompt := prompts.Company(in.Text, in.Industry, in.TargetAudience, in.UniqueFeatures)
	return e.run(ctx, store.KindEnhanceCompany, in.UserID, in.Text, prompt)
}

func (e *Enhancer) run(ctx context.Context, kind, userID, input, prompt string) (string, error) {
	start := time.Now()
	out, err := e.complete(ctx, prompt)
	record(ctx, e.journal, e.log, store.Interaction{
		Kind:       kind,
		UserID:     userID,
		Input:      input,
		Output:     out,
		Error:      errString(err),
		DurationMS: time.Since(start).Milliseconds(),
	})
	return out, err
}

func (e *Enhancer) complete(ctx context.Context, prompt string) (string, error) {
	c, err := e.chat.Complete(ctx, e.params.request(openai.UserMessage(prompt)))
	if err != nil {
		return "", err
	}
	if c.Empty {
		return NoEnhancerAnswer, nil
	}
	return c.Content, nil
}
