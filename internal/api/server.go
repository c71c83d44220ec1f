// Package api is the HTTP surface of the gateway.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/yourorg/gigachat-gateway/internal/auth"
	"github.com/yourorg/gigachat-gateway/internal/logging"
	"github.com/yourorg/gigachat-gateway/internal/middleware"
	"github.com/yourorg/gigachat-gateway/internal/ratelimit"
	"github.com/yourorg/gigachat-gateway/internal/service"
	"github.com/yourorg/gigachat-gateway/internal/store"
)

type Enhancer interface {
	Enhance(ctx context.Context, in service.EnhanceInput) (string, error)
	EnhanceCompany(ctx context.Context, in service.CompanyInput) (string, error)
}

type Assistant interface {
	Ask(ctx context.Context, in service.AskInput) (string, error)
	Search(ctx context.Context, query string) (service.SearchResult, error)
	History(ctx context.Context, userID string, limit int) ([]store.Interaction, error)
	HistoryEnabled() bool
}

type TokenStatus interface {
	Status() auth.Status
}

// Pinger reports database health. Nil when no database is configured.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Enhancer    Enhancer
	Assistant   Assistant
	Tokens      TokenStatus
	DB          Pinger
	RateLimiter *ratelimit.Service

	CORSAllowedOrigins []string
	TrustProxyHeaders  bool
	// HistoryToken guards /api/assistant/history. The route exists only when
	// it is set and the assistant has a journal.
	HistoryToken string
}

type Server struct {
	Router http.Handler
}

func NewServer(deps Deps, logger zerolog.Logger) (*Server, error) {
	if deps.Enhancer == nil || deps.Assistant == nil || deps.Tokens == nil {
		return nil, errors.New("api: enhancer, assistant and token status are required")
	}
	log := logging.Component(logger, "api")

	r := chi.NewRouter()
	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(log))
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.CORS(deps.CORSAllowedOrigins))

	r.Get("/", Root())
	r.Get("/health", Health(deps.Tokens, deps.DB))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(deps.RateLimiter, log))

		enhance := EnhanceText(deps.Enhancer, log)
		r.Get("/enhance", enhance)
		r.Post("/enhance", enhance)

		advanced := EnhanceAdvanced(deps.Enhancer, log)
		r.Get("/enhance/advanced", advanced)
		r.Post("/enhance/advanced", advanced)

		company := EnhanceCompany(deps.Enhancer, log)
		r.Get("/enhance/company", company)
		r.Post("/enhance/company", company)

		r.Route("/assistant", func(r chi.Router) {
			ask := Ask(deps.Assistant, log)
			r.Get("/ask", ask)
			r.Post("/ask", ask)

			search := Search(deps.Assistant, log)
			r.Get("/search", search)
			r.Post("/search", search)

			if deps.HistoryToken != "" && deps.Assistant.HistoryEnabled() {
				r.With(middleware.BearerToken(deps.HistoryToken)).
					Get("/history", History(deps.Assistant, log))
			}
		})
	})

	return &Server{Router: r}, nil
}
