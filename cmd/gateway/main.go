package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/gigachat-gateway/internal/api"
	"github.com/yourorg/gigachat-gateway/internal/auth"
	"github.com/yourorg/gigachat-gateway/internal/config"
	"github.com/yourorg/gigachat-gateway/internal/db"
	"github.com/yourorg/gigachat-gateway/internal/gigachat"
	"github.com/yourorg/gigachat-gateway/internal/logging"
	"github.com/yourorg/gigachat-gateway/internal/ratelimit"
	"github.com/yourorg/gigachat-gateway/internal/service"
	"github.com/yourorg/gigachat-gateway/internal/store"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg := config.MustLoad()

	logger := logging.New(cfg.EffectiveLogLevel())
	logger.Info().Str("addr", cfg.HTTPAddr()).Str("version", api.Version).Msg("starting gateway")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("gateway stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("gateway stopped")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	var st *store.Store
	if cfg.DatabaseURL != "" {
		pool, err := openDatabase(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		st = store.New(pool)
	} else {
		logger.Info().Msg("DATABASE_URL not set, interaction journal disabled")
	}

	creds := credentials(cfg)
	tokens := newTokenManager(creds, cfg.GigaChat.InsecureSkipVerify, logger)

	// A failed startup refresh is not fatal; requests refresh lazily.
	if _, err := tokens.Refresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial token refresh failed")
	}

	chat := gigachat.NewClient(
		creds.ChatURL,
		tokens,
		logger,
		gigachat.NewHTTPClient(cfg.GigaChat.InsecureSkipVerify),
	)

	deps := api.Deps{
		Tokens:             tokens,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
		HistoryToken:       cfg.HistoryAPIToken,
	}
	var journal service.Journal
	if st != nil {
		journal = st.Interactions()
		deps.DB = st
	}
	deps.Enhancer = service.NewEnhancer(chat, service.ModelParams{
		Model:       cfg.GigaChat.Model,
		Temperature: cfg.GigaChat.Temperature,
		MaxTokens:   cfg.GigaChat.MaxTokens,
	}, journal, logger)
	deps.Assistant = service.NewAssistant(chat, service.ModelParams{
		Model:       cfg.Assistant.Model,
		Temperature: cfg.Assistant.Temperature,
		MaxTokens:   cfg.Assistant.MaxTokens,
	}, cfg.Assistant.PlatformInfoPath, journal, logger)

	if cfg.HistoryAPIToken != "" && st == nil {
		logger.Warn().Msg("HISTORY_API_TOKEN set without DATABASE_URL, history route disabled")
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.RateLimitRPM > 0 {
		if st != nil {
			deps.RateLimiter = ratelimit.New(ratelimit.NewPostgres(st.Counters(), cfg.RateLimitRPM, logger))
		} else {
			mem := ratelimit.NewMemory(time.Minute, cfg.RateLimitRPM)
			deps.RateLimiter = ratelimit.New(mem)
			g.Go(func() error { return mem.Run(gctx) })
		}
		logger.Info().Int("rpm", cfg.RateLimitRPM).Bool("shared", st != nil).Msg("rate limiting enabled")
	}

	app, err := api.NewServer(deps, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	refresher := auth.NewRefresher(tokens, cfg.GigaChat.TokenRefreshInterval, logger)
	g.Go(func() error { return refresher.Run(gctx) })

	g.Go(func() error {
		logger.Info().Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openDatabase(ctx context.Context, url string, logger zerolog.Logger) (*pgxpool.Pool, error) {
	pool, err := db.Connect(ctx, url)
	if err != nil {
		return nil, err
	}
	applied, err := db.Migrate(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info().Strs("applied", applied).Msg("database ready")
	return pool, nil
}

func credentials(cfg *config.Config) auth.Credentials {
	g := cfg.GigaChat
	return auth.Credentials{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		AuthKey:      g.AuthKey,
		Scope:        g.Scope,
		AuthURL:      g.AuthURL,
		ChatURL:      g.APIBaseURL,
	}
}

func newTokenManager(creds auth.Credentials, insecure bool, logger zerolog.Logger) *auth.Manager {
	var opts []auth.Option
	if insecure {
		opts = append(opts, auth.WithInsecureSkipVerify())
		logger.Warn().Msg("TLS verification of GigaChat endpoints is disabled")
	}
	return auth.NewManager(creds, logger, opts...)
}
