package config

import (
	"fmt"
	"log"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Host     string `env:"HOST" envDefault:"0.0.0.0"`
	Port     int    `env:"PORT" envDefault:"8000"`
	Debug    bool   `env:"DEBUG" envDefault:"false"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Optional. When empty the interaction journal is disabled and rate
	// limiting (if any) is kept in memory.
	DatabaseURL  string `env:"DATABASE_URL"`
	RateLimitRPM int    `env:"RATE_LIMIT_RPM" envDefault:"0"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Take the client IP from X-Forwarded-For / X-Real-IP. Enable only behind
	// a proxy that overwrites those headers.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	// Bearer token for /api/assistant/history. Empty keeps the route off.
	HistoryAPIToken string `env:"HISTORY_API_TOKEN"`

	GigaChat  GigaChat
	Assistant Assistant
}

// GigaChat holds upstream credentials and the enhancer's model parameters.
type GigaChat struct {
	ClientID     string `env:"GIGACHAT_CLIENT_ID"`
	ClientSecret string `env:"GIGACHAT_CLIENT_SECRET"`
	AuthKey      string `env:"GIGACHAT_AUTH_KEY"`
	Scope        string `env:"GIGACHAT_SCOPE" envDefault:"GIGACHAT_API_PERS"`

	AuthURL    string `env:"GIGACHAT_AUTH_URL" envDefault:"https://ngw.devices.sberbank.ru:9443/api/v2/oauth"`
	APIBaseURL string `env:"GIGACHAT_API_BASE_URL" envDefault:"https://gigachat.devices.sberbank.ru/api/v1"`

	// The provider's endpoints are signed by a national CA that is missing
	// from most trust stores.
	InsecureSkipVerify bool `env:"GIGACHAT_INSECURE_SKIP_VERIFY" envDefault:"false"`

	Model       string  `env:"GIGACHAT_MODEL" envDefault:"GigaChat"`
	Temperature float64 `env:"GIGACHAT_TEMPERATURE" envDefault:"0.7"`
	MaxTokens   int     `env:"GIGACHAT_MAX_TOKENS" envDefault:"1500"`

	TokenRefreshInterval time.Duration `env:"TOKEN_REFRESH_INTERVAL" envDefault:"1m"`
}

// Assistant holds the platform assistant's model parameters.
type Assistant struct {
	Model            string  `env:"ASSISTANT_MODEL" envDefault:"GigaChat"`
	Temperature      float64 `env:"ASSISTANT_TEMPERATURE" envDefault:"0.5"`
	MaxTokens        int     `env:"ASSISTANT_MAX_TOKENS" envDefault:"1000"`
	PlatformInfoPath string  `env:"PLATFORM_INFO_PATH" envDefault:"documentation.md"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}
	return parse(env.Options{})
}

// MustLoad is Load for process startup: it exits on invalid configuration.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	g := c.GigaChat
	hasPair := g.ClientID != "" && g.ClientSecret != ""
	if !hasPair && g.AuthKey == "" {
		return fmt.Errorf("GIGACHAT_CLIENT_ID and GIGACHAT_CLIENT_SECRET, or GIGACHAT_AUTH_KEY, are required")
	}
	if (g.ClientID == "") != (g.ClientSecret == "") {
		return fmt.Errorf("GIGACHAT_CLIENT_ID and GIGACHAT_CLIENT_SECRET must be set together")
	}
	for name, raw := range map[string]string{"GIGACHAT_AUTH_URL": g.AuthURL, "GIGACHAT_API_BASE_URL": g.APIBaseURL} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL", name)
		}
	}
	if g.Temperature < 0 || g.Temperature > 2 {
		return fmt.Errorf("GIGACHAT_TEMPERATURE must be within [0, 2]")
	}
	if c.Assistant.Temperature < 0 || c.Assistant.Temperature > 2 {
		return fmt.Errorf("ASSISTANT_TEMPERATURE must be within [0, 2]")
	}
	if g.MaxTokens <= 0 {
		return fmt.Errorf("GIGACHAT_MAX_TOKENS must be positive")
	}
	if c.Assistant.MaxTokens <= 0 {
		return fmt.Errorf("ASSISTANT_MAX_TOKENS must be positive")
	}
	if g.TokenRefreshInterval <= 0 {
		return fmt.Errorf("TOKEN_REFRESH_INTERVAL must be positive")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be within 1..65535")
	}
	if c.RateLimitRPM < 0 {
		return fmt.Errorf("RATE_LIMIT_RPM must not be negative")
	}
	return nil
}

// HTTPAddr is the listen address built from HOST and PORT.
func (c *Config) HTTPAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// EffectiveLogLevel returns debug when DEBUG is set, LOG_LEVEL otherwise.
func (c *Config) EffectiveLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return strings.ToLower(c.LogLevel)
}
