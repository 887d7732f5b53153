package app

import (
	"errors"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	MarketAPIURL        string        `envconfig:"MARKET_API_URL" default:"http://127.0.0.1:8000/api"`
	MarketAPITimeout    time.Duration `envconfig:"MARKET_API_TIMEOUT" default:"10s"`
	MarketAPIMaxRetries int           `envconfig:"MARKET_API_MAX_RETRIES" default:"2"`
	MarketAPIRate       float64       `envconfig:"MARKET_API_RATE" default:"20"`

	RedisAddr  string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	CacheTTL   time.Duration `envconfig:"CACHE_TTL" default:"5m"`
	FiltersTTL time.Duration `envconfig:"FILTERS_TTL" default:"10m"`

	// GotenbergURL enables the PDF export when set.
	GotenbergURL string `envconfig:"GOTENBERG_URL"`

	WarmupCron string `envconfig:"WARMUP_CRON" default:"*/30 * * * *"`
}

// LoadConfig reads configuration from environment variables. A .env file in
// the working directory is applied first when present; real environment
// variables win over it.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.MarketAPIURL == "" {
		return nil, errors.New("market api url must be provided")
	}
	if _, err := url.ParseRequestURI(cfg.MarketAPIURL); err != nil {
		return nil, errors.New("market api url is not a valid url")
	}
	if cfg.MarketAPIMaxRetries < 0 {
		return nil, errors.New("market api retries must not be negative")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
