package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// Secrets (from .env)
	ResendAPIKey string `env:"RESEND_API_KEY"`
	APIKey       string `env:"API_KEY"`
	WebhookURL   string `env:"WEBHOOK_URL"`

	// App
	AppName     string `env:"APP_NAME" envDefault:"StroomSlim"`
	AppURL      string `env:"APP_URL" envDefault:"https://smart-energy-six.vercel.app"`
	FrontendURL string `env:"FRONTEND_URL"`
	Port        int    `env:"PORT" envDefault:"3001"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBPort      int    `env:"DB_PORT" envDefault:"5432"`
	DBName      string `env:"DB_NAME" envDefault:"stroomslim"`
	DBUser      string `env:"DB_USER"`
	DBPassword  string `env:"DB_PASSWORD"`

	// Cache
	RedisURL      string        `env:"REDIS_URL"`
	PriceCacheTTL time.Duration `env:"PRICE_CACHE_TTL" envDefault:"15m"`

	// Email
	ResendBaseURL string `env:"RESEND_BASE_URL" envDefault:"https://api.resend.com"`
	FromEmail     string `env:"FROM_EMAIL" envDefault:"alerts@resend.dev"`

	// Market
	BiddingZone     string `env:"BIDDING_ZONE" envDefault:"BE"`
	MarketTimezone  string `env:"MARKET_TIMEZONE" envDefault:"Europe/Brussels"`
	EnergyChartsURL string `env:"ENERGY_CHARTS_URL" envDefault:"https://api.energy-charts.info"`
	EliaURL         string `env:"ELIA_URL" envDefault:"https://opendata.elia.be"`

	// Alerts
	AlertDedupWindow time.Duration `env:"ALERT_DEDUP_WINDOW" envDefault:"1h"`
	AlertConcurrency int           `env:"ALERT_CONCURRENCY" envDefault:"1"`
	RunTimeout       time.Duration `env:"RUN_TIMEOUT" envDefault:"10m"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.DatabaseURL == "" && c.DBUser == "" {
		errs = append(errs, "DATABASE_URL (or DB_USER/DB_HOST/DB_NAME) is required")
	}
	if _, err := time.LoadLocation(c.MarketTimezone); err != nil {
		errs = append(errs, fmt.Sprintf("MARKET_TIMEZONE %q is not a valid IANA zone", c.MarketTimezone))
	}
	if c.AlertDedupWindow <= 0 {
		errs = append(errs, "ALERT_DEDUP_WINDOW must be positive")
	}
	if c.AlertConcurrency < 1 {
		errs = append(errs, "ALERT_CONCURRENCY must be at least 1")
	}
	if c.RunTimeout <= 0 {
		errs = append(errs, "RUN_TIMEOUT must be positive")
	}
	if c.AlertsEnabled() && c.FromEmail == "" {
		errs = append(errs, "FROM_EMAIL is required when RESEND_API_KEY is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// AlertsEnabled gates the alert scheduler. Without an email credential the
// scheduler is never started.
func (c *Config) AlertsEnabled() bool {
	return c.ResendAPIKey != ""
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.MarketTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// AllowedOrigin is the single CORS origin the API answers for.
func (c *Config) AllowedOrigin() string {
	if c.FrontendURL != "" {
		return c.FrontendURL
	}
	return "*"
}

func (c *Config) Print(w io.Writer) {
	fmt.Fprintln(w, "=== StroomSlim Configuration ===")
	fmt.Fprintf(w, "Market: %s (%s)\n", c.BiddingZone, c.MarketTimezone)
	fmt.Fprintf(w, "Primary prices: %s\n", c.EnergyChartsURL)
	fmt.Fprintf(w, "Fallback prices: %s\n", c.EliaURL)
	fmt.Fprintf(w, "Price cache: %s (TTL %s)\n", boolLabel(c.RedisURL != "", "redis", "memory"), c.PriceCacheTTL)
	fmt.Fprintln(w, "--------------------------------")
	fmt.Fprintf(w, "Email alerts: %s\n", boolLabel(c.AlertsEnabled(), "enabled", "disabled (RESEND_API_KEY not set)"))
	if c.AlertsEnabled() {
		fmt.Fprintf(w, "  From: %s\n", c.FromEmail)
		fmt.Fprintf(w, "  Dedup window: %s\n", c.AlertDedupWindow)
		fmt.Fprintf(w, "  Concurrency: %d\n", c.AlertConcurrency)
	}
	fmt.Fprintf(w, "Ops webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set"))
	fmt.Fprintf(w, "API auth: %s\n", boolLabel(c.APIKey != "", "enabled", "disabled"))
	fmt.Fprintln(w, "================================")
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
