// Package app wires configuration into the price source, the alert
// pipeline and their stores. Both commands build on it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kjannette/stroomslim-backend/internal/alerts"
	"github.com/kjannette/stroomslim-backend/internal/api"
	"github.com/kjannette/stroomslim-backend/internal/cache"
	"github.com/kjannette/stroomslim-backend/internal/config"
	"github.com/kjannette/stroomslim-backend/internal/db"
	"github.com/kjannette/stroomslim-backend/internal/external"
	"github.com/kjannette/stroomslim-backend/internal/notifications"
	"github.com/kjannette/stroomslim-backend/internal/pricing"
	"github.com/kjannette/stroomslim-backend/internal/repository"
	"github.com/kjannette/stroomslim-backend/internal/scheduler"
)

var (
	_ alerts.UserStore     = (*repository.UserRepo)(nil)
	_ alerts.PriceSource   = (*pricing.Source)(nil)
	_ alerts.Mailer        = (*notifications.ResendClient)(nil)
	_ api.PriceService     = (*pricing.Source)(nil)
	_ api.AlertTrigger     = (*scheduler.AlertScheduler)(nil)
	_ pricing.Provider     = (*external.EnergyChartsClient)(nil)
	_ pricing.Provider     = (*external.EliaClient)(nil)
	_ pricing.HistoryStore = (*repository.PriceRepo)(nil)
)

type App struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool
	Users  *repository.UserRepo
	Prices *pricing.Source
	Ops    *notifications.OpsNotifier
	// Pipeline is nil when email alerts are disabled.
	Pipeline *alerts.Pipeline

	closers []func()
}

// New connects to Postgres and the price cache and builds the pipeline when
// RESEND_API_KEY is configured.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
		Ops:    notifications.NewOpsNotifier(cfg.WebhookURL, cfg.AppName, logger),
	}

	logger.Info("connecting to database", "host", cfg.DBHost, "name", cfg.DBName, "url_set", cfg.DatabaseURL != "")
	pool, err := db.Connect(ctx, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	a.Pool = pool
	a.closers = append(a.closers, pool.Close)

	if err := db.TestConnection(ctx, pool, logger); err != nil {
		a.Close()
		return nil, fmt.Errorf("database: %w", err)
	}

	a.Users = repository.NewUserRepo(pool, logger)
	a.Prices = a.newPriceSource(ctx)

	prices := repository.NewPriceRepo(pool)
	if err := prices.EnsureTable(ctx); err != nil {
		logger.Warn("price history table unavailable, history will not be stored", "error", err)
	} else {
		a.Prices.WithHistory(prices)
	}

	if cfg.AlertsEnabled() {
		mailer := notifications.NewResendClient(cfg.ResendAPIKey, cfg.ResendBaseURL, logger)
		a.Pipeline = NewPipeline(cfg, a.Users, a.Prices, mailer, logger)
	} else {
		logger.Warn("email alerts disabled: RESEND_API_KEY not set")
	}
	return a, nil
}

// NewPipeline assembles the alert engine from its ports.
func NewPipeline(cfg *config.Config, users alerts.UserStore, prices alerts.PriceSource, mailer alerts.Mailer, logger *slog.Logger) *alerts.Pipeline {
	return alerts.NewPipeline(
		prices,
		alerts.NewSelector(users, cfg.AlertDedupWindow),
		alerts.NewDispatcher(mailer, cfg.FromEmail, cfg.AppURL),
		alerts.NewRecorder(users),
		alerts.PipelineOptions{Concurrency: cfg.AlertConcurrency, Logger: logger},
	)
}

// newPriceSource prefers Redis for the series cache and falls back to the
// in-process cache when Redis is not configured or unreachable.
func (a *App) newPriceSource(ctx context.Context) *pricing.Source {
	cfg := a.Config
	var seriesCache pricing.SeriesCache = cache.NewMemory(cfg.PriceCacheTTL)
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.PriceCacheTTL)
		if err != nil {
			a.Logger.Warn("redis unavailable, using in-memory price cache", "error", err)
		} else {
			seriesCache = rc
			a.closers = append(a.closers, func() { _ = rc.Close() })
		}
	}

	opts := external.Options{BiddingZone: cfg.BiddingZone, Logger: a.Logger}
	primary := opts
	primary.BaseURL = cfg.EnergyChartsURL
	secondary := opts
	secondary.BaseURL = cfg.EliaURL

	return pricing.NewSource(cfg.Location(), seriesCache, a.Logger,
		external.NewEnergyChartsClient(primary),
		external.NewEliaClient(secondary),
	)
}

// NewScheduler returns nil when alerts are disabled.
func (a *App) NewScheduler() *scheduler.AlertScheduler {
	if a.Pipeline == nil {
		return nil
	}
	return scheduler.NewAlertScheduler(a.Pipeline, scheduler.AlertSchedulerConfig{
		Location:   a.Config.Location(),
		RunTimeout: a.Config.RunTimeout,
		Logger:     a.Logger,
		OnRunComplete: func(summary *alerts.RunSummary, err error) {
			a.ReportRun(context.Background(), summary, err)
		},
	})
}

// ReportRun forwards a run outcome to the ops webhook. Quiet runs (nothing
// to send, nothing failed) are not forwarded.
func (a *App) ReportRun(ctx context.Context, summary *alerts.RunSummary, err error) {
	if msg, ok := RunMessage(summary, err); ok {
		a.Ops.Send(ctx, msg)
	}
}

// RunMessage is the ops text for a run, and whether it is worth sending.
func RunMessage(summary *alerts.RunSummary, err error) (string, bool) {
	if err != nil {
		return fmt.Sprintf("Alert run aborted: %v", err), true
	}
	if summary == nil || (summary.Candidates == 0 && summary.SendFailed == 0 && summary.PersistFailed == 0) {
		return "", false
	}
	return summary.String(), true
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	a.Logger.Info("resources closed")
}
