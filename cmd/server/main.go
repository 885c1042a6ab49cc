package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kjannette/stroomslim-backend/internal/api"
	"github.com/kjannette/stroomslim-backend/internal/app"
	"github.com/kjannette/stroomslim-backend/internal/config"
	"github.com/kjannette/stroomslim-backend/internal/logging"
	"github.com/kjannette/stroomslim-backend/internal/scheduler"
)

const banner = `
╔══════════════════════════════════════╗
║   StroomSlim Price Alert Service     ║
║   Belgian day-ahead electricity      ║
╚══════════════════════════════════════╝
`

func main() {
	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print(os.Stdout)
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// 1. Alert scheduler (only with an email credential)
	sched := a.NewScheduler()
	var trigger api.AlertTrigger
	if sched != nil {
		sched.Start()
		trigger = sched
	} else {
		logger.Info("alert scheduler not started")
	}

	// 2. API server
	srv := api.NewServer(api.Options{
		Port:       cfg.Port,
		APIKey:     cfg.APIKey,
		CORSOrigin: cfg.AllowedOrigin(),
		DB:         a.Pool,
		Prices:     a.Prices,
		Alerts:     trigger,
		Logger:     logger,
	})
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server error", "error", err)
			stop()
		}
	}()

	logger.Info("all services started")

	<-ctx.Done()
	logger.Info("shutting down gracefully")

	stopScheduler(sched)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "error", err)
	}
	logger.Info("shutdown complete")
}

func stopScheduler(s *scheduler.AlertScheduler) {
	if s != nil {
		s.Stop()
	}
}
