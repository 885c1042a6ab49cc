// Command alertcheck runs the price alert pipeline once and exits. It is
// meant for external cron and manual runs; the exit code is 1 when the run
// was aborted or alerts are disabled.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kjannette/stroomslim-backend/internal/app"
	"github.com/kjannette/stroomslim-backend/internal/config"
	"github.com/kjannette/stroomslim-backend/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if !cfg.AlertsEnabled() {
		logger.Error("email alerts disabled: RESEND_API_KEY not set")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	summary, err := a.Pipeline.Run(ctx)
	a.ReportRun(context.Background(), summary, err)
	if err != nil {
		return 1
	}
	fmt.Println(summary.String())
	return 0
}
