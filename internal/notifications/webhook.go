package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kjannette/stroomslim-backend/internal/httputil"
	"github.com/kjannette/stroomslim-backend/internal/logging"
)

// OpsNotifier posts short operational messages (run summaries, aborted
// runs) to a Slack or Discord incoming webhook. Failures are logged and
// swallowed.
type OpsNotifier struct {
	webhookURL string
	appName    string
	httpClient *http.Client
	retry      httputil.RetryConfig
	logger     *slog.Logger
}

func NewOpsNotifier(webhookURL, appName string, logger *slog.Logger) *OpsNotifier {
	if appName == "" {
		appName = "StroomSlim"
	}
	logger = logging.OrDiscard(logger).With("component", "ops-webhook")
	return &OpsNotifier{
		webhookURL: webhookURL,
		appName:    appName,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

func (s *OpsNotifier) Send(ctx context.Context, msg string) {
	formatted := fmt.Sprintf("[%s] %s", s.appName, msg)
	s.logger.Info(formatted)

	if s.webhookURL == "" {
		return
	}

	body, err := json.Marshal(s.formatPayload(formatted))
	if err != nil {
		s.logger.Error("marshal webhook payload", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := httputil.Do(ctx, s.httpClient, s.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		s.logger.Error("webhook delivery failed", "error", err)
		return
	}
	resp.Body.Close()
}

func (s *OpsNotifier) formatPayload(msg string) map[string]string {
	if strings.Contains(s.webhookURL, "discord") {
		return map[string]string{
			"content":  msg,
			"username": s.appName,
		}
	}
	return map[string]string{
		"text":     fmt.Sprintf("`%s`", msg),
		"username": s.appName,
	}
}

func (s *OpsNotifier) Enabled() bool {
	return s.webhookURL != ""
}
