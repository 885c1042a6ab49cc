package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kjannette/stroomslim-backend/internal/httputil"
)

const defaultResendURL = "https://api.resend.com"

var ErrEmailDisabled = errors.New("email provider not configured")

type Email struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`

	// IdempotencyKey is sent as the Idempotency-Key header so a retried POST
	// whose first attempt was accepted is not delivered twice.
	IdempotencyKey string `json:"-"`
}

// ResendClient sends transactional email through the Resend HTTP API.
type ResendClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewResendClient(apiKey, baseURL string, logger *slog.Logger) *ResendClient {
	if baseURL == "" {
		baseURL = defaultResendURL
	}
	return &ResendClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    5 * time.Second,
			Logger:      logger,
		},
	}
}

// WithRetry overrides the retry policy, for tests.
func (c *ResendClient) WithRetry(cfg httputil.RetryConfig) *ResendClient {
	c.retry = cfg
	return c
}

func (c *ResendClient) Enabled() bool {
	return c.apiKey != ""
}

// Send posts one email. Quota, auth and network failures come back as errors
// so the caller can decide whether the send counts.
func (c *ResendClient) Send(ctx context.Context, msg Email) error {
	if !c.Enabled() {
		return ErrEmailDisabled
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		if msg.IdempotencyKey != "" {
			req.Header.Set("Idempotency-Key", msg.IdempotencyKey)
		}
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}
