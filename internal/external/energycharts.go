package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/kjannette/stroomslim-backend/internal/httputil"
	"github.com/kjannette/stroomslim-backend/internal/models"
)

const (
	EnergyChartsSource     = "Energy-Charts"
	defaultEnergyChartsURL = "https://api.energy-charts.info"
	defaultProviderTimeout = 10 * time.Second
)

// Options tunes an upstream price client. Zero values fall back to defaults.
type Options struct {
	BaseURL     string
	BiddingZone string
	HTTPClient  *http.Client
	Retry       *httputil.RetryConfig
	Logger      *slog.Logger
}

func (o Options) client() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: defaultProviderTimeout}
}

func (o Options) retry() httputil.RetryConfig {
	if o.Retry != nil {
		return *o.Retry
	}
	return httputil.RetryConfig{
		MaxAttempts: 2,
		BaseDelay:   1 * time.Second,
		MaxDelay:    3 * time.Second,
		Logger:      o.Logger,
	}
}

// EnergyChartsClient reads day-ahead prices from the Fraunhofer ISE
// Energy-Charts API.
type EnergyChartsClient struct {
	baseURL    string
	zone       string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewEnergyChartsClient(opts Options) *EnergyChartsClient {
	base := opts.BaseURL
	if base == "" {
		base = defaultEnergyChartsURL
	}
	zone := opts.BiddingZone
	if zone == "" {
		zone = "BE"
	}
	return &EnergyChartsClient{
		baseURL:    base,
		zone:       zone,
		httpClient: opts.client(),
		retry:      opts.retry(),
	}
}

func (c *EnergyChartsClient) Name() string { return EnergyChartsSource }

// FetchRange returns the price series for the civil dates start..end
// (inclusive, YYYY-MM-DD).
func (c *EnergyChartsClient) FetchRange(ctx context.Context, start, end string) ([]models.PricePoint, error) {
	q := url.Values{}
	q.Set("bzn", c.zone)
	q.Set("start", start)
	q.Set("end", end)
	endpoint := c.baseURL + "/price?" + q.Encode()

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("energy-charts fetch: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, fmt.Errorf("energy-charts: %w", err)
	}

	var data struct {
		UnixSeconds []int64    `json:"unix_seconds"`
		Price       []*float64 `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("energy-charts decode: %w", err)
	}
	if len(data.UnixSeconds) != len(data.Price) {
		return nil, fmt.Errorf("energy-charts: %d timestamps but %d prices", len(data.UnixSeconds), len(data.Price))
	}

	out := make([]models.PricePoint, 0, len(data.UnixSeconds))
	for i, ts := range data.UnixSeconds {
		if data.Price[i] == nil {
			continue
		}
		out = append(out, models.PricePoint{
			Timestamp:   time.Unix(ts, 0).UTC(),
			PriceEURMWh: *data.Price[i],
			Source:      EnergyChartsSource,
		})
	}
	return out, nil
}
