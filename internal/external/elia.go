package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kjannette/stroomslim-backend/internal/httputil"
	"github.com/kjannette/stroomslim-backend/internal/models"
)

const (
	EliaSource     = "Elia Open Data"
	defaultEliaURL = "https://opendata.elia.be"
	eliaDataset    = "/api/explore/v2.1/catalog/datasets/ods003/records"
)

// EliaClient reads the Belgian day-ahead price dataset (ods003) published by
// the transmission system operator. It only covers the BE zone.
type EliaClient struct {
	baseURL    string
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewEliaClient(opts Options) *EliaClient {
	base := opts.BaseURL
	if base == "" {
		base = defaultEliaURL
	}
	return &EliaClient{
		baseURL:    base,
		httpClient: opts.client(),
		retry:      opts.retry(),
	}
}

func (c *EliaClient) Name() string { return EliaSource }

// The dataset API caps a page at 100 records, so two days of quarter-hour
// prices span several pages.
const (
	eliaPageSize = 100
	eliaMaxPages = 20
)

type eliaRecord struct {
	Datetime string   `json:"datetime"`
	Price    *float64 `json:"price"`
}

func (c *EliaClient) FetchRange(ctx context.Context, start, end string) ([]models.PricePoint, error) {
	where := fmt.Sprintf(`datetime >= "%sT00:00:00" AND datetime <= "%sT23:59:59"`, start, end)

	var out []models.PricePoint
	for page := 0; page < eliaMaxPages; page++ {
		offset := page * eliaPageSize
		records, total, err := c.fetchPage(ctx, where, offset)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if r.Price == nil {
				continue
			}
			ts, err := time.Parse(time.RFC3339, r.Datetime)
			if err != nil {
				return nil, fmt.Errorf("elia: bad datetime %q: %w", r.Datetime, err)
			}
			out = append(out, models.PricePoint{
				Timestamp:   ts.UTC(),
				PriceEURMWh: *r.Price,
				Source:      EliaSource,
			})
		}
		if len(records) < eliaPageSize || (total >= 0 && offset+len(records) >= total) {
			return out, nil
		}
	}
	return nil, fmt.Errorf("elia: range %s..%s exceeds %d records", start, end, eliaMaxPages*eliaPageSize)
}

// fetchPage returns one page of records and the total_count reported by the
// API, or -1 when the response omits it.
func (c *EliaClient) fetchPage(ctx context.Context, where string, offset int) ([]eliaRecord, int, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(eliaPageSize))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("order_by", "datetime")
	q.Set("where", where)
	endpoint := c.baseURL + eliaDataset + "?" + q.Encode()

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("elia fetch: %w", err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, 0, fmt.Errorf("elia: %w", err)
	}

	var data struct {
		TotalCount *int         `json:"total_count"`
		Results    []eliaRecord `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, 0, fmt.Errorf("elia decode: %w", err)
	}
	total := -1
	if data.TotalCount != nil {
		total = *data.TotalCount
	}
	return data.Results, total, nil
}
