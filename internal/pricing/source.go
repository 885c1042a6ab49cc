package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kjannette/stroomslim-backend/internal/cache"
	"github.com/kjannette/stroomslim-backend/internal/logging"
	"github.com/kjannette/stroomslim-backend/internal/models"
)

var (
	// ErrUpstreamUnavailable means every configured provider failed or had
	// no data for the requested range.
	ErrUpstreamUnavailable = errors.New("upstream price data unavailable")
	ErrEmptySeries         = errors.New("provider returned an empty series")
)

// Provider fetches the day-ahead series for a civil date range
// (YYYY-MM-DD, inclusive) in the market timezone.
type Provider interface {
	Name() string
	FetchRange(ctx context.Context, start, end string) ([]models.PricePoint, error)
}

// SeriesCache stores fetched series for a bounded time. Implementations
// return cache.ErrCacheMiss when a key is absent or expired.
type SeriesCache interface {
	GetSeries(ctx context.Context, key string) ([]models.PricePoint, error)
	SetSeries(ctx context.Context, key string, points []models.PricePoint) error
}

type Series struct {
	Points []models.PricePoint
	Source string
}

// Source resolves prices against an ordered list of providers. The first
// provider is primary; the rest are tried in order when it fails.
type Source struct {
	providers []Provider
	cache     SeriesCache
	history   HistoryStore
	loc       *time.Location
	logger    *slog.Logger
}

func NewSource(loc *time.Location, seriesCache SeriesCache, logger *slog.Logger, providers ...Provider) *Source {
	if loc == nil {
		loc = time.UTC
	}
	if seriesCache == nil {
		seriesCache = cache.NewMemory(cache.DefaultSeriesTTL)
	}
	return &Source{
		providers: providers,
		cache:     seriesCache,
		loc:       loc,
		logger:    logging.OrDiscard(logger).With("component", "prices"),
	}
}

func (s *Source) Location() *time.Location { return s.loc }

// LocalDate is the civil date of t in the market timezone, independent of
// the host timezone.
func (s *Source) LocalDate(t time.Time) string {
	return t.In(s.loc).Format("2006-01-02")
}

// Series returns the first non-empty series any provider can produce for
// the range. All providers receive the same range.
func (s *Source) Series(ctx context.Context, start, end string) (Series, error) {
	if len(s.providers) == 0 {
		return Series{}, fmt.Errorf("%w: no providers configured", ErrUpstreamUnavailable)
	}

	var errs []error
	for _, p := range s.providers {
		points, err := s.fetch(ctx, p, start, end)
		if err == nil {
			return Series{Points: points, Source: p.Name()}, nil
		}
		s.logger.Warn("price provider failed",
			"provider", p.Name(),
			"start", start,
			"end", end,
			"error", err,
		)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return Series{}, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, errors.Join(errs...))
}

func (s *Source) fetch(ctx context.Context, p Provider, start, end string) ([]models.PricePoint, error) {
	key := fmt.Sprintf("%s-%s-%s", p.Name(), start, end)

	cached, err := s.cache.GetSeries(ctx, key)
	switch {
	case err == nil && len(cached) > 0:
		return cached, nil
	case err != nil && !errors.Is(err, cache.ErrCacheMiss):
		s.logger.Warn("price cache read failed", "key", key, "error", err)
	}

	points, err := p.FetchRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, ErrEmptySeries
	}

	if err := s.cache.SetSeries(ctx, key, points); err != nil {
		s.logger.Warn("price cache write failed", "key", key, "error", err)
	}
	return points, nil
}

// CurrentPrice returns the point for the current market hour. When the
// series has no entry for that hour the last published point is used.
func (s *Source) CurrentPrice(ctx context.Context, now time.Time) (models.PricePoint, error) {
	today := s.LocalDate(now)
	series, err := s.Series(ctx, today, today)
	if err != nil {
		return models.PricePoint{}, err
	}

	p, exact := PickCurrent(series.Points, now, s.loc)
	if !exact {
		s.logger.Info("no price for current hour, using last point",
			"date", today,
			"hour", now.In(s.loc).Hour(),
			"points", len(series.Points),
		)
	}
	return p, nil
}

// Today returns the series for today and tomorrow. Tomorrow is usually
// published around midday, so before that only today's points come back.
func (s *Source) Today(ctx context.Context, now time.Time) (Series, error) {
	local := now.In(s.loc)
	return s.Series(ctx, s.LocalDate(local), s.LocalDate(local.AddDate(0, 0, 1)))
}

// PickCurrent finds the first point whose local date and hour match now.
// exact is false when it fell back to the last point. points must be non-empty.
func PickCurrent(points []models.PricePoint, now time.Time, loc *time.Location) (p models.PricePoint, exact bool) {
	ln := now.In(loc)
	for _, pt := range points {
		lt := pt.Timestamp.In(loc)
		if lt.Hour() == ln.Hour() && lt.YearDay() == ln.YearDay() && lt.Year() == ln.Year() {
			return pt, true
		}
	}
	return points[len(points)-1], false
}
