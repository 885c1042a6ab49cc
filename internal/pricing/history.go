package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/kjannette/stroomslim-backend/internal/models"
)

const (
	DefaultHistoryDays = 7
	MaxHistoryDays     = 30
)

// HistoryStore persists series of finished market days.
type HistoryStore interface {
	GetByDay(ctx context.Context, date string) ([]models.PricePoint, error)
	SaveDay(ctx context.Context, date string, points []models.PricePoint) error
}

type HistoryPoint struct {
	models.PricePoint
	Hour      int    `json:"hour"`
	HourLabel string `json:"hour_label"`
}

// DayHistory is one past market day with its summary figures.
type DayHistory struct {
	Date   string         `json:"date"`
	Label  string         `json:"label"`
	Source string         `json:"source"`
	Prices []HistoryPoint `json:"prices"`
	DayStats
}

var (
	dutchWeekdays = [...]string{"zo", "ma", "di", "wo", "do", "vr", "za"}
	dutchMonths   = [...]string{"jan", "feb", "mrt", "apr", "mei", "jun", "jul", "aug", "sep", "okt", "nov", "dec"}
)

// WithHistory makes History read and fill store before asking providers.
func (s *Source) WithHistory(store HistoryStore) *Source {
	s.history = store
	return s
}

// History returns the days market days before today, oldest first. days is
// clamped to 1..MaxHistoryDays. Days no store or provider can supply are
// left out; only a cancelled context fails the call.
func (s *Source) History(ctx context.Context, now time.Time, days int) ([]DayHistory, error) {
	if days < 1 {
		days = 1
	}
	if days > MaxHistoryDays {
		days = MaxHistoryDays
	}

	local := now.In(s.loc)
	out := make([]DayHistory, 0, days)
	for i := days; i >= 1; i-- {
		// Noon avoids DST edges when stepping back whole days.
		day := time.Date(local.Year(), local.Month(), local.Day()-i, 12, 0, 0, 0, s.loc)
		date := day.Format("2006-01-02")

		points, source, err := s.pastDay(ctx, date)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("skipping history day", "date", date, "error", err)
			continue
		}
		out = append(out, s.dayHistory(day, date, source, points))
	}
	return out, nil
}

func (s *Source) pastDay(ctx context.Context, date string) ([]models.PricePoint, string, error) {
	if s.history != nil {
		stored, err := s.history.GetByDay(ctx, date)
		switch {
		case err != nil:
			s.logger.Warn("price history read failed", "date", date, "error", err)
		case len(stored) > 0:
			return stored, stored[0].Source, nil
		}
	}

	series, err := s.Series(ctx, date, date)
	if err != nil {
		return nil, "", err
	}
	if s.history != nil {
		if err := s.history.SaveDay(ctx, date, series.Points); err != nil {
			s.logger.Warn("price history write failed", "date", date, "error", err)
		}
	}
	return series.Points, series.Source, nil
}

func (s *Source) dayHistory(day time.Time, date, source string, points []models.PricePoint) DayHistory {
	h := DayHistory{
		Date:   date,
		Label:  fmt.Sprintf("%s %d %s", dutchWeekdays[day.Weekday()], day.Day(), dutchMonths[day.Month()-1]),
		Source: source,
		Prices: make([]HistoryPoint, len(points)),
	}
	values := make([]float64, len(points))
	for i, p := range points {
		hour := p.Timestamp.In(s.loc).Hour()
		h.Prices[i] = HistoryPoint{PricePoint: p, Hour: hour, HourLabel: fmt.Sprintf("%02d:00", hour)}
		values[i] = p.PriceEURMWh
	}
	if st := statsOf(values); st != nil {
		h.DayStats = *st
	}
	return h
}
