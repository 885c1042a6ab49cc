package pricing

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kjannette/stroomslim-backend/internal/models"
)

type Category string

const (
	CategoryNegative  Category = "negative"
	CategoryVeryCheap Category = "very_cheap"
	CategoryCheap     Category = "cheap"
	CategoryModerate  Category = "moderate"
	CategoryExpensive Category = "expensive"
	CategoryPeak      Category = "peak"
)

// CategoryFor buckets a EUR/MWh price.
func CategoryFor(priceMWh float64) Category {
	switch {
	case priceMWh < 0:
		return CategoryNegative
	case priceMWh < 50:
		return CategoryVeryCheap
	case priceMWh < 90:
		return CategoryCheap
	case priceMWh < 130:
		return CategoryModerate
	case priceMWh < 160:
		return CategoryExpensive
	default:
		return CategoryPeak
	}
}

type EnrichedPoint struct {
	models.PricePoint
	PriceEURKWh float64  `json:"price_eur_kwh"`
	Day         string   `json:"day"`
	Hour        int      `json:"hour"`
	HourLabel   string   `json:"hour_label"`
	IsCurrent   bool     `json:"is_current"`
	IsNegative  bool     `json:"is_negative"`
	Category    Category `json:"price_category"`
}

func Enrich(points []models.PricePoint, now time.Time, loc *time.Location) []EnrichedPoint {
	ln := now.In(loc)
	today := ln.Format("2006-01-02")

	out := make([]EnrichedPoint, len(points))
	for i, p := range points {
		lt := p.Timestamp.In(loc)
		isToday := lt.Format("2006-01-02") == today
		day := "tomorrow"
		if isToday {
			day = "today"
		}
		out[i] = EnrichedPoint{
			PricePoint:  p,
			PriceEURKWh: p.PriceEURKWh(),
			Day:         day,
			Hour:        lt.Hour(),
			HourLabel:   fmt.Sprintf("%02d:00", lt.Hour()),
			IsCurrent:   isToday && lt.Hour() == ln.Hour(),
			IsNegative:  p.PriceEURMWh < 0,
			Category:    CategoryFor(p.PriceEURMWh),
		}
	}
	return out
}

type DayStats struct {
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Avg           float64 `json:"avg"`
	NegativeHours int     `json:"negative_hours"`
}

type Stats struct {
	Today    *DayStats `json:"today"`
	Tomorrow *DayStats `json:"tomorrow"`
}

func ComputeStats(points []EnrichedPoint) Stats {
	var today, tomorrow []float64
	for _, p := range points {
		if p.Day == "today" {
			today = append(today, p.PriceEURMWh)
		} else {
			tomorrow = append(tomorrow, p.PriceEURMWh)
		}
	}
	return Stats{Today: statsOf(today), Tomorrow: statsOf(tomorrow)}
}

func statsOf(prices []float64) *DayStats {
	if len(prices) == 0 {
		return nil
	}
	st := &DayStats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, v := range prices {
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
		sum += v
		if v < 0 {
			st.NegativeHours++
		}
	}
	st.Avg = math.Round(sum/float64(len(prices))*100) / 100
	return st
}

// HourStart is the beginning of the wall-clock hour containing t in loc.
func HourStart(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return lt.Add(-(time.Duration(lt.Minute())*time.Minute +
		time.Duration(lt.Second())*time.Second +
		time.Duration(lt.Nanosecond())))
}

// Cheapest returns up to n points at or after now, cheapest first.
func Cheapest(points []models.PricePoint, now time.Time, n int) []models.PricePoint {
	var upcoming []models.PricePoint
	for _, p := range points {
		if !p.Timestamp.Before(now) {
			upcoming = append(upcoming, p)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].PriceEURMWh < upcoming[j].PriceEURMWh
	})
	if n >= 0 && len(upcoming) > n {
		upcoming = upcoming[:n]
	}
	return upcoming
}
