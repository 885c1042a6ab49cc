package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/kjannette/stroomslim-backend/internal/models"
	"github.com/kjannette/stroomslim-backend/internal/pricing"
)

type todayResponse struct {
	Date   string                  `json:"date"`
	Source string                  `json:"source"`
	Prices []pricing.EnrichedPoint `json:"prices"`
	Stats  pricing.Stats           `json:"stats"`
}

type currentResponse struct {
	Timestamp   time.Time        `json:"timestamp"`
	HourLabel   string           `json:"hour_label"`
	PriceEURMWh float64          `json:"price_eur_mwh"`
	PriceEURKWh float64          `json:"price_eur_kwh"`
	Category    pricing.Category `json:"price_category"`
	Source      string           `json:"source"`
}

type cheapestResponse struct {
	Hours  int                 `json:"hours"`
	Source string              `json:"source"`
	Prices []models.PricePoint `json:"prices"`
}

func (s *Server) handlePricesToday(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	series, err := s.prices.Today(r.Context(), now)
	if err != nil {
		s.logger.Error("fetch today's prices", "error", err)
		writeError(w, http.StatusBadGateway, "price data unavailable")
		return
	}

	loc := s.prices.Location()
	enriched := pricing.Enrich(series.Points, now, loc)
	writeJSON(w, http.StatusOK, todayResponse{
		Date:   now.In(loc).Format("2006-01-02"),
		Source: series.Source,
		Prices: enriched,
		Stats:  pricing.ComputeStats(enriched),
	})
}

func (s *Server) handleCurrentPrice(w http.ResponseWriter, r *http.Request) {
	p, err := s.prices.CurrentPrice(r.Context(), s.now())
	if err != nil {
		s.logger.Error("fetch current price", "error", err)
		writeError(w, http.StatusBadGateway, "price data unavailable")
		return
	}

	writeJSON(w, http.StatusOK, currentResponse{
		Timestamp:   p.Timestamp,
		HourLabel:   fmt.Sprintf("%02d:00", p.Timestamp.In(s.prices.Location()).Hour()),
		PriceEURMWh: p.PriceEURMWh,
		PriceEURKWh: p.PriceEURKWh(),
		Category:    pricing.CategoryFor(p.PriceEURMWh),
		Source:      p.Source,
	})
}

func (s *Server) handleCheapest(w http.ResponseWriter, r *http.Request) {
	hours, err := parseHours(r, 3)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := s.now()
	series, err := s.prices.Today(r.Context(), now)
	if err != nil {
		s.logger.Error("fetch prices for cheapest hours", "error", err)
		writeError(w, http.StatusBadGateway, "price data unavailable")
		return
	}

	// The current hour started before now but is still usable.
	from := pricing.HourStart(now, s.prices.Location())
	cheapest := pricing.Cheapest(series.Points, from, hours)
	if cheapest == nil {
		cheapest = []models.PricePoint{}
	}
	writeJSON(w, http.StatusOK, cheapestResponse{Hours: hours, Source: series.Source, Prices: cheapest})
}

type historyResponse struct {
	Days []pricing.DayHistory `json:"days"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	days, err := parseDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	history, err := s.prices.History(r.Context(), s.now(), days)
	if err != nil {
		s.logger.Error("fetch price history", "error", err)
		writeError(w, http.StatusBadGateway, "price history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Days: history})
}
