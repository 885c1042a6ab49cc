package models

import (
	"math"
	"time"
)

// PricePoint is one bucket of the day-ahead series. Prices can be negative.
type PricePoint struct {
	Timestamp   time.Time `json:"timestamp"`
	PriceEURMWh float64   `json:"price_eur_mwh"`
	Source      string    `json:"source"`
}

// PriceEURKWh converts the MWh price to EUR/kWh, rounded to 6 places.
func (p PricePoint) PriceEURKWh() float64 {
	return math.Round(p.PriceEURMWh*1000) / 1e6
}
