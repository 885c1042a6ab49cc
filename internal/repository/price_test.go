package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/kjannette/stroomslim-backend/internal/models"
	"github.com/kjannette/stroomslim-backend/internal/repository"
	"github.com/kjannette/stroomslim-backend/internal/testutil"
)

func TestPriceRepo_SaveAndGetDay(t *testing.T) {
	pool := testutil.SetupPool(t)
	repo := repository.NewPriceRepo(pool)
	ctx := context.Background()

	if err := repo.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}

	const date = "1999-01-02"
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM price_history WHERE market_date = '1999-01-02'`)
	})

	start := time.Date(1999, 1, 1, 23, 0, 0, 0, time.UTC)
	points := []models.PricePoint{
		{Timestamp: start.Add(time.Hour), PriceEURMWh: -4.5, Source: "Elia Open Data"},
		{Timestamp: start, PriceEURMWh: 61.2, Source: "Elia Open Data"},
	}
	if err := repo.SaveDay(ctx, date, points); err != nil {
		t.Fatalf("SaveDay: %v", err)
	}
	// Saving again replaces rather than duplicates.
	points[1].Source = "Energy-Charts"
	if err := repo.SaveDay(ctx, date, points); err != nil {
		t.Fatalf("SaveDay again: %v", err)
	}

	got, err := repo.GetByDay(ctx, date)
	if err != nil {
		t.Fatalf("GetByDay: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 points, got %d", len(got))
	}
	if !got[0].Timestamp.Equal(start) || got[0].PriceEURMWh != 61.2 || got[0].Source != "Energy-Charts" {
		t.Fatalf("unexpected first point: %+v", got[0])
	}

	empty, err := repo.GetByDay(ctx, "1999-01-03")
	if err != nil {
		t.Fatalf("GetByDay empty: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no points, got %d", len(empty))
	}
}
