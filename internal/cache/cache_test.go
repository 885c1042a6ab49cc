package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/kjannette/stroomslim-backend/internal/models"
)

func samplePoints() []models.PricePoint {
	return []models.PricePoint{
		{Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), PriceEURMWh: 65, Source: "Energy-Charts"},
		{Timestamp: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC), PriceEURMWh: -4.5, Source: "Energy-Charts"},
	}
}

func TestMemory_HitWithinTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := NewMemory(15 * time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()

	if _, err := m.GetSeries(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss on empty cache, got %v", err)
	}

	if err := m.SetSeries(ctx, "k", samplePoints()); err != nil {
		t.Fatalf("SetSeries: %v", err)
	}

	now = now.Add(14 * time.Minute)
	got, err := m.GetSeries(ctx, "k")
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	if len(got) != 2 || got[1].PriceEURMWh != -4.5 {
		t.Fatalf("unexpected series: %+v", got)
	}
}

func TestMemory_ExpiresAfterTTL(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := NewMemory(15 * time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()

	m.SetSeries(ctx, "k", samplePoints())
	now = now.Add(15 * time.Minute)

	if _, err := m.GetSeries(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after TTL, got %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("expired entry should be dropped, len=%d", m.Len())
	}
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := NewMemory(time.Minute)
	ctx := context.Background()

	pts := samplePoints()
	m.SetSeries(ctx, "k", pts)
	pts[0].PriceEURMWh = 999

	got, _ := m.GetSeries(ctx, "k")
	got[1].PriceEURMWh = 999

	again, _ := m.GetSeries(ctx, "k")
	if again[0].PriceEURMWh != 65 || again[1].PriceEURMWh != -4.5 {
		t.Fatalf("cache shares memory with callers: %+v", again)
	}
}

func TestMemory_SetPurgesExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()

	m.SetSeries(ctx, "old", samplePoints())
	now = now.Add(2 * time.Minute)
	m.SetSeries(ctx, "new", samplePoints())

	if m.Len() != 1 {
		t.Fatalf("expected only the fresh key, len=%d", m.Len())
	}
}

func TestRedis_RoundTrip(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set, skipping")
	}

	ctx := context.Background()
	c, err := NewRedis(ctx, url, time.Minute)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer c.Close()

	key := "test-" + time.Now().Format(time.RFC3339Nano)
	if _, err := c.GetSeries(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
	if err := c.SetSeries(ctx, key, samplePoints()); err != nil {
		t.Fatalf("SetSeries: %v", err)
	}
	got, err := c.GetSeries(ctx, key)
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	if len(got) != 2 || !got[0].Timestamp.Equal(samplePoints()[0].Timestamp) {
		t.Fatalf("unexpected series: %+v", got)
	}
}
