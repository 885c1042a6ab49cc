// Package cache holds short-lived copies of upstream price series so a burst
// of API calls and the alert run share one upstream fetch.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kjannette/stroomslim-backend/internal/models"
)

// DefaultSeriesTTL matches how often upstream day-ahead data can change.
const DefaultSeriesTTL = 15 * time.Minute

var ErrCacheMiss = errors.New("cache miss")

type entry struct {
	points    []models.PricePoint
	expiresAt time.Time
}

// Memory is an in-process TTL cache. The zero value is not usable; call NewMemory.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultSeriesTTL
	}
	return &Memory{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// WithClock replaces the time source, for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) GetSeries(_ context.Context, key string) ([]models.PricePoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, ErrCacheMiss
	}
	out := make([]models.PricePoint, len(e.points))
	copy(out, e.points)
	return out, nil
}

func (m *Memory) SetSeries(_ context.Context, key string, points []models.PricePoint) error {
	stored := make([]models.PricePoint, len(points))
	copy(stored, points)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked()
	m.entries[key] = entry{points: stored, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// purgeLocked drops expired entries so keys for past days do not accumulate.
func (m *Memory) purgeLocked() {
	now := m.now()
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}
