// Package alerts decides who gets a low-price email this hour, sends it, and
// records the send so the same user is not mailed again within the dedup
// window.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kjannette/stroomslim-backend/internal/models"
)

// DefaultDedupWindow is the rolling period after a sent alert during which
// the same user is not alerted again.
const DefaultDedupWindow = time.Hour

var ErrUserStoreQuery = errors.New("user store query failed")

// UserStore is the slice of the user repository the engine needs.
type UserStore interface {
	FindAlertEligibleUsers(ctx context.Context) ([]models.User, error)
	PatchPreferences(ctx context.Context, id uuid.UUID, patch models.PreferencesPatch) error
}

type Selector struct {
	store  UserStore
	window time.Duration
	now    func() time.Time
}

func NewSelector(store UserStore, window time.Duration) *Selector {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Selector{store: store, window: window, now: time.Now}
}

// SelectCandidates returns the users whose threshold is above currentPrice
// and who have not been alerted within the dedup window. It has no side
// effects.
func (s *Selector) SelectCandidates(ctx context.Context, currentPrice float64) ([]models.AlertCandidate, error) {
	users, err := s.store.FindAlertEligibleUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUserStoreQuery, err)
	}

	now := s.now()
	var out []models.AlertCandidate
	for _, u := range users {
		if Eligible(u.Preferences, currentPrice, now, s.window) {
			out = append(out, models.AlertCandidate{
				User:         u,
				CurrentPrice: currentPrice,
				Threshold:    *u.Preferences.AlertThreshold,
			})
		}
	}
	return out, nil
}

// Eligible is the selection predicate: alerts on, a threshold set and
// strictly above the price, and no alert sent after now-window.
func Eligible(p models.Preferences, currentPrice float64, now time.Time, window time.Duration) bool {
	if !p.AlertsEnabled || p.AlertThreshold == nil {
		return false
	}
	if !(*p.AlertThreshold > currentPrice) {
		return false
	}
	if p.LastAlertSent != nil && p.LastAlertSent.After(now.Add(-window)) {
		return false
	}
	return true
}
