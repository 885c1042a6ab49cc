package alerts

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kjannette/stroomslim-backend/internal/models"
	"github.com/kjannette/stroomslim-backend/internal/notifications"
)

type patchCall struct {
	id    uuid.UUID
	patch models.PreferencesPatch
}

// fakeStore keeps users in memory and applies patches so consecutive runs
// see earlier sends.
type fakeStore struct {
	mu        sync.Mutex
	users     []models.User
	findErr   error
	patchErr  map[uuid.UUID]error
	patches   []patchCall
	findCalls int
}

func (s *fakeStore) FindAlertEligibleUsers(context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.findErr != nil {
		return nil, s.findErr
	}
	out := make([]models.User, len(s.users))
	copy(out, s.users)
	return out, nil
}

func (s *fakeStore) PatchPreferences(_ context.Context, id uuid.UUID, patch models.PreferencesPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches = append(s.patches, patchCall{id: id, patch: patch})
	if err := s.patchErr[id]; err != nil {
		return err
	}
	for i := range s.users {
		if s.users[i].ID == id {
			patch.Apply(&s.users[i].Preferences)
		}
	}
	return nil
}

func (s *fakeStore) patchedIDs() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for _, p := range s.patches {
		ids = append(ids, p.id)
	}
	return ids
}

type fakeMailer struct {
	mu     sync.Mutex
	failTo map[string]error
	sent   []notifications.Email
}

func (m *fakeMailer) Send(_ context.Context, msg notifications.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failTo[msg.To]; err != nil {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.sent {
		out = append(out, e.To)
	}
	return out
}

type fakePrices struct {
	point models.PricePoint
	err   error
	calls int
}

func (p *fakePrices) CurrentPrice(context.Context, time.Time) (models.PricePoint, error) {
	p.calls++
	if p.err != nil {
		return models.PricePoint{}, p.err
	}
	return p.point, nil
}

func ptr[T any](v T) *T { return &v }

func alertUser(email string, threshold float64, lastSent *time.Time) models.User {
	return models.User{
		ID:    uuid.New(),
		Email: email,
		Name:  "Test",
		Preferences: models.Preferences{
			AlertsEnabled:  true,
			AlertThreshold: ptr(threshold),
			LastAlertSent:  lastSent,
		},
	}
}
