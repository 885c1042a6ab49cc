package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kjannette/stroomslim-backend/internal/models"
)

// Recorder persists the last-alert timestamp that drives deduplication.
type Recorder struct {
	store UserStore
}

func NewRecorder(store UserStore) *Recorder {
	return &Recorder{store: store}
}

// MarkSent writes lastAlertSent for exactly one user and touches no other
// preference. Call it only after a confirmed send.
func (r *Recorder) MarkSent(ctx context.Context, userID uuid.UUID, when time.Time) error {
	ts := when.UTC()
	if err := r.store.PatchPreferences(ctx, userID, models.PreferencesPatch{LastAlertSent: &ts}); err != nil {
		return fmt.Errorf("mark alert sent for %s: %w", userID, err)
	}
	return nil
}
