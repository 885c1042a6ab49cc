package alerts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kjannette/stroomslim-backend/internal/models"
	"github.com/kjannette/stroomslim-backend/internal/notifications"
)

// Mailer delivers one rendered email.
type Mailer interface {
	Send(ctx context.Context, msg notifications.Email) error
}

type Dispatcher struct {
	mailer Mailer
	from   string
	appURL string
}

func NewDispatcher(mailer Mailer, from, appURL string) *Dispatcher {
	return &Dispatcher{mailer: mailer, from: from, appURL: appURL}
}

// IdempotencyKey identifies one alert for one user within one run. Retries of
// the same send reuse it; a later run gets a new one.
func IdempotencyKey(runID string, userID uuid.UUID) string {
	return "price-alert/" + runID + "/" + userID.String()
}

// Send renders and delivers the alert for one candidate. runID scopes the
// provider-side idempotency key.
func (d *Dispatcher) Send(ctx context.Context, runID string, c models.AlertCandidate) error {
	subject, html, err := RenderAlertEmail(c, d.appURL)
	if err != nil {
		return err
	}
	err = d.mailer.Send(ctx, notifications.Email{
		From:           d.from,
		To:             c.User.Email,
		Subject:        subject,
		HTML:           html,
		IdempotencyKey: IdempotencyKey(runID, c.User.ID),
	})
	if err != nil {
		return fmt.Errorf("send alert to %s: %w", c.User.ID, err)
	}
	return nil
}
