package models

// AlertCandidate is produced by the selector and consumed once by the
// dispatcher. It is never persisted.
type AlertCandidate struct {
	User         User
	CurrentPrice float64
	Threshold    float64
}

// Saving is how far the current price sits below the user's threshold.
func (c AlertCandidate) Saving() float64 {
	return c.Threshold - c.CurrentPrice
}
