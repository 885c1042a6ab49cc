package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/kjannette/stroomslim-backend/internal/alerts"
	"github.com/kjannette/stroomslim-backend/internal/scheduler"
)

func (s *Server) handleRunAlerts(w http.ResponseWriter, r *http.Request) {
	if s.alerts == nil {
		writeError(w, http.StatusServiceUnavailable, "email alerts are disabled (RESEND_API_KEY not set)")
		return
	}

	// A client disconnect must not abort a run halfway through the sends.
	summary, err := s.alerts.RunNow(context.WithoutCancel(r.Context()))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, summary)
	case errors.Is(err, scheduler.ErrRunInProgress):
		writeError(w, http.StatusConflict, "an alert run is already in progress")
	case errors.Is(err, alerts.ErrUpstreamPriceUnavailable):
		writeError(w, http.StatusBadGateway, "current price unavailable, run aborted")
	default:
		s.logger.Error("manual alert run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "alert run failed")
	}
}
