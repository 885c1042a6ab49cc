package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	Database string `json:"database"`
	Alerts   string `json:"alerts"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	if s.db == nil || s.db.Ping(r.Context()) != nil {
		dbStatus = "disconnected"
	}
	alertStatus := "enabled"
	if s.alerts == nil {
		alertStatus = "disabled"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Services:  healthServices{Database: dbStatus, Alerts: alertStatus},
	})
}
