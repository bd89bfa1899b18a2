package server

import (
	"encoding/json"
	"net/http"
	"time"

	"albumserver/internal/database"
)

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Database  string                 `json:"database"`
	Rows      *database.TableCounts  `json:"rows,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// handleHealthCheck returns liveness plus database connectivity and row counts.
func (s *AlbumServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) error {
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Database:  "ok",
		Details:   make(map[string]interface{}),
	}

	if err := s.catalog.Ping(); err != nil {
		health.Status = "unhealthy"
		health.Database = "error"
		health.Details["database_error"] = err.Error()
	} else if counts, err := s.catalog.Counts(); err != nil {
		health.Details["count_error"] = err.Error()
	} else {
		health.Rows = &counts
	}

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.WithError(err).Warn("Failed to encode health status")
	}
	return nil
}
