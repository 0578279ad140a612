package handlers

import (
	"context"
	"net/http"
	"time"

	"hookbot/internal/pkg/errors"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db       Pinger
	pending  func() int
	sessions func() int
}

func NewHealthHandler(db Pinger, pending, sessions func() int) *HealthHandler {
	return &HealthHandler{db: db, pending: pending, sessions: sessions}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
	} else {
		checks["database"] = "healthy"
	}

	status := "healthy"
	statusCode := http.StatusOK
	if checks["database"] != "healthy" {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	response := struct {
		Status          string            `json:"status"`
		Timestamp       int64             `json:"timestamp"`
		Checks          map[string]string `json:"checks"`
		PendingRequests int               `json:"pending_requests"`
		CaptureSessions int               `json:"capture_sessions"`
	}{
		Status:    status,
		Timestamp: time.Now().Unix(),
		Checks:    checks,
	}
	if h.pending != nil {
		response.PendingRequests = h.pending()
	}
	if h.sessions != nil {
		response.CaptureSessions = h.sessions()
	}

	errors.WriteJSON(w, statusCode, response)
}
