package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dernekpanel/api/internal/repositories"
)

var startTime = time.Now()

// HealthHandlers answers liveness and readiness probes.
type HealthHandlers struct {
	health repositories.HealthRepository
}

// NewHealthHandlers constructs the health handler set.
func NewHealthHandlers(health repositories.HealthRepository) *HealthHandlers {
	return &HealthHandlers{health: health}
}

// Routes registers the health endpoints.
func (h *HealthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/healthz", h.healthz)
}

func (h *HealthHandlers) healthz(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"status":    "ok",
		"uptime":    time.Since(startTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			payload["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSONResponse(w, status, payload)
}
