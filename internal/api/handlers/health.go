package handlers

import (
	"net/http"
	"time"

	"github.com/upcb/cloudsec/internal/pkg/utils"
	"github.com/upcb/cloudsec/internal/queue"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	queue queue.Queue
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(q queue.Queue) *HealthHandler {
	return &HealthHandler{queue: q}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Readiness handles GET /readyz: ready once the queue backend answers
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if _, err := h.queue.Stats(r.Context()); err != nil {
		utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
	})
}
