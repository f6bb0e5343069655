package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/upcb/cloudsec/internal/alerting"
	"github.com/upcb/cloudsec/internal/api/middleware"
	"github.com/upcb/cloudsec/internal/domain/alert"
	apperrors "github.com/upcb/cloudsec/internal/pkg/errors"
	"github.com/upcb/cloudsec/internal/pkg/logger"
	"github.com/upcb/cloudsec/internal/pkg/utils"
)

// streamBuffer is the per-connection alert buffer; a subscriber that
// cannot keep up drops the oldest pending alerts rather than blocking
// the publisher
const streamBuffer = 16

// StreamHandler serves live alert streams over SSE
type StreamHandler struct {
	publisher *alerting.Publisher
	heartbeat time.Duration
	log       *logger.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(publisher *alerting.Publisher, heartbeat time.Duration, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		publisher: publisher,
		heartbeat: heartbeat,
		log:       log,
	}
}

// Stream handles GET /api/v1/alerts/stream: the caller's own alerts
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, middleware.UserIDFromContext(r.Context()))
}

// AdminStream handles GET /api/v1/admin/alerts/stream: every user's
// alerts
func (h *StreamHandler) AdminStream(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.publisher.AdminKey())
}

func (h *StreamHandler) serve(w http.ResponseWriter, r *http.Request, key string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, apperrors.Internal("streaming not supported", nil))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	events := make(chan *alert.Alert, streamBuffer)
	unsubscribe := h.publisher.Subscribe(key, func(a *alert.Alert) {
		select {
		case events <- a:
		default:
			h.log.WithFields(map[string]interface{}{
				"key":      key,
				"alert_id": a.ID,
			}).Warn("stream subscriber buffer full, dropping alert")
		}
	})
	defer unsubscribe()

	writeEvent(w, flusher, "connected", map[string]interface{}{
		"status":    "connected",
		"timestamp": time.Now().UTC(),
	})

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			writeEvent(w, flusher, "heartbeat", map[string]interface{}{
				"timestamp": time.Now().UTC(),
			})
		case a := <-events:
			writeEvent(w, flusher, "alert", a)
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, name string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	flusher.Flush()
}
