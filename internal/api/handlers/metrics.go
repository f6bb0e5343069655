package handlers

import (
	"net/http"
	"time"

	"github.com/upcb/cloudsec/internal/alerting"
	"github.com/upcb/cloudsec/internal/api/dto"
	apperrors "github.com/upcb/cloudsec/internal/pkg/errors"
	"github.com/upcb/cloudsec/internal/pkg/logger"
	"github.com/upcb/cloudsec/internal/pkg/utils"
	"github.com/upcb/cloudsec/internal/queue"
)

// MetricsHandler serves the admin delivery metrics view
type MetricsHandler struct {
	recorder          *alerting.Recorder
	publisher         *alerting.Publisher
	queue             queue.Queue
	slaThreshold      time.Duration
	healthyThreshold  float64
	degradedThreshold float64
	log               *logger.Logger
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(recorder *alerting.Recorder, publisher *alerting.Publisher, q queue.Queue,
	slaThreshold time.Duration, healthyThreshold, degradedThreshold float64, log *logger.Logger) *MetricsHandler {
	return &MetricsHandler{
		recorder:          recorder,
		publisher:         publisher,
		queue:             q,
		slaThreshold:      slaThreshold,
		healthyThreshold:  healthyThreshold,
		degradedThreshold: degradedThreshold,
		log:               log,
	}
}

// Delivery handles GET /api/v1/admin/metrics/alerts
func (h *MetricsHandler) Delivery(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		h.log.ErrorWithErr(err, "failed to read queue stats")
		utils.WriteError(w, apperrors.QueueError("failed to read queue stats", err))
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.DeliveryMetricsResponse{
		Summary:      h.recorder.Summary(),
		SLAThreshold: h.slaThreshold.Milliseconds(),
		Health:       h.recorder.Health(h.healthyThreshold, h.degradedThreshold),
		Queue:        stats,
		Subscribers:  h.publisher.Stats(),
		GeneratedAt:  time.Now().UTC(),
	})
}
