package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/upcb/cloudsec/internal/api/dto"
	"github.com/upcb/cloudsec/internal/api/middleware"
	"github.com/upcb/cloudsec/internal/domain/alert"
	apperrors "github.com/upcb/cloudsec/internal/pkg/errors"
	"github.com/upcb/cloudsec/internal/pkg/logger"
	"github.com/upcb/cloudsec/internal/pkg/utils"
	"github.com/upcb/cloudsec/internal/pkg/validator"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AlertHandler serves the alert CRUD surface
type AlertHandler struct {
	service   alert.Service
	validator *validator.Validator
	log       *logger.Logger
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(service alert.Service, v *validator.Validator, log *logger.Logger) *AlertHandler {
	return &AlertHandler{
		service:   service,
		validator: v,
		log:       log,
	}
}

// Create handles POST /api/v1/alerts
func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, apperrors.BadRequest("invalid request body"))
		return
	}

	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, apperrors.ValidationError("validation failed", errs))
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	id, err := h.service.Create(r.Context(), req.ToModel(userID))
	if err != nil {
		h.writeServiceError(w, err, "failed to create alert")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, dto.CreateAlertResponse{ID: id})
}

// List handles GET /api/v1/alerts
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	filter := alert.Filter{
		Severity: r.URL.Query().Get("severity"),
		Status:   r.URL.Query().Get("status"),
	}
	limit := queryInt(r, "limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	alerts, total, err := h.service.List(r.Context(), userID, filter, limit, offset)
	if err != nil {
		h.writeServiceError(w, err, "failed to list alerts")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.ListAlertsResponse{
		Alerts: alerts,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /api/v1/alerts/{id}
func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	a, err := h.service.GetByID(r.Context(), userID, id)
	if err != nil {
		h.writeServiceError(w, err, "failed to get alert")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, a)
}

// Acknowledge handles POST /api/v1/alerts/{id}/acknowledge
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	a, err := h.service.Acknowledge(r.Context(), userID, id)
	if err != nil {
		h.writeServiceError(w, err, "failed to acknowledge alert")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "alert acknowledged", a)
}

func (h *AlertHandler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		utils.WriteError(w, appErr)
		return
	}
	h.log.ErrorWithErr(err, msg)
	utils.WriteError(w, apperrors.Internal(msg, err))
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
