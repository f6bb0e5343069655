package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/upcb/cloudsec/internal/alerting"
	"github.com/upcb/cloudsec/internal/domain/alert"
	apperrors "github.com/upcb/cloudsec/internal/pkg/errors"
	"github.com/upcb/cloudsec/internal/pkg/logger"
	"github.com/upcb/cloudsec/internal/queue"
)

// alertService implements alert.Service
type alertService struct {
	repo      alert.Repository
	publisher *alerting.Publisher
	queue     queue.Queue
	log       *logger.Logger
}

// NewAlertService creates a new alert service
func NewAlertService(repo alert.Repository, publisher *alerting.Publisher, q queue.Queue, log *logger.Logger) alert.Service {
	return &alertService{
		repo:      repo,
		publisher: publisher,
		queue:     q,
		log:       log,
	}
}

// Create persists the alert, pushes it to live subscribers and
// enqueues a delivery job. A queue failure does not fail the create:
// the alert is already stored and streamed, so it is logged and the
// alert ID is still returned.
func (s *alertService) Create(ctx context.Context, a *alert.Alert) (string, error) {
	if !alert.ValidSeverity(a.Severity) {
		return "", apperrors.BadRequest("invalid alert severity")
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = alert.StatusOpen
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return "", apperrors.Internal("failed to create alert", err)
	}

	delivered := s.publisher.Publish(a)
	s.log.WithFields(map[string]interface{}{
		"alert_id":    a.ID,
		"user_id":     a.UserID,
		"severity":    a.Severity,
		"subscribers": delivered,
	}).Info("alert created")

	job := &queue.Job{
		ID:         uuid.NewString(),
		AlertID:    a.ID,
		UserID:     a.UserID,
		Priority:   queue.PriorityForSeverity(a.Severity),
		EnqueuedAt: time.Now(),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.log.WithFields(map[string]interface{}{
			"alert_id": a.ID,
			"job_id":   job.ID,
		}).ErrorWithErr(err, "failed to enqueue delivery job")
	}

	return a.ID, nil
}

// GetByID retrieves an alert owned by the given user. Alerts owned by
// someone else read as not found.
func (s *alertService) GetByID(ctx context.Context, userID, id string) (*alert.Alert, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, apperrors.NotFound("alert")
	}
	return a, nil
}

// List retrieves a user's alerts with filters and pagination
func (s *alertService) List(ctx context.Context, userID string, filter alert.Filter, limit, offset int) ([]*alert.Alert, int64, error) {
	if filter.Severity != "" && !alert.ValidSeverity(filter.Severity) {
		return nil, 0, apperrors.BadRequest("invalid severity filter")
	}
	if filter.Status != "" && !alert.ValidStatus(filter.Status) {
		return nil, 0, apperrors.BadRequest("invalid status filter")
	}
	return s.repo.ListByUser(ctx, userID, filter, limit, offset)
}

// Acknowledge marks an open alert as acknowledged by its owner.
// Acknowledging twice is a no-op; resolved alerts cannot go back.
func (s *alertService) Acknowledge(ctx context.Context, userID, id string) (*alert.Alert, error) {
	a, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	switch a.Status {
	case alert.StatusAcknowledged:
		return a, nil
	case alert.StatusOpen:
		// fall through to update
	default:
		return nil, apperrors.BadRequest("alert is not open")
	}

	now := time.Now()
	a.Status = alert.StatusAcknowledged
	a.AcknowledgedBy = userID
	a.AcknowledgedAt = &now

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, apperrors.Internal("failed to acknowledge alert", err)
	}

	s.log.WithFields(map[string]interface{}{
		"alert_id": a.ID,
		"user_id":  userID,
	}).Info("alert acknowledged")
	return a, nil
}
