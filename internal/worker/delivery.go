package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/upcb/cloudsec/internal/alerting"
	"github.com/upcb/cloudsec/internal/domain/alert"
	"github.com/upcb/cloudsec/internal/domain/user"
	apperrors "github.com/upcb/cloudsec/internal/pkg/errors"
	"github.com/upcb/cloudsec/internal/pkg/logger"
	"github.com/upcb/cloudsec/internal/queue"
)

// DeliveryWorker resolves queued delivery jobs and hands the alert to
// the channel dispatcher
type DeliveryWorker struct {
	alerts     alert.Repository
	users      user.Repository
	dispatcher *alerting.Dispatcher
	log        *logger.Logger
}

// NewDeliveryWorker creates a delivery worker
func NewDeliveryWorker(alerts alert.Repository, users user.Repository, dispatcher *alerting.Dispatcher, log *logger.Logger) *DeliveryWorker {
	return &DeliveryWorker{
		alerts:     alerts,
		users:      users,
		dispatcher: dispatcher,
		log:        log,
	}
}

// Handle processes one delivery job. A job whose alert or recipient no
// longer exists is dropped without retries; a dispatch where every
// channel failed is retried.
func (w *DeliveryWorker) Handle(ctx context.Context, job *queue.Job) error {
	a, err := w.alerts.GetByID(ctx, job.AlertID)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("alert %s no longer exists: %w", job.AlertID, queue.ErrNonRetryable)
		}
		return fmt.Errorf("load alert %s: %w", job.AlertID, err)
	}

	u, err := w.users.GetByID(ctx, job.UserID)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("recipient %s no longer exists: %w", job.UserID, queue.ErrNonRetryable)
		}
		return fmt.Errorf("load user %s: %w", job.UserID, err)
	}

	m := w.dispatcher.Dispatch(ctx, a, u.Email)

	if len(m.Results) > 0 && failedAll(m.Results) {
		return fmt.Errorf("all %d channels failed for alert %s", len(m.Results), a.ID)
	}
	return nil
}

func failedAll(results []alerting.SendResult) bool {
	for _, r := range results {
		if r.Success {
			return false
		}
	}
	return true
}

func isNotFound(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr) && appErr.Code == apperrors.ErrCodeNotFound
}
