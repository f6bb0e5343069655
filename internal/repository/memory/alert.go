package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/upcb/cloudsec/internal/domain/alert"
	apperrors "github.com/upcb/cloudsec/internal/pkg/errors"
)

// AlertRepository is an in-memory alert store
type AlertRepository struct {
	mu     sync.RWMutex
	alerts map[string]*alert.Alert
}

// NewAlertRepository creates an empty in-memory alert store
func NewAlertRepository() *AlertRepository {
	return &AlertRepository{
		alerts: make(map[string]*alert.Alert),
	}
}

// Create persists a new alert
func (r *AlertRepository) Create(_ context.Context, a *alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *a
	r.alerts[a.ID] = &stored
	return nil
}

// GetByID retrieves an alert by ID
func (r *AlertRepository) GetByID(_ context.Context, id string) (*alert.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, apperrors.NotFound("alert")
	}
	out := *a
	return &out, nil
}

// Update updates an existing alert
func (r *AlertRepository) Update(_ context.Context, a *alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alerts[a.ID]; !ok {
		return apperrors.NotFound("alert")
	}
	stored := *a
	r.alerts[a.ID] = &stored
	return nil
}

// ListByUser retrieves a user's alerts, newest first, with filters and
// pagination
func (r *AlertRepository) ListByUser(_ context.Context, userID string, filter alert.Filter, limit, offset int) ([]*alert.Alert, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*alert.Alert, 0)
	for _, a := range r.alerts {
		if a.UserID != userID {
			continue
		}
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out := *a
		matched = append(matched, &out)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return []*alert.Alert{}, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}
