package alert

import "context"

// Service defines the interface for alert business logic
type Service interface {
	// Create persists a new alert, pushes it to live subscribers and
	// enqueues a delivery job
	Create(ctx context.Context, alert *Alert) (string, error)

	// GetByID retrieves an alert owned by the given user
	GetByID(ctx context.Context, userID, id string) (*Alert, error)

	// List retrieves a user's alerts with filters and pagination
	List(ctx context.Context, userID string, filter Filter, limit, offset int) ([]*Alert, int64, error)

	// Acknowledge marks an alert as acknowledged by the given user
	Acknowledge(ctx context.Context, userID, id string) (*Alert, error)
}
