package alert

import "context"

// Repository defines the interface for alert data access.
// Persistence itself lives outside this subsystem; the core only
// resolves and lists alerts through this boundary.
type Repository interface {
	// Create persists a new alert
	Create(ctx context.Context, alert *Alert) error

	// GetByID retrieves an alert by ID
	GetByID(ctx context.Context, id string) (*Alert, error)

	// Update updates an alert
	Update(ctx context.Context, alert *Alert) error

	// ListByUser retrieves a user's alerts with filters and pagination
	ListByUser(ctx context.Context, userID string, filter Filter, limit, offset int) ([]*Alert, int64, error)
}
