package user

import "context"

// Repository defines the interface for user data access.
// User management lives outside this subsystem; the delivery worker
// only resolves recipients through this boundary.
type Repository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*User, error)
}
