package memory

import (
	"context"
	"sync"

	"github.com/upcb/cloudsec/internal/domain/user"
	apperrors "github.com/upcb/cloudsec/internal/pkg/errors"
)

// UserRepository is an in-memory user store
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*user.User
}

// NewUserRepository creates an empty in-memory user store
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[string]*user.User),
	}
}

// Put adds or replaces a user
func (r *UserRepository) Put(u *user.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *u
	r.users[u.ID] = &stored
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(_ context.Context, id string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.NotFound("user")
	}
	out := *u
	return &out, nil
}
