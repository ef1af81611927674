package attempt

import "context"

// Repository defines the login attempt audit storage API
type Repository interface {
	// Get retrieves multiple login attempts, newest first, and the total amount of stored ones
	Get(ctx context.Context, offset, limit uint64) ([]*Attempt, uint64, error)

	// Create records a new login attempt
	Create(ctx context.Context, create *Attempt) error
}
