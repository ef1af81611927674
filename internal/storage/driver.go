package storage

import (
	"context"

	"github.com/zeladoria/portal-gateway/internal/attempt"
	"github.com/zeladoria/portal-gateway/internal/session"
)

// Driver represents a storage driver
type Driver interface {
	// Initialize initializes the storage driver (i.e. opens a database connection)
	Initialize(ctx context.Context) error

	// Sessions provides a session repository implementation
	Sessions() session.Repository

	// LoginAttempts provides a login attempt audit repository implementation
	LoginAttempts() attempt.Repository

	// Close closes the storage driver (i.e. closes a database connection)
	Close()
}
