package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/zeladoria/portal-gateway/internal/attempt"
	"github.com/zeladoria/portal-gateway/internal/session"
	"github.com/zeladoria/portal-gateway/internal/storage"
)

// Options configures the Redis storage driver
type Options struct {
	Address  string
	Password string
	DB       int
}

// Driver represents the Redis storage driver implementation.
// Sessions live as JSON values with a native Redis TTL; a per-user index set enables
// terminating all sessions of a user at once.
type Driver struct {
	options  Options
	client   *redis.Client
	sessions *SessionRepository
	attempts *AttemptRepository
}

var _ storage.Driver = (*Driver)(nil)

// New creates a new empty Redis storage driver.
// Use Initialize to open the connection and initialize the repository implementations.
func New(options Options) *Driver {
	return &Driver{
		options: options,
	}
}

// Initialize opens the Redis connection and initializes the repository implementations
func (driver *Driver) Initialize(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:     driver.options.Address,
		Password: driver.options.Password,
		DB:       driver.options.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return err
	}
	driver.client = client

	driver.sessions = &SessionRepository{client: client}
	driver.attempts = &AttemptRepository{client: client}

	return nil
}

// Sessions provides the Redis session repository implementation
func (driver *Driver) Sessions() session.Repository {
	return driver.sessions
}

// LoginAttempts provides the Redis login attempt repository implementation
func (driver *Driver) LoginAttempts() attempt.Repository {
	return driver.attempts
}

// Close discards the repository implementations and closes the Redis connection
func (driver *Driver) Close() {
	driver.sessions = nil
	driver.attempts = nil

	_ = driver.client.Close()
	driver.client = nil
}
