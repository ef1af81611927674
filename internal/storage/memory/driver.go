package memory

import (
	"context"

	"github.com/hashicorp/go-memdb"
	"github.com/zeladoria/portal-gateway/internal/attempt"
	"github.com/zeladoria/portal-gateway/internal/session"
	"github.com/zeladoria/portal-gateway/internal/storage"
)

var dbSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		"sessions": {
			Name: "sessions",
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "Token"},
				},
				"userID": {
					Name:         "userID",
					Unique:       false,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "UserID"},
				},
				"expires": {
					Name:         "expires",
					Unique:       false,
					AllowMissing: false,
					Indexer:      &memdb.IntFieldIndex{Field: "Expires"},
				},
			},
		},
		"login_attempts": {
			Name: "login_attempts",
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:         "id",
					Unique:       true,
					AllowMissing: false,
					Indexer:      &memdb.StringFieldIndex{Field: "ID"},
				},
				"createdAt": {
					Name:         "createdAt",
					Unique:       false,
					AllowMissing: false,
					Indexer:      &memdb.IntFieldIndex{Field: "CreatedAt"},
				},
			},
		},
	},
}

// Driver represents the in-memory storage driver built using hashicorp/go-memdb.
// It is primarily meant for development setups and tests; sessions do not survive restarts.
type Driver struct {
	db       *memdb.MemDB
	sessions *SessionRepository
	attempts *AttemptRepository
}

var _ storage.Driver = (*Driver)(nil)

// New creates a new empty in-memory storage driver
func New() *Driver {
	return &Driver{}
}

// Initialize creates the in-memory database and initializes the repository implementations
func (driver *Driver) Initialize(_ context.Context) error {
	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return err
	}
	driver.db = db
	driver.sessions = &SessionRepository{db: db}
	driver.attempts = &AttemptRepository{db: db}
	return nil
}

// Sessions provides the in-memory session repository implementation
func (driver *Driver) Sessions() session.Repository {
	return driver.sessions
}

// LoginAttempts provides the in-memory login attempt repository implementation
func (driver *Driver) LoginAttempts() attempt.Repository {
	return driver.attempts
}

// Close discards the repository implementations and the underlying database
func (driver *Driver) Close() {
	driver.sessions = nil
	driver.attempts = nil
	driver.db = nil
}
