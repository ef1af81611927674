package session

import "context"

// Repository defines the session storage API
type Repository interface {
	// GetByRawToken retrieves a session by its raw (prior hashing) token.
	// It returns (nil, nil) if no such session exists.
	GetByRawToken(ctx context.Context, rawToken string) (*Session, error)

	// Create persists a new session and returns the generated raw token.
	// The Token field of the given session is overwritten with the hashed token.
	Create(ctx context.Context, ses *Session) (string, error)

	// Update replaces a stored session, addressed by its (hashed) Token field
	Update(ctx context.Context, ses *Session) error

	// TerminateByToken terminates a session by its raw token
	TerminateByToken(ctx context.Context, rawToken string) error

	// TerminateByUserID terminates all sessions of a specific user ID
	TerminateByUserID(ctx context.Context, userID string) error

	// TerminateExpired terminates all sessions that are expired
	TerminateExpired(ctx context.Context) (int, error)
}
