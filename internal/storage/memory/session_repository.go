package memory

import (
	"context"
	"time"

	"github.com/hashicorp/go-memdb"
	"github.com/zeladoria/portal-gateway/internal/session"
)

// SessionRepository implements the session.Repository interface using go-memdb
type SessionRepository struct {
	db *memdb.MemDB
}

var _ session.Repository = (*SessionRepository)(nil)

// GetByRawToken retrieves a session by its raw (prior hashing) token
func (repo *SessionRepository) GetByRawToken(_ context.Context, rawToken string) (*session.Session, error) {
	hash := session.HashToken(rawToken)

	txn := repo.db.Txn(false)
	obj, err := txn.First("sessions", "id", hash)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}

	// Hand out a copy so callers can mutate the session before an Update
	cpy := *obj.(*session.Session)
	return &cpy, nil
}

// Create persists a new session and returns the generated raw token
func (repo *SessionRepository) Create(_ context.Context, ses *session.Session) (string, error) {
	rawToken := session.NewRawToken()
	ses.Token = session.HashToken(rawToken)

	cpy := *ses
	txn := repo.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert("sessions", &cpy); err != nil {
		return "", err
	}
	txn.Commit()

	return rawToken, nil
}

// Update replaces a stored session, addressed by its (hashed) Token field
func (repo *SessionRepository) Update(_ context.Context, ses *session.Session) error {
	cpy := *ses
	txn := repo.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert("sessions", &cpy); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// TerminateByToken terminates a session by its raw token
func (repo *SessionRepository) TerminateByToken(_ context.Context, rawToken string) error {
	hash := session.HashToken(rawToken)

	txn := repo.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll("sessions", "id", hash); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// TerminateByUserID terminates all sessions of a specific user ID
func (repo *SessionRepository) TerminateByUserID(_ context.Context, userID string) error {
	txn := repo.db.Txn(true)
	defer txn.Abort()
	if _, err := txn.DeleteAll("sessions", "userID", userID); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// TerminateExpired terminates all sessions that are expired
func (repo *SessionRepository) TerminateExpired(_ context.Context) (int, error) {
	txn := repo.db.Txn(true)
	defer txn.Abort()

	it, err := txn.LowerBound("sessions", "expires", int64(0))
	if err != nil {
		return 0, err
	}

	// Collect first; deleting while iterating would invalidate the iterator
	now := time.Now().Unix()
	var expired []*session.Session
	for obj := it.Next(); obj != nil; obj = it.Next() {
		ses := obj.(*session.Session)
		if ses.Expires > now {
			break
		}
		expired = append(expired, ses)
	}
	for _, ses := range expired {
		if err := txn.Delete("sessions", ses); err != nil {
			return 0, err
		}
	}

	txn.Commit()
	return len(expired), nil
}
