package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeladoria/portal-gateway/internal/session"
)

const (
	sessionKeyPrefix   = "session:"
	userIndexKeyPrefix = "user_sessions:"
)

// SessionRepository implements the session.Repository interface using Redis
type SessionRepository struct {
	client *redis.Client
}

var _ session.Repository = (*SessionRepository)(nil)

// GetByRawToken retrieves a session by its raw (prior hashing) token
func (repo *SessionRepository) GetByRawToken(ctx context.Context, rawToken string) (*session.Session, error) {
	hash := session.HashToken(rawToken)

	value, err := repo.client.Get(ctx, sessionKeyPrefix+hash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	obj := new(session.Session)
	if err := json.Unmarshal(value, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// Create persists a new session and returns the generated raw token
func (repo *SessionRepository) Create(ctx context.Context, ses *session.Session) (string, error) {
	rawToken := session.NewRawToken()
	ses.Token = session.HashToken(rawToken)

	if err := repo.write(ctx, ses); err != nil {
		return "", err
	}
	if err := repo.client.SAdd(ctx, userIndexKeyPrefix+ses.UserID, ses.Token).Err(); err != nil {
		return "", err
	}
	return rawToken, nil
}

// Update replaces a stored session, addressed by its (hashed) Token field
func (repo *SessionRepository) Update(ctx context.Context, ses *session.Session) error {
	return repo.write(ctx, ses)
}

// TerminateByToken terminates a session by its raw token
func (repo *SessionRepository) TerminateByToken(ctx context.Context, rawToken string) error {
	ses, err := repo.GetByRawToken(ctx, rawToken)
	if err != nil {
		return err
	}
	if ses == nil {
		return nil
	}

	if err := repo.client.Del(ctx, sessionKeyPrefix+ses.Token).Err(); err != nil {
		return err
	}
	return repo.client.SRem(ctx, userIndexKeyPrefix+ses.UserID, ses.Token).Err()
}

// TerminateByUserID terminates all sessions of a specific user ID
func (repo *SessionRepository) TerminateByUserID(ctx context.Context, userID string) error {
	hashes, err := repo.client.SMembers(ctx, userIndexKeyPrefix+userID).Result()
	if err != nil {
		return err
	}

	for _, hash := range hashes {
		if err := repo.client.Del(ctx, sessionKeyPrefix+hash).Err(); err != nil {
			return err
		}
	}
	return repo.client.Del(ctx, userIndexKeyPrefix+userID).Err()
}

// TerminateExpired is a no-op for Redis as session keys expire natively via their TTL
func (repo *SessionRepository) TerminateExpired(_ context.Context) (int, error) {
	return 0, nil
}

func (repo *SessionRepository) write(ctx context.Context, ses *session.Session) error {
	value, err := json.Marshal(ses)
	if err != nil {
		return err
	}

	ttl := time.Until(time.Unix(ses.Expires, 0))
	if ttl <= 0 {
		ttl = time.Second
	}
	return repo.client.Set(ctx, sessionKeyPrefix+ses.Token, value, ttl).Err()
}
