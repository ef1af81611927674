package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/zeladoria/portal-gateway/internal/attempt"
)

const attemptsKey = "login_attempts"

// AttemptRepository implements the attempt.Repository interface using a Redis list.
// LPUSH keeps the newest attempt at the head, so pagination maps directly onto LRANGE.
type AttemptRepository struct {
	client *redis.Client
}

var _ attempt.Repository = (*AttemptRepository)(nil)

// Get retrieves multiple login attempts, newest first, and the total amount of stored ones
func (repo *AttemptRepository) Get(ctx context.Context, offset, limit uint64) ([]*attempt.Attempt, uint64, error) {
	total, err := repo.client.LLen(ctx, attemptsKey).Result()
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []*attempt.Attempt{}, 0, nil
	}

	if limit == 0 {
		limit = 10
	}
	values, err := repo.client.LRange(ctx, attemptsKey, int64(offset), int64(offset+limit)-1).Result()
	if err != nil {
		return nil, 0, err
	}

	attempts := make([]*attempt.Attempt, 0, len(values))
	for _, value := range values {
		obj := new(attempt.Attempt)
		if err := json.Unmarshal([]byte(value), obj); err != nil {
			return nil, 0, err
		}
		attempts = append(attempts, obj)
	}

	return attempts, uint64(total), nil
}

// Create records a new login attempt
func (repo *AttemptRepository) Create(ctx context.Context, create *attempt.Attempt) error {
	value, err := json.Marshal(create)
	if err != nil {
		return err
	}
	return repo.client.LPush(ctx, attemptsKey, value).Err()
}
