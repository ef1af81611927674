package postgres

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/zeladoria/portal-gateway/internal/attempt"
)

// AttemptRepository implements the attempt.Repository interface using PostgreSQL
type AttemptRepository struct {
	db *pgxpool.Pool
}

var _ attempt.Repository = (*AttemptRepository)(nil)

// Get retrieves multiple login attempts, newest first, and the total amount of stored ones
func (repo *AttemptRepository) Get(ctx context.Context, offset, limit uint64) ([]*attempt.Attempt, uint64, error) {
	query := squirrel.Select(
		"attempt_id",
		"identifier",
		"success",
		"remote_addr",
		"created_at",
	).From("login_attempts").OrderBy("created_at DESC").PlaceholderFormat(squirrel.Dollar)
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	} else {
		query = query.Limit(10)
	}
	sql, vals, err := query.ToSql()
	if err != nil {
		return nil, 0, err
	}

	var n uint64
	if err := repo.db.QueryRow(ctx, "SELECT COUNT(*) FROM login_attempts").Scan(&n); err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return []*attempt.Attempt{}, 0, nil
	}

	rows, err := repo.db.Query(ctx, sql, vals...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []*attempt.Attempt{}, n, nil
		}
		return nil, 0, err
	}

	attempts := []*attempt.Attempt{}
	for rows.Next() {
		obj := new(attempt.Attempt)
		err = rows.Scan(
			&obj.ID,
			&obj.Identifier,
			&obj.Success,
			&obj.RemoteAddr,
			&obj.CreatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		attempts = append(attempts, obj)
	}

	return attempts, n, nil
}

// Create records a new login attempt
func (repo *AttemptRepository) Create(ctx context.Context, create *attempt.Attempt) error {
	_, err := repo.db.Exec(
		ctx,
		"INSERT INTO login_attempts VALUES ($1, $2, $3, $4, $5)",
		create.ID,
		create.Identifier,
		create.Success,
		create.RemoteAddr,
		create.CreatedAt,
	)
	return err
}
