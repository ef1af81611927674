package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/zeladoria/portal-gateway/internal/session"
	"github.com/zeladoria/portal-gateway/internal/user"
)

// SessionRepository implements the session.Repository interface using PostgreSQL
type SessionRepository struct {
	db *pgxpool.Pool
}

var _ session.Repository = (*SessionRepository)(nil)

// GetByRawToken retrieves a session by its raw (prior hashing) token
func (repo *SessionRepository) GetByRawToken(ctx context.Context, rawToken string) (*session.Session, error) {
	hash := session.HashToken(rawToken)

	row := repo.db.QueryRow(ctx, "SELECT * FROM sessions WHERE token = $1", hash)
	obj, err := repo.rowToSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return obj, nil
}

// Create persists a new session and returns the generated raw token
func (repo *SessionRepository) Create(ctx context.Context, ses *session.Session) (string, error) {
	rawToken := session.NewRawToken()
	ses.Token = session.HashToken(rawToken)

	claims, err := json.Marshal(ses.User)
	if err != nil {
		return "", err
	}

	_, err = repo.db.Exec(
		ctx,
		"INSERT INTO sessions VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		ses.Token,
		ses.UserID,
		claims,
		ses.AccessToken,
		ses.RefreshToken,
		ses.AccessTokenExpiresAt,
		ses.Remember,
		ses.Expires,
		ses.RefreshFailed,
	)
	if err != nil {
		return "", err
	}
	return rawToken, nil
}

// Update replaces a stored session, addressed by its (hashed) Token field
func (repo *SessionRepository) Update(ctx context.Context, ses *session.Session) error {
	claims, err := json.Marshal(ses.User)
	if err != nil {
		return err
	}

	_, err = repo.db.Exec(
		ctx,
		`UPDATE sessions
			SET user_id = $2,
				claims = $3,
				access_token = $4,
				refresh_token = $5,
				access_token_expires_at = $6,
				remember = $7,
				expires = $8,
				refresh_failed = $9
			WHERE token = $1`,
		ses.Token,
		ses.UserID,
		claims,
		ses.AccessToken,
		ses.RefreshToken,
		ses.AccessTokenExpiresAt,
		ses.Remember,
		ses.Expires,
		ses.RefreshFailed,
	)
	return err
}

// TerminateByToken terminates a session by its raw token
func (repo *SessionRepository) TerminateByToken(ctx context.Context, rawToken string) error {
	hash := session.HashToken(rawToken)
	_, err := repo.db.Exec(ctx, "DELETE FROM sessions WHERE token = $1", hash)
	return err
}

// TerminateByUserID terminates all sessions of a specific user ID
func (repo *SessionRepository) TerminateByUserID(ctx context.Context, userID string) error {
	_, err := repo.db.Exec(ctx, "DELETE FROM sessions WHERE user_id = $1", userID)
	return err
}

// TerminateExpired terminates all sessions that are expired
func (repo *SessionRepository) TerminateExpired(ctx context.Context) (int, error) {
	tag, err := repo.db.Exec(ctx, "DELETE FROM sessions WHERE expires <= $1", time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (repo *SessionRepository) rowToSession(row pgx.Row) (*session.Session, error) {
	obj := new(session.Session)
	var claims []byte
	err := row.Scan(
		&obj.Token,
		&obj.UserID,
		&claims,
		&obj.AccessToken,
		&obj.RefreshToken,
		&obj.AccessTokenExpiresAt,
		&obj.Remember,
		&obj.Expires,
		&obj.RefreshFailed,
	)
	if err != nil {
		return nil, err
	}

	claimsObj := new(user.User)
	if err := json.Unmarshal(claims, claimsObj); err != nil {
		return nil, err
	}
	obj.User = *claimsObj

	return obj, nil
}
