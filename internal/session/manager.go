package session

import (
	"context"
	"time"

	"github.com/zeladoria/portal-gateway/internal/backend"
	"github.com/zeladoria/portal-gateway/internal/user"
	"golang.org/x/sync/singleflight"
)

// Refresher exchanges a refresh token for a new token pair at the municipal backend
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*backend.Tokens, error)
}

// Manager implements the session & token lifecycle on top of a session repository.
//
// A stored access token moves through the states fresh -> stale -> refreshed or
// refresh-failed. Resolve transparently performs the stale -> refreshed transition, so
// a caller receiving an unmarked session always holds a currently-valid bearer token.
// A refresh-failed session is kept (with its marker set) until the user re-authenticates.
type Manager struct {
	repo      Repository
	refresher Refresher

	accessTokenTTL     time.Duration
	sessionTTL         time.Duration
	rememberSessionTTL time.Duration

	group singleflight.Group
	now   func() time.Time
}

// NewManager creates a new session manager
func NewManager(repo Repository, refresher Refresher, accessTokenTTL, sessionTTL, rememberSessionTTL time.Duration) *Manager {
	return &Manager{
		repo:               repo,
		refresher:          refresher,
		accessTokenTTL:     accessTokenTTL,
		sessionTTL:         sessionTTL,
		rememberSessionTTL: rememberSessionTTL,
		now:                time.Now,
	}
}

// Establish creates a new session for a just-authenticated user and returns the raw
// cookie token together with the stored session
func (manager *Manager) Establish(ctx context.Context, usr user.User, tokens backend.Tokens, remember bool) (string, *Session, error) {
	now := manager.now()

	lifetime := manager.sessionTTL
	if remember {
		lifetime = manager.rememberSessionTTL
	}

	ses := &Session{
		UserID:               usr.ID,
		User:                 usr,
		AccessToken:          tokens.AccessToken,
		RefreshToken:         tokens.RefreshToken,
		AccessTokenExpiresAt: now.Add(manager.accessTokenTTL).Unix(),
		Remember:             remember,
		Expires:              now.Add(lifetime).Unix(),
	}

	rawToken, err := manager.repo.Create(ctx, ses)
	if err != nil {
		return "", nil, err
	}
	return rawToken, ses, nil
}

// Resolve retrieves the session behind a raw cookie token, refreshing its access token
// first if it went stale. It returns (nil, nil) if no such session exists or the session
// itself is expired. A returned session carrying the RefreshFailed marker must be treated
// as unauthenticated by the caller.
//
// Concurrent resolutions of the same stale session trigger exactly one refresh call;
// all waiters share its outcome.
func (manager *Manager) Resolve(ctx context.Context, rawToken string) (*Session, error) {
	if rawToken == "" {
		return nil, nil
	}

	ses, err := manager.repo.GetByRawToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if ses == nil || ses.Expires <= manager.now().Unix() {
		return nil, nil
	}
	if ses.RefreshFailed || !ses.IsAccessTokenStale(manager.now()) {
		return ses, nil
	}

	result, err, _ := manager.group.Do(ses.Token, func() (interface{}, error) {
		return manager.refresh(ctx, rawToken)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Session), nil
}

func (manager *Manager) refresh(ctx context.Context, rawToken string) (*Session, error) {
	// Re-fetch the session to not re-refresh one a previous flight already renewed
	ses, err := manager.repo.GetByRawToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if ses == nil {
		return nil, nil
	}
	if ses.RefreshFailed || !ses.IsAccessTokenStale(manager.now()) {
		return ses, nil
	}

	tokens, err := manager.refresher.Refresh(ctx, ses.RefreshToken)
	if err != nil {
		ses.RefreshFailed = true
		if err := manager.repo.Update(ctx, ses); err != nil {
			return nil, err
		}
		return ses, nil
	}

	ses.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		ses.RefreshToken = tokens.RefreshToken
	}
	ses.AccessTokenExpiresAt = manager.now().Add(manager.accessTokenTTL).Unix()

	if err := manager.repo.Update(ctx, ses); err != nil {
		return nil, err
	}
	return ses, nil
}

// SetRemember persists a changed 'remember me' choice and re-derives the session lifetime
func (manager *Manager) SetRemember(ctx context.Context, ses *Session, remember bool) error {
	lifetime := manager.sessionTTL
	if remember {
		lifetime = manager.rememberSessionTTL
	}
	ses.Remember = remember
	ses.Expires = manager.now().Add(lifetime).Unix()
	return manager.repo.Update(ctx, ses)
}

// Terminate terminates the session behind a raw cookie token
func (manager *Manager) Terminate(ctx context.Context, rawToken string) error {
	return manager.repo.TerminateByToken(ctx, rawToken)
}

// SweepExpired terminates all expired sessions and returns the amount of terminated ones
func (manager *Manager) SweepExpired(ctx context.Context) (int, error) {
	return manager.repo.TerminateExpired(ctx)
}
