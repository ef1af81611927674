package session

import (
	"time"

	"github.com/zeladoria/portal-gateway/internal/user"
)

// Session represents a server-held portal session.
// The browser only ever holds the raw, opaque session token inside an httpOnly cookie;
// the bearer credentials below never leave the gateway.
type Session struct {
	// Token holds the SHA-256 hash of the raw cookie token and acts as the storage key
	Token string `json:"token"`

	UserID string    `json:"user_id"`
	User   user.User `json:"user"`

	AccessToken          string `json:"access_token"`
	RefreshToken         string `json:"refresh_token"`
	AccessTokenExpiresAt int64  `json:"access_token_expires_at"`

	// Remember reflects the 'lembrar de mim' choice captured at login time
	Remember bool `json:"remember"`

	// Expires defines the unix timestamp at which the session itself is terminated
	Expires int64 `json:"expires"`

	// RefreshFailed marks a session whose token refresh irrecoverably failed.
	// Consumers observing this marker must not attempt further authenticated calls
	// and have to force a re-authentication.
	RefreshFailed bool `json:"refresh_failed"`
}

// IsAccessTokenStale reports whether the stored access token has passed its fixed refresh window
func (ses *Session) IsAccessTokenStale(now time.Time) bool {
	return now.Unix() >= ses.AccessTokenExpiresAt
}
