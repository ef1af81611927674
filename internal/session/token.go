package session

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/zeladoria/portal-gateway/internal/random"
)

var tokenLength = 64

// NewRawToken generates a new raw session token as handed to the browser inside the session cookie
func NewRawToken() string {
	return random.String(tokenLength, random.CharsetTokens)
}

// HashToken returns the hex-encoded SHA-256 hash of a raw session token.
// Repositories only ever store the hashed form.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
