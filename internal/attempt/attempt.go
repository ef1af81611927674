package attempt

import "github.com/google/uuid"

// Attempt represents a single recorded login attempt
type Attempt struct {
	ID         uuid.UUID `json:"id"`
	Identifier string    `json:"identifier"`
	Success    bool      `json:"success"`
	RemoteAddr string    `json:"remote_addr"`
	CreatedAt  int64     `json:"created_at"`
}
