package backend

import "fmt"

// StatusError represents a non-2xx response of the municipal backend
type StatusError struct {
	StatusCode int
	Message    string
}

func (err *StatusError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("backend responded with status %d", err.StatusCode)
	}
	return fmt.Sprintf("backend responded with status %d: %s", err.StatusCode, err.Message)
}
