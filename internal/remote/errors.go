package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the remote holds no record for the user yet
	ErrNotFound = errors.New("remote progress not found")
	// ErrRateLimited is returned when the local rate limiter rejects a call
	ErrRateLimited = errors.New("remote rate limit exceeded")
)

// StatusError is an unexpected HTTP status from the remote API
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote returned status %d: %s", e.Code, e.Body)
}
