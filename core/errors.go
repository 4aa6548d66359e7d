package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions.
var (
	// ErrInvalidRequest indicates the request method or URL is malformed.
	ErrInvalidRequest = errors.New("courier: invalid request")

	// ErrUnexpectedStatus indicates the server answered with a non-2xx status.
	ErrUnexpectedStatus = errors.New("courier: unexpected status")

	// ErrPayloadConsumed indicates a single-use payload was written twice.
	ErrPayloadConsumed = errors.New("courier: payload already consumed")

	// ErrDigestUnsupported indicates a payload cannot compute its own digest.
	ErrDigestUnsupported = errors.New("courier: payload digest unsupported")
)

// StatusError reports a response with an unexpected status code.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
}

// Unwrap lets errors.Is match ErrUnexpectedStatus.
func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}
