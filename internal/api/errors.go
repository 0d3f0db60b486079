package api

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested resource does not exist (404).
// Guards and loaders treat this as a recoverable condition.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized indicates the server rejected the bearer token and a
// refresh attempt did not recover the request.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("server returned %d", e.Code)
}

// ErrMalformedPayload indicates a 2xx response whose body does not match
// the wire contract. The session store depends on this failing loudly so a
// broken payload is never coerced into a partial session.
type ErrMalformedPayload struct {
	Reason string
	Err    error
}

func (e *ErrMalformedPayload) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed payload: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed payload: %s", e.Reason)
}

func (e *ErrMalformedPayload) Unwrap() error { return e.Err }
