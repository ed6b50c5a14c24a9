package upstream

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrNotModified reports a conditional fetch that matched the caller's
	// etag. The caller keeps its last payload; this is not a failure.
	ErrNotModified = errors.New("upstream not modified")

	// ErrTimeout reports a request that exceeded the request timeout.
	ErrTimeout = errors.New("upstream request timed out")

	// ErrTransport reports a network-level failure before any response.
	ErrTransport = errors.New("upstream transport failure")

	// ErrMalformed reports a response body that could not be parsed or
	// failed schema validation.
	ErrMalformed = errors.New("upstream payload malformed")

	// ErrUpstreamStatus reports a non-2xx, non-304 response.
	ErrUpstreamStatus = errors.New("upstream returned error status")
)

// StatusError carries the HTTP status code of a failed fetch. It matches
// ErrUpstreamStatus under errors.Is.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned error status %d", e.Code)
}

func (e *StatusError) Unwrap() error { return ErrUpstreamStatus }
