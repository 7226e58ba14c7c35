package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInjectionFailed means the capture hook could not be (re)installed.
	ErrInjectionFailed = errors.New("capture hook injection failed")
	// ErrSourceClosed is returned by a capture source after Close.
	ErrSourceClosed = errors.New("capture source closed")
	// ErrNotFound is returned when a stored result does not exist.
	ErrNotFound = errors.New("result not found")
)

// HTTPError wraps an HTTP status code so callers can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
