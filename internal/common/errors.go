// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Resolution and index errors.
	ErrUnknownTicker    = errors.New("unknown ticker")
	ErrIndexUnavailable = errors.New("filing index unavailable")

	// Fetch errors.
	ErrFilingNotFound = errors.New("filing not found")
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrMaxRetries     = errors.New("max retries exceeded")

	// Storage errors.
	ErrStagingUnavailable = errors.New("staging directory unusable")
	ErrNotFound           = errors.New("not found")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// FetchError reports a per-filing download failure after retry exhaustion.
// It is per-filing: sibling fetches continue.
type FetchError struct {
	Err             error
	AccessionNumber string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.AccessionNumber, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
