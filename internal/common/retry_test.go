package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, fastRetryOptions())

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return errors.New("still broken")
	}, fastRetryOptions())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 3, attempts)
}

func TestWithRetryNonRetryableFailsImmediately(t *testing.T) {
	attempts := 0
	permanent := &RetryableError{Err: errors.New("bad request"), Retryable: false}

	err := WithRetry(context.Background(), func() error {
		attempts++
		return permanent
	}, fastRetryOptions())

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	var re *RetryableError
	assert.ErrorAs(t, err, &re)
}

func TestWithRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := WithRetry(ctx, func() error {
		attempts++
		cancel()
		return errors.New("transient")
	}, RetryOptions{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(&RetryableError{Err: errors.New("x"), Retryable: true}))
	assert.False(t, IsRetryable(&RetryableError{Err: errors.New("x"), Retryable: false}))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestFetchErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &FetchError{AccessionNumber: "0001-24-000001", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "0001-24-000001")
}
