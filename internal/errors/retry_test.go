package errors

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(max int) RetryConfig {
	return RetryConfig{
		MaxRetries:   max,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	// Given: a function that succeeds immediately
	calls := 0
	fn := func() error {
		calls++
		return nil
	}

	// When: retrying
	err := Retry(context.Background(), fastRetryConfig(3), fn)

	// Then: exactly one call
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_TransientFailureThenSuccess(t *testing.T) {
	// Given: a function that fails twice with a retryable error, then succeeds
	calls := 0
	fn := func() error {
		calls++
		if calls < 3 {
			return StoreError("transient", nil)
		}
		return nil
	}

	// When: retrying with a budget of 3
	err := Retry(context.Background(), fastRetryConfig(3), fn)

	// Then: third attempt wins
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustsBudget(t *testing.T) {
	// Given: a function that always fails with a retryable error
	calls := 0
	fn := func() error {
		calls++
		return StoreError("still down", nil)
	}

	// When: retrying with a budget of 2
	err := Retry(context.Background(), fastRetryConfig(2), fn)

	// Then: initial attempt + 2 retries, error surfaced
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, IsRetryable(err))
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	// Given: a function that fails with a validation error
	calls := 0
	fn := func() error {
		calls++
		return InvalidArgument("size <= 0")
	}

	// When: retrying
	err := Retry(context.Background(), fastRetryConfig(5), fn)

	// Then: no retries happen
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, ErrCodeInvalidArgument, GetCode(err))
}

func TestRetry_ContextCancellation(t *testing.T) {
	// Given: a cancelled context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// When: retrying anything
	err := Retry(ctx, fastRetryConfig(3), func() error {
		return fmt.Errorf("should not matter")
	})

	// Then: the context error wins
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	// Given: a function that fails once then returns a value
	calls := 0
	fn := func() (int, error) {
		calls++
		if calls == 1 {
			return 0, StoreError("transient", nil)
		}
		return 42, nil
	}

	// When: retrying
	v, err := RetryWithResult(context.Background(), fastRetryConfig(3), fn)

	// Then: the value from the successful attempt is returned
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
