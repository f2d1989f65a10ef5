package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_SucceedsAfterTransientError(t *testing.T) {
	// Given: a function that fails twice then succeeds
	attempts := 0
	fn := func(context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	}

	// When: retrying
	got, err := Retry(context.Background(), fastRetry(), fn)

	// Then: the value from the successful attempt is returned
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, attempts)
}

func TestRetry_FailsAfterMaxRetries(t *testing.T) {
	// Given: a function that always fails
	attempts := 0
	fn := func(context.Context) (string, error) {
		attempts++
		return "", errors.New("persistent")
	}

	// When: retrying
	got, err := Retry(context.Background(), fastRetry(), fn)

	// Then: initial attempt plus two retries, zero value returned
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Empty(t, got)
	assert.Equal(t, 3, attempts)
}

func TestRetry_StopsOnNonRetryableError(t *testing.T) {
	// Given: a policy that only retries retryable SiloErrors
	cfg := fastRetry()
	cfg.ShouldRetry = IsRetryable
	attempts := 0
	fn := func(context.Context) (int, error) {
		attempts++
		return 0, EmbeddingError("bad request", nil)
	}

	// When: retrying
	_, err := Retry(context.Background(), cfg, fn)

	// Then: gives up after the first attempt with the original error
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, ErrCodeEmbeddingFailed, GetCode(err))
}

func TestRetry_RetriesRetryableError(t *testing.T) {
	cfg := fastRetry()
	cfg.ShouldRetry = IsRetryable
	attempts := 0
	fn := func(context.Context) (int, error) {
		attempts++
		if attempts == 1 {
			return 0, New(ErrCodeEmbeddingTimeout, "timed out", nil)
		}
		return 1, nil
	}

	got, err := Retry(context.Background(), cfg, fn)

	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Equal(t, 2, attempts)
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	// Given: an already-cancelled context
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false

	// When: retrying
	_, err := Retry(ctx, fastRetry(), func(context.Context) (int, error) {
		called = true
		return 0, nil
	})

	// Then: fn never runs
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestRetry_CancelledDuringBackoff(t *testing.T) {
	cfg := fastRetry()
	cfg.InitialDelay = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Retry(ctx, cfg, func(context.Context) (int, error) {
		return 0, errors.New("fail")
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDefaultRetryConfig_HasSensibleDefaults(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Greater(t, cfg.MaxDelay, cfg.InitialDelay)
	assert.NotNil(t, cfg.ShouldRetry)
}
