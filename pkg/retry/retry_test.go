package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastRetrier waits a millisecond between attempts so tests stay quick.
func fastRetrier(attempts int) *Retrier {
	return New(Config{Attempts: attempts, Delay: time.Millisecond})
}

func TestRetrier_Do_FirstAttemptSucceeds(t *testing.T) {
	calls := 0
	err := fastRetrier(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetrier_Do_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := fastRetrier(5).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("transient"))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrier_Do_ExhaustsBudget(t *testing.T) {
	inner := errors.New("still down")
	calls := 0

	err := fastRetrier(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Retryable(inner)
	})

	assert.Equal(t, 3, calls)
	// The classification wrapper is stripped from the final error.
	assert.Equal(t, inner, err)
}

func TestRetrier_Do_PermanentStopsImmediately(t *testing.T) {
	inner := errors.New("bad request")
	calls := 0

	err := fastRetrier(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(inner)
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, inner, err)
}

func TestRetrier_Do_UnclassifiedErrorIsNotRetried(t *testing.T) {
	plain := errors.New("plain failure")
	calls := 0

	err := fastRetrier(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return plain
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, plain, err)
}

func TestRetrier_Do_ShouldRetryOverride(t *testing.T) {
	calls := 0
	r := New(Config{
		Attempts:    3,
		Delay:       time.Millisecond,
		ShouldRetry: func(error) bool { return true },
	})

	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("plain failure")
	})

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetrier_Do_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := fastRetrier(5).Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return Retryable(errors.New("transient"))
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetrier_Do_OnRetryObservesAttempts(t *testing.T) {
	var attempts []int
	r := New(Config{
		Attempts: 3,
		Delay:    time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
		},
	})

	_ = r.Do(context.Background(), func(ctx context.Context) error {
		return Retryable(errors.New("transient"))
	})

	// Retries are scheduled after attempts 1 and 2; the third is final.
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestRetrier_BackoffGrowsAndCaps(t *testing.T) {
	var delays []time.Duration
	r := New(Config{
		Attempts: 5,
		Delay:    time.Millisecond,
		MaxDelay: 4 * time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	})

	_ = r.Do(context.Background(), func(ctx context.Context) error {
		return Retryable(errors.New("transient"))
	})

	assert.Equal(t, []time.Duration{
		time.Millisecond,
		2 * time.Millisecond,
		4 * time.Millisecond,
		4 * time.Millisecond, // capped
	}, delays)
}

func TestDoWithData(t *testing.T) {
	calls := 0
	got, err := DoWithData(context.Background(), fastRetrier(3), func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, Retryable(errors.New("transient"))
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)
}

func TestErrorClassification(t *testing.T) {
	inner := errors.New("inner")

	assert.True(t, IsRetryable(Retryable(inner)))
	assert.False(t, IsRetryable(inner))
	assert.True(t, IsPermanent(Permanent(inner)))
	assert.False(t, IsPermanent(Retryable(inner)))

	assert.ErrorIs(t, Retryable(inner), inner)
	assert.ErrorIs(t, Permanent(inner), inner)

	assert.NoError(t, Retryable(nil))
	assert.NoError(t, Permanent(nil))
}

func TestJittered(t *testing.T) {
	// No jitter passes the delay through untouched.
	assert.Equal(t, time.Second, jittered(time.Second, 0))

	// With jitter the result stays within the configured spread.
	for i := 0; i < 100; i++ {
		d := jittered(time.Second, 0.2)
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}

func TestPresets(t *testing.T) {
	assert.NotNil(t, CatalogAPIRetrier())
	assert.NotNil(t, DatabaseRetrier())
}
