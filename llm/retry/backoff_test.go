package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/quizflow/types"
)

func testRetryer(maxRetries int) Retryer {
	return NewBackoffRetryer(&RetryPolicy{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}, zap.NewNop())
}

func TestBackoffRetryer_SucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	err := testRetryer(3).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoffRetryer_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	calls := 0
	err := testRetryer(2).Do(context.Background(), func() error {
		calls++
		return errors.New("always fails")
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoffRetryer_NonRetryableStopsImmediately(t *testing.T) {
	t.Parallel()

	calls := 0
	err := testRetryer(3).Do(context.Background(), func() error {
		calls++
		return types.NewError(types.ErrAuthentication, "secret mismatch")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoffRetryer_RetryableStructuredError(t *testing.T) {
	t.Parallel()

	calls := 0
	err := testRetryer(2).Do(context.Background(), func() error {
		calls++
		if calls == 1 {
			return types.NewError(types.ErrUpstreamTimeout, "timeout").WithRetryable(true)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestBackoffRetryer_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewBackoffRetryer(&RetryPolicy{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
	}, zap.NewNop())

	err := r.Do(ctx, func() error {
		return errors.New("transient")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithResultTyped(t *testing.T) {
	t.Parallel()

	val, err := DoWithResultTyped[string](testRetryer(1), context.Background(), func() (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
}

func TestBackoffRetryer_OnRetryCallback(t *testing.T) {
	t.Parallel()

	var attempts []int
	r := NewBackoffRetryer(&RetryPolicy{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
		},
	}, zap.NewNop())

	calls := 0
	_ = r.Do(context.Background(), func() error {
		calls++
		return errors.New("transient")
	})
	assert.Equal(t, []int{1, 2}, attempts)
}
