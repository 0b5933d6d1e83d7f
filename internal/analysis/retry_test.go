package analysis_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxrecon/internal/analysis"
)

// recordingSleeper records requested delays without sleeping.
type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := analysis.RetryPolicy{MaxAttempts: 5, BaseDelay: 2 * time.Second, Multiplier: 2}

	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(3))

	p.MaxDelay = 5 * time.Second
	assert.Equal(t, 5*time.Second, p.Delay(3))
}

func TestRetryPolicy_ExhaustsAfterMaxAttempts(t *testing.T) {
	p := analysis.RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second, Multiplier: 2}
	sleeper := &recordingSleeper{}
	calls := 0
	var retried []int

	err := p.Do(context.Background(), sleeper.Sleep, func(attempt int) error {
		calls++
		assert.Equal(t, calls, attempt)
		return analysis.NewTransientError("gemini", errors.New("503"))
	}, func(attempt int, _ time.Duration, _ error) {
		retried = append(retried, attempt)
	})

	require.Error(t, err)
	var exhausted *analysis.RetryExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.delays)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetryPolicy_SucceedsAfterTransientFailures(t *testing.T) {
	p := analysis.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 3}
	sleeper := &recordingSleeper{}
	calls := 0

	err := p.Do(context.Background(), sleeper.Sleep, func(int) error {
		calls++
		if calls < 3 {
			return analysis.NewRateLimitError("gemini", errors.New("429"), 1)
		}
		return nil
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second}, sleeper.delays)
}

func TestRetryPolicy_DoesNotRetryPermanentErrors(t *testing.T) {
	p := analysis.RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second, Multiplier: 2}
	sleeper := &recordingSleeper{}
	permanent := errors.New("malformed request")
	calls := 0

	err := p.Do(context.Background(), sleeper.Sleep, func(int) error {
		calls++
		return permanent
	}, nil)

	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.delays)
}

func TestRetryPolicy_StopsWhenContextCanceled(t *testing.T) {
	p := analysis.RetryPolicy{MaxAttempts: 5, BaseDelay: time.Second, Multiplier: 2}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := p.Do(ctx, func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}, func(int) error {
		calls++
		return analysis.NewTransientError("gemini", errors.New("503"))
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestSleepContext_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := analysis.SleepContext(ctx, time.Minute)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
