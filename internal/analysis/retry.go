package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"taxrecon/internal/config"
)

// RetryPolicy bounds the attempts made around a single external call. The delay
// before attempt n+1 is BaseDelay * Multiplier^(n-1), capped at MaxDelay when set.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
}

// DefaultRetryPolicy mirrors the configured defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 4 * time.Second, Multiplier: 2, MaxDelay: 30 * time.Second}
}

// RetryPolicyFromConfig builds a policy from config values.
func RetryPolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Multiplier:  cfg.Multiplier,
		MaxDelay:    cfg.MaxDelay,
	}
}

// Delay returns the wait before the attempt following attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= mult
	}
	delay := time.Duration(d)
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do runs call until it succeeds, returns a non-retryable error, or the attempt
// ceiling is reached. onRetry, when non-nil, is told about each scheduled retry.
func (p RetryPolicy) Do(ctx context.Context, sleep Sleeper, call func(attempt int) error, onRetry func(attempt int, delay time.Duration, err error)) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = call(attempt)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == maxAttempts {
			break
		}

		delay := p.Delay(attempt)
		if onRetry != nil {
			onRetry(attempt, delay, lastErr)
		}
		log.Warn().Err(lastErr).Int("attempt", attempt).Dur("delay", delay).
			Msg("analysis.RetryPolicy: attempt failed, retrying")
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	return &RetryExhaustedError{Attempts: maxAttempts, Err: lastErr}
}
