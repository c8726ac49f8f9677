package httpx

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig controls the opt-in retry loop. The zero value disables
// retries entirely, which is the default connector behavior.
type RetryConfig struct {
	Enabled        bool
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryConfig returns the settings used when retry is switched on
// without further tuning.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Enabled:        true,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

// ExponentialBackoff computes the wait before the given attempt:
// min(initial * multiplier^attempt, max) ± 25% jitter.
func ExponentialBackoff(attempt int, config RetryConfig) time.Duration {
	backoff := float64(config.InitialBackoff) * math.Pow(config.Multiplier, float64(attempt))
	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}

	jitterRange := 0.25 * backoff
	backoff += (rand.Float64() * 2 * jitterRange) - jitterRange

	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}
	if backoff < 0 {
		backoff = 0
	}
	return time.Duration(backoff)
}

// ShouldRetry reports whether the error is worth retrying. Only typed
// connector errors flagged retryable qualify.
func ShouldRetry(err error) bool {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.IsRetryable()
	}
	return false
}

// Operation is a unit of work the retry loop can re-invoke.
type Operation func(ctx context.Context) error

// RetryWithBackoff runs the operation, retrying retryable failures with
// jittered exponential backoff. With retry disabled it runs exactly once.
func RetryWithBackoff(ctx context.Context, operation Operation, config RetryConfig) error {
	if !config.Enabled {
		return operation(ctx)
	}

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !ShouldRetry(err) || attempt >= config.MaxRetries {
			return err
		}

		select {
		case <-time.After(ExponentialBackoff(attempt, config)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
