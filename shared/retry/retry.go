// Package retry runs an operation with a bounded number of attempts and an
// exponential delay between them.
package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

// Config controls retry behavior.
type Config struct {
	// MaxAttempts counts the initial attempt.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// Multiplier of 1 gives a fixed delay.
	Multiplier float64
	// IsRetryable decides whether an error is worth another attempt. Nil
	// retries everything except Permanent errors.
	IsRetryable func(error) bool
	// OnRetry is called before sleeping between attempts.
	OnRetry func(attempt int, wait time.Duration, err error)
}

// DefaultConfig matches the limits of the stricter secondary endpoint.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
	}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Delay returns the wait before the attempt following attempt (1-based).
func (c Config) Delay(attempt int) time.Duration {
	mult := c.Multiplier
	if mult < 1 {
		mult = 1
	}
	wait := time.Duration(float64(c.InitialDelay) * math.Pow(mult, float64(attempt-1)))
	if c.MaxDelay > 0 && wait > c.MaxDelay {
		wait = c.MaxDelay
	}
	return wait
}

// Do calls fn until it succeeds, returns a non-retryable error, MaxAttempts
// is reached, or ctx is done. It returns the number of attempts made.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context, attempt int) (T, error)) (T, int, error) {
	var zero T
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return zero, attempt - 1, errors.Join(lastErr, err)
			}
			return zero, attempt - 1, err
		}

		result, err := fn(ctx, attempt)
		if err == nil {
			return result, attempt, nil
		}
		lastErr = err

		if !retryable(cfg, err) || attempt == cfg.MaxAttempts {
			return zero, attempt, err
		}

		wait := cfg.Delay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, wait, err)
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, attempt, errors.Join(lastErr, ctx.Err())
		}
	}
	return zero, cfg.MaxAttempts, lastErr
}

func retryable(cfg Config, err error) bool {
	if IsPermanent(err) {
		return false
	}
	if cfg.IsRetryable != nil {
		return cfg.IsRetryable(err)
	}
	return true
}
