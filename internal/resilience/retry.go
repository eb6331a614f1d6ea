package resilience

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

// Policy controls how one logical operation is retried: a fixed pause before
// every attempt, and an exponential backoff after every failed attempt except
// the last.
type Policy struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// Default: 3.
	MaxAttempts int

	// Delay is waited before every attempt, including the first. It keeps the
	// aggregate request rate bounded. Default: 1s.
	Delay time.Duration

	// BaseBackoff is the time unit of the exponential backoff; the wait after
	// failed attempt n (0-based) is BaseBackoff * Multiplier^n. Default: 1s.
	BaseBackoff time.Duration

	// Multiplier is the backoff exponent base. Default: 2.0.
	Multiplier float64

	// MaxBackoff caps a single backoff wait. Default: 30s.
	MaxBackoff time.Duration

	// Timeout bounds a single attempt. Default: 5s.
	Timeout time.Duration

	// ShouldRetry optionally limits which errors are retried. If nil, every
	// error is retried.
	ShouldRetry func(err error) bool

	// OnRetry is called before each backoff wait with the 1-based number of
	// the failed attempt, its error, and the wait about to happen.
	OnRetry func(attempt int, err error, wait time.Duration)

	// Sleep waits for d or until ctx is done. Tests replace it to observe
	// waits without blocking.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the catalog's polite fetch policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delay:       time.Second,
		BaseBackoff: time.Second,
		Multiplier:  2.0,
		MaxBackoff:  30 * time.Second,
		Timeout:     5 * time.Second,
	}
}

// Backoff returns the wait after the failed attempt with 0-based index attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	p = applyDefaults(p)
	d := float64(p.BaseBackoff) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.MaxBackoff) {
		d = float64(p.MaxBackoff)
	}
	return time.Duration(d)
}

// DoVal runs fn until it succeeds or the policy is exhausted. It returns the
// value of the successful call, the number of attempts made, and the last
// error when every attempt failed. Attempts are strictly sequential.
func DoVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, int, error) {
	p = applyDefaults(p)

	var zero T
	var lastErr error
	attempts := 0
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := p.Sleep(ctx, p.Delay); err != nil {
			return zero, attempts, firstErr(lastErr, err)
		}

		attempts++
		val, err := fn(ctx)
		if err == nil {
			return val, attempts, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, attempts, lastErr
		}
		if p.ShouldRetry != nil && !p.ShouldRetry(err) {
			return zero, attempts, lastErr
		}

		// No backoff after the last attempt.
		if attempt >= p.MaxAttempts-1 {
			break
		}

		wait := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err, wait)
		}
		if err := p.Sleep(ctx, wait); err != nil {
			return zero, attempts, lastErr
		}
	}

	return zero, attempts, lastErr
}

func applyDefaults(p Policy) Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.Delay < 0 {
		p.Delay = 0
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2.0
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 30 * time.Second
	}
	if p.Timeout <= 0 {
		p.Timeout = 5 * time.Second
	}
	if p.Sleep == nil {
		p.Sleep = SleepContext
	}
	return p
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// SleepContext waits for d, returning early with ctx.Err() when ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryLogger returns an OnRetry callback that logs each retry of target.
func RetryLogger(operation, target string) func(int, error, time.Duration) {
	return func(attempt int, err error, wait time.Duration) {
		fields := []zap.Field{
			zap.String("operation", operation),
			zap.String("target", target),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Bool("transient", IsTransient(err)),
		}
		if code := StatusCode(err); code != 0 {
			fields = append(fields, zap.Int("status", code))
		}
		zap.L().Warn("retrying after failure", append(fields, zap.Error(err))...)
	}
}
