// Package retry implements bounded retries with exponential backoff and
// jitter for calls that leave the process, such as course catalog lookups.
//
// Operations classify their own failures: wrap an error with Retryable to
// ask for another attempt, or with Permanent to stop immediately. The
// wrappers are stripped from the final error, so callers keep matching
// their usual sentinels with errors.Is.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Retryable marks err as worth another attempt.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// Permanent marks err as final; no further attempts follow.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsRetryable reports whether err carries a Retryable mark.
func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// IsPermanent reports whether err carries a Permanent mark.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// unwrapMark strips a classification wrapper so callers can match the
// underlying error directly.
func unwrapMark(err error) error {
	var re *retryableError
	if errors.As(err, &re) {
		return re.err
	}
	var pe *permanentError
	if errors.As(err, &pe) {
		return pe.err
	}
	return err
}

// Config tunes a Retrier.
type Config struct {
	// Attempts is the total attempt budget including the first call.
	// Values below one fall back to 3.
	Attempts int

	// Delay is the wait before the first retry. Zero means no wait.
	Delay time.Duration

	// MaxDelay caps the grown delay (default 30s).
	MaxDelay time.Duration

	// Growth multiplies the delay after each retry. Values below one fall
	// back to 2.
	Growth float64

	// Jitter spreads each wait by +/- this fraction. Zero disables it.
	Jitter float64

	// ShouldRetry overrides the default classification, which retries only
	// errors marked Retryable.
	ShouldRetry func(error) bool

	// OnRetry observes each scheduled retry, mainly for logging.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retrier runs operations under one retry policy.
type Retrier struct {
	cfg Config
}

// New builds a Retrier, applying defaults for unset budget fields.
func New(cfg Config) *Retrier {
	if cfg.Attempts < 1 {
		cfg.Attempts = 3
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Growth < 1 {
		cfg.Growth = 2
	}
	return &Retrier{cfg: cfg}
}

// Do runs op until it succeeds, the attempt budget runs out, or an error is
// classified permanent or non-retryable.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	delay := r.cfg.Delay
	var err error

	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}

		err = op(ctx)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return unwrapMark(err)
		}
		if !r.wantsRetry(err) {
			return err
		}
		if attempt == r.cfg.Attempts {
			return unwrapMark(err)
		}

		wait := jittered(delay, r.cfg.Jitter)
		if r.cfg.OnRetry != nil {
			r.cfg.OnRetry(attempt, err, wait)
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * r.cfg.Growth)
		if delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
	}
}

func (r *Retrier) wantsRetry(err error) bool {
	if r.cfg.ShouldRetry != nil {
		return r.cfg.ShouldRetry(err)
	}
	return IsRetryable(err)
}

// DoWithData runs op through r and returns its result alongside the final
// error.
func DoWithData[T any](ctx context.Context, r *Retrier, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, func(ctx context.Context) error {
		var opErr error
		out, opErr = op(ctx)
		return opErr
	})
	return out, err
}

// jittered spreads d by +/- frac so callers sharing a policy do not retry
// in lockstep.
func jittered(d time.Duration, frac float64) time.Duration {
	if frac <= 0 || d <= 0 {
		return d
	}
	spread := (rand.Float64()*2 - 1) * frac * float64(d)
	out := time.Duration(float64(d) + spread)
	if out < 0 {
		return 0
	}
	return out
}

// CatalogAPIRetrier is the policy for course catalog calls: patient enough
// to ride out a blip, bounded enough to fit one inbound request budget.
func CatalogAPIRetrier() *Retrier {
	return New(Config{
		Attempts: 3,
		Delay:    500 * time.Millisecond,
		MaxDelay: 10 * time.Second,
		Jitter:   0.2,
	})
}

// DatabaseRetrier is the policy for transient database failures such as
// serialization aborts.
func DatabaseRetrier() *Retrier {
	return New(Config{
		Attempts: 3,
		Delay:    50 * time.Millisecond,
		MaxDelay: time.Second,
		Jitter:   0.05,
	})
}
