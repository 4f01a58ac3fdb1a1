package dispatch

import (
	"context"
	"errors"
	"time"
)

const defaultBaseDelay = 100 * time.Millisecond

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as deterministic so retry loops return it immediately.
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

// WithRetry runs fn up to maxAttempts times. After the n-th failure it waits
// baseDelay * 2^(n-1) before the next attempt.
func WithRetry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func(context.Context) error) error {
	return withRetryNotify(ctx, maxAttempts, baseDelay, fn, nil)
}

func withRetryNotify(
	ctx context.Context,
	maxAttempts int,
	baseDelay time.Duration,
	fn func(context.Context) error,
	notify func(attempt int, delay time.Duration, err error),
) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}

	delay := baseDelay
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxAttempts || IsPermanent(err) {
			return err
		}
		if notify != nil {
			notify(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
