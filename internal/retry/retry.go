// Package retry wraps remote calls with a bounded attempt budget.
//
// Every error is considered transient until the budget is spent, except
// errors wrapped with Permanent. Exhaustion is reported as *ExhaustedError,
// which callers treat as fatal for the unit of work that made the call.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/cellar/internal/logger"
)

// Policy configures attempts and the delay between them.
type Policy struct {
	Attempts    int           // total attempts, >= 1
	Interval    time.Duration // delay before the second attempt
	Backoff     bool          // double the delay after every failed attempt
	MaxInterval time.Duration // cap for the doubled delay (0 = uncapped)

	// Sleep waits between attempts; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:    5,
		Interval:    10 * time.Second,
		Backoff:     true,
		MaxInterval: 5 * time.Minute,
	}
}

// ExhaustedError is returned once every attempt failed.
type ExhaustedError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

func unwrapPermanent(err error) error {
	if p, ok := err.(permanentError); ok {
		return p.err
	}
	return err
}

// Do runs fn until it succeeds, returns a permanent error, the context is
// done, or the attempt budget is spent.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	delay := p.Interval
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return unwrapPermanent(err)
		}
		lastErr = err

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", op, ctxErr)
		}
		if attempt == attempts {
			break
		}

		logger.Warn("%s failed (attempt %d/%d), retrying in %s: %v", op, attempt, attempts, delay, err)

		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if p.Backoff {
			delay *= 2
			if p.MaxInterval > 0 && delay > p.MaxInterval {
				delay = p.MaxInterval
			}
		}
	}

	return &ExhaustedError{Op: op, Attempts: attempts, Last: lastErr}
}

// Value is Do for calls that return a result.
func Value[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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
