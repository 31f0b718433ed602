package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-indexer/pkg/errors"
)

// WithTimeoutValue runs fn with a derived context that is cancelled after
// timeout. If fn does not complete in time the returned error matches both
// ErrWorkerTimeout and context.DeadlineExceeded, and the value is dropped.
// A timeout <= 0 runs fn directly.
func WithTimeoutValue[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(timeoutCtx)
		done <- outcome{val: v, err: err}
	}()

	select {
	case o := <-done:
		// fn may notice the deadline before this select does.
		if o.err == nil || timeoutCtx.Err() == nil {
			return o.val, o.err
		}
	case <-timeoutCtx.Done():
	}
	var zero T
	if ctx.Err() != nil {
		return zero, fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
	}
	return zero, fmt.Errorf("%s: %w (limit: %v): %w", name, apperrors.ErrWorkerTimeout, timeout, context.DeadlineExceeded)
}
