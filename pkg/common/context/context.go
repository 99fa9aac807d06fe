package context

import (
	"context"
	"errors"
	"time"
)

// Link returns a context derived from parent that is also canceled when
// other is done. The returned CancelFunc releases the link and must be
// called once the context is no longer needed.
func Link(parent, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	stop := context.AfterFunc(other, func() {
		cancel(context.Cause(other))
	})
	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}

// WithOptionalTimeout applies timeout to parent when it is positive and
// returns parent unchanged otherwise.
func WithOptionalTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, timeout)
}

// IsCanceled returns true if the context has been canceled
func IsCanceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// IsTimedOut returns true if the context ended because a deadline passed.
func IsTimedOut(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}
