package context

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLink(t *testing.T) {
	t.Run("other canceled", func(t *testing.T) {
		other, cancelOther := context.WithCancelCause(context.Background())
		ctx, unlink := Link(context.Background(), other)
		defer unlink()

		if IsCanceled(ctx) {
			t.Fatal("linked context canceled too early")
		}

		boom := errors.New("executor stopping")
		cancelOther(boom)

		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("linked context not canceled")
		}
		if !errors.Is(context.Cause(ctx), boom) {
			t.Errorf("expected cause %v, got %v", boom, context.Cause(ctx))
		}
	})

	t.Run("parent canceled", func(t *testing.T) {
		parent, cancelParent := context.WithCancel(context.Background())
		ctx, unlink := Link(parent, context.Background())
		defer unlink()

		cancelParent()
		if !IsCanceled(ctx) {
			t.Error("expected linked context to follow its parent")
		}
	})

	t.Run("unlink releases", func(t *testing.T) {
		other, cancelOther := context.WithCancel(context.Background())
		defer cancelOther()

		ctx, unlink := Link(context.Background(), other)
		unlink()
		if !IsCanceled(ctx) {
			t.Error("expected unlink to cancel the linked context")
		}
	})
}

func TestWithOptionalTimeout(t *testing.T) {
	parent := context.Background()

	ctx, cancel := WithOptionalTimeout(parent, 0)
	cancel()
	if ctx != parent {
		t.Error("expected parent to be returned for zero timeout")
	}

	ctx, cancel = WithOptionalTimeout(parent, 10*time.Millisecond)
	defer cancel()
	<-ctx.Done()
	if !IsTimedOut(ctx) {
		t.Errorf("expected deadline exceeded, got %v", ctx.Err())
	}
}

func TestIsTimedOut_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if IsTimedOut(ctx) {
		t.Error("canceled context reported as timed out")
	}
	if !IsCanceled(ctx) {
		t.Error("expected canceled")
	}
}
