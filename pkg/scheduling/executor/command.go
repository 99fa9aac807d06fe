package executor

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Command represents a deferred unit of work run by the executor's worker.
type Command interface {
	// Execute runs the command synchronously on the worker goroutine.
	// It must return in finite time; the executor never preempts it.
	Execute(ctx context.Context) error
}

// CommandFunc is a function type that implements the Command interface.
type CommandFunc func(ctx context.Context) error

// Execute implements the Command interface for CommandFunc.
func (f CommandFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Result describes what happened to one submitted command.
type Result struct {
	// ID is the identifier assigned at submission.
	ID uuid.UUID

	// Seq is the 1-based position of the command in submission order.
	Seq uint64

	// Err is the *errors.CommandError for a failed command, or the reason a
	// skipped command did not run.
	Err error

	// QueueWait is the time between submission and dequeue.
	QueueWait time.Duration

	// Duration is how long Execute ran. Zero for skipped commands.
	Duration time.Duration

	// Skipped is true when the command was dequeued or dropped without running.
	Skipped bool
}

// envelope is the queued form of a submitted command.
type envelope struct {
	id       uuid.UUID
	seq      uint64
	cmd      Command
	ctx      context.Context
	enqueued time.Time
}
