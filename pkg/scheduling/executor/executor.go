package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	tvcontext "github.com/vnykmshr/taskexec/pkg/common/context"
	tverrors "github.com/vnykmshr/taskexec/pkg/common/errors"
)

// Stats is a point-in-time snapshot of executor counters.
type Stats struct {
	Submitted uint64
	Executed  uint64
	Failed    uint64
	Skipped   uint64
	Rejected  uint64
	Pending   int
	State     State
}

// Executor runs submitted commands one at a time, in submission order, on a
// single dedicated worker goroutine.
type Executor struct {
	config Config
	log    zerolog.Logger

	queue  *queue
	worker *Worker

	// exit is written once, by the shutdown path, and read by the drain
	// loop without taking the queue lock.
	exit  atomic.Bool
	state atomic.Int32

	baseCtx context.Context
	cancel  context.CancelFunc

	shutdownOnce sync.Once
	finishOnce   sync.Once
	stopped      chan struct{}

	failMu  sync.Mutex
	failure error

	submitted atomic.Uint64
	executed  atomic.Uint64
	failed    atomic.Uint64
	skipped   atomic.Uint64
	rejected  atomic.Uint64
}

// New validates config, creates the executor and starts its worker.
func New(config Config) (*Executor, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	ctx, cancel := context.WithCancel(config.BaseContext)
	e := &Executor{
		config:  config,
		log:     config.Logger.With().Str("executor", config.Name).Logger(),
		queue:   newQueue(),
		baseCtx: ctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
	e.state.Store(int32(StateRunning))
	e.worker = StartWorker(RunnableFunc(e.drain))

	e.log.Debug().
		Stringer("failure_policy", config.FailurePolicy).
		Dur("command_timeout", config.CommandTimeout).
		Msg("executor started")

	return e, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew(config Config) *Executor {
	e, err := New(config)
	if err != nil {
		panic(err)
	}
	return e
}

// Submit queues cmd for execution with the executor's base context.
func (e *Executor) Submit(cmd Command) error {
	return e.submit(e.baseCtx, cmd)
}

// SubmitFunc queues fn for execution.
func (e *Executor) SubmitFunc(fn func(ctx context.Context) error) error {
	if fn == nil {
		return tverrors.ErrNilCommand
	}
	return e.Submit(CommandFunc(fn))
}

// SubmitWithContext queues cmd and runs it with ctx instead of the base
// context. If ctx is done by the time the command is dequeued, the command
// is skipped. A running command is also canceled when the executor's base
// context is canceled.
//
// Submit never blocks on queue capacity. Once shutdown has begun it returns
// an error wrapping errors.ErrClosed; after a fail-stop failure it returns
// an error wrapping errors.ErrWorkerFailed.
func (e *Executor) SubmitWithContext(ctx context.Context, cmd Command) error {
	if ctx == nil {
		ctx = e.baseCtx
	}
	return e.submit(ctx, cmd)
}

func (e *Executor) submit(ctx context.Context, cmd Command) error {
	if cmd == nil {
		return tverrors.ErrNilCommand
	}

	env := envelope{
		id:       uuid.New(),
		cmd:      cmd,
		ctx:      ctx,
		enqueued: time.Now(),
	}

	if err := e.queue.push(&env); err != nil {
		e.rejected.Add(1)
		if e.State() == StateFailed {
			err = tverrors.ErrWorkerFailed
		}
		e.log.Warn().Err(err).Str("command_id", env.id.String()).Msg("submission rejected")
		return fmt.Errorf("cannot submit command: %w", err)
	}

	e.submitted.Add(1)
	return nil
}

// Shutdown stops accepting commands, lets the worker finish the backlog and
// blocks until the worker goroutine has exited. It is safe to call more
// than once; every call waits for the same completion. The returned error
// is non-nil only if the worker stopped on a fail-stop failure.
//
// Shutdown must not be called from inside a command: the worker would wait
// for itself. Commands use BeginShutdown instead.
func (e *Executor) Shutdown() error {
	e.BeginShutdown()
	e.worker.Join()
	e.finish()
	return e.Err()
}

// ShutdownWithContext is like Shutdown, but if ctx ends before the backlog
// drains the executor's base context is canceled: the running command sees
// cancellation and every remaining command is skipped. It still waits for
// the worker to exit before returning.
func (e *Executor) ShutdownWithContext(ctx context.Context) error {
	e.BeginShutdown()

	select {
	case <-e.worker.Done():
	case <-ctx.Done():
		e.log.Warn().Int("pending", e.queue.size()).Msg("shutdown deadline reached, canceling backlog")
		e.cancel()
		e.worker.Join()
		e.finish()
		return fmt.Errorf("executor shutdown: %w: %w", tverrors.ErrTimeout, ctx.Err())
	}

	e.finish()
	return e.Err()
}

// Close implements io.Closer by calling Shutdown.
func (e *Executor) Close() error {
	return e.Shutdown()
}

// Done returns a channel that is closed once the drain loop has returned,
// either after shutdown or after a fail-stop failure.
func (e *Executor) Done() <-chan struct{} {
	return e.stopped
}

// State returns the current lifecycle state.
func (e *Executor) State() State {
	return State(e.state.Load())
}

// Name returns the configured executor name.
func (e *Executor) Name() string {
	return e.config.Name
}

// Pending returns the number of commands waiting for the worker.
func (e *Executor) Pending() int {
	return e.queue.size()
}

// Err returns the failure that stopped the worker under FailurePolicyFailStop.
// The error wraps both errors.ErrWorkerFailed and the *errors.CommandError.
func (e *Executor) Err() error {
	e.failMu.Lock()
	defer e.failMu.Unlock()
	return e.failure
}

// Stats returns a snapshot of the executor counters.
func (e *Executor) Stats() Stats {
	return Stats{
		Submitted: e.submitted.Load(),
		Executed:  e.executed.Load(),
		Failed:    e.failed.Load(),
		Skipped:   e.skipped.Load(),
		Rejected:  e.rejected.Load(),
		Pending:   e.queue.size(),
		State:     e.State(),
	}
}

// BeginShutdown stops accepting commands and lets the worker exit once the
// backlog is drained, without waiting for it. It is the only shutdown call
// that is safe from inside a command. Use Done to wait for the worker.
func (e *Executor) BeginShutdown() {
	e.shutdownOnce.Do(func() {
		e.state.CompareAndSwap(int32(StateRunning), int32(StateShuttingDown))
		e.exit.Store(true)
		e.queue.close()
		e.log.Debug().Int("pending", e.queue.size()).Msg("executor shutting down")
	})
}

// finish runs once the worker has exited. StateFailed is terminal and is
// never replaced by StateStopped.
func (e *Executor) finish() {
	e.finishOnce.Do(func() {
		if !e.state.CompareAndSwap(int32(StateShuttingDown), int32(StateStopped)) {
			e.state.CompareAndSwap(int32(StateRunning), int32(StateStopped))
		}
		e.cancel()
		s := e.Stats()
		e.log.Debug().
			Uint64("executed", s.Executed).
			Uint64("failed", s.Failed).
			Uint64("skipped", s.Skipped).
			Stringer("state", s.State).
			Msg("executor stopped")
	})
}

// drain is the worker's run loop. It pops one command at a time and exits
// the first time it wakes with nothing queued and the exit flag set.
func (e *Executor) drain() {
	defer close(e.stopped)

	for {
		env, ok := e.queue.pop()
		if ok {
			if !e.execute(env) {
				e.stopOnFailure()
				return
			}
			continue
		}
		if e.exit.Load() {
			return
		}
	}
}

// execute runs one envelope and reports whether the loop may continue.
func (e *Executor) execute(env envelope) bool {
	start := time.Now()
	result := Result{
		ID:        env.id,
		Seq:       env.seq,
		QueueWait: start.Sub(env.enqueued),
	}

	if err := e.skipReason(env); err != nil {
		result.Err = err
		result.Skipped = true
		e.skipped.Add(1)
		e.complete(result)
		return true
	}

	if e.config.OnCommandStart != nil {
		e.config.OnCommandStart(env.id, env.seq)
	}

	err := e.run(env)
	result.Duration = time.Since(start)
	result.Err = err
	e.executed.Add(1)

	if err == nil {
		e.complete(result)
		return true
	}

	e.failed.Add(1)
	var cerr *tverrors.CommandError
	errors.As(err, &cerr)

	e.log.Error().
		Err(cerr.Cause).
		Str("command_id", cerr.ID.String()).
		Uint64("seq", cerr.Seq).
		Bool("panic", cerr.Panic).
		Msg("command failed")

	if e.config.OnCommandFailure != nil {
		e.config.OnCommandFailure(cerr)
	}
	e.complete(result)

	if e.config.FailurePolicy == FailurePolicyFailStop {
		e.failMu.Lock()
		e.failure = fmt.Errorf("%w: %w", tverrors.ErrWorkerFailed, cerr)
		e.failMu.Unlock()
		return false
	}
	return true
}

// run invokes the command inside a recover boundary and converts any
// error or panic into a *errors.CommandError.
func (e *Executor) run(env envelope) (err error) {
	ctx := env.ctx
	if ctx != e.baseCtx {
		var unlink context.CancelFunc
		ctx, unlink = tvcontext.Link(ctx, e.baseCtx)
		defer unlink()
	}
	parent := ctx
	ctx, cancel := tvcontext.WithOptionalTimeout(ctx, e.config.CommandTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			err = &tverrors.CommandError{
				ID:    env.id,
				Seq:   env.seq,
				Cause: cause,
				Panic: true,
				Stack: debug.Stack(),
			}
		}
	}()

	if cmdErr := env.cmd.Execute(ctx); cmdErr != nil {
		// Only CommandTimeout is reported as ErrTimeout; a deadline on the
		// submission context is the caller's own.
		if e.config.CommandTimeout > 0 && tvcontext.IsTimedOut(ctx) && parent.Err() == nil {
			cmdErr = fmt.Errorf("%w after %v: %w", tverrors.ErrTimeout, e.config.CommandTimeout, cmdErr)
		}
		return &tverrors.CommandError{ID: env.id, Seq: env.seq, Cause: cmdErr}
	}
	return nil
}

func (e *Executor) skipReason(env envelope) error {
	if err := e.baseCtx.Err(); err != nil {
		return err
	}
	return env.ctx.Err()
}

func (e *Executor) complete(result Result) {
	if e.config.OnCommandComplete != nil {
		e.config.OnCommandComplete(result)
	}
}

// stopOnFailure moves the executor to StateFailed and drops the backlog.
func (e *Executor) stopOnFailure() {
	e.state.Store(int32(StateFailed))
	e.exit.Store(true)

	rest := e.queue.closeAndDrain()
	now := time.Now()
	for _, env := range rest {
		e.skipped.Add(1)
		e.complete(Result{
			ID:        env.id,
			Seq:       env.seq,
			Err:       tverrors.ErrWorkerFailed,
			QueueWait: now.Sub(env.enqueued),
			Skipped:   true,
		})
	}

	e.log.Error().Err(e.Err()).Int("dropped", len(rest)).Msg("worker stopped on command failure")
}
