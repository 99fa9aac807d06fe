/*
Package executor provides a single-worker asynchronous command executor.

An Executor owns exactly one background goroutine (its Worker) and an
unbounded FIFO queue. Producers submit commands from any number of
goroutines; the worker runs them one at a time, strictly in submission
order, and shutdown drains whatever was accepted before it began.

Basic usage:

	exec, err := executor.New(executor.Config{Name: "jobs"})
	if err != nil {
		return err
	}
	defer exec.Close()

	err = exec.SubmitFunc(func(ctx context.Context) error {
		// Do work
		return nil
	})

Command Interface:

Commands implement a single method:

	type Command interface {
		Execute(ctx context.Context) error
	}

CommandFunc adapts a plain function. Execute runs on the worker goroutine
and must return in finite time: the executor never preempts a command, so a
command that blocks forever stalls the queue and Shutdown with it.

Ordering and Delivery:

  - Submit never blocks on capacity; the queue is unbounded.
  - Commands run in the order their Submit acquired the queue lock. With a
    single producer this is program order.
  - Every accepted command runs exactly once, unless it is skipped because
    its context was done before it was dequeued, or it is dropped by a
    fail-stop failure. Both cases are reported with Result.Skipped.

Shutdown:

Shutdown (and Close) sets the exit flag, wakes the worker, and blocks until
the worker goroutine has returned. Commands accepted before Shutdown still
run. Submissions after Shutdown began are rejected with an error wrapping
errors.ErrClosed; the check happens under the queue lock, so a submission
either lands before the close and is drained, or is rejected.

	// Graceful: run the whole backlog.
	err := exec.Shutdown()

	// Bounded: cancel the running command and skip the rest on expiry.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = exec.ShutdownWithContext(ctx)

Failure Policies:

	// Isolate (default): an error or panic is recovered, logged, reported to
	// OnCommandFailure, and the worker moves on to the next command.
	executor.Config{FailurePolicy: executor.FailurePolicyIsolate}

	// Fail-stop: the first failure stops the worker. The backlog is dropped,
	// State() becomes StateFailed, Err() and Shutdown() return the failure,
	// and later submissions fail with errors.ErrWorkerFailed.
	executor.Config{FailurePolicy: executor.FailurePolicyFailStop}

Panics are always recovered at the worker boundary, since an unrecovered
panic on any goroutine terminates the process.

Observability:

Lifecycle and failure events go to Config.Logger (zerolog). Per-command
hooks (OnCommandStart, OnCommandComplete, OnCommandFailure) run on the
worker goroutine and must not block. NewWithMetrics and
NewWithConfigAndMetrics return a MetricsExecutor that records Prometheus
metrics through package metrics.

Thread Safety:

All Executor methods are safe for concurrent use. Shutdown, ShutdownWithContext
and Close block until the worker exits, so a command must not call them; a
command that needs to stop its executor calls BeginShutdown.
*/
package executor
