/*
Package taskexec provides a single-worker asynchronous command executor for Go
applications.

Producers on any number of goroutines submit commands without blocking; one
dedicated worker goroutine runs them strictly in submission order, each
exactly once. Shutdown drains the backlog and joins the worker.

Execution (pkg/scheduling):
  - executor: FIFO command executor with failure policies and Prometheus metrics
  - scheduler: one-shot, interval and cron submission into an executor

Common (pkg/common):
  - errors: sentinel and structured error types
  - validation: configuration validators
  - context: context linking helpers

Observability (pkg/metrics):
  - Prometheus collectors for executors and schedulers

The taskexec command (cmd/taskexec) runs an executor with scheduled jobs from
a YAML config and serves /metrics.

Example usage:

	import "github.com/vnykmshr/taskexec/pkg/scheduling/executor"

	exec := executor.MustNew(executor.Config{Name: "writer"})
	defer exec.Shutdown()

	exec.SubmitFunc(func(ctx context.Context) error {
		return flush(ctx)
	})
*/
package taskexec
