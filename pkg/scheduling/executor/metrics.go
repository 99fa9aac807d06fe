package executor

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/taskexec/pkg/metrics"
)

// MetricsExecutor wraps an Executor with Prometheus metrics collection.
type MetricsExecutor struct {
	*Executor

	name     string
	registry atomic.Pointer[metrics.Registry]
	enabled  atomic.Bool
}

// NewWithMetrics creates an executor whose commands are recorded on a
// registry private to this executor.
func NewWithMetrics(config Config, name string) (*MetricsExecutor, error) {
	// Use a separate registry for each metrics-enabled component to avoid conflicts
	return NewWithConfigAndMetrics(config, name, metrics.Config{
		Enabled:  true,
		Registry: prometheus.NewRegistry(),
	})
}

// NewWithConfigAndMetrics creates an executor with custom config and metrics.
// A nil metricsConfig.Registry selects metrics.DefaultRegistry.
func NewWithConfigAndMetrics(config Config, name string, metricsConfig metrics.Config) (*MetricsExecutor, error) {
	if name == "" {
		name = config.Name
	}
	if name == "" {
		name = DefaultName
	}
	if config.Name == "" {
		config.Name = name
	}

	me := &MetricsExecutor{name: name}
	me.setRegistry(metricsConfig)
	me.enabled.Store(metricsConfig.Enabled)

	config.OnCommandComplete = chainComplete(me.observe, config.OnCommandComplete)

	exec, err := New(config)
	if err != nil {
		return nil, err
	}
	me.Executor = exec
	me.updateGauges()

	return me, nil
}

func chainComplete(first, second func(Result)) func(Result) {
	if second == nil {
		return first
	}
	return func(r Result) {
		first(r)
		second(r)
	}
}

func (me *MetricsExecutor) setRegistry(config metrics.Config) {
	if config.Registry != nil {
		me.registry.Store(metrics.NewRegistryFromConfig(config))
		return
	}
	me.registry.Store(metrics.DefaultRegistry)
}

// observe records a finished command. It runs on the worker goroutine.
func (me *MetricsExecutor) observe(r Result) {
	if !me.enabled.Load() {
		return
	}
	reg := me.registry.Load()

	if r.Skipped {
		reg.CommandsSkipped.WithLabelValues(me.name).Inc()
	} else {
		reg.CommandsExecuted.WithLabelValues(me.name).Inc()
		reg.CommandDuration.WithLabelValues(me.name).Observe(r.Duration.Seconds())
		if r.Err != nil {
			reg.CommandsFailed.WithLabelValues(me.name).Inc()
		}
	}
	reg.QueueWaitDuration.WithLabelValues(me.name).Observe(r.QueueWait.Seconds())

	if me.Executor != nil {
		me.updateGauges()
	}
}

// updateGauges updates the current state metrics.
func (me *MetricsExecutor) updateGauges() {
	if !me.enabled.Load() {
		return
	}
	reg := me.registry.Load()
	reg.QueueDepth.WithLabelValues(me.name).Set(float64(me.Executor.Pending()))
	reg.ExecutorState.WithLabelValues(me.name).Set(float64(me.Executor.State()))
}

// Submit queues cmd and records the submission.
func (me *MetricsExecutor) Submit(cmd Command) error {
	return me.record(me.Executor.Submit(cmd))
}

// SubmitFunc queues fn and records the submission.
func (me *MetricsExecutor) SubmitFunc(fn func(ctx context.Context) error) error {
	return me.record(me.Executor.SubmitFunc(fn))
}

// SubmitWithContext queues cmd with ctx and records the submission.
func (me *MetricsExecutor) SubmitWithContext(ctx context.Context, cmd Command) error {
	return me.record(me.Executor.SubmitWithContext(ctx, cmd))
}

func (me *MetricsExecutor) record(err error) error {
	if me.enabled.Load() {
		reg := me.registry.Load()
		if err != nil {
			reg.CommandsRejected.WithLabelValues(me.name).Inc()
		} else {
			reg.CommandsSubmitted.WithLabelValues(me.name).Inc()
		}
		me.updateGauges()
	}
	return err
}

// Shutdown shuts the executor down and publishes the final state.
func (me *MetricsExecutor) Shutdown() error {
	err := me.Executor.Shutdown()
	me.updateGauges()
	return err
}

// ShutdownWithContext shuts the executor down and publishes the final state.
func (me *MetricsExecutor) ShutdownWithContext(ctx context.Context) error {
	err := me.Executor.ShutdownWithContext(ctx)
	me.updateGauges()
	return err
}

// Close implements io.Closer.
func (me *MetricsExecutor) Close() error {
	return me.Shutdown()
}

// EnableMetrics enables metrics collection.
func (me *MetricsExecutor) EnableMetrics(config metrics.Config) error {
	if config.Registry != nil {
		me.registry.Store(metrics.NewRegistryFromConfig(config))
	}
	me.enabled.Store(config.Enabled)
	me.updateGauges()
	return nil
}

// DisableMetrics disables metrics collection.
func (me *MetricsExecutor) DisableMetrics() {
	me.enabled.Store(false)
}

// MetricsEnabled returns true if metrics are currently enabled.
func (me *MetricsExecutor) MetricsEnabled() bool {
	return me.enabled.Load()
}

var _ metrics.Instrumentable = (*MetricsExecutor)(nil)

// Registry returns the registry commands are recorded on, so other
// components can share it.
func (me *MetricsExecutor) Registry() *metrics.Registry {
	return me.registry.Load()
}
