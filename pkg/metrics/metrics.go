// Package metrics provides Prometheus instrumentation for taskexec components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for taskexec components.
type Registry struct {
	// Executor Metrics
	CommandsSubmitted *prometheus.CounterVec
	CommandsRejected  *prometheus.CounterVec
	CommandsExecuted  *prometheus.CounterVec
	CommandsFailed    *prometheus.CounterVec
	CommandsSkipped   *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	QueueWaitDuration *prometheus.HistogramVec
	QueueDepth        *prometheus.GaugeVec
	ExecutorState     *prometheus.GaugeVec

	// Scheduler Metrics
	EntriesScheduled *prometheus.CounterVec
	EntriesFired     *prometheus.CounterVec
	SubmitFailures   *prometheus.CounterVec
	EntriesActive    *prometheus.GaugeVec
}

// DefaultRegistry is the default metrics registry used by taskexec components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return newRegistry(reg, DefaultNamespace, nil)
}

// NewRegistryFromConfig creates a registry honoring the namespace and constant
// labels of cfg. A nil cfg.Registry means prometheus.DefaultRegisterer.
func NewRegistryFromConfig(cfg Config) *Registry {
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	return newRegistry(reg, ns, cfg.Labels)
}

func newRegistry(reg prometheus.Registerer, ns string, labels prometheus.Labels) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		// Executor Metrics
		CommandsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "executor",
				Name:        "commands_submitted_total",
				Help:        "Total number of commands accepted by the executor",
				ConstLabels: labels,
			},
			[]string{"executor"},
		),

		CommandsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "executor",
				Name:        "commands_rejected_total",
				Help:        "Total number of submissions rejected after shutdown or failure",
				ConstLabels: labels,
			},
			[]string{"executor"},
		),

		CommandsExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "executor",
				Name:        "commands_executed_total",
				Help:        "Total number of commands executed by the worker",
				ConstLabels: labels,
			},
			[]string{"executor"},
		),

		CommandsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "executor",
				Name:        "commands_failed_total",
				Help:        "Total number of commands that returned an error or panicked",
				ConstLabels: labels,
			},
			[]string{"executor"},
		),

		CommandsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "executor",
				Name:        "commands_skipped_total",
				Help:        "Total number of queued commands dropped without running",
				ConstLabels: labels,
			},
			[]string{"executor"},
		),

		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "executor",
				Name:        "command_duration_seconds",
				Help:        "Time spent executing commands",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"executor"},
		),

		QueueWaitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "executor",
				Name:        "queue_wait_seconds",
				Help:        "Time commands spent queued before execution",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"executor"},
		),

		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "executor",
				Name:        "queue_depth",
				Help:        "Number of commands waiting for the worker",
				ConstLabels: labels,
			},
			[]string{"executor"},
		),

		ExecutorState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "executor",
				Name:        "state",
				Help:        "Executor lifecycle state (0=running, 1=shutting down, 2=stopped, 3=failed)",
				ConstLabels: labels,
			},
			[]string{"executor"},
		),

		// Scheduler Metrics
		EntriesScheduled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "entries_scheduled_total",
				Help:        "Total number of entries added to the scheduler",
				ConstLabels: labels,
			},
			[]string{"scheduler"},
		),

		EntriesFired: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "entries_fired_total",
				Help:        "Total number of due entries submitted to the executor",
				ConstLabels: labels,
			},
			[]string{"scheduler"},
		),

		SubmitFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "submit_failures_total",
				Help:        "Total number of due entries the executor refused",
				ConstLabels: labels,
			},
			[]string{"scheduler"},
		),

		EntriesActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "scheduler",
				Name:        "entries_active",
				Help:        "Number of entries currently scheduled",
				ConstLabels: labels,
			},
			[]string{"scheduler"},
		),
	}
}
