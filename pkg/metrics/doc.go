// Package metrics provides Prometheus instrumentation for taskexec components.
//
// # Overview
//
// The metrics package instruments:
//   - the single-worker executor (submissions, rejections, executions,
//     failures, skipped commands, queue depth and lifecycle state)
//   - the scheduler that feeds it (entries scheduled, fired, refused)
//
// # Quick Start
//
//	reg := prometheus.NewRegistry()
//	exec, err := executor.NewWithConfigAndMetrics(executor.Config{}, "jobs", metrics.Config{
//		Enabled:  true,
//		Registry: reg,
//	})
//
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # Available Metrics
//
//   - taskexec_executor_commands_submitted_total
//   - taskexec_executor_commands_rejected_total
//   - taskexec_executor_commands_executed_total
//   - taskexec_executor_commands_failed_total
//   - taskexec_executor_commands_skipped_total
//   - taskexec_executor_command_duration_seconds
//   - taskexec_executor_queue_wait_seconds
//   - taskexec_executor_queue_depth
//   - taskexec_executor_state
//   - taskexec_scheduler_entries_scheduled_total
//   - taskexec_scheduler_entries_fired_total
//   - taskexec_scheduler_submit_failures_total
//   - taskexec_scheduler_entries_active
//
// Executor metrics carry an "executor" label and scheduler metrics a
// "scheduler" label holding the user-provided component name.
//
// # Configuration
//
//	config := metrics.Config{
//		Enabled:   true,
//		Registry:  prometheus.NewRegistry(),
//		Namespace: "myapp",                             // overrides "taskexec"
//		Labels:    prometheus.Labels{"version": "1.0"}, // constant labels
//	}
//	registry := metrics.NewRegistryFromConfig(config)
package metrics
