package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tverrors "github.com/vnykmshr/taskexec/pkg/common/errors"
	"github.com/vnykmshr/taskexec/pkg/scheduling/executor"
)

const sample = `
executor:
  name: jobs
  failure_policy: fail-stop
  shutdown_timeout: 5s
log:
  level: debug
  format: console
metrics:
  enabled: true
  namespace: app
  listen: "127.0.0.1:9100"
jobs:
  - id: heartbeat
    cron: "@every 10s"
    message: still alive
  - id: tick
    every: 250ms
    message: tick
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskexec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := LoadWithEnv(writeFile(t, sample), map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "jobs", cfg.Executor.Name)
	assert.Equal(t, executor.FailurePolicyFailStop, cfg.Executor.Policy())
	assert.Equal(t, 5*time.Second, cfg.Executor.ShutdownTimeout)
	assert.Equal(t, LogConfig{Level: "debug", Format: "console"}, cfg.Log)
	assert.Equal(t, MetricsConfig{Enabled: true, Namespace: "app", Listen: "127.0.0.1:9100"}, cfg.Metrics)

	require.Len(t, cfg.Jobs, 2)
	assert.Equal(t, Job{ID: "heartbeat", Cron: "@every 10s", Message: "still alive"}, cfg.Jobs[0])
	assert.Equal(t, 250*time.Millisecond, cfg.Jobs[1].Every)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadWithEnv("", map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, executor.FailurePolicyIsolate, cfg.Executor.Policy())
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadWithEnv(writeFile(t, "log:\n  level: warn\n"), map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 30*time.Second, cfg.Executor.ShutdownTimeout)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := LoadWithEnv(writeFile(t, ""), map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvOverrides(t *testing.T) {
	environ := map[string]string{
		"TASKEXEC_EXECUTOR_NAME":    "from-env",
		"TASKEXEC_FAILURE_POLICY":   "isolate",
		"TASKEXEC_SHUTDOWN_TIMEOUT": "1m",
		"TASKEXEC_LOG_LEVEL":        "error",
		"TASKEXEC_LOG_FORMAT":       "json",
		"TASKEXEC_METRICS_ENABLED":  "false",
		"TASKEXEC_METRICS_LISTEN":   ":9999",
	}

	cfg, err := LoadWithEnv(writeFile(t, sample), environ)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Executor.Name)
	assert.Equal(t, executor.FailurePolicyIsolate, cfg.Executor.Policy())
	assert.Equal(t, time.Minute, cfg.Executor.ShutdownTimeout)
	assert.Equal(t, LogConfig{Level: "error", Format: "json"}, cfg.Log)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9999", cfg.Metrics.Listen)
	assert.Equal(t, "app", cfg.Metrics.Namespace)
	assert.Len(t, cfg.Jobs, 2)
}

func TestLoad_ProcessEnvironment(t *testing.T) {
	t.Setenv("TASKEXEC_EXECUTOR_NAME", "process")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "process", cfg.Executor.Name)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadWithEnv(filepath.Join(t.TempDir(), "nope.yaml"), map[string]string{})
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := LoadWithEnv(writeFile(t, "executor:\n  workers: 4\n"), map[string]string{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "workers")
	})

	t.Run("bad duration in env", func(t *testing.T) {
		_, err := LoadWithEnv("", map[string]string{"TASKEXEC_SHUTDOWN_TIMEOUT": "soon"})
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty name", func(c *Config) { c.Executor.Name = "" }},
		{"unknown policy", func(c *Config) { c.Executor.FailurePolicy = "retry" }},
		{"zero shutdown timeout", func(c *Config) { c.Executor.ShutdownTimeout = 0 }},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
		{"metrics without listen", func(c *Config) { c.Metrics.Listen = "" }},
		{"job without schedule", func(c *Config) { c.Jobs = []Job{{ID: "a"}} }},
		{"job with both schedules", func(c *Config) {
			c.Jobs = []Job{{ID: "a", Cron: "@hourly", Every: time.Second}}
		}},
		{"job with bad cron", func(c *Config) { c.Jobs = []Job{{ID: "a", Cron: "sometimes"}} }},
		{"job with negative every", func(c *Config) { c.Jobs = []Job{{ID: "a", Every: -time.Second}} }},
		{"job without id", func(c *Config) { c.Jobs = []Job{{Every: time.Second}} }},
		{"duplicate job id", func(c *Config) {
			c.Jobs = []Job{{ID: "a", Every: time.Second}, {ID: "a", Cron: "@hourly"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tverrors.ErrInvalidConfiguration)
		})
	}

	t.Run("metrics disabled skips metrics checks", func(t *testing.T) {
		cfg := Default()
		cfg.Metrics = MetricsConfig{}
		assert.NoError(t, cfg.Validate())
	})
}
