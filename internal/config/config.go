// Package config loads the taskexec application configuration from a YAML
// file and applies TASKEXEC_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	tverrors "github.com/vnykmshr/taskexec/pkg/common/errors"
	"github.com/vnykmshr/taskexec/pkg/common/validation"
	"github.com/vnykmshr/taskexec/pkg/metrics"
	"github.com/vnykmshr/taskexec/pkg/scheduling/executor"
	"github.com/vnykmshr/taskexec/pkg/scheduling/scheduler"
)

const (
	module = "config"

	// EnvPrefix is prepended to every environment override.
	EnvPrefix = "TASKEXEC_"
)

// Config is the top-level application configuration.
type Config struct {
	Executor ExecutorConfig `yaml:"executor"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Jobs     []Job          `yaml:"jobs"`
}

type ExecutorConfig struct {
	Name            string        `yaml:"name"`
	FailurePolicy   string        `yaml:"failure_policy"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Policy returns the parsed failure policy. Validate guarantees it parses.
func (c ExecutorConfig) Policy() executor.FailurePolicy {
	p, _ := executor.ParseFailurePolicy(c.FailurePolicy)
	return p
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Listen    string `yaml:"listen"`
}

// Job is a recurring log message submitted through the scheduler. Exactly
// one of Cron and Every must be set.
type Job struct {
	ID      string        `yaml:"id"`
	Cron    string        `yaml:"cron"`
	Every   time.Duration `yaml:"every"`
	Message string        `yaml:"message"`
}

// overrides lists the settings that may come from the environment. It is
// seeded from the file so unset variables keep the file's value.
type overrides struct {
	ExecutorName    string        `env:"EXECUTOR_NAME"`
	FailurePolicy   string        `env:"FAILURE_POLICY"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`
	LogLevel        string        `env:"LOG_LEVEL"`
	LogFormat       string        `env:"LOG_FORMAT"`
	MetricsEnabled  bool          `env:"METRICS_ENABLED"`
	MetricsListen   string        `env:"METRICS_LISTEN"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Executor: ExecutorConfig{
			Name:            executor.DefaultName,
			FailurePolicy:   executor.FailurePolicyIsolate.String(),
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  zerolog.InfoLevel.String(),
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: metrics.DefaultNamespace,
			Listen:    ":9090",
		},
	}
}

// Load reads path (if non-empty), applies environment overrides from the
// process environment and validates the result.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, nil)
}

// LoadWithEnv is like Load but reads overrides from environ instead of the
// process environment when environ is non-nil.
func LoadWithEnv(path string, environ map[string]string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, tverrors.NewOperationError(module, "Load", err).WithContext(path)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, tverrors.NewOperationError(module, "Load", err).WithContext(path)
		}
	}

	if err := applyEnv(&cfg, environ); err != nil {
		return Config{}, tverrors.NewOperationError(module, "Load", err).WithContext("environment")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, environ map[string]string) error {
	o := overrides{
		ExecutorName:    cfg.Executor.Name,
		FailurePolicy:   cfg.Executor.FailurePolicy,
		ShutdownTimeout: cfg.Executor.ShutdownTimeout,
		LogLevel:        cfg.Log.Level,
		LogFormat:       cfg.Log.Format,
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsListen:   cfg.Metrics.Listen,
	}
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return err
	}

	cfg.Executor.Name = o.ExecutorName
	cfg.Executor.FailurePolicy = o.FailurePolicy
	cfg.Executor.ShutdownTimeout = o.ShutdownTimeout
	cfg.Log.Level = o.LogLevel
	cfg.Log.Format = o.LogFormat
	cfg.Metrics.Enabled = o.MetricsEnabled
	cfg.Metrics.Listen = o.MetricsListen
	return nil
}

// Validate checks every section and returns the first problem found.
func (c Config) Validate() error {
	if err := validation.ValidateNotEmpty(module, "executor.name", c.Executor.Name); err != nil {
		return err
	}
	if _, err := executor.ParseFailurePolicy(c.Executor.FailurePolicy); err != nil {
		return err
	}
	if err := validation.ValidatePositiveDuration(module, "executor.shutdown_timeout", c.Executor.ShutdownTimeout); err != nil {
		return err
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return tverrors.NewValidationError(module, "log.level", c.Log.Level, "unknown level").
			WithHint("use trace, debug, info, warn, error, fatal, panic or disabled")
	}
	if err := validation.ValidateOneOf(module, "log.format", c.Log.Format, "json", "console"); err != nil {
		return err
	}

	if c.Metrics.Enabled {
		if err := validation.ValidateNotEmpty(module, "metrics.namespace", c.Metrics.Namespace); err != nil {
			return err
		}
		if err := validation.ValidateNotEmpty(module, "metrics.listen", c.Metrics.Listen); err != nil {
			return err
		}
	}

	seen := make(map[string]struct{}, len(c.Jobs))
	for i, job := range c.Jobs {
		if err := job.validate(i); err != nil {
			return err
		}
		if _, dup := seen[job.ID]; dup {
			return tverrors.NewValidationError(module, fmt.Sprintf("jobs[%d].id", i), job.ID, "duplicate id")
		}
		seen[job.ID] = struct{}{}
	}
	return nil
}

func (j Job) validate(i int) error {
	field := func(name string) string { return fmt.Sprintf("jobs[%d].%s", i, name) }

	if err := validation.ValidateNotEmpty(module, field("id"), j.ID); err != nil {
		return err
	}
	switch {
	case j.Cron != "" && j.Every != 0:
		return tverrors.NewValidationError(module, field("cron"), j.Cron, "cron and every are mutually exclusive")
	case j.Cron != "":
		return scheduler.ValidateCron(j.Cron)
	case j.Every != 0:
		return validation.ValidatePositiveDuration(module, field("every"), j.Every)
	default:
		return tverrors.NewValidationError(module, field("cron"), "", "one of cron or every is required").
			WithHint("for example cron: \"@every 10s\" or every: 10s")
	}
}
