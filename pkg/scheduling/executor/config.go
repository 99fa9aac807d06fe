package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	tverrors "github.com/vnykmshr/taskexec/pkg/common/errors"
	"github.com/vnykmshr/taskexec/pkg/common/validation"
)

const module = "executor"

// DefaultName is used when Config.Name is empty.
const DefaultName = "default"

// FailurePolicy decides what the worker does when a command returns an
// error or panics.
type FailurePolicy int

const (
	// FailurePolicyIsolate recovers the failure, reports it and keeps draining.
	FailurePolicyIsolate FailurePolicy = iota

	// FailurePolicyFailStop stops draining at the first failure. Commands
	// still queued are dropped and later submissions are rejected.
	FailurePolicyFailStop
)

func (p FailurePolicy) String() string {
	switch p {
	case FailurePolicyIsolate:
		return "isolate"
	case FailurePolicyFailStop:
		return "fail-stop"
	default:
		return fmt.Sprintf("FailurePolicy(%d)", int(p))
	}
}

// ParseFailurePolicy converts "isolate" or "fail-stop" to a FailurePolicy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	if err := validation.ValidateOneOf(module, "failure_policy", s, "isolate", "fail-stop"); err != nil {
		return 0, err
	}
	if s == "fail-stop" {
		return FailurePolicyFailStop, nil
	}
	return FailurePolicyIsolate, nil
}

// State is the executor lifecycle state.
type State int32

const (
	StateRunning State = iota
	StateShuttingDown
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting down"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config holds configuration options for creating an executor.
type Config struct {
	// Name identifies the executor in logs and metrics. Defaults to "default".
	Name string

	// FailurePolicy selects isolate (default) or fail-stop handling of
	// failing commands.
	FailurePolicy FailurePolicy

	// CommandTimeout bounds each command's context. Zero means no timeout.
	// The command must still honor ctx for the timeout to have any effect.
	CommandTimeout time.Duration

	// BaseContext is the parent of every command context. Canceling it
	// cancels the running command and skips the rest of the backlog.
	// Defaults to context.Background().
	BaseContext context.Context

	// Logger receives lifecycle and failure events. Nil disables logging.
	Logger *zerolog.Logger

	// OnCommandStart is called on the worker goroutine before a command runs.
	OnCommandStart func(id uuid.UUID, seq uint64)

	// OnCommandComplete is called on the worker goroutine after every
	// command, including failed and skipped ones.
	OnCommandComplete func(result Result)

	// OnCommandFailure is called on the worker goroutine when a command
	// returns an error or panics.
	OnCommandFailure func(err *tverrors.CommandError)
}

func (c Config) validate() error {
	if c.FailurePolicy != FailurePolicyIsolate && c.FailurePolicy != FailurePolicyFailStop {
		return tverrors.NewValidationError(module, "failure_policy", int(c.FailurePolicy), "unknown policy").
			WithHint("use FailurePolicyIsolate or FailurePolicyFailStop")
	}
	if err := validation.ValidateMaxLength(module, "name", c.Name, 255); err != nil {
		return err
	}
	return validation.ValidateNonNegativeDuration(module, "command_timeout", c.CommandTimeout)
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.BaseContext == nil {
		c.BaseContext = context.Background()
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	return c
}
