package errors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Common error types used across the taskexec library

var (
	// ErrClosed indicates that an operation was attempted on a closed resource
	ErrClosed = errors.New("resource is closed")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrNilCommand indicates that a nil command was submitted
	ErrNilCommand = errors.New("command cannot be nil")

	// ErrWorkerFailed indicates that the worker stopped after a command failure
	ErrWorkerFailed = errors.New("worker stopped after command failure")
)

// ValidationError describes a configuration value that failed validation.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError for module.field.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap allows errors.Is(err, ErrInvalidConfiguration).
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// OperationError wraps a failure of a named operation inside a module.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches extra detail and returns the same error for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// CommandError reports a command that returned an error or panicked while
// running on an executor's worker.
type CommandError struct {
	ID    uuid.UUID
	Seq   uint64
	Cause error

	// Panic is true when Cause was recovered from a panic; Stack holds the
	// goroutine stack captured at recovery.
	Panic bool
	Stack []byte
}

func (e *CommandError) Error() string {
	kind := "failed"
	if e.Panic {
		kind = "panicked"
	}
	return fmt.Sprintf("command #%d (%s) %s: %v", e.Seq, e.ID, kind, e.Cause)
}

func (e *CommandError) Unwrap() error {
	return e.Cause
}

// IsRejected returns true if the error means a submission was not accepted
// and the command will never run.
func IsRejected(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, ErrWorkerFailed) || errors.Is(err, ErrNilCommand)
}

// IsTemporary returns true if the error indicates a temporary condition
func IsTemporary(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsCommandError reports whether err is or wraps a *CommandError.
func IsCommandError(err error) bool {
	var cerr *CommandError
	return errors.As(err, &cerr)
}
