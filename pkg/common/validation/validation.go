package validation

import (
	"fmt"
	"strings"
	"time"

	tverrors "github.com/vnykmshr/taskexec/pkg/common/errors"
)

// ValidatePositive validates that an integer value is positive (> 0).
// Returns a ValidationError if the value is not positive.
func ValidatePositive(module, field string, value int) error {
	if value <= 0 {
		return tverrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidateNonNegativeDuration validates that a duration is >= 0.
func ValidateNonNegativeDuration(module, field string, value time.Duration) error {
	if value < 0 {
		return tverrors.NewValidationError(module, field, value, "cannot be negative").
			WithHint("use 0 to disable or a positive duration")
	}
	return nil
}

// ValidatePositiveDuration validates that a duration is > 0.
func ValidatePositiveDuration(module, field string, value time.Duration) error {
	if value <= 0 {
		return tverrors.NewValidationError(module, field, value, "must be positive").
			WithHint("use a duration such as 1s or 500ms")
	}
	return nil
}

// ValidateNotNil validates that an interface value is not nil.
// Returns a ValidationError if the value is nil.
func ValidateNotNil(module, field string, value interface{}) error {
	if value == nil {
		return tverrors.NewValidationError(module, field, nil, "cannot be nil").
			WithHint("provide a valid " + field)
	}
	return nil
}

// ValidateNotEmpty validates that a string value is not empty.
// Returns a ValidationError if the string is empty.
func ValidateNotEmpty(module, field string, value string) error {
	if value == "" {
		return tverrors.NewValidationError(module, field, value, "cannot be empty").
			WithHint("provide a non-empty " + field)
	}
	return nil
}

// ValidateMaxLength validates that a string is at most max bytes long.
func ValidateMaxLength(module, field string, value string, max int) error {
	if len(value) > max {
		return tverrors.NewValidationError(module, field, value, fmt.Sprintf("too long (max %d characters)", max))
	}
	return nil
}

// ValidateOneOf validates that value is one of allowed.
func ValidateOneOf(module, field string, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return tverrors.NewValidationError(module, field, value, "unsupported value").
		WithHint("use one of: " + strings.Join(allowed, ", "))
}
