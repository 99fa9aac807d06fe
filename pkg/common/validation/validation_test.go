package validation

import (
	"testing"
	"time"

	"github.com/vnykmshr/taskexec/pkg/common/errors"
)

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		name      string
		value     int
		wantError bool
	}{
		{"positive value", 10, false},
		{"positive value 1", 1, false},
		{"zero value", 0, true},
		{"negative value", -1, true},
		{"large positive", 1000000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePositive("test", "count", tt.value)

			if tt.wantError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.IsValidationError(err) {
					t.Errorf("expected ValidationError, got %T", err)
				}
			} else if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateDurations(t *testing.T) {
	tests := []struct {
		name        string
		value       time.Duration
		nonNegative bool
		positive    bool
	}{
		{"zero", 0, true, false},
		{"one second", time.Second, true, true},
		{"negative", -time.Millisecond, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateNonNegativeDuration("test", "timeout", tt.value); (err == nil) != tt.nonNegative {
				t.Errorf("ValidateNonNegativeDuration(%v) = %v", tt.value, err)
			}
			if err := ValidatePositiveDuration("test", "interval", tt.value); (err == nil) != tt.positive {
				t.Errorf("ValidatePositiveDuration(%v) = %v", tt.value, err)
			}
		})
	}
}

func TestValidateNotNil(t *testing.T) {
	if err := ValidateNotNil("executor", "command", nil); err == nil {
		t.Error("expected error for nil value")
	}
	if err := ValidateNotNil("executor", "command", struct{}{}); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestValidateStrings(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantError bool
	}{
		{"not empty ok", ValidateNotEmpty("scheduler", "id", "job"), false},
		{"empty", ValidateNotEmpty("scheduler", "id", ""), true},
		{"max length ok", ValidateMaxLength("scheduler", "id", "abc", 3), false},
		{"max length exceeded", ValidateMaxLength("scheduler", "id", "abcd", 3), true},
		{"one of ok", ValidateOneOf("log", "format", "json", "json", "console"), false},
		{"one of rejected", ValidateOneOf("log", "format", "xml", "json", "console"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.err != nil) != tt.wantError {
				t.Errorf("got error %v, wantError %v", tt.err, tt.wantError)
			}
		})
	}
}

func TestValidationErrorDetails(t *testing.T) {
	t.Run("ValidatePositive error details", func(t *testing.T) {
		err := ValidatePositive("scheduler", "max_entries", -5)

		valErr, ok := err.(*errors.ValidationError)
		if !ok {
			t.Fatalf("expected *ValidationError, got %T", err)
		}
		if valErr.Module != "scheduler" {
			t.Errorf("Module = %q, want %q", valErr.Module, "scheduler")
		}
		if valErr.Field != "max_entries" {
			t.Errorf("Field = %q, want %q", valErr.Field, "max_entries")
		}
		if valErr.Value != -5 {
			t.Errorf("Value = %v, want %v", valErr.Value, -5)
		}
		if valErr.Hint != "value must be greater than 0" {
			t.Errorf("Hint = %q, want %q", valErr.Hint, "value must be greater than 0")
		}
	})

	t.Run("ValidateOneOf hint lists choices", func(t *testing.T) {
		err := ValidateOneOf("executor", "failure_policy", "retry", "isolate", "fail-stop")

		valErr, ok := err.(*errors.ValidationError)
		if !ok {
			t.Fatalf("expected *ValidationError, got %T", err)
		}
		if valErr.Hint != "use one of: isolate, fail-stop" {
			t.Errorf("Hint = %q", valErr.Hint)
		}
	})
}

func TestValidationErrorWrapping(t *testing.T) {
	testCases := []struct {
		name string
		err  error
	}{
		{"ValidatePositive", ValidatePositive("test", "field", -1)},
		{"ValidateNonNegativeDuration", ValidateNonNegativeDuration("test", "field", -1)},
		{"ValidatePositiveDuration", ValidatePositiveDuration("test", "field", 0)},
		{"ValidateNotNil", ValidateNotNil("test", "field", nil)},
		{"ValidateNotEmpty", ValidateNotEmpty("test", "field", "")},
		{"ValidateOneOf", ValidateOneOf("test", "field", "x", "y")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err == nil {
				t.Fatal("expected error")
			}
			valErr, ok := tc.err.(*errors.ValidationError)
			if !ok {
				t.Fatalf("expected *ValidationError, got %T", tc.err)
			}
			if wrapped := valErr.Unwrap(); wrapped != errors.ErrInvalidConfiguration {
				t.Errorf("should unwrap to ErrInvalidConfiguration, got %v", wrapped)
			}
		})
	}
}
