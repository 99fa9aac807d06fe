// Package validation provides common validation utilities for configuration
// parameters across the taskexec library.
//
// Every validator returns a *errors.ValidationError so callers can report the
// module, field and offending value consistently, and so errors.Is can match
// errors.ErrInvalidConfiguration.
package validation
