package compute

import (
	"errors"
	"fmt"
)

// Error is returned for engine misuse detected before the first step.
//
// All three codes are fatal for the engine that produced them:
//   - CONFIGURATION: declare/dependency calls out of sequence or malformed
//   - UNRESOLVED_DEPENDENCY: a dependency that names no declared variable
//   - UNSUPPORTED_PLATFORM: the platform lacks a required capability
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Variable is the affected variable, if any.
	Variable string

	// Dependency is the unresolved dependency name.
	Dependency string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	ErrCodeConfiguration        ErrorCode = "CONFIGURATION"
	ErrCodeUnresolvedDependency ErrorCode = "UNRESOLVED_DEPENDENCY"
	ErrCodeUnsupportedPlatform  ErrorCode = "UNSUPPORTED_PLATFORM"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Variable != "" && e.Dependency != "" {
		return fmt.Sprintf("%s: %s (variable=%s, dependency=%s)", e.Code, e.Message, e.Variable, e.Dependency)
	}
	if e.Variable != "" {
		return fmt.Sprintf("%s: %s (variable=%s)", e.Code, e.Message, e.Variable)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigurationError reports whether err is a CONFIGURATION error.
func IsConfigurationError(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}

// IsUnresolvedDependency reports whether err is an UNRESOLVED_DEPENDENCY error.
func IsUnresolvedDependency(err error) bool {
	return hasCode(err, ErrCodeUnresolvedDependency)
}

// IsUnsupportedPlatform reports whether err is an UNSUPPORTED_PLATFORM error.
func IsUnsupportedPlatform(err error) bool {
	return hasCode(err, ErrCodeUnsupportedPlatform)
}

func hasCode(err error, code ErrorCode) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

func configErr(variable, format string, args ...any) *Error {
	return &Error{Code: ErrCodeConfiguration, Message: fmt.Sprintf(format, args...), Variable: variable}
}

// NewUnresolvedDependency creates the error reported when variable depends on
// a name that no declared variable carries.
func NewUnresolvedDependency(variable, dependency string) *Error {
	return &Error{
		Code:       ErrCodeUnresolvedDependency,
		Message:    "variable dependency not found",
		Variable:   variable,
		Dependency: dependency,
	}
}

// NewUnsupportedPlatform creates the error reported when a capability is missing.
func NewUnsupportedPlatform(platform, missing string) *Error {
	return &Error{
		Code:    ErrCodeUnsupportedPlatform,
		Message: fmt.Sprintf("platform %q: %s", platform, missing),
	}
}
