// Package apperror provides structured error handling for the posting validation core.
// Caller and configuration errors are AppErrors; business violations are never errors.
package apperror

import (
	"errors"
	"fmt"
)

// Error codes following the validation core taxonomy
const (
	// Infrastructure errors
	CodeRuleStore = "RULE_STORE_ERROR"

	// Caller errors: rejected before resolution or evaluation runs
	CodeInvalidInput = "INVALID_INPUT"

	// Configuration errors: the rule store cannot answer for this context
	CodeConfiguration = "CONFIGURATION_ERROR"
)

// AppError is the standard error type for the validation core.
// It implements error interface and carries structured details for callers.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (line index, rule set id, account, ...)
	Details map[string]any `json:"details,omitempty"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewInvalidInput creates a caller error.
func NewInvalidInput(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidInput,
		Message: message,
	}
}

// NewConfiguration creates a configuration error. Callers decide the policy
// (fail closed or fail open); the core only reports the gap.
func NewConfiguration(message string) *AppError {
	return &AppError{
		Code:    CodeConfiguration,
		Message: message,
	}
}

// NewRuleStore wraps a transport-level failure of the rule store.
// The cause is kept unchanged so errors.Is keeps working for callers.
func NewRuleStore(op string, err error) *AppError {
	return &AppError{
		Code:    CodeRuleStore,
		Message: "rule store unavailable",
		Details: map[string]any{"operation": op},
		Err:     err,
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries an AppError with the given code.
func IsCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsInvalidInput checks if error is a caller error
func IsInvalidInput(err error) bool { return IsCode(err, CodeInvalidInput) }

// IsConfiguration checks if error is a configuration error
func IsConfiguration(err error) bool { return IsCode(err, CodeConfiguration) }

// IsRuleStore checks if error is a rule store transport failure
func IsRuleStore(err error) bool { return IsCode(err, CodeRuleStore) }
