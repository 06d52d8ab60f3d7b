// Package errors provides a lightweight structured error type (SitepipeError)
// for category-based classification in the engine, registry and CLI.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCategory represents the category of a sitepipe error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Pipeline execution errors
	CategoryModule   ErrorCategory = "module"
	CategoryPipeline ErrorCategory = "pipeline"
	CategoryCache    ErrorCategory = "cache"

	// External system integration errors
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryGit        ErrorCategory = "git"
	CategoryNetwork    ErrorCategory = "network"

	// Runtime and infrastructure errors
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// SitepipeError is a structured error with category, retryability, and context
type SitepipeError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for SitepipeError
type ContextFields map[string]any

// Error implements the error interface
func (e *SitepipeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *SitepipeError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *SitepipeError) WithContext(key string, value any) *SitepipeError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// WithSeverity overrides the severity.
func (e *SitepipeError) WithSeverity(s ErrorSeverity) *SitepipeError {
	e.Severity = s
	return e
}

// New creates a new SitepipeError
func New(category ErrorCategory, severity ErrorSeverity, message string) *SitepipeError {
	return &SitepipeError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new SitepipeError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *SitepipeError {
	return &SitepipeError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// WrapRetryable creates a new retryable SitepipeError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *SitepipeError {
	return &SitepipeError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// WrapError wraps an existing error with SeverityError.
func WrapError(err error, category ErrorCategory, message string) *SitepipeError {
	return Wrap(err, category, SeverityError, message)
}

// As returns the outermost SitepipeError in err's chain.
func As(err error) (*SitepipeError, bool) {
	var se *SitepipeError
	if stdErrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsCategory checks if an error chain contains a SitepipeError of the category
func IsCategory(err error, category ErrorCategory) bool {
	if se, ok := As(err); ok {
		return se.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if se, ok := As(err); ok {
		return se.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a SitepipeError
func GetCategory(err error) ErrorCategory {
	if se, ok := As(err); ok {
		return se.Category
	}
	return CategoryInternal
}
