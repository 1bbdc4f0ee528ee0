// Package errors provides a lightweight structured error type (DocNormError)
// for category-based classification and exit-code mapping in the CLI.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of a DocNorm error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// File and document processing errors
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryProcess    ErrorCategory = "process"

	// Runtime and infrastructure errors
	CategoryState    ErrorCategory = "state"
	CategoryWatch    ErrorCategory = "watch"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// DocNormError is a structured error with category, retryability, and context
type DocNormError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for DocNormError
type ContextFields map[string]any

// Error implements the error interface
func (e *DocNormError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *DocNormError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *DocNormError) WithContext(key string, value any) *DocNormError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new DocNormError
func New(category ErrorCategory, severity ErrorSeverity, message string) *DocNormError {
	return &DocNormError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new DocNormError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *DocNormError {
	return &DocNormError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// WrapRetryable creates a new retryable DocNormError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *DocNormError {
	return &DocNormError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory reports whether err (or any error it wraps) is a DocNormError
// of the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var de *DocNormError
	if errors.As(err, &de) {
		return de.Category == category
	}
	return false
}

// GetCategory returns the category of err, or CategoryInternal for plain errors.
func GetCategory(err error) ErrorCategory {
	var de *DocNormError
	if errors.As(err, &de) {
		return de.Category
	}
	return CategoryInternal
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	var de *DocNormError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// ExitCode maps an error to a CLI process exit code. Configuration and
// validation problems are distinguished from processing failures so scripts
// can tell "fix your config" apart from "a file failed".
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch GetCategory(err) {
	case CategoryConfig, CategoryValidation:
		return 3
	default:
		return 2
	}
}
