// Package errors provides structured error types for insight.
// Errors include context, causes, and actionable suggestions.
package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Category classifies errors for consistent handling and display.
type Category string

const (
	CategoryConfig     Category = "config"     // Configuration loading/parsing errors
	CategoryExtractor  Category = "extractor"  // Token feature extraction errors
	CategoryValidation Category = "validation" // Input validation errors
	CategorySimulation Category = "simulation" // Force simulation errors
	CategoryExport     Category = "export"     // Rendering/export errors
	CategoryCommand    Category = "command"    // Shell command errors
	CategoryNetwork    Category = "network"    // Network/connectivity errors
	CategoryIO         Category = "io"         // File/IO errors
	CategoryInternal   Category = "internal"   // Internal/unexpected errors
)

// InsightError is a structured error with context and suggestions.
// It implements the error interface and supports error wrapping.
type InsightError struct {
	// Code is a unique identifier for this error type (e.g., "INVALID_INPUT")
	Code string

	// Category classifies this error for consistent handling
	Category Category

	// Message is the primary error message describing what went wrong
	Message string

	// Context provides additional key-value details about the error
	Context map[string]string

	// Cause is the underlying error that triggered this error (for wrapping)
	Cause error

	// Suggestions are actionable remediation steps for the user
	Suggestions []string
}

// Error implements the error interface.
func (e *InsightError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain inspection.
func (e *InsightError) Unwrap() error {
	return e.Cause
}

// Is reports whether e matches target for errors.Is() checks.
// Two InsightErrors match if they have the same Code.
func (e *InsightError) Is(target error) bool {
	if t, ok := target.(*InsightError); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a new InsightError with the given code, category, and message.
func New(code string, category Category, message string) *InsightError {
	return &InsightError{
		Code:     code,
		Category: category,
		Message:  message,
		Context:  make(map[string]string),
	}
}

// Newf creates a new InsightError with a formatted message.
func Newf(code string, category Category, format string, args ...any) *InsightError {
	return New(code, category, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an InsightError.
func Wrap(err error, code string, category Category, message string) *InsightError {
	return New(code, category, message).WithCause(err)
}

// WithContext adds a context key-value pair and returns the error for chaining.
func (e *InsightError) WithContext(key, value string) *InsightError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithContextf adds a context value built from a format string.
func (e *InsightError) WithContextf(key, format string, args ...any) *InsightError {
	return e.WithContext(key, fmt.Sprintf(format, args...))
}

// WithCause wraps an underlying error and returns the error for chaining.
func (e *InsightError) WithCause(cause error) *InsightError {
	e.Cause = cause
	return e
}

// WithSuggestion adds a remediation suggestion and returns the error for chaining.
func (e *InsightError) WithSuggestion(suggestion string) *InsightError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple remediation suggestions.
func (e *InsightError) WithSuggestions(suggestions ...string) *InsightError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// HasContext returns true if the error has context information.
func (e *InsightError) HasContext() bool {
	return len(e.Context) > 0
}

// HasSuggestions returns true if the error has suggestions.
func (e *InsightError) HasSuggestions() bool {
	return len(e.Suggestions) > 0
}

// ContextString returns the context entries as sorted key="value" pairs.
func (e *InsightError) ContextString() string {
	if len(e.Context) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, e.Context[k]))
	}
	return strings.Join(parts, ", ")
}

// AsInsightError finds the first InsightError in err's chain.
func AsInsightError(err error) (*InsightError, bool) {
	for err != nil {
		if ie, ok := err.(*InsightError); ok {
			return ie, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// IsCategory checks if an error is an InsightError with the given category.
func IsCategory(err error, category Category) bool {
	if ie, ok := AsInsightError(err); ok {
		return ie.Category == category
	}
	return false
}

// IsCode checks if an error is an InsightError with the given code.
func IsCode(err error, code string) bool {
	if ie, ok := AsInsightError(err); ok {
		return ie.Code == code
	}
	return false
}
