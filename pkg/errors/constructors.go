package errors

import (
	"fmt"
	"strconv"
)

// -----------------------------------------------------------------------------
// Smart Constructors with Auto-Attached Suggestions
// -----------------------------------------------------------------------------

// Code creates an error for a known code, taking the category from the
// code table and attaching registered suggestions.
func Code(code, message string) *InsightError {
	return AttachSuggestions(New(code, CategoryFor(code), message))
}

// Codef is Code with a formatted message.
func Codef(code, format string, args ...any) *InsightError {
	return Code(code, fmt.Sprintf(format, args...))
}

// CodeWrap wraps cause under a known code with suggestions attached.
func CodeWrap(cause error, code, message string) *InsightError {
	return Code(code, message).WithCause(cause)
}

// InvalidInput reports a malformed simulation input.
func InvalidInput(message string) *InsightError {
	return Code(ErrInvalidInput, message)
}

// ShapeMismatch reports an attention matrix whose shape does not match the
// number of embeddings. row is -1 when the row count itself is wrong.
func ShapeMismatch(want, row, got int) *InsightError {
	var err *InsightError
	if row < 0 {
		err = Codef(ErrInvalidInput, "attention matrix has %d rows, want %d", got, want)
	} else {
		err = Codef(ErrInvalidInput, "attention row %d has %d columns, want %d", row, got, want)
		err.WithContext("row", strconv.Itoa(row))
	}
	return err.
		WithContext("expected", strconv.Itoa(want)).
		WithContext("actual", strconv.Itoa(got))
}

// DimensionMismatch reports an embedding whose dimension differs from the first.
func DimensionMismatch(index, want, got int) *InsightError {
	return Codef(ErrInvalidInput, "embedding %d has dimension %d, want %d", index, got, want).
		WithContext("index", strconv.Itoa(index)).
		WithContext("expected", strconv.Itoa(want)).
		WithContext("actual", strconv.Itoa(got))
}

// InvalidParam reports a parameter value the engine cannot use.
func InvalidParam(name string, value float64) *InsightError {
	return Codef(ErrInvalidParams, "parameter %s has unusable value %v", name, value).
		WithContext("param", name)
}

// NumericInstability reports a particle that left the finite domain.
func NumericInstability(iteration, particle int) *InsightError {
	return Codef(ErrNumericInstability, "particle %d became non-finite at iteration %d", particle, iteration).
		WithContext("iteration", strconv.Itoa(iteration)).
		WithContext("particle", strconv.Itoa(particle))
}

// Canceled reports a run stopped at an iteration boundary.
func Canceled(iteration int, cause error) *InsightError {
	return Codef(ErrSimulationCanceled, "simulation canceled before iteration %d", iteration).
		WithContext("iteration", strconv.Itoa(iteration)).
		WithCause(cause)
}

// NotFound reports a missing analysis.
func NotFound(id string) *InsightError {
	return Codef(ErrAnalysisNotFound, "no analysis with id %q", id).WithContext("id", id)
}

// ConfigNotFound reports a missing configuration file.
func ConfigNotFound(path string) *InsightError {
	return Code(ErrConfigNotFound, "configuration file not found").
		WithContext("path", path)
}

// ConfigParseError reports a configuration file that is not valid YAML.
func ConfigParseError(path string, cause error) *InsightError {
	return CodeWrap(cause, ErrConfigParseFailed, "failed to parse configuration file").
		WithContext("path", path)
}

// ConfigInvalid reports a configuration value that failed validation.
func ConfigInvalid(field, value, message string) *InsightError {
	return Code(ErrConfigInvalid, message).
		WithContext("field", field).
		WithContext("value", value)
}
