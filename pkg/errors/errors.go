// Package errors defines the error taxonomy of the reconciliation engine.
//
// From the matching core only two classes of failure ever surface to a
// caller: configuration errors (the run never starts) and invariant
// violations (a double-claimed item, which would mean silent
// double-counting). Timeouts and optional-collaborator failures are
// absorbed into result metadata and are not errors. Data errors come from
// the loaders around the core, never from the core itself.
package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of engine errors
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryMatching      ErrorCategory = "matching"
	CategoryData          ErrorCategory = "data"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Matching errors
	CodeCollaboratorFailed ErrorCode = "collaborator_failed"

	// Data errors
	CodeInvalidData   ErrorCode = "invalid_data"
	CodeFileNotFound  ErrorCode = "file_not_found"
	CodeFileError     ErrorCode = "file_error"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeNotFound      ErrorCode = "not_found"

	// Internal errors
	CodeDoubleClaim     ErrorCode = "double_claim"
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// EngineError is the base error type for all engine errors
type EngineError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// IsFatal reports whether the error indicates a state the run must not
// continue from
func (e *EngineError) IsFatal() bool {
	return e.Category == CategoryInternal
}

// WithContext adds context information to the error
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *EngineError) WithSuggestion(suggestion string) *EngineError {
	e.Suggestion = suggestion
	return e
}

// New creates a new EngineError
func New(category ErrorCategory, code ErrorCode, message string) *EngineError {
	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with EngineError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *EngineError {
	if err == nil {
		return nil
	}

	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// ConfigurationError reports an invalid or missing run configuration.
// These fail the run before any phase executes.
func ConfigurationError(code ErrorCode, setting string, err error) *EngineError {
	var message string
	switch code {
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
	default:
		message = fmt.Sprintf("invalid configuration for '%s'", setting)
	}

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion("check the run configuration and profile defaults").
		WithContext("setting", setting)
}

// InvariantError reports an item claimed by more than one suggestion.
// This must never occur by construction; if it does, the run aborts, since
// continuing would risk double-counting a movement.
func InvariantError(itemKind, id string) *EngineError {
	return New(CategoryInternal, CodeDoubleClaim,
		fmt.Sprintf("%s %s claimed by more than one suggestion", itemKind, id)).
		WithSuggestion("this is a bug in the engine, report it with the run inputs").
		WithContext("item_kind", itemKind).
		WithContext("item_id", id)
}

// CollaboratorError wraps a failure of an optional collaborator (ML
// predictor, payment linker). Callers log these and continue; the phase
// simply yields nothing for the affected item.
func CollaboratorError(collaborator string, err error) *EngineError {
	return Wrap(err, CategoryMatching, CodeCollaboratorFailed,
		fmt.Sprintf("optional collaborator %s failed", collaborator)).
		WithContext("collaborator", collaborator)
}

// FileError reports a file that could not be opened or read
func FileError(code ErrorCode, path string, err error) *EngineError {
	return Wrap(err, CategoryData, code,
		fmt.Sprintf("file operation failed for '%s'", path)).
		WithContext("file_path", path)
}

// RowError reports a CSV row that could not be parsed into a model
func RowError(path string, line int, field string, err error) *EngineError {
	return Wrap(err, CategoryData, CodeInvalidData,
		fmt.Sprintf("invalid data at %s line %d, field '%s'", path, line, field)).
		WithSuggestion("fix the offending row or adjust the column mapping").
		WithContext("file_path", path).
		WithContext("line", line).
		WithContext("field", field)
}

// DataError reports malformed input data
func DataError(detail string, err error) *EngineError {
	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryData, CodeInvalidData, detail)
	} else {
		result = New(CategoryData, CodeInvalidData, detail)
	}
	return result
}

// InternalError creates an unexpected internal error
func InternalError(operation string, err error) *EngineError {
	return Wrap(err, CategoryInternal, CodeUnexpectedError,
		fmt.Sprintf("unexpected error during %s", operation)).
		WithContext("operation", operation)
}

// IsEngineError checks if an error is an EngineError
func IsEngineError(err error) bool {
	_, ok := err.(*EngineError)
	return ok
}

// AsEngineError extracts an EngineError from an error chain
func AsEngineError(err error) (*EngineError, bool) {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr, true
	}
	return nil, false
}

// HasCode reports whether the error chain contains an EngineError with the
// given code
func HasCode(err error, code ErrorCode) bool {
	if engineErr, ok := AsEngineError(err); ok {
		return engineErr.Code == code
	}
	return false
}
