// Package apperr defines the typed failure payload carried by every layer
// of the substrate. The kind set is closed; callers branch on Kind, never
// on error strings.
package apperr

import "fmt"

// Kind classifies an application failure.
type Kind string

const (
	KindNotFound    Kind = "NOT_FOUND"
	KindConflict    Kind = "CONFLICT"
	KindValidation  Kind = "VALIDATION_ERROR"
	KindUnavailable Kind = "SERVICE_UNAVAILABLE"
)

// Error is the failure payload carried inside a failed outcome.
// Cause retains the original raw failure for diagnostics only; callers
// above the IO layer must not inspect it. Data preserves the input that
// failed, for logging and replay.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Data    any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the raw cause to errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithData attaches the failed input to the error and returns it.
func (e *Error) WithData(data any) *Error {
	e.Data = data
	return e
}

// NotFound reports that a required record is absent.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Conflict reports a business uniqueness or state violation.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Validation reports malformed or rejected input.
func Validation(message string, cause error) *Error {
	return &Error{Kind: KindValidation, Message: message, Cause: cause}
}

// Unavailable reports an infrastructure failure after the IO layer has
// given up on it.
func Unavailable(message string, cause error) *Error {
	return &Error{Kind: KindUnavailable, Message: message, Cause: cause}
}

// KindOf returns the kind carried by err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}

// ValidationIssues is the shape a schema validator reports when decoding
// request payloads. It may propagate as a panic up to the top-level HTTP
// boundary, which renders the issue list; everywhere else it is absorbed
// into a KindValidation Error.
type ValidationIssues struct {
	Issues []string
}

func (v *ValidationIssues) Error() string {
	return fmt.Sprintf("validation failed: %d issue(s)", len(v.Issues))
}
