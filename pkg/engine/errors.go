package engine

import (
	"errors"
	"fmt"
)

// ErrorClass represents how the orchestrator treats a failure.
type ErrorClass string

const (
	// ErrorClassFatal aborts the apply run.
	// Examples: missing manifest, missing app name, unreadable Info.plist.
	ErrorClassFatal ErrorClass = "fatal"

	// ErrorClassIsolated is converted into a warning and the run continues.
	// Examples: missing entitlements file, unavailable team identifier.
	ErrorClassIsolated ErrorClass = "isolated"

	// ErrorClassBestEffort is logged and otherwise ignored.
	// Examples: backup cleanup failures.
	ErrorClassBestEffort ErrorClass = "best_effort"
)

// EngineError represents a classified error with context.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Resource is the document or file that caused the error, if applicable.
	Resource string `json:"resource,omitempty"`

	// Operation is the phase or step being performed when the error occurred.
	Operation string `json:"operation,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := e.Message
	if e.Resource != "" && e.Operation != "" {
		msg = fmt.Sprintf("%s (resource=%s, operation=%s)", msg, e.Resource, e.Operation)
	} else if e.Resource != "" {
		msg = fmt.Sprintf("%s (resource=%s)", msg, e.Resource)
	} else if e.Operation != "" {
		msg = fmt.Sprintf("%s (operation=%s)", msg, e.Operation)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Class, msg, e.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", e.Class, msg)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewFatalError creates a new fatal error.
func NewFatalError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassFatal,
		Message: message,
		Err:     err,
	}
}

// NewIsolatedError creates a new isolated error.
func NewIsolatedError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassIsolated,
		Message: message,
		Err:     err,
	}
}

// NewBestEffortError creates a new best-effort error.
func NewBestEffortError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassBestEffort,
		Message: message,
		Err:     err,
	}
}

// WithResource adds resource context to an error.
func (e *EngineError) WithResource(resource string) *EngineError {
	e.Resource = resource
	return e
}

// WithOperation adds operation context to an error.
func (e *EngineError) WithOperation(operation string) *EngineError {
	e.Operation = operation
	return e
}

// WithCode adds an error code to an error.
func (e *EngineError) WithCode(code string) *EngineError {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsFatal returns true if the error is classified as fatal.
func IsFatal(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassFatal
	}
	return false
}

// Error codes.
const (
	ErrCodeMissingName             = "MISSING_NAME"
	ErrCodeMissingBundleIdentifier = "MISSING_BUNDLE_IDENTIFIER"
	ErrCodeConfig                  = "CONFIG_ERROR"
	ErrCodeDocument                = "DOCUMENT_ERROR"
	ErrCodeTransform               = "TRANSFORM_FAILED"
	ErrCodeProjectFile             = "PROJECT_FILE_ERROR"
	ErrCodeAssets                  = "ASSETS_ERROR"
	ErrCodeInvalidTransition       = "INVALID_TRANSITION"
	ErrCodeCancelled               = "CANCELLED"
)

// Sentinel errors for errors.Is checks. Matching compares class and code,
// so freshly built errors with the same classification match these.
var (
	// ErrMissingName is returned when the manifest has no name to derive the
	// native project directory from.
	ErrMissingName = &EngineError{
		Class:   ErrorClassFatal,
		Code:    ErrCodeMissingName,
		Message: "manifest name is required to locate the native project",
	}

	// ErrMissingBundleIdentifier is returned when ios.bundleIdentifier is unset.
	ErrMissingBundleIdentifier = &EngineError{
		Class:   ErrorClassFatal,
		Code:    ErrCodeMissingBundleIdentifier,
		Message: "ios.bundleIdentifier is required",
	}
)
