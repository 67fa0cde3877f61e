package types

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failure so callers can distinguish fallback causes
// instead of catching a generic error.
type ErrorCode string

const (
	// ErrTimeout marks an external call that exceeded its deadline.
	ErrTimeout ErrorCode = "TIMEOUT"
	// ErrUnparseable marks an external response that could not be parsed.
	ErrUnparseable ErrorCode = "UNPARSEABLE"
	// ErrRateLimited marks an upstream rate-limit rejection.
	ErrRateLimited ErrorCode = "RATE_LIMITED"
	// ErrUpstream marks a generic upstream service failure.
	ErrUpstream ErrorCode = "UPSTREAM_ERROR"
	// ErrFlowConfig marks a flow-configuration programmer error
	// (unknown flow id, unknown node id, unresolvable action type).
	ErrFlowConfig ErrorCode = "FLOW_CONFIG"
	// ErrSessionNotFound marks an operation against a session that does not exist.
	ErrSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	// ErrFlowNotActive marks a flow operation when no flow is active for the session.
	ErrFlowNotActive ErrorCode = "FLOW_NOT_ACTIVE"
)

// Error is the structured error used across the engine.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error, or "" for plain errors.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
