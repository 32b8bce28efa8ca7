// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown errors
//   - Validation errors (100-199): Configuration and request validation
//   - Transport errors (500-599): Failures reported by the remote connection
//   - Queue errors (600-699): Backpressure, shutdown and per-request timeouts
//   - Connection lifecycle errors (700-799): Reconnection exhaustion
//   - Callback errors (800-899): Observer and callback failures
//
// Usage:
//
//	// Create a new error
//	err := errors.New(errors.ErrCodeQueueFull, "trade queue is full")
//
//	// Create a formatted error
//	err := errors.Newf(errors.ErrCodeTimeout, "request %s timed out after %s", id, timeout)
//
//	// Wrap an existing error
//	err := errors.Wrap(errors.ErrCodeTransport, "failed to fetch candles", originalErr)
//
//	// Check error code
//	if errors.HasCode(err, errors.ErrCodeQueueFull) { ... }
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Kind returns the taxonomy name of the error (e.g. "QueueFullError").
func (e *Error) Kind() string {
	return e.Code.String()
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard errors.Is function.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard errors.As function.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsTransient reports whether err is a failure the connection may recover from:
// transport errors and per-request timeouts.
func IsTransient(err error) bool {
	switch GetCode(err) {
	case ErrCodeTransport, ErrCodeNotConnected, ErrCodeTimeout:
		return true
	default:
		return false
	}
}

// FromContext converts a context error into a coded error.
// Deadline expiry becomes ErrCodeTimeout; cancellation keeps ErrCodeUnknown with the cause attached.
func FromContext(ctx context.Context, operation string) *Error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrapf(ErrCodeTimeout, err, "%s timed out", operation)
	}

	return Wrapf(ErrCodeUnknown, err, "%s cancelled", operation)
}
