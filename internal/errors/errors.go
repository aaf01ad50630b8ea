package errors

import (
	"errors"
	"fmt"
)

// Code categorizes an error so callers can branch without string matching
type Code string

const (
	// CodeUnknown indicates an unknown error
	CodeUnknown Code = "unknown"

	// CodeInvalidArgument indicates the caller passed a malformed argument
	CodeInvalidArgument Code = "invalid_argument"

	// CodeNotFound indicates a requested item, title or ability does not exist
	CodeNotFound Code = "not_found"

	// CodeValidation indicates an edit that breaks a character sheet rule
	CodeValidation Code = "validation"

	// CodeInternal indicates internal system error
	CodeInternal Code = "internal"

	// CodeInsufficientResource indicates an action could not pay its MP cost
	CodeInsufficientResource Code = "insufficient_resource"

	// CodeInvalidModifier indicates a modifier source was authored with a broken cost or bonus
	CodeInvalidModifier Code = "invalid_modifier"

	// CodeTargetUnresolved indicates no live presence exists for the chosen target
	CodeTargetUnresolved Code = "target_unresolved"

	// CodeSyncTransport indicates a publish, subscribe or append against the realtime backend failed
	CodeSyncTransport Code = "sync_transport"

	// CodeSessionClosed indicates the connection was left and cannot be used again
	CodeSessionClosed Code = "session_closed"
)

// Error represents an application error with code and metadata
type Error struct {
	Code    Code
	Message string
	Cause   error
	Meta    map[string]any
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithMeta adds metadata to the error (builder pattern)
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

// New creates a new error with the given code and message
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new error with formatted message
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error, keeping the code of a wrapped *Error
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return &Error{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
			Meta:    copyMeta(appErr.Meta),
		}
	}

	return &Error{
		Code:    CodeUnknown,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific code
func WrapWithCode(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}

	wrapped := Wrap(err, message)
	wrapped.Code = code
	return wrapped
}

// NotFoundf creates a formatted not found error
func NotFoundf(format string, args ...any) *Error {
	return Newf(CodeNotFound, format, args...)
}

// InvalidArgument creates an invalid argument error
func InvalidArgument(message string) *Error {
	return New(CodeInvalidArgument, message)
}

// Validationf creates a formatted validation error
func Validationf(format string, args ...any) *Error {
	return Newf(CodeValidation, format, args...)
}

// InsufficientResource reports that resource (e.g. "mp") could not cover the cost
func InsufficientResource(resource string, required, available int) *Error {
	return Newf(CodeInsufficientResource, "insufficient %s: need %d, have %d", resource, required, available).
		WithMeta("resource", resource).
		WithMeta("required", required).
		WithMeta("available", available)
}

// InvalidModifierf creates a formatted invalid modifier configuration error
func InvalidModifierf(format string, args ...any) *Error {
	return Newf(CodeInvalidModifier, format, args...)
}

// TargetUnresolved reports that target has no live presence in the session
func TargetUnresolved(target string) *Error {
	return Newf(CodeTargetUnresolved, "target not found: %s", target).WithMeta("target", target)
}

// SyncTransport wraps a realtime backend failure for the named operation
func SyncTransport(err error, op string) *Error {
	return WrapWithCode(err, CodeSyncTransport, op).WithMeta("op", op)
}

// Is checks if the error is of a specific code
func Is(err error, code Code) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return Is(err, CodeNotFound)
}

// IsInsufficientResource checks if the error is an insufficient resource error
func IsInsufficientResource(err error) bool {
	return Is(err, CodeInsufficientResource)
}

// IsTargetUnresolved checks if the error is a target unresolved error
func IsTargetUnresolved(err error) bool {
	return Is(err, CodeTargetUnresolved)
}

// IsSyncTransport checks if the error is a transport error
func IsSyncTransport(err error) bool {
	return Is(err, CodeSyncTransport)
}

// GetCode returns the error code
func GetCode(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetMeta returns the error metadata
func GetMeta(err error) map[string]any {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Meta
	}
	return nil
}

func copyMeta(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}

	copied := make(map[string]any, len(meta))
	for k, v := range meta {
		copied[k] = v
	}
	return copied
}
