// Package apperr defines the typed error taxonomy shared by the marketplace
// core. Every guard violation surfaces one of these codes synchronously;
// none are retried internally.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error code.
type Code string

const (
	CodeValidation   Code = "validation_error"
	CodeNotFound     Code = "not_found"
	CodeForbidden    Code = "forbidden"
	CodeConflict     Code = "conflict"
	CodeInvalidState Code = "invalid_state"
)

// Error pairs a stable code with a human-readable message.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is allows errors.Is matching against another *Error by code.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// New builds an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *Error {
	return Newf(CodeNotFound, "%s %s not found", resource, id)
}

// Forbidden reports that the actor lacks the required relationship to the
// resource. Distinct from unauthenticated, which is handled upstream.
func Forbidden(message string) *Error {
	return New(CodeForbidden, message)
}

// Conflict reports a uniqueness violation, e.g. a duplicate application.
func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

// InvalidState reports a guard precondition failure on the resource's current
// lifecycle state. Expected under normal concurrent use.
func InvalidState(message string) *Error {
	return New(CodeInvalidState, message)
}

// Validation reports malformed input the caller must fix and resubmit.
func Validation(message string) *Error {
	return New(CodeValidation, message)
}

// CodeOf extracts the code from err, or empty string if err is not typed.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
