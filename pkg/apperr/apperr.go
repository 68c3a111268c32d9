// Package apperr defines the application error type shared by the relay and
// the REST services. Every fault that crosses a component boundary is wrapped
// in an AppError so callers can branch on the code instead of string matching.
package apperr

import (
	"errors"
	"fmt"
)

type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func InvalidArg(msg string) *AppError {
	return New(CodeInvalidArgument, msg)
}

func Unauthenticated(msg string) *AppError {
	return New(CodeUnauthenticated, msg)
}

func Forbidden(msg string) *AppError {
	return New(CodePermissionDenied, msg)
}

func Unavailable(msg string, cause error) *AppError {
	return Wrap(CodeUnavailable, msg, cause)
}

// CodeOf extracts the Code from err, walking the wrap chain. Errors that are
// not AppErrors report CodeUnknown.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeUnknown
}
