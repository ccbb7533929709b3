// Package errors classifies failures against the taxonomy in spec §7:
// protocol errors (bad request shape, unknown registry id), user-code
// errors (a mapper or reducer returned an error), and reconciliation conflicts are
// all coded AppErrors a worker handler can translate straight into an
// HTTP status. Transport errors never reach this package — they are
// whatever the coordinator's HTTP client returns when a request fails.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error codes used across the engine's HTTP surface.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeInternal        = "INTERNAL"
	CodeConflict        = "CONFLICT"
)

// AppError is a coded error with an optional wrapped cause.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func NotFound(msg string, err error) *AppError {
	if msg == "" {
		msg = "resource not found"
	}
	return New(CodeNotFound, msg, err)
}

// InvalidArgument models spec §7's protocol error: a missing request
// field or an id the registry does not recognize.
func InvalidArgument(msg string, err error) *AppError {
	if msg == "" {
		msg = "invalid argument"
	}
	return New(CodeInvalidArgument, msg, err)
}

// Internal models spec §7's user-code error: a mapper or reducer raised.
func Internal(msg string, err error) *AppError {
	if msg == "" {
		msg = "internal server error"
	}
	return New(CodeInternal, msg, err)
}

// Conflict models an unreconciled duplicate key under reconcile-or-reject
// mode (spec §9's recommended default for the shuffle-collision wart).
func Conflict(msg string, err error) *AppError {
	if msg == "" {
		msg = "conflict"
	}
	return New(CodeConflict, msg, err)
}

// HTTPStatus returns the HTTP status code for a given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case CodeNotFound:
			return http.StatusNotFound
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeConflict:
			return http.StatusConflict
		case CodeInternal:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// Wrap is a utility to wrap an error with a message.
func Wrap(err error, msg string) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
