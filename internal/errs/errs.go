// Package errs defines the error taxonomy shared by services and handlers.
// Every user-visible failure carries a stable machine-readable code.
package errs

import (
	"errors"
	"fmt"
)

const (
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION_ERROR"
	CodeExternal   = "EXTERNAL_SERVICE_ERROR"
	CodeConflict   = "CONFLICT"
	CodeDB         = "DB_ERROR"
)

type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

func External(err error, format string, args ...any) *Error {
	return &Error{Code: CodeExternal, Message: fmt.Sprintf(format, args...), Err: err}
}

func DB(err error, format string, args ...any) *Error {
	return &Error{Code: CodeDB, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the stable code of err, or DB_ERROR for untyped errors so
// persistence failures never leak raw driver messages as codes.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeDB
}

func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

func Is(err error, code string) bool {
	return CodeOf(err) == code
}
