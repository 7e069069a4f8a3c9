// Package apierr defines the error taxonomy returned by the API and renders it as JSON.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Code represents a stable error code for programmatic handling.
type Code string

const (
	CodeInvalid          Code = "invalid"
	CodeUnauthorized     Code = "unauthorized"
	CodeNotFound         Code = "not_found"
	CodeMethodNotAllowed Code = "method_not_allowed"
	CodeInternal         Code = "internal"
)

// Fields maps a request field to every problem found with it.
type Fields map[string][]string

// Error is a structured error carrying a code, a message and optional field errors.
type Error struct {
	Code    Code
	Message string
	Fields  Fields
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for the error.
func (e *Error) Status() int {
	switch e.Code {
	case CodeInvalid:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new Error with code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap wraps an existing error with code and message.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Invalid creates a validation error listing every offending field.
func Invalid(fields Fields) *Error {
	return &Error{Code: CodeInvalid, Message: "Validation failed", Fields: fields}
}

// NotFound creates a not-found error for the named resource.
func NotFound(resource string) *Error {
	return New(CodeNotFound, resource+" not found")
}

// Unauthorized creates an authentication error.
func Unauthorized(message string) *Error {
	return New(CodeUnauthorized, message)
}

// Internal wraps an unexpected error. The cause is logged, never rendered.
func Internal(err error, message string) *Error {
	return Wrap(err, CodeInternal, message)
}

// IsCode checks if an error has the provided code (through unwrapping).
func IsCode(err error, code Code) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// Response is the JSON body written for every error.
type Response struct {
	Error  string `json:"error"`
	Code   Code   `json:"code"`
	Fields Fields `json:"fields,omitempty"`
}

// Write renders err as JSON and aborts the gin chain.
// Errors that are not *Error are treated as internal.
func Write(c *gin.Context, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		ae = Internal(err, "Internal server error")
	}

	if ae.Code == CodeInternal {
		log.Error().Err(ae.Err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg(ae.Message)
	}

	c.AbortWithStatusJSON(ae.Status(), Response{
		Error:  ae.Message,
		Code:   ae.Code,
		Fields: ae.Fields,
	})
}
