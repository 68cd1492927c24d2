// Package errors provides coded domain errors for the Tug API.
//
// Services return typed errors; handlers and clients branch on the code:
//
//	if errors.Is(err, errors.ErrWrongPassword) {
//	    // re-prompt for the password
//	}
//
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    status := domainErr.HTTPStatus()
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Is re-exports errors.Is for callers that import this package as errors.
var Is = errors.Is

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyExists      Code = "ALREADY_EXISTS"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeValidation         Code = "VALIDATION"
	CodeConflict           Code = "CONFLICT"
	CodeInternal           Code = "INTERNAL"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"

	// Re-authentication failures. Clients key their messages off these.
	CodeWrongPassword   Code = "WRONG_PASSWORD"
	CodeUserMismatch    Code = "USER_MISMATCH"
	CodeUserNotFound    Code = "USER_NOT_FOUND"
	CodeTooManyRequests Code = "TOO_MANY_REQUESTS"

	// CodeUpstream marks failures of a third-party service (Strava).
	CodeUpstream Code = "UPSTREAM"
	// CodeNotConnected is returned when an integration has no linked account.
	CodeNotConnected Code = "NOT_CONNECTED"
	// CodeOAuthRedirect marks a failed authorization redirect (declined
	// consent, state mismatch, unregistered redirect URI).
	CodeOAuthRedirect Code = "OAUTH_REDIRECT"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict, CodeNotConnected:
		return http.StatusConflict
	case CodeUnauthorized, CodeInvalidCredentials, CodeWrongPassword:
		return http.StatusUnauthorized
	case CodeForbidden, CodeUserMismatch:
		return http.StatusForbidden
	case CodeValidation, CodeOAuthRedirect:
		return http.StatusBadRequest
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// CodeFromStatus maps an HTTP status back to the closest code.
// Used by the REST client when the response body carries no code.
func CodeFromStatus(status int) Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	case http.StatusTooManyRequests:
		return CodeTooManyRequests
	case http.StatusBadGateway:
		return CodeUpstream
	default:
		return CodeInternal
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause returns a new error wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: cause}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists      = &Error{Code: CodeAlreadyExists, Message: "already exists"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrWrongPassword      = &Error{Code: CodeWrongPassword, Message: "wrong password"}
	ErrUserMismatch       = &Error{Code: CodeUserMismatch, Message: "credentials belong to a different user"}
	ErrUserNotFound       = &Error{Code: CodeUserNotFound, Message: "user not found"}
	ErrTooManyRequests    = &Error{Code: CodeTooManyRequests, Message: "too many requests"}
	ErrUpstream           = &Error{Code: CodeUpstream, Message: "upstream service error"}
	ErrNotConnected       = &Error{Code: CodeNotConnected, Message: "not connected"}
	ErrOAuthRedirect      = &Error{Code: CodeOAuthRedirect, Message: "authorization redirect failed"}
)

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists creates an already exists error.
func AlreadyExists(msg string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: msg}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *Error {
	return &Error{Code: CodeUnauthorized, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Upstream wraps a third-party failure.
func Upstream(err error, msg string) *Error {
	return &Error{Code: CodeUpstream, Message: msg, cause: err}
}

// NewCoded creates an error with an explicit code, as decoded from an API response.
func NewCoded(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
