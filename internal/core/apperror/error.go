// Package apperror provides structured error handling for API responses.
// Every error that reaches a handler should be an AppError or wrap one.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes rendered in the "code" field of error bodies.
const (
	CodeInternal       = "INTERNAL_ERROR"
	CodeDeletionFailed = "DELETION_FAILED"

	CodeValidation      = "VALIDATION_ERROR"
	CodeTenantRequired  = "TENANT_REQUIRED"
	CodeDeletionBlocked = "DELETION_BLOCKED"

	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
)

// AppError is an error with a stable code and the HTTP status it maps to.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	HTTPStatus int   `json:"-"`
	Err        error `json:"-"` // never rendered
}

// New creates an AppError. Prefer the typed constructors below.
func New(code string, status int, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail sets details[key] and returns e.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// WithCause records the underlying error. It is logged, not returned to clients.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// NewValidation reports a malformed request (400).
func NewValidation(message string) *AppError {
	return New(CodeValidation, http.StatusBadRequest, message)
}

// NewTenantRequired is returned when a request carries no company context (400).
func NewTenantRequired() *AppError {
	return New(CodeTenantRequired, http.StatusBadRequest, "company context is required")
}

// NewDeletionBlocked is returned when a deletion plan breaks a hard dependency (400).
// No rows have been changed when this error is returned.
func NewDeletionBlocked(message string) *AppError {
	return New(CodeDeletionBlocked, http.StatusBadRequest, message)
}

// NewDeletionFailed wraps an unexpected failure of a deletion transaction (500).
// The cause message is passed through; the endpoint is admin only.
func NewDeletionFailed(err error) *AppError {
	return New(CodeDeletionFailed, http.StatusInternalServerError, err.Error()).WithCause(err)
}

// NewInternal hides err behind a generic message (500).
func NewInternal(err error) *AppError {
	return New(CodeInternal, http.StatusInternalServerError, "Internal server error").WithCause(err)
}

// NewUnauthorized (401).
func NewUnauthorized(message string) *AppError {
	return New(CodeUnauthorized, http.StatusUnauthorized, message)
}

// NewForbidden (403).
func NewForbidden(message string) *AppError {
	return New(CodeForbidden, http.StatusForbidden, message)
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns the status for err, 500 for anything that is not an AppError.
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
