// Package errors provides the unified error taxonomy used across the
// directory service: a single structured type carrying a stable code,
// a human message and the HTTP status the transport layer should use.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the small closed set of error kinds the core reasons about.
type Kind string

const (
	KindInvalidInput  Kind = "invalid_input"
	KindNotFound      Kind = "not_found"
	KindUnauthorized  Kind = "unauthorized"
	KindForbidden     Kind = "forbidden"
	KindConflict      Kind = "conflict"
	KindDatabase      Kind = "database"
	KindUpstream      Kind = "upstream"
	KindPaywall       Kind = "paywall"
)

// ServiceError is the structured error type returned by every mutator
// and read path in the core.
type ServiceError struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithDetails attaches additional structured context to the error.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func New(kind Kind, message string, status int) *ServiceError {
	return &ServiceError{Kind: kind, Message: message, HTTPStatus: status}
}

func Wrap(kind Kind, message string, status int, err error) *ServiceError {
	return &ServiceError{Kind: kind, Message: message, HTTPStatus: status, Err: err}
}

func InvalidInput(field, reason string) *ServiceError {
	return New(KindInvalidInput, "invalid input", http.StatusBadRequest).
		WithDetails("field", field).WithDetails("reason", reason)
}

func NotFound(resource, id string) *ServiceError {
	return New(KindNotFound, "resource not found", http.StatusNotFound).
		WithDetails("resource", resource).WithDetails("id", id)
}

func Unauthorized(message string) *ServiceError {
	return New(KindUnauthorized, message, http.StatusUnauthorized)
}

func Forbidden(message string) *ServiceError {
	return New(KindForbidden, message, http.StatusForbidden)
}

func Conflict(message string) *ServiceError {
	return New(KindConflict, message, http.StatusConflict)
}

func Database(operation string, err error) *ServiceError {
	return Wrap(KindDatabase, "database operation failed", http.StatusInternalServerError, err).
		WithDetails("operation", operation)
}

func Upstream(operation string, err error) *ServiceError {
	return Wrap(KindUpstream, "upstream call failed", http.StatusBadGateway, err).
		WithDetails("operation", operation)
}

func Paywall(description string) *ServiceError {
	return New(KindPaywall, "payment required before this action can complete", http.StatusPaymentRequired).
		WithDetails("invoice", description)
}

// As extracts a *ServiceError from an error chain.
func As(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// GetHTTPStatus returns the HTTP status code the transport layer should
// respond with for the given error.
func GetHTTPStatus(err error) int {
	if svcErr, ok := As(err); ok {
		return svcErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// KindOf returns the Kind of err, or "" if err is not a *ServiceError.
func KindOf(err error) Kind {
	if svcErr, ok := As(err); ok {
		return svcErr.Kind
	}
	return ""
}
