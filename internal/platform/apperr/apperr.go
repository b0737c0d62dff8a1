// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for News Wizard.

It provides a rich error type that bridges the gap between low-level provider or
storage errors and the text replies shown to a chat user.

Architecture:

  - AppError: A struct containing a machine-readable Code and a user-facing message.
  - Taxonomy: Provider, Storage, Validation and Transition failures each get a code.
  - Mapping: Explicit mapping from AppError to HTTP status for the health endpoints.

Every error that leaves the auth core should be an [AppError] so the dispatcher can
decide what to surface and what to only log.
*/
package apperr

import (
	"errors"
	"net/http"
)

// # Error Codes

const (
	CodeProvider          = "PROVIDER_ERROR"
	CodeStorage           = "STORAGE_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeInternal          = "INTERNAL_ERROR"
)

// AppError is the canonical error type for News Wizard.
//
// # Security
//
// The Cause field is for server-side logging only. Message is what a user may see.
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "PROVIDER_ERROR").
	Code string `json:"code"`
	// Message is a human-readable description safe to show to the user.
	Message string `json:"error"`
	// Cause is the underlying error.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR values.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the name of the setting or input that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the user-facing message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// HTTPStatus maps the error code onto a response status for the HTTP surface.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeInvalidTransition:
		return http.StatusConflict
	case CodeProvider, CodeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// # Handshake Errors

// Provider wraps a failure returned by the external account provider.
// The provider's own text is kept verbatim because it is shown to the user.
func Provider(cause error) *AppError {
	message := "provider request failed"
	if cause != nil {
		message = cause.Error()
	}
	return &AppError{
		Code:    CodeProvider,
		Message: message,
		Cause:   cause,
	}
}

// Storage wraps a durable storage I/O failure for the given operation.
func Storage(operation string, cause error) *AppError {
	return &AppError{
		Code:    CodeStorage,
		Message: "session storage failed to " + operation,
		Cause:   cause,
	}
}

// NotFound creates a NOT_FOUND [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Session") // Returns "Session not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: resource + " not found",
	}
}

// InvalidTransition reports a phase change that the transition table forbids.
func InvalidTransition(from, to string) *AppError {
	return &AppError{
		Code:    CodeInvalidTransition,
		Message: "invalid handshake transition from " + from + " to " + to,
	}
}

// ValidationError creates a VALIDATION_ERROR [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: msg,
		Details: details,
	}
}

// Internal wraps an unexpected error. The cause is stored for logging only.
func Internal(cause error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "An unexpected error occurred",
		Cause:   cause,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// HasCode reports whether err carries an [*AppError] with the given code.
func HasCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
