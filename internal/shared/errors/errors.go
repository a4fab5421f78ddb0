package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal error")
	ErrValidation   = errors.New("validation error")

	// ErrIndexUnavailable means the similarity index failed to build at
	// startup. Fatal to the matching component, surfaced at process start.
	ErrIndexUnavailable = errors.New("similarity index unavailable")

	// ErrCollaborator marks a transient failure of an external dependency
	// (similarity search, text generation, forms, email). Absorbed by the
	// calling component, never propagated to HTTP callers.
	ErrCollaborator = errors.New("collaborator error")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	HTTPStatus int               `json:"-"`
	Details    map[string]string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a not found error
func NotFound(resource string, id string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		Code:       "NOT_FOUND",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]string{"resource": resource, "id": id},
	}
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Message:    message,
		Code:       "BAD_REQUEST",
		HTTPStatus: http.StatusBadRequest,
	}
}

// Validation creates a validation error with field details. Used by the
// risk engine when a profile field carries the wrong type; the offending
// field is named in details.
func Validation(message string, details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Message:    message,
		Code:       "VALIDATION_ERROR",
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// ValidationField creates a validation error for a single offending field.
func ValidationField(field, problem string) *AppError {
	return Validation(
		fmt.Sprintf("invalid value for field %q: %s", field, problem),
		map[string]string{"field": field},
	)
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// Conflict creates a conflict error
func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Message:    message,
		Code:       "CONFLICT",
		HTTPStatus: http.StatusConflict,
	}
}

// Internal creates an internal error
func Internal(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "internal server error",
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Collaborator wraps a transient external-dependency failure.
func Collaborator(name string, err error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %s: %v", ErrCollaborator, name, err),
		Message:    fmt.Sprintf("%s unavailable", name),
		Code:       "COLLABORATOR_ERROR",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// IndexUnavailable wraps an index-build failure.
func IndexUnavailable(err error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %v", ErrIndexUnavailable, err),
		Message:    "resource matching index unavailable",
		Code:       "INDEX_UNAVAILABLE",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) *AppError {
	if appErr, ok := err.(*AppError); ok {
		appErr.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return appErr
	}
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "INTERNAL_ERROR",
		HTTPStatus: http.StatusInternalServerError,
	}
}
