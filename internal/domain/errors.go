package domain

import (
	"errors"
	"net/http"
)

// Error codes for application errors.
const (
	CodeNotFound     = 1
	CodeConflict     = 2
	CodeValidation   = 3
	CodeInternal     = 4
	CodeUnauthorized = 5
	CodeForbidden    = 6
	CodeUnavailable  = 7
)

// AppError represents a categorized error with a code, a user-facing message,
// and an optional wrapped cause.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error for use with errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined errors.
//
// Use the Is* helpers to test an error's category: they compare codes via
// errors.As, so they also match freshly built errors from NewAppError and
// wrapped errors, whereas errors.Is only matches these exact sentinels.
var (
	ErrNotFound     = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrConflict     = &AppError{Code: CodeConflict, Message: "conflict"}
	ErrValidation   = &AppError{Code: CodeValidation, Message: "validation error"}
	ErrInternal     = &AppError{Code: CodeInternal, Message: "internal error"}
	ErrUnauthorized = &AppError{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden    = &AppError{Code: CodeForbidden, Message: "forbidden"}
	ErrUnavailable  = &AppError{Code: CodeUnavailable, Message: "service unavailable"}
)

// NewAppError creates a new AppError with the given code, message, and wrapped error.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsNotFound reports whether err is or wraps an AppError with CodeNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsConflict reports whether err is or wraps an AppError with CodeConflict.
func IsConflict(err error) bool {
	return hasCode(err, CodeConflict)
}

// IsValidation reports whether err is or wraps an AppError with CodeValidation.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsInternal reports whether err is or wraps an AppError with CodeInternal.
func IsInternal(err error) bool {
	return hasCode(err, CodeInternal)
}

// IsUnauthorized reports whether err is or wraps an AppError with CodeUnauthorized.
func IsUnauthorized(err error) bool {
	return hasCode(err, CodeUnauthorized)
}

// IsForbidden reports whether err is or wraps an AppError with CodeForbidden.
func IsForbidden(err error) bool {
	return hasCode(err, CodeForbidden)
}

// IsUnavailable reports whether err is or wraps an AppError with CodeUnavailable.
func IsUnavailable(err error) bool {
	return hasCode(err, CodeUnavailable)
}

func hasCode(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// HTTPStatusCode maps an error to an HTTP status code.
// Errors that are not an *AppError map to http.StatusInternalServerError.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if err != nil && errors.As(err, &appErr) {
		switch appErr.Code {
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict:
			return http.StatusConflict
		case CodeValidation:
			return http.StatusBadRequest
		case CodeUnauthorized:
			return http.StatusUnauthorized
		case CodeForbidden:
			return http.StatusForbidden
		case CodeUnavailable:
			return http.StatusBadGateway
		case CodeInternal:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// UserMessage extracts a message that is safe to show to an end user.
//
// Messages of internal errors are never shown. For every other category the
// AppError message is returned when it is non-empty; otherwise fallback.
func UserMessage(err error, fallback string) string {
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		return fieldErr.Message()
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" && appErr.Code != CodeInternal {
		return appErr.Message
	}
	return fallback
}

// FieldError reports the first form field that failed validation.
type FieldError struct {
	Field  string
	Label  string
	Reason string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

// Message returns the user-facing text naming the offending field.
func (e *FieldError) Message() string {
	label := e.Label
	if label == "" {
		label = e.Field
	}
	return label + ": " + e.Reason
}

// Unwrap lets IsValidation recognise a FieldError.
func (e *FieldError) Unwrap() error {
	return ErrValidation
}
