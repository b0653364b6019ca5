// Package errors defines the error kinds shared by the indexing and search
// packages and maps them onto HTTP status codes for the service layer.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConfiguration marks unrecoverable setup mistakes: unresolved pipeline
	// stages, duplicate or unknown fields. Never retried.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks a rejected input such as a document with a missing or
	// duplicate reference, or an unbounded fuzzy expansion.
	ErrValidation = errors.New("validation error")
	// ErrParse marks a malformed query string.
	ErrParse    = errors.New("parse error")
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
	ErrTimeout  = errors.New("operation timed out")
	ErrCorrupt  = errors.New("corrupt index data")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Configuration builds an ErrConfiguration AppError.
func Configuration(format string, args ...any) *AppError {
	return Newf(ErrConfiguration, http.StatusInternalServerError, format, args...)
}

// Validation builds an ErrValidation AppError.
func Validation(format string, args ...any) *AppError {
	return Newf(ErrValidation, http.StatusBadRequest, format, args...)
}

func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }

func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

func IsParse(err error) bool { return errors.Is(err, ErrParse) }

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
