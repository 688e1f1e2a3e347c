package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode represents a unique error code
type ErrorCode string

const (
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"

	// Account lifecycle errors
	ErrCodeAccountNotFound     ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrCodeAccountNotActivated ErrorCode = "ACCOUNT_NOT_ACTIVATED"
	ErrCodeActivationInvalid   ErrorCode = "ACTIVATION_INVALID"
	ErrCodeResetInvalid        ErrorCode = "RESET_INVALID"

	// Authentication errors
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"

	// Configuration errors
	ErrCodeConfigurationMissing ErrorCode = "CONFIGURATION_MISSING"
)

// FieldError is a single validation violation on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error represents a structured error with code, message and, for validation
// failures, the complete list of field violations.
type Error struct {
	Code    ErrorCode    // Unique error code
	Message string       // Human-readable error message
	Fields  []FieldError // Populated for validation failures
	Err     error        // Wrapped underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		parts := make([]string, 0, len(e.Fields))
		for _, f := range e.Fields {
			parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
		}
		return fmt.Sprintf("[%s] %s (%s)", e.Code, e.Message, strings.Join(parts, "; "))
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *Error) HTTPStatusCode() int {
	return MapErrorCodeToHTTPStatus(e.Code)
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with code and message
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation creates a validation failure carrying every field violation.
func Validation(fields ...FieldError) *Error {
	return &Error{
		Code:    ErrCodeValidationFailed,
		Message: "validation failed",
		Fields:  fields,
	}
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
// Returns ErrCodeInternal if the error is not a structured Error.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// GetFields extracts field violations from an error, nil if there are none.
func GetFields(err error) []FieldError {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}

// MapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func MapErrorCodeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeActivationInvalid, ErrCodeResetInvalid:
		return http.StatusBadRequest

	case ErrCodeInvalidCredentials:
		return http.StatusUnauthorized

	case ErrCodeAccountNotActivated:
		return http.StatusForbidden

	case ErrCodeNotFound, ErrCodeAccountNotFound:
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}
