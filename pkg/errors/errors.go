package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of application errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeInternal   ErrorType = "internal"
)

// Code identifies the exact rule that failed. Codes are part of the wire
// contract: clients branch on them to build user-facing messages.
type Code string

const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeFutureDate         Code = "FUTURE_DATE"
	CodeOutOfRange         Code = "OUT_OF_RANGE"
	CodeAlreadyRecorded    Code = "ALREADY_RECORDED"
	CodeGapInSequence      Code = "GAP_IN_SEQUENCE"
	CodeInvalidRange       Code = "INVALID_RANGE"
	CodePastStart          Code = "PAST_START"
	CodeLimitExceedsPeriod Code = "LIMIT_EXCEEDS_PERIOD"
	CodeStorageFailure     Code = "STORAGE_FAILURE"
	CodeValidation         Code = "VALIDATION"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Internal   error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Is matches AppErrors by code so callers can use errors.Is with sentinels
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if errors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

// AsAppError extracts an *AppError from an error chain, or wraps err as an
// internal error when it carries no taxonomy
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       CodeStorageFailure,
		Message:    "internal error",
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// NewValidationError creates a rule-violation error with its taxonomy code
func NewValidationError(code Code, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       CodeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewStorageError wraps a persistence I/O failure
func NewStorageError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeStorage,
		Code:       CodeStorageFailure,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, internal error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       CodeStorageFailure,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   internal,
	}
}

// ErrorResponse represents the JSON error response
type ErrorResponse struct {
	Error struct {
		Type      ErrorType              `json:"type"`
		Code      Code                   `json:"code"`
		Message   string                 `json:"message"`
		Details   map[string]interface{} `json:"details,omitempty"`
		RequestID string                 `json:"request_id,omitempty"`
		Timestamp string                 `json:"timestamp"`
	} `json:"error"`
}
