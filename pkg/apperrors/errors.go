package apperrors

import (
	"errors"
	"net/http"
)

// Sentinel errors for the failure taxonomy of the order and reporting core.
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidState      = errors.New("invalid state")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("resource conflict")
	ErrInternal          = errors.New("internal server error")
)

// AppError is a structured application error carrying the HTTP status the
// transport layer should map it to.
type AppError struct {
	Err        error
	StatusCode int
	Message    string
	Retryable  bool
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError with the given parameters
func NewAppError(err error, message string, statusCode int, retryable bool) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
	}
}

// IsRetryable checks if the error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError

	if errors.As(err, &appErr) {
		return appErr.Retryable
	}

	return false
}

// StatusCode returns the HTTP status for an error, defaulting to 500 for
// anything that is not an AppError.
func StatusCode(err error) int {
	var appErr *AppError

	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	return http.StatusInternalServerError
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrNotFound, message, http.StatusNotFound, false)
}

// NewInvalidInputError creates a validation error
func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusBadRequest, false)
}

// NewInvalidStateError creates an error for an operation forbidden in the
// current state, such as cancelling a delivered order.
func NewInvalidStateError(message string) *AppError {
	return NewAppError(ErrInvalidState, message, http.StatusConflict, false)
}

// NewInsufficientStockError creates an error for an order line that asks for
// more units than the product has in stock.
func NewInsufficientStockError(message string) *AppError {
	return NewAppError(ErrInsufficientStock, message, http.StatusConflict, false)
}

// NewConflictError creates a conflict error; callers may retry with a fresh
// order number.
func NewConflictError(message string) *AppError {
	return NewAppError(ErrConflict, message, http.StatusConflict, true)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrInternal, message, http.StatusInternalServerError, true)
}
