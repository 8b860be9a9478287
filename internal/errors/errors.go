package errors

import "fmt"

// ErrorCode represents a dashboard error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE" // 503
	ErrInternal          ErrorCode = "INTERNAL"           // 500
)

// UGCError represents a structured error with code, status, and details.
type UGCError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *UGCError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *UGCError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *UGCError {
	return &UGCError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidField creates a 400 error naming the offending field.
func NewInvalidField(field, msg string) *UGCError {
	return &UGCError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: fmt.Sprintf("%s: %s", field, msg),
		Details: map[string]any{"field": field},
	}
}

// NewNotFound creates a 404 error for an unknown resource.
func NewNotFound(identifier string) *UGCError {
	return &UGCError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewSourceUnavailable creates a 503 error for a failed fetch from the backing store.
// The source name is kept in Details; the cause is reachable through errors.Unwrap.
func NewSourceUnavailable(source string, cause error) *UGCError {
	msg := "data source unavailable"
	if cause != nil {
		msg = fmt.Sprintf("data source unavailable: %v", cause)
	}
	return &UGCError{
		Code:    ErrSourceUnavailable,
		Status:  503,
		Message: msg,
		Details: map[string]any{"source": source},
		cause:   cause,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *UGCError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &UGCError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is a UGCError with the given code.
func Is(err error, code ErrorCode) bool {
	if uErr, ok := err.(*UGCError); ok {
		return uErr.Code == code
	}
	return false
}
