package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents different types of errors
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest          ErrorCode = "BAD_REQUEST"
	ErrCodeMethodNotAllowed    ErrorCode = "METHOD_NOT_ALLOWED"
	ErrCodeRequestTooLarge     ErrorCode = "REQUEST_TOO_LARGE"
	ErrCodeTokenExpired        ErrorCode = "TOKEN_EXPIRED"
	ErrCodeTokenExchangeFailed ErrorCode = "TOKEN_EXCHANGE_FAILED"

	// Server errors (5xx)
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeConfig   ErrorCode = "CONFIG_ERROR"

	// External service errors
	ErrCodeVendor        ErrorCode = "VENDOR_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Timestamp  time.Time              `json:"timestamp"`
	RequestID  string                 `json:"request_id,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode lets go-kit and the HTTP layer pick the response status.
func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails adds additional details
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithRequestID adds a request ID
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// WithMetadata adds metadata
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Timestamp:  time.Now(),
		HTTPStatus: getHTTPStatusForCode(code),
	}
}

// Newf is NewAppError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return NewAppError(code, fmt.Sprintf(format, args...))
}

// getHTTPStatusForCode returns the appropriate HTTP status code for an error code
func getHTTPStatusForCode(code ErrorCode) int {
	switch code {
	case ErrCodeBadRequest, ErrCodeTokenExchangeFailed:
		return http.StatusBadRequest
	case ErrCodeTokenExpired:
		return http.StatusUnauthorized
	case ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrCodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// WrapError wraps an existing error with additional context
func WrapError(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the original code if not specified
	if appErr := GetAppError(err); appErr != nil && code == "" {
		code = appErr.Code
	}

	return &AppError{
		Code:       code,
		Message:    message,
		Cause:      err,
		Timestamp:  time.Now(),
		HTTPStatus: getHTTPStatusForCode(code),
	}
}

// GetAppError extracts an AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}

// ErrorResponse is the JSON body written for every failed request.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Status    string                 `json:"status"`
	ErrorType ErrorCode              `json:"errorType"`
	Details   string                 `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"requestId,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ToErrorResponse converts an AppError to an ErrorResponse
func (e *AppError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:     e.Message,
		Status:    "error",
		ErrorType: e.Code,
		Details:   e.Details,
		Timestamp: e.Timestamp,
		RequestID: e.RequestID,
		Metadata:  e.Metadata,
	}
}
