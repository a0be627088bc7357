package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeAPI          ErrorType = "api"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeAuth         ErrorType = "auth"
	ErrorTypeAccessDenied ErrorType = "access_denied"
	ErrorTypeParsing      ErrorType = "parsing"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeServerError  ErrorType = "server_error"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// VK API error codes that change how a failure is classified.
// https://dev.vk.com/reference/errors
const (
	CodeUnknown          = 1
	CodeAuthFailed       = 5
	CodeTooManyRequests  = 6
	CodePermissionDenied = 7
	CodeFloodControl     = 9
	CodeInternal         = 10
	CodeAccessDenied     = 15
	CodeUserDeleted      = 18
	CodeProfilePrivate   = 30
	CodeInvalidUserID    = 113
	CodeAlbumAccess      = 200
)

// Error represents an API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Method  string
}

func (e *Error) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("%s error on %s (code %d): %s", e.Type, e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New creates a typed error
func New(errorType ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errorType,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	}
}

// FromAPICode maps a VK error code onto an error type
func FromAPICode(code int) ErrorType {
	switch code {
	case CodeAuthFailed:
		return ErrorTypeAuth
	case CodeTooManyRequests, CodeFloodControl:
		return ErrorTypeRateLimit
	case CodePermissionDenied, CodeAccessDenied, CodeProfilePrivate, CodeAlbumAccess:
		return ErrorTypeAccessDenied
	case CodeUserDeleted, CodeInvalidUserID:
		return ErrorTypeNotFound
	case CodeUnknown, CodeInternal:
		return ErrorTypeServerError
	default:
		return ErrorTypeAPI
	}
}

// TypeOf returns the type of a typed error anywhere in the chain, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if stderrors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	case ErrorTypeAuth, ErrorTypeAccessDenied, ErrorTypeNotFound, ErrorTypeParsing, ErrorTypeAPI:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429:
		return true
	case 500, 502, 503, 504:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
