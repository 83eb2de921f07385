package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeForbidden   ErrorType = "forbidden"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeCheckpoint  ErrorType = "checkpoint"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error is a typed failure raised while fetching or persisting crawl state.
// Code carries the HTTP status when one was received (0 otherwise).
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	URL     string
	Err     error
}

func (e *Error) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s error (code %d) for %s: %s", e.Type, e.Code, e.URL, e.Message)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(errorType ErrorType, url, message string) *Error {
	return &Error{Type: errorType, URL: url, Message: message}
}

// Wrap creates a typed error around a cause
func Wrap(errorType ErrorType, url string, err error) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{Type: errorType, URL: url, Message: msg, Err: err}
}

// FromStatus maps a non-200 HTTP status to a typed error. It returns nil for 200.
func FromStatus(url string, statusCode int) *Error {
	if statusCode == http.StatusOK {
		return nil
	}

	var errorType ErrorType
	switch {
	case statusCode == http.StatusTooManyRequests:
		errorType = ErrorTypeRateLimit
	case statusCode == http.StatusNotFound || statusCode == http.StatusGone:
		errorType = ErrorTypeNotFound
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		errorType = ErrorTypeForbidden
	case statusCode >= 500:
		errorType = ErrorTypeServerError
	default:
		errorType = ErrorTypeUnknown
	}

	return &Error{
		Type:    errorType,
		Message: fmt.Sprintf("unexpected status code: %d", statusCode),
		Code:    statusCode,
		URL:     url,
	}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown if it is not typed
func TypeOf(err error) ErrorType {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given type
func Is(err error, errorType ErrorType) bool {
	var typed *Error
	return errors.As(err, &typed) && typed.Type == errorType
}
