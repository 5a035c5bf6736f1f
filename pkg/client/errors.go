package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrBaseURLNotSet is returned when a URL is built before a base URL was configured.
	ErrBaseURLNotSet = errors.New("base url is not set")

	// ErrMissingID is returned when a PUT payload carries no usable id field.
	ErrMissingID = errors.New("payload has no id")

	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of request errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassConfiguration represents errors caused by the client setup or the
	// request arguments. They are never retried.
	ErrorClassConfiguration ErrorClass = "configuration"
)

// ConfigurationError reports a request that cannot be built.
type ConfigurationError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %v", e.Op, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// TransportError reports a request that never produced a response.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPStatusError reports a response whose status code signals failure.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	Method     string
	URL        string
	Body       []byte
}

// Error implements the error interface.
func (e *HTTPStatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s error (status %d): %s %s: %s",
		classifyStatus(e.StatusCode), e.StatusCode, e.Method, e.URL, status)
}

// Class returns the error class derived from the status code.
func (e *HTTPStatusError) Class() ErrorClass {
	return classifyStatus(e.StatusCode)
}

// ClassifyError categorizes an error for retry decisions and observability.
func ClassifyError(err error) ErrorClass {
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return ErrorClassConfiguration
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Class()
	}

	return ErrorClassNetwork
}

func classifyStatus(code int) ErrorClass {
	switch {
	case code >= 400 && code < 500:
		return ErrorClassClient
	case code >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass, retryClientErrors bool) bool {
	switch errorClass {
	case ErrorClassClient:
		return retryClientErrors
	case ErrorClassServer:
		return true
	case ErrorClassNetwork:
		return true
	default:
		// configuration errors and anything unclassified surface immediately
		return false
	}
}
