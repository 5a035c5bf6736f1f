package client

import (
	"errors"
	"fmt"
	"testing"
)

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name              string
		errorClass        ErrorClass
		retryClientErrors bool
		expected          bool
	}{
		{
			name:              "client error retried uniformly",
			errorClass:        ErrorClassClient,
			retryClientErrors: true,
			expected:          true,
		},
		{
			name:       "client error not retried when disabled",
			errorClass: ErrorClassClient,
			expected:   false,
		},
		{
			name:       "server error should retry",
			errorClass: ErrorClassServer,
			expected:   true,
		},
		{
			name:       "network error should retry",
			errorClass: ErrorClassNetwork,
			expected:   true,
		},
		{
			name:              "configuration error never retried",
			errorClass:        ErrorClassConfiguration,
			retryClientErrors: true,
			expected:          false,
		},
		{
			name:       "empty error class should not retry",
			errorClass: "",
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := shouldRetry(tt.errorClass, tt.retryClientErrors)
			if result != tt.expected {
				t.Errorf("shouldRetry(%q, %v) = %v, want %v", tt.errorClass, tt.retryClientErrors, result, tt.expected)
			}
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{
			name: "configuration error",
			err:  &ConfigurationError{Op: "make url", Err: ErrBaseURLNotSet},
			want: ErrorClassConfiguration,
		},
		{
			name: "wrapped 404",
			err:  fmt.Errorf("wrapped: %w", &HTTPStatusError{StatusCode: 404}),
			want: ErrorClassClient,
		},
		{
			name: "503",
			err:  &HTTPStatusError{StatusCode: 503},
			want: ErrorClassServer,
		},
		{
			name: "transport error",
			err:  &TransportError{Err: errors.New("connection refused")},
			want: ErrorClassNetwork,
		},
		{
			name: "plain error treated as network",
			err:  errors.New("unexpected EOF"),
			want: ErrorClassNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHTTPStatusError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *HTTPStatusError
		expected string
	}{
		{
			name: "with status line",
			err: &HTTPStatusError{
				StatusCode: 500,
				Status:     "500 Internal Server Error",
				Method:     "GET",
				URL:        "http://x/1",
			},
			expected: "server error (status 500): GET http://x/1: 500 Internal Server Error",
		},
		{
			name: "status line derived from code",
			err: &HTTPStatusError{
				StatusCode: 404,
				Method:     "DELETE",
				URL:        "http://x/9",
			},
			expected: "client error (status 404): DELETE http://x/9: 404 Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	wrappedErr := errors.New("connection refused")
	err := &TransportError{Method: "GET", URL: "http://x", Err: wrappedErr}

	if err.Unwrap() != wrappedErr {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), wrappedErr)
	}
	if !errors.Is(err, wrappedErr) {
		t.Error("errors.Is should work with wrapped error")
	}
	if got, want := err.Error(), "transport error: GET http://x: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestConfigurationError(t *testing.T) {
	err := &ConfigurationError{Op: "PUT", Err: ErrMissingID}

	if !errors.Is(err, ErrMissingID) {
		t.Error("errors.Is should find ErrMissingID")
	}
	if got, want := err.Error(), "configuration error: PUT: payload has no id"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	noOp := &ConfigurationError{Err: ErrBaseURLNotSet}
	if got, want := noOp.Error(), "configuration error: base url is not set"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
