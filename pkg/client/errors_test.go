package client

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestRetryableStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusOK, false},
		{http.StatusNotFound, false},
		{http.StatusForbidden, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotImplemented, false},
		{http.StatusHTTPVersionNotSupported, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			if got := retryableStatus(tt.code); got != tt.want {
				t.Errorf("retryableStatus(%d) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorClass
	}{
		{http.StatusTooManyRequests, ErrorClassRateLimit},
		{http.StatusInternalServerError, ErrorClassServer},
		{http.StatusServiceUnavailable, ErrorClassServer},
		{http.StatusNotFound, ErrorClassClient},
		{http.StatusForbidden, ErrorClassClient},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			if got := classifyStatus(tt.code); got != tt.want {
				t.Errorf("classifyStatus(%d) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	notFound := &APIError{StatusCode: http.StatusNotFound, Class: ErrorClassClient, Message: "not found"}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "direct 404",
			err:  notFound,
			want: true,
		},
		{
			name: "wrapped 404",
			err:  fmt.Errorf("fetch profile: %w", notFound),
			want: true,
		},
		{
			name: "other status",
			err:  &APIError{StatusCode: http.StatusForbidden, Class: ErrorClassClient},
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{
		StatusCode: http.StatusServiceUnavailable,
		Class:      ErrorClassServer,
		URL:        "https://example.substack.com/api/v1/archive",
		Message:    "retryable status 503",
	}

	got := err.Error()
	if got != "substack server error (status 503): retryable status 503" {
		t.Errorf("Error() = %q", got)
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := &APIError{StatusCode: 502, Class: ErrorClassServer, Message: "bad gateway", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is() failed to unwrap inner error")
	}
}
