package errors

import (
	"context"
	"errors"
	"net/http"
)

// HTTPStatus maps an error to the status code returned by the chat API.
// Only client input errors are 4xx; everything else surfaces as 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Category returns the error category name for an error
func Category(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return "ErrInvalidInput"
	case errors.Is(err, ErrConfiguration):
		return "ErrConfiguration"
	case errors.Is(err, ErrUpstream):
		return "ErrUpstream"
	case errors.Is(err, ErrUnsupportedTool):
		return "ErrUnsupportedTool"
	case errors.Is(err, ErrInvalidToolArgs):
		return "ErrInvalidToolArgs"
	case errors.Is(err, ErrNotFound):
		return "ErrNotFound"
	case errors.Is(err, ErrTransient), errors.Is(err, context.DeadlineExceeded):
		return "ErrTransient"
	case errors.Is(err, context.Canceled):
		return "Canceled"
	case errors.Is(err, ErrInternal):
		return "ErrInternal"
	default:
		return "Unknown"
	}
}

// IsRetryable checks if an error is transient, indicating it can be retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrTransient) {
		return true
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode == http.StatusTooManyRequests || upstream.StatusCode >= http.StatusInternalServerError
	}
	return false
}
