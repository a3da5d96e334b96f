package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for different categories
var (
	// ErrInvalidInput - caller sent something unusable (400)
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration - required credential missing or malformed (500, fails before any network call)
	ErrConfiguration = errors.New("configuration error")

	// ErrUpstream - non-2xx from the LLM or CMS API (500)
	ErrUpstream = errors.New("upstream error")

	// ErrUnsupportedTool - model asked for a tool outside the registry (500)
	ErrUnsupportedTool = errors.New("unsupported tool")

	// ErrInvalidToolArgs - malformed or missing tool arguments (500)
	ErrInvalidToolArgs = errors.New("invalid tool arguments")

	// ErrNotFound - resource not found
	ErrNotFound = errors.New("not found")

	// ErrTransient - timeouts, capacity limits; safe to retry
	ErrTransient = errors.New("transient error")

	// ErrInternal - anything else
	ErrInternal = errors.New("internal error")
)

// Error is a categorized error whose message is shown to callers verbatim.
type Error struct {
	category error
	message  string
	cause    error
}

func (e *Error) Error() string {
	return e.message
}

// Unwrap exposes both the category and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.category}
	}
	return []error{e.category, e.cause}
}

func newError(category error, message string, cause error) error {
	return &Error{category: category, message: message, cause: cause}
}

// UpstreamError carries the HTTP status and response body of a failed call to an external API.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s request failed (%d): %s", e.Service, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstream
}

// Upstream builds an UpstreamError.
func Upstream(service string, statusCode int, body string) error {
	return &UpstreamError{Service: service, StatusCode: statusCode, Body: body}
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", message, err)
}

// IsCategory checks if error belongs to specific category
func IsCategory(err error, category error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, category)
}

// InvalidInput returns a client error with a human-readable message.
func InvalidInput(message string) error {
	return newError(ErrInvalidInput, message, nil)
}

// Configuration returns a configuration error with a human-readable message.
func Configuration(message string) error {
	return newError(ErrConfiguration, message, nil)
}

// UnsupportedTool reports a tool name outside the registry.
func UnsupportedTool(name string) error {
	return newError(ErrUnsupportedTool, "Unsupported tool: "+name, nil)
}

// MissingArgument reports an absent or blank required tool argument.
func MissingArgument(field string) error {
	return newError(ErrInvalidToolArgs, "Missing "+field+".", nil)
}

// InvalidToolArgs wraps a decoding or validation failure of tool arguments.
func InvalidToolArgs(tool string, cause error) error {
	return newError(ErrInvalidToolArgs, fmt.Sprintf("Invalid arguments for %s: %v", tool, cause), cause)
}

// NotFound wraps error as not found
func NotFound(message string) error {
	return newError(ErrNotFound, message, nil)
}

// Transient wraps error as transient
func Transient(message string) error {
	return newError(ErrTransient, message, nil)
}

// Internal wraps error as internal
func Internal(message string) error {
	return newError(ErrInternal, message, nil)
}
