// Package errors provides error types and handling for the API probe.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrorType categorizes errors for handling decisions.
type ErrorType int

const (
	// Unknown is an uncategorized error.
	Unknown ErrorType = iota
	// Network represents network-related errors (DNS, connection).
	Network
	// Timeout represents timeout errors.
	Timeout
	// Auth represents a rejected login.
	Auth
	// Decode represents a body that could not be parsed as JSON.
	Decode
	// Config represents invalid probe configuration.
	Config
	// Cancelled represents context cancellation.
	Cancelled
)

// String returns the string representation of ErrorType.
func (t ErrorType) String() string {
	switch t {
	case Network:
		return "network"
	case Timeout:
		return "timeout"
	case Auth:
		return "auth"
	case Decode:
		return "decode"
	case Config:
		return "config"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTransport reports whether the type describes a failure below HTTP.
func (t ErrorType) IsTransport() bool {
	return t == Network || t == Timeout
}

// ProbeError represents a categorized probe error.
type ProbeError struct {
	Type       ErrorType
	URL        string
	Operation  string
	Message    string
	Cause      error
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *ProbeError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s error during %s on %s: %s (caused by: %v)",
			e.Type.String(), e.Operation, e.URL, msg, e.Cause)
	}
	return fmt.Sprintf("%s error during %s on %s: %s",
		e.Type.String(), e.Operation, e.URL, msg)
}

// Unwrap returns the underlying error.
func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target.
func (e *ProbeError) Is(target error) bool {
	t, ok := target.(*ProbeError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewProbeError creates a new ProbeError.
func NewProbeError(errType ErrorType, url, operation, message string, cause error) *ProbeError {
	return &ProbeError{
		Type:      errType,
		URL:       url,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// NewNetworkError creates a network error.
func NewNetworkError(url, operation string, cause error) *ProbeError {
	return NewProbeError(Network, url, operation, "network failure", cause)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(url, operation string, cause error) *ProbeError {
	return NewProbeError(Timeout, url, operation, "request timed out", cause)
}

// NewAuthError creates an authentication error carrying the server's reply.
func NewAuthError(url string, statusCode int, body string) *ProbeError {
	err := NewProbeError(Auth, url, "login", "login rejected", nil)
	err.StatusCode = statusCode
	err.Body = body
	return err
}

// NewDecodeError creates a decode error. body is the raw text that failed to parse.
func NewDecodeError(url, operation, body string, cause error) *ProbeError {
	err := NewProbeError(Decode, url, operation, "response is not valid JSON", cause)
	err.Body = body
	return err
}

// NewConfigError creates a configuration error.
func NewConfigError(field, message string) *ProbeError {
	return NewProbeError(Config, "", "configure", field+": "+message, nil)
}

// NewCancelledError creates a cancelled error.
func NewCancelledError(url, operation string) *ProbeError {
	return NewProbeError(Cancelled, url, operation, "operation cancelled", nil)
}

// Categorize determines the error type from an error returned by the HTTP client.
func Categorize(err error, url string) *ProbeError {
	if err == nil {
		return nil
	}

	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		return probeErr
	}

	if errors.Is(err, context.Canceled) {
		return NewCancelledError(url, "request")
	}

	if isTimeout(err) {
		return NewTimeoutError(url, "request", err)
	}

	if isNetworkError(err) {
		return NewNetworkError(url, "request", err)
	}

	return NewProbeError(Unknown, url, "request", err.Error(), err)
}

// isTimeout checks if an error is a timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if an error is network-related.
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp") ||
		strings.Contains(errStr, "EOF")
}

// IsAuthError checks if an error is a rejected login.
func IsAuthError(err error) bool {
	return GetErrorType(err) == Auth
}

// IsTransportError checks if an error is a network or timeout failure.
func IsTransportError(err error) bool {
	return GetErrorType(err).IsTransport()
}

// IsDecodeError checks if an error is a JSON decode failure.
func IsDecodeError(err error) bool {
	return GetErrorType(err) == Decode
}

// GetStatusCode extracts the status code from an error.
func GetStatusCode(err error) int {
	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		return probeErr.StatusCode
	}
	return 0
}

// GetBody extracts the raw response text attached to an error.
func GetBody(err error) string {
	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		return probeErr.Body
	}
	return ""
}

// GetErrorType extracts the error type from an error.
func GetErrorType(err error) ErrorType {
	var probeErr *ProbeError
	if errors.As(err, &probeErr) {
		return probeErr.Type
	}
	return Unknown
}
