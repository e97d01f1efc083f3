package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
)

// =============================================================================
// ErrorType Tests
// =============================================================================

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    string
	}{
		{Unknown, "unknown"},
		{Network, "network"},
		{Timeout, "timeout"},
		{Auth, "auth"},
		{Decode, "decode"},
		{Config, "config"},
		{Cancelled, "cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.errType.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorType_IsTransport(t *testing.T) {
	tests := []struct {
		errType   ErrorType
		transport bool
	}{
		{Network, true},
		{Timeout, true},
		{Auth, false},
		{Decode, false},
		{Config, false},
		{Cancelled, false},
		{Unknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.errType.String(), func(t *testing.T) {
			if got := tt.errType.IsTransport(); got != tt.transport {
				t.Errorf("IsTransport() = %v, want %v", got, tt.transport)
			}
		})
	}
}

// =============================================================================
// ProbeError Tests
// =============================================================================

func TestProbeError_Error(t *testing.T) {
	err := NewProbeError(Network, "https://api.example.com", "request", "connection failed", nil)

	errStr := err.Error()
	if !strings.Contains(errStr, "network") {
		t.Errorf("Error() = %q, should mention type", errStr)
	}
	if !strings.Contains(errStr, "https://api.example.com") {
		t.Errorf("Error() = %q, should mention URL", errStr)
	}
}

func TestProbeError_ErrorWithCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewNetworkError("https://api.example.com", "request", cause)

	if !strings.Contains(err.Error(), "caused by") {
		t.Errorf("Error() = %q, should include cause", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestProbeError_Is(t *testing.T) {
	err := NewAuthError("https://api.example.com/login", 401, "bad credentials")

	if !errors.Is(err, &ProbeError{Type: Auth}) {
		t.Error("Is() should match same type")
	}
	if errors.Is(err, &ProbeError{Type: Decode}) {
		t.Error("Is() should not match different type")
	}
}

func TestNewAuthError(t *testing.T) {
	err := NewAuthError("https://api.example.com/login", 401, `{"detail":"Incorrect email or password"}`)

	if err.Type != Auth {
		t.Errorf("Type = %v, want Auth", err.Type)
	}
	if err.StatusCode != 401 {
		t.Errorf("StatusCode = %d, want 401", err.StatusCode)
	}
	if err.Body != `{"detail":"Incorrect email or password"}` {
		t.Errorf("Body = %q", err.Body)
	}
	if !strings.Contains(err.Error(), "status 401") {
		t.Errorf("Error() = %q, should include status", err.Error())
	}
}

func TestNewDecodeError(t *testing.T) {
	cause := errors.New("invalid character '<'")
	err := NewDecodeError("https://api.example.com/x", "decode", "<html>", cause)

	if err.Type != Decode {
		t.Errorf("Type = %v, want Decode", err.Type)
	}
	if err.Body != "<html>" {
		t.Errorf("Body = %q, want <html>", err.Body)
	}
	if !errors.Is(err, cause) {
		t.Error("decode error should wrap its cause")
	}
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("username", "is required")
	if err.Type != Config {
		t.Errorf("Type = %v, want Config", err.Type)
	}
	if !strings.Contains(err.Error(), "username: is required") {
		t.Errorf("Error() = %q", err.Error())
	}
}

// =============================================================================
// Categorize Tests
// =============================================================================

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"cancelled", context.Canceled, Cancelled},
		{"wrapped cancelled", fmt.Errorf("get: %w", context.Canceled), Cancelled},
		{"deadline", context.DeadlineExceeded, Timeout},
		{"net timeout", timeoutErr{}, Timeout},
		{"op error", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}, Network},
		{"dns error", &net.DNSError{Err: "no such host", Name: "nope.invalid"}, Network},
		{"connection refused text", errors.New("connection refused"), Network},
		{"other", errors.New("something odd"), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize(tt.err, "https://api.example.com")
			if got.Type != tt.want {
				t.Errorf("Categorize() type = %v, want %v", got.Type, tt.want)
			}
		})
	}
}

func TestCategorize_Nil(t *testing.T) {
	if Categorize(nil, "x") != nil {
		t.Error("Categorize(nil) should return nil")
	}
}

func TestCategorize_Passthrough(t *testing.T) {
	orig := NewDecodeError("u", "decode", "", nil)
	wrapped := fmt.Errorf("outer: %w", orig)

	if got := Categorize(wrapped, "other"); got != orig {
		t.Error("Categorize should return an existing ProbeError unchanged")
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestHelpers(t *testing.T) {
	authErr := fmt.Errorf("authenticate: %w", NewAuthError("u", 403, "forbidden"))
	netErr := NewNetworkError("u", "request", errors.New("reset"))
	decErr := NewDecodeError("u", "decode", "x", nil)
	plain := errors.New("plain")

	if !IsAuthError(authErr) || IsAuthError(netErr) {
		t.Error("IsAuthError mismatch")
	}
	if !IsTransportError(netErr) || IsTransportError(decErr) {
		t.Error("IsTransportError mismatch")
	}
	if !IsDecodeError(decErr) || IsDecodeError(plain) {
		t.Error("IsDecodeError mismatch")
	}
	if GetStatusCode(authErr) != 403 {
		t.Errorf("GetStatusCode = %d, want 403", GetStatusCode(authErr))
	}
	if GetStatusCode(plain) != 0 {
		t.Error("GetStatusCode(plain) should be 0")
	}
	if GetBody(authErr) != "forbidden" {
		t.Errorf("GetBody = %q, want forbidden", GetBody(authErr))
	}
	if GetErrorType(plain) != Unknown {
		t.Error("GetErrorType(plain) should be Unknown")
	}
}
