package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorCallerAuth, "caller_auth"},
		{ErrorVendorAuth, "vendor_auth"},
		{ErrorBadRequest, "bad_request"},
		{ErrorUpstreamDataInvalid, "upstream_data_invalid"},
		{ErrorUpstreamProtocol, "upstream_protocol"},
		{ErrorTransport, "transport"},
		{ErrorUnknown, "unknown"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"caller auth", CallerAuth(ErrTokenRequired, "AuthGate", "Authorize", "Authorization token required"), http.StatusUnauthorized},
		{"vendor auth", VendorAuth(ErrVendorAuth, "QubeAdapter", "Fetch", "Invalid API key", ""), http.StatusUnauthorized},
		{"bad request", BadRequest(ErrUnsupportedBrand, "Router", "Resolve", "Unsupported meter brand: X", ""), http.StatusBadRequest},
		{"data invalid", UpstreamDataInvalid(ErrReadingInvalid, "Gateway", "Handle", "bad data"), http.StatusBadGateway},
		{"protocol", UpstreamProtocol(ErrMalformedPayload, "Client", "Get", "bad payload"), http.StatusBadGateway},
		{"transport connection", Transport(ErrUpstreamUnreachable, "Client", "Get", "unreachable"), http.StatusBadGateway},
		{"transport deadline", Transport(context.DeadlineExceeded, "Client", "Get", "timeout"), http.StatusGatewayTimeout},
		{"transport net timeout", Transport(timeoutErr{}, "Client", "Get", "timeout"), http.StatusGatewayTimeout},
		{"unclassified", fmt.Errorf("boom"), http.StatusInternalServerError},
		{"wrapped classified", fmt.Errorf("outer: %w", BadRequest(nil, "c", "m", "Meter ID required", "")), http.StatusBadRequest},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := HTTPStatus(test.err); got != test.expected {
				t.Errorf("expected %d, got %d for %v", test.expected, got, test.err)
			}
		})
	}
}

func TestTransport_TimeoutIsDistinctFromVendorAuth(t *testing.T) {
	timeout := Transport(Wrap(context.DeadlineExceeded, "Client", "Get", "vendor call"), "Client", "Get", "Vendor request timed out")
	auth := VendorAuth(ErrVendorAuth, "Client", "Get", "Invalid API key", "")

	if !IsTimeout(timeout) || !IsTransport(timeout) {
		t.Fatalf("expected timeout transport error, got %v", timeout)
	}
	if IsVendorAuth(timeout) {
		t.Error("timeout must not classify as vendor auth")
	}
	if IsTimeout(auth) || IsTransport(auth) {
		t.Error("vendor auth must not classify as transport")
	}
	if !errors.Is(timeout, ErrUpstreamTimeout) {
		t.Error("timeout should wrap ErrUpstreamTimeout")
	}
	if !errors.Is(timeout, context.DeadlineExceeded) {
		t.Error("timeout should keep the original cause")
	}
}

func TestCodeOf(t *testing.T) {
	withCode := BadRequest(ErrUnsupportedMode, "LNTAdapter", "Fetch", "Invalid function: x", "INVALID_FUNCTION")
	withoutCode := BadRequest(ErrMissingParameter, "QubeAdapter", "Fetch", "Meter ID required", "")

	if got := CodeOf(withCode); got != "INVALID_FUNCTION" {
		t.Errorf("expected INVALID_FUNCTION, got %q", got)
	}
	if got := CodeOf(fmt.Errorf("wrapped: %w", withCode)); got != "INVALID_FUNCTION" {
		t.Errorf("code should survive wrapping, got %q", got)
	}
	if got := CodeOf(withoutCode); got != "" {
		t.Errorf("expected no code, got %q", got)
	}
	if got := CodeOf(nil); got != "" {
		t.Errorf("expected no code for nil, got %q", got)
	}
}

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"classified message", CallerAuth(ErrTokenRequired, "AuthGate", "Authorize", "Authorization token required"), "Authorization token required"},
		{"unclassified hidden", fmt.Errorf("dial tcp 10.0.0.1:443: secret=abc"), "Internal server error"},
		{"transport without message", Transport(ErrUpstreamUnreachable, "Client", "Get", ""), "Upstream service unavailable"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := PublicMessage(test.err); got != test.expected {
				t.Errorf("expected %q, got %q", test.expected, got)
			}
		})
	}
}

func TestClassifiedError_ErrorAndUnwrap(t *testing.T) {
	inner := Wrap(ErrMalformedPayload, "SecureAdapter", "Fetch", "decode payload")
	ce := UpstreamProtocol(inner, "SecureAdapter", "Fetch", "Malformed response from Secure Meters")

	msg := ce.Error()
	if !strings.Contains(msg, "Malformed response from Secure Meters") {
		t.Errorf("error text should contain the message, got %q", msg)
	}
	if !strings.Contains(msg, "SecureAdapter.Fetch: decode payload failed") {
		t.Errorf("error text should contain the wrapped context, got %q", msg)
	}
	if !errors.Is(ce, ErrMalformedPayload) {
		t.Error("expected ErrMalformedPayload in chain")
	}

	bare := &ClassifiedError{Class: ErrorBadRequest, Message: "Meter ID required"}
	if bare.Error() != "Meter ID required" {
		t.Errorf("expected bare message, got %q", bare.Error())
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "c", "m", "a") != nil {
		t.Error("wrapping nil should return nil")
	}
	err := Wrap(ErrInvalidConfig, "Config", "Validate", "check vendors")
	if err.Error() != "Config.Validate: check vendors failed: invalid configuration" {
		t.Errorf("unexpected format: %q", err.Error())
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("wrapped error should match sentinel")
	}
}
