package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorUnknown is the class of errors that were never classified
	ErrorUnknown ErrorClass = iota
	// ErrorCallerAuth represents a missing or invalid gateway bearer token
	ErrorCallerAuth
	// ErrorVendorAuth represents a vendor rejecting the adapter's credential
	ErrorVendorAuth
	// ErrorBadRequest represents missing parameters, unsupported brands or modes
	ErrorBadRequest
	// ErrorUpstreamDataInvalid represents a fetched reading that failed validation
	ErrorUpstreamDataInvalid
	// ErrorUpstreamProtocol represents a vendor answer that could not be used at all
	ErrorUpstreamProtocol
	// ErrorTransport represents network timeouts and connection failures
	ErrorTransport
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorCallerAuth:
		return "caller_auth"
	case ErrorVendorAuth:
		return "vendor_auth"
	case ErrorBadRequest:
		return "bad_request"
	case ErrorUpstreamDataInvalid:
		return "upstream_data_invalid"
	case ErrorUpstreamProtocol:
		return "upstream_protocol"
	case ErrorTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Authentication
	ErrTokenRequired = errors.New("authorization token required")
	ErrTokenInvalid  = errors.New("authorization token invalid")
	ErrVendorAuth    = errors.New("vendor rejected credential")

	// Request shape
	ErrMissingParameter = errors.New("missing required parameter")
	ErrUnsupportedBrand = errors.New("unsupported meter brand")
	ErrUnsupportedMode  = errors.New("unsupported data type")

	// Upstream
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	ErrUpstreamStatus      = errors.New("unexpected upstream status")
	ErrMalformedPayload    = errors.New("malformed upstream payload")
	ErrReadingInvalid      = errors.New("reading failed validation")

	// Configuration
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)

// ClassifiedError wraps an error with its classification. Message is the
// caller-facing text; Code is only set when a vendor protocol defines a
// machine-readable code for the failure.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Code      string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Err == nil {
		return ce.Message
	}
	if ce.Message == "" {
		return ce.Err.Error()
	}
	return fmt.Sprintf("%s: %v", ce.Message, ce.Err)
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// newClassified creates a new classified error
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// CallerAuth reports a gateway-level authentication failure.
func CallerAuth(err error, component, method, message string) error {
	return newClassified(ErrorCallerAuth, err, component, method, message)
}

// VendorAuth reports a vendor-level authentication failure. code may be empty.
func VendorAuth(err error, component, method, message, code string) error {
	ce := newClassified(ErrorVendorAuth, err, component, method, message)
	ce.Code = code
	return ce
}

// BadRequest reports a caller input problem. code may be empty.
func BadRequest(err error, component, method, message, code string) error {
	ce := newClassified(ErrorBadRequest, err, component, method, message)
	ce.Code = code
	return ce
}

// UpstreamDataInvalid reports a reading that was fetched but is implausible.
func UpstreamDataInvalid(err error, component, method, message string) error {
	return newClassified(ErrorUpstreamDataInvalid, err, component, method, message)
}

// UpstreamProtocol reports a vendor answer that could not be turned into a reading.
func UpstreamProtocol(err error, component, method, message string) error {
	return newClassified(ErrorUpstreamProtocol, err, component, method, message)
}

// Transport reports a network-level failure talking to a vendor. Timeouts are
// detected from err and tagged with ErrUpstreamTimeout.
func Transport(err error, component, method, message string) error {
	if isTimeout(err) && !errors.Is(err, ErrUpstreamTimeout) {
		err = fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}
	return newClassified(ErrorTransport, err, component, method, message)
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrUpstreamTimeout) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ClassOf returns the class of the outermost classified error in the chain.
func ClassOf(err error) ErrorClass {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	return ErrorUnknown
}

// CodeOf returns the vendor code carried by err, if any.
func CodeOf(err error) string {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsCallerAuth checks if an error is a gateway authentication failure
func IsCallerAuth(err error) bool { return ClassOf(err) == ErrorCallerAuth }

// IsVendorAuth checks if an error is a vendor authentication failure
func IsVendorAuth(err error) bool { return ClassOf(err) == ErrorVendorAuth }

// IsBadRequest checks if an error is due to caller input
func IsBadRequest(err error) bool { return ClassOf(err) == ErrorBadRequest }

// IsUpstreamDataInvalid checks if an error is a failed reading validation
func IsUpstreamDataInvalid(err error) bool { return ClassOf(err) == ErrorUpstreamDataInvalid }

// IsUpstreamProtocol checks if an error is an unusable vendor answer
func IsUpstreamProtocol(err error) bool { return ClassOf(err) == ErrorUpstreamProtocol }

// IsTransport checks if an error is a network-level vendor failure
func IsTransport(err error) bool { return ClassOf(err) == ErrorTransport }

// IsTimeout checks if an error is a transport failure caused by a timeout
func IsTimeout(err error) bool {
	return IsTransport(err) && isTimeout(err)
}

// PublicMessage returns the message that is safe to show to callers.
// Unclassified errors never leak their text.
func PublicMessage(err error) string {
	var ce *ClassifiedError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	if err != nil && ClassOf(err) == ErrorTransport {
		return "Upstream service unavailable"
	}
	return "Internal server error"
}

// HTTPStatus maps an error to the status code the gateway responds with.
func HTTPStatus(err error) int {
	switch ClassOf(err) {
	case ErrorCallerAuth, ErrorVendorAuth:
		return http.StatusUnauthorized
	case ErrorBadRequest:
		return http.StatusBadRequest
	case ErrorUpstreamDataInvalid, ErrorUpstreamProtocol:
		return http.StatusBadGateway
	case ErrorTransport:
		if isTimeout(err) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
