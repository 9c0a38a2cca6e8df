// Package vendorapi holds the contract every meter vendor adapter implements
// and the HTTP transport they share.
//
// An adapter owns one vendor's wire protocol: how the request is addressed,
// where the credential goes, what the success payload looks like and how the
// vendor reports failure. Adapters are immutable after construction and safe
// for concurrent use. They never retry; a failed call surfaces exactly one
// classified error from the errors package.
package vendorapi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
	"github.com/YGNTECHSTARTUP/ecoquest/reading"
)

// Adapter fetches readings from one vendor and translates them into the
// canonical form.
type Adapter interface {
	// Brand returns the brand this adapter serves.
	Brand() reading.Brand

	// Supports reports whether the vendor can answer the given data type.
	Supports(dt reading.DataType) bool

	// Fetch performs exactly one vendor call for req.
	Fetch(ctx context.Context, req Request) (*reading.Reading, error)
}

// Request is the vendor-neutral part of a gateway request.
type Request struct {
	MeterID  string
	DataType reading.DataType
}

// Credential is a vendor secret. Every rendering of it is redacted so it
// cannot leak through logs, fmt verbs or JSON.
type Credential string

const redacted = "[REDACTED]"

// String implements fmt.Stringer.
func (Credential) String() string { return redacted }

// GoString implements fmt.GoStringer.
func (Credential) GoString() string { return redacted }

// MarshalJSON implements json.Marshaler.
func (Credential) MarshalJSON() ([]byte, error) { return []byte(`"` + redacted + `"`), nil }

// LogValue implements slog.LogValuer.
func (Credential) LogValue() slog.Value { return slog.StringValue(redacted) }

// Reveal returns the secret for placement on the wire.
func (c Credential) Reveal() string { return string(c) }

// Empty reports whether no credential was configured.
func (c Credential) Empty() bool { return c == "" }

// UnsupportedDataType is the error adapters return for data types their
// vendor has no notion of.
func UnsupportedDataType(brand reading.Brand, dt reading.DataType) error {
	return errors.BadRequest(
		fmt.Errorf("%w: %s for %s", errors.ErrUnsupportedMode, dt, brand),
		adapterComponent(brand), "Fetch",
		fmt.Sprintf("Unsupported data type for %s: %s", brand, dt), "")
}

// MissingID is the error adapters return before calling out when the
// request carries no meter identifier. message is the vendor's own wording.
func MissingID(brand reading.Brand, message, code string) error {
	return errors.BadRequest(
		fmt.Errorf("%w: meter id", errors.ErrMissingParameter),
		adapterComponent(brand), "Fetch", message, code)
}

// Malformed reports a success payload that could not be translated.
func Malformed(brand reading.Brand, cause error) error {
	return errors.UpstreamProtocol(
		fmt.Errorf("%w: %w", errors.ErrMalformedPayload, cause),
		adapterComponent(brand), "Fetch",
		fmt.Sprintf("Malformed response from %s", brand.DisplayName()))
}

func adapterComponent(brand reading.Brand) string {
	switch brand {
	case reading.BrandQube:
		return "QubeAdapter"
	case reading.BrandSecure:
		return "SecureAdapter"
	case reading.BrandLNT:
		return "LNTAdapter"
	default:
		return string(brand) + "Adapter"
	}
}
