// Package errors provides the error taxonomy shared by every stage of the
// unified meter gateway.
//
// # Overview
//
// Each pipeline stage maps its failure to exactly one ErrorClass:
//
//   - CallerAuth: missing or invalid gateway bearer token (401)
//   - VendorAuth: the vendor rejected the adapter's credential (401)
//   - BadRequest: missing parameter, unsupported brand or data type (400)
//   - UpstreamDataInvalid: a reading was fetched but failed validation (502)
//   - UpstreamProtocol: the vendor answered with something unusable (502)
//   - Transport: timeout (504) or connection failure (502)
//
// Classification is carried by *ClassifiedError and survives wrapping, so
// errors.Is and errors.As keep working through the chain.
//
// # Messages and codes
//
// ClassifiedError.Message is the caller-facing text, for example
// "Unsupported meter brand: ACME". Code is optional and only set when a
// vendor protocol defines a machine-readable code (L&T's INVALID_FUNCTION).
// PublicMessage never exposes the text of an unclassified error.
//
// # Wrapping
//
// Internal context follows the "component.method: action failed: %w"
// pattern:
//
//	if err := json.Unmarshal(body, &payload); err != nil {
//	    return errors.UpstreamProtocol(
//	        errors.Wrap(err, "QubeAdapter", "Fetch", "decode payload"),
//	        "QubeAdapter", "Fetch", "Malformed response from Qube")
//	}
//
// Nothing in the gateway retries on any class: retry policy belongs to the
// caller.
package errors
