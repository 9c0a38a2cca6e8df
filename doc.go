// Package ecoquest is a unified gateway for smart electricity meter
// telemetry.
//
// Three vendors (Qube, Secure Meters and L&T) expose incompatible HTTP APIs
// with different authentication, addressing and payload shapes. ecoquest puts
// one authenticated surface in front of them and answers every request with
// the same envelope, regardless of which vendor produced the reading.
//
// # Architecture
//
// Every request passes the same stages, strictly in order:
//
//	┌─────────────────────────────────────┐
//	│         HTTP surface                │  /unifiedMeterGateway,
//	│   (gin, websocket, rate limits)     │  /batch, /stream
//	└─────────────────────────────────────┘
//	           ↓ gateway.Request
//	┌─────────────────────────────────────┐
//	│         AuthGate                    │  Bearer token: static set,
//	│   (caller authentication)           │  HS256 JWT or open
//	└─────────────────────────────────────┘
//	           ↓ principal
//	┌─────────────────────────────────────┐
//	│         BrandRouter                 │  QUBE | SECURE | LNT
//	└─────────────────────────────────────┘
//	           ↓ adapter
//	┌─────────────────────────────────────┐
//	│         Vendor adapter              │  One vendor call, no retries,
//	│   (qube, secure, lnt)               │  schema-checked payload
//	└─────────────────────────────────────┘
//	           ↓ canonical reading
//	┌─────────────────────────────────────┐
//	│         ResponseValidator           │  Physical plausibility
//	└─────────────────────────────────────┘
//	           ↓ envelope
//	    caller, metrics, health, NATS
//
// The first stage to fail ends the request with one classified error from
// the errors package; the HTTP surface maps its class to a status code.
//
// # Packages
//
//	errors       error taxonomy and HTTP status mapping
//	reading      canonical reading model, brands and data types
//	auth         caller authentication
//	router       brand to adapter resolution
//	vendorapi    adapter contract, credential type and shared HTTP transport
//	  qube, secure, lnt
//	validation   plausibility rules over canonical readings
//	gateway      the pipeline and its envelope
//	gateway/http REST, batch and WebSocket surface
//	metric       Prometheus registry and gateway metrics
//	health       per-vendor health derived from call outcomes
//	natsclient   NATS connection and reading publication
//	vendorsim    simulator for the three vendor APIs
//	config       JSON/YAML configuration with environment overrides
//	cmd/ecoquest the service binary
//
// # Running
//
// With no configuration the binary serves the gateway and the simulator on
// :8080, using the demo credentials:
//
//	./bin/ecoquest
//	curl -H 'Authorization: Bearer test_token_123' \
//	  'localhost:8080/unifiedMeterGateway?meterId=QUBE_001_TEST&brand=QUBE'
//
// # Adding a Vendor
//
// A new vendor needs a brand in the reading package, an adapter implementing
// vendorapi.Adapter (Brand, Supports, Fetch) built on vendorapi.Client, and an
// entry passed to router.New. Adapters own their wire protocol entirely;
// nothing downstream of the router knows which vendor answered.
package ecoquest
