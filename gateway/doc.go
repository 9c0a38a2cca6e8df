// Package gateway is the unified meter gateway orchestrator.
//
// Gateway.Handle runs one request through a fixed pipeline:
//
//	Start → AuthCheck → BrandResolve → AdapterFetch → Validate → Assemble
//
// Each stage either passes its result on or fails with a classified error
// from the errors package; the first failure ends the request and no
// envelope is produced. Later stages never reclassify an earlier error and
// nothing is retried.
//
//	┌──────────┐   ┌────────┐   ┌────────────────┐   ┌───────────┐
//	│ AuthGate │ → │ Router │ → │ vendorapi.Adapter │ → │ Validator │ → Envelope
//	└──────────┘   └────────┘   └────────────────┘   └───────────┘
//	    401          400         401/400/502/504          502
//
// The vendor call is the only blocking step. It runs under
// Request.Timeout, clamped to Config.MaxTimeout, or Config.DefaultTimeout
// when the request sets none.
//
// # Side channels
//
// Outcomes feed three optional collaborators that sit outside the data
// path: Prometheus metrics (metric.Metrics), per-brand vendor health
// (health.Monitor) and a Publisher that receives every envelope, normally
// natsclient.ReadingPublisher. None of them can change the response.
//
// # Transports
//
// gateway/http exposes Service over HTTP, batch and WebSocket endpoints.
package gateway
