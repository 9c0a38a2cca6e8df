// Package metric provides the Prometheus registry and the metrics the
// gateway records.
//
// MetricsRegistry wraps a private prometheus.Registry holding the gateway
// metrics (Metrics) plus the Go runtime and process collectors. Handler
// exposes it for scraping; the HTTP layer mounts it at /metrics.
//
// # Gateway Metrics
//
//   - ecoquest_gateway_requests_total{brand,data_type,outcome}
//   - ecoquest_gateway_request_duration_seconds{brand}
//   - ecoquest_vendor_call_duration_seconds{brand,outcome}
//   - ecoquest_vendor_health{brand}
//   - ecoquest_validation_violations_total{brand,field}
//   - ecoquest_readings_published_total{brand,status}
//   - ecoquest_nats_connected
//   - ecoquest_vendorsim_requests_total{vendor,status}
//
// The outcome label is "success" or the error class name from the errors
// package (caller_auth, vendor_auth, bad_request, upstream_data_invalid,
// upstream_protocol, transport).
//
// # Usage
//
//	registry := metric.NewMetricsRegistry()
//	m := registry.CoreMetrics()
//	m.RecordRequest("QUBE", "current", metric.OutcomeSuccess, elapsed)
//
//	router.GET("/metrics", gin.WrapH(registry.Handler()))
//
// Components with metrics of their own register them through the
// MetricsRegistrar interface so duplicate names are caught per owner:
//
//	err := registry.Register("vendorsim", "latency", histogram)
//
// # Thread Safety
//
// All Record methods are safe for concurrent use; Register and Unregister
// are serialised by the registry.
package metric
