package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ecoquest"

// Request outcomes used as the outcome label.
const (
	OutcomeSuccess = "success"
)

// Metrics contains the gateway's own metrics
type Metrics struct {
	// Gateway pipeline
	RequestsTotal        *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	VendorCallDuration   *prometheus.HistogramVec
	ValidationViolations *prometheus.CounterVec
	VendorHealth         *prometheus.GaugeVec

	// Publication
	ReadingsPublished *prometheus.CounterVec
	NATSConnected     prometheus.Gauge

	// Simulator
	VendorSimRequests *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Unified gateway requests by brand, data type and outcome",
			},
			[]string{"brand", "data_type", "outcome"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Unified gateway processing time in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"brand"},
		),

		VendorCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "vendor",
				Name:      "call_duration_seconds",
				Help:      "Vendor API call duration in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"brand", "outcome"},
		),

		ValidationViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "validation",
				Name:      "violations_total",
				Help:      "Reading constraint violations by brand and field",
			},
			[]string{"brand", "field"},
		),

		VendorHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "vendor",
				Name:      "health",
				Help:      "Vendor health (0=unhealthy, 1=degraded, 2=healthy)",
			},
			[]string{"brand"},
		),

		ReadingsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "readings",
				Name:      "published_total",
				Help:      "Readings handed to NATS by brand and status",
			},
			[]string{"brand", "status"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		VendorSimRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "vendorsim",
				Name:      "requests_total",
				Help:      "Requests served by the vendor simulator",
			},
			[]string{"vendor", "status"},
		),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RequestsTotal,
		m.RequestDuration,
		m.VendorCallDuration,
		m.ValidationViolations,
		m.VendorHealth,
		m.ReadingsPublished,
		m.NATSConnected,
		m.VendorSimRequests,
	}
}

// RecordRequest counts a finished gateway request and its duration
func (m *Metrics) RecordRequest(brand, dataType, outcome string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(brand, dataType, outcome).Inc()
	m.RequestDuration.WithLabelValues(brand).Observe(duration.Seconds())
}

// RecordVendorCall records one vendor call
func (m *Metrics) RecordVendorCall(brand, outcome string, duration time.Duration) {
	m.VendorCallDuration.WithLabelValues(brand, outcome).Observe(duration.Seconds())
}

// RecordViolation counts a failed reading constraint
func (m *Metrics) RecordViolation(brand, field string) {
	m.ValidationViolations.WithLabelValues(brand, field).Inc()
}

// RecordVendorHealth updates the vendor health gauge
func (m *Metrics) RecordVendorHealth(brand string, level int) {
	m.VendorHealth.WithLabelValues(brand).Set(float64(level))
}

// RecordPublished counts a reading publication attempt
func (m *Metrics) RecordPublished(brand, status string) {
	m.ReadingsPublished.WithLabelValues(brand, status).Inc()
}

// RecordNATSStatus updates NATS connection status
func (m *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	m.NATSConnected.Set(value)
}

// RecordSimRequest counts a simulator request
func (m *Metrics) RecordSimRequest(vendor string, status int) {
	m.VendorSimRequests.WithLabelValues(vendor, statusClass(status)).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
