// Package reading defines the canonical, vendor-agnostic representation of a
// meter's electrical state. Every vendor adapter produces a *Reading; nothing
// downstream of the adapters knows which wire format it came from.
package reading

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// Brand identifies a meter manufacturer supported by the gateway.
type Brand string

// Supported brands.
const (
	BrandQube   Brand = "QUBE"
	BrandSecure Brand = "SECURE"
	BrandLNT    Brand = "LNT"
)

// Brands lists every supported brand in a stable order.
func Brands() []Brand {
	return []Brand{BrandQube, BrandSecure, BrandLNT}
}

// ParseBrand normalises s and reports whether it names a supported brand.
func ParseBrand(s string) (Brand, bool) {
	b := Brand(strings.ToUpper(strings.TrimSpace(s)))
	switch b {
	case BrandQube, BrandSecure, BrandLNT:
		return b, true
	default:
		return "", false
	}
}

// String returns the brand identifier.
func (b Brand) String() string { return string(b) }

// DisplayName returns the vendor's own name for itself.
func (b Brand) DisplayName() string {
	switch b {
	case BrandQube:
		return "Qube"
	case BrandSecure:
		return "Secure Meters Ltd"
	case BrandLNT:
		return "Larsen & Toubro"
	default:
		return string(b)
	}
}

// DataType selects which view of the meter a request asks for.
type DataType string

// Data types understood by the gateway.
const (
	DataTypeCurrent      DataType = "current"
	DataTypeHistorical   DataType = "historical"
	DataTypePowerQuality DataType = "power_quality"
)

// ParseDataType normalises s, defaulting to current when s is empty. Unknown
// values are returned as-is so adapters can reject them in their own terms.
func ParseDataType(s string) DataType {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DataTypeCurrent
	}
	return DataType(s)
}

// String returns the data type identifier.
func (d DataType) String() string { return string(d) }

var meterIDPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{3,63}$`)

// ValidMeterID reports whether id looks like a meter identifier: a letter
// followed by at least three letters, digits or underscores.
func ValidMeterID(id string) bool {
	return meterIDPattern.MatchString(id)
}

// Reading is the canonical meter reading.
type Reading struct {
	MeterID   string    `json:"meter_id"`
	Brand     Brand     `json:"brand"`
	DataType  DataType  `json:"data_type"`
	Timestamp time.Time `json:"timestamp"`

	Instantaneous *Instantaneous `json:"instantaneous,omitempty"`
	Energy        *Energy        `json:"energy,omitempty"`
	Billing       *Billing       `json:"billing,omitempty"`
	Power         *Power         `json:"power,omitempty"`
	Phases        *Phases        `json:"phases,omitempty"`
	PowerQuality  *PowerQuality  `json:"power_quality,omitempty"`

	History        []HourlyReading `json:"history,omitempty"`
	HistorySummary *HistorySummary `json:"history_summary,omitempty"`

	DeviceStatus map[string]string `json:"device_status,omitempty"`

	// Raw is the untouched vendor payload, kept for diagnostics.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Instantaneous holds point-in-time electrical values.
type Instantaneous struct {
	ActivePowerKw float64  `json:"active_power_kw"`
	VoltageV      float64  `json:"voltage_v"`
	FrequencyHz   float64  `json:"frequency_hz"`
	PowerFactor   float64  `json:"power_factor"`
	CurrentA      *float64 `json:"current_a,omitempty"`
}

// Energy holds energy register values.
type Energy struct {
	ActiveEnergyTodayKwh float64  `json:"active_energy_today_kwh"`
	ActiveEnergyTotalKwh *float64 `json:"active_energy_total_kwh,omitempty"`
}

// Billing holds the vendor's cost figures. Only present when the vendor
// reports them.
type Billing struct {
	CostToday  float64 `json:"cost_today"`
	TariffRate float64 `json:"tariff_rate"`
	Currency   string  `json:"currency,omitempty"`
}

// Power holds the apparent/reactive breakdown some vendors report.
type Power struct {
	ApparentPowerKva  float64 `json:"apparent_power_kva"`
	ReactivePowerKvar float64 `json:"reactive_power_kvar"`
}

// Phases holds per-phase values for three-phase meters.
type Phases struct {
	VoltageR float64 `json:"voltage_r"`
	VoltageY float64 `json:"voltage_y"`
	VoltageB float64 `json:"voltage_b"`
	CurrentR float64 `json:"current_r"`
	CurrentY float64 `json:"current_y"`
	CurrentB float64 `json:"current_b"`
}

// PowerQuality holds distortion and disturbance metrics.
type PowerQuality struct {
	THDVoltagePercent       float64            `json:"thd_voltage_percent"`
	THDCurrentPercent       float64            `json:"thd_current_percent"`
	VoltageUnbalancePercent float64            `json:"voltage_unbalance_percent"`
	CurrentUnbalancePercent float64            `json:"current_unbalance_percent"`
	SagEvents24h            int                `json:"sag_events_24h"`
	SwellEvents24h          int                `json:"swell_events_24h"`
	VoltageHarmonics        map[string]float64 `json:"voltage_harmonics,omitempty"`
	CurrentHarmonics        map[string]float64 `json:"current_harmonics,omitempty"`
}

// HourlyReading is one hour of a historical series.
type HourlyReading struct {
	Timestamp time.Time `json:"timestamp"`
	EnergyKwh float64   `json:"energy_kwh"`
	CostINR   float64   `json:"cost_inr"`
	DemandKw  float64   `json:"demand_kw"`
}

// HistorySummary aggregates a historical series as reported by the vendor.
type HistorySummary struct {
	Period         string  `json:"period"`
	TotalEnergyKwh float64 `json:"total_energy_kwh"`
	TotalCostINR   float64 `json:"total_cost_inr"`
	PeakDemandKw   float64 `json:"peak_demand_kw"`
}

// HistoryLength is the number of hourly entries in a historical reading.
const HistoryLength = 24

// Float returns a pointer to v, for the optional fields above.
func Float(v float64) *float64 { return &v }
