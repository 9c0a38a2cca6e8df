// Package validation applies plausibility constraints to canonical readings.
// It is vendor-agnostic except for the per-brand voltage window, which is
// kept exactly as each vendor documents it.
package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
	"github.com/YGNTECHSTARTUP/ecoquest/reading"
)

// Bounds holds the constraints that differ per vendor.
type Bounds struct {
	VoltageMinV          float64 `json:"voltage_min_v" yaml:"voltage_min_v"`
	VoltageMaxV          float64 `json:"voltage_max_v" yaml:"voltage_max_v"`
	CheckCostConsistency bool    `json:"check_cost_consistency" yaml:"check_cost_consistency"`
}

// Limits is the full constraint set.
type Limits struct {
	ActivePowerMaxKw     float64                 `json:"active_power_max_kw" yaml:"active_power_max_kw"`
	FrequencyMinHz       float64                 `json:"frequency_min_hz" yaml:"frequency_min_hz"`
	FrequencyMaxHz       float64                 `json:"frequency_max_hz" yaml:"frequency_max_hz"`
	THDVoltageMaxPercent float64                 `json:"thd_voltage_max_percent" yaml:"thd_voltage_max_percent"`
	CostTolerance        float64                 `json:"cost_tolerance" yaml:"cost_tolerance"`
	Brands               map[reading.Brand]Bounds `json:"brands" yaml:"brands"`
}

// DefaultLimits returns the constraint set for low-voltage residential supply.
func DefaultLimits() Limits {
	return Limits{
		ActivePowerMaxKw:     15,
		FrequencyMinHz:       49,
		FrequencyMaxHz:       51,
		THDVoltageMaxPercent: 10,
		CostTolerance:        1.0,
		Brands: map[reading.Brand]Bounds{
			reading.BrandQube:   {VoltageMinV: 200, VoltageMaxV: 250, CheckCostConsistency: true},
			reading.BrandSecure: {VoltageMinV: 220, VoltageMaxV: 250},
			reading.BrandLNT:    {VoltageMinV: 220, VoltageMaxV: 250},
		},
	}
}

// fallbackBounds applies to brands without an explicit entry.
var fallbackBounds = Bounds{VoltageMinV: 200, VoltageMaxV: 250}

// Validate checks that the limits themselves make sense.
func (l Limits) Validate() error {
	if l.ActivePowerMaxKw <= 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "Limits", "Validate", "active_power_max_kw must be positive")
	}
	if l.FrequencyMinHz >= l.FrequencyMaxHz {
		return errors.Wrap(errors.ErrInvalidConfig, "Limits", "Validate", "frequency_min_hz must be below frequency_max_hz")
	}
	if l.THDVoltageMaxPercent <= 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "Limits", "Validate", "thd_voltage_max_percent must be positive")
	}
	if l.CostTolerance <= 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "Limits", "Validate", "cost_tolerance must be positive")
	}
	for brand, b := range l.Brands {
		if b.VoltageMinV <= 0 || b.VoltageMinV >= b.VoltageMaxV {
			return errors.Wrap(errors.ErrInvalidConfig, "Limits", "Validate",
				fmt.Sprintf("voltage window for %s is empty", brand))
		}
	}
	return nil
}

// Violation describes one failed constraint.
type Violation struct {
	Field      string  `json:"field"`
	Constraint string  `json:"constraint"`
	Value      float64 `json:"value"`
}

// String renders the violation for logs and error messages.
func (v Violation) String() string {
	return fmt.Sprintf("%s=%g violates %s", v.Field, v.Value, v.Constraint)
}

// Validator checks canonical readings. It holds no mutable state and is safe
// for concurrent use.
type Validator struct {
	limits Limits
}

// New creates a Validator. The brand map is copied.
func New(limits Limits) (*Validator, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	brands := make(map[reading.Brand]Bounds, len(limits.Brands))
	for k, v := range limits.Brands {
		brands[k] = v
	}
	limits.Brands = brands
	return &Validator{limits: limits}, nil
}

// BoundsFor returns the vendor-specific bounds used for brand.
func (v *Validator) BoundsFor(brand reading.Brand) Bounds {
	if b, ok := v.limits.Brands[brand]; ok {
		return b
	}
	return fallbackBounds
}

// Validate returns every constraint r violates. An empty result means the
// reading is valid.
func (v *Validator) Validate(r *reading.Reading) []Violation {
	if r == nil {
		return []Violation{{Field: "reading", Constraint: "present"}}
	}

	var out []Violation
	add := func(field, constraint string, value float64) {
		out = append(out, Violation{Field: field, Constraint: constraint, Value: value})
	}

	if strings.TrimSpace(r.MeterID) == "" {
		add("meter_id", "non-empty", 0)
	}

	bounds := v.BoundsFor(r.Brand)

	if r.DataType == reading.DataTypeCurrent && r.Instantaneous == nil {
		add("instantaneous", "present for current readings", 0)
	}

	if in := r.Instantaneous; in != nil {
		if !(in.ActivePowerKw > 0 && in.ActivePowerKw < v.limits.ActivePowerMaxKw) {
			add("active_power_kw", fmt.Sprintf("0 < x < %g", v.limits.ActivePowerMaxKw), in.ActivePowerKw)
		}
		if in.VoltageV < bounds.VoltageMinV || in.VoltageV > bounds.VoltageMaxV || math.IsNaN(in.VoltageV) {
			add("voltage_v", fmt.Sprintf("%g <= x <= %g", bounds.VoltageMinV, bounds.VoltageMaxV), in.VoltageV)
		}
		if !(in.FrequencyHz > v.limits.FrequencyMinHz && in.FrequencyHz < v.limits.FrequencyMaxHz) {
			add("frequency_hz", fmt.Sprintf("%g < x < %g", v.limits.FrequencyMinHz, v.limits.FrequencyMaxHz), in.FrequencyHz)
		}
		if !(in.PowerFactor > 0 && in.PowerFactor <= 1) {
			add("power_factor", "0 < x <= 1", in.PowerFactor)
		}
		if in.CurrentA != nil && *in.CurrentA < 0 {
			add("current_a", "x >= 0", *in.CurrentA)
		}

		if p := r.Power; p != nil && p.ApparentPowerKva < in.ActivePowerKw {
			add("apparent_power_kva", "x >= active_power_kw", p.ApparentPowerKva)
		}
	}

	if e := r.Energy; e != nil {
		if !(e.ActiveEnergyTodayKwh >= 0) {
			add("active_energy_today_kwh", "x >= 0", e.ActiveEnergyTodayKwh)
		}
		if e.ActiveEnergyTotalKwh != nil && *e.ActiveEnergyTotalKwh < e.ActiveEnergyTodayKwh {
			add("active_energy_total_kwh", "x >= active_energy_today_kwh", *e.ActiveEnergyTotalKwh)
		}
	}

	if b := r.Billing; b != nil {
		if !(b.CostToday >= 0) {
			add("cost_today", "x >= 0", b.CostToday)
		}
		if !(b.TariffRate > 0) {
			add("tariff_rate", "x > 0", b.TariffRate)
		}
		if bounds.CheckCostConsistency && r.Energy != nil {
			if diff := costDeviation(b.CostToday, r.Energy.ActiveEnergyTodayKwh, b.TariffRate); diff.GreaterThanOrEqual(decimal.NewFromFloat(v.limits.CostTolerance)) {
				add("cost_today", fmt.Sprintf("|cost_today - energy_today * tariff_rate| < %g", v.limits.CostTolerance), diff.InexactFloat64())
			}
		}
	}

	if pq := r.PowerQuality; pq != nil {
		if !(pq.THDVoltagePercent >= 0 && pq.THDVoltagePercent < v.limits.THDVoltageMaxPercent) {
			add("thd_voltage_percent", fmt.Sprintf("0 <= x < %g", v.limits.THDVoltageMaxPercent), pq.THDVoltagePercent)
		}
		if !(pq.THDCurrentPercent >= 0) {
			add("thd_current_percent", "x >= 0", pq.THDCurrentPercent)
		}
	}

	if r.DataType == reading.DataTypeHistorical || r.History != nil {
		out = append(out, v.validateHistory(r.History)...)
	}

	return out
}

func (v *Validator) validateHistory(history []reading.HourlyReading) []Violation {
	var out []Violation
	if len(history) != reading.HistoryLength {
		out = append(out, Violation{
			Field:      "history",
			Constraint: fmt.Sprintf("exactly %d hourly readings", reading.HistoryLength),
			Value:      float64(len(history)),
		})
	}
	for i, h := range history {
		field := fmt.Sprintf("history[%d]", i)
		if h.Timestamp.IsZero() {
			out = append(out, Violation{Field: field + ".timestamp", Constraint: "parseable timestamp"})
		} else if i > 0 && !h.Timestamp.After(history[i-1].Timestamp) {
			out = append(out, Violation{Field: field + ".timestamp", Constraint: "chronological order", Value: float64(h.Timestamp.Unix())})
		}
		if !(h.EnergyKwh >= 0) {
			out = append(out, Violation{Field: field + ".energy_kwh", Constraint: "x >= 0", Value: h.EnergyKwh})
		}
		if !(h.CostINR >= 0) {
			out = append(out, Violation{Field: field + ".cost_inr", Constraint: "x >= 0", Value: h.CostINR})
		}
	}
	return out
}

// costDeviation returns |cost - energy*tariff| using decimal arithmetic so
// the tolerance check is not skewed by float rounding.
func costDeviation(cost, energyKwh, tariff float64) decimal.Decimal {
	expected := decimal.NewFromFloat(energyKwh).Mul(decimal.NewFromFloat(tariff))
	return decimal.NewFromFloat(cost).Sub(expected).Abs()
}

// Error turns violations into an upstream-data-invalid error for brand.
// It returns nil when there are no violations.
func Error(brand reading.Brand, violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	parts := make([]string, len(violations))
	for i, v := range violations {
		parts[i] = v.String()
	}
	return errors.UpstreamDataInvalid(
		fmt.Errorf("%w: %s", errors.ErrReadingInvalid, strings.Join(parts, "; ")),
		"Validator", "Validate",
		fmt.Sprintf("Upstream data invalid for %s meter: %s", brand, strings.Join(parts, "; ")))
}
