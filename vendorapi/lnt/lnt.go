// Package lnt adapts the Larsen & Toubro meter API. Requests name a vendor
// "function" rather than a data type, the API key travels in the L-T-API-Key
// header, and error bodies carry a machine-readable code that is passed
// through to callers unchanged.
package lnt

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
	"github.com/YGNTECHSTARTUP/ecoquest/reading"
	"github.com/YGNTECHSTARTUP/ecoquest/vendorapi"
)

// Path is the L&T meter endpoint.
const Path = "/lntMeterApi"

// KeyHeader carries the API key.
const KeyHeader = "L-T-API-Key"

// Vendor functions and error codes.
const (
	FunctionRead         = "read"
	FunctionPowerQuality = "power_quality"

	CodeInvalidFunction = "INVALID_FUNCTION"
	CodeMissingMeterID  = "MISSING_METER_ID"
	CodeAuthFailed      = "AUTH_FAILED"
)

// Functions lists the vendor functions the adapter can call.
var Functions = mapset.NewSet(FunctionRead, FunctionPowerQuality)

var (
	//go:embed schema_read.json
	readSchemaSource string
	//go:embed schema_power_quality.json
	powerQualitySchemaSource string

	schemas = map[string]*vendorapi.Schema{
		FunctionRead:         vendorapi.MustSchema("lnt.read", readSchemaSource),
		FunctionPowerQuality: vendorapi.MustSchema("lnt.power_quality", powerQualitySchemaSource),
	}
)

// Adapter talks to the L&T API.
type Adapter struct {
	client *vendorapi.Client
	apiKey vendorapi.Credential
}

// New creates an L&T adapter.
func New(baseURL string, apiKey vendorapi.Credential, opts ...vendorapi.Option) *Adapter {
	return &Adapter{
		client: vendorapi.NewClient(reading.BrandLNT, baseURL, opts...),
		apiKey: apiKey,
	}
}

// Brand implements vendorapi.Adapter.
func (a *Adapter) Brand() reading.Brand { return reading.BrandLNT }

// Supports implements vendorapi.Adapter. The vendor's own function name "read"
// is accepted as an alias of current.
func (a *Adapter) Supports(dt reading.DataType) bool {
	_, ok := function(dt)
	return ok
}

// function maps a data type onto the vendor function that serves it.
func function(dt reading.DataType) (string, bool) {
	switch dt {
	case reading.DataTypeCurrent:
		return FunctionRead, true
	case reading.DataTypePowerQuality:
		return FunctionPowerQuality, true
	}
	fn := string(dt)
	return fn, Functions.Contains(fn)
}

// Fetch implements vendorapi.Adapter.
func (a *Adapter) Fetch(ctx context.Context, req vendorapi.Request) (*reading.Reading, error) {
	if strings.TrimSpace(req.MeterID) == "" {
		return nil, vendorapi.MissingID(reading.BrandLNT, "Meter ID required", CodeMissingMeterID)
	}
	fn, ok := function(req.DataType)
	if !ok {
		return nil, errors.BadRequest(
			fmt.Errorf("%w: %s", errors.ErrUnsupportedMode, req.DataType),
			"LNTAdapter", "Fetch",
			fmt.Sprintf("Invalid function: %s", req.DataType), CodeInvalidFunction)
	}

	raw, err := a.client.Get(ctx, vendorapi.Call{
		Path: Path,
		Query: url.Values{
			"meterId":  {req.MeterID},
			"function": {fn},
		},
		Header: http.Header{KeyHeader: {a.apiKey.Reveal()}},
		Schema: schemas[fn],
	})
	if err != nil {
		return nil, err
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, vendorapi.Malformed(reading.BrandLNT, err)
	}
	ts, err := vendorapi.ParseTimestamp(p.Timestamp, time.Now().UTC())
	if err != nil {
		return nil, vendorapi.Malformed(reading.BrandLNT, fmt.Errorf("timestamp: %w", err))
	}

	r := &reading.Reading{
		MeterID:   req.MeterID,
		Brand:     reading.BrandLNT,
		Timestamp: ts,
		Raw:       raw,
	}
	if p.MeterID != "" {
		r.MeterID = p.MeterID
	}

	if fn == FunctionPowerQuality {
		var d powerQualityData
		if err := json.Unmarshal(p.Data, &d); err != nil {
			return nil, vendorapi.Malformed(reading.BrandLNT, err)
		}
		r.DataType = reading.DataTypePowerQuality
		r.PowerQuality = d.toPowerQuality()
		return r, nil
	}

	var d readData
	if err := json.Unmarshal(p.Data, &d); err != nil {
		return nil, vendorapi.Malformed(reading.BrandLNT, err)
	}
	r.DataType = reading.DataTypeCurrent
	d.fill(r)
	return r, nil
}

type payload struct {
	Status       string          `json:"status"`
	MeterID      string          `json:"meter_id"`
	Manufacturer string          `json:"manufacturer"`
	Timestamp    string          `json:"timestamp"`
	Data         json.RawMessage `json:"data"`
}

type phaseValues struct {
	PhaseR  float64 `json:"phase_r"`
	PhaseY  float64 `json:"phase_y"`
	PhaseB  float64 `json:"phase_b"`
	Average float64 `json:"average"`
}

type readData struct {
	ElectricalParameters struct {
		Voltage phaseValues  `json:"voltage"`
		Current *phaseValues `json:"current"`
		Power   struct {
			ActiveKw     float64  `json:"active_kw"`
			ReactiveKvar float64  `json:"reactive_kvar"`
			ApparentKva  *float64 `json:"apparent_kva"`
			PowerFactor  float64  `json:"power_factor"`
		} `json:"power"`
		FrequencyHz float64 `json:"frequency_hz"`
	} `json:"electrical_parameters"`
	EnergyRegisters struct {
		TodayKwh        float64  `json:"today_kwh"`
		ActiveImportKwh *float64 `json:"active_import_kwh"`
	} `json:"energy_registers"`
	DeviceStatus map[string]any `json:"device_status"`
}

func (d readData) fill(r *reading.Reading) {
	ep := d.ElectricalParameters
	r.Instantaneous = &reading.Instantaneous{
		ActivePowerKw: ep.Power.ActiveKw,
		VoltageV:      ep.Voltage.Average,
		FrequencyHz:   ep.FrequencyHz,
		PowerFactor:   ep.Power.PowerFactor,
	}
	r.Energy = &reading.Energy{
		ActiveEnergyTodayKwh: d.EnergyRegisters.TodayKwh,
		ActiveEnergyTotalKwh: d.EnergyRegisters.ActiveImportKwh,
	}
	if ep.Power.ApparentKva != nil {
		r.Power = &reading.Power{ApparentPowerKva: *ep.Power.ApparentKva, ReactivePowerKvar: ep.Power.ReactiveKvar}
	}

	phases := &reading.Phases{VoltageR: ep.Voltage.PhaseR, VoltageY: ep.Voltage.PhaseY, VoltageB: ep.Voltage.PhaseB}
	if c := ep.Current; c != nil {
		r.Instantaneous.CurrentA = reading.Float(c.Average)
		phases.CurrentR, phases.CurrentY, phases.CurrentB = c.PhaseR, c.PhaseY, c.PhaseB
	}
	r.Phases = phases

	if len(d.DeviceStatus) > 0 {
		r.DeviceStatus = make(map[string]string, len(d.DeviceStatus))
		for k, v := range d.DeviceStatus {
			r.DeviceStatus[k] = fmt.Sprint(v)
		}
	}
}

type powerQualityData struct {
	VoltageQuality struct {
		THDPercent       float64 `json:"thd_v_percent"`
		UnbalancePercent float64 `json:"unbalance_percent"`
		SagEvents24h     int     `json:"sag_events_24h"`
		SwellEvents24h   int     `json:"swell_events_24h"`
	} `json:"voltage_quality"`
	CurrentQuality struct {
		THDPercent       float64 `json:"thd_i_percent"`
		UnbalancePercent float64 `json:"unbalance_percent"`
	} `json:"current_quality"`
	HarmonicAnalysis struct {
		VoltageHarmonics map[string]float64 `json:"voltage_harmonics"`
		CurrentHarmonics map[string]float64 `json:"current_harmonics"`
	} `json:"harmonic_analysis"`
}

func (d powerQualityData) toPowerQuality() *reading.PowerQuality {
	return &reading.PowerQuality{
		THDVoltagePercent:       d.VoltageQuality.THDPercent,
		THDCurrentPercent:       d.CurrentQuality.THDPercent,
		VoltageUnbalancePercent: d.VoltageQuality.UnbalancePercent,
		CurrentUnbalancePercent: d.CurrentQuality.UnbalancePercent,
		SagEvents24h:            d.VoltageQuality.SagEvents24h,
		SwellEvents24h:          d.VoltageQuality.SwellEvents24h,
		VoltageHarmonics:        d.HarmonicAnalysis.VoltageHarmonics,
		CurrentHarmonics:        d.HarmonicAnalysis.CurrentHarmonics,
	}
}
