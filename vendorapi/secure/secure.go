// Package secure adapts the Secure Meters device API. The token travels in
// the X-Secure-Token header. Besides current readings the vendor serves a
// 24-hour hourly history.
package secure

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/YGNTECHSTARTUP/ecoquest/reading"
	"github.com/YGNTECHSTARTUP/ecoquest/vendorapi"
)

// Path is the Secure Meters data endpoint.
const Path = "/secureMetersData"

// TokenHeader carries the device token.
const TokenHeader = "X-Secure-Token"

var (
	//go:embed schema_current.json
	currentSchemaSource string
	//go:embed schema_historical.json
	historicalSchemaSource string

	currentSchema    = vendorapi.MustSchema("secure.current", currentSchemaSource)
	historicalSchema = vendorapi.MustSchema("secure.historical", historicalSchemaSource)
)

var supported = mapset.NewSet(reading.DataTypeCurrent, reading.DataTypeHistorical)

// Adapter talks to the Secure Meters API.
type Adapter struct {
	client *vendorapi.Client
	token  vendorapi.Credential
}

// New creates a Secure Meters adapter.
func New(baseURL string, token vendorapi.Credential, opts ...vendorapi.Option) *Adapter {
	return &Adapter{
		client: vendorapi.NewClient(reading.BrandSecure, baseURL, opts...),
		token:  token,
	}
}

// Brand implements vendorapi.Adapter.
func (a *Adapter) Brand() reading.Brand { return reading.BrandSecure }

// Supports implements vendorapi.Adapter.
func (a *Adapter) Supports(dt reading.DataType) bool { return supported.Contains(dt) }

// Fetch implements vendorapi.Adapter.
func (a *Adapter) Fetch(ctx context.Context, req vendorapi.Request) (*reading.Reading, error) {
	if strings.TrimSpace(req.MeterID) == "" {
		return nil, vendorapi.MissingID(reading.BrandSecure, "Device ID required", "")
	}
	if !a.Supports(req.DataType) {
		return nil, vendorapi.UnsupportedDataType(reading.BrandSecure, req.DataType)
	}

	schema := currentSchema
	if req.DataType == reading.DataTypeHistorical {
		schema = historicalSchema
	}

	raw, err := a.client.Get(ctx, vendorapi.Call{
		Path: Path,
		Query: url.Values{
			"deviceId": {req.MeterID},
			"dataType": {string(req.DataType)},
		},
		Header: http.Header{TokenHeader: {a.token.Reveal()}},
		Schema: schema,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var r *reading.Reading
	if req.DataType == reading.DataTypeHistorical {
		var p historicalPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, vendorapi.Malformed(reading.BrandSecure, err)
		}
		r = p.toReading(req, now)
	} else {
		var p currentPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, vendorapi.Malformed(reading.BrandSecure, err)
		}
		if r, err = p.toReading(req, now); err != nil {
			return nil, vendorapi.Malformed(reading.BrandSecure, err)
		}
	}
	r.Raw = raw
	return r, nil
}

type currentPayload struct {
	DeviceID  string `json:"device_id"`
	Timestamp string `json:"timestamp"`
	Readings  struct {
		ActivePowerKw   float64  `json:"active_power_kw"`
		VoltageV        float64  `json:"voltage_v"`
		CurrentA        *float64 `json:"current_a"`
		FrequencyHz     float64  `json:"frequency_hz"`
		PowerFactor     float64  `json:"power_factor"`
		EnergyTodayKwh  float64  `json:"energy_today_kwh"`
		CostTodayINR    *float64 `json:"cost_today_inr"`
		TariffINRPerKwh *float64 `json:"tariff_inr_per_kwh"`
	} `json:"readings"`
	Status *struct {
		ConnectionQuality string   `json:"connection_quality"`
		SignalStrengthDbm *float64 `json:"signal_strength_dbm"`
		LastCommunication string   `json:"last_communication"`
	} `json:"status"`
}

func (p currentPayload) toReading(req vendorapi.Request, now time.Time) (*reading.Reading, error) {
	ts, err := vendorapi.ParseTimestamp(p.Timestamp, now)
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}

	rd := p.Readings
	r := &reading.Reading{
		MeterID:   firstNonEmpty(p.DeviceID, req.MeterID),
		Brand:     reading.BrandSecure,
		DataType:  reading.DataTypeCurrent,
		Timestamp: ts,
		Instantaneous: &reading.Instantaneous{
			ActivePowerKw: rd.ActivePowerKw,
			VoltageV:      rd.VoltageV,
			FrequencyHz:   rd.FrequencyHz,
			PowerFactor:   rd.PowerFactor,
			CurrentA:      rd.CurrentA,
		},
		Energy: &reading.Energy{ActiveEnergyTodayKwh: rd.EnergyTodayKwh},
	}
	if rd.CostTodayINR != nil && rd.TariffINRPerKwh != nil {
		r.Billing = &reading.Billing{CostToday: *rd.CostTodayINR, TariffRate: *rd.TariffINRPerKwh, Currency: "INR"}
	}
	if s := p.Status; s != nil {
		status := map[string]string{}
		if s.ConnectionQuality != "" {
			status["connection_quality"] = s.ConnectionQuality
		}
		if s.SignalStrengthDbm != nil {
			status["signal_strength_dbm"] = strconv.FormatFloat(*s.SignalStrengthDbm, 'f', -1, 64)
		}
		if s.LastCommunication != "" {
			status["last_communication"] = s.LastCommunication
		}
		if len(status) > 0 {
			r.DeviceStatus = status
		}
	}
	return r, nil
}

type historicalPayload struct {
	DeviceID string `json:"device_id"`
	Period   string `json:"period"`
	Readings []struct {
		Timestamp string  `json:"timestamp"`
		EnergyKwh float64 `json:"energy_kwh"`
		CostINR   float64 `json:"cost_inr"`
		DemandKw  float64 `json:"demand_kw"`
	} `json:"readings"`
	Summary *struct {
		TotalEnergyKwh float64 `json:"total_energy_kwh"`
		TotalCostINR   float64 `json:"total_cost_inr"`
		PeakDemandKw   float64 `json:"peak_demand_kw"`
	} `json:"summary"`
}

// toReading never fails: an unparseable hourly timestamp is left zero so
// validation reports it as invalid data rather than a malformed payload.
func (p historicalPayload) toReading(req vendorapi.Request, now time.Time) *reading.Reading {
	history := make([]reading.HourlyReading, 0, len(p.Readings))
	for _, h := range p.Readings {
		ts, err := time.Parse(time.RFC3339Nano, h.Timestamp)
		if err != nil {
			ts = time.Time{}
		}
		history = append(history, reading.HourlyReading{
			Timestamp: ts,
			EnergyKwh: h.EnergyKwh,
			CostINR:   h.CostINR,
			DemandKw:  h.DemandKw,
		})
	}

	r := &reading.Reading{
		MeterID:   firstNonEmpty(p.DeviceID, req.MeterID),
		Brand:     reading.BrandSecure,
		DataType:  reading.DataTypeHistorical,
		Timestamp: now,
		History:   history,
	}
	if n := len(history); n > 0 && !history[n-1].Timestamp.IsZero() {
		r.Timestamp = history[n-1].Timestamp
	}
	if s := p.Summary; s != nil {
		r.HistorySummary = &reading.HistorySummary{
			Period:         p.Period,
			TotalEnergyKwh: s.TotalEnergyKwh,
			TotalCostINR:   s.TotalCostINR,
			PeakDemandKw:   s.PeakDemandKw,
		}
	}
	return r
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
