// Package qube adapts the Qube real-time meter API. The API key travels in
// the query string and only current readings are available.
package qube

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/YGNTECHSTARTUP/ecoquest/reading"
	"github.com/YGNTECHSTARTUP/ecoquest/vendorapi"
)

// Path is the Qube real-time endpoint.
const Path = "/qubeRealTimeData"

//go:embed schema.json
var schemaSource string

var payloadSchema = vendorapi.MustSchema("qube", schemaSource)

// Adapter talks to the Qube API.
type Adapter struct {
	client *vendorapi.Client
	apiKey vendorapi.Credential
}

// New creates a Qube adapter.
func New(baseURL string, apiKey vendorapi.Credential, opts ...vendorapi.Option) *Adapter {
	return &Adapter{
		client: vendorapi.NewClient(reading.BrandQube, baseURL, opts...),
		apiKey: apiKey,
	}
}

// Brand implements vendorapi.Adapter.
func (a *Adapter) Brand() reading.Brand { return reading.BrandQube }

// Supports implements vendorapi.Adapter.
func (a *Adapter) Supports(dt reading.DataType) bool { return dt == reading.DataTypeCurrent }

// Fetch implements vendorapi.Adapter.
func (a *Adapter) Fetch(ctx context.Context, req vendorapi.Request) (*reading.Reading, error) {
	if strings.TrimSpace(req.MeterID) == "" {
		return nil, vendorapi.MissingID(reading.BrandQube, "Meter ID required", "")
	}
	if !a.Supports(req.DataType) {
		return nil, vendorapi.UnsupportedDataType(reading.BrandQube, req.DataType)
	}

	raw, err := a.client.Get(ctx, vendorapi.Call{
		Path: Path,
		Query: url.Values{
			"meterId": {req.MeterID},
			"apiKey":  {a.apiKey.Reveal()},
		},
		Schema: payloadSchema,
	})
	if err != nil {
		return nil, err
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, vendorapi.Malformed(reading.BrandQube, err)
	}
	r, err := p.toReading(req, time.Now().UTC())
	if err != nil {
		return nil, vendorapi.Malformed(reading.BrandQube, err)
	}
	r.Raw = raw
	return r, nil
}

type payload struct {
	Status    string `json:"status"`
	MeterID   string `json:"meter_id"`
	Brand     string `json:"brand"`
	Timestamp string `json:"timestamp"`
	Data      struct {
		Instantaneous struct {
			ActivePower float64  `json:"active_power"`
			Voltage     float64  `json:"voltage"`
			Current     *float64 `json:"current"`
			Frequency   float64  `json:"frequency"`
			PowerFactor float64  `json:"power_factor"`
		} `json:"instantaneous"`
		Energy struct {
			ActiveEnergyToday float64  `json:"active_energy_today"`
			ActiveEnergyTotal *float64 `json:"active_energy_total"`
		} `json:"energy"`
		Billing *struct {
			CostToday  float64 `json:"cost_today"`
			TariffRate float64 `json:"tariff_rate"`
			Currency   string  `json:"currency"`
		} `json:"billing"`
	} `json:"data"`
}

func (p payload) toReading(req vendorapi.Request, now time.Time) (*reading.Reading, error) {
	ts, err := vendorapi.ParseTimestamp(p.Timestamp, now)
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}

	meterID := p.MeterID
	if meterID == "" {
		meterID = req.MeterID
	}

	in := p.Data.Instantaneous
	r := &reading.Reading{
		MeterID:   meterID,
		Brand:     reading.BrandQube,
		DataType:  reading.DataTypeCurrent,
		Timestamp: ts,
		Instantaneous: &reading.Instantaneous{
			ActivePowerKw: in.ActivePower,
			VoltageV:      in.Voltage,
			FrequencyHz:   in.Frequency,
			PowerFactor:   in.PowerFactor,
			CurrentA:      in.Current,
		},
		Energy: &reading.Energy{
			ActiveEnergyTodayKwh: p.Data.Energy.ActiveEnergyToday,
			ActiveEnergyTotalKwh: p.Data.Energy.ActiveEnergyTotal,
		},
	}
	if b := p.Data.Billing; b != nil {
		r.Billing = &reading.Billing{CostToday: b.CostToday, TariffRate: b.TariffRate, Currency: b.Currency}
	}
	return r, nil
}
