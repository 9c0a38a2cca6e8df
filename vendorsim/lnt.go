package vendorsim

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/YGNTECHSTARTUP/ecoquest/reading"
)

const lntKeyHeader = "L-T-API-Key"

// L&T error codes.
const (
	CodeAuthFailed      = "AUTH_FAILED"
	CodeMissingMeterID  = "MISSING_METER_ID"
	CodeInvalidMeterID  = "INVALID_METER_ID"
	CodeInvalidFunction = "INVALID_FUNCTION"
)

type lntResponse struct {
	Status       string `json:"status"`
	Manufacturer string `json:"manufacturer"`
	MeterID      string `json:"meter_id"`
	Function     string `json:"function"`
	Timestamp    string `json:"timestamp"`
	Data         any    `json:"data"`
}

type lntPhases struct {
	PhaseR  float64 `json:"phase_r"`
	PhaseY  float64 `json:"phase_y"`
	PhaseB  float64 `json:"phase_b"`
	Average float64 `json:"average"`
}

type lntRead struct {
	ElectricalParameters struct {
		Voltage lntPhases `json:"voltage"`
		Current lntPhases `json:"current"`
		Power   struct {
			ActiveKw     float64 `json:"active_kw"`
			ReactiveKvar float64 `json:"reactive_kvar"`
			ApparentKva  float64 `json:"apparent_kva"`
			PowerFactor  float64 `json:"power_factor"`
		} `json:"power"`
		FrequencyHz float64 `json:"frequency_hz"`
	} `json:"electrical_parameters"`
	EnergyRegisters struct {
		TodayKwh        float64 `json:"today_kwh"`
		ActiveImportKwh float64 `json:"active_import_kwh"`
		ActiveExportKwh float64 `json:"active_export_kwh"`
		ReactiveKvarh   float64 `json:"reactive_kvarh"`
	} `json:"energy_registers"`
	DeviceStatus map[string]any `json:"device_status"`
}

type lntPowerQuality struct {
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

func (s *Simulator) handleLNT(c *gin.Context) {
	if c.GetHeader(lntKeyHeader) != s.config.LNTAPIKey {
		fail(c, http.StatusUnauthorized, "Authentication failed", CodeAuthFailed)
		return
	}
	meterID := strings.TrimSpace(c.Query("meterId"))
	if meterID == "" {
		fail(c, http.StatusBadRequest, "Meter ID required", CodeMissingMeterID)
		return
	}
	if !reading.ValidMeterID(meterID) {
		invalidMeterID(c, CodeInvalidMeterID)
		return
	}
	function := c.DefaultQuery("function", "read")
	if !lntFunctions.Contains(function) {
		fail(c, http.StatusBadRequest, fmt.Sprintf("Invalid function: %s", function), CodeInvalidFunction)
		return
	}
	if !delay(c.Request.Context(), s.config.Latency) {
		return
	}

	now := s.clock()
	t := simulatedTime(meterID, now)
	resp := lntResponse{
		Status:       "success",
		Manufacturer: reading.BrandLNT.DisplayName(),
		MeterID:      meterID,
		Function:     function,
		Timestamp:    timestamp(t),
	}
	if function == "power_quality" {
		resp.Data = lntQuality(meterID, t)
	} else {
		resp.Data = lntReading(meterID, t)
	}
	c.JSON(http.StatusOK, resp)
}

func lntReading(meterID string, t time.Time) lntRead {
	var r lntRead
	ep := &r.ElectricalParameters

	ep.Voltage = lntPhases{
		PhaseR: round(around(meterID, t, "v_r", 232, 5), 1),
		PhaseY: round(around(meterID, t, "v_y", 232, 5), 1),
		PhaseB: round(around(meterID, t, "v_b", 232, 5), 1),
	}
	ep.Voltage.Average = round((ep.Voltage.PhaseR+ep.Voltage.PhaseY+ep.Voltage.PhaseB)/3, 1)

	power := LoadKw(meterID, t)
	pf := around(meterID, t, "pf", 0.88, 0.06)
	kva, kvar := apparent(power, pf)

	perPhaseA := power * 1000 / 3 / (ep.Voltage.Average * pf)
	ep.Current = lntPhases{
		PhaseR: round(perPhaseA*(1+0.03*jitter(meterID, t.Unix()/60, "i_r")), 2),
		PhaseY: round(perPhaseA*(1+0.03*jitter(meterID, t.Unix()/60, "i_y")), 2),
		PhaseB: round(perPhaseA*(1+0.03*jitter(meterID, t.Unix()/60, "i_b")), 2),
	}
	ep.Current.Average = round((ep.Current.PhaseR+ep.Current.PhaseY+ep.Current.PhaseB)/3, 2)

	ep.Power.ActiveKw = round(power, 3)
	ep.Power.ApparentKva = round(kva, 3)
	ep.Power.ReactiveKvar = round(kvar, 3)
	ep.Power.PowerFactor = round(pf, 3)
	ep.FrequencyHz = round(around(meterID, t, "freq", 50, 0.1), 2)

	today := EnergyTodayKwh(meterID, t).InexactFloat64()
	r.EnergyRegisters.TodayKwh = today
	r.EnergyRegisters.ActiveImportKwh = round(25000+10000*meterSeed(meterID)+today, 2)
	r.EnergyRegisters.ReactiveKvarh = round(today*0.35, 2)

	r.DeviceStatus = map[string]any{
		"communication":    "online",
		"tamper_status":    "normal",
		"battery_level":    95 + int(meterSeed(meterID)*5),
		"firmware_version": "LT-4.2.1",
	}
	return r
}

func lntQuality(meterID string, t time.Time) lntPowerQuality {
	var q lntPowerQuality
	minute := t.Unix() / 60

	q.VoltageQuality.THDPercent = round(around(meterID, t, "thd_v", 3, 1.5), 2)
	q.VoltageQuality.UnbalancePercent = round(around(meterID, t, "unb_v", 1.2, 0.8), 2)
	q.VoltageQuality.SagEvents24h = int(meterSeed(meterID) * 4)
	q.VoltageQuality.SwellEvents24h = int(meterSeed(meterID+"swell") * 2)

	q.CurrentQuality.THDPercent = round(around(meterID, t, "thd_i", 9, 4), 2)
	q.CurrentQuality.UnbalancePercent = round(around(meterID, t, "unb_i", 4, 2), 2)

	q.HarmonicAnalysis.VoltageHarmonics = map[string]float64{}
	q.HarmonicAnalysis.CurrentHarmonics = map[string]float64{}
	for i, order := range []int{3, 5, 7, 11} {
		scale := 1 / float64(i+1)
		key := fmt.Sprintf("h%d", order)
		q.HarmonicAnalysis.VoltageHarmonics[key] = round(1.6*scale*(1+0.2*jitter(meterID, minute, "vh"+key)), 2)
		q.HarmonicAnalysis.CurrentHarmonics[key] = round(6*scale*(1+0.2*jitter(meterID, minute, "ih"+key)), 2)
	}
	return q
}
