package vendorsim

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/YGNTECHSTARTUP/ecoquest/reading"
)

const secureTokenHeader = "X-Secure-Token"

type secureCurrent struct {
	Success      bool   `json:"success"`
	DeviceID     string `json:"device_id"`
	Manufacturer string `json:"manufacturer"`
	Timestamp    string `json:"timestamp"`
	Readings     struct {
		ActivePowerKw   float64 `json:"active_power_kw"`
		VoltageV        float64 `json:"voltage_v"`
		CurrentA        float64 `json:"current_a"`
		FrequencyHz     float64 `json:"frequency_hz"`
		PowerFactor     float64 `json:"power_factor"`
		EnergyTodayKwh  float64 `json:"energy_today_kwh"`
		CostTodayINR    float64 `json:"cost_today_inr"`
		TariffINRPerKwh float64 `json:"tariff_inr_per_kwh"`
	} `json:"readings"`
	Status struct {
		ConnectionQuality string  `json:"connection_quality"`
		SignalStrengthDbm float64 `json:"signal_strength_dbm"`
		LastCommunication string  `json:"last_communication"`
	} `json:"status"`
}

type secureHour struct {
	Timestamp string  `json:"timestamp"`
	EnergyKwh float64 `json:"energy_kwh"`
	CostINR   float64 `json:"cost_inr"`
	DemandKw  float64 `json:"demand_kw"`
}

type secureHistorical struct {
	Success      bool         `json:"success"`
	DeviceID     string       `json:"device_id"`
	Manufacturer string       `json:"manufacturer"`
	DataType     string       `json:"data_type"`
	Period       string       `json:"period"`
	Readings     []secureHour `json:"readings"`
	Summary      struct {
		TotalEnergyKwh float64 `json:"total_energy_kwh"`
		TotalCostINR   float64 `json:"total_cost_inr"`
		PeakDemandKw   float64 `json:"peak_demand_kw"`
		PeakHour       string  `json:"peak_hour"`
	} `json:"summary"`
}

// secureToken returns the token deviceID must present.
func (s *Simulator) secureToken(deviceID string) string {
	if tok, ok := s.config.SecureDeviceTokens[deviceID]; ok {
		return tok
	}
	return s.config.SecureToken
}

func (s *Simulator) handleSecure(c *gin.Context) {
	deviceID := strings.TrimSpace(c.Query("deviceId"))
	if deviceID == "" {
		fail(c, http.StatusBadRequest, "Device ID required", "")
		return
	}
	if c.GetHeader(secureTokenHeader) != s.secureToken(deviceID) {
		fail(c, http.StatusUnauthorized, "Unauthorized access", "")
		return
	}
	if !reading.ValidMeterID(deviceID) {
		invalidMeterID(c, "")
		return
	}
	dataType := c.DefaultQuery("dataType", "current")
	if !secureDataTypes.Contains(dataType) {
		fail(c, http.StatusBadRequest, "Invalid data type", "")
		return
	}

	wait := s.config.Latency
	if dataType == "historical" {
		wait += s.config.HistoricalLatency
	}
	if !delay(c.Request.Context(), wait) {
		return
	}

	now := s.clock()
	if dataType == "historical" {
		c.JSON(http.StatusOK, s.secureHistory(deviceID, now))
		return
	}
	c.JSON(http.StatusOK, s.secureReading(deviceID, now))
}

func (s *Simulator) secureReading(deviceID string, now time.Time) secureCurrent {
	t := simulatedTime(deviceID, now)
	power := LoadKw(deviceID, t)
	voltage := around(deviceID, t, "voltage", 234, 6)
	pf := around(deviceID, t, "pf", 0.9, 0.05)
	energy := EnergyTodayKwh(deviceID, t)

	r := secureCurrent{
		Success:      true,
		DeviceID:     deviceID,
		Manufacturer: reading.BrandSecure.DisplayName(),
		Timestamp:    timestamp(t),
	}
	r.Readings.ActivePowerKw = round(power, 3)
	r.Readings.VoltageV = round(voltage, 1)
	r.Readings.CurrentA = round(power*1000/(voltage*pf), 2)
	r.Readings.FrequencyHz = round(around(deviceID, t, "freq", 50, 0.2), 2)
	r.Readings.PowerFactor = round(pf, 3)
	r.Readings.EnergyTodayKwh = energy.InexactFloat64()
	r.Readings.CostTodayINR = Cost(energy, s.config.TariffINRPerKwh).InexactFloat64()
	r.Readings.TariffINRPerKwh = s.config.TariffINRPerKwh

	signal := around(deviceID, t, "signal", -68, 8)
	r.Status.SignalStrengthDbm = round(signal, 0)
	r.Status.ConnectionQuality = "good"
	if signal > -65 {
		r.Status.ConnectionQuality = "excellent"
	}
	r.Status.LastCommunication = timestamp(t.Add(-time.Duration(30+int(meterSeed(deviceID)*60)) * time.Second))
	return r
}

// secureHistory reports the 24 whole hours before now, oldest first.
func (s *Simulator) secureHistory(deviceID string, now time.Time) secureHistorical {
	t := simulatedTime(deviceID, now)
	end := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())

	h := secureHistorical{
		Success:      true,
		DeviceID:     deviceID,
		Manufacturer: reading.BrandSecure.DisplayName(),
		DataType:     "historical",
		Period:       "24_hours",
		Readings:     make([]secureHour, 0, reading.HistoryLength),
	}

	totalEnergy, totalCost := decimal.Zero, decimal.Zero
	var peak float64
	var peakAt time.Time
	for i := reading.HistoryLength; i > 0; i-- {
		start := end.Add(-time.Duration(i) * time.Hour)
		energy := HourEnergyKwh(deviceID, start)
		cost := Cost(energy, s.config.TariffINRPerKwh)
		demand := round(energy.InexactFloat64()*1.15, 3)

		h.Readings = append(h.Readings, secureHour{
			Timestamp: timestamp(start),
			EnergyKwh: energy.InexactFloat64(),
			CostINR:   cost.InexactFloat64(),
			DemandKw:  demand,
		})
		totalEnergy = totalEnergy.Add(energy)
		totalCost = totalCost.Add(cost)
		if demand > peak {
			peak, peakAt = demand, start
		}
	}

	h.Summary.TotalEnergyKwh = totalEnergy.Round(3).InexactFloat64()
	h.Summary.TotalCostINR = totalCost.Round(2).InexactFloat64()
	h.Summary.PeakDemandKw = peak
	h.Summary.PeakHour = fmt.Sprintf("%02d:00", peakAt.Hour())
	return h
}
