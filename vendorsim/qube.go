package vendorsim

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/YGNTECHSTARTUP/ecoquest/reading"
)

type qubeResponse struct {
	Status    string   `json:"status"`
	MeterID   string   `json:"meter_id"`
	Brand     string   `json:"brand"`
	Timestamp string   `json:"timestamp"`
	Data      qubeData `json:"data"`
}

type qubeData struct {
	Instantaneous struct {
		ActivePower float64 `json:"active_power"`
		Voltage     float64 `json:"voltage"`
		Current     float64 `json:"current"`
		Frequency   float64 `json:"frequency"`
		PowerFactor float64 `json:"power_factor"`
	} `json:"instantaneous"`
	Energy struct {
		ActiveEnergyToday float64 `json:"active_energy_today"`
		ActiveEnergyTotal float64 `json:"active_energy_total"`
	} `json:"energy"`
	Billing struct {
		CostToday  float64 `json:"cost_today"`
		TariffRate float64 `json:"tariff_rate"`
		Currency   string  `json:"currency"`
	} `json:"billing"`
}

func (s *Simulator) handleQube(c *gin.Context) {
	meterID := strings.TrimSpace(c.Query("meterId"))
	if meterID == "" {
		fail(c, http.StatusBadRequest, "Meter ID required", "")
		return
	}
	if c.Query("apiKey") != s.config.QubeAPIKey {
		fail(c, http.StatusUnauthorized, "Invalid API key", "")
		return
	}
	if !reading.ValidMeterID(meterID) {
		invalidMeterID(c, "")
		return
	}
	if !delay(c.Request.Context(), s.config.Latency) {
		return
	}

	now := s.clock()
	c.JSON(http.StatusOK, s.qubeReading(meterID, now))
}

func (s *Simulator) qubeReading(meterID string, now time.Time) qubeResponse {
	t := simulatedTime(meterID, now)

	power := LoadKw(meterID, t)
	voltage := around(meterID, t, "voltage", 230, 8)
	pf := around(meterID, t, "pf", 0.92, 0.04)
	energy := EnergyTodayKwh(meterID, t)

	var d qubeData
	d.Instantaneous.ActivePower = round(power, 3)
	d.Instantaneous.Voltage = round(voltage, 1)
	d.Instantaneous.Current = round(power*1000/(voltage*pf), 2)
	d.Instantaneous.Frequency = round(around(meterID, t, "freq", 50, 0.15), 2)
	d.Instantaneous.PowerFactor = round(pf, 3)
	d.Energy.ActiveEnergyToday = energy.InexactFloat64()
	d.Energy.ActiveEnergyTotal = round(10000+5000*meterSeed(meterID), 2) + energy.InexactFloat64()
	d.Billing.CostToday = Cost(energy, s.config.TariffINRPerKwh).InexactFloat64()
	d.Billing.TariffRate = s.config.TariffINRPerKwh
	d.Billing.Currency = "INR"

	return qubeResponse{
		Status:    "success",
		MeterID:   meterID,
		Brand:     reading.BrandQube.DisplayName(),
		Timestamp: timestamp(t),
		Data:      d,
	}
}
