package vendorsim

import (
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BaseLoadKw is the household load the hour multipliers scale.
const BaseLoadKw = 2.0

// blendWindow is how long before the hour the load starts moving towards
// the next hour's multiplier.
const blendWindow = 10 * time.Minute

// testHourPrefix pins the simulated hour for meters named TEST_HOUR_<h>.
const testHourPrefix = "TEST_HOUR_"

// hourMultiplier returns the daily load shape for hour h (0-23).
func hourMultiplier(h int) float64 {
	switch {
	case h >= 23 || h <= 5:
		return 0.3
	case h >= 6 && h <= 9:
		return 1.4
	case h >= 12 && h <= 14:
		return 1.2
	case h >= 19 && h <= 22:
		return 1.7
	default:
		return 1.0
	}
}

// loadMultiplier is hourMultiplier with a linear ramp over the last
// blendWindow of each hour, so the load never steps.
func loadMultiplier(t time.Time) float64 {
	cur := hourMultiplier(t.Hour())
	intoHour := time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
	rampStart := time.Hour - blendWindow
	if intoHour < rampStart {
		return cur
	}
	next := hourMultiplier((t.Hour() + 1) % 24)
	frac := float64(intoHour-rampStart) / float64(blendWindow)
	return cur + (next-cur)*frac
}

func weekendFactor(t time.Time) float64 {
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return 0.8
	}
	return 1.0
}

// jitter returns a deterministic value in [-1, 1] for a meter, a minute and
// a quantity name.
func jitter(meterID string, minute int64, quantity string) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(meterID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(quantity))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.FormatInt(minute, 10)))
	return float64(h.Sum64()%20001)/10000 - 1
}

// meterSeed is a stable per-meter value in [0, 1).
func meterSeed(meterID string) float64 {
	return (jitter(meterID, 0, "seed") + 1) / 2.0001
}

// LoadKw is the active power of meterID at t: the base load shaped by hour
// and weekday, with ±5% noise that changes once a minute.
func LoadKw(meterID string, t time.Time) float64 {
	noise := 1 + 0.05*jitter(meterID, t.Unix()/60, "load")
	return BaseLoadKw * loadMultiplier(t) * weekendFactor(t) * noise
}

// EnergyTodayKwh integrates LoadKw from local midnight to t, one minute at
// a time, rounded to 0.01 kWh.
func EnergyTodayKwh(meterID string, t time.Time) decimal.Decimal {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	var kwh float64
	for m := midnight; m.Before(t); m = m.Add(time.Minute) {
		step := time.Minute
		if rest := t.Sub(m); rest < step {
			step = rest
		}
		kwh += LoadKw(meterID, m) * step.Hours()
	}
	return decimal.NewFromFloat(kwh).Round(2)
}

// HourEnergyKwh is the energy meterID used in the hour starting at start.
func HourEnergyKwh(meterID string, start time.Time) decimal.Decimal {
	var kwh float64
	for m := 0; m < 60; m++ {
		kwh += LoadKw(meterID, start.Add(time.Duration(m)*time.Minute)) / 60
	}
	return decimal.NewFromFloat(kwh).Round(3)
}

// Cost prices energy at tariff, rounded to paise.
func Cost(energy decimal.Decimal, tariff float64) decimal.Decimal {
	return energy.Mul(decimal.NewFromFloat(tariff)).Round(2)
}

// around returns centre ± spread, varied per meter and minute.
func around(meterID string, t time.Time, quantity string, centre, spread float64) float64 {
	return centre + spread*jitter(meterID, t.Unix()/60, quantity)
}

// round returns v to places decimal places.
func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// simulatedTime applies the TEST_HOUR_<h> override: the clock keeps its
// date but reads h:30.
func simulatedTime(meterID string, now time.Time) time.Time {
	rest, ok := strings.CutPrefix(meterID, testHourPrefix)
	if !ok {
		return now
	}
	h, err := strconv.Atoi(rest)
	if err != nil || h < 0 || h > 23 {
		return now
	}
	return time.Date(now.Year(), now.Month(), now.Day(), h, 30, 0, 0, now.Location())
}

// apparent returns apparent and reactive power for active power p at power
// factor pf.
func apparent(p, pf float64) (kva, kvar float64) {
	kva = p / pf
	kvar = math.Sqrt(math.Max(kva*kva-p*p, 0))
	return kva, kvar
}
