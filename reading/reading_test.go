package reading

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBrand(t *testing.T) {
	tests := []struct {
		in    string
		want  Brand
		valid bool
	}{
		{"QUBE", BrandQube, true},
		{"qube", BrandQube, true},
		{"  Secure ", BrandSecure, true},
		{"lnt", BrandLNT, true},
		{"LnT", BrandLNT, true},
		{"UNSUPPORTED_BRAND", "", false},
		{"", "", false},
		{"L&T", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseBrand(tt.in)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBrand_DisplayName(t *testing.T) {
	assert.Equal(t, "Qube", BrandQube.DisplayName())
	assert.Equal(t, "Secure Meters Ltd", BrandSecure.DisplayName())
	assert.Equal(t, "Larsen & Toubro", BrandLNT.DisplayName())
}

func TestParseDataType(t *testing.T) {
	assert.Equal(t, DataTypeCurrent, ParseDataType(""))
	assert.Equal(t, DataTypeHistorical, ParseDataType(" Historical "))
	assert.Equal(t, DataTypePowerQuality, ParseDataType("power_quality"))
	assert.Equal(t, DataType("invalid_function"), ParseDataType("invalid_function"))
}

func TestValidMeterID(t *testing.T) {
	valid := []string{"QUBE_001_TEST", "SEC_001_TEST", "LNT_001_TEST", "TEST_HOUR_5", "UNKNOWN_001", "QUBE_001_TEST_9"}
	invalid := []string{"", "123", "invalid-format", "abc", "_LEADING", "has space"}

	for _, id := range valid {
		assert.True(t, ValidMeterID(id), id)
	}
	for _, id := range invalid {
		assert.False(t, ValidMeterID(id), id)
	}
}

func TestReading_JSONOmitsAbsentSections(t *testing.T) {
	r := Reading{
		MeterID:   "LNT_001_TEST",
		Brand:     BrandLNT,
		DataType:  DataTypeCurrent,
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Instantaneous: &Instantaneous{
			ActivePowerKw: 2.4,
			VoltageV:      231.5,
			FrequencyHz:   50.01,
			PowerFactor:   0.93,
		},
		Energy: &Energy{ActiveEnergyTodayKwh: 12.5},
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.NotContains(t, decoded, "billing", "absent billing must be omitted, not zeroed")
	assert.NotContains(t, decoded, "history")
	assert.NotContains(t, decoded, "power_quality")
	assert.Equal(t, "LNT", decoded["brand"])

	inst := decoded["instantaneous"].(map[string]any)
	assert.NotContains(t, inst, "current_a")
	assert.InDelta(t, 231.5, inst["voltage_v"], 1e-9)
}
