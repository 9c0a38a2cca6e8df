package qube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
	"github.com/YGNTECHSTARTUP/ecoquest/reading"
	"github.com/YGNTECHSTARTUP/ecoquest/vendorapi"
)

const okBody = `{
  "status": "success",
  "meter_id": "QUBE_001_TEST",
  "brand": "Qube",
  "timestamp": "2024-05-01T10:30:00Z",
  "data": {
    "instantaneous": {"active_power": 2.45, "voltage": 231.4, "current": 10.6, "frequency": 50.01, "power_factor": 0.95},
    "energy": {"active_energy_today": 18.2, "active_energy_total": 5120.5},
    "billing": {"cost_today": 118.3, "tariff_rate": 6.5, "currency": "INR"}
  }
}`

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, Path, r.URL.Path)
		assert.Equal(t, "QUBE_001_TEST", r.URL.Query().Get("meterId"))
		assert.Equal(t, "qube_demo_key_2024", r.URL.Query().Get("apiKey"))
		_, _ = w.Write([]byte(okBody))
	}))
	defer srv.Close()

	a := New(srv.URL, "qube_demo_key_2024")
	r, err := a.Fetch(context.Background(), vendorapi.Request{MeterID: "QUBE_001_TEST", DataType: reading.DataTypeCurrent})
	require.NoError(t, err)

	assert.Equal(t, "QUBE_001_TEST", r.MeterID)
	assert.Equal(t, reading.BrandQube, r.Brand)
	assert.Equal(t, 10, r.Timestamp.Hour())
	require.NotNil(t, r.Instantaneous)
	assert.InDelta(t, 2.45, r.Instantaneous.ActivePowerKw, 1e-9)
	assert.InDelta(t, 231.4, r.Instantaneous.VoltageV, 1e-9)
	require.NotNil(t, r.Instantaneous.CurrentA)
	assert.InDelta(t, 10.6, *r.Instantaneous.CurrentA, 1e-9)
	require.NotNil(t, r.Energy.ActiveEnergyTotalKwh)
	require.NotNil(t, r.Billing)
	assert.Equal(t, "INR", r.Billing.Currency)
	assert.NotEmpty(t, r.Raw)
}

func TestFetch_BillingAbsentStaysAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{
			"instantaneous":{"active_power":1.1,"voltage":229,"frequency":50,"power_factor":0.9},
			"energy":{"active_energy_today":3.2}}}`))
	}))
	defer srv.Close()

	r, err := New(srv.URL, "k").Fetch(context.Background(), vendorapi.Request{MeterID: "QUBE_002", DataType: reading.DataTypeCurrent})
	require.NoError(t, err)
	assert.Nil(t, r.Billing)
	assert.Nil(t, r.Instantaneous.CurrentA)
	assert.Equal(t, "QUBE_002", r.MeterID)
	assert.False(t, r.Timestamp.IsZero())
}

func TestFetch_LocalRejectionsMakeNoCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()
	a := New(srv.URL, "k")

	_, err := a.Fetch(context.Background(), vendorapi.Request{MeterID: "", DataType: reading.DataTypeCurrent})
	assert.True(t, errors.IsBadRequest(err))
	assert.Equal(t, "Meter ID required", errors.PublicMessage(err))

	_, err = a.Fetch(context.Background(), vendorapi.Request{MeterID: "QUBE_001_TEST", DataType: reading.DataTypeHistorical})
	assert.True(t, errors.IsBadRequest(err))
	assert.Equal(t, "Unsupported data type for QUBE: historical", errors.PublicMessage(err))

	assert.Zero(t, calls.Load())
}

func TestFetch_InvalidAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid API key"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "wrong").Fetch(context.Background(), vendorapi.Request{MeterID: "QUBE_001_TEST", DataType: reading.DataTypeCurrent})
	require.Error(t, err)
	assert.True(t, errors.IsVendorAuth(err))
	assert.Equal(t, "Invalid API key", errors.PublicMessage(err))
}

func TestFetch_MissingSection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{"energy":{"active_energy_today":1}}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k").Fetch(context.Background(), vendorapi.Request{MeterID: "QUBE_001_TEST", DataType: reading.DataTypeCurrent})
	assert.True(t, errors.IsUpstreamProtocol(err))
}

func TestFetch_BadTimestamp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","timestamp":"noon","data":{
			"instantaneous":{"active_power":1.1,"voltage":229,"frequency":50,"power_factor":0.9},
			"energy":{"active_energy_today":3.2}}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k").Fetch(context.Background(), vendorapi.Request{MeterID: "QUBE_001_TEST", DataType: reading.DataTypeCurrent})
	assert.True(t, errors.IsUpstreamProtocol(err))
}

func TestAdapter_Contract(t *testing.T) {
	var a vendorapi.Adapter = New("http://127.0.0.1:0", "k")
	assert.Equal(t, reading.BrandQube, a.Brand())
	assert.True(t, a.Supports(reading.DataTypeCurrent))
	assert.False(t, a.Supports(reading.DataTypePowerQuality))
}
