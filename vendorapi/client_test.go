package vendorapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
	"github.com/YGNTECHSTARTUP/ecoquest/reading"
)

const testSchema = `{
  "type": "object",
  "required": ["status", "value"],
  "properties": {
    "status": {"enum": ["success"]},
    "value": {"type": "number"}
  }
}`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_GetSuccess(t *testing.T) {
	var gotQuery, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotHeader = r.Header.Get("X-Secure-Token")
		_, _ = w.Write([]byte(`{"status":"success","value":4.2}`))
	}))
	defer srv.Close()

	c := NewClient(reading.BrandSecure, srv.URL+"/")
	raw, err := c.Get(context.Background(), Call{
		Path:   "/secureMetersData",
		Query:  url.Values{"deviceId": {"SEC_001_TEST"}, "dataType": {"current"}},
		Header: http.Header{"X-Secure-Token": {"tok"}},
		Schema: MustSchema("test", testSchema),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","value":4.2}`, string(raw))
	assert.Equal(t, "dataType=current&deviceId=SEC_001_TEST", gotQuery)
	assert.Equal(t, "tok", gotHeader)
}

type countingTransport struct {
	calls int
}

func (t *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	t.calls++
	return http.DefaultTransport.RoundTrip(r)
}

func TestClient_SharedHTTPClient(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"status":"success","value":1}`)
	tr := &countingTransport{}
	shared := &http.Client{Transport: tr}

	a := NewClient(reading.BrandQube, srv.URL, WithHTTPClient(shared), WithTimeout(time.Second))
	b := NewClient(reading.BrandLNT, srv.URL, WithHTTPClient(shared), WithTimeout(2*time.Second))

	for _, c := range []*Client{a, b} {
		_, err := c.Get(context.Background(), Call{Path: "/"})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, tr.calls)
	assert.Zero(t, shared.Timeout, "timeouts apply to the adapter's copy")
	assert.Equal(t, time.Second, a.httpClient.Timeout)
	assert.Equal(t, 2*time.Second, b.httpClient.Timeout)
}

func TestClient_SchemaMismatchIsProtocolError(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"status":"success","value":"high"}`)
	c := NewClient(reading.BrandQube, srv.URL)

	_, err := c.Get(context.Background(), Call{Path: "/", Schema: MustSchema("test", testSchema)})
	require.Error(t, err)
	assert.True(t, errors.IsUpstreamProtocol(err))
	assert.False(t, errors.IsUpstreamDataInvalid(err))
	assert.ErrorIs(t, err, errors.ErrMalformedPayload)
	assert.Equal(t, "Malformed response from Qube", errors.PublicMessage(err))
	assert.Equal(t, http.StatusBadGateway, errors.HTTPStatus(err))
}

func TestClient_NonJSONBody(t *testing.T) {
	srv := serve(t, http.StatusOK, `<html>maintenance</html>`)
	c := NewClient(reading.BrandLNT, srv.URL)

	_, err := c.Get(context.Background(), Call{Path: "/"})
	assert.True(t, errors.IsUpstreamProtocol(err))
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantStatus  int
		wantMessage string
		wantCode    string
		check       func(error) bool
	}{
		{"qube invalid key", 401, `{"error":"Invalid API key"}`, 401, "Invalid API key", "", errors.IsVendorAuth},
		{"secure unauthorized", 401, `{"success":false,"error":"Unauthorized access"}`, 401, "Unauthorized access", "", errors.IsVendorAuth},
		{"forbidden no body", 403, ``, 401, "Larsen & Toubro rejected the credential", "", errors.IsVendorAuth},
		{"lnt invalid function", 400, `{"status":"error","error":"Invalid function","code":"INVALID_FUNCTION"}`, 400, "Invalid function", "INVALID_FUNCTION", errors.IsBadRequest},
		{"not found", 404, `{"message":"Meter not found"}`, 400, "Meter not found", "", errors.IsBadRequest},
		{"vendor 500", 500, `{"error":"database down"}`, 502, "Larsen & Toubro returned HTTP 500", "", errors.IsUpstreamProtocol},
		{"vendor 503", 503, `oops`, 502, "Larsen & Toubro returned HTTP 503", "", errors.IsUpstreamProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.status, tt.body)
			c := NewClient(reading.BrandLNT, srv.URL)

			_, err := c.Get(context.Background(), Call{Path: "/lntMeterApi"})
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected class %s", errors.ClassOf(err))
			assert.Equal(t, tt.wantStatus, errors.HTTPStatus(err))
			assert.Equal(t, tt.wantMessage, errors.PublicMessage(err))
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.StatusCode)
		})
	}
}

func TestClient_ContextTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(reading.BrandSecure, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Get(ctx, Call{Path: "/secureMetersData", Query: url.Values{"dataType": {"historical"}}})
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err))
	assert.False(t, errors.IsVendorAuth(err))
	assert.Equal(t, http.StatusGatewayTimeout, errors.HTTPStatus(err))
	assert.Equal(t, "Secure Meters Ltd request timed out", errors.PublicMessage(err))
}

func TestClient_TransportTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(reading.BrandQube, srv.URL, WithTimeout(50*time.Millisecond))
	_, err := c.Get(context.Background(), Call{Path: "/"})
	assert.True(t, errors.IsTimeout(err))
}

func TestClient_ConnectionRefusedHidesCredentials(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := NewClient(reading.BrandQube, addr)
	_, err := c.Get(context.Background(), Call{
		Path:  "/qubeRealTimeData",
		Query: url.Values{"meterId": {"QUBE_001_TEST"}, "apiKey": {"qube_demo_key_2024"}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
	assert.False(t, errors.IsTimeout(err))
	assert.Equal(t, http.StatusBadGateway, errors.HTTPStatus(err))
	assert.ErrorIs(t, err, errors.ErrUpstreamUnreachable)
	assert.NotContains(t, err.Error(), "qube_demo_key_2024")
}

func TestClient_OversizedBody(t *testing.T) {
	big := `{"status":"success","pad":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	srv := serve(t, http.StatusOK, big)
	c := NewClient(reading.BrandQube, srv.URL)

	_, err := c.Get(context.Background(), Call{Path: "/"})
	assert.True(t, errors.IsUpstreamProtocol(err))
}

func TestCredential_Redacted(t *testing.T) {
	secret := Credential("LT_demo_key_2024_test")

	assert.Equal(t, "[REDACTED]", secret.String())
	assert.NotContains(t, fmt.Sprintf("%v %s %#v %+v", secret, secret, secret, struct{ K Credential }{secret}), "LT_demo")

	data, err := json.Marshal(map[string]Credential{"key": secret})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"[REDACTED]"}`, string(data))

	var buf strings.Builder
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("configured", "api_key", secret)
	assert.NotContains(t, buf.String(), "LT_demo")
	assert.Contains(t, buf.String(), "[REDACTED]")

	assert.Equal(t, "LT_demo_key_2024_test", secret.Reveal())
	assert.False(t, secret.Empty())
}

func TestParseTimestamp(t *testing.T) {
	fallback := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	ts, err := ParseTimestamp("", fallback)
	require.NoError(t, err)
	assert.Equal(t, fallback, ts)

	ts, err = ParseTimestamp("2024-05-01T10:30:00.123Z", fallback)
	require.NoError(t, err)
	assert.Equal(t, 10, ts.Hour())

	_, err = ParseTimestamp("yesterday", fallback)
	assert.Error(t, err)
}

func TestUnsupportedDataType(t *testing.T) {
	err := UnsupportedDataType(reading.BrandQube, reading.DataTypeHistorical)
	assert.True(t, errors.IsBadRequest(err))
	assert.ErrorIs(t, err, errors.ErrUnsupportedMode)
	assert.Equal(t, "Unsupported data type for QUBE: historical", errors.PublicMessage(err))
	assert.Empty(t, errors.CodeOf(err))
}
