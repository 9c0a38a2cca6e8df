package natsclient

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
	"github.com/YGNTECHSTARTUP/ecoquest/reading"
	"github.com/YGNTECHSTARTUP/ecoquest/testutil"
)

func TestConnectionStatus_String(t *testing.T) {
	tests := []struct {
		status ConnectionStatus
		want   string
	}{
		{StatusDisconnected, "disconnected"},
		{StatusConnecting, "connecting"},
		{StatusConnected, "connected"},
		{StatusReconnecting, "reconnecting"},
		{StatusClosed, "closed"},
		{ConnectionStatus(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestNewClient_Options(t *testing.T) {
	c, err := NewClient("nats://localhost:4222",
		WithName("test"),
		WithMaxReconnects(3),
		WithReconnectWait(time.Second),
		WithTimeout(time.Second),
		WithToken("secret"),
		WithDrainTimeout(5*time.Second),
	)
	require.NoError(t, err)
	assert.Equal(t, "nats://localhost:4222", c.URL())
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.False(t, c.IsConnected())
	assert.Equal(t, 3, c.maxReconnects)
	assert.Equal(t, "test", c.clientName)
	assert.Equal(t, 5*time.Second, c.drainTimeout)
	assert.Len(t, c.ConnectionOptions(), 11)

	_, err = NewClient("nats://localhost:4222", WithTimeout(0))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	_, err = NewClient("nats://localhost:4222", WithReconnectWait(-time.Second))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)

	_, err = NewClient("nats://localhost:4222", WithDrainTimeout(0))
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestClient_PublishNotConnected(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	err = c.Publish(context.Background(), "meters.readings.qube", []byte("{}"), nil)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestClient_StatusCallback(t *testing.T) {
	var seen []bool
	c, err := NewClient("nats://localhost:4222", WithStatusCallback(func(ok bool) { seen = append(seen, ok) }))
	require.NoError(t, err)

	c.handleConnect(nil)
	c.handleConnect(nil)
	c.handleDisconnect(nil, nats.ErrConnectionClosed)
	c.handleReconnect(nil)

	assert.Equal(t, []bool{true, false, true}, seen)
	assert.True(t, c.IsConnected())
}

func TestClient_CloseIdempotent(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, StatusClosed, c.Status())

	assert.ErrorIs(t, c.Connect(context.Background()), ErrClosed)
	assert.ErrorIs(t, c.Publish(context.Background(), "x", nil, nil), ErrClosed)
}

func TestReadingPublisher(t *testing.T) {
	mock := testutil.NewMockNATSClient()
	p := NewReadingPublisher(mock, "")

	assert.Equal(t, "meters.readings.lnt", p.Subject(reading.BrandLNT))

	require.NoError(t, p.Publish(context.Background(), reading.BrandSecure, "req-1", map[string]any{"success": true}))
	require.NoError(t, p.Publish(context.Background(), reading.BrandSecure, "", map[string]any{}))

	msgs := mock.Messages("meters.readings.secure")
	require.Len(t, msgs, 2)
	assert.JSONEq(t, `{"success":true}`, string(msgs[0].Data))
	assert.Equal(t, "SECURE", msgs[0].Header.Get(HeaderBrand))
	assert.Equal(t, "application/json", msgs[0].Header.Get(HeaderContentType))
	assert.Equal(t, "req-1", msgs[0].Header.Get(nats.MsgIdHdr))
	assert.NotEmpty(t, msgs[1].Header.Get(nats.MsgIdHdr))
	assert.NotEqual(t, "req-1", msgs[1].Header.Get(nats.MsgIdHdr))
}

func TestReadingPublisher_Prefix(t *testing.T) {
	p := NewReadingPublisher(testutil.NewMockNATSClient(), "plant.a.")
	assert.Equal(t, "plant.a.qube", p.Subject(reading.BrandQube))
}

func TestReadingPublisher_Errors(t *testing.T) {
	mock := testutil.NewMockNATSClient()
	mock.FailWith(ErrNotConnected)
	p := NewReadingPublisher(mock, "")

	assert.ErrorIs(t, p.Publish(context.Background(), reading.BrandQube, "req-2", struct{}{}), ErrNotConnected)
	assert.Error(t, p.Publish(context.Background(), reading.BrandQube, "req-3", make(chan int)))
	assert.Empty(t, mock.Subjects())
}
