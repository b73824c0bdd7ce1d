package websocket

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClientConstants verifies the pump timing constants are consistent
func TestClientConstants(t *testing.T) {
	assert.Equal(t, 10*time.Second, writeWait)
	assert.Equal(t, 60*time.Second, pongWait)
	assert.True(t, pingPeriod < pongWait, "ping period must be shorter than pong wait")
	assert.Equal(t, int64(512), int64(maxMessageSize))
}

// TestNewClientWithConnection tests client creation with an injected connection
func TestNewClientWithConnection(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	mock := NewMockConnection()

	client := NewClientWithConnection(hub, mock, logger)

	require.NotNil(t, client)
	assert.Equal(t, hub, client.hub)
	assert.Equal(t, 256, cap(client.send))
	assert.Equal(t, "127.0.0.1:8080", client.remoteAddr)
	assert.False(t, client.connectedAt.IsZero())

	// Client IDs are UUIDs
	_, err := uuid.Parse(client.id)
	assert.NoError(t, err)
}

// TestClientWritePump tests that queued messages are written as individual frames
func TestClientWritePump(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	mock := NewMockConnection()
	client := NewClientWithConnection(hub, mock, logger)

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	first := []byte(`{"type":"output","data":{"message":"Loading dataset"}}`)
	second := []byte(`{"type":"progress","data":{"step":"forecasts","progress":50}}`)
	client.send <- first
	client.send <- second

	// Give the pump time to drain the channel
	time.Sleep(50 * time.Millisecond)

	// Closing the send channel makes the pump emit a close frame and exit
	close(client.send)

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for write pump to stop")
	}

	messages := mock.GetWrittenMessages()
	require.Len(t, messages, 3)
	assert.Equal(t, websocket.TextMessage, messages[0].Type)
	assert.Equal(t, first, messages[0].Data)
	assert.Equal(t, websocket.TextMessage, messages[1].Type)
	assert.Equal(t, second, messages[1].Data)
	assert.Equal(t, websocket.CloseMessage, messages[2].Type)

	assert.Equal(t, int64(2), client.messagesSent)
	assert.Equal(t, int64(len(first)+len(second)), client.bytesSent)
	assert.True(t, mock.Closed)
}

// TestClientWritePumpStopsOnWriteError tests that write failures terminate the pump
func TestClientWritePumpStopsOnWriteError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	mock := NewMockConnection()
	mock.WriteMessageFunc = func(messageType int, data []byte) error {
		return assert.AnError
	}
	client := NewClientWithConnection(hub, mock, logger)

	done := make(chan struct{})
	go func() {
		client.WritePump()
		close(done)
	}()

	client.send <- []byte("message that will fail")

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for write pump to stop after error")
	}

	assert.Equal(t, int64(0), client.messagesSent)
}

// TestClientReadPump tests reading messages from the connection
func TestClientReadPump(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	hub.Start()
	defer hub.Stop()

	mock := NewMockConnection()
	mock.AddReadMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`), nil)
	mock.AddReadMessage(websocket.TextMessage, []byte("hello"), nil)

	client := NewClientWithConnection(hub, mock, logger)

	done := make(chan struct{})
	go func() {
		client.ReadPump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for read pump to stop")
	}

	assert.Equal(t, int64(2), client.messagesReceived)
	assert.True(t, client.bytesReceived > 0)
	assert.True(t, mock.Closed)
	assert.Equal(t, int64(maxMessageSize), mock.ReadLimit)
	assert.False(t, mock.ReadDeadline.IsZero())

	// Hub tracks received messages across clients
	time.Sleep(50 * time.Millisecond)
	metrics := hub.GetHubMetrics()
	assert.Equal(t, int64(2), metrics["messages_received"])
}

// TestClientReadPumpUnexpectedClose tests handling of abnormal close errors
func TestClientReadPumpUnexpectedClose(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	hub.Start()
	defer hub.Stop()

	mock := NewMockConnection()
	mock.ReadMessageFunc = func() (int, []byte, error) {
		return 0, nil, &websocket.CloseError{
			Code: websocket.CloseInternalServerErr,
			Text: "server error",
		}
	}

	client := NewClientWithConnection(hub, mock, logger)

	done := make(chan struct{})
	go func() {
		client.ReadPump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for read pump to stop")
	}

	assert.Equal(t, int64(0), client.messagesReceived)
	assert.True(t, mock.Closed)
}

// TestClientReadPumpUnregisters tests that a registered client is removed on disconnect
func TestClientReadPumpUnregisters(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	hub := NewHub(logger)
	hub.Start()
	defer hub.Stop()

	mock := NewMockConnection()
	client := NewClientWithConnection(hub, mock, logger)

	hub.Register(client)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, hub.ClientCount())

	// No queued read messages, so the pump exits immediately and unregisters
	done := make(chan struct{})
	go func() {
		client.ReadPump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for read pump to stop")
	}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, hub.ClientCount())
}
