package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t testing.TB) *Hub {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	hub.Start()
	t.Cleanup(hub.Stop)
	return hub
}

// newTestClient registers a bare client with the given send buffer and,
// when drainWelcome is set, consumes the connection message the hub
// pushes on registration.
func newTestClient(t testing.TB, hub *Hub, id string, buffer int, drainWelcome bool) *Client {
	t.Helper()
	client := &Client{
		id:          id,
		hub:         hub,
		send:        make(chan []byte, buffer),
		connectedAt: time.Now(),
		remoteAddr:  "127.0.0.1:8080",
	}
	hub.Register(client)
	time.Sleep(50 * time.Millisecond)
	if drainWelcome {
		<-client.send
	}
	return client
}

// receiveJSON waits for the client's next message and decodes it
func receiveJSON(t *testing.T, client *Client) map[string]interface{} {
	t.Helper()
	select {
	case msgBytes := <-client.send:
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(msgBytes, &msg))
		return msg
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for hub message")
		return nil
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.NotNil(t, hub.logger)
	assert.NotNil(t, hub.quit)
	assert.NotNil(t, hub.metricsQuit)
	assert.Equal(t, 0, len(hub.clients))
	assert.False(t, hub.running)
}

func TestHubWithNilLogger(t *testing.T) {
	hub := NewHub(nil)
	assert.NotNil(t, hub)
	assert.NotNil(t, hub.logger)
}

func TestHubStartStopIdempotent(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	hub.Start()
	assert.True(t, hub.running)
	hub.Start()
	assert.True(t, hub.running)

	time.Sleep(10 * time.Millisecond)

	hub.Stop()
	assert.False(t, hub.running)
	hub.Stop()
	assert.False(t, hub.running)
}

func TestHubClientRegistration(t *testing.T) {
	hub := newTestHub(t)
	client := newTestClient(t, hub, "test-client-1", 256, false)

	assert.Equal(t, 1, hub.ClientCount())

	// Registration pushes a connection message to the new client
	connMsg := receiveJSON(t, client)
	assert.Equal(t, TypeConnection, connMsg["type"])
	data := connMsg["data"].(map[string]interface{})
	assert.Equal(t, "connected", data["status"])
	assert.Equal(t, "Connected to EFI Pulse", data["message"])
	assert.Equal(t, "test-client-1", data["client_id"])

	hub.unregister <- client
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubBroadcast(t *testing.T) {
	hub := newTestHub(t)

	clients := make([]*Client, 3)
	for i := range clients {
		clients[i] = newTestClient(t, hub, fmt.Sprintf("test-client-%d", i), 256, true)
	}

	testMsg := map[string]interface{}{
		"type": "test",
		"data": "broadcast test",
	}
	jsonData, _ := json.Marshal(testMsg)
	hub.broadcast <- jsonData

	var wg sync.WaitGroup
	wg.Add(len(clients))
	for i, client := range clients {
		go func(idx int, c *Client) {
			defer wg.Done()
			select {
			case msg := <-c.send:
				assert.Equal(t, jsonData, msg)
			case <-time.After(1 * time.Second):
				t.Errorf("client %d: timeout waiting for broadcast", idx)
			}
		}(i, client)
	}
	wg.Wait()
}

func TestHubBroadcastMethods(t *testing.T) {
	hub := newTestHub(t)
	client := newTestClient(t, hub, "test-client", 256, true)

	tests := []struct {
		name      string
		broadcast func()
		checkMsg  func(t *testing.T, msg map[string]interface{})
	}{
		{
			name: "BroadcastOutput",
			broadcast: func() {
				hub.BroadcastOutput("Loading unified dataset", LevelInfo)
			},
			checkMsg: func(t *testing.T, msg map[string]interface{}) {
				assert.Equal(t, TypeOutput, msg["type"])
				data := msg["data"].(map[string]interface{})
				assert.Equal(t, "Loading unified dataset", data["message"])
				assert.Equal(t, LevelInfo, data["level"])
			},
		},
		{
			name: "BroadcastProgress",
			broadcast: func() {
				hub.BroadcastProgress("forecasts", 50, "Forecasting ACC_OWNERSHIP")
			},
			checkMsg: func(t *testing.T, msg map[string]interface{}) {
				assert.Equal(t, TypeProgress, msg["type"])
				data := msg["data"].(map[string]interface{})
				assert.Equal(t, "forecasts", data["step"])
				assert.Equal(t, float64(50), data["progress"])
				assert.Equal(t, "Forecasting ACC_OWNERSHIP", data["message"])
			},
		},
		{
			name: "BroadcastStatus",
			broadcast: func() {
				hub.BroadcastStatus("active", "Analysis pipeline running")
			},
			checkMsg: func(t *testing.T, msg map[string]interface{}) {
				assert.Equal(t, "status", msg["type"])
				data := msg["data"].(map[string]interface{})
				assert.Equal(t, "active", data["status"])
				assert.Equal(t, "Analysis pipeline running", data["message"])
			},
		},
		{
			name: "BroadcastError with known code",
			broadcast: func() {
				hub.BroadcastError("DATASET_NOT_FOUND", "Dataset missing", "open data/efi_indicators.csv: no such file", "load_dataset", true)
			},
			checkMsg: func(t *testing.T, msg map[string]interface{}) {
				assert.Equal(t, TypeError, msg["type"])
				data := msg["data"].(map[string]interface{})
				assert.Equal(t, "DATASET_NOT_FOUND", data["code"])
				assert.Equal(t, "Dataset missing", data["message"])
				assert.Equal(t, "load_dataset", data["step"])
				assert.Equal(t, true, data["recoverable"])
				assert.Equal(t, ErrorRecoveryHints["DATASET_NOT_FOUND"], data["hint"])
			},
		},
		{
			name: "BroadcastError with unknown code falls back to default hint",
			broadcast: func() {
				hub.BroadcastError("ERR_UNMAPPED", "Something failed", "", "exports", false)
			},
			checkMsg: func(t *testing.T, msg map[string]interface{}) {
				data := msg["data"].(map[string]interface{})
				assert.Equal(t, ErrorRecoveryHints["default"], data["hint"])
			},
		},
		{
			name: "BroadcastRefresh",
			broadcast: func() {
				hub.BroadcastRefresh("pipeline", []string{"forecasts", "summary"})
			},
			checkMsg: func(t *testing.T, msg map[string]interface{}) {
				assert.Equal(t, TypeDataUpdate, msg["type"])
				assert.Equal(t, SubtypeAll, msg["subtype"])
				assert.Equal(t, ActionRefresh, msg["action"])
				data := msg["data"].(map[string]interface{})
				assert.Equal(t, "pipeline", data["source"])
				components := data["components"].([]interface{})
				assert.Equal(t, 2, len(components))
			},
		},
		{
			name: "BroadcastJSON",
			broadcast: func() {
				hub.BroadcastJSON(map[string]interface{}{
					"type": "custom",
					"data": map[string]interface{}{"indicator": "ACC_OWNERSHIP"},
				})
			},
			checkMsg: func(t *testing.T, msg map[string]interface{}) {
				assert.Equal(t, "custom", msg["type"])
				data := msg["data"].(map[string]interface{})
				assert.Equal(t, "ACC_OWNERSHIP", data["indicator"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.broadcast()
			tt.checkMsg(t, receiveJSON(t, client))
		})
	}
}

func TestHubOperationEvents(t *testing.T) {
	hub := newTestHub(t)
	client := newTestClient(t, hub, "test-client", 256, true)

	tests := []struct {
		name      string
		eventType string
		subtype   string
		action    string
		data      interface{}
	}{
		{
			name:      "operation started",
			eventType: "operation:started",
			subtype:   "op-123",
			action:    "running",
			data:      map[string]interface{}{"step": "load_dataset"},
		},
		{
			name:      "step progress",
			eventType: TypePipelineProgress,
			subtype:   "forecasts",
			action:    "active",
			data:      map[string]interface{}{"progress": 75},
		},
		{
			name:      "operation completed",
			eventType: TypePipelineComplete,
			subtype:   "op-123",
			action:    "completed",
			data:      map[string]interface{}{"duration": "5s"},
		},
		{
			name:      "operation failed",
			eventType: "operation:failed",
			subtype:   "op-999",
			action:    "failed",
			data:      map[string]interface{}{"error": "dataset empty"},
		},
		{
			name:      "operation cancelled",
			eventType: "operation:cancelled",
			subtype:   "op-111",
			action:    "cancelled",
			data:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub.BroadcastUpdate(tt.eventType, tt.subtype, tt.action, tt.data)

			msg := receiveJSON(t, client)
			assert.Equal(t, tt.eventType, msg["type"])
			assert.Equal(t, tt.subtype, msg["subtype"])
			assert.Equal(t, tt.action, msg["action"])
		})
	}
}

func TestHubSnapshotEnvelope(t *testing.T) {
	hub := newTestHub(t)
	client := newTestClient(t, hub, "test-client", 256, true)

	// Snapshot events carry the full payload and skip the
	// subtype/action envelope
	hub.BroadcastUpdate("operation:snapshot", "ignored", "ignored", map[string]interface{}{
		"operation_id": "op-42",
		"status":       "running",
	})

	msg := receiveJSON(t, client)
	assert.Equal(t, "operation:snapshot", msg["type"])
	_, hasSubtype := msg["subtype"]
	assert.False(t, hasSubtype)
	_, hasAction := msg["action"]
	assert.False(t, hasAction)
}

func TestHubMetrics(t *testing.T) {
	hub := newTestHub(t)

	for i := 0; i < 2; i++ {
		newTestClient(t, hub, fmt.Sprintf("client-%d", i), 256, false)
	}

	for i := 0; i < 5; i++ {
		hub.broadcast <- []byte(fmt.Sprintf("test message %d", i))
	}
	time.Sleep(100 * time.Millisecond)

	metrics := hub.GetHubMetrics()

	assert.Equal(t, 2, metrics["active_clients"])
	assert.Equal(t, int64(2), metrics["total_connections"])
	assert.True(t, metrics["messages_sent"].(int64) > 0)
}

func TestHubClientDisconnectOnFullBuffer(t *testing.T) {
	hub := newTestHub(t)

	// A one-slot buffer overflows on the first burst
	newTestClient(t, hub, "test-client", 1, false)
	assert.Equal(t, 1, hub.ClientCount())

	for i := 0; i < 10; i++ {
		hub.broadcast <- []byte(fmt.Sprintf("message %d", i))
	}
	time.Sleep(100 * time.Millisecond)

	// The hub drops clients that cannot keep up
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubConcurrentAccess(t *testing.T) {
	hub := newTestHub(t)

	var wg sync.WaitGroup
	clientCount := 10
	messageCount := 5

	wg.Add(clientCount)
	for i := 0; i < clientCount; i++ {
		go func(idx int) {
			defer wg.Done()
			client := &Client{
				id:          fmt.Sprintf("client-%d", idx),
				hub:         hub,
				send:        make(chan []byte, 256),
				connectedAt: time.Now(),
				remoteAddr:  fmt.Sprintf("127.0.0.1:80%02d", idx),
			}
			hub.Register(client)
		}(i)
	}
	wg.Wait()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, clientCount, hub.ClientCount())

	wg.Add(messageCount)
	for i := 0; i < messageCount; i++ {
		go func(idx int) {
			defer wg.Done()
			hub.BroadcastOutput(fmt.Sprintf("Concurrent message %d", idx), LevelInfo)
		}(i)
	}
	wg.Wait()

	wg.Add(5)
	for i := 0; i < 5; i++ {
		go func() {
			defer wg.Done()
			_ = hub.GetHubMetrics()
			_ = hub.ClientCount()
		}()
	}
	wg.Wait()
}

func TestHubBroadcastWithTrace(t *testing.T) {
	hub := newTestHub(t)
	client := newTestClient(t, hub, "test-client", 256, true)

	hub.BroadcastUpdateWithTrace("data_update", "forecasts", "refresh", map[string]interface{}{"key": "value"}, "trace-123")
	msg := receiveJSON(t, client)
	assert.Equal(t, "trace-123", msg["trace_id"])

	hub.BroadcastStatusWithTrace("active", "Pipeline active", "trace-456")
	msg = receiveJSON(t, client)
	assert.Equal(t, "trace-456", msg["trace_id"])
}

func BenchmarkHubBroadcast(b *testing.B) {
	hub := NewHub(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	hub.Start()
	defer hub.Stop()

	for i := 0; i < 100; i++ {
		client := &Client{
			id:          fmt.Sprintf("bench-client-%d", i),
			hub:         hub,
			send:        make(chan []byte, 256),
			connectedAt: time.Now(),
			remoteAddr:  fmt.Sprintf("127.0.0.1:8%03d", i),
		}
		hub.Register(client)
	}
	time.Sleep(100 * time.Millisecond)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.BroadcastOutput(fmt.Sprintf("Benchmark message %d", i), LevelInfo)
	}
}
