package websocket

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"eficli/internal/infrastructure"
)

const (
	// writeWait bounds a single frame write
	writeWait = 10 * time.Second

	// pongWait is how long we wait for the peer's pong
	pongWait = 60 * time.Second

	// pingPeriod must stay under pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound frames; the dashboard only sends
	// heartbeats
	maxMessageSize = 512
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// Client pumps messages between one websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection

	// send is the hub's outbound queue for this client
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time

	logger *slog.Logger

	// per-connection counters, logged on disconnect
	messagesSent     int64
	messagesReceived int64
	bytesSent        int64
	bytesReceived    int64
}

func newClient(hub *Hub, conn Connection, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	id := uuid.New().String()
	logger = logger.With(
		slog.String("component", "websocket.client"),
		slog.String("client_id", id),
	)

	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		id:          id,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		logger:      logger,
	}
}

// NewClient wraps a gorilla connection in a hub client
func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	return newClient(hub, NewConnectionWrapper(conn), logger)
}

// NewClientWithConnection accepts any Connection, letting tests inject
// a mock
func NewClientWithConnection(hub *Hub, conn Connection, logger *slog.Logger) *Client {
	return newClient(hub, conn, logger)
}

// NewClientWithTrace tags the client and its log lines with the
// upgrading request's trace ID
func NewClientWithTrace(hub *Hub, conn *websocket.Conn, traceID string, logger *slog.Logger) *Client {
	client := NewClient(hub, conn, logger)
	client.traceID = traceID
	client.logger = client.logger.With(slog.String("trace_id", traceID))
	return client
}

// ctx returns a context carrying the client's trace ID
func (c *Client) ctx() context.Context {
	ctx := context.Background()
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}

// ReadPump consumes inbound frames until the connection dies, then
// unregisters the client. Runs as its own goroutine, one per client.
func (c *Client) ReadPump() {
	defer func() {
		c.logger.InfoContext(c.ctx(), "WebSocket client disconnected (readPump)",
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int64("messages_received", c.messagesReceived),
			slog.Int64("bytes_received", c.bytesReceived))
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				ctx := c.ctx()
				c.logger.ErrorContext(ctx, "Unexpected WebSocket close error",
					slog.String("error", err.Error()))

				if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
					otelMetrics.RecordConnectionError(ctx, c.id, "unexpected_close", err)
				}
			}
			break
		}
		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))

		c.messagesReceived++
		c.bytesReceived += int64(len(message))

		c.hub.mu.Lock()
		c.hub.messagesReceived++
		c.hub.mu.Unlock()

		if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
			otelMetrics.RecordMessageReceived(c.ctx(), "client_message", c.id, int64(len(message)))
		}

		// The pong handler already extended the read deadline, so a
		// heartbeat needs no further handling
		if string(message) == `{"type":"heartbeat"}` {
			c.logger.Debug("Heartbeat received")
			continue
		}

		// The dashboard is read-only over the socket; operations are
		// started over HTTP, so other inbound messages are dropped.
	}
}

// writeFrame sends one text frame and updates the counters. kind
// distinguishes direct sends from queue drains in the metrics.
func (c *Client) writeFrame(message []byte, kind string) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		ctx := c.ctx()
		c.logger.ErrorContext(ctx, "Error writing message to WebSocket",
			slog.String("error", err.Error()))
		if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
			otelMetrics.RecordMessageError(ctx, kind, c.id, "write_failed", err)
		}
		return false
	}

	c.messagesSent++
	c.bytesSent += int64(len(message))

	if otelMetrics := GetOTelMetrics(); otelMetrics != nil {
		otelMetrics.RecordMessageSent(c.ctx(), kind, c.id, int64(len(message)))
	}
	return true
}

// WritePump delivers hub messages and keepalive pings to the peer.
// Runs as its own goroutine, one per client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()

		c.logger.InfoContext(c.ctx(), "WebSocket write pump stopped",
			slog.Int64("messages_sent", c.messagesSent),
			slog.Int64("bytes_sent", c.bytesSent))
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// The hub closed the channel
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if !c.writeFrame(message, "server_message") {
				return
			}

			// Drain whatever queued up while we were writing, each
			// message as its own frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				select {
				case msg := <-c.send:
					if !c.writeFrame(msg, "server_message_queued") {
						return
					}
				default:
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.ctx(), "Failed to send ping message",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

// ServeWS registers an upgraded connection with the hub and starts
// both pumps
func ServeWS(hub *Hub, conn *websocket.Conn) {
	client := NewClient(hub, conn, nil)
	client.hub.register <- client

	go client.WritePump()
	go client.ReadPump()
}
