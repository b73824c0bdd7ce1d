package websocket

import (
	"sync"
	"time"
)

// connectionTimeWindow bounds the rolling sample used for the average
// connection duration.
const connectionTimeWindow = 100

// Metrics aggregates hub-level WebSocket counters. It backs the
// /api/health websocket section and the periodic hub metrics log; the
// OTel instruments in otel_metrics.go cover the exported telemetry.
type Metrics struct {
	mu sync.RWMutex

	TotalConnections  int64
	ActiveConnections int64
	FailedConnections int64
	MaxConcurrent     int64
	AvgConnectionTime time.Duration

	MessagesSent     int64
	MessagesReceived int64
	BytesSent        int64
	BytesReceived    int64
	MessageErrors    int64

	AvgMessageSize  int64
	AvgQueueDepth   int64
	MaxQueueDepth   int64
	DroppedMessages int64

	ErrorsByType map[string]int64

	LastReset       time.Time
	connectionTimes []time.Duration
}

// NewMetrics returns a zeroed metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		ErrorsByType:    make(map[string]int64),
		LastReset:       time.Now(),
		connectionTimes: make([]time.Duration, 0, connectionTimeWindow),
	}
}

// RecordConnection counts a completed upgrade
func (m *Metrics) RecordConnection() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalConnections++
	m.ActiveConnections++
	if m.ActiveConnections > m.MaxConcurrent {
		m.MaxConcurrent = m.ActiveConnections
	}
}

// RecordFailedConnection counts an upgrade that never completed
func (m *Metrics) RecordFailedConnection() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FailedConnections++
}

// RecordDisconnection counts a closed connection and folds its
// lifetime into the rolling average.
func (m *Metrics) RecordDisconnection(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ActiveConnections--

	m.connectionTimes = append(m.connectionTimes, duration)
	if len(m.connectionTimes) > connectionTimeWindow {
		m.connectionTimes = m.connectionTimes[1:]
	}

	var total time.Duration
	for _, d := range m.connectionTimes {
		total += d
	}
	if len(m.connectionTimes) > 0 {
		m.AvgConnectionTime = total / time.Duration(len(m.connectionTimes))
	}
}

// RecordMessage counts one message in the given direction ("sent" or
// "received") and keeps the running average size current.
func (m *Metrics) RecordMessage(direction string, size int64, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch direction {
	case "sent":
		m.MessagesSent++
		m.BytesSent += size
	case "received":
		m.MessagesReceived++
		m.BytesReceived += size
	}

	if !success {
		m.MessageErrors++
	}

	if totalMessages := m.MessagesSent + m.MessagesReceived; totalMessages > 0 {
		m.AvgMessageSize = (m.BytesSent + m.BytesReceived) / totalMessages
	}
}

// RecordError counts an error under its type label
func (m *Metrics) RecordError(errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ErrorsByType[errorType]++
}

// RecordQueueDepth samples the broadcast queue. Average uses an
// exponential decay weighted 9:1 towards history.
func (m *Metrics) RecordQueueDepth(depth int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if depth > m.MaxQueueDepth {
		m.MaxQueueDepth = depth
	}

	if m.AvgQueueDepth == 0 {
		m.AvgQueueDepth = depth
	} else {
		m.AvgQueueDepth = (m.AvgQueueDepth*9 + depth) / 10
	}
}

// RecordDroppedMessage counts a broadcast dropped on a full client queue
func (m *Metrics) RecordDroppedMessage() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DroppedMessages++
}

// GetSnapshot returns the counters grouped for JSON serving
func (m *Metrics) GetSnapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errorCounts := make(map[string]int64, len(m.ErrorsByType))
	for k, v := range m.ErrorsByType {
		errorCounts[k] = v
	}

	return map[string]interface{}{
		"connections": map[string]interface{}{
			"total":           m.TotalConnections,
			"active":          m.ActiveConnections,
			"failed":          m.FailedConnections,
			"max_concurrent":  m.MaxConcurrent,
			"avg_duration_ms": m.AvgConnectionTime.Milliseconds(),
		},
		"messages": map[string]interface{}{
			"sent":           m.MessagesSent,
			"received":       m.MessagesReceived,
			"bytes_sent":     m.BytesSent,
			"bytes_received": m.BytesReceived,
			"errors":         m.MessageErrors,
			"avg_size":       m.AvgMessageSize,
			"dropped":        m.DroppedMessages,
		},
		"performance": map[string]interface{}{
			"avg_queue_depth": m.AvgQueueDepth,
			"max_queue_depth": m.MaxQueueDepth,
		},
		"errors":         errorCounts,
		"uptime_seconds": time.Since(m.LastReset).Seconds(),
	}
}

// Reset zeroes every counter and restarts the uptime clock
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalConnections = 0
	m.ActiveConnections = 0
	m.FailedConnections = 0
	m.MaxConcurrent = 0
	m.AvgConnectionTime = 0
	m.MessagesSent = 0
	m.MessagesReceived = 0
	m.BytesSent = 0
	m.BytesReceived = 0
	m.MessageErrors = 0
	m.AvgMessageSize = 0
	m.AvgQueueDepth = 0
	m.MaxQueueDepth = 0
	m.DroppedMessages = 0
	m.ErrorsByType = make(map[string]int64)
	m.LastReset = time.Now()
	m.connectionTimes = m.connectionTimes[:0]
}

var globalMetrics = NewMetrics()

// GetMetrics returns the process-wide collector shared by the hub and
// its clients.
func GetMetrics() *Metrics {
	return globalMetrics
}
