package websocket

import (
	"errors"
	"sync"
	"time"
)

var errMockClosed = errors.New("connection closed")

// MockMessage is a frame recorded or queued on a MockConnection
type MockMessage struct {
	Type int
	Data []byte
	Err  error
}

// MockConnection implements Connection in memory. Writes are recorded,
// reads are served from a queue, and the Func hooks override the default
// behavior when set.
type MockConnection struct {
	mu sync.Mutex

	WriteMessageFunc func(messageType int, data []byte) error
	ReadMessageFunc  func() (messageType int, p []byte, err error)
	CloseFunc        func() error

	WrittenMessages []MockMessage
	ReadMessages    []MockMessage
	ReadIndex       int
	Closed          bool

	ReadDeadline  time.Time
	WriteDeadline time.Time
	ReadLimit     int64

	PongHandler  func(string) error
	PingHandler  func(string) error
	CloseHandler func(code int, text string) error

	RemoteAddress string
}

// NewMockConnection creates a mock connection with an empty queue
func NewMockConnection() *MockConnection {
	return &MockConnection{
		RemoteAddress: "127.0.0.1:8080",
	}
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Closed {
		return errMockClosed
	}
	if m.WriteMessageFunc != nil {
		return m.WriteMessageFunc(messageType, data)
	}

	m.WrittenMessages = append(m.WrittenMessages, MockMessage{Type: messageType, Data: data})
	return nil
}

func (m *MockConnection) ReadMessage() (messageType int, p []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Closed {
		return 0, nil, errMockClosed
	}
	if m.ReadMessageFunc != nil {
		return m.ReadMessageFunc()
	}

	if m.ReadIndex < len(m.ReadMessages) {
		msg := m.ReadMessages[m.ReadIndex]
		m.ReadIndex++
		return msg.Type, msg.Data, msg.Err
	}
	return 0, nil, errors.New("no more messages")
}

func (m *MockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	m.Closed = true
	return nil
}

func (m *MockConnection) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadDeadline = t
	return nil
}

func (m *MockConnection) SetWriteDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteDeadline = t
	return nil
}

func (m *MockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadLimit = limit
}

func (m *MockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PongHandler = h
}

func (m *MockConnection) SetPingHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PingHandler = h
}

func (m *MockConnection) SetCloseHandler(h func(code int, text string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CloseHandler = h
}

func (m *MockConnection) RemoteAddr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RemoteAddress
}

// AddReadMessage queues a frame for ReadMessage to return
func (m *MockConnection) AddReadMessage(messageType int, data []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadMessages = append(m.ReadMessages, MockMessage{Type: messageType, Data: data, Err: err})
}

// GetWrittenMessages returns a copy of the frames written so far
func (m *MockConnection) GetWrittenMessages() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]MockMessage, len(m.WrittenMessages))
	copy(result, m.WrittenMessages)
	return result
}

// Reset clears queued and recorded frames and reopens the connection
func (m *MockConnection) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WrittenMessages = nil
	m.ReadMessages = nil
	m.ReadIndex = 0
	m.Closed = false
	m.ReadDeadline = time.Time{}
	m.WriteDeadline = time.Time{}
}
