// Package testutil provides mocks, fixtures and assertions for testing
// the operations pipeline.
package testutil

import (
	"context"
	"sync"
	"time"

	"eficli/internal/operations"
)

// MockStep is a configurable mock implementation of the Step interface
type MockStep struct {
	IDValue           string
	NameValue         string
	DependenciesValue []string

	// Configurable functions
	ExecuteFunc  func(ctx context.Context, state *operations.OperationState) error
	ValidateFunc func(state *operations.OperationState) error

	// Call tracking
	mu            sync.Mutex
	ExecuteCalls  int
	ExecuteArgs   []ExecuteCall
	ValidateCalls int
}

// ExecuteCall tracks arguments passed to Execute
type ExecuteCall struct {
	Ctx   context.Context
	State *operations.OperationState
	Time  time.Time
}

// ID returns the step ID
func (m *MockStep) ID() string {
	return m.IDValue
}

// Name returns the step name
func (m *MockStep) Name() string {
	return m.NameValue
}

// GetDependencies returns the step dependencies
func (m *MockStep) GetDependencies() []string {
	if m.DependenciesValue == nil {
		return []string{}
	}
	return m.DependenciesValue
}

// Execute runs the mock execute function
func (m *MockStep) Execute(ctx context.Context, state *operations.OperationState) error {
	m.mu.Lock()
	m.ExecuteCalls++
	m.ExecuteArgs = append(m.ExecuteArgs, ExecuteCall{
		Ctx:   ctx,
		State: state,
		Time:  time.Now(),
	})
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, state)
	}
	return nil
}

// Validate runs the mock validate function
func (m *MockStep) Validate(state *operations.OperationState) error {
	m.mu.Lock()
	m.ValidateCalls++
	m.mu.Unlock()

	if m.ValidateFunc != nil {
		return m.ValidateFunc(state)
	}
	return nil
}

// GetExecuteCalls returns the number of Execute calls
func (m *MockStep) GetExecuteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ExecuteCalls
}

// GetValidateCalls returns the number of Validate calls
func (m *MockStep) GetValidateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ValidateCalls
}

// MockWebSocketHub captures websocket messages for testing
type MockWebSocketHub struct {
	mu       sync.Mutex
	Messages []WebSocketMessage
}

// WebSocketMessage represents a captured websocket message
type WebSocketMessage struct {
	EventType string
	Step      string
	Status    string
	Metadata  interface{}
	Time      time.Time
}

// BroadcastUpdate captures websocket messages
func (m *MockWebSocketHub) BroadcastUpdate(eventType, step, status string, metadata interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Messages = append(m.Messages, WebSocketMessage{
		EventType: eventType,
		Step:      step,
		Status:    status,
		Metadata:  metadata,
		Time:      time.Now(),
	})
}

// GetMessages returns all captured messages
func (m *MockWebSocketHub) GetMessages() []WebSocketMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	messages := make([]WebSocketMessage, len(m.Messages))
	copy(messages, m.Messages)
	return messages
}

// GetMessagesByType returns messages of a specific type
func (m *MockWebSocketHub) GetMessagesByType(eventType string) []WebSocketMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	var filtered []WebSocketMessage
	for _, msg := range m.Messages {
		if msg.EventType == eventType {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

// Clear removes all captured messages
func (m *MockWebSocketHub) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = nil
}
