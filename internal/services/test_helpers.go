package services

import (
	"github.com/stretchr/testify/mock"
)

// MockWebSocketHub records Broadcast calls for operation service tests
type MockWebSocketHub struct {
	mock.Mock
}

func (m *MockWebSocketHub) Broadcast(messageType string, data interface{}) {
	m.Called(messageType, data)
}
