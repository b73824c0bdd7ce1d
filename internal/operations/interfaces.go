package operations

// WebSocketHub defines the interface for websocket communication.
// This allows the operations package to broadcast progress without
// depending on the concrete websocket implementation.
type WebSocketHub interface {
	// BroadcastUpdate sends an operation update to all connected clients
	BroadcastUpdate(eventType, step, status string, metadata interface{})
}

// ProgressReporter defines the interface for reporting step progress
type ProgressReporter interface {
	// ReportProgress reports the current progress (0-100) with a message
	ReportProgress(progress int, message string) error
}

// StepOptions configures optional behavior for pipeline steps
type StepOptions struct {
	// WebSocketManager for broadcasting progress updates
	WebSocketManager WebSocketHub

	// EnableProgress enables progress reporting
	EnableProgress bool

	// StatusBroadcaster serializes status updates for the operation
	StatusBroadcaster *StatusBroadcaster
}
