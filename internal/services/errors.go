package services

import "errors"

// Service layer errors
var (
	// Dataset errors
	ErrDatasetNotFound   = errors.New("dataset file not found")
	ErrIndicatorNotFound = errors.New("indicator not found")
	ErrNoObservations    = errors.New("no observations available")
	ErrNoForecasts       = errors.New("no forecasts available")

	// Report and artifact errors
	ErrNoReportsFound  = errors.New("no reports found")
	ErrFileNotFound    = errors.New("file not found")
	ErrInvalidFileType = errors.New("invalid file type")

	// operation errors
	ErrOperationNotFound   = errors.New("operation not found")
	ErrOperationRunning    = errors.New("operation already running")
	ErrOperationNotRunning = errors.New("operation not running")
	ErrInvalidStep         = errors.New("invalid operation step")

	// WebSocket errors
	ErrWebSocketUpgrade = errors.New("websocket upgrade failed")
	ErrWebSocketClosed  = errors.New("websocket connection closed")

	// General errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrOperationTimeout   = errors.New("operation timed out")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
