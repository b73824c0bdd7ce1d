package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"eficli/internal/config"
	"eficli/internal/operations"
	ws "eficli/internal/websocket"
	"eficli/pkg/contracts"
)

// HealthService provides health check functionality
type HealthService struct {
	version      string
	repoURL      string
	buildTime    string
	buildID      string
	config       *config.Config
	operation    *operations.Manager
	webSocketHub *ws.Hub
	startTime    time.Time
	logger       *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// SystemStats represents system statistics
type SystemStats struct {
	UptimeSeconds    float64 `json:"uptime_seconds"`
	TotalFiles       int     `json:"total_files"`
	TotalSizeBytes   int64   `json:"total_size_bytes"`
	WebSocketClients int     `json:"websocket_clients"`
	ActiveOperations int     `json:"active_operations"`
	GoVersion        string  `json:"go_version"`
	OS               string  `json:"os"`
	Arch             string  `json:"arch"`
}

// NewHealthService creates a new health service with injected dependencies and default logger
func NewHealthService(version, repoURL string, cfg *config.Config, operation *operations.Manager, webSocketHub *ws.Hub, logger *slog.Logger) *HealthService {
	return NewHealthServiceWithBuildInfo(version, repoURL, "", "", cfg, operation, webSocketHub, logger)
}

// NewHealthServiceWithBuildInfo creates a new health service with build information
func NewHealthServiceWithBuildInfo(version, repoURL, buildTime, buildID string, cfg *config.Config, operation *operations.Manager, webSocketHub *ws.Hub, logger *slog.Logger) *HealthService {
	// Ensure we have a logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized with full dependencies",
		slog.String("version", version),
		slog.String("repo_url", repoURL),
		slog.String("build_time", buildTime),
		slog.String("build_id", buildID))

	return &HealthService{
		version:      version,
		repoURL:      repoURL,
		buildTime:    buildTime,
		buildID:      buildID,
		config:       cfg,
		operation:    operation,
		webSocketHub: webSocketHub,
		startTime:    time.Now(),
		logger:       logger,
	}
}

// NewHealthServiceWithLogger creates a new health service with a specific logger (simplified constructor for test)
func NewHealthServiceWithLogger(version, repoURL string, logger *slog.Logger) *HealthService {
	// Ensure we have a logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("repo_url", repoURL))

	return &HealthService{
		version:   version,
		repoURL:   repoURL,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.Debug("HealthCheck: performing health check",
		slog.String("version", hs.version),
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]interface{}),
	}

	// Check individual services
	status.Services["dataset"] = hs.checkDatasetHealth()
	status.Services["websocket"] = hs.checkWebSocketHealth()
	status.Services["operation"] = hs.checkOperationHealth()
	status.Services["storage"] = hs.checkStorageHealth()

	// Determine overall readiness
	allReady := true
	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			allReady = false
			break
		}
	}

	if !allReady {
		status.Status = "not_ready"
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"repo_url":     hs.repoURL,
		"data_format":  contracts.DataFormatVersion,
		"api_version":  contracts.APIVersion,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}

	// Include build info if available
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}

	return result
}

// SystemStats returns system statistics
func (hs *HealthService) SystemStats(ctx context.Context) (SystemStats, error) {
	dataDir := hs.config.GetDataDir()

	var totalFiles int
	var totalSize int64

	// Count files and calculate size
	filepath.Walk(dataDir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			totalFiles++
			totalSize += info.Size()
		}
		return nil
	})

	stats := SystemStats{
		UptimeSeconds:  time.Since(hs.startTime).Seconds(),
		TotalFiles:     totalFiles,
		TotalSizeBytes: totalSize,
		GoVersion:      runtime.Version(),
		OS:             runtime.GOOS,
		Arch:           runtime.GOARCH,
	}

	if hs.webSocketHub != nil {
		stats.WebSocketClients = hs.webSocketHub.ClientCount()
	}
	if hs.operation != nil {
		stats.ActiveOperations = len(hs.operation.ListOperations())
	}

	return stats, nil
}

// checkDatasetHealth checks that the unified dataset file is present
func (hs *HealthService) checkDatasetHealth() ServiceHealth {
	if hs.config == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "configuration not initialized",
		}
	}

	datasetFile := hs.config.GetDatasetFile()
	if _, err := os.Stat(datasetFile); os.IsNotExist(err) {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Dataset file not found: %s", datasetFile),
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: "Dataset file is present",
	}
}

// checkWebSocketHealth checks WebSocket service health
func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.webSocketHub == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "websocket hub not initialized",
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("WebSocket service is healthy (%d clients)", hs.webSocketHub.ClientCount()),
		Uptime:  time.Since(hs.startTime).String(),
	}
}

// checkOperationHealth checks operation service health
func (hs *HealthService) checkOperationHealth() ServiceHealth {
	if hs.operation == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "operation manager not initialized",
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: "operation service is healthy",
	}
}

// checkStorageHealth checks that the data directory is writable
func (hs *HealthService) checkStorageHealth() ServiceHealth {
	if hs.config == nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: "configuration not initialized",
		}
	}

	dataDir := hs.config.GetDataDir()
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Data directory not found: %s", dataDir),
		}
	}

	if err := os.MkdirAll(filepath.Join(dataDir, "cache"), 0755); err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Cannot write to data directory: %v", err),
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: "Storage is healthy",
	}
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	stats, _ := hs.SystemStats(ctx)

	return map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
		"stats":     stats,
	}
}
