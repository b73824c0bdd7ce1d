// Package config provides centralized configuration management for the EFI Pulse system.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration files (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern EFI_* for namespacing:
//
//	EFI_SERVER_PORT=8080
//	EFI_PATHS_DATASET_FILE=data/ethiopia_fi_unified_data.csv
//	EFI_FORECAST_HORIZON=2025,2026,2027
//	EFI_LOGGING_LEVEL=info
//	EFI_REPORT_PDF_ENABLED=true
//
// # Configuration Structure
//
// The main configuration struct groups settings per concern:
//
//	type Config struct {
//	    Server    ServerConfig    `envconfig:"SERVER"`
//	    Security  SecurityConfig  `envconfig:"SECURITY"`
//	    Logging   LoggingConfig   `envconfig:"LOGGING"`
//	    Paths     PathsConfig     `envconfig:"PATHS"`
//	    WebSocket WebSocketConfig `envconfig:"WEBSOCKET"`
//	    Forecast  ForecastConfig  `envconfig:"FORECAST"`
//	    Report    ReportConfig    `envconfig:"REPORT"`
//	}
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which handles all file system paths relative to the executable location:
//
//	paths, _ := config.GetPaths()
//	dataset := paths.DatasetFile
//	workbook := paths.GetWorkbookPath()
//	chart := paths.GetChartPath("ownership_trajectory.png")
//
// # Validation
//
// All configuration is validated at load time to ensure:
//
//	- Required fields are present
//	- Values are within acceptable ranges
//	- Forecast horizon years are strictly ascending
//	- File paths are accessible
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Testing
//
// For testing, use the config.Default() function to create a configuration
// with sensible defaults that don't require environment variables or
// external resources.
package config
