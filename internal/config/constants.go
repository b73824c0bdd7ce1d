package config

import "time"

// Application constants - all hardcoded values for the EFI Pulse system
const (
	// Application Info
	AppName    = "EFI Pulse"
	AppVersion = "1.2.0"
	AppVendor  = "EFI Analytics"

	// Dataset Constants
	DatasetFileName       = "ethiopia_fi_unified_data.csv"
	ReferenceCodesName    = "reference_codes.csv"
	DatasetCountry        = "Ethiopia"
	DatasetCountryISO3    = "ETH"
	DatasetRecordTypes    = 4 // observation, event, impact_link, target
	DatasetEarliestYear   = 2011

	// Forecast Constants
	DefaultTargetYear      = 2025
	DefaultHorizonStart    = 2025
	DefaultHorizonEnd      = 2027
	NationalOwnershipGoal  = 60.0 // percent of adults with an account
	DigitalPaymentGoal     = 50.0 // percent of adults making digital payments

	// Rate Limiting
	DefaultRateLimit = 100 // requests per minute
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	PDFRenderTimeout    = 90 * time.Second
	WebSocketPingPeriod = 30 * time.Second
	WebSocketPongWait   = 60 * time.Second

	// File Paths (relative to executable)
	DefaultDataDir    = "data"
	DefaultLogsDir    = "logs"
	DefaultWebDir     = "web"
	DefaultExportsDir = "data/exports"
	DefaultReportsDir = "data/reports"

	// Cache Settings
	DataCacheDuration   = 15 * time.Minute
	ReportCacheDuration = 1 * time.Hour

	// Operation Timeouts
	DefaultOperationTimeout = 30 * time.Minute
	AnalysisTimeout         = 10 * time.Minute
	ExportTimeout           = 5 * time.Minute
	ReportGenerationTimeout = 15 * time.Minute

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "json"
	MaxLogFileSize    = 100 * 1024 * 1024 // 100MB
	MaxLogFileAge     = 30                // days
	MaxLogFileBackups = 10

	// Error Messages
	ErrDatasetMissing   = "Unified dataset not found. Place ethiopia_fi_unified_data.csv in the data directory."
	ErrDatasetEmpty     = "Unified dataset contains no usable records."
	ErrIndicatorUnknown = "Unknown indicator code. See reference_codes.csv for the tracked indicators."
	ErrHorizonInvalid   = "Forecast horizon must be an ascending list of years."

	// Success Messages
	MsgAnalysisComplete = "Analysis pipeline completed successfully."
	MsgReportGenerated  = "Report generated successfully."
	MsgOperationSuccess = "Operation completed successfully."
)

// Feature Flags - compile-time configuration
const (
	// Core Features
	FeatureWebSocketEnabled   = true
	FeatureMetricsEnabled     = true
	FeatureHealthCheckEnabled = true
	FeaturePDFExportEnabled   = true
	FeatureExcelExportEnabled = true

	// Security Features
	FeatureRateLimitingEnabled = true

	// Development Features
	FeatureDebugLoggingEnabled = false
	FeatureVerboseModeEnabled  = false
	FeatureMockDataEnabled     = false
)

// URLs and Endpoints (all embedded)
const (
	// Published data sources the unified dataset is compiled from
	FindexDataURL     = "https://www.worldbank.org/en/publication/globalfindex"
	NBEWebsiteURL     = "https://nbe.gov.et"
	EthioTelecomURL   = "https://www.ethiotelecom.et"
	NFISStrategyLabel = "NFIS-II (2021-2025)"

	// API Endpoints (internal)
	APIBasePath        = "/api"
	DataEndpoint       = "/api/data"
	ChartsEndpoint     = "/api/charts"
	ForecastsEndpoint  = "/api/forecasts"
	OperationsEndpoint = "/api/operations"
	ReportsEndpoint    = "/api/reports"
	HealthEndpoint     = "/health"
	MetricsEndpoint    = "/metrics"

	// WebSocket Endpoints
	WebSocketEndpoint = "/ws"
)

// GetFeatureFlag returns the value of a feature flag
func GetFeatureFlag(flag string) bool {
	switch flag {
	case "websocket":
		return FeatureWebSocketEnabled
	case "metrics":
		return FeatureMetricsEnabled
	case "health_check":
		return FeatureHealthCheckEnabled
	case "pdf_export":
		return FeaturePDFExportEnabled
	case "excel_export":
		return FeatureExcelExportEnabled
	case "rate_limiting":
		return FeatureRateLimitingEnabled
	case "debug_logging":
		return FeatureDebugLoggingEnabled
	case "verbose_mode":
		return FeatureVerboseModeEnabled
	case "mock_data":
		return FeatureMockDataEnabled
	default:
		return false
	}
}
