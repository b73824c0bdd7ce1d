package operations

import (
	"time"
)

// Pipeline step identifiers
const (
	StepIDLoad     = "load"
	StepIDQuality  = "quality"
	StepIDForecast = "forecast"
	StepIDExport   = "export"
	StepIDReport   = "report"
)

// Pipeline step names
const (
	StepNameLoad     = "Dataset Load"
	StepNameQuality  = "Quality Checks"
	StepNameForecast = "Forecast Generation"
	StepNameExport   = "Artifact Export"
	StepNameReport   = "Report Generation"
)

// Config keys carried from the request into the operation state
const (
	ConfigKeyDatasetPath  = "dataset_path"
	ConfigKeyOutputDir    = "output_dir"
	ConfigKeyChartsDir    = "charts_dir"
	ConfigKeyHorizonYears = "horizon_years"
	ConfigKeyScenarios    = "scenarios"
	ConfigKeySkipReport   = "skip_report"
	ConfigKeyMode         = "mode"
)

// Context keys for data passed between steps
const (
	ContextKeyDataset       = "dataset"
	ContextKeySummary       = "summary"
	ContextKeyQualityReport = "quality_report"
	ContextKeyAnalysis      = "analysis"
	ContextKeyExportFiles   = "export_files"
	ContextKeyReportFiles   = "report_files"
	ContextKeyRecordsLoaded = "records_loaded"
)

// Operation modes. ModeAnalysis runs the full pipeline; ModeStep runs the
// single step named in Parameters["step"].
const (
	ModeAnalysis = "analysis"
	ModeStep     = "step"
)

// FullPipeline is the step parameter value that requests every step.
const FullPipeline = "full_pipeline"

// WebSocket event types, matching the hub envelope vocabulary
const (
	EventTypeOperationStatus   = "operation:status"
	EventTypeOperationProgress = "operation:progress"
	EventTypeOperationComplete = "operation:complete"
	EventTypeOperationError    = "operation:error"
	EventTypeOperationSnapshot = "operation:snapshot"
)

// Default timeouts. The report step gets the largest budget because PDF
// rendering waits on headless Chrome.
const (
	DefaultStepTimeout     = 5 * time.Minute
	DefaultLoadTimeout     = 1 * time.Minute
	DefaultQualityTimeout  = 1 * time.Minute
	DefaultForecastTimeout = 2 * time.Minute
	DefaultExportTimeout   = 2 * time.Minute
	DefaultReportTimeout   = 5 * time.Minute
)

// ExecutionMode defines how steps are executed
type ExecutionMode string

const (
	ExecutionModeSequential ExecutionMode = "sequential"
	ExecutionModeParallel   ExecutionMode = "parallel"
)

// RetryConfig defines retry behavior for steps
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns the default retry configuration
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// OperationRequest represents a request to execute an operation
type OperationRequest struct {
	ID           string                 `json:"id"`
	Mode         string                 `json:"mode"`
	DatasetPath  string                 `json:"dataset_path,omitempty"`
	OutputDir    string                 `json:"output_dir,omitempty"`
	ChartsDir    string                 `json:"charts_dir,omitempty"`
	HorizonYears []int                  `json:"horizon_years,omitempty"`
	Scenarios    map[string]float64     `json:"scenarios,omitempty"`
	SkipReport   bool                   `json:"skip_report,omitempty"`
	Parameters   map[string]interface{} `json:"parameters,omitempty"`
}

// OperationResponse represents the outcome of an operation execution
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatusValue  `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Error    string                `json:"error,omitempty"`
}

// OperationType describes a runnable operation for API consumers
type OperationType struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	Dependencies []string              `json:"dependencies"`
	CanRunAlone  bool                  `json:"can_run_alone"`
	Parameters   []ParameterDefinition `json:"parameters"`
}

// ParameterDefinition defines a parameter for an operation type
type ParameterDefinition struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // string, number, date, select, boolean
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
	Options     []string    `json:"options,omitempty"` // For select type
}

// StepIDs returns the canonical pipeline step IDs in dependency order.
func StepIDs() []string {
	return []string{StepIDLoad, StepIDQuality, StepIDForecast, StepIDExport, StepIDReport}
}

// StepName returns the human-readable name for a canonical step ID.
// Unknown IDs are returned unchanged.
func StepName(id string) string {
	switch id {
	case StepIDLoad:
		return StepNameLoad
	case StepIDQuality:
		return StepNameQuality
	case StepIDForecast:
		return StepNameForecast
	case StepIDExport:
		return StepNameExport
	case StepIDReport:
		return StepNameReport
	default:
		return id
	}
}
