package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// Domain-specific errors (using errors package for sentinel errors)
var (
	ErrDatasetNotLoaded         = errors.New("dataset not loaded")
	ErrDatasetEmpty             = errors.New("dataset contains no usable records")
	ErrIndicatorUnknown         = errors.New("unknown indicator code")
	ErrInsufficientObservations = errors.New("insufficient observations")
	ErrOperationAlreadyRunning  = errors.New("operation already running")
	ErrReportNotGenerated       = errors.New("report not generated")
	ErrRendererUnavailable      = errors.New("pdf renderer unavailable")
	ErrRateLimited              = errors.New("rate limited")
)

// DatasetStatusDetails provides additional context for dataset errors
type DatasetStatusDetails struct {
	Path         string     `json:"path,omitempty"`
	Records      int        `json:"records,omitempty"`
	Indicators   int        `json:"indicators,omitempty"`
	FirstObsYear int        `json:"first_obs_year,omitempty"`
	LatestYear   int        `json:"latest_obs_year,omitempty"`
	LoadedAt     *time.Time `json:"loaded_at,omitempty"`
}

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	// Add standard fields
	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	// Add extensions
	for k, v := range pd.Extensions {
		data[k] = v
	}

	// Use standard JSON marshaling
	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// NewDatasetEmptyError creates an error for a dataset with no usable records
func NewDatasetEmptyError(details *DatasetStatusDetails, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusUnprocessableEntity,
		"/errors/dataset-empty",
		"Dataset Contains No Usable Records",
		"The unified dataset was read but no valid records survived parsing. Check the CSV header and record types.",
		fmt.Sprintf("/api/data/records#%s", traceID),
	)

	problem.WithExtension("error_type", "dataset_empty").
		WithExtension("trace_id", traceID)

	if details != nil {
		if details.Path != "" {
			problem.WithExtension("dataset_path", details.Path)
		}
		problem.WithExtension("record_count", details.Records)
	}

	return problem
}

// NewInsufficientDataError creates an error for a series too sparse to forecast
func NewInsufficientDataError(code string, observations int, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusUnprocessableEntity,
		"/errors/forecast/insufficient-data",
		"Insufficient Observations",
		fmt.Sprintf("Indicator %s has %d observation(s); at least 2 distinct years are required to fit a trend.", code, observations),
		fmt.Sprintf("/api/forecasts#%s", traceID),
	)

	problem.WithExtension("error_type", "insufficient_data").
		WithExtension("trace_id", traceID).
		WithExtension("indicator_code", code).
		WithExtension("observations", observations).
		WithExtension("required", 2)

	return problem
}

// NewOperationRunningError creates an error for a conflicting operation start
func NewOperationRunningError(operationID, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusConflict,
		"/errors/operation/already-running",
		"Operation Already Running",
		"An analysis operation is already in progress. Wait for it to finish or watch its progress over the WebSocket feed.",
		fmt.Sprintf("/api/operations/start#%s", traceID),
	)

	problem.WithExtension("error_type", "operation_running").
		WithExtension("trace_id", traceID)

	if operationID != "" {
		problem.WithExtension("operation_id", operationID)
	}

	return problem
}

// MapDataError maps domain errors to HTTP problem details
func MapDataError(err error, traceID string) render.Renderer {
	instance := fmt.Sprintf("/api/data#trace-%s", traceID)

	// Check if it's an APIError from errors.go
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode == "DATASET_NOT_FOUND" {
			return NewProblemDetails(
				http.StatusNotFound,
				"/errors/dataset-not-found",
				"Dataset Not Found",
				"No unified dataset file found. Place ethiopia_fi_unified_data.csv in the data directory.",
				instance,
			).WithExtension("trace_id", traceID).
				WithExtension("error_code", "DATASET_NOT_FOUND")
		}
	}

	switch {
	case errors.Is(err, ErrDatasetNotLoaded):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			"/errors/dataset-not-loaded",
			"Dataset Not Loaded",
			"The unified dataset has not been loaded yet. Run the analysis operation or restart the server.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "DATASET_NOT_LOADED")

	case errors.Is(err, ErrDatasetEmpty):
		return NewDatasetEmptyError(nil, traceID)

	case errors.Is(err, ErrIndicatorUnknown):
		return NewProblemDetails(
			http.StatusNotFound,
			"/errors/indicator-unknown",
			"Unknown Indicator",
			"The requested indicator code is not present in the dataset. See reference_codes.csv for tracked indicators.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INDICATOR_UNKNOWN")

	case errors.Is(err, ErrInsufficientObservations):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			"/errors/forecast/insufficient-data",
			"Insufficient Observations",
			"The indicator series is too sparse to fit a trend. At least 2 distinct years are required.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INSUFFICIENT_OBSERVATIONS")

	case errors.Is(err, ErrOperationAlreadyRunning):
		return NewOperationRunningError("", traceID)

	case errors.Is(err, ErrReportNotGenerated):
		return NewProblemDetails(
			http.StatusNotFound,
			"/errors/report-not-generated",
			"Report Not Generated",
			"No report has been generated yet. Trigger report generation first.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "REPORT_NOT_GENERATED")

	case errors.Is(err, ErrRendererUnavailable):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			"/errors/renderer-unavailable",
			"PDF Renderer Unavailable",
			"Headless Chrome is not available for PDF rendering. The HTML report remains available.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "RENDERER_UNAVAILABLE")

	case errors.Is(err, ErrRateLimited):
		return NewProblemDetails(
			http.StatusTooManyRequests,
			"/errors/rate-limited",
			"Too Many Requests",
			"Too many requests. Please try again later.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "RATE_LIMITED").
			WithExtension("retry_after", 60)

	default:
		// Generic error
		return NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/internal-error",
			"Internal Server Error",
			"An unexpected error occurred while processing your request.",
			instance,
		).WithExtension("trace_id", traceID).
			WithExtension("error_code", "INTERNAL_ERROR")
	}
}
