package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apierrors "eficli/internal/errors"
	"eficli/internal/infrastructure"
	"eficli/internal/middleware"
	"eficli/internal/operations"
	"eficli/internal/services"
)

// Hub interface defines WebSocket hub operations used by the handler
type Hub interface {
	Broadcast(messageType string, data interface{})
}

// OperationsHandler handles pipeline operation HTTP requests
type OperationsHandler struct {
	service OperationServiceInterface
	wsHub   Hub
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewOperationsHandler creates a new operations handler
func NewOperationsHandler(service OperationServiceInterface, wsHub Hub, logger *slog.Logger) *OperationsHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if wsHub == nil {
		panic("wsHub cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OperationsHandler{
		service: service,
		wsHub:   wsHub,
		logger:  logger.With(slog.String("handler", "operations")),
		metrics: nil, // Will be set via SetMetrics method
	}
}

// SetMetrics sets the business metrics for the handler
func (h *OperationsHandler) SetMetrics(metrics *infrastructure.BusinessMetrics) {
	h.metrics = metrics
}

// OperationStartRequest represents the request to start the analysis pipeline
type OperationStartRequest struct {
	Step         string                 `json:"step,omitempty"`
	DatasetPath  string                 `json:"dataset_path,omitempty"`
	OutputDir    string                 `json:"output_dir,omitempty"`
	ChartsDir    string                 `json:"charts_dir,omitempty"`
	HorizonYears []int                  `json:"horizon_years,omitempty"`
	Scenarios    map[string]float64     `json:"scenarios,omitempty"`
	SkipReport   bool                   `json:"skip_report,omitempty"`
	Sync         bool                   `json:"sync,omitempty"`
	Parameters   map[string]interface{} `json:"parameters,omitempty"`
}

// Bind implements the render.Binder interface for request validation
func (req *OperationStartRequest) Bind(r *http.Request) error {
	if req.Step != "" && req.Step != operations.FullPipeline {
		valid := false
		for _, id := range operations.StepIDs() {
			if req.Step == id {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid step: %s (valid: %v or %s)", req.Step, operations.StepIDs(), operations.FullPipeline)
		}
	}

	for i := 1; i < len(req.HorizonYears); i++ {
		if req.HorizonYears[i] <= req.HorizonYears[i-1] {
			return errors.New("horizon_years must be strictly increasing")
		}
	}

	for name, rate := range req.Scenarios {
		if name == "" {
			return errors.New("scenario name must not be empty")
		}
		if rate < 0 {
			return fmt.Errorf("scenario %s: annual rate must not be negative", name)
		}
	}

	return nil
}

// Routes returns a chi router for operations endpoints
func (h *OperationsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Apply timeout middleware to all operations routes
	r.Use(middleware.Timeout(60*time.Second, h.logger))

	// Operations endpoints
	r.Get("/types", h.GetOperationTypes)
	r.Post("/start", h.StartOperation)
	r.Get("/", h.ListOperations)
	r.Get("/{id}", h.GetOperationStatus)
	r.Get("/{id}/status", h.GetOperationStatus)
	r.Post("/{id}/stop", h.StopOperation)

	// Async job endpoints
	r.Get("/jobs", h.ListJobs)
	r.Get("/jobs/{id}", h.GetJobStatus)

	return r
}

// StartOperation handles POST /api/operations/start
func (h *OperationsHandler) StartOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("operations-handler")

	ctx, span := tracer.Start(ctx, "operations_handler.start_operation",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations/start"),
			attribute.String("request_id", reqID),
			attribute.String("component", "operations_handler"),
		),
	)
	defer span.End()

	h.logger.InfoContext(ctx, "operation start request",
		slog.String("request_id", reqID),
		slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)),
		slog.String("operation", "start_operation"),
	)

	// Decode and validate request. An empty body means a full pipeline
	// run with config defaults.
	data := &OperationStartRequest{}
	if r.Body != nil && r.ContentLength != 0 {
		if err := render.Bind(r, data); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "request_validation"))

			h.logger.ErrorContext(ctx, "failed to bind operation request",
				slog.String("error", err.Error()),
				slog.String("request_id", reqID))

			problem := apierrors.NewProblemDetails(
				http.StatusBadRequest,
				"/errors/validation_failed",
				"validation_failed",
				err.Error(),
				r.URL.Path+"#"+reqID,
			).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx))

			render.Render(w, r, problem)
			return
		}
	}

	stepID := data.Step
	mode := operations.ModeAnalysis
	if stepID != "" && stepID != operations.FullPipeline {
		mode = operations.ModeStep
	}

	request := operations.OperationRequest{
		Mode:         mode,
		DatasetPath:  data.DatasetPath,
		OutputDir:    data.OutputDir,
		ChartsDir:    data.ChartsDir,
		HorizonYears: data.HorizonYears,
		Scenarios:    data.Scenarios,
		SkipReport:   data.SkipReport,
		Parameters:   data.Parameters,
	}

	span.SetAttributes(
		attribute.String("operation.mode", mode),
		attribute.String("operation.step", stepID),
		attribute.Bool("operation.skip_report", data.SkipReport),
	)

	// Synchronous execution when explicitly requested
	if data.Sync {
		h.executeSync(ctx, w, r, request, stepID, span)
		return
	}

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	operationID, err := h.service.StartOperation(startCtx, request, stepID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation enqueue failed")

		h.logger.ErrorContext(ctx, "failed to start operation",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		if errors.Is(err, services.ErrInvalidStep) {
			problem := apierrors.NewProblemDetails(
				http.StatusBadRequest,
				"/errors/validation_failed",
				"validation_failed",
				err.Error(),
				r.URL.Path+"#"+reqID,
			).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx))

			render.Render(w, r, problem)
			return
		}

		problem := apierrors.NewProblemDetails(
			http.StatusServiceUnavailable,
			"/errors/queue_full",
			"queue_full",
			"Operation queue is full. Please try again later.",
			r.URL.Path+"#"+reqID,
		).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx))

		render.Render(w, r, problem)
		return
	}

	h.logger.InfoContext(ctx, "operation enqueued",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.String("request_id", reqID))

	// Send WebSocket notification
	h.wsHub.Broadcast("operation_update", map[string]interface{}{
		"operation_id": operationID,
		"status":       "pending",
		"step":         stepID,
		"timestamp":    time.Now().UTC(),
	})

	// Return 202 Accepted with operation ID
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{
		"operation_id": operationID,
		"status":       "pending",
		"message":      "Operation queued for processing",
		"poll_url":     "/api/operations/" + operationID,
	})
}

// executeSync runs the pipeline inline and returns the full response
func (h *OperationsHandler) executeSync(ctx context.Context, w http.ResponseWriter, r *http.Request, request operations.OperationRequest, stepID string, span trace.Span) {
	reqID := middleware.GetReqID(ctx)

	if stepID != "" && stepID != operations.FullPipeline {
		if request.Parameters == nil {
			request.Parameters = make(map[string]interface{})
		}
		request.Parameters["step"] = stepID
	}

	execCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if h.metrics != nil {
		infrastructure.RecordActiveOperationChange(ctx, h.metrics, 1, request.Mode)
		defer infrastructure.RecordActiveOperationChange(ctx, h.metrics, -1, request.Mode)
	}

	executionStart := time.Now()
	result, err := h.service.ExecuteOperation(execCtx, request)
	executionDuration := time.Since(executionStart)

	if h.metrics != nil {
		id := ""
		if result != nil {
			id = result.ID
		}
		infrastructure.RecordOperationMetrics(ctx, h.metrics, id, request.Mode, executionDuration, err == nil, err)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation execution failed")

		h.logger.ErrorContext(ctx, "operation execution failed",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		problem := apierrors.NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/operation_failed",
			"operation_failed",
			"Failed to execute operation: "+err.Error(),
			r.URL.Path+"#"+reqID,
		).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx))

		render.Render(w, r, problem)
		return
	}

	span.SetAttributes(
		attribute.Bool("operation.success", result.Status == operations.OperationStatusCompleted),
		attribute.Float64("operation.duration_ms", float64(result.Duration.Milliseconds())),
	)

	h.logger.InfoContext(ctx, "operation completed synchronously",
		slog.String("operation_id", result.ID),
		slog.Bool("success", result.Status == operations.OperationStatusCompleted),
		slog.Duration("duration", result.Duration),
		slog.String("request_id", reqID))

	response := map[string]interface{}{
		"id":      result.ID,
		"status":  result.Status,
		"success": result.Status == operations.OperationStatusCompleted,
		"steps":   result.Steps,
	}
	if result.Error != "" {
		response["error"] = result.Error
	}

	render.JSON(w, r, response)
}

// StopOperation handles POST /api/operations/{id}/stop
func (h *OperationsHandler) StopOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operationID := chi.URLParam(r, "id")
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("operations-handler")

	ctx, span := tracer.Start(ctx, "operations_handler.stop_operation",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations/{id}/stop"),
			attribute.String("operation.id", operationID),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	h.logger.InfoContext(ctx, "operation stop request",
		slog.String("operation_id", operationID),
		slog.String("request_id", reqID),
		slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)))

	cancelCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cancelStart := time.Now()
	err := h.service.CancelOperation(cancelCtx, operationID)
	cancelDuration := time.Since(cancelStart)

	if err == nil && h.metrics != nil {
		infrastructure.RecordOperationCancellation(ctx, h.metrics, operationID, "unknown", "user_requested")
	}

	span.SetAttributes(
		attribute.Float64("cancellation.duration_ms", float64(cancelDuration.Milliseconds())),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation cancellation failed")

		h.logger.ErrorContext(ctx, "failed to cancel operation",
			slog.String("operation_id", operationID),
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		h.handleError(w, r, err, map[string]interface{}{
			"operation_id": operationID,
		})
		return
	}

	h.logger.InfoContext(ctx, "operation cancelled successfully",
		slog.String("operation_id", operationID),
		slog.String("request_id", reqID))

	h.wsHub.Broadcast("operation_update", map[string]interface{}{
		"operation_id": operationID,
		"status":       "cancelled",
		"timestamp":    time.Now().UTC(),
	})

	render.JSON(w, r, map[string]string{
		"message": "Operation cancelled successfully",
	})
}

// GetOperationStatus handles GET /api/operations/{id}
func (h *OperationsHandler) GetOperationStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	operationID := chi.URLParam(r, "id")
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("operations-handler")

	ctx, span := tracer.Start(ctx, "operations_handler.get_status",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations/{id}"),
			attribute.String("operation.id", operationID),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	h.logger.DebugContext(ctx, "operation status request",
		slog.String("operation_id", operationID),
		slog.String("request_id", reqID))

	statusCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	snapshot, err := h.service.GetStatus(statusCtx, operationID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status retrieval failed")

		h.logger.ErrorContext(ctx, "failed to get operation status",
			slog.String("operation_id", operationID),
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		h.handleError(w, r, err, map[string]interface{}{
			"operation_id": operationID,
		})
		return
	}

	span.SetAttributes(
		attribute.String("operation.status", snapshot.Status),
		attribute.Int("operation.steps_count", len(snapshot.Steps)),
	)

	render.JSON(w, r, snapshot)
}

// ListOperations handles GET /api/operations
func (h *OperationsHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("operations-handler")

	ctx, span := tracer.Start(ctx, "operations_handler.list_operations",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	statusFilter := r.URL.Query().Get("status")

	h.logger.DebugContext(ctx, "listing operations",
		slog.String("status_filter", statusFilter),
		slog.String("request_id", reqID))

	listCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var snapshots []*operations.OperationSnapshot
	var err error

	if statusFilter != "" {
		validStatuses := map[string]bool{
			"pending":   true,
			"running":   true,
			"completed": true,
			"failed":    true,
			"cancelled": true,
		}

		if !validStatuses[statusFilter] {
			problem := apierrors.NewProblemDetails(
				http.StatusBadRequest,
				"/errors/validation_failed",
				"validation_failed",
				fmt.Sprintf("Invalid status filter: %s", statusFilter),
				r.URL.Path+"#"+reqID,
			).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx)).
				WithExtension("valid_statuses", []string{"pending", "running", "completed", "failed", "cancelled"})

			render.Render(w, r, problem)
			return
		}

		snapshots, err = h.service.ListOperationsByStatus(listCtx, statusFilter)
		span.SetAttributes(attribute.String("filter.status", statusFilter))
	} else {
		snapshots, err = h.service.ListOperations(listCtx)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list operations failed")

		h.logger.ErrorContext(ctx, "failed to list operations",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		problem := apierrors.NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/list_failed",
			"list_failed",
			"Failed to list operations",
			r.URL.Path+"#"+reqID,
		).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx))

		render.Render(w, r, problem)
		return
	}

	// Newest first for dashboard polling
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].StartedAt.After(snapshots[j].StartedAt)
	})

	span.SetAttributes(attribute.Int("operations.count", len(snapshots)))

	render.JSON(w, r, map[string]interface{}{
		"operations": snapshots,
		"count":      len(snapshots),
	})
}

// GetOperationTypes handles GET /api/operations/types
func (h *OperationsHandler) GetOperationTypes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("operations-handler")

	ctx, span := tracer.Start(ctx, "operations_handler.get_operation_types",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations/types"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	h.logger.DebugContext(ctx, "getting operation types",
		slog.String("request_id", reqID))

	typesCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	types, err := h.service.GetOperationTypes(typesCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get operation types failed")

		h.logger.ErrorContext(ctx, "failed to get operation types",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		problem := apierrors.NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/internal_error",
			"internal_error",
			"Failed to retrieve operation types",
			r.URL.Path+"#"+reqID,
		).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx))

		render.Render(w, r, problem)
		return
	}

	span.SetAttributes(attribute.Int("operation_types.count", len(types)))

	render.JSON(w, r, types)
}

// GetJobStatus handles GET /api/operations/jobs/{id}
func (h *OperationsHandler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "id")
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("operations-handler")

	ctx, span := tracer.Start(ctx, "operations_handler.get_job_status",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations/jobs/{id}"),
			attribute.String("job.id", jobID),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	h.logger.DebugContext(ctx, "job status request",
		slog.String("job_id", jobID),
		slog.String("request_id", reqID))

	job, err := h.service.GetJob(ctx, jobID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job retrieval failed")

		h.logger.ErrorContext(ctx, "failed to get job status",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		problem := apierrors.NewProblemDetails(
			http.StatusNotFound,
			"/errors/not_found",
			"not_found",
			"Job not found",
			r.URL.Path+"#"+reqID,
		).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx)).
			WithExtension("job_id", jobID)

		render.Render(w, r, problem)
		return
	}

	span.SetAttributes(
		attribute.String("job.status", string(job.Status)),
		attribute.Int("job.progress", job.Progress),
	)

	response := map[string]interface{}{
		"job_id":       job.ID,
		"operation_id": job.OperationID,
		"step_id":      job.StepID,
		"step_name":    job.StepName,
		"status":       job.Status,
		"progress":     job.Progress,
		"created_at":   job.CreatedAt,
	}

	if job.StartedAt != nil {
		response["started_at"] = job.StartedAt
	}
	if job.CompletedAt != nil {
		response["completed_at"] = job.CompletedAt
		if job.StartedAt != nil {
			response["duration"] = job.CompletedAt.Sub(*job.StartedAt).String()
		}
	}
	if job.Message != "" {
		response["message"] = job.Message
	}
	if job.Error != "" {
		response["error"] = job.Error
	}

	// Polling hints
	switch job.Status {
	case operations.JobStatusPending, operations.JobStatusRunning:
		response["poll_after"] = "2s"
		response["is_complete"] = false
	case operations.JobStatusCompleted, operations.JobStatusFailed, operations.JobStatusCancelled:
		response["is_complete"] = true
	}

	render.JSON(w, r, response)
}

// ListJobs handles GET /api/operations/jobs
func (h *OperationsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	tracer := otel.Tracer("operations-handler")

	ctx, span := tracer.Start(ctx, "operations_handler.list_jobs",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations/jobs"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	filter := operations.JobFilter{}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = operations.JobStatus(status)
		span.SetAttributes(attribute.String("filter.status", status))
	}
	if opID := r.URL.Query().Get("operation_id"); opID != "" {
		filter.OperationID = opID
		span.SetAttributes(attribute.String("filter.operation_id", opID))
	}
	if stepID := r.URL.Query().Get("step_id"); stepID != "" {
		filter.StepID = stepID
		span.SetAttributes(attribute.String("filter.step_id", stepID))
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
			span.SetAttributes(attribute.Int("filter.limit", limit))
		}
	}

	h.logger.DebugContext(ctx, "listing jobs",
		slog.String("status_filter", string(filter.Status)),
		slog.String("operation_filter", filter.OperationID),
		slog.String("step_filter", filter.StepID),
		slog.Int("limit", filter.Limit),
		slog.String("request_id", reqID))

	jobs, err := h.service.ListJobs(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list jobs failed")

		h.logger.ErrorContext(ctx, "failed to list jobs",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		problem := apierrors.NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/list_failed",
			"list_failed",
			"Failed to list jobs",
			r.URL.Path+"#"+reqID,
		).WithExtension("trace_id", infrastructure.TraceIDFromContext(ctx))

		render.Render(w, r, problem)
		return
	}

	span.SetAttributes(attribute.Int("jobs.count", len(jobs)))

	render.JSON(w, r, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// handleError centralizes error handling for the handler
func (h *OperationsHandler) handleError(w http.ResponseWriter, r *http.Request, err error, extensions map[string]interface{}) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	traceID := infrastructure.TraceIDFromContext(ctx)

	h.logger.ErrorContext(ctx, "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("trace_id", traceID),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method))

	var problem *apierrors.ProblemDetails

	switch {
	case errors.Is(err, services.ErrOperationNotFound) || errors.Is(err, operations.ErrOperationNotFound):
		problem = apierrors.NewProblemDetails(
			http.StatusNotFound,
			"/errors/not_found",
			"not_found",
			"Operation not found",
			r.URL.Path+"#"+reqID,
		)

	case errors.Is(err, services.ErrInvalidInput):
		problem = apierrors.NewProblemDetails(
			http.StatusBadRequest,
			"/errors/validation_failed",
			"validation_failed",
			err.Error(),
			r.URL.Path+"#"+reqID,
		)

	case errors.Is(err, context.DeadlineExceeded):
		problem = apierrors.NewProblemDetails(
			http.StatusGatewayTimeout,
			"/errors/timeout",
			"Request Timeout",
			"The request timed out while processing",
			r.URL.Path+"#"+reqID,
		)

	case errors.Is(err, context.Canceled):
		problem = apierrors.NewProblemDetails(
			http.StatusRequestTimeout,
			"/errors/request_canceled",
			"Request Canceled",
			"The request was canceled",
			r.URL.Path+"#"+reqID,
		)

	default:
		problem = apierrors.NewProblemDetails(
			http.StatusInternalServerError,
			"/errors/internal_error",
			"Internal Server Error",
			"An unexpected error occurred",
			r.URL.Path+"#"+reqID,
		)
	}

	problem.WithExtension("trace_id", traceID).
		WithExtension("timestamp", time.Now().UTC()).
		WithExtension("request_id", reqID)

	for k, v := range extensions {
		problem.WithExtension(k, v)
	}

	render.Render(w, r, problem)
}
