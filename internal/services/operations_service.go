package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eficli/internal/config"
	"eficli/internal/operations"
)

// WebSocketHub interface for WebSocket communication
type WebSocketHub interface {
	Broadcast(messageType string, data interface{})
}

// WebSocketOperationAdapter adapts the websocket hub to the operations
// package's broadcaster interface
type WebSocketOperationAdapter struct {
	hub WebSocketHub
}

// NewWebSocketOperationAdapter creates a new WebSocket operation adapter
func NewWebSocketOperationAdapter(hub WebSocketHub) *WebSocketOperationAdapter {
	return &WebSocketOperationAdapter{hub: hub}
}

// BroadcastUpdate implements operations.WebSocketHub
func (w *WebSocketOperationAdapter) BroadcastUpdate(eventType, step, status string, metadata interface{}) {
	data := map[string]interface{}{
		"step":   step,
		"status": status,
	}
	if metadata != nil {
		data["metadata"] = metadata
	}
	w.hub.Broadcast(eventType, data)
}

// OperationService runs analysis pipelines. Synchronous execution goes
// through the manager directly; API-triggered runs are enqueued on the
// job queue so the HTTP handler can return immediately.
type OperationService struct {
	manager *operations.Manager
	queue   *operations.JobQueue
	logger  *slog.Logger
	paths   *config.Paths
}

// NewOperationService creates an operation service with the full
// pipeline registered and an in-memory job store
func NewOperationService(cfg *config.Config, adapter *WebSocketOperationAdapter, logger *slog.Logger) (*OperationService, error) {
	// Get the centralized paths
	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("OperationService initialized with paths",
		slog.String("dataset_file", cfg.GetDatasetFile()),
		slog.String("exports_dir", paths.ExportsDir),
		slog.String("charts_dir", paths.ChartsDir))

	opConfig := operations.NewConfig()
	opConfig.DatasetPath = cfg.GetDatasetFile()
	opConfig.OutputDir = paths.ExportsDir
	opConfig.ChartsDir = paths.ChartsDir
	opConfig.HorizonYears = cfg.Forecast.Horizon
	opConfig.Scenarios = cfg.Forecast.Scenarios
	if cfg.Report.RenderTimeout > 0 {
		opConfig.SetStepTimeout(operations.StepIDReport, cfg.Report.RenderTimeout)
	}

	manager := operations.NewManager(adapter, nil, opConfig)
	if err := operations.RegisterPipelineSteps(manager, logger); err != nil {
		return nil, fmt.Errorf("failed to register pipeline steps: %w", err)
	}

	queue := operations.NewJobQueue(2, operations.NewMemoryJobStore(), manager, logger)

	return &OperationService{
		manager: manager,
		queue:   queue,
		logger:  logger,
		paths:   paths,
	}, nil
}

// StartQueue starts the async job workers
func (ps *OperationService) StartQueue(ctx context.Context) {
	ps.queue.Start(ctx)
}

// StopQueue drains the job workers, waiting up to timeout
func (ps *OperationService) StopQueue(timeout time.Duration) error {
	return ps.queue.Stop(timeout)
}

// StartOperation enqueues an analysis run and returns its operation ID.
// An empty StepID requests the full pipeline.
func (ps *OperationService) StartOperation(ctx context.Context, req operations.OperationRequest, stepID string) (string, error) {
	if stepID != "" && stepID != operations.FullPipeline && !validStepID(stepID) {
		return "", fmt.Errorf("%w: %s", ErrInvalidStep, stepID)
	}

	operationID := req.ID
	if operationID == "" {
		operationID = uuid.New().String()
		req.ID = operationID
	}

	job := &operations.Job{
		ID:          uuid.New().String(),
		OperationID: operationID,
		StepID:      stepID,
		StepName:    operations.StepName(stepID),
		Request:     &req,
	}

	if err := ps.queue.Enqueue(job); err != nil {
		return "", fmt.Errorf("failed to enqueue operation: %w", err)
	}

	ps.logger.InfoContext(ctx, "operation enqueued",
		slog.String("operation_id", operationID),
		slog.String("job_id", job.ID),
		slog.String("step", stepID),
		slog.String("mode", req.Mode))

	return operationID, nil
}

// ExecuteOperation runs an operation synchronously and returns the
// manager's response. Used by the analysis CLI.
func (ps *OperationService) ExecuteOperation(ctx context.Context, req operations.OperationRequest) (*operations.OperationResponse, error) {
	resp, err := ps.manager.Execute(ctx, req)
	if err != nil {
		return resp, fmt.Errorf("failed to execute operation: %w", err)
	}

	ps.logger.InfoContext(ctx, "operation executed",
		slog.String("id", resp.ID),
		slog.String("status", string(resp.Status)))

	return resp, nil
}

// GetStatus returns the broadcaster snapshot for an operation. Finished
// operations stay visible until the broadcaster's cleanup window passes.
func (ps *OperationService) GetStatus(ctx context.Context, operationID string) (*operations.OperationSnapshot, error) {
	if operationID == "" {
		return nil, fmt.Errorf("%w: operation ID is required", ErrInvalidInput)
	}

	snapshot, ok := ps.manager.GetBroadcaster().GetSnapshot(operationID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, operationID)
	}

	return snapshot, nil
}

// ListOperations returns snapshots of every known operation
func (ps *OperationService) ListOperations(ctx context.Context) ([]*operations.OperationSnapshot, error) {
	return ps.manager.GetBroadcaster().GetAllSnapshots(), nil
}

// ListOperationsByStatus returns operation snapshots filtered by status
func (ps *OperationService) ListOperationsByStatus(ctx context.Context, status string) ([]*operations.OperationSnapshot, error) {
	snapshots := ps.manager.GetBroadcaster().GetAllSnapshots()
	var result []*operations.OperationSnapshot
	for _, s := range snapshots {
		if s.Status == status {
			result = append(result, s)
		}
	}
	return result, nil
}

// CancelOperation cancels a running or queued operation
func (ps *OperationService) CancelOperation(ctx context.Context, operationID string) error {
	// Cancel the queued or active job first, then fall back to the manager
	// for operations started synchronously.
	jobs, err := ps.queue.ListJobs(operations.JobFilter{OperationID: operationID})
	if err == nil && len(jobs) > 0 {
		for _, job := range jobs {
			if job.Status == operations.JobStatusPending || job.Status == operations.JobStatusRunning {
				if err := ps.queue.CancelJob(job.ID); err != nil {
					return err
				}
				ps.logger.InfoContext(ctx, "operation cancelled",
					slog.String("operation_id", operationID),
					slog.String("job_id", job.ID))
				return nil
			}
		}
	}

	if err := ps.manager.CancelOperation(operationID); err != nil {
		if errors.Is(err, operations.ErrOperationNotFound) {
			return fmt.Errorf("%w: %s", ErrOperationNotFound, operationID)
		}
		return fmt.Errorf("failed to cancel operation: %w", err)
	}

	ps.logger.InfoContext(ctx, "operation cancelled",
		slog.String("operation_id", operationID))
	return nil
}

// CancelAll stops all running operations
func (ps *OperationService) CancelAll(ctx context.Context) error {
	for _, state := range ps.manager.ListOperations() {
		if state.Status != operations.OperationStatusRunning {
			continue
		}
		if err := ps.manager.CancelOperation(state.ID); err != nil {
			ps.logger.ErrorContext(ctx, "failed to cancel operation",
				slog.String("id", state.ID),
				slog.String("error", err.Error()))
			return err
		}
	}
	return nil
}

// GetOperationTypes returns the runnable operation types: each pipeline
// step individually plus the full pipeline
func (ps *OperationService) GetOperationTypes(ctx context.Context) ([]operations.OperationType, error) {
	steps := ps.manager.GetRegistry().List()

	types := make([]operations.OperationType, 0, len(steps)+1)
	for _, step := range steps {
		types = append(types, operations.OperationType{
			ID:           step.ID(),
			Name:         step.Name(),
			Description:  stepDescription(step.ID()),
			Dependencies: step.GetDependencies(),
			CanRunAlone:  true, // every step resolves its inputs from disk when run alone
			Parameters:   stepParameters(step.ID()),
		})
	}

	types = append(types, operations.OperationType{
		ID:           operations.FullPipeline,
		Name:         "Full Analysis Pipeline",
		Description:  "Load the unified dataset, run quality checks, compute forecasts and write exports and reports",
		Dependencies: []string{},
		CanRunAlone:  true,
		Parameters:   pipelineParameters(),
	})

	return types, nil
}

// stepDescription returns a user-facing description for each pipeline step
func stepDescription(stepID string) string {
	descriptions := map[string]string{
		operations.StepIDLoad:     "Parse and validate the unified financial-inclusion dataset CSV",
		operations.StepIDQuality:  "Check indicator coverage, confidence mix and series sparsity",
		operations.StepIDForecast: "Fit linear and logarithmic trends and project scenario paths",
		operations.StepIDExport:   "Write forecast CSVs, the growth table and the Excel workbook",
		operations.StepIDReport:   "Render the HTML outlook report and its PDF copy",
	}

	if desc, ok := descriptions[stepID]; ok {
		return desc
	}
	return "Process data"
}

// stepParameters returns the parameters accepted by each step
func stepParameters(stepID string) []operations.ParameterDefinition {
	common := []operations.ParameterDefinition{
		{
			Name:        "dataset_path",
			Type:        "string",
			Description: "Path to the unified dataset CSV",
			Required:    false,
		},
		{
			Name:        "output_dir",
			Type:        "string",
			Description: "Directory for generated artifacts",
			Required:    false,
		},
	}

	switch stepID {
	case operations.StepIDForecast:
		return append(common,
			operations.ParameterDefinition{
				Name:        "horizon_years",
				Type:        "string",
				Description: "Comma-separated forecast years, strictly increasing",
				Required:    false,
				Default:     "2025,2026,2027",
			},
			operations.ParameterDefinition{
				Name:        "scenarios",
				Type:        "string",
				Description: "Scenario growth rates as name=pp pairs",
				Required:    false,
				Default:     "optimistic=4.0,base=2.5,pessimistic=1.0",
			},
		)
	case operations.StepIDReport:
		return append(common, operations.ParameterDefinition{
			Name:        "skip_pdf",
			Type:        "boolean",
			Description: "Write the HTML report without the Chrome PDF render",
			Required:    false,
			Default:     false,
		})
	default:
		return common
	}
}

// pipelineParameters returns the parameters of the full pipeline type
func pipelineParameters() []operations.ParameterDefinition {
	params := stepParameters(operations.StepIDForecast)
	return append(params, operations.ParameterDefinition{
		Name:        "skip_report",
		Type:        "boolean",
		Description: "Skip the report step and stop after exports",
		Required:    false,
		Default:     false,
	})
}

// GetJob returns a job by its ID
func (ps *OperationService) GetJob(ctx context.Context, jobID string) (*operations.Job, error) {
	job, err := ps.queue.GetJob(jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, jobID)
	}
	return job, nil
}

// ListJobs returns jobs matching the filter
func (ps *OperationService) ListJobs(ctx context.Context, filter operations.JobFilter) ([]*operations.Job, error) {
	return ps.queue.ListJobs(filter)
}

// GetManager returns the underlying operation manager
func (ps *OperationService) GetManager() *operations.Manager {
	return ps.manager
}

// GetOperationMetrics returns aggregate counters over known operations
// and the queue
func (ps *OperationService) GetOperationMetrics(ctx context.Context) (map[string]interface{}, error) {
	snapshots := ps.manager.GetBroadcaster().GetAllSnapshots()

	activeCount := 0
	completedCount := 0
	failedCount := 0

	for _, op := range snapshots {
		switch op.Status {
		case "running", "pending":
			activeCount++
		case "completed":
			completedCount++
		case "failed", "cancelled":
			failedCount++
		}
	}

	metrics := map[string]interface{}{
		"total_operations":     len(snapshots),
		"active_operations":    activeCount,
		"completed_operations": completedCount,
		"failed_operations":    failedCount,
		"queue":                ps.queue.GetQueueStats(),
		"timestamp":            time.Now().Unix(),
	}

	ps.logger.DebugContext(ctx, "Retrieved operation metrics",
		slog.Int("total", len(snapshots)),
		slog.Int("active", activeCount))

	return metrics, nil
}

// validStepID reports whether the ID names a canonical pipeline step
func validStepID(id string) bool {
	for _, known := range operations.StepIDs() {
		if id == known {
			return true
		}
	}
	return false
}
