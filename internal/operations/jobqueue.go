package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"


	"eficli/internal/middleware"
)

// JobStatus represents the status of a job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job represents an async operation job
type Job struct {
	ID          string                 `json:"id"`
	OperationID string                 `json:"operation_id"`
	StepID      string                 `json:"step_id"`
	StepName    string                 `json:"step_name"`
	Status      JobStatus              `json:"status"`
	Progress    int                    `json:"progress"`
	Message     string                 `json:"message,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	StartedAt   *time.Time             `json:"started_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Request     *OperationRequest      `json:"request,omitempty"`
}

// JobStore interface for job persistence
type JobStore interface {
	// Job operations
	CreateJob(job *Job) error
	GetJob(id string) (*Job, error)
	UpdateJob(job *Job) error
	ListJobs(filter JobFilter) ([]*Job, error)
	DeleteJob(id string) error

	// Manifest operations
	CreateManifest(manifest *PipelineManifest) error
	GetManifest(id string) (*PipelineManifest, error)
	UpdateManifest(manifest *PipelineManifest) error
	GetManifestByOperationID(operationID string) (*PipelineManifest, error)
}

// JobFilter for querying jobs
type JobFilter struct {
	Status      JobStatus
	OperationID string
	StepID      string
	Since       time.Time
	Limit       int
}

// JobQueue manages async job execution. Jobs are handed to the Manager,
// which owns step execution and all status broadcasting; the queue tracks
// job lifecycle and records the artifact manifest once a run finishes.
type JobQueue struct {
	mu       sync.RWMutex
	jobs     chan *Job
	workers  int
	wg       sync.WaitGroup
	store    JobStore
	manager  *Manager
	logger   *slog.Logger
	shutdown chan struct{}
	active   map[string]*Job // Currently executing jobs
}

// NewJobQueue creates a new job queue
func NewJobQueue(workers int, store JobStore, manager *Manager, logger *slog.Logger) *JobQueue {
	if workers <= 0 {
		workers = 4 // Default number of workers
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &JobQueue{
		jobs:     make(chan *Job, workers*2), // Buffer size = 2x workers
		workers:  workers,
		store:    store,
		manager:  manager,
		logger:   logger.With(slog.String("component", "jobqueue")),
		shutdown: make(chan struct{}),
		active:   make(map[string]*Job),
	}
}

// Start begins processing jobs
func (q *JobQueue) Start(ctx context.Context) {
	q.logger.Info("starting job queue", slog.Int("workers", q.workers))

	// Start worker goroutines
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}

	// Start job recovery (for jobs that were running when system stopped)
	go q.recoverJobs(ctx)
}

// Stop gracefully shuts down the job queue
func (q *JobQueue) Stop(timeout time.Duration) error {
	q.logger.Info("stopping job queue")

	// Signal shutdown
	close(q.shutdown)

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("job queue stopped gracefully")
		return nil
	case <-time.After(timeout):
		q.logger.Warn("job queue stop timeout exceeded")
		return fmt.Errorf("timeout waiting for workers to finish")
	}
}

// Enqueue adds a job to the queue
func (q *JobQueue) Enqueue(job *Job) error {
	// Set initial status
	job.Status = JobStatusPending
	job.CreatedAt = time.Now()

	// Save to store
	if err := q.store.CreateJob(job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	// Initialize operation in broadcaster so clients see the queued state
	broadcaster := q.manager.GetBroadcaster()
	var steps []string
	if job.StepID == "" || job.StepID == FullPipeline {
		steps = StepIDs()
	} else {
		steps = []string{job.StepID}
	}
	broadcaster.CreateOperation(job.OperationID, steps)

	// Add to queue
	select {
	case q.jobs <- job:
		q.logger.Info("job enqueued",
			slog.String("job_id", job.ID),
			slog.String("step_id", job.StepID))
		return nil
	default:
		// Queue is full, mark as failed
		job.Status = JobStatusFailed
		job.Error = "job queue is full"
		q.store.UpdateJob(job)
		return fmt.Errorf("job queue is full")
	}
}

// GetJob retrieves a job by ID
func (q *JobQueue) GetJob(id string) (*Job, error) {
	// Check if job is currently active
	q.mu.RLock()
	if activeJob, ok := q.active[id]; ok {
		q.mu.RUnlock()
		return activeJob, nil
	}
	q.mu.RUnlock()

	// Otherwise get from store
	return q.store.GetJob(id)
}

// CancelJob cancels a pending or running job. Running jobs are cancelled
// through the manager; the worker records the terminal state once execution
// unwinds.
func (q *JobQueue) CancelJob(id string) error {
	job, err := q.GetJob(id)
	if err != nil {
		return err
	}

	if job.Status != JobStatusRunning && job.Status != JobStatusPending {
		return fmt.Errorf("job %s cannot be cancelled (status: %s)", id, job.Status)
	}

	if job.Status == JobStatusRunning {
		if err := q.manager.CancelOperation(job.OperationID); err != nil && !errors.Is(err, ErrOperationNotFound) {
			return err
		}
		return nil
	}

	job.Status = JobStatusCancelled
	now := time.Now()
	job.CompletedAt = &now
	return q.store.UpdateJob(job)
}

// ListJobs returns jobs matching the filter
func (q *JobQueue) ListJobs(filter JobFilter) ([]*Job, error) {
	return q.store.ListJobs(filter)
}

// worker processes jobs from the queue
func (q *JobQueue) worker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	logger := q.logger.With(slog.Int("worker_id", workerID))
	logger.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped by context")
			return
		case <-q.shutdown:
			logger.Debug("worker stopped by shutdown")
			return
		case job := <-q.jobs:
			q.processJob(ctx, job, logger)
		}
	}
}

// processJob executes a single job
func (q *JobQueue) processJob(ctx context.Context, job *Job, logger *slog.Logger) {
	// Add trace ID to context
	if job.Metadata != nil {
		if traceID, ok := job.Metadata["trace_id"].(string); ok {
			ctx = context.WithValue(ctx, middleware.RequestIDKey, traceID)
		}
	}

	logger = logger.With(
		slog.String("job_id", job.ID),
		slog.String("operation_id", job.OperationID),
		slog.String("step_id", job.StepID),
	)

	// Jobs cancelled while still queued are not executed
	if stored, err := q.store.GetJob(job.ID); err == nil && stored.Status == JobStatusCancelled {
		logger.Info("skipping cancelled job")
		return
	}

	logger.Info("processing job started")

	// Mark job as active
	q.mu.Lock()
	q.active[job.ID] = job
	q.mu.Unlock()

	defer func() {
		// Recover from any panics to prevent server crash
		if r := recover(); r != nil {
			logger.Error("job processing panicked",
				slog.Any("panic", r),
				slog.String("job_id", job.ID))

			// Mark job as failed
			job.Status = JobStatusFailed
			job.Error = fmt.Sprintf("job processing panicked: %v", r)
			job.Message = "Internal error occurred"
			completedAt := time.Now()
			job.CompletedAt = &completedAt

			if err := q.store.UpdateJob(job); err != nil {
				logger.Error("failed to update job after panic", slog.String("error", err.Error()))
			}
		}

		// Remove from active jobs
		q.mu.Lock()
		delete(q.active, job.ID)
		q.mu.Unlock()
	}()

	// Update job status to running
	job.Status = JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	job.Progress = 0
	job.Message = "Job started"

	if err := q.store.UpdateJob(job); err != nil {
		logger.Error("failed to update job status", slog.String("error", err.Error()))
	}

	req := q.buildRequest(job)

	// The manager owns step execution, broadcasting and state transitions
	resp, execErr := q.manager.Execute(ctx, req)

	q.recordManifest(job, req, resp, logger)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	switch {
	case execErr != nil && GetErrorType(execErr) == ErrorTypeCancellation:
		job.Status = JobStatusCancelled
		job.Message = "Job cancelled"
		job.Error = execErr.Error()
	case execErr != nil:
		job.Status = JobStatusFailed
		job.Message = "Job failed"
		job.Error = execErr.Error()
	case resp != nil && resp.Error != "":
		job.Status = JobStatusCompleted
		job.Progress = 100
		job.Message = "Job completed with failures"
		job.Error = resp.Error
	default:
		job.Status = JobStatusCompleted
		job.Progress = 100
		job.Message = "Job completed successfully"
	}

	if err := q.store.UpdateJob(job); err != nil {
		logger.Error("failed to update job completion", slog.String("error", err.Error()))
	}

	logger.Info("processing job finished", slog.String("status", string(job.Status)))
}

// buildRequest derives the operation request for a job. Single-step jobs
// carry the step ID as a request parameter.
func (q *JobQueue) buildRequest(job *Job) OperationRequest {
	var req OperationRequest
	if job.Request != nil {
		req = *job.Request
	}
	req.ID = job.OperationID

	if job.StepID != "" && job.StepID != FullPipeline {
		if req.Parameters == nil {
			req.Parameters = make(map[string]interface{})
		}
		req.Parameters["step"] = job.StepID
	}

	return req
}

// recordManifest writes the artifact ledger for a finished run: step
// outcomes from the response plus a scan of the output directory.
func (q *JobQueue) recordManifest(job *Job, req OperationRequest, resp *OperationResponse, logger *slog.Logger) {
	manifest, err := q.store.GetManifestByOperationID(job.OperationID)
	if err != nil || manifest == nil {
		manifest = NewPipelineManifest(job.OperationID, req.DatasetPath, req.OutputDir)
		manifest.Mode = req.Mode
		if err := q.store.CreateManifest(manifest); err != nil {
			logger.Error("failed to create manifest", slog.String("error", err.Error()))
			return
		}
	}

	manifest.RecordStepResults(resp)

	// Scan what actually landed on disk. Directories that were never
	// created (steps skipped or failed) are not an error here.
	if req.OutputDir != "" {
		manifest.ScanOutputDirectory("forecast_csv", req.OutputDir, "*.csv")
		manifest.ScanOutputDirectory("workbook", req.OutputDir, "*.xlsx")
		manifest.ScanOutputDirectory("summary_json", req.OutputDir, "*.json")
		manifest.ScanOutputDirectory("report_html", req.OutputDir, "*.html")
		manifest.ScanOutputDirectory("report_pdf", req.OutputDir, "*.pdf")

		if err := manifest.SaveToFile(filepath.Join(req.OutputDir, "manifest.json")); err != nil {
			logger.Warn("failed to write manifest file", slog.String("error", err.Error()))
		}
	}
	if req.ChartsDir != "" {
		manifest.ScanOutputDirectory("chart_images", req.ChartsDir, "*.png")
	}

	// Record artifact counts on the job for quick inspection
	detector := NewArtifactDetector(q.logger)
	if job.Metadata == nil {
		job.Metadata = make(map[string]interface{})
	}
	if n, err := detector.DetectCSVFiles(req.OutputDir); err == nil {
		job.Metadata["csv_files"] = n
	}
	if n, err := detector.DetectWorkbooks(req.OutputDir); err == nil {
		job.Metadata["workbooks"] = n
	}
	if n, err := detector.DetectReportFiles(req.OutputDir); err == nil {
		job.Metadata["report_files"] = n
	}

	if err := q.store.UpdateManifest(manifest); err != nil {
		logger.Error("failed to update manifest", slog.String("error", err.Error()))
	}
}

// recoverJobs recovers jobs that were running when the system stopped
func (q *JobQueue) recoverJobs(ctx context.Context) {
	q.logger.Info("recovering pending and running jobs")

	// Find jobs that were running or pending
	jobs, err := q.store.ListJobs(JobFilter{
		Status: JobStatusRunning,
	})
	if err != nil {
		q.logger.Error("failed to recover running jobs", slog.String("error", err.Error()))
		return
	}

	pendingJobs, err := q.store.ListJobs(JobFilter{
		Status: JobStatusPending,
	})
	if err != nil {
		q.logger.Error("failed to recover pending jobs", slog.String("error", err.Error()))
	} else {
		jobs = append(jobs, pendingJobs...)
	}

	// Re-queue recovered jobs
	for _, job := range jobs {
		// Reset running jobs to pending
		if job.Status == JobStatusRunning {
			job.Status = JobStatusPending
			job.StartedAt = nil
			job.Progress = 0
			q.store.UpdateJob(job)
		}

		// Re-enqueue
		select {
		case q.jobs <- job:
			q.logger.Info("recovered job",
				slog.String("job_id", job.ID),
				slog.String("status", string(job.Status)))
		default:
			q.logger.Warn("could not recover job - queue full",
				slog.String("job_id", job.ID))
		}
	}
}

// GetQueueStats returns queue statistics
func (q *JobQueue) GetQueueStats() map[string]interface{} {
	q.mu.RLock()
	activeCount := len(q.active)
	q.mu.RUnlock()

	return map[string]interface{}{
		"workers":     q.workers,
		"queue_size":  len(q.jobs),
		"queue_cap":   cap(q.jobs),
		"active_jobs": activeCount,
	}
}
