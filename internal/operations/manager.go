package operations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Manager orchestrates operation execution
type Manager struct {
	registry    *Registry
	config      *Config
	hub         WebSocketHub
	broadcaster *StatusBroadcaster

	// Active operations and their cancel functions
	mu         sync.RWMutex
	operations map[string]*OperationState
	cancels    map[string]context.CancelFunc
}

// NewManager creates a new operation manager with dependency injection
func NewManager(hub WebSocketHub, registry *Registry, config *Config) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}

	// Create status broadcaster for centralized status management
	broadcaster := NewStatusBroadcaster(hub, slog.Default())

	return &Manager{
		registry:    registry,
		config:      config,
		hub:         hub,
		broadcaster: broadcaster,
		operations:  make(map[string]*OperationState),
		cancels:     make(map[string]context.CancelFunc),
	}
}

// RegisterStep registers a step with the operation manager
func (m *Manager) RegisterStep(step Step) error {
	return m.registry.Register(step)
}

// SetConfig updates the operation configuration
func (m *Manager) SetConfig(config *Config) {
	if config != nil {
		m.config = config
	}
}

// GetRegistry returns the registry for accessing registered steps
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// GetBroadcaster returns the status broadcaster for centralized status updates
func (m *Manager) GetBroadcaster() *StatusBroadcaster {
	return m.broadcaster
}

// Execute runs an operation with the given request.
//
// A step failure does not abort steps that are independent of it; when at
// least one step completes, the operation finishes with partial results and
// the response records the failure. Execute returns a non-nil error only
// when the operation is cancelled or produces no completed steps at all.
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	// Generate operation ID if not provided
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Mode == "" {
		req.Mode = ModeAnalysis
	}

	// Apply configured defaults for anything the request leaves empty
	if req.DatasetPath == "" {
		req.DatasetPath = m.config.DatasetPath
	}
	if req.OutputDir == "" {
		req.OutputDir = m.config.OutputDir
	}
	if req.ChartsDir == "" {
		req.ChartsDir = m.config.ChartsDir
	}
	if len(req.HorizonYears) == 0 {
		req.HorizonYears = m.config.HorizonYears
	}
	if len(req.Scenarios) == 0 {
		req.Scenarios = m.config.Scenarios
	}

	// Create operation state
	state := NewOperationState(req.ID)

	// Set configuration from request
	state.SetConfig(ConfigKeyMode, req.Mode)
	state.SetConfig(ConfigKeyDatasetPath, req.DatasetPath)
	state.SetConfig(ConfigKeyOutputDir, req.OutputDir)
	if req.ChartsDir != "" {
		state.SetConfig(ConfigKeyChartsDir, req.ChartsDir)
	}
	if len(req.HorizonYears) > 0 {
		state.SetConfig(ConfigKeyHorizonYears, req.HorizonYears)
	}
	if len(req.Scenarios) > 0 {
		state.SetConfig(ConfigKeyScenarios, req.Scenarios)
	}
	if req.SkipReport {
		state.SetConfig(ConfigKeySkipReport, true)
	}

	// Copy additional parameters
	for k, v := range req.Parameters {
		state.SetConfig(k, v)
	}

	// Derive a cancellable context so CancelOperation can interrupt the run
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Store operation state
	m.storeOperation(state, cancel)
	defer m.removeOperation(req.ID)

	// Determine which steps to run based on request
	var steps []Step
	stepParam, hasStep := req.Parameters["step"].(string)

	if hasStep && stepParam != "" && stepParam != FullPipeline {
		// Single step requested
		requestedStep, err := m.registry.Get(stepParam)
		if err != nil || requestedStep == nil {
			if err == nil {
				err = fmt.Errorf("requested step not found: %s", stepParam)
			}
			m.logOperationError(ctx, req.ID, err)
			state.Fail(err)
			return m.createResponse(state), err
		}
		steps = []Step{requestedStep}

		slog.InfoContext(ctx, "executing_single_step",
			slog.String("step_id", stepParam),
			slog.String("operation_id", req.ID))
	} else {
		// Full pipeline requested or no step specified
		var err error
		steps, err = m.registry.GetDependencyOrder()
		if err != nil {
			m.logOperationError(ctx, req.ID, fmt.Errorf("failed to get dependency order: %w", err))
			state.Fail(err)
			return m.createResponse(state), err
		}
		if req.SkipReport {
			steps = withoutStep(steps, StepIDReport)
		}

		slog.InfoContext(ctx, "executing_full_pipeline",
			slog.Int("step_count", len(steps)),
			slog.String("operation_id", req.ID))
	}

	// Initialize step states. The broadcaster snapshot uses step IDs so that
	// later UpdateStepProgress calls (which use Step.ID()) match entries; the
	// human-readable name is carried inside the in-memory StepState.
	stepIDs := make([]string, len(steps))
	for i, step := range steps {
		state.SetStep(step.ID(), NewStepState(step.ID(), step.Name()))
		stepIDs[i] = step.ID()
	}

	// Create operation in broadcaster with all steps
	m.broadcaster.CreateOperation(req.ID, stepIDs)

	tracer := GetOperationTracer()
	if tracer != nil {
		var span trace.Span
		ctx, span = tracer.TraceOperationExecution(ctx, req.ID, req.Mode)
		defer span.End()
	}

	// Start operation execution
	m.logOperationStart(ctx, req.ID, req.Mode, len(steps))
	state.Start()
	m.broadcaster.StartOperation(req.ID)

	err := m.executeSequential(ctx, state, steps)

	// Update final operation state. Cancellation and total failure surface as
	// errors; a partially successful run completes with the failure recorded.
	var retErr error
	switch {
	case err != nil && GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel()
		m.broadcaster.CancelOperation(req.ID)
		if tracer != nil {
			tracer.RecordOperationCancellation(ctx, req.ID, req.Mode)
		}
		retErr = err
	case err != nil && len(state.GetCompletedSteps()) == 0:
		state.Fail(err)
		m.broadcaster.FailOperation(req.ID, err)
		retErr = err
	case err != nil:
		state.CompletePartial(err)
		m.broadcaster.CompleteOperation(req.ID, fmt.Sprintf("Operation completed with failures: %v", err))
	default:
		state.Complete()
		m.broadcaster.CompleteOperation(req.ID, "Operation completed successfully")
	}

	m.logOperationComplete(ctx, req.ID, state.Duration(), state.Status)
	if tracer != nil {
		tracer.RecordOperationCompletion(ctx, req.ID, req.Mode, state.Duration(), err)
	}

	return m.createResponse(state), retErr
}

// executeSequential executes steps one by one in dependency order. A failed
// step marks its dependents skipped and execution continues with the steps
// that do not depend on it.
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	slog.InfoContext(ctx, "sequential_execution_start",
		slog.String("operation_id", state.ID),
		slog.Int("step_count", len(steps)))

	failures := &ErrorList{}
	for i, step := range steps {
		select {
		case <-ctx.Done():
			slog.WarnContext(ctx, "operation_cancelled",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
			return NewCancellationError(step.ID())
		default:
		}

		// Steps already marked skipped lost a dependency earlier in the run
		stepState := state.GetStep(step.ID())
		if stepState != nil && stepState.Status == StepStatusSkipped {
			slog.InfoContext(ctx, "step_skipped",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.Int("step_number", i+1),
				slog.Int("total_steps", len(steps)))
			continue
		}

		slog.InfoContext(ctx, "executing_step",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))
		if err := m.executeStep(ctx, state, step); err != nil {
			m.logStepError(ctx, state.ID, step.ID(), err)
			if GetErrorType(err) == ErrorTypeCancellation {
				return err
			}

			var opErr *OperationError
			if !errors.As(err, &opErr) {
				opErr = NewExecutionError(step.ID(), err, false)
			}
			failures.Add(opErr)

			if !m.config.ContinueOnError {
				m.skipDependentSteps(state, steps, step.ID())
			}
			continue
		}

		// Verify the step actually completed
		updatedState := state.GetStep(step.ID())
		if updatedState.Status == StepStatusCompleted {
			slog.InfoContext(ctx, "step_completed_successfully",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
		} else {
			slog.WarnContext(ctx, "step_finished_wrong_status",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("status", string(updatedState.Status)))
		}
	}

	if failures.HasErrors() {
		return failures
	}

	slog.InfoContext(ctx, "all_steps_completed",
		slog.String("operation_id", state.ID))
	return nil
}

// executeStep executes a single step with retry logic
func (m *Manager) executeStep(ctx context.Context, state *OperationState, step Step) error {
	m.logStepStart(ctx, state.ID, step.ID())
	stepState := state.GetStep(step.ID())
	if stepState == nil {
		slog.ErrorContext(ctx, "step_state_not_found",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()))
		return NewFatalError("step state not found", nil)
	}

	// Check dependencies
	slog.DebugContext(ctx, "checking_dependencies",
		slog.String("operation_id", state.ID),
		slog.String("step", step.ID()))
	if err := m.checkDependencies(state, step); err != nil {
		slog.WarnContext(ctx, "dependencies_not_met",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
		stepState.Skip(fmt.Sprintf("dependencies not met: %v", err))
		m.broadcaster.SkipStep(state.ID, step.ID(), fmt.Sprintf("Dependencies not met - %v", err))
		return NewDependencyError(step.ID(), strings.Join(step.GetDependencies(), ","), err.Error())
	}

	// Validate step
	slog.DebugContext(ctx, "validating_step",
		slog.String("operation_id", state.ID),
		slog.String("step", step.ID()))
	if err := step.Validate(state); err != nil {
		slog.WarnContext(ctx, "validation_failed",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.String("error", err.Error()))
		stepState.Skip(fmt.Sprintf("validation failed: %v", err))
		m.broadcaster.SkipStep(state.ID, step.ID(), fmt.Sprintf("Validation failed - %v", err))
		return NewValidationError(step.ID(), err.Error())
	}

	// Get step timeout
	timeout := m.config.GetStepTimeout(step.ID())
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tracer := GetOperationTracer()
	if tracer != nil {
		var span trace.Span
		stepCtx, span = tracer.TraceStepExecution(stepCtx, state.ID, step.ID())
		defer span.End()
	}

	// Execute with retries
	retryConfig := m.config.RetryConfig
	var lastErr error

	for attempt := 1; attempt <= retryConfig.MaxAttempts; attempt++ {
		// Start step
		stepState.Start()
		// Use broadcaster for all updates - single source of truth
		m.broadcaster.UpdateStepProgress(state.ID, step.ID(), int(stepState.Progress), "Step started")

		slog.InfoContext(ctx, "calling_execute",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt))
		startTime := time.Now()
		err := step.Execute(stepCtx, state)
		duration := time.Since(startTime)

		if err == nil {
			// Success
			m.logStepComplete(ctx, state.ID, step.ID(), duration)
			stepState.Complete()
			m.broadcaster.CompleteStep(state.ID, step.ID(), "Step completed successfully")
			if tracer != nil {
				tracer.RecordStepCompletion(stepCtx, state.ID, step.ID(), duration, nil)
			}
			return nil
		}

		// Cancellation of the parent context is not a step failure
		if ctx.Err() != nil {
			cancelErr := NewCancellationError(step.ID())
			stepState.Fail(cancelErr)
			m.broadcaster.FailStep(state.ID, step.ID(), cancelErr)
			return cancelErr
		}

		slog.ErrorContext(ctx, "step_execution_failed",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))

		// Log step metadata for debugging
		if stepState.Metadata != nil {
			if metaJSON, err := json.Marshal(stepState.Metadata); err == nil {
				slog.ErrorContext(ctx, "step_metadata",
					slog.String("operation_id", state.ID),
					slog.String("step", step.ID()),
					slog.String("metadata", string(metaJSON)))
			}
		}

		lastErr = err

		// Check if error is retryable
		if !IsRetryable(err) || attempt >= retryConfig.MaxAttempts {
			stepState.Fail(err)
			m.broadcaster.FailStep(state.ID, step.ID(), err)
			if tracer != nil {
				tracer.RecordStepCompletion(stepCtx, state.ID, step.ID(), duration, err)
			}
			return WrapError(err, step.ID(), "step execution failed")
		}

		// Calculate retry delay
		delay := m.calculateRetryDelay(attempt, retryConfig)
		slog.WarnContext(ctx, "step_retry",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", retryConfig.MaxAttempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		// Wait before retry
		select {
		case <-time.After(delay):
			// Continue to next attempt
		case <-stepCtx.Done():
			timeoutErr := NewTimeoutError(step.ID(), timeout.String())
			stepState.Fail(timeoutErr)
			m.broadcaster.FailStep(state.ID, step.ID(), timeoutErr)
			return timeoutErr
		}
	}

	// All retries exhausted
	stepState.Fail(lastErr)
	m.broadcaster.FailStep(state.ID, step.ID(), lastErr)
	return WrapError(lastErr, step.ID(), "step execution failed after retries")
}

// skipDependentSteps marks all steps that depend on the failed step as skipped
func (m *Manager) skipDependentSteps(state *OperationState, steps []Step, failedStepID string) {
	for _, step := range steps {
		deps := step.GetDependencies()
		for _, dep := range deps {
			if dep == failedStepID {
				stepState := state.GetStep(step.ID())
				if stepState != nil && stepState.Status == StepStatusPending {
					stepState.Skip(fmt.Sprintf("dependency %s failed", failedStepID))
					m.broadcaster.SkipStep(state.ID, step.ID(), fmt.Sprintf("Dependency %s failed", failedStepID))
					// Recursively skip steps that depend on this one
					m.skipDependentSteps(state, steps, step.ID())
				}
				break
			}
		}
	}
}

// checkDependencies verifies that all dependencies are satisfied. A
// dependency that is not part of the current run (single-step mode) does
// not block execution.
func (m *Manager) checkDependencies(state *OperationState, step Step) error {
	deps := step.GetDependencies()
	for _, dep := range deps {
		depState := state.GetStep(dep)
		if depState == nil {
			continue
		}
		if depState.Status == StepStatusCompleted {
			continue
		}
		if m.config.ContinueOnError && (depState.Status == StepStatusFailed || depState.Status == StepStatusSkipped) {
			continue
		}
		return fmt.Errorf("dependency %s not completed (status: %s)", dep, depState.Status)
	}
	return nil
}

// calculateRetryDelay calculates the delay before next retry
func (m *Manager) calculateRetryDelay(attempt int, config RetryConfig) time.Duration {
	delay := config.InitialDelay * time.Duration(float64(attempt-1)*config.Multiplier)
	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

// withoutStep filters a step out of an execution plan
func withoutStep(steps []Step, stepID string) []Step {
	filtered := make([]Step, 0, len(steps))
	for _, step := range steps {
		if step.ID() != stepID {
			filtered = append(filtered, step)
		}
	}
	return filtered
}

// createResponse creates an operation response from a snapshot of the state
func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	snapshot := state.Clone()
	resp := &OperationResponse{
		ID:       snapshot.ID,
		Status:   snapshot.Status,
		Duration: snapshot.Duration(),
		Steps:    snapshot.Steps,
	}

	if snapshot.Error != nil {
		resp.Error = snapshot.Error.Error()
	}

	return resp
}

// GetOperation retrieves the state of a running operation
func (m *Manager) GetOperation(id string) (*OperationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.operations[id]
	if !exists {
		return nil, ErrOperationNotFound
	}

	return state.Clone(), nil
}

// ListOperations returns all active operations
func (m *Manager) ListOperations() []*OperationState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	operations := make([]*OperationState, 0, len(m.operations))
	for _, state := range m.operations {
		operations = append(operations, state.Clone())
	}

	return operations
}

// CancelOperation cancels a running operation. The cancellation propagates
// through the operation context; Execute records the terminal state once the
// running step observes it.
func (m *Manager) CancelOperation(id string) error {
	m.mu.Lock()
	state, exists := m.operations[id]
	cancel := m.cancels[id]
	m.mu.Unlock()

	if !exists {
		return ErrOperationNotFound
	}
	if state.IsTerminal() {
		return ErrOperationCompleted
	}

	slog.Info("operation_cancel_requested", slog.String("operation_id", id))
	if cancel != nil {
		cancel()
	}
	return nil
}

// storeOperation stores an operation state with its cancel function
func (m *Manager) storeOperation(state *OperationState, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[state.ID] = state
	m.cancels[state.ID] = cancel
}

// removeOperation removes an operation state
func (m *Manager) removeOperation(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.operations, id)
	delete(m.cancels, id)
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}
