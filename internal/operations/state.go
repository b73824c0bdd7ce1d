package operations

import (
	"sync"
	"time"
)

// OperationStatusValue is the lifecycle status of an operation run
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// OperationState is the shared mutable state of one operation run.
// The manager writes it from the executing goroutine while handlers
// and the status broadcaster read it, so every access goes through
// the mutex.
type OperationState struct {
	mu sync.RWMutex

	ID        string               `json:"id"`
	Status    OperationStatusValue `json:"status"`
	StartTime time.Time            `json:"start_time"`
	EndTime   *time.Time           `json:"end_time,omitempty"`

	Steps map[string]*StepState `json:"steps"`

	// Context carries values produced by one step and consumed by a
	// later one, keyed by the ContextKey constants
	Context map[string]interface{} `json:"context"`

	// Config holds the request parameters, keyed by the ConfigKey
	// constants
	Config map[string]interface{} `json:"config"`

	Error error `json:"error,omitempty"`
}

// NewOperationState creates a pending state for the given run ID
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Context:   make(map[string]interface{}),
		Config:    make(map[string]interface{}),
	}
}

// Start marks the operation as running and resets the start time
func (s *OperationState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = OperationStatusRunning
	s.StartTime = time.Now()
}

// finish stamps the end time and terminal status. Callers hold no lock.
func (s *OperationState) finish(status OperationStatusValue, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = status
	if err != nil {
		s.Error = err
	}
}

// Complete marks the operation as completed
func (s *OperationState) Complete() {
	s.finish(OperationStatusCompleted, nil)
}

// CompletePartial marks the operation completed while keeping the
// error from the steps that failed. Used when at least one step
// produced results.
func (s *OperationState) CompletePartial(err error) {
	s.finish(OperationStatusCompleted, err)
}

// Fail marks the operation as failed
func (s *OperationState) Fail(err error) {
	s.finish(OperationStatusFailed, err)
}

// Cancel marks the operation as cancelled
func (s *OperationState) Cancel() {
	s.finish(OperationStatusCancelled, nil)
}

// GetStep returns the live step state, or nil
func (s *OperationState) GetStep(stepID string) *StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Steps[stepID]
}

// SetStep installs the state for a step
func (s *OperationState) SetStep(stepID string, state *StepState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Steps[stepID] = state
}

// GetContext reads a value set by an earlier step
func (s *OperationState) GetContext(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.Context[key]
	return val, ok
}

// SetContext publishes a value for later steps
func (s *OperationState) SetContext(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Context[key] = value
}

// GetConfig reads a request parameter
func (s *OperationState) GetConfig(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.Config[key]
	return val, ok
}

// SetConfig stores a request parameter
func (s *OperationState) SetConfig(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Config[key] = value
}

// Duration returns elapsed run time, still ticking while the run is
// in flight
func (s *OperationState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// stepsWithStatus collects the live step states matching status
func (s *OperationState) stepsWithStatus(status StepStatus) []*StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*StepState
	for _, step := range s.Steps {
		if step.Status == status {
			matched = append(matched, step)
		}
	}
	return matched
}

// GetActiveSteps returns the steps currently executing
func (s *OperationState) GetActiveSteps() []*StepState {
	return s.stepsWithStatus(StepStatusActive)
}

// GetCompletedSteps returns the steps that finished successfully
func (s *OperationState) GetCompletedSteps() []*StepState {
	return s.stepsWithStatus(StepStatusCompleted)
}

// GetFailedSteps returns the steps that failed
func (s *OperationState) GetFailedSteps() []*StepState {
	return s.stepsWithStatus(StepStatusFailed)
}

// IsComplete reports whether every step reached a terminal state
func (s *OperationState) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, step := range s.Steps {
		if step.Status == StepStatusPending || step.Status == StepStatusActive {
			return false
		}
	}
	return true
}

// IsTerminal reports whether the operation itself finished
func (s *OperationState) IsTerminal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch s.Status {
	case OperationStatusCompleted, OperationStatusFailed, OperationStatusCancelled:
		return true
	}
	return false
}

// HasFailures reports whether any step failed
func (s *OperationState) HasFailures() bool {
	return len(s.stepsWithStatus(StepStatusFailed)) > 0
}

// Clone deep-copies the state for handing to readers outside the
// manager's goroutine
func (s *OperationState) Clone() *OperationState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := &OperationState{
		ID:        s.ID,
		Status:    s.Status,
		StartTime: s.StartTime,
		Steps:     make(map[string]*StepState, len(s.Steps)),
		Context:   make(map[string]interface{}, len(s.Context)),
		Config:    make(map[string]interface{}, len(s.Config)),
		Error:     s.Error,
	}

	if s.EndTime != nil {
		endTime := *s.EndTime
		clone.EndTime = &endTime
	}

	for k, v := range s.Steps {
		v.mu.RLock()
		stepCopy := &StepState{
			ID:        v.ID,
			Name:      v.Name,
			Status:    v.Status,
			StartTime: v.StartTime,
			EndTime:   v.EndTime,
			Progress:  v.Progress,
			Message:   v.Message,
			Error:     v.Error,
			Metadata:  make(map[string]interface{}, len(v.Metadata)),
		}
		for mk, mv := range v.Metadata {
			stepCopy.Metadata[mk] = mv
		}
		v.mu.RUnlock()
		clone.Steps[k] = stepCopy
	}

	for k, v := range s.Context {
		clone.Context[k] = v
	}
	for k, v := range s.Config {
		clone.Config[k] = v
	}

	return clone
}
