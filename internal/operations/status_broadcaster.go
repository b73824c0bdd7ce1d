package operations

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// StatusBroadcaster owns the authoritative view of every run's status.
// All status writes funnel through a single goroutine, and every write
// pushes the full snapshot to the WebSocket hub. The dashboard never
// has to merge partial updates.
type StatusBroadcaster struct {
	mu         sync.RWMutex
	operations map[string]*OperationSnapshot
	hub        WebSocketHub
	logger     *slog.Logger
	updates    chan updateRequest
	stop       chan struct{}
}

// OperationSnapshot is the complete state of one run. It is the only
// shape the frontend ever receives for operation status.
type OperationSnapshot struct {
	OperationID string         `json:"operation_id"`
	Status      string         `json:"status"`       // pending|running|completed|failed|cancelled
	Progress    int            `json:"progress"`     // 0-100, averaged over steps
	CurrentStep string         `json:"current_step"` // display name of the active step
	Steps       []StepSnapshot `json:"steps"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	Error       string         `json:"error,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// StepSnapshot is the dashboard-facing state of a single step
type StepSnapshot struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Status   string                 `json:"status"`   // pending|running|completed|failed|skipped
	Progress int                    `json:"progress"` // 0-100
	Message  string                 `json:"message,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type updateRequest struct {
	operationID string
	updateFunc  func(*OperationSnapshot)
	done        chan struct{}
}

// isTerminalStatus reports whether no further updates are expected
func isTerminalStatus(status string) bool {
	return status == "completed" || status == "failed" || status == "cancelled"
}

// NewStatusBroadcaster starts the broadcaster's update loop
func NewStatusBroadcaster(hub WebSocketHub, logger *slog.Logger) *StatusBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}

	sb := &StatusBroadcaster{
		operations: make(map[string]*OperationSnapshot),
		hub:        hub,
		logger:     logger,
		updates:    make(chan updateRequest, 100),
		stop:       make(chan struct{}),
	}

	go sb.processUpdates()

	return sb
}

// processUpdates serializes all writes onto one goroutine
func (sb *StatusBroadcaster) processUpdates() {
	for {
		select {
		case <-sb.stop:
			return
		case req := <-sb.updates:
			sb.handleUpdate(req)
		}
	}
}

func (sb *StatusBroadcaster) handleUpdate(req updateRequest) {
	defer close(req.done)

	sb.mu.Lock()
	defer sb.mu.Unlock()

	snapshot, exists := sb.operations[req.operationID]
	if !exists {
		snapshot = &OperationSnapshot{
			OperationID: req.operationID,
			Status:      "pending",
			StartedAt:   time.Now(),
			UpdatedAt:   time.Now(),
			Steps:       []StepSnapshot{},
		}
		sb.operations[req.operationID] = snapshot
	}

	req.updateFunc(snapshot)
	snapshot.UpdatedAt = time.Now()

	// Overall progress is the mean of step progress
	if len(snapshot.Steps) > 0 {
		totalProgress := 0
		for _, step := range snapshot.Steps {
			totalProgress += step.Progress
		}
		snapshot.Progress = totalProgress / len(snapshot.Steps)
	}

	if isTerminalStatus(snapshot.Status) && snapshot.CompletedAt == nil {
		now := time.Now()
		snapshot.CompletedAt = &now
	}

	sb.broadcast(snapshot)
}

func (sb *StatusBroadcaster) broadcast(snapshot *OperationSnapshot) {
	if sb.hub == nil {
		sb.logger.Warn("no websocket hub configured for status broadcast")
		return
	}

	sb.logger.Info("broadcasting operation snapshot",
		slog.String("operation_id", snapshot.OperationID),
		slog.String("status", snapshot.Status),
		slog.Int("progress", snapshot.Progress),
		slog.String("current_step", snapshot.CurrentStep),
		slog.Int("steps", len(snapshot.Steps)),
	)

	sb.hub.BroadcastUpdate(EventTypeOperationSnapshot, snapshot.OperationID, "update", snapshot)
}

// UpdateStatus applies updateFunc to the operation's snapshot and
// blocks until the update has been broadcast. Every status mutation in
// the package goes through here.
func (sb *StatusBroadcaster) UpdateStatus(operationID string, updateFunc func(*OperationSnapshot)) {
	req := updateRequest{
		operationID: operationID,
		updateFunc:  updateFunc,
		done:        make(chan struct{}),
	}

	sb.updates <- req
	<-req.done
}

// CreateOperation seeds the snapshot with the planned steps. The IDs
// must be the stable step IDs so later updates match by ID.
func (sb *StatusBroadcaster) CreateOperation(operationID string, stepIDs []string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = "pending"
		snapshot.Progress = 0
		snapshot.Steps = make([]StepSnapshot, len(stepIDs))
		for i, id := range stepIDs {
			snapshot.Steps[i] = StepSnapshot{
				ID:     id,
				Name:   StepName(id),
				Status: "pending",
			}
		}
		snapshot.Message = "Operation created"
	})
}

// StartOperation flips the run to running
func (sb *StatusBroadcaster) StartOperation(operationID string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = "running"
		snapshot.Message = "Operation started"
	})
}

// UpdateStepProgress reports progress for one step
func (sb *StatusBroadcaster) UpdateStepProgress(operationID, stepID string, progress int, message string) {
	sb.UpdateStepWithMetadata(operationID, stepID, progress, message, nil)
}

// UpdateStepWithMetadata reports step progress together with metadata
// such as record counts. Progress on a running step is monotonic: a
// late, out-of-order event never moves the bar backwards.
func (sb *StatusBroadcaster) UpdateStepWithMetadata(operationID, stepID string, progress int, message string, metadata map[string]interface{}) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		for i := range snapshot.Steps {
			if snapshot.Steps[i].ID != stepID {
				continue
			}

			regressing := progress < snapshot.Steps[i].Progress && snapshot.Steps[i].Status == "running"
			if !regressing {
				snapshot.Steps[i].Progress = progress
			}
			snapshot.Steps[i].Message = message
			if metadata != nil {
				snapshot.Steps[i].Metadata = metadata
			}

			switch {
			case progress >= 100:
				snapshot.Steps[i].Status = "completed"
				snapshot.Steps[i].Progress = 100
			case progress > 0:
				snapshot.Steps[i].Status = "running"
				snapshot.CurrentStep = snapshot.Steps[i].Name
			}
			return
		}

		// Step was not in the original plan; add a minimal entry so
		// progress keeps flowing.
		status := "running"
		if progress >= 100 {
			status = "completed"
		}
		snapshot.Steps = append(snapshot.Steps, StepSnapshot{
			ID:       stepID,
			Name:     StepName(stepID),
			Status:   status,
			Progress: clampProgress(progress),
			Message:  message,
			Metadata: metadata,
		})
		if progress > 0 && progress < 100 {
			snapshot.CurrentStep = StepName(stepID)
		}
	})
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// CompleteStep settles a step as done
func (sb *StatusBroadcaster) CompleteStep(operationID, stepID string, message string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		for i := range snapshot.Steps {
			if snapshot.Steps[i].ID == stepID {
				snapshot.Steps[i].Status = "completed"
				snapshot.Steps[i].Progress = 100
				snapshot.Steps[i].Message = message
				break
			}
		}
	})
}

// FailStep records a step failure
func (sb *StatusBroadcaster) FailStep(operationID, stepID string, err error) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		for i := range snapshot.Steps {
			if snapshot.Steps[i].ID == stepID {
				snapshot.Steps[i].Status = "failed"
				snapshot.Steps[i].Error = err.Error()
				break
			}
		}
	})
}

// SkipStep records a step that was bypassed, with the reason shown to
// the dashboard.
func (sb *StatusBroadcaster) SkipStep(operationID, stepID string, reason string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		for i := range snapshot.Steps {
			if snapshot.Steps[i].ID == stepID {
				snapshot.Steps[i].Status = "skipped"
				snapshot.Steps[i].Message = reason
				break
			}
		}
	})
}

// CompleteOperation settles the run as completed. Steps still marked
// running or pending are settled too; skipped and failed entries keep
// their recorded status.
func (sb *StatusBroadcaster) CompleteOperation(operationID string, message string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = "completed"
		snapshot.CurrentStep = ""
		snapshot.Message = message
		for i := range snapshot.Steps {
			if snapshot.Steps[i].Status == "running" || snapshot.Steps[i].Status == "pending" {
				snapshot.Steps[i].Status = "completed"
				snapshot.Steps[i].Progress = 100
			}
		}
	})
}

// FailOperation settles the run as failed
func (sb *StatusBroadcaster) FailOperation(operationID string, err error) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = "failed"
		snapshot.Error = err.Error()
		snapshot.CurrentStep = ""
	})
}

// CancelOperation settles the run as cancelled
func (sb *StatusBroadcaster) CancelOperation(operationID string) {
	sb.UpdateStatus(operationID, func(snapshot *OperationSnapshot) {
		snapshot.Status = "cancelled"
		snapshot.CurrentStep = ""
		snapshot.Message = "Operation cancelled by user"
	})
}

// GetSnapshot returns a copy of one operation's snapshot
func (sb *StatusBroadcaster) GetSnapshot(operationID string) (*OperationSnapshot, bool) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	snapshot, exists := sb.operations[operationID]
	if !exists {
		return nil, false
	}

	clone := *snapshot
	return &clone, true
}

// GetAllSnapshots returns copies of every tracked operation
func (sb *StatusBroadcaster) GetAllSnapshots() []*OperationSnapshot {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	snapshots := make([]*OperationSnapshot, 0, len(sb.operations))
	for _, snapshot := range sb.operations {
		clone := *snapshot
		snapshots = append(snapshots, &clone)
	}

	return snapshots
}

// CleanupOldOperations drops terminal operations older than maxAge so
// long-running servers do not accumulate finished runs forever.
func (sb *StatusBroadcaster) CleanupOldOperations(ctx context.Context, maxAge time.Duration) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	now := time.Now()
	for id, snapshot := range sb.operations {
		if !isTerminalStatus(snapshot.Status) || snapshot.CompletedAt == nil {
			continue
		}
		if now.Sub(*snapshot.CompletedAt) > maxAge {
			delete(sb.operations, id)
			sb.logger.Info("cleaned up old operation",
				slog.String("operation_id", id),
				slog.String("status", snapshot.Status),
				slog.Duration("age", now.Sub(*snapshot.CompletedAt)),
			)
		}
	}
}

// Stop ends the update loop
func (sb *StatusBroadcaster) Stop() {
	close(sb.stop)
}
