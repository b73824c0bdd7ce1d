package operations

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PipelineManifest is the artifact ledger for a pipeline operation. It
// records which steps ran, what they produced, and which files landed in
// the output directory.
type PipelineManifest struct {
	mu sync.RWMutex `json:"-"`

	// Identity
	ID          string    `json:"id"`
	OperationID string    `json:"operation_id"`
	StartTime   time.Time `json:"start_time"`

	// Configuration
	DatasetPath string                 `json:"dataset_path,omitempty"`
	OutputDir   string                 `json:"output_dir,omitempty"`
	Mode        string                 `json:"mode"`
	Config      map[string]interface{} `json:"config,omitempty"`

	// Produced artifact tracking
	Artifacts map[string]*ArtifactInfo `json:"artifacts"`

	// Execution tracking
	CompletedSteps []StepExecution `json:"completed_steps"`

	// Current status
	Status      string    `json:"status"` // "pending", "running", "completed", "failed"
	LastUpdated time.Time `json:"last_updated"`
	Error       string    `json:"error,omitempty"`
}

// ArtifactInfo tracks information about produced artifacts
type ArtifactInfo struct {
	Type        string                 `json:"type"`         // Type of artifact (e.g., "forecast_csv")
	Location    string                 `json:"location"`     // Directory where the artifact is stored
	FileCount   int                    `json:"file_count"`   // Number of files
	FilePattern string                 `json:"file_pattern"` // Pattern of files (e.g., "*.csv")
	TotalSize   int64                  `json:"total_size"`   // Total size in bytes
	Files       []string               `json:"files"`        // List of file names
	CreatedAt   time.Time              `json:"created_at"`   // When this artifact was created
	CreatedBy   string                 `json:"created_by"`   // Which step created this
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// StepExecution tracks the execution of a single step
type StepExecution struct {
	StepID    string                 `json:"step_id"`
	StepName  string                 `json:"step_name"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
	Duration  string                 `json:"duration"`
	Status    string                 `json:"status"` // "completed", "failed", "skipped"
	Outputs   []string               `json:"outputs"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewPipelineManifest creates a new pipeline manifest
func NewPipelineManifest(operationID, datasetPath, outputDir string) *PipelineManifest {
	return &PipelineManifest{
		ID:             fmt.Sprintf("manifest-%s", uuid.New().String()),
		OperationID:    operationID,
		StartTime:      time.Now(),
		DatasetPath:    datasetPath,
		OutputDir:      outputDir,
		Mode:           ModeAnalysis,
		Artifacts:      make(map[string]*ArtifactInfo),
		CompletedSteps: []StepExecution{},
		Status:         "pending",
		LastUpdated:    time.Now(),
	}
}

// HasArtifact checks if a specific type of artifact was produced
func (m *PipelineManifest) HasArtifact(artifactType string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.Artifacts[artifactType]
	return exists
}

// GetArtifact returns information about a produced artifact
func (m *PipelineManifest) GetArtifact(artifactType string) (*ArtifactInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, exists := m.Artifacts[artifactType]
	return info, exists
}

// AddArtifact records a newly produced artifact
func (m *PipelineManifest) AddArtifact(artifactType string, info *ArtifactInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info.CreatedAt = time.Now()
	m.Artifacts[artifactType] = info
	m.LastUpdated = time.Now()
}

// RecordStepStart records the start of a step execution
func (m *PipelineManifest) RecordStepStart(stepID, stepName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check if the step already exists (in case of retry)
	for i, step := range m.CompletedSteps {
		if step.StepID == stepID {
			m.CompletedSteps[i].StartTime = time.Now()
			m.CompletedSteps[i].Status = "running"
			m.LastUpdated = time.Now()
			return
		}
	}

	m.CompletedSteps = append(m.CompletedSteps, StepExecution{
		StepID:    stepID,
		StepName:  stepName,
		StartTime: time.Now(),
		Status:    "running",
	})
	m.LastUpdated = time.Now()
}

// RecordStepCompletion records the completion of a step
func (m *PipelineManifest) RecordStepCompletion(stepID string, outputs []string, metadata map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, step := range m.CompletedSteps {
		if step.StepID == stepID {
			m.CompletedSteps[i].EndTime = time.Now()
			m.CompletedSteps[i].Duration = time.Since(step.StartTime).String()
			m.CompletedSteps[i].Status = "completed"
			m.CompletedSteps[i].Outputs = outputs
			m.CompletedSteps[i].Metadata = metadata
			break
		}
	}
	m.LastUpdated = time.Now()
}

// RecordStepSkipped records a step that was skipped
func (m *PipelineManifest) RecordStepSkipped(stepID, stepName, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, step := range m.CompletedSteps {
		if step.StepID == stepID {
			m.CompletedSteps[i].Status = "skipped"
			m.CompletedSteps[i].Error = reason
			m.LastUpdated = time.Now()
			return
		}
	}

	m.CompletedSteps = append(m.CompletedSteps, StepExecution{
		StepID:   stepID,
		StepName: stepName,
		Status:   "skipped",
		Error:    reason,
	})
	m.LastUpdated = time.Now()
}

// RecordStepFailure records a step failure
func (m *PipelineManifest) RecordStepFailure(stepID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, step := range m.CompletedSteps {
		if step.StepID == stepID {
			m.CompletedSteps[i].EndTime = time.Now()
			m.CompletedSteps[i].Duration = time.Since(step.StartTime).String()
			m.CompletedSteps[i].Status = "failed"
			m.CompletedSteps[i].Error = err.Error()
			break
		}
	}
	m.Status = "failed"
	m.Error = fmt.Sprintf("step %s failed: %v", stepID, err)
	m.LastUpdated = time.Now()
}

// RecordStepResults copies the terminal step outcomes of an operation
// response into the ledger, replacing any entries recorded earlier for the
// same steps.
func (m *PipelineManifest) RecordStepResults(resp *OperationResponse) {
	if resp == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range StepIDs() {
		stepState, ok := resp.Steps[id]
		if !ok || stepState == nil {
			continue
		}

		exec := StepExecution{
			StepID:   id,
			StepName: stepState.Name,
			Status:   string(stepState.Status),
			Duration: stepState.Duration().String(),
		}
		if stepState.StartTime != nil {
			exec.StartTime = *stepState.StartTime
		}
		if stepState.EndTime != nil {
			exec.EndTime = *stepState.EndTime
		}
		if stepState.Error != nil {
			exec.Error = stepState.Error.Error()
		} else if stepState.Status == StepStatusSkipped {
			exec.Error = stepState.Message
		}

		replaced := false
		for i := range m.CompletedSteps {
			if m.CompletedSteps[i].StepID == id {
				m.CompletedSteps[i] = exec
				replaced = true
				break
			}
		}
		if !replaced {
			m.CompletedSteps = append(m.CompletedSteps, exec)
		}
	}

	m.Status = string(resp.Status)
	m.Error = resp.Error
	m.LastUpdated = time.Now()
}

// IsStepCompleted checks if a step has been completed
func (m *PipelineManifest) IsStepCompleted(stepID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, step := range m.CompletedSteps {
		if step.StepID == stepID && step.Status == "completed" {
			return true
		}
	}
	return false
}

// ScanOutputDirectory scans a directory and records the matching files as
// an artifact of the given type
func (m *PipelineManifest) ScanOutputDirectory(artifactType, location, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Check if directory exists
	if _, err := os.Stat(location); os.IsNotExist(err) {
		return fmt.Errorf("directory does not exist: %s", location)
	}

	// Find matching files
	searchPattern := filepath.Join(location, pattern)
	files, err := filepath.Glob(searchPattern)
	if err != nil {
		return fmt.Errorf("failed to scan directory: %w", err)
	}

	// Calculate total size and get file names
	var totalSize int64
	fileNames := make([]string, 0, len(files))
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			totalSize += info.Size()
			fileNames = append(fileNames, filepath.Base(file))
		}
	}

	m.Artifacts[artifactType] = &ArtifactInfo{
		Type:        artifactType,
		Location:    location,
		FileCount:   len(fileNames),
		FilePattern: pattern,
		TotalSize:   totalSize,
		Files:       fileNames,
		CreatedAt:   time.Now(),
	}

	m.LastUpdated = time.Now()
	return nil
}

// SaveToFile saves the manifest to a JSON file
func (m *PipelineManifest) SaveToFile(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}

	return nil
}

// LoadManifestFromFile loads a manifest from a JSON file
func LoadManifestFromFile(path string) (*PipelineManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var manifest PipelineManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	return &manifest, nil
}

// Clone creates a deep copy of the manifest
func (m *PipelineManifest) Clone() *PipelineManifest {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Use JSON marshaling for deep copy
	data, _ := json.Marshal(m)
	var clone PipelineManifest
	json.Unmarshal(data, &clone)

	return &clone
}

// GetProgress calculates overall progress percentage
func (m *PipelineManifest) GetProgress() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.CompletedSteps) == 0 {
		return 0
	}

	completed := 0
	for _, step := range m.CompletedSteps {
		if step.Status == "completed" {
			completed++
		}
	}

	totalSteps := len(StepIDs())
	return (completed * 100) / totalSteps
}
