package operations

import (
	"fmt"
	"sync"
	"time"
)

// MemoryJobStore keeps jobs and pipeline manifests in process memory.
// It is the default store; runs do not survive a restart.
type MemoryJobStore struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	manifests map[string]*PipelineManifest
}

// NewMemoryJobStore creates an empty store
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs:      make(map[string]*Job),
		manifests: make(map[string]*PipelineManifest),
	}
}

// CreateJob stores a new job, rejecting duplicate IDs
func (s *MemoryJobStore) CreateJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}

	s.jobs[job.ID] = job
	return nil
}

// GetJob returns a copy of the job so callers cannot mutate the store
func (s *MemoryJobStore) GetJob(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("job %s not found", id)
	}

	jobCopy := *job
	return &jobCopy, nil
}

// UpdateJob replaces an existing job
func (s *MemoryJobStore) UpdateJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; !exists {
		return fmt.Errorf("job %s not found", job.ID)
	}

	s.jobs[job.ID] = job
	return nil
}

// matchesFilter reports whether the job passes every set filter field
func matchesFilter(job *Job, filter JobFilter) bool {
	if filter.Status != "" && job.Status != filter.Status {
		return false
	}
	if filter.OperationID != "" && job.OperationID != filter.OperationID {
		return false
	}
	if filter.StepID != "" && job.StepID != filter.StepID {
		return false
	}
	if !filter.Since.IsZero() && job.CreatedAt.Before(filter.Since) {
		return false
	}
	return true
}

// ListJobs returns copies of jobs matching the filter, up to
// filter.Limit when set. Map iteration order makes the result
// unordered.
func (s *MemoryJobStore) ListJobs(filter JobFilter) ([]*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Job
	for _, job := range s.jobs {
		if !matchesFilter(job, filter) {
			continue
		}

		jobCopy := *job
		result = append(result, &jobCopy)

		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}

	return result, nil
}

// DeleteJob removes a job
func (s *MemoryJobStore) DeleteJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; !exists {
		return fmt.Errorf("job %s not found", id)
	}

	delete(s.jobs, id)
	return nil
}

// CreateManifest stores a new manifest, rejecting duplicate IDs
func (s *MemoryJobStore) CreateManifest(manifest *PipelineManifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.manifests[manifest.ID]; exists {
		return fmt.Errorf("manifest %s already exists", manifest.ID)
	}

	s.manifests[manifest.ID] = manifest
	return nil
}

// GetManifest returns a deep copy of the manifest
func (s *MemoryJobStore) GetManifest(id string) (*PipelineManifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	manifest, exists := s.manifests[id]
	if !exists {
		return nil, fmt.Errorf("manifest %s not found", id)
	}

	return manifest.Clone(), nil
}

// UpdateManifest replaces an existing manifest
func (s *MemoryJobStore) UpdateManifest(manifest *PipelineManifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.manifests[manifest.ID]; !exists {
		return fmt.Errorf("manifest %s not found", manifest.ID)
	}

	s.manifests[manifest.ID] = manifest
	return nil
}

// GetManifestByOperationID finds the manifest for an operation run
func (s *MemoryJobStore) GetManifestByOperationID(operationID string) (*PipelineManifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, manifest := range s.manifests {
		if manifest.OperationID == operationID {
			return manifest.Clone(), nil
		}
	}

	return nil, fmt.Errorf("manifest for operation %s not found", operationID)
}

// CleanupOldJobs drops terminal jobs created before the cutoff and
// returns how many were removed. Pending and running jobs are never
// touched.
func (s *MemoryJobStore) CleanupOldJobs(olderThan time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	deleted := 0

	for id, job := range s.jobs {
		switch job.Status {
		case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
			if job.CreatedAt.Before(cutoff) {
				delete(s.jobs, id)
				deleted++
			}
		}
	}

	return deleted, nil
}

// GetStats counts stored jobs by status for the metrics endpoint
func (s *MemoryJobStore) GetStats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]int{
		"total_jobs":      len(s.jobs),
		"total_manifests": len(s.manifests),
		"pending":         0,
		"running":         0,
		"completed":       0,
		"failed":          0,
		"cancelled":       0,
	}

	for _, job := range s.jobs {
		switch job.Status {
		case JobStatusPending:
			stats["pending"]++
		case JobStatusRunning:
			stats["running"]++
		case JobStatusCompleted:
			stats["completed"]++
		case JobStatusFailed:
			stats["failed"]++
		case JobStatusCancelled:
			stats["cancelled"]++
		}
	}

	return stats
}
