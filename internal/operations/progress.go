package operations

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker tracks progress for long-running step work
type ProgressTracker struct {
	Step      string
	Total     int
	Current   int
	StartTime time.Time
	Message   string
	mu        sync.Mutex
}

// NewProgressTracker creates a new progress tracker for a step
func NewProgressTracker(step string, total int) *ProgressTracker {
	return &ProgressTracker{
		Step:      step,
		Total:     total,
		StartTime: time.Now(),
	}
}

// Update updates the current progress
func (t *ProgressTracker) Update(current int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Current = current
	t.Message = message
}

// Increment increments the progress by one
func (t *ProgressTracker) Increment(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Current++
	t.Message = message
}

// GetProgress returns the progress percentage
func (t *ProgressTracker) GetProgress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Total == 0 {
		return 0
	}
	return float64(t.Current) / float64(t.Total) * 100
}

// GetETA estimates the time remaining based on current progress
func (t *ProgressTracker) GetETA() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Current == 0 {
		return "calculating..."
	}

	elapsed := time.Since(t.StartTime)
	rate := float64(t.Current) / elapsed.Seconds()
	remaining := float64(t.Total-t.Current) / rate

	eta := time.Duration(remaining) * time.Second
	if eta < time.Minute {
		return fmt.Sprintf("%d seconds", int(eta.Seconds()))
	}
	if eta < time.Hour {
		return fmt.Sprintf("%d minutes", int(eta.Minutes()))
	}
	return fmt.Sprintf("%.1f hours", eta.Hours())
}

// IsComplete returns true when progress has reached the total
func (t *ProgressTracker) IsComplete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Current >= t.Total
}

// GetElapsedTime returns the elapsed time as a string
func (t *ProgressTracker) GetElapsedTime() string {
	return time.Since(t.StartTime).Round(time.Second).String()
}
