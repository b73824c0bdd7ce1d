package domain

import "time"

// StepSummary is the API view of one pipeline step's state
type StepSummary struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Status   string        `json:"status"`
	Progress int           `json:"progress"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// OperationSummary is the API view of one analysis run
type OperationSummary struct {
	ID        string        `json:"id"`
	Status    string        `json:"status"`
	StartedAt time.Time     `json:"started_at,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Steps     []StepSummary `json:"steps"`
	Error     string        `json:"error,omitempty"`
}

// OperationTypeInfo describes a runnable operation for API consumers
type OperationTypeInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Steps       []string `json:"steps"`
}
