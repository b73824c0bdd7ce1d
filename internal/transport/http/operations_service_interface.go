package http

import (
	"context"

	"eficli/internal/operations"
)

// OperationServiceInterface defines the interface for the pipeline service
type OperationServiceInterface interface {
	StartOperation(ctx context.Context, req operations.OperationRequest, stepID string) (string, error)
	ExecuteOperation(ctx context.Context, req operations.OperationRequest) (*operations.OperationResponse, error)
	GetStatus(ctx context.Context, operationID string) (*operations.OperationSnapshot, error)
	CancelOperation(ctx context.Context, operationID string) error
	ListOperations(ctx context.Context) ([]*operations.OperationSnapshot, error)
	ListOperationsByStatus(ctx context.Context, status string) ([]*operations.OperationSnapshot, error)
	GetOperationMetrics(ctx context.Context) (map[string]interface{}, error)
	GetOperationTypes(ctx context.Context) ([]operations.OperationType, error)
	GetJob(ctx context.Context, jobID string) (*operations.Job, error)
	ListJobs(ctx context.Context, filter operations.JobFilter) ([]*operations.Job, error)
}
