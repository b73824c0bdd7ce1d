package operations

import (
	"context"
	"log/slog"
	"time"
)

// Lifecycle log lines for operations and steps. Message names are
// stable snake_case tokens so log pipelines can filter on them.

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func (m *Manager) logOperationStart(ctx context.Context, operationID, mode string, stepCount int) {
	slog.InfoContext(ctx, "operation_start",
		slog.String("operation_id", operationID),
		slog.String("mode", mode),
		slog.Int("step_count", stepCount))
}

func (m *Manager) logOperationComplete(ctx context.Context, operationID string, duration time.Duration, status OperationStatusValue) {
	slog.InfoContext(ctx, "operation_complete",
		slog.String("operation_id", operationID),
		slog.String("status", string(status)),
		slog.Duration("duration", duration))
}

func (m *Manager) logOperationError(ctx context.Context, operationID string, err error) {
	slog.ErrorContext(ctx, "operation_error",
		slog.String("operation_id", operationID),
		slog.String("error", errString(err)))
}

func (m *Manager) logStepStart(ctx context.Context, operationID, stepID string) {
	slog.InfoContext(ctx, "step_start",
		slog.String("operation_id", operationID),
		slog.String("step", stepID))
}

func (m *Manager) logStepComplete(ctx context.Context, operationID, stepID string, duration time.Duration) {
	slog.InfoContext(ctx, "step_complete",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.Duration("duration", duration))
}

func (m *Manager) logStepError(ctx context.Context, operationID, stepID string, err error) {
	slog.ErrorContext(ctx, "step_error",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.String("error", errString(err)))
}
