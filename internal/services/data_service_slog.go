package services

import (
	"context"
	"log/slog"

	"eficli/internal/infrastructure"
)

// logDataError logs a dataset access failure with the trace-aware logger
// and the standard data service attributes
func logDataError(ctx context.Context, action, message string, attrs ...slog.Attr) {
	logger := infrastructure.LoggerWithContext(ctx)

	allAttrs := make([]slog.Attr, 0, len(attrs)+2)
	allAttrs = append(allAttrs,
		slog.String("component", "data_service"),
		slog.String("action", action))
	allAttrs = append(allAttrs, attrs...)

	logger.LogAttrs(ctx, slog.LevelError, message, allAttrs...)
}
