package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"eficli/internal/errors"
	"eficli/internal/middleware"
)

// ClientLogHandler receives dashboard-side log entries so browser errors
// land in the same structured log stream as the server
type ClientLogHandler struct {
	logger *slog.Logger
}

// NewClientLogHandler creates a new client log handler
func NewClientLogHandler(logger *slog.Logger) *ClientLogHandler {
	return &ClientLogHandler{
		logger: logger.With(slog.String("handler", "client_log")),
	}
}

// ClientLogEntry is a single log record submitted by the dashboard
type ClientLogEntry struct {
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Page    string                 `json:"page,omitempty"`
	Source  string                 `json:"source,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// Handle processes POST /api/logs
func (h *ClientLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var entry ClientLogEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		errors.WriteError(w, errors.NewValidationError("Invalid request format"))
		return
	}

	attrs := []slog.Attr{
		slog.String("client_source", entry.Source),
	}
	if entry.Page != "" {
		attrs = append(attrs, slog.String("page", entry.Page))
	}
	if entry.Data != nil {
		attrs = append(attrs, slog.Any("data", entry.Data))
	}

	h.logger.LogAttrs(r.Context(), clientLogLevel(entry.Level), entry.Message, attrs...)

	// Browser-side errors count against the same error metric as
	// server-side failures so the dashboard surfaces them together.
	if entry.Level == "error" {
		if bm := middleware.GetBusinessMetricsFromContext(r.Context()); bm != nil {
			bm.SystemErrors.Add(r.Context(), 1, metric.WithAttributes(
				attribute.String("error_type", "client_error"),
				attribute.String("component", "dashboard"),
			))
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
	})
}

// clientLogLevel maps a client-supplied level string to a slog level,
// falling back to info for unknown values
func clientLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
