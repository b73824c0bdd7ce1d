package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"eficli/internal/infrastructure"
	"eficli/internal/middleware"
)

// OperationsMetricsHandler serves pipeline-level metrics summaries
type OperationsMetricsHandler struct {
	service OperationServiceInterface
	logger  *slog.Logger
	tracer  trace.Tracer
	meter   metric.Meter

	// Metrics collectors
	httpRequestDuration metric.Float64Histogram
	httpRequestsTotal   metric.Int64Counter
	httpActiveRequests  metric.Int64UpDownCounter
}

// NewOperationsMetricsHandler creates a new operations metrics handler
func NewOperationsMetricsHandler(service OperationServiceInterface, logger *slog.Logger) (*OperationsMetricsHandler, error) {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	tracer := otel.Tracer("operations-metrics-handler")
	meter := otel.Meter("operations-metrics-handler")

	httpRequestDuration, err := meter.Float64Histogram(
		"operations_handler_request_duration_seconds",
		metric.WithDescription("HTTP request duration for operations metrics endpoints in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestsTotal, err := meter.Int64Counter(
		"operations_handler_requests_total",
		metric.WithDescription("Total number of HTTP requests to operations metrics endpoints"),
	)
	if err != nil {
		return nil, err
	}

	httpActiveRequests, err := meter.Int64UpDownCounter(
		"operations_handler_active_requests",
		metric.WithDescription("Number of active HTTP requests to operations metrics endpoints"),
	)
	if err != nil {
		return nil, err
	}

	return &OperationsMetricsHandler{
		service:             service,
		logger:              logger.With(slog.String("handler", "operations_metrics")),
		tracer:              tracer,
		meter:               meter,
		httpRequestDuration: httpRequestDuration,
		httpRequestsTotal:   httpRequestsTotal,
		httpActiveRequests:  httpActiveRequests,
	}, nil
}

// Routes returns a chi router for operations metrics endpoints
func (h *OperationsMetricsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(h.instrumentMiddleware)

	r.Get("/summary", h.GetOperationsSummary)
	r.Get("/health", h.GetOperationsHealth)

	return r
}

// instrumentMiddleware adds OpenTelemetry instrumentation to requests
func (h *OperationsMetricsHandler) instrumentMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		route := chi.RouteContext(ctx).RoutePattern()

		h.httpActiveRequests.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", route),
			),
		)
		defer h.httpActiveRequests.Add(ctx, -1,
			metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", route),
			),
		)

		startTime := time.Now()
		next.ServeHTTP(w, r)
		duration := time.Since(startTime).Seconds()

		h.httpRequestDuration.Record(ctx, duration,
			metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", route),
			),
		)
		h.httpRequestsTotal.Add(ctx, 1,
			metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("route", route),
			),
		)
	})
}

// GetOperationsSummary handles GET /api/operations/metrics/summary
func (h *OperationsMetricsHandler) GetOperationsSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	ctx, span := h.tracer.Start(ctx, "operations_metrics_handler.get_summary",
		trace.WithAttributes(
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	metrics, err := h.service.GetOperationMetrics(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "metrics retrieval failed")

		h.logger.ErrorContext(ctx, "failed to get operation metrics",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))

		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]interface{}{
			"error": "Failed to retrieve operation metrics",
		})
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status":    "success",
		"data":      metrics,
		"timestamp": time.Now().UTC(),
		"trace_id":  infrastructure.TraceIDFromContext(ctx),
	})
}

// GetOperationsHealth handles GET /api/operations/metrics/health
func (h *OperationsMetricsHandler) GetOperationsHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ctx, span := h.tracer.Start(ctx, "operations_metrics_handler.get_health")
	defer span.End()

	_, err := h.service.GetOperationMetrics(ctx)
	status := "healthy"
	httpStatus := http.StatusOK
	if err != nil {
		span.RecordError(err)
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	render.Status(r, httpStatus)
	render.JSON(w, r, map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
