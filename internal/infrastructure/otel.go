package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "efi-pulse"
	ServiceVersion = "v1.2.0"
	MeterName      = "eficli"
)

// OTelConfig selects exporters and sampling for the process
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
	PrometheusPort string
}

// OTelProviders carries the live tracer and meter plus the Prometheus
// scrape handler mounted at /api/metrics
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns the development defaults: pretty-printed
// stdout traces, full sampling, and a Prometheus metric reader
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
		PrometheusPort: "9090",
	}
}

// InitializeOTel stands up tracing and metrics per cfg and installs
// the global propagators
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger: logger,
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// createResource describes this process for exported telemetry
func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

// initializeTracing wires the span exporter and registers the global
// tracer provider
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))

	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics wires the metric reader and registers the global
// meter provider
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		// The otel prometheus exporter registers on the default
		// registry, which promhttp serves
		providers.PrometheusHTTP = promhttp.Handler()

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

		otel.SetMeterProvider(mp)

	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "Metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// BusinessMetrics bundles every instrument the service records.
// Instances come from CreateBusinessMetrics and are shared through the
// middleware chain and the operation tracer.
type BusinessMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	OperationExecutionsTotal   metric.Int64Counter
	OperationExecutionDuration metric.Float64Histogram
	OperationStepsTotal        metric.Int64Counter
	OperationStepDuration      metric.Float64Histogram
	OperationActiveOperations  metric.Int64UpDownCounter
	OperationErrors            metric.Int64Counter
	OperationCancellations     metric.Int64Counter

	DatasetLoadsTotal    metric.Int64Counter
	DatasetLoadDuration  metric.Float64Histogram
	DatasetRecordsLoaded metric.Int64Gauge
	DatasetRowsSkipped   metric.Int64Counter

	ForecastRunsTotal         metric.Int64Counter
	ForecastRunDuration       metric.Float64Histogram
	ForecastIndicatorsSkipped metric.Int64Counter

	ReportGenerationsTotal   metric.Int64Counter
	ReportGenerationDuration metric.Float64Histogram
	ReportPDFFailures        metric.Int64Counter
	ExportFilesWritten       metric.Int64Counter

	SystemErrors metric.Int64Counter
	SystemUptime metric.Float64UpDownCounter
}

// instrumentSet keeps the first instrument creation error so the
// definitions in CreateBusinessMetrics read as a flat list
type instrumentSet struct {
	meter metric.Meter
	err   error
}

func (s *instrumentSet) counter(name, desc string) metric.Int64Counter {
	if s.err != nil {
		return nil
	}
	c, err := s.meter.Int64Counter(name, metric.WithDescription(desc))
	s.err = err
	return c
}

func (s *instrumentSet) seconds(name, desc string) metric.Float64Histogram {
	if s.err != nil {
		return nil
	}
	h, err := s.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	s.err = err
	return h
}

func (s *instrumentSet) upDown(name, desc string) metric.Int64UpDownCounter {
	if s.err != nil {
		return nil
	}
	c, err := s.meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	s.err = err
	return c
}

func (s *instrumentSet) gauge(name, desc string) metric.Int64Gauge {
	if s.err != nil {
		return nil
	}
	g, err := s.meter.Int64Gauge(name, metric.WithDescription(desc))
	s.err = err
	return g
}

func (s *instrumentSet) floatUpDown(name, desc string) metric.Float64UpDownCounter {
	if s.err != nil {
		return nil
	}
	c, err := s.meter.Float64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit("s"))
	s.err = err
	return c
}

// CreateBusinessMetrics registers every instrument on the meter
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	s := &instrumentSet{meter: meter}

	m := &BusinessMetrics{
		HTTPRequestsTotal:   s.counter("http_requests_total", "Total number of HTTP requests"),
		HTTPRequestDuration: s.seconds("http_request_duration_seconds", "HTTP request duration in seconds"),
		HTTPActiveRequests:  s.upDown("http_active_requests", "Number of active HTTP requests"),

		OperationExecutionsTotal:   s.counter("operation_executions_total", "Total number of operation executions"),
		OperationExecutionDuration: s.seconds("operation_execution_duration_seconds", "Operation execution duration in seconds"),
		OperationStepsTotal:        s.counter("operation_steps_total", "Total number of operation steps executed"),
		OperationStepDuration:      s.seconds("operation_step_duration_seconds", "Operation step execution duration in seconds"),
		OperationActiveOperations:  s.upDown("operation_active_operations", "Number of active operations"),
		OperationErrors:            s.counter("operation_errors_total", "Total number of operation errors"),
		OperationCancellations:     s.counter("operation_cancellations_total", "Total number of operation cancellations"),

		DatasetLoadsTotal:    s.counter("dataset_loads_total", "Total number of dataset load attempts"),
		DatasetLoadDuration:  s.seconds("dataset_load_duration_seconds", "Dataset load duration in seconds"),
		DatasetRecordsLoaded: s.gauge("dataset_records_loaded", "Number of records loaded from the unified dataset"),
		DatasetRowsSkipped:   s.counter("dataset_rows_skipped_total", "Total number of malformed dataset rows skipped"),

		ForecastRunsTotal:         s.counter("forecast_runs_total", "Total number of forecast analysis runs"),
		ForecastRunDuration:       s.seconds("forecast_run_duration_seconds", "Forecast analysis run duration in seconds"),
		ForecastIndicatorsSkipped: s.counter("forecast_indicators_skipped_total", "Total number of indicators skipped for insufficient observations"),

		ReportGenerationsTotal:   s.counter("report_generations_total", "Total number of report generation attempts"),
		ReportGenerationDuration: s.seconds("report_generation_duration_seconds", "Report generation duration in seconds"),
		ReportPDFFailures:        s.counter("report_pdf_failures_total", "Total number of PDF render failures"),
		ExportFilesWritten:       s.counter("export_files_written_total", "Total number of export files written"),

		SystemErrors: s.counter("system_errors_total", "Total number of system errors"),
		SystemUptime: s.floatUpDown("system_uptime_seconds", "System uptime in seconds"),
	}
	if s.err != nil {
		return nil, s.err
	}
	return m, nil
}

// Shutdown flushes and stops both providers, collecting errors so a
// failing tracer does not skip the meter
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID distinguishes restarts of the same host
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext returns the active span's trace ID, or ""
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// SpanFromContext returns the span carried by ctx
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent attaches a structured event to the active span.
// Unsupported attribute types fall back to their fmt representation.
func AddSpanEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}

	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError marks the active span as failed with err
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes copies the map onto the active span
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			span.SetAttributes(attribute.String(k, val))
		case int:
			span.SetAttributes(attribute.Int(k, val))
		case int64:
			span.SetAttributes(attribute.Int64(k, val))
		case float64:
			span.SetAttributes(attribute.Float64(k, val))
		case bool:
			span.SetAttributes(attribute.Bool(k, val))
		default:
			span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
}

// RecordOperationMetrics records one finished operation: execution
// count, duration by outcome, and the error counter when err is set
func RecordOperationMetrics(ctx context.Context, metrics *BusinessMetrics, operationID string, operationType string, duration time.Duration, success bool, err error) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation.id", operationID),
		attribute.String("operation.type", operationType),
	}
	metrics.OperationExecutionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	statusAttr := attribute.String("status", "success")
	if !success {
		statusAttr = attribute.String("status", "failure")
	}
	durationAttrs := append(attrs, statusAttr)
	metrics.OperationExecutionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(durationAttrs...))

	if err != nil {
		errorAttrs := append(attrs, attribute.String("error.type", fmt.Sprintf("%T", err)))
		metrics.OperationErrors.Add(ctx, 1, metric.WithAttributes(errorAttrs...))
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("operation.metrics_recorded",
			trace.WithAttributes(
				attribute.String("operation.id", operationID),
				attribute.Bool("success", success),
				attribute.Float64("duration_seconds", duration.Seconds()),
			),
		)
	}
}

// RecordOperationStepMetrics records one finished pipeline step
func RecordOperationStepMetrics(ctx context.Context, metrics *BusinessMetrics, operationID, stepID, stepType string, duration time.Duration, success bool) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation.id", operationID),
		attribute.String("step.id", stepID),
		attribute.String("step.type", stepType),
	}
	metrics.OperationStepsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	statusAttr := attribute.String("status", "success")
	if !success {
		statusAttr = attribute.String("status", "failure")
	}
	durationAttrs := append(attrs, statusAttr)
	metrics.OperationStepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(durationAttrs...))
}

// RecordActiveOperationChange moves the active-operation gauge by delta
func RecordActiveOperationChange(ctx context.Context, metrics *BusinessMetrics, delta int64, operationType string) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation.type", operationType),
	}

	metrics.OperationActiveOperations.Add(ctx, delta, metric.WithAttributes(attrs...))
}

// RecordOperationCancellation counts a cancelled operation with its reason
func RecordOperationCancellation(ctx context.Context, metrics *BusinessMetrics, operationID, operationType, reason string) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation.id", operationID),
		attribute.String("operation.type", operationType),
		attribute.String("reason", reason),
	}

	metrics.OperationCancellations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDatasetLoadMetrics records metrics for a dataset load
func RecordDatasetLoadMetrics(ctx context.Context, metrics *BusinessMetrics, path string, records, skipped int64, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	statusAttr := attribute.String("status", "success")
	if err != nil {
		statusAttr = attribute.String("status", "failure")
	}

	metrics.DatasetLoadsTotal.Add(ctx, 1, metric.WithAttributes(statusAttr))
	metrics.DatasetLoadDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(statusAttr))

	if err == nil {
		metrics.DatasetRecordsLoaded.Record(ctx, records)
		if skipped > 0 {
			metrics.DatasetRowsSkipped.Add(ctx, skipped)
		}
	}
}

// RecordForecastRunMetrics records metrics for a forecast analysis run
func RecordForecastRunMetrics(ctx context.Context, metrics *BusinessMetrics, indicators, skipped int64, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	statusAttr := attribute.String("status", "success")
	if err != nil {
		statusAttr = attribute.String("status", "failure")
	}

	metrics.ForecastRunsTotal.Add(ctx, 1, metric.WithAttributes(statusAttr))
	metrics.ForecastRunDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(statusAttr))

	if skipped > 0 {
		metrics.ForecastIndicatorsSkipped.Add(ctx, skipped)
	}
}

// RecordExportMetrics records how many artifact files an export run produced
func RecordExportMetrics(ctx context.Context, metrics *BusinessMetrics, files int64, format string) {
	if metrics == nil || files <= 0 {
		return
	}

	metrics.ExportFilesWritten.Add(ctx, files, metric.WithAttributes(
		attribute.String("format", format),
	))
}

// RecordReportGenerationMetrics records metrics for a report generation run
func RecordReportGenerationMetrics(ctx context.Context, metrics *BusinessMetrics, duration time.Duration, pdfRendered bool, err error) {
	if metrics == nil {
		return
	}

	statusAttr := attribute.String("status", "success")
	if err != nil {
		statusAttr = attribute.String("status", "failure")
	}

	metrics.ReportGenerationsTotal.Add(ctx, 1, metric.WithAttributes(statusAttr))
	metrics.ReportGenerationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(statusAttr))

	if err == nil && !pdfRendered {
		metrics.ReportPDFFailures.Add(ctx, 1)
	}
}
