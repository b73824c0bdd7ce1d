package operations

import (
	"context"
	"fmt"
	"time"

	"eficli/internal/infrastructure"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "eficli.operation"
)

// OperationTracer provides OpenTelemetry instrumentation for pipeline operations
type OperationTracer struct {
	tracer          trace.Tracer
	meter           metric.Meter
	businessMetrics *infrastructure.BusinessMetrics
}

// NewOperationTracer creates a new operation tracer
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	businessMetrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	return &OperationTracer{
		tracer:          otel.Tracer(TracerName),
		meter:           providers.Meter,
		businessMetrics: businessMetrics,
	}, nil
}

// Metrics returns the business metrics instance backing the tracer. Steps
// use it to record dataset, forecast and report metrics.
func (pt *OperationTracer) Metrics() *infrastructure.BusinessMetrics {
	return pt.businessMetrics
}

// TraceOperationExecution creates a span for the entire operation execution
func (pt *OperationTracer) TraceOperationExecution(ctx context.Context, operationID, mode string) (context.Context, trace.Span) {
	spanName := fmt.Sprintf("operation.execute.%s", mode)
	ctx, span := pt.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("operation.mode", mode),
		),
	)

	infrastructure.RecordActiveOperationChange(ctx, pt.businessMetrics, 1, mode)

	return ctx, span
}

// RecordOperationCompletion records operation completion with metrics and
// span status. Called for every terminal outcome, including cancellation.
func (pt *OperationTracer) RecordOperationCompletion(ctx context.Context, operationID, mode string, duration time.Duration, err error) {
	infrastructure.RecordOperationMetrics(ctx, pt.businessMetrics, operationID, mode, duration, err == nil, err)
	infrastructure.RecordActiveOperationChange(ctx, pt.businessMetrics, -1, mode)

	infrastructure.AddSpanEvent(ctx, "operation.completed", map[string]interface{}{
		"operation_id": operationID,
		"success":      err == nil,
		"duration":     duration.Seconds(),
	})

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Float64("operation.duration_seconds", duration.Seconds()))
	if err == nil {
		span.SetStatus(codes.Ok, "operation completed successfully")
	} else {
		span.SetStatus(codes.Error, err.Error())
	}
}

// TraceStepExecution creates a span for an individual step execution
func (pt *OperationTracer) TraceStepExecution(ctx context.Context, operationID, stepID string) (context.Context, trace.Span) {
	spanName := fmt.Sprintf("operation.step.%s", stepID)
	ctx, span := pt.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", stepID),
		),
	)

	return ctx, span
}

// RecordStepCompletion records the terminal outcome of a step
func (pt *OperationTracer) RecordStepCompletion(ctx context.Context, operationID, stepID string, duration time.Duration, err error) {
	infrastructure.RecordOperationStepMetrics(ctx, pt.businessMetrics, operationID, stepID, stepID, duration, err == nil)

	if err != nil {
		infrastructure.RecordError(ctx, err,
			trace.WithAttributes(
				attribute.String("step.id", stepID),
				attribute.String("error.type", "step_execution_error"),
			),
		)
		return
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetStatus(codes.Ok, "step completed successfully")
	}
}

// RecordOperationCancellation records an operation cancellation
func (pt *OperationTracer) RecordOperationCancellation(ctx context.Context, operationID, mode string) {
	infrastructure.RecordOperationCancellation(ctx, pt.businessMetrics, operationID, mode, "cancelled by request")
}

// TraceChromeOperation creates a span for Chrome/CDP operations such as
// PDF rendering
func (pt *OperationTracer) TraceChromeOperation(ctx context.Context, operation string) (context.Context, trace.Span) {
	spanName := fmt.Sprintf("operation.chrome.%s", operation)
	ctx, span := pt.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("chrome.operation", operation),
			attribute.String("browser.name", "chromium"),
		),
	)

	return ctx, span
}

// RecordChromeOperationCompletion records Chrome operation completion
func (pt *OperationTracer) RecordChromeOperationCompletion(ctx context.Context, span trace.Span, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}

	span.SetAttributes(
		attribute.String("chrome.status", status),
		attribute.Float64("chrome.duration_seconds", duration.Seconds()),
	)

	if success {
		span.SetStatus(codes.Ok, fmt.Sprintf("chrome %s completed successfully", operation))
	} else {
		span.SetStatus(codes.Error, fmt.Sprintf("chrome %s failed", operation))
	}
}

var globalOperationTracer *OperationTracer

// InitGlobalOperationTracer initializes the global operation tracer
func InitGlobalOperationTracer(providers *infrastructure.OTelProviders) error {
	tracer, err := NewOperationTracer(providers)
	if err != nil {
		return err
	}
	globalOperationTracer = tracer
	return nil
}

// GetOperationTracer returns the global operation tracer. It is nil until
// InitGlobalOperationTracer has been called; callers must check.
func GetOperationTracer() *OperationTracer {
	return globalOperationTracer
}
