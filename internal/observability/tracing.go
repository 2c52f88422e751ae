package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns a tracer for the given name
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan starts a new span from context
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// StartServiceSpan starts a span for service operations
func StartServiceSpan(ctx context.Context, service, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("%s.%s", service, operation),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("service.component", service),
			attribute.String("service.operation", operation),
		),
	)
}

// StartCaldavSpan starts a span for an outgoing CalDAV request
func StartCaldavSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("CalDAV %s", operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("caldav.operation", operation),
		),
	)
}

// RecordError records an error on the span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSuccess marks the span as successful
func SetSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the span
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SyncMetrics holds the synchronization engine's custom metrics
type SyncMetrics struct {
	syncAttempts  metric.Int64Counter
	syncFailures  metric.Int64Counter
	eventDeletes  metric.Int64Counter
	sweepsRetried metric.Int64Counter
	sweepsSkipped metric.Int64Counter
}

// NewSyncMetrics creates the sync metrics instruments
func NewSyncMetrics() (*SyncMetrics, error) {
	meter := otel.Meter(instrumentationName)

	syncAttempts, err := meter.Int64Counter(
		"mealsync.sync.attempts",
		metric.WithDescription("Total number of item sync attempts"),
		metric.WithUnit("{attempts}"),
	)
	if err != nil {
		return nil, err
	}

	syncFailures, err := meter.Int64Counter(
		"mealsync.sync.failures",
		metric.WithDescription("Total number of failed item sync attempts"),
		metric.WithUnit("{failures}"),
	)
	if err != nil {
		return nil, err
	}

	eventDeletes, err := meter.Int64Counter(
		"mealsync.sync.deletes",
		metric.WithDescription("Total number of calendar event deletions"),
		metric.WithUnit("{deletes}"),
	)
	if err != nil {
		return nil, err
	}

	sweepsRetried, err := meter.Int64Counter(
		"mealsync.retry.retried",
		metric.WithDescription("Items retried by scheduled sweeps"),
		metric.WithUnit("{items}"),
	)
	if err != nil {
		return nil, err
	}

	sweepsSkipped, err := meter.Int64Counter(
		"mealsync.retry.skipped",
		metric.WithDescription("Items skipped by scheduled sweeps"),
		metric.WithUnit("{items}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		syncAttempts:  syncAttempts,
		syncFailures:  syncFailures,
		eventDeletes:  eventDeletes,
		sweepsRetried: sweepsRetried,
		sweepsSkipped: sweepsSkipped,
	}, nil
}

// RecordSyncAttempt records one item sync attempt and its outcome
func (m *SyncMetrics) RecordSyncAttempt(ctx context.Context, itemType string, success bool) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("item_type", itemType),
		attribute.Bool("success", success),
	}
	m.syncAttempts.Add(ctx, 1, metric.WithAttributes(attrs...))
	if !success {
		m.syncFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordEventDelete records one calendar event deletion
func (m *SyncMetrics) RecordEventDelete(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.eventDeletes.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordSweep records the aggregate outcome of one retry sweep
func (m *SyncMetrics) RecordSweep(ctx context.Context, retried, skipped int) {
	if m == nil {
		return
	}
	m.sweepsRetried.Add(ctx, int64(retried))
	m.sweepsSkipped.Add(ctx, int64(skipped))
}
