// Package observability provides span emission around ingestion phases.
// Tracing is optional; when disabled every helper degrades to a no-op so
// call sites never branch on configuration.
package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cohortdata/cohort/pkg/metrics"
)

const tracerName = "github.com/cohortdata/cohort"

var (
	tracer   trace.Tracer = noop.NewTracerProvider().Tracer(tracerName)
	initOnce sync.Once
)

// Init sets up the global tracer. With tracing disabled the no-op tracer
// stays in place. The returned shutdown flushes pending spans and must be
// called before process exit.
func Init(enabled bool) (shutdown func(context.Context) error, err error) {
	shutdown = func(context.Context) error { return nil }
	if !enabled {
		return shutdown, nil
	}

	initOnce.Do(func() {
		var exporter *stdouttrace.Exporter
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return
		}

		provider := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
		)
		otel.SetTracerProvider(provider)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

		tracer = provider.Tracer(tracerName)
		shutdown = provider.Shutdown
	})

	return shutdown, err
}

// Span wraps a trace span; attributes are batched and applied once at End.
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// StartSpan starts a span for one named operation.
func StartSpan(ctx context.Context, operationName string) (context.Context, *Span) {
	ctx, span := tracer.Start(ctx, operationName)
	return ctx, &Span{
		span:      span,
		startTime: time.Now(),
	}
}

// SetAttribute records an attribute on the span.
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue
	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}
	s.attributes = append(s.attributes, attr)
}

// RecordError marks the span failed.
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// End applies batched attributes and closes the span.
func (s *Span) End() {
	if len(s.attributes) > 0 {
		s.span.SetAttributes(s.attributes...)
	}
	s.span.End()
}

// TracePhase runs one ingestion phase inside a span and records its latency.
func TracePhase(ctx context.Context, phase string, fn func(context.Context) error) error {
	ctx, span := StartSpan(ctx, "ingest."+phase)
	defer span.End()
	span.SetAttribute("phase", phase)

	start := time.Now()
	err := fn(ctx)
	metrics.PhaseLatency.WithLabelValues(phase).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		return err
	}
	span.span.SetStatus(codes.Ok, "")
	return nil
}
