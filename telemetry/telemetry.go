// Package telemetry wraps the OpenTelemetry SDK behind the small Span
// interface the rest of taskforge depends on, following the no-op-by-default
// shape of core.Telemetry/Span in the teacher framework. Callers that want
// real traces install a tracer provider with otel.SetTracerProvider; without one,
// spans are created against the global no-op provider otel ships by default.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/meridianai/taskforge"

// Span is the subset of trace.Span the engine needs.
type Span interface {
	End()
	SetAttribute(key string, value interface{})
	RecordError(err error)
}

type otelSpan struct{ span trace.Span }

func (s otelSpan) End() { s.span.End() }

func (s otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, toString(v)))
	}
}

func (s otelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
}

func toString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}

// StartSpan starts a span named `name` under the package-level tracer.
func StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, sp := otel.Tracer(instrumentationName).Start(ctx, name)
	return ctx, otelSpan{span: sp}
}

var (
	meter            = otel.Meter(instrumentationName)
	votesCounter, _  = meter.Int64Counter("taskforge.verification.votes")
	replansCounter, _ = meter.Int64Counter("taskforge.replans")
)

// RecordVerificationVotes records how many valid votes a verification round
// collected, tagged by pass/fail.
func RecordVerificationVotes(ctx context.Context, passed, failed int) {
	votesCounter.Add(ctx, int64(passed), metric.WithAttributes(attribute.String("outcome", "pass")))
	votesCounter.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("outcome", "fail")))
}

// RecordReplan increments the global replan counter metric.
func RecordReplan(ctx context.Context) {
	replansCounter.Add(ctx, 1)
}
