// OpenTelemetry tracing of exit drains, fatal errors and time source switches.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer wraps OpenTelemetry tracing with host-specific helpers.
type Tracer struct {
	tracer trace.Tracer
}

var (
	globalTracer *Tracer
	tracerMu     sync.RWMutex
)

// SetGlobalTracer sets the global tracer instance.
func SetGlobalTracer(t *Tracer) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	globalTracer = t
}

// GetTracer returns the global tracer, or a no-op tracer if not set.
func GetTracer() *Tracer {
	tracerMu.RLock()
	defer tracerMu.RUnlock()
	if globalTracer == nil {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer("")}
	}
	return globalTracer
}

// NewTracerFromProvider creates a tracer from an explicit provider.
func NewTracerFromProvider(tp trace.TracerProvider, name string) *Tracer {
	return &Tracer{tracer: tp.Tracer(name)}
}

// --- Drain Spans ---

// StartDrainSpan starts the span covering one exit drain.
func (t *Tracer) StartDrainSpan(ctx context.Context, runID string, code, pending int) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "exit.drain", trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.Int("exit.code", code),
		attribute.Int("exit.pending", pending),
	)
	return ctx, span
}

// EndDrainSpan ends a drain span. A nonzero code marks the span as failed.
func (t *Tracer) EndDrainSpan(span trace.Span, code int) {
	if code != 0 {
		span.SetStatus(codes.Error, "terminated on error")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RecordExitAction records an already-finished exit action as a child span.
// The span is back-dated so its extent matches the action's run time.
func (t *Tracer) RecordExitAction(ctx context.Context, rec ExitRecord) {
	end := rec.Timestamp
	if end.IsZero() {
		end = time.Now()
	}
	_, span := t.tracer.Start(ctx, "exit.action."+rec.Action,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(end.Add(-rec.Duration)),
	)
	span.SetAttributes(
		attribute.String("exit.action", rec.Action),
		attribute.String("exit.priority", rec.Priority),
		attribute.Bool("exit.skipped", rec.Skipped),
	)
	span.End(trace.WithTimestamp(end))
}

// --- Fatal Spans ---

// RecordFatal records the fatal error that started an error drain.
func (t *Tracer) RecordFatal(ctx context.Context, code string, err error) {
	_, span := t.tracer.Start(ctx, "host.fatal", trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(attribute.String("error.code", code))
	span.RecordError(err)
	span.SetStatus(codes.Error, truncate(err.Error(), 1000))
	span.End()
}

// --- Time Source Spans ---

// SwitchSpanOptions describes a time source strategy or scale change.
type SwitchSpanOptions struct {
	From  string
	To    string
	Scale int
	Tick  int64
}

// RecordSwitch records a time source switch as a zero-length span.
func (t *Tracer) RecordSwitch(ctx context.Context, opts SwitchSpanOptions) {
	_, span := t.tracer.Start(ctx, "time.switch", trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(
		attribute.String("time.from", opts.From),
		attribute.String("time.to", opts.To),
		attribute.Int("time.scale", opts.Scale),
		attribute.Int64("time.tick", opts.Tick),
	)
	span.End()
}

// --- Helpers ---

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
