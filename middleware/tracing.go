package middleware

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/seanchatmangpt/reactor"
)

const tracerName = "github.com/seanchatmangpt/reactor"

// TracingMiddleware records an OpenTelemetry span per run and per step
// attempt. The run span is the parent of its step spans.
type TracingMiddleware struct {
	tracer trace.Tracer

	mu        sync.Mutex
	runSpans  map[string]trace.Span
	runCtxs   map[string]context.Context
	stepSpans map[string]trace.Span
}

// Tracing creates middleware using the globally registered tracer
// provider.
func Tracing() *TracingMiddleware {
	return TracingWithTracer(otel.Tracer(tracerName))
}

// TracingWithTracer creates middleware with an explicit tracer.
func TracingWithTracer(tracer trace.Tracer) *TracingMiddleware {
	return &TracingMiddleware{
		tracer:    tracer,
		runSpans:  make(map[string]trace.Span),
		runCtxs:   make(map[string]context.Context),
		stepSpans: make(map[string]trace.Span),
	}
}

func (m *TracingMiddleware) Name() string { return "tracing" }

func (m *TracingMiddleware) BeforeReactor(ctx context.Context, rc *reactor.Context) error {
	spanCtx, span := m.tracer.Start(ctx, "reactor.run",
		trace.WithAttributes(
			attribute.String("reactor.run_id", rc.RunID().String()),
			attribute.String("reactor.trace_id", rc.TraceID().String()),
		),
	)

	m.mu.Lock()
	m.runSpans[rc.RunID().String()] = span
	m.runCtxs[rc.RunID().String()] = spanCtx
	m.mu.Unlock()
	return nil
}

func (m *TracingMiddleware) AfterReactor(ctx context.Context, rc *reactor.Context, state reactor.RunState, runErr error) error {
	key := rc.RunID().String()

	m.mu.Lock()
	span, ok := m.runSpans[key]
	delete(m.runSpans, key)
	delete(m.runCtxs, key)
	m.mu.Unlock()
	if !ok {
		return nil
	}

	span.SetAttributes(attribute.String("reactor.state", string(state)))
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
	return nil
}

func (m *TracingMiddleware) BeforeStep(ctx context.Context, rc *reactor.Context, stepName string, attempt int) error {
	parent := ctx
	m.mu.Lock()
	if runCtx, ok := m.runCtxs[rc.RunID().String()]; ok {
		parent = runCtx
	}
	m.mu.Unlock()

	_, span := m.tracer.Start(parent, "reactor.step",
		trace.WithAttributes(
			attribute.String("reactor.run_id", rc.RunID().String()),
			attribute.String("reactor.step", stepName),
			attribute.Int("reactor.attempt", attempt),
		),
	)

	m.mu.Lock()
	m.stepSpans[stepKey(rc, stepName, attempt)] = span
	m.mu.Unlock()
	return nil
}

func (m *TracingMiddleware) AfterStep(ctx context.Context, rc *reactor.Context, stepName string, attempt int, res *reactor.StepResult) error {
	key := stepKey(rc, stepName, attempt)

	m.mu.Lock()
	span, ok := m.stepSpans[key]
	delete(m.stepSpans, key)
	m.mu.Unlock()
	if !ok {
		return nil
	}

	if res.Success {
		span.SetStatus(codes.Ok, "")
	} else {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	span.End()
	return nil
}

func stepKey(rc *reactor.Context, stepName string, attempt int) string {
	return fmt.Sprintf("%s/%s/%d", rc.RunID(), stepName, attempt)
}
