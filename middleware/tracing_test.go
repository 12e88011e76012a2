package middleware

import (
	"context"
	"errors"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/seanchatmangpt/reactor"
	"github.com/seanchatmangpt/reactor/id"
)

func newTestTracing(t *testing.T) (*TracingMiddleware, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return TracingWithTracer(provider.Tracer("test")), recorder
}

func TestTracing_RunSpanWrapsStepSpans(t *testing.T) {
	m, recorder := newTestTracing(t)
	p := NewPipeline(testLogger())
	p.Register(m)

	rc := reactor.NewContext(id.TraceID{})
	ctx := context.Background()

	if err := p.EmitBeforeReactor(ctx, rc); err != nil {
		t.Fatalf("EmitBeforeReactor: %v", err)
	}
	if err := p.EmitBeforeStep(ctx, rc, "fetch", 1); err != nil {
		t.Fatalf("EmitBeforeStep: %v", err)
	}
	p.EmitAfterStep(ctx, rc, "fetch", 1, &reactor.StepResult{Step: "fetch", Success: true})
	p.EmitAfterReactor(ctx, rc, reactor.RunStateCompleted, nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}

	// Step spans end before the run span.
	stepSpan, runSpan := spans[0], spans[1]
	if stepSpan.Name() != "reactor.step" {
		t.Errorf("first ended span = %q, want reactor.step", stepSpan.Name())
	}
	if runSpan.Name() != "reactor.run" {
		t.Errorf("last ended span = %q, want reactor.run", runSpan.Name())
	}
	if stepSpan.Parent().SpanID() != runSpan.SpanContext().SpanID() {
		t.Error("step span should be a child of the run span")
	}
	if stepSpan.SpanContext().TraceID() != runSpan.SpanContext().TraceID() {
		t.Error("step and run spans should share a trace")
	}
}

func TestTracing_FailedStepRecordsError(t *testing.T) {
	m, recorder := newTestTracing(t)
	p := NewPipeline(testLogger())
	p.Register(m)

	rc := reactor.NewContext(id.TraceID{})
	ctx := context.Background()

	if err := p.EmitBeforeReactor(ctx, rc); err != nil {
		t.Fatalf("EmitBeforeReactor: %v", err)
	}
	if err := p.EmitBeforeStep(ctx, rc, "charge", 1); err != nil {
		t.Fatalf("EmitBeforeStep: %v", err)
	}
	p.EmitAfterStep(ctx, rc, "charge", 1, &reactor.StepResult{
		Step: "charge", Success: false, Err: errors.New("declined"),
	})
	p.EmitAfterReactor(ctx, rc, reactor.RunStateFailed, errors.New("declined"))

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if len(spans[0].Events()) == 0 {
		t.Error("failed step span should carry an error event")
	}
}

func TestTracing_RetriedStepGetsOwnSpans(t *testing.T) {
	m, recorder := newTestTracing(t)
	p := NewPipeline(testLogger())
	p.Register(m)

	rc := reactor.NewContext(id.TraceID{})
	ctx := context.Background()

	if err := p.EmitBeforeReactor(ctx, rc); err != nil {
		t.Fatalf("EmitBeforeReactor: %v", err)
	}
	for attempt := 1; attempt <= 3; attempt++ {
		if err := p.EmitBeforeStep(ctx, rc, "flaky", attempt); err != nil {
			t.Fatalf("EmitBeforeStep attempt %d: %v", attempt, err)
		}
		p.EmitAfterStep(ctx, rc, "flaky", attempt, &reactor.StepResult{
			Step: "flaky", Success: attempt == 3, Err: errors.New("transient"),
		})
	}
	p.EmitAfterReactor(ctx, rc, reactor.RunStateCompleted, nil)

	if got := len(recorder.Ended()); got != 4 {
		t.Fatalf("got %d spans, want 4 (3 attempts + run)", got)
	}
}
