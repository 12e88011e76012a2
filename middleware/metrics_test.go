package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/seanchatmangpt/reactor"
	"github.com/seanchatmangpt/reactor/id"
)

func newTestMetrics(t *testing.T) (*MetricsMiddleware, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := MetricsWithMeter(provider.Meter("test"))
	if err != nil {
		t.Fatalf("MetricsWithMeter: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			out[metric.Name] = metric
		}
	}
	return out
}

func TestMetrics_CountsRunsAndAttempts(t *testing.T) {
	m, reader := newTestMetrics(t)
	p := NewPipeline(testLogger())
	p.Register(m)

	rc := reactor.NewContext(id.TraceID{})
	ctx := context.Background()

	p.EmitAfterStep(ctx, rc, "fetch", 1, &reactor.StepResult{
		Step: "fetch", Success: true, Elapsed: 5 * time.Millisecond,
	})
	p.EmitAfterStep(ctx, rc, "charge", 1, &reactor.StepResult{
		Step: "charge", Success: false, Err: errors.New("declined"), Elapsed: time.Millisecond,
	})
	p.EmitAfterReactor(ctx, rc, reactor.RunStateFailed, errors.New("declined"))

	metrics := collect(t, reader)

	runs, ok := metrics["reactor.runs"].Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("reactor.runs not recorded as int64 sum")
	}
	var runTotal int64
	for _, dp := range runs.DataPoints {
		runTotal += dp.Value
	}
	if runTotal != 1 {
		t.Errorf("reactor.runs total = %d, want 1", runTotal)
	}

	attempts, ok := metrics["reactor.step.attempts"].Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("reactor.step.attempts not recorded as int64 sum")
	}
	var attemptTotal int64
	for _, dp := range attempts.DataPoints {
		attemptTotal += dp.Value
	}
	if attemptTotal != 2 {
		t.Errorf("reactor.step.attempts total = %d, want 2", attemptTotal)
	}

	hist, ok := metrics["reactor.step.duration"].Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("reactor.step.duration not recorded as float64 histogram")
	}
	var histCount uint64
	for _, dp := range hist.DataPoints {
		histCount += dp.Count
	}
	if histCount != 2 {
		t.Errorf("reactor.step.duration count = %d, want 2", histCount)
	}
}
