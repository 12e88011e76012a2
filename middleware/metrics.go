package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/seanchatmangpt/reactor"
)

const meterName = "github.com/seanchatmangpt/reactor"

// MetricsMiddleware records OpenTelemetry counters and histograms for
// run and step outcomes.
type MetricsMiddleware struct {
	runsTotal    metric.Int64Counter
	stepAttempts metric.Int64Counter
	stepSeconds  metric.Float64Histogram
}

// Metrics creates middleware using the globally registered meter
// provider.
func Metrics() (*MetricsMiddleware, error) {
	return MetricsWithMeter(otel.Meter(meterName))
}

// MetricsWithMeter creates middleware with an explicit meter.
func MetricsWithMeter(meter metric.Meter) (*MetricsMiddleware, error) {
	runsTotal, err := meter.Int64Counter("reactor.runs",
		metric.WithDescription("Completed workflow runs by final state"),
	)
	if err != nil {
		return nil, err
	}
	stepAttempts, err := meter.Int64Counter("reactor.step.attempts",
		metric.WithDescription("Step attempts by step and status"),
	)
	if err != nil {
		return nil, err
	}
	stepSeconds, err := meter.Float64Histogram("reactor.step.duration",
		metric.WithDescription("Step attempt duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &MetricsMiddleware{
		runsTotal:    runsTotal,
		stepAttempts: stepAttempts,
		stepSeconds:  stepSeconds,
	}, nil
}

func (m *MetricsMiddleware) Name() string { return "metrics" }

func (m *MetricsMiddleware) AfterReactor(ctx context.Context, rc *reactor.Context, state reactor.RunState, runErr error) error {
	m.runsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("state", string(state)),
	))
	return nil
}

func (m *MetricsMiddleware) AfterStep(ctx context.Context, rc *reactor.Context, stepName string, attempt int, res *reactor.StepResult) error {
	status := "ok"
	if !res.Success {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("step", stepName),
		attribute.String("status", status),
	)
	m.stepAttempts.Add(ctx, 1, attrs)
	m.stepSeconds.Record(ctx, res.Elapsed.Seconds(), attrs)
	return nil
}
