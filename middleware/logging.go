package middleware

import (
	"context"
	"log/slog"

	"github.com/seanchatmangpt/reactor"
)

// LoggingMiddleware emits a structured log line at every run and step
// boundary.
type LoggingMiddleware struct {
	logger *slog.Logger
}

// Logging creates middleware that logs run and step lifecycle events.
func Logging(logger *slog.Logger) *LoggingMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingMiddleware{logger: logger}
}

func (m *LoggingMiddleware) Name() string { return "logging" }

func (m *LoggingMiddleware) BeforeReactor(ctx context.Context, rc *reactor.Context) error {
	m.logger.InfoContext(ctx, "run started",
		slog.String("run_id", rc.RunID().String()),
		slog.String("trace_id", rc.TraceID().String()),
	)
	return nil
}

func (m *LoggingMiddleware) AfterReactor(ctx context.Context, rc *reactor.Context, state reactor.RunState, runErr error) error {
	attrs := []any{
		slog.String("run_id", rc.RunID().String()),
		slog.String("state", string(state)),
	}
	if runErr != nil {
		attrs = append(attrs, slog.String("error", runErr.Error()))
		m.logger.ErrorContext(ctx, "run finished", attrs...)
		return nil
	}
	m.logger.InfoContext(ctx, "run finished", attrs...)
	return nil
}

func (m *LoggingMiddleware) BeforeStep(ctx context.Context, rc *reactor.Context, stepName string, attempt int) error {
	m.logger.DebugContext(ctx, "step started",
		slog.String("run_id", rc.RunID().String()),
		slog.String("step", stepName),
		slog.Int("attempt", attempt),
	)
	return nil
}

func (m *LoggingMiddleware) AfterStep(ctx context.Context, rc *reactor.Context, stepName string, attempt int, res *reactor.StepResult) error {
	attrs := []any{
		slog.String("run_id", rc.RunID().String()),
		slog.String("step", stepName),
		slog.Int("attempt", attempt),
		slog.Duration("elapsed", res.Elapsed),
	}
	if res.Success {
		m.logger.DebugContext(ctx, "step completed", attrs...)
		return nil
	}
	attrs = append(attrs, slog.String("error", res.Err.Error()))
	m.logger.WarnContext(ctx, "step failed", attrs...)
	return nil
}
