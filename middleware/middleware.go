// Package middleware defines the observer pipeline wrapped around
// workflow and step execution.
//
// Middleware observes boundaries — run start/end, step start/end, span
// completion — and may cause side effects (trace export, external
// lock acquisition), but never alters step results. Each hook is a
// separate interface so middleware opts in only to the events it
// cares about.
//
// Hooks fire in registration order on entry events and reverse order
// on exit events, matching scoped-resource nesting: the first
// registered middleware's "before" runs first and its "after" runs
// last. Hook errors are logged and swallowed (middleware is for
// observability and coordination, not business logic) unless the
// middleware was registered with the Critical option, in which case
// an entry-hook error aborts the unit it wraps.
package middleware

import (
	"context"
	"log/slog"

	"github.com/seanchatmangpt/reactor"
	"github.com/seanchatmangpt/reactor/telemetry"
)

// Middleware is the base interface all middleware must implement.
type Middleware interface {
	// Name returns a unique human-readable name for the middleware.
	Name() string
}

// BeforeReactor is called before the first batch of a run launches.
type BeforeReactor interface {
	BeforeReactor(ctx context.Context, rc *reactor.Context) error
}

// AfterReactor is called after the run settles, with its final state.
type AfterReactor interface {
	AfterReactor(ctx context.Context, rc *reactor.Context, state reactor.RunState, runErr error) error
}

// BeforeStep is called before each step attempt. Retries are new
// attempts: a step retried twice sees attempts 1, 2, 3.
type BeforeStep interface {
	BeforeStep(ctx context.Context, rc *reactor.Context, stepName string, attempt int) error
}

// AfterStep is called after each step attempt settles, with the
// attempt's result.
type AfterStep interface {
	AfterStep(ctx context.Context, rc *reactor.Context, stepName string, attempt int, res *reactor.StepResult) error
}

// SpanEnded is called when the engine finishes a telemetry span.
type SpanEnded interface {
	SpanEnded(ctx context.Context, span telemetry.Span) error
}

// Named entry types pair a hook with the middleware name and critical
// flag captured at registration time.
type beforeReactorEntry struct {
	name     string
	hook     BeforeReactor
	critical bool
}

type afterReactorEntry struct {
	name string
	hook AfterReactor
}

type beforeStepEntry struct {
	name     string
	hook     BeforeStep
	critical bool
}

type afterStepEntry struct {
	name string
	hook AfterStep
}

type spanEndedEntry struct {
	name string
	hook SpanEnded
}

// RegisterOption configures one middleware registration.
type RegisterOption func(*registration)

type registration struct {
	critical bool
}

// Critical marks the middleware's entry hooks (BeforeReactor,
// BeforeStep) as load-bearing: an error aborts the wrapped unit
// instead of being swallowed. Exit hooks stay fail-open regardless.
func Critical() RegisterOption {
	return func(r *registration) { r.critical = true }
}

// Pipeline holds registered middleware and dispatches boundary events
// to them. It type-caches middleware at registration time so emit
// calls iterate only over middleware implementing the relevant hook.
type Pipeline struct {
	middleware []Middleware
	logger     *slog.Logger

	beforeReactor []beforeReactorEntry
	afterReactor  []afterReactorEntry
	beforeStep    []beforeStepEntry
	afterStep     []afterStepEntry
	spanEnded     []spanEndedEntry
}

// NewPipeline creates an empty pipeline with the given logger.
func NewPipeline(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{logger: logger}
}

// Register adds middleware and type-asserts it into the hook caches.
func (p *Pipeline) Register(m Middleware, opts ...RegisterOption) {
	var reg registration
	for _, opt := range opts {
		opt(&reg)
	}

	p.middleware = append(p.middleware, m)
	name := m.Name()

	if h, ok := m.(BeforeReactor); ok {
		p.beforeReactor = append(p.beforeReactor, beforeReactorEntry{name, h, reg.critical})
	}
	if h, ok := m.(AfterReactor); ok {
		p.afterReactor = append(p.afterReactor, afterReactorEntry{name, h})
	}
	if h, ok := m.(BeforeStep); ok {
		p.beforeStep = append(p.beforeStep, beforeStepEntry{name, h, reg.critical})
	}
	if h, ok := m.(AfterStep); ok {
		p.afterStep = append(p.afterStep, afterStepEntry{name, h})
	}
	if h, ok := m.(SpanEnded); ok {
		p.spanEnded = append(p.spanEnded, spanEndedEntry{name, h})
	}
}

// Middleware returns all registered middleware in registration order.
func (p *Pipeline) Middleware() []Middleware { return p.middleware }

// EmitBeforeReactor notifies middleware in registration order.
// The first error from a critical middleware is returned and stops
// the emission; non-critical errors are logged and skipped.
func (p *Pipeline) EmitBeforeReactor(ctx context.Context, rc *reactor.Context) error {
	for _, e := range p.beforeReactor {
		if err := e.hook.BeforeReactor(ctx, rc); err != nil {
			if e.critical {
				return err
			}
			p.logHookError("BeforeReactor", e.name, err)
		}
	}
	return nil
}

// EmitAfterReactor notifies middleware in reverse registration order.
// Errors are always logged, never propagated.
func (p *Pipeline) EmitAfterReactor(ctx context.Context, rc *reactor.Context, state reactor.RunState, runErr error) {
	for i := len(p.afterReactor) - 1; i >= 0; i-- {
		e := p.afterReactor[i]
		if err := e.hook.AfterReactor(ctx, rc, state, runErr); err != nil {
			p.logHookError("AfterReactor", e.name, err)
		}
	}
}

// EmitBeforeStep notifies middleware in registration order. The first
// error from a critical middleware is returned and stops the emission;
// the engine treats it as a step failure for this attempt.
func (p *Pipeline) EmitBeforeStep(ctx context.Context, rc *reactor.Context, stepName string, attempt int) error {
	for _, e := range p.beforeStep {
		if err := e.hook.BeforeStep(ctx, rc, stepName, attempt); err != nil {
			if e.critical {
				return err
			}
			p.logHookError("BeforeStep", e.name, err)
		}
	}
	return nil
}

// EmitAfterStep notifies middleware in reverse registration order.
// Errors are always logged, never propagated.
func (p *Pipeline) EmitAfterStep(ctx context.Context, rc *reactor.Context, stepName string, attempt int, res *reactor.StepResult) {
	for i := len(p.afterStep) - 1; i >= 0; i-- {
		e := p.afterStep[i]
		if err := e.hook.AfterStep(ctx, rc, stepName, attempt, res); err != nil {
			p.logHookError("AfterStep", e.name, err)
		}
	}
}

// EmitSpanEnded notifies middleware in registration order. Errors are
// always logged, never propagated.
func (p *Pipeline) EmitSpanEnded(ctx context.Context, span telemetry.Span) {
	for _, e := range p.spanEnded {
		if err := e.hook.SpanEnded(ctx, span); err != nil {
			p.logHookError("SpanEnded", e.name, err)
		}
	}
}

// logHookError logs a warning when a hook returns a swallowed error.
func (p *Pipeline) logHookError(hook, mwName string, err error) {
	p.logger.Warn("middleware hook error",
		slog.String("hook", hook),
		slog.String("middleware", mwName),
		slog.String("error", err.Error()),
	)
}
