package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seanchatmangpt/reactor"
	"github.com/seanchatmangpt/reactor/backoff"
	"github.com/seanchatmangpt/reactor/graph"
	"github.com/seanchatmangpt/reactor/id"
	"github.com/seanchatmangpt/reactor/limits"
	"github.com/seanchatmangpt/reactor/middleware"
	"github.com/seanchatmangpt/reactor/step"
	"github.com/seanchatmangpt/reactor/telemetry"
)

// Config holds scheduler-wide knobs. Use DefaultConfig as the
// starting point and override via options.
type Config struct {
	// Concurrency is the default step admission limit, used when no
	// explicit Controller is supplied.
	Concurrency int

	// CompensationGrace bounds the compensation unwind after the
	// run-level deadline has already elapsed, so rollback is not
	// cancelled by the very timeout that triggered it.
	CompensationGrace time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:       8,
		CompensationGrace: 30 * time.Second,
	}
}

type pendingMiddleware struct {
	m    middleware.Middleware
	opts []middleware.RegisterOption
}

// Engine executes a plan. It is stateless across runs: one Engine may
// execute its plan many times, concurrently, each run getting a fresh
// execution context.
type Engine struct {
	plan     *graph.Plan
	cfg      Config
	logger   *slog.Logger
	pipeline *middleware.Pipeline
	limiter  limits.Controller
	bo       backoff.Strategy
	timeout  time.Duration
	sink     telemetry.Sink
	traceID  id.TraceID
	clock    Clock

	pending []pendingMiddleware
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithConcurrency sets the default step admission limit.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.cfg.Concurrency = n }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMiddleware registers middleware on the engine's pipeline.
// Registration order is emission order for entry hooks.
func WithMiddleware(m middleware.Middleware, opts ...middleware.RegisterOption) Option {
	return func(e *Engine) {
		e.pending = append(e.pending, pendingMiddleware{m: m, opts: opts})
	}
}

// WithLimiter replaces the admission controller. The caller owns the
// controller's lifecycle (an Adaptive controller's Start/Stop).
func WithLimiter(c limits.Controller) Option {
	return func(e *Engine) { e.limiter = c }
}

// WithBackoff sets the retry strategy used by steps whose RetryPolicy
// carries no explicit base delay.
func WithBackoff(b backoff.Strategy) Option {
	return func(e *Engine) { e.bo = b }
}

// WithTimeout sets the run-level deadline. Zero means unbounded.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithSink sets the destination for emitted span records.
func WithSink(s telemetry.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithTraceID propagates a caller-supplied trace identity into every
// run. The nil ID means each run generates its own.
func WithTraceID(traceID id.TraceID) Option {
	return func(e *Engine) { e.traceID = traceID }
}

// WithClock replaces the retry wait clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// New creates an engine for the given plan.
func New(plan *graph.Plan, opts ...Option) *Engine {
	e := &Engine{
		plan:   plan,
		cfg:    DefaultConfig(),
		logger: slog.Default(),
		bo:     backoff.DefaultStrategy(),
		sink:   telemetry.NopSink{},
		clock:  realClock{},
	}
	for _, opt := range opts {
		opt(e)
	}

	// The pipeline is built after options so it sees the final logger.
	e.pipeline = middleware.NewPipeline(e.logger)
	for _, p := range e.pending {
		e.pipeline.Register(p.m, p.opts...)
	}
	e.pending = nil

	if e.limiter == nil {
		e.limiter = limits.NewFixed(e.cfg.Concurrency)
	}
	return e
}

// Execute runs the plan with the given inputs. Business failures never
// surface as a non-nil error: a failed or timed-out run returns a
// Result carrying its error trail. A non-nil error means the run was
// rejected before any step launched.
func (e *Engine) Execute(ctx context.Context, inputs map[string]any) (*Result, error) {
	for name, in := range e.plan.Inputs() {
		if in.Required {
			if _, ok := inputs[name]; !ok {
				return nil, fmt.Errorf("%w: %s", reactor.ErrMissingInput, name)
			}
		}
	}

	rc := reactor.NewContext(e.traceID)
	start := time.Now()
	runSpanID := telemetry.NewSpanID()
	res := &Result{State: reactor.RunStateRunning, Context: rc}

	runCtx := ctx
	cancel := func() {}
	if e.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	defer cancel()

	if err := e.pipeline.EmitBeforeReactor(runCtx, rc); err != nil {
		return nil, fmt.Errorf("reactor: run rejected by middleware: %w", err)
	}

	e.logger.Info("run started",
		slog.String("run_id", rc.RunID().String()),
		slog.String("trace_id", rc.TraceID().String()),
		slog.Int("steps", e.plan.Len()),
	)

	batches := e.plan.Batches()
	bi := 0
	for bi < len(batches) {
		failures := e.runBatch(runCtx, rc, batches[bi], inputs, runSpanID)
		if len(failures) == 0 {
			bi++
			continue
		}

		for _, f := range failures {
			res.Errors = append(res.Errors, RunError{Step: f.Step, Kind: kindOf(f.Err), Err: f.Err})
		}

		// When the run deadline itself triggered the failure, the
		// unwind gets its own detached grace budget.
		compCtx := runCtx
		if runCtx.Err() != nil {
			var compCancel context.CancelFunc
			compCtx, compCancel = context.WithTimeout(context.WithoutCancel(ctx), e.cfg.CompensationGrace)
			defer compCancel()
		}

		if e.compensate(compCtx, rc, failures, inputs, runSpanID, res) {
			// The failed step was retried to success; the batch is
			// now complete and forward execution resumes.
			bi++
			continue
		}

		state := reactor.RunStateFailed
		if e.timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			state = reactor.RunStateTimedOut
		}
		return e.finish(ctx, rc, res, state, start, runSpanID), nil
	}

	if ret, ok := rc.Result(e.plan.ReturnStep()); ok {
		res.ReturnValue = ret.Data
	}
	return e.finish(ctx, rc, res, reactor.RunStateCompleted, start, runSpanID), nil
}

// runBatch resolves arguments and launches every step of one batch,
// then waits for all of them to settle. It returns the terminally
// failed results.
func (e *Engine) runBatch(ctx context.Context, rc *reactor.Context, batch []*step.Step, inputs map[string]any, runSpanID string) []*reactor.StepResult {
	var (
		mu       sync.Mutex
		failures []*reactor.StepResult
	)

	var g errgroup.Group
	for _, s := range batch {
		args, err := e.resolveArgs(s, inputs, rc)
		if err != nil {
			res := &reactor.StepResult{Step: s.Name, Success: false, Err: err}
			e.record(rc, res, false)
			failures = append(failures, res)
			continue
		}

		g.Go(func() error {
			if acqErr := e.limiter.Acquire(ctx); acqErr != nil {
				res := &reactor.StepResult{Step: s.Name, Success: false, Err: acqErr}
				e.record(rc, res, false)
				mu.Lock()
				failures = append(failures, res)
				mu.Unlock()
				return nil
			}
			defer e.limiter.Release()

			res := e.executeStep(ctx, rc, s, args, runSpanID, false)
			if !res.Success {
				mu.Lock()
				failures = append(failures, res)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failures
}

// executeStep runs one step's retry loop: invoke, emit middleware and
// span records per attempt, back off between attempts, and record the
// final result into the execution context.
func (e *Engine) executeStep(ctx context.Context, rc *reactor.Context, s *step.Step, args step.Args, runSpanID string, replace bool) *reactor.StepResult {
	maxAttempts := s.Retry.Attempts()
	strategy := e.stepStrategy(s)

	var lastErr error
	attempts := 0
	var elapsed time.Duration

loop:
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		attemptStart := time.Now()

		var data any
		var err error
		if hookErr := e.pipeline.EmitBeforeStep(ctx, rc, s.Name, attempt); hookErr != nil {
			err = hookErr
		} else {
			data, err = e.invokeRun(ctx, s, args, rc)
		}
		elapsed = time.Since(attemptStart)

		attemptRes := &reactor.StepResult{
			Step:     s.Name,
			Success:  err == nil,
			Data:     data,
			Err:      err,
			Attempts: attempt,
			Elapsed:  elapsed,
		}
		e.pipeline.EmitAfterStep(ctx, rc, s.Name, attempt, attemptRes)
		e.emitStepSpan(ctx, rc, s, attempt, attemptStart, elapsed, runSpanID, err)

		if err == nil {
			e.record(rc, attemptRes, replace)
			return attemptRes
		}
		lastErr = err

		if attempt == maxAttempts || ctx.Err() != nil {
			break
		}

		delay := strategy.Delay(attempt)
		e.logger.Debug("retrying step",
			slog.String("run_id", rc.RunID().String()),
			slog.String("step", s.Name),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
		select {
		case <-e.clock.After(delay):
		case <-ctx.Done():
			lastErr = ctx.Err()
			break loop
		}
	}

	res := &reactor.StepResult{
		Step:     s.Name,
		Success:  false,
		Err:      lastErr,
		Attempts: attempts,
		Elapsed:  elapsed,
	}
	e.record(rc, res, replace)
	e.logger.Warn("step failed terminally",
		slog.String("run_id", rc.RunID().String()),
		slog.String("step", s.Name),
		slog.Int("attempts", attempts),
		slog.String("error", lastErr.Error()),
	)
	return res
}

// invokeRun executes one attempt under the step deadline with panic
// recovery. The run goroutine is abandoned on timeout; steps must
// observe ctx at I/O boundaries to stop their own work.
func (e *Engine) invokeRun(ctx context.Context, s *step.Step, args step.Args, rc *reactor.Context) (any, error) {
	stepCtx := ctx
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	type outcome struct {
		data any
		err  error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("%w: %s: %v", reactor.ErrStepPanic, s.Name, r)}
			}
		}()
		data, err := s.Run(stepCtx, args, rc)
		ch <- outcome{data: data, err: err}
	}()

	select {
	case out := <-ch:
		return out.data, out.err
	case <-stepCtx.Done():
		if s.Timeout > 0 && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s after %s", reactor.ErrStepTimeout, s.Name, s.Timeout)
		}
		return nil, stepCtx.Err()
	}
}

// stepStrategy picks the backoff for a step: an explicit per-step base
// delay builds its own jittered exponential; otherwise the engine
// default applies.
func (e *Engine) stepStrategy(s *step.Step) backoff.Strategy {
	p := s.Retry
	if p == nil || p.BaseDelay <= 0 {
		return e.bo
	}
	return &backoff.ExponentialWithJitter{Initial: p.BaseDelay, Multiplier: p.Multiplier}
}

func (e *Engine) record(rc *reactor.Context, res *reactor.StepResult, replace bool) {
	if replace {
		rc.Replace(res)
		return
	}
	if err := rc.Record(res); err != nil {
		e.logger.Error("result record conflict",
			slog.String("run_id", rc.RunID().String()),
			slog.String("step", res.Step),
			slog.String("error", err.Error()),
		)
	}
}

// emitStepSpan sends one attempt's span record to the sink and the
// middleware pipeline.
func (e *Engine) emitStepSpan(ctx context.Context, rc *reactor.Context, s *step.Step, attempt int, start time.Time, elapsed time.Duration, runSpanID string, err error) {
	attrs := map[string]string{
		"step":    s.Name,
		"attempt": strconv.Itoa(attempt),
	}
	if s.Description != "" {
		attrs["description"] = s.Description
	}
	status := telemetry.StatusOK
	if err != nil {
		status = telemetry.StatusError
		attrs["error"] = err.Error()
	}

	span := telemetry.Span{
		TraceID:      rc.TraceID().String(),
		SpanID:       telemetry.NewSpanID(),
		ParentSpanID: runSpanID,
		Operation:    s.Name,
		StartTime:    start.UTC(),
		Duration:     elapsed,
		Status:       status,
		Attributes:   attrs,
	}
	e.sink.Record(span)
	e.pipeline.EmitSpanEnded(ctx, span)
}

// finish settles the run: final state, duration, closing middleware
// emission, and the run-level span record.
func (e *Engine) finish(ctx context.Context, rc *reactor.Context, res *Result, state reactor.RunState, start time.Time, runSpanID string) *Result {
	rc.SetState(state)
	res.State = state
	res.Duration = time.Since(start)

	runErr := res.Err()
	e.pipeline.EmitAfterReactor(ctx, rc, state, runErr)

	status := telemetry.StatusOK
	attrs := map[string]string{
		"run_id": rc.RunID().String(),
		"state":  string(state),
	}
	if runErr != nil {
		status = telemetry.StatusError
	}
	span := telemetry.Span{
		TraceID:    rc.TraceID().String(),
		SpanID:     runSpanID,
		Operation:  "reactor.run",
		StartTime:  start.UTC(),
		Duration:   res.Duration,
		Status:     status,
		Attributes: attrs,
	}
	e.sink.Record(span)
	e.pipeline.EmitSpanEnded(ctx, span)

	e.logger.Info("run finished",
		slog.String("run_id", rc.RunID().String()),
		slog.String("state", string(state)),
		slog.Duration("duration", res.Duration),
	)
	return res
}

func kindOf(err error) ErrorKind {
	if errors.Is(err, reactor.ErrStepTimeout) ||
		errors.Is(err, reactor.ErrRunTimeout) ||
		errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindStep
}
