// Package step defines the unit of work executed by the reactor engine:
// a named step with declared dependencies, argument bindings, a run
// function, and an optional compensation for saga rollback.
package step

import (
	"context"
	"fmt"
	"time"

	"github.com/seanchatmangpt/reactor"
)

// RunFunc executes a step's work. args holds the materialized argument
// bindings; rc is the run's execution context, carrying identity and
// the results of earlier steps. Blocking work must observe ctx.
type RunFunc func(ctx context.Context, args Args, rc *reactor.Context) (any, error)

// CompensateFunc undoes a completed step when a later step fails
// terminally. stepErr is the error that triggered rollback; args are
// the step's original materialized arguments. The returned Outcome
// steers the compensation manager.
type CompensateFunc func(ctx context.Context, stepErr error, args Args, rc *reactor.Context) Outcome

// Outcome is a compensation's verdict.
type Outcome string

const (
	// Abort stops compensating further steps immediately and surfaces
	// the workflow as failed.
	Abort Outcome = "abort"
	// Continue treats this step's compensation as satisfied and
	// proceeds to the next step on the unwind path.
	Continue Outcome = "continue"
	// Retry re-attempts the originally failed step (not the
	// compensation) with a fresh retry budget, rather than unwinding
	// further.
	Retry Outcome = "retry"
)

// RetryPolicy configures per-step retry behaviour. A step with no
// policy fails terminally on first error.
type RetryPolicy struct {
	// MaxAttempts is the total number of run invocations allowed,
	// including the first. Values below 1 are treated as 1.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// Multiplier scales the delay for each subsequent retry.
	// Values below 1 are treated as 2.
	Multiplier float64
}

// Attempts returns the effective attempt budget.
func (p *RetryPolicy) Attempts() int {
	if p == nil || p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Step is a named unit of work in a workflow graph.
//
// Name and Run are required; everything else is optional. DependsOn
// expresses ordering constraints; Args expresses data dependencies
// (which imply ordering). A dependency may exist without any argument
// binding, to force ordering alone.
type Step struct {
	// Name uniquely identifies the step within one workflow.
	Name string

	// Description is free-form documentation, surfaced in telemetry.
	Description string

	// DependsOn lists step names that must complete before this one
	// starts. Every name must be declared in the same graph.
	DependsOn []string

	// Args maps run parameter names to bindings against workflow
	// inputs or earlier steps' results.
	Args map[string]Binding

	// Run executes the step.
	Run RunFunc

	// Compensate undoes the step during saga rollback. Nil means the
	// step needs no undo; the unwind continues past it.
	Compensate CompensateFunc

	// Timeout bounds one run attempt. Zero means no step deadline.
	Timeout time.Duration

	// Retry configures transient-failure retries. Nil means fail
	// terminally on first error.
	Retry *RetryPolicy
}

// Validate checks the step's required fields.
func (s *Step) Validate() error {
	if s.Name == "" {
		return reactor.ErrEmptyStepName
	}
	if s.Run == nil {
		return fmt.Errorf("%w: %s", reactor.ErrMissingRun, s.Name)
	}
	return nil
}
