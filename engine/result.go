package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/seanchatmangpt/reactor"
	"github.com/seanchatmangpt/reactor/step"
)

// ErrorKind classifies a RunError.
type ErrorKind string

const (
	// KindStep is a terminal step failure (retries exhausted).
	KindStep ErrorKind = "step"
	// KindTimeout is a step- or run-level deadline failure.
	KindTimeout ErrorKind = "timeout"
	// KindCompensation records one compensation invocation and its
	// outcome during the unwind.
	KindCompensation ErrorKind = "compensation"
)

// RunError is one entry in a run's error trail. Entries appear in the
// order encountered: terminal step failures first, then one record per
// compensation invocation.
type RunError struct {
	// Step is the step the entry concerns.
	Step string

	// Kind classifies the entry.
	Kind ErrorKind

	// Outcome is the compensation's verdict; set only for
	// KindCompensation entries.
	Outcome step.Outcome

	// Err is the underlying error. For compensation entries it is the
	// error that triggered the unwind.
	Err error
}

// Result is the outcome of one workflow run.
type Result struct {
	// State is the run's final state.
	State reactor.RunState

	// ReturnValue is the designated return step's data; set only when
	// State is completed.
	ReturnValue any

	// Errors is the ordered error trail of a failed or timed-out run.
	Errors []RunError

	// Duration is the wall time of the whole run.
	Duration time.Duration

	// Context is the run's execution context, retaining every recorded
	// step result for inspection.
	Context *reactor.Context
}

// Err aggregates the run's step and timeout errors into one error,
// nil when the run completed. Compensation records are outcomes, not
// causes, so they are excluded except for an abort, which surfaces as
// reactor.ErrCompensationAborted.
func (r *Result) Err() error {
	var errs []error
	for _, re := range r.Errors {
		switch re.Kind {
		case KindStep, KindTimeout:
			errs = append(errs, fmt.Errorf("%s %s: %w", re.Kind, re.Step, re.Err))
		case KindCompensation:
			if re.Outcome == step.Abort {
				errs = append(errs, fmt.Errorf("%w: %s", reactor.ErrCompensationAborted, re.Step))
			}
		}
	}
	return errors.Join(errs...)
}
