package reactor

import "time"

// RunState represents the lifecycle state of a workflow run.
type RunState string

const (
	// RunStateRunning means the workflow is currently executing.
	RunStateRunning RunState = "running"
	// RunStateCompleted means the workflow finished successfully.
	RunStateCompleted RunState = "completed"
	// RunStateFailed means the workflow failed and was compensated.
	RunStateFailed RunState = "failed"
	// RunStateTimedOut means the run-level deadline elapsed before completion.
	RunStateTimedOut RunState = "timed_out"
)

// Terminal reports whether the state is a final one.
func (s RunState) Terminal() bool {
	switch s {
	case RunStateCompleted, RunStateFailed, RunStateTimedOut:
		return true
	default:
		return false
	}
}

// StepResult is the outcome of one step. Once recorded into a Context
// it is immutable; later steps and middleware read it by reference.
type StepResult struct {
	// Step is the name of the step that produced this result.
	Step string

	// Success is true when the step's run returned without error.
	Success bool

	// Data is the value returned by a successful run.
	Data any

	// Err is the terminal error of a failed run (after retries).
	Err error

	// Attempts is how many times the run was invoked.
	Attempts int

	// Elapsed is the wall time of the final attempt.
	Elapsed time.Duration

	// Sequence is the completion order within the run, assigned by the
	// Context when the result is recorded. Compensation unwinds in
	// descending sequence.
	Sequence int
}
