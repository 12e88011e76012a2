package reactor

import "errors"

var (
	// Build errors.
	ErrDuplicateStep = errors.New("reactor: duplicate step name")
	ErrUnknownStep   = errors.New("reactor: reference to undeclared step")
	ErrUnknownInput  = errors.New("reactor: reference to undeclared input")
	ErrCycle         = errors.New("reactor: dependency cycle")
	ErrNoReturnStep  = errors.New("reactor: return step not declared")
	ErrMissingRun    = errors.New("reactor: step has no run function")
	ErrEmptyStepName = errors.New("reactor: step name must not be empty")

	// Execution errors.
	ErrMissingInput        = errors.New("reactor: required input missing")
	ErrResultNotFound      = errors.New("reactor: step result not recorded")
	ErrResultRecorded      = errors.New("reactor: step result already recorded")
	ErrStepTimeout         = errors.New("reactor: step timed out")
	ErrRunTimeout          = errors.New("reactor: run timed out")
	ErrStepPanic           = errors.New("reactor: step panicked")
	ErrCompensationAborted = errors.New("reactor: compensation aborted")
)
