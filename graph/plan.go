package graph

import "github.com/seanchatmangpt/reactor/step"

// Plan is a validated, immutable workflow definition: declared inputs,
// the step set, the batch layering, and the designated return step.
// A Plan may be executed many times; each execution gets its own
// execution context.
type Plan struct {
	inputs  map[string]Input
	steps   map[string]*step.Step
	batches [][]*step.Step
	batchOf map[string]int
	retName string
}

// Batches returns the execution order: batch i contains steps whose
// dependencies all lie in batches 0..i-1. Callers must not mutate the
// returned slices.
func (p *Plan) Batches() [][]*step.Step { return p.batches }

// Step returns the named step, if declared.
func (p *Plan) Step(name string) (*step.Step, bool) {
	s, ok := p.steps[name]
	return s, ok
}

// Inputs returns the declared input set keyed by name.
func (p *Plan) Inputs() map[string]Input { return p.inputs }

// ReturnStep returns the name of the step whose result becomes the
// workflow output.
func (p *Plan) ReturnStep() string { return p.retName }

// BatchIndex returns the batch a step was layered into.
func (p *Plan) BatchIndex(name string) (int, bool) {
	i, ok := p.batchOf[name]
	return i, ok
}

// Len returns the number of declared steps.
func (p *Plan) Len() int { return len(p.steps) }
