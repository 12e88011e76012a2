// Package graph assembles steps into a validated dependency graph and
// computes an execution order as batches of mutually independent steps.
//
// A Builder accumulates declared inputs and steps; Build validates the
// whole graph (duplicate names, dangling references, cycles) and
// produces an immutable Plan. Validation failures are reported together
// before any step ever executes.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/seanchatmangpt/reactor"
	"github.com/seanchatmangpt/reactor/step"
)

// Input declares a workflow input parameter.
type Input struct {
	Name     string
	Required bool
}

// Builder accumulates a workflow definition. It is not safe for
// concurrent use; build the graph once and share the Plan.
type Builder struct {
	inputs  []Input
	steps   []*step.Step
	retName string
	retSet  bool
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Input declares a workflow input. Argument bindings of kind
// input:<name> must reference a declared input.
func (b *Builder) Input(name string, required bool) *Builder {
	b.inputs = append(b.inputs, Input{Name: name, Required: required})
	return b
}

// Add registers a step. Validation is deferred to Build.
func (b *Builder) Add(s *step.Step) *Builder {
	b.steps = append(b.steps, s)
	return b
}

// Return designates the step whose result becomes the workflow output.
func (b *Builder) Return(name string) *Builder {
	b.retName = name
	b.retSet = true
	return b
}

// Build validates the graph and computes the batch layering.
// All validation errors are joined and returned together; a non-nil
// error means no Plan and nothing may execute.
func (b *Builder) Build() (*Plan, error) {
	var errs []error

	inputs := make(map[string]Input, len(b.inputs))
	for _, in := range b.inputs {
		inputs[in.Name] = in
	}

	steps := make(map[string]*step.Step, len(b.steps))
	for _, s := range b.steps {
		if err := s.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, ok := steps[s.Name]; ok {
			errs = append(errs, fmt.Errorf("%w: %s", reactor.ErrDuplicateStep, s.Name))
			continue
		}
		steps[s.Name] = s
	}

	// Reference checks run over the deduplicated set so one bad step
	// yields one error, not a cascade.
	for _, s := range b.steps {
		if steps[s.Name] != s {
			continue
		}
		for _, dep := range s.DependsOn {
			if _, ok := steps[dep]; !ok {
				errs = append(errs, fmt.Errorf("%w: step %q depends on %q", reactor.ErrUnknownStep, s.Name, dep))
			}
		}
		for param, binding := range s.Args {
			switch binding.Kind {
			case step.BindInput:
				if _, ok := inputs[binding.Name]; !ok {
					errs = append(errs, fmt.Errorf("%w: step %q arg %q binds %s", reactor.ErrUnknownInput, s.Name, param, binding))
				}
			case step.BindStep:
				if _, ok := steps[binding.Name]; !ok {
					errs = append(errs, fmt.Errorf("%w: step %q arg %q binds %s", reactor.ErrUnknownStep, s.Name, param, binding))
				}
			default:
				errs = append(errs, fmt.Errorf("reactor: step %q arg %q has unknown binding kind %q", s.Name, param, binding.Kind))
			}
		}
	}

	if !b.retSet {
		errs = append(errs, reactor.ErrNoReturnStep)
	} else if _, ok := steps[b.retName]; !ok {
		errs = append(errs, fmt.Errorf("%w: return step %q", reactor.ErrUnknownStep, b.retName))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	batches, batchOf, err := layer(b.steps, steps)
	if err != nil {
		return nil, err
	}

	return &Plan{
		inputs:  inputs,
		steps:   steps,
		batches: batches,
		batchOf: batchOf,
		retName: b.retName,
	}, nil
}

// layer computes batch layering via Kahn's algorithm: batch i holds
// every step whose effective dependencies all lie in batches 0..i-1.
// A data binding (step:<x>) counts as a dependency even without an
// explicit DependsOn edge, so a result read always lands in a strictly
// later batch than its writer. Steps left unplaced after the layering
// stalls are reported as a cycle.
func layer(ordered []*step.Step, steps map[string]*step.Step) ([][]*step.Step, map[string]int, error) {
	deps := make(map[string]map[string]bool, len(steps))
	for name, s := range steps {
		set := make(map[string]bool, len(s.DependsOn)+len(s.Args))
		for _, d := range s.DependsOn {
			set[d] = true
		}
		for _, binding := range s.Args {
			if binding.Kind == step.BindStep {
				set[binding.Name] = true
			}
		}
		deps[name] = set
	}

	placed := make(map[string]int, len(steps))
	var batches [][]*step.Step

	for len(placed) < len(steps) {
		var batch []*step.Step
		for _, s := range ordered {
			if _, done := placed[s.Name]; done {
				continue
			}
			ready := true
			for dep := range deps[s.Name] {
				if _, done := placed[dep]; !done {
					ready = false
					break
				}
			}
			if ready {
				batch = append(batch, s)
			}
		}

		if len(batch) == 0 {
			// Stalled with steps unplaced: every remaining step waits
			// on another remaining step.
			var stuck []string
			for name := range steps {
				if _, done := placed[name]; !done {
					stuck = append(stuck, name)
				}
			}
			sort.Strings(stuck)
			return nil, nil, fmt.Errorf("%w: involving steps %v", reactor.ErrCycle, stuck)
		}

		idx := len(batches)
		for _, s := range batch {
			placed[s.Name] = idx
		}
		batches = append(batches, batch)
	}

	return batches, placed, nil
}
