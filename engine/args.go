package engine

import (
	"fmt"

	"github.com/seanchatmangpt/reactor"
	"github.com/seanchatmangpt/reactor/step"
)

// resolveArgs materializes a step's argument bindings from the run
// inputs and prior step results. The graph builder guarantees that
// every step binding refers to a step in an earlier batch, so a
// missing result here is asserted, not re-validated.
func (e *Engine) resolveArgs(s *step.Step, inputs map[string]any, rc *reactor.Context) (step.Args, error) {
	if len(s.Args) == 0 {
		return nil, nil
	}
	args := make(step.Args, len(s.Args))
	for param, b := range s.Args {
		switch b.Kind {
		case step.BindInput:
			v, ok := inputs[b.Name]
			if !ok {
				if in, declared := e.plan.Inputs()[b.Name]; declared && !in.Required {
					args[param] = nil
					continue
				}
				return nil, fmt.Errorf("%w: %s (argument %q of step %s)",
					reactor.ErrMissingInput, b.Name, param, s.Name)
			}
			args[param] = v
		case step.BindStep:
			res, ok := rc.Result(b.Name)
			if !ok || !res.Success {
				return nil, fmt.Errorf("%w: %s (argument %q of step %s)",
					reactor.ErrResultNotFound, b.Name, param, s.Name)
			}
			args[param] = res.Data
		default:
			return nil, fmt.Errorf("reactor: unknown binding kind %q (argument %q of step %s)",
				b.Kind, param, s.Name)
		}
	}
	return args, nil
}
