package engine

import (
	"context"
	"log/slog"

	"github.com/seanchatmangpt/reactor"
	"github.com/seanchatmangpt/reactor/step"
)

// compensate unwinds every successfully completed step in reverse
// completion order, interpreting each compensation's outcome. It
// returns true when a retry outcome re-ran the originally failed step
// to success and forward execution should resume.
//
// The first failure of the batch is the trigger; its error is what
// each compensation receives. Steps without a compensation are passed
// over as an implicit continue.
func (e *Engine) compensate(ctx context.Context, rc *reactor.Context, failures []*reactor.StepResult, inputs map[string]any, runSpanID string, res *Result) bool {
	trigger := failures[0]
	outstanding := len(failures)

	e.logger.Info("compensating run",
		slog.String("run_id", rc.RunID().String()),
		slog.String("trigger", trigger.Step),
		slog.String("error", trigger.Err.Error()),
	)

	completed := rc.Completed()
	for i := len(completed) - 1; i >= 0; i-- {
		sr := completed[i]
		s, ok := e.plan.Step(sr.Step)
		if !ok || s.Compensate == nil {
			continue
		}

		args, argErr := e.resolveArgs(s, inputs, rc)
		outcome := step.Abort
		if argErr == nil {
			outcome = e.invokeCompensation(ctx, s, trigger.Err, args, rc)
		} else {
			e.logger.Error("compensation argument resolution failed",
				slog.String("run_id", rc.RunID().String()),
				slog.String("step", s.Name),
				slog.String("error", argErr.Error()),
			)
		}

		res.Errors = append(res.Errors, RunError{
			Step:    s.Name,
			Kind:    KindCompensation,
			Outcome: outcome,
			Err:     trigger.Err,
		})
		e.logger.Info("step compensated",
			slog.String("run_id", rc.RunID().String()),
			slog.String("step", s.Name),
			slog.String("outcome", string(outcome)),
		)

		switch outcome {
		case step.Continue:

		case step.Retry:
			ts, tok := e.plan.Step(trigger.Step)
			if !tok {
				return false
			}
			targs, terr := e.resolveArgs(ts, inputs, rc)
			if terr != nil {
				return false
			}
			retried := e.executeStep(ctx, rc, ts, targs, runSpanID, true)
			if retried.Success {
				outstanding--
				if outstanding == 0 {
					return true
				}
				// Other steps in the batch also failed terminally;
				// the unwind keeps going for them.
				trigger = failures[len(failures)-outstanding]
				continue
			}
			// The re-attempt failed again: record it and resume the
			// unwind where it left off, without re-invoking the
			// compensation that asked for the retry.
			res.Errors = append(res.Errors, RunError{Step: retried.Step, Kind: kindOf(retried.Err), Err: retried.Err})
			trigger = retried

		default:
			// Abort stops the unwind immediately.
			return false
		}
	}
	return false
}

// invokeCompensation calls a step's compensation with panic recovery.
// A panic or an unrecognized outcome is treated as abort.
func (e *Engine) invokeCompensation(ctx context.Context, s *step.Step, stepErr error, args step.Args, rc *reactor.Context) (out step.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("compensation panicked",
				slog.String("step", s.Name),
				slog.Any("panic", r),
			)
			out = step.Abort
		}
	}()

	out = s.Compensate(ctx, stepErr, args, rc)
	switch out {
	case step.Abort, step.Continue, step.Retry:
		return out
	default:
		e.logger.Error("unknown compensation outcome",
			slog.String("step", s.Name),
			slog.String("outcome", string(out)),
		)
		return step.Abort
	}
}
