package reactor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// sagaCoordinator unwinds a failed execution: every step that
// succeeded has its undo function invoked, in reverse completion
// order. Undo failures are recorded and reported but never stop the
// unwind.
type sagaCoordinator struct {
	r      *Reactor
	exec   *Execution
	logger *slog.Logger
}

func (s *sagaCoordinator) rollback(ctx context.Context) {
	order := s.exec.CompletionOrder()
	if len(order) == 0 {
		return
	}
	s.logger.Info("rolling back", "steps", len(order))

	ec := s.exec.ctx
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		res, ok := s.exec.Result(name)
		if !ok || res.Status != StatusSucceeded {
			// Skipped and substituted steps completed without doing
			// the work their undo would reverse.
			continue
		}
		step := s.r.stepIndex[name]
		if step.undo == nil {
			continue
		}

		args, err := resolveArgs(step, s.exec)
		if err != nil {
			err = fmt.Errorf("resolving undo arguments: %w", err)
		} else {
			err = s.invokeUndo(ctx, step, res.Data, args)
		}

		ec.recordUndo(name, err)
		s.r.observer.StepRolledBack(ec, name, err)
		if err != nil {
			s.exec.appendError(&RollbackError{Step: name, Err: err})
			s.logger.Error("rollback failed", "step", name, "error", err)
			continue
		}
		s.logger.Info("rolled back", "step", name)
	}
}

func (s *sagaCoordinator) invokeUndo(ctx context.Context, step *Step, result any, args Args) (err error) {
	defer func() {
		if v := recover(); v != nil {
			s.logger.Error("undo panicked",
				"step", step.name,
				"panic", v,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", ErrStepPanic, v)
		}
	}()
	return step.undo(ctx, s.exec.ctx, result, args)
}
