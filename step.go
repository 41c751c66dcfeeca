package reactor

import (
	"context"
	"time"
)

// RunFunc performs a step's work. It receives the deadline-aware
// context, the execution's Context for correlation and sibling result
// access, and the step's resolved arguments. Return the step's output
// value, or an error to enter the compensation path.
type RunFunc func(ctx context.Context, ec *Context, args Args) (any, error)

// CompensateFunc decides how to react to a failed attempt. It receives
// the failure (a *StepError wrapping the run error) and the same
// resolved arguments the attempt saw, and returns a Verdict.
type CompensateFunc func(ctx context.Context, ec *Context, failure error, args Args) Verdict

// UndoFunc reverses a successfully completed step during rollback. It
// receives the value the step's run returned. Errors are recorded in
// the undo log and do not stop the rollback sweep.
type UndoFunc func(ctx context.Context, ec *Context, result any, args Args) error

// Step is an immutable unit of work within a reactor: a name, argument
// bindings, the run function, and optional compensation, undo, retry
// and timeout policy. Steps are created through the Builder and never
// mutated afterwards.
type Step struct {
	name        string
	description string
	declIndex   int // position in builder declaration order
	bindings    map[string]ArgRef
	run         RunFunc
	compensate  CompensateFunc
	undo        UndoFunc
	maxRetries  int
	timeout     time.Duration
}

// Name returns the step's unique name.
func (s *Step) Name() string { return s.name }

// Description returns the optional human-readable description.
func (s *Step) Description() string { return s.description }

// MaxRetries returns how many times a retry verdict may re-invoke run
// after the first attempt.
func (s *Step) MaxRetries() int { return s.maxRetries }

// Timeout returns the per-attempt timeout, or zero if unset.
func (s *Step) Timeout() time.Duration { return s.timeout }

// Bindings returns a copy of the step's argument bindings.
func (s *Step) Bindings() map[string]ArgRef {
	out := make(map[string]ArgRef, len(s.bindings))
	for param, ref := range s.bindings {
		out[param] = ref
	}
	return out
}

// StepOption configures a step at declaration time.
type StepOption func(*Step)

// Bind declares that the parameter receives the value of ref when the
// step runs. Binding the same parameter twice keeps the last ref.
func Bind(param string, ref ArgRef) StepOption {
	return func(s *Step) {
		s.bindings[param] = ref
	}
}

// WithDescription attaches a human-readable description to the step.
func WithDescription(description string) StepOption {
	return func(s *Step) {
		s.description = description
	}
}

// WithCompensate installs the step's compensation function. Without
// one, any failure of the step aborts the execution.
func WithCompensate(fn CompensateFunc) StepOption {
	return func(s *Step) {
		s.compensate = fn
	}
}

// WithUndo installs the step's rollback function, invoked when the
// execution fails after this step completed successfully.
func WithUndo(fn UndoFunc) StepOption {
	return func(s *Step) {
		s.undo = fn
	}
}

// WithMaxRetries sets how many retry verdicts the step honours after
// the first failed attempt. The default is zero: the first retry
// verdict already exhausts the budget.
func WithMaxRetries(n int) StepOption {
	return func(s *Step) {
		s.maxRetries = n
	}
}

// WithStepTimeout bounds each attempt of the step's run function. A
// timed-out attempt fails with ErrStepTimeout and enters the normal
// compensation path; the attempt's context is cancelled but in-flight
// work is not forcibly stopped.
func WithStepTimeout(d time.Duration) StepOption {
	return func(s *Step) {
		s.timeout = d
	}
}
