package reactor

import "time"

// Observer receives lifecycle notifications from the engine. The
// engine performs no I/O of its own; an Observer is the seam through
// which embedding applications export metrics or traces.
//
// Methods are called synchronously from scheduling goroutines, so
// implementations must be safe for concurrent use and should return
// quickly.
type Observer interface {
	// ExecutionStarted fires after the Context is created and before
	// any step is dispatched.
	ExecutionStarted(ec *Context)

	// ExecutionFinished fires once the execution reached a terminal
	// state, after any rollback completed.
	ExecutionFinished(ec *Context, state ExecutionState, elapsed time.Duration)

	// StepStarted fires before each attempt of a step's run function.
	StepStarted(ec *Context, step string, attempt int)

	// StepFinished fires when a step reaches a terminal outcome.
	StepFinished(ec *Context, result *StepResult)

	// StepCompensated fires after a compensation function returned its
	// verdict for a failed attempt.
	StepCompensated(ec *Context, step string, verdict Verdict, failure error)

	// StepRolledBack fires after each undo invocation during rollback.
	// undoErr is nil when the undo succeeded.
	StepRolledBack(ec *Context, step string, undoErr error)
}

// nopObserver is the default Observer.
type nopObserver struct{}

func (nopObserver) ExecutionStarted(*Context)                                 {}
func (nopObserver) ExecutionFinished(*Context, ExecutionState, time.Duration) {}
func (nopObserver) StepStarted(*Context, string, int)                         {}
func (nopObserver) StepFinished(*Context, *StepResult)                        {}
func (nopObserver) StepCompensated(*Context, string, Verdict, error)          {}
func (nopObserver) StepRolledBack(*Context, string, error)                    {}
