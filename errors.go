package reactor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStepTimeout marks a step attempt that exceeded its timeout.
	// It is wrapped inside the *StepError for the attempt.
	ErrStepTimeout = errors.New("step timed out")

	// ErrStepPanic marks a step callback that panicked. The engine
	// recovers the panic and treats it as an ordinary failure.
	ErrStepPanic = errors.New("step panicked")

	// ErrExecutionTimeout marks an execution that exceeded the
	// reactor-level timeout and was forced to failed.
	ErrExecutionTimeout = errors.New("execution timed out")

	// ErrMissingInput is returned when a required input without a
	// default was not supplied to Execute.
	ErrMissingInput = errors.New("missing required input")

	// ErrUnknownInput is returned when Execute receives an input name
	// the reactor never declared.
	ErrUnknownInput = errors.New("unknown input")
)

// BuildError describes why Build rejected a reactor definition.
// Build-time validation covers unknown references, dependency cycles,
// duplicate names and malformed declarations; none of these surface at
// execution time.
type BuildError struct {
	// Step is the offending step name, when one is identifiable.
	Step string

	// Detail is a human-readable reason.
	Detail string

	// Cycle lists the members of a dependency cycle in edge order,
	// ending where it began. Empty for non-cycle errors.
	Cycle []string
}

func (e *BuildError) Error() string {
	var b strings.Builder
	b.WriteString("build: ")
	if e.Step != "" {
		fmt.Fprintf(&b, "step %q: ", e.Step)
	}
	b.WriteString(e.Detail)
	if len(e.Cycle) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Cycle, " -> "))
	}
	return b.String()
}

// StepError records one failed attempt of a step's run function.
type StepError struct {
	// Step is the step's name.
	Step string

	// Attempt is the 1-based attempt number that failed.
	Attempt int

	// Err is the error the attempt produced. Timeouts wrap
	// ErrStepTimeout, recovered panics wrap ErrStepPanic.
	Err error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q attempt %d: %v", e.Step, e.Attempt, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// AbortError is the failure that moved an execution to failed: the
// step's compensation chose abort, its retry budget ran out, or it had
// no compensation at all.
type AbortError struct {
	// Step is the aborting step's name.
	Step string

	// Err is the last attempt's *StepError.
	Err error

	// Exhausted is true when a retry verdict found no retries left.
	Exhausted bool
}

func (e *AbortError) Error() string {
	if e.Exhausted {
		return fmt.Sprintf("step %q aborted, retries exhausted: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("step %q aborted: %v", e.Step, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }

// RollbackError records a failed undo call. Rollback failures are
// appended to the execution's errors and to the undo log but never
// stop the rollback sweep.
type RollbackError struct {
	// Step is the step whose undo failed.
	Step string

	// Err is the error (or recovered panic) the undo produced.
	Err error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("rollback of step %q: %v", e.Step, e.Err)
}

func (e *RollbackError) Unwrap() error { return e.Err }
