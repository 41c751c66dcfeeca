package reactor

import "time"

// StepStatus describes where a step is in its lifecycle.
type StepStatus string

const (
	// StatusPending means the step has not been dispatched. Steps left
	// pending after an execution failed were never started.
	StatusPending StepStatus = "pending"

	// StatusRunning means an attempt of the step is in flight.
	StatusRunning StepStatus = "running"

	// StatusSucceeded means run returned a value, possibly after
	// retries.
	StatusSucceeded StepStatus = "succeeded"

	// StatusSkipped means a skip verdict marked the step successful
	// with a nil value.
	StatusSkipped StepStatus = "skipped"

	// StatusSubstituted means a continue verdict marked the step
	// successful with a substitute value.
	StatusSubstituted StepStatus = "substituted"

	// StatusAborted means the step failed terminally: compensation
	// aborted, retries were exhausted, or no compensation was defined.
	StatusAborted StepStatus = "aborted"
)

// StepResult is the terminal (or in-progress) outcome of one step
// within one execution.
type StepResult struct {
	// Step is the step's name.
	Step string

	// Status is the step's lifecycle state.
	Status StepStatus

	// Data is the step's output: the run return value when succeeded,
	// or the verdict payload when skipped or substituted.
	Data any

	// Err is the failure that aborted the step. Nil unless Status is
	// StatusAborted.
	Err error

	// Attempts counts how many times run was invoked.
	Attempts int

	// StartedAt is when the first attempt was dispatched.
	StartedAt time.Time

	// Duration is the wall time from dispatch to the terminal outcome.
	Duration time.Duration
}

// IsSuccess reports whether dependents of this step may proceed:
// the step succeeded, was skipped, or was substituted.
func (r *StepResult) IsSuccess() bool {
	switch r.Status {
	case StatusSucceeded, StatusSkipped, StatusSubstituted:
		return true
	default:
		return false
	}
}

// Terminal reports whether the step reached a final state.
func (r *StepResult) Terminal() bool {
	return r.IsSuccess() || r.Status == StatusAborted
}
