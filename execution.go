package reactor

import "sync"

// ExecutionState describes where an execution is in its lifecycle.
type ExecutionState int

const (
	// ExecutionPending means Execute has not started dispatching steps.
	ExecutionPending ExecutionState = iota

	// ExecutionExecuting means steps are being dispatched.
	ExecutionExecuting

	// ExecutionCompleted means every step reached a successful outcome.
	// Terminal.
	ExecutionCompleted

	// ExecutionFailed means the execution aborted or timed out and
	// rollback was attempted. Terminal.
	ExecutionFailed
)

// String returns a lowercase name for the state.
func (s ExecutionState) String() string {
	switch s {
	case ExecutionPending:
		return "pending"
	case ExecutionExecuting:
		return "executing"
	case ExecutionCompleted:
		return "completed"
	case ExecutionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Execution is one run of a built Reactor against concrete inputs.
// Execute returns it in a terminal state; all accessors are safe for
// concurrent use and remain valid after Execute returns.
type Execution struct {
	id         string
	returnStep string
	ctx        *Context
	inputs     map[string]any

	mu      sync.RWMutex
	state   ExecutionState
	results map[string]*StepResult
	order   []string // names of successfully completed steps, in completion order
	errs    []error
}

func newExecution(returnStep string, steps []*Step, ctx *Context, inputs map[string]any) *Execution {
	results := make(map[string]*StepResult, len(steps))
	for _, step := range steps {
		results[step.name] = &StepResult{Step: step.name, Status: StatusPending}
	}
	e := &Execution{
		id:         ctx.ExecutionID(),
		returnStep: returnStep,
		ctx:        ctx,
		inputs:     inputs,
		state:      ExecutionPending,
		results:    results,
	}
	ctx.exec = e
	return e
}

// ID returns the execution's unique identifier.
func (e *Execution) ID() string { return e.id }

// State returns the execution's current lifecycle state.
func (e *Execution) State() ExecutionState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Context returns the execution's Context, carrying correlation
// identifiers and the compensation and undo logs.
func (e *Execution) Context() *Context { return e.ctx }

// Result returns the named step's result, or false if the step does
// not exist in the reactor.
func (e *Execution) Result(step string) (*StepResult, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	res, ok := e.results[step]
	return res, ok
}

// Results returns a copy of the per-step outcome map.
func (e *Execution) Results() map[string]*StepResult {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]*StepResult, len(e.results))
	for name, res := range e.results {
		out[name] = res
	}
	return out
}

// ReturnValue returns the output of the reactor's declared return
// step. The second value is false when no return step was declared or
// it never reached a successful outcome.
func (e *Execution) ReturnValue() (any, bool) {
	if e.returnStep == "" {
		return nil, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	res, ok := e.results[e.returnStep]
	if !ok || !res.IsSuccess() {
		return nil, false
	}
	return res.Data, true
}

// Errors returns a copy of the failures captured during the execution,
// in the order they were observed: every failed attempt, the abort
// that failed the execution, and any rollback failures.
func (e *Execution) Errors() []error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]error, len(e.errs))
	copy(out, e.errs)
	return out
}

// CompletionOrder returns the names of successfully completed steps in
// the order they finished. Rollback walks this list in reverse.
func (e *Execution) CompletionOrder() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

func (e *Execution) setState(state ExecutionState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = state
}

// storeResult replaces the step's result. Successful results are also
// recorded in the completion order.
func (e *Execution) storeResult(res *StepResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results[res.Step] = res
	if res.IsSuccess() {
		e.order = append(e.order, res.Step)
	}
}

func (e *Execution) appendError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, err)
}
