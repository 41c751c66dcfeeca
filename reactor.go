package reactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nomis52/reactor/dag"
)

// Reactor is an immutable, validated workflow definition. It is safe
// for concurrent use: each call to Execute runs an independent
// execution with its own state.
type Reactor struct {
	name       string
	steps      []*Step
	stepIndex  map[string]*Step
	inputs     []inputDef
	returnStep string
	graph      *dag.Graph[*Step]

	maxConcurrency int
	timeout        time.Duration
	logger         *slog.Logger
	clock          func() time.Time
	ids            IDGenerator
	observer       Observer
}

// Name returns the workflow name given at build time.
func (r *Reactor) Name() string {
	return r.name
}

// StepNames returns the step names in declaration order.
func (r *Reactor) StepNames() []string {
	names := make([]string, len(r.steps))
	for i, step := range r.steps {
		names[i] = step.name
	}
	return names
}

// Execute runs the workflow with the given inputs. It always returns a
// complete Execution describing the outcome; it never panics, and the
// returned execution's Errors hold every failure encountered. The
// context cancels the execution as a whole: in-flight steps are given
// a cancelled context and no new steps are dispatched.
func (r *Reactor) Execute(ctx context.Context, inputs map[string]any) *Execution {
	ec := newContext(r.ids, r.clock)
	merged, inputErr := r.mergeInputs(inputs)
	exec := newExecution(r.returnStep, r.steps, ec, merged)

	logger := r.logger.With(
		"execution_id", exec.id,
		"trace_id", ec.TraceID(),
	)

	if inputErr != nil {
		exec.appendError(inputErr)
		exec.setState(ExecutionFailed)
		logger.Error("input validation failed", "error", inputErr)
		return exec
	}

	exec.setState(ExecutionExecuting)
	r.observer.ExecutionStarted(ec)
	logger.Info("execution started",
		"steps", len(r.steps),
		"max_concurrency", r.maxConcurrency,
	)

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sched := &scheduler{r: r, exec: exec, logger: logger}
	completed := sched.run(runCtx)

	if err := runCtx.Err(); err != nil {
		completed = false
		if r.timeout > 0 && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			exec.appendError(fmt.Errorf("%w after %s", ErrExecutionTimeout, r.timeout))
		} else {
			exec.appendError(fmt.Errorf("execution cancelled: %w", err))
		}
	}

	if completed {
		exec.setState(ExecutionCompleted)
	} else {
		exec.setState(ExecutionFailed)
		saga := &sagaCoordinator{r: r, exec: exec, logger: logger}
		saga.rollback(context.WithoutCancel(runCtx))
	}

	elapsed := r.clock().Sub(ec.StartTime())
	r.observer.ExecutionFinished(ec, exec.State(), elapsed)
	logger.Info("execution finished",
		"state", exec.State().String(),
		"elapsed", elapsed,
	)
	return exec
}

// mergeInputs combines caller-provided inputs with declared defaults,
// rejecting missing required inputs and names the workflow never
// declared.
func (r *Reactor) mergeInputs(provided map[string]any) (map[string]any, error) {
	merged := make(map[string]any, len(r.inputs))
	for _, in := range r.inputs {
		if v, ok := provided[in.name]; ok {
			merged[in.name] = v
			continue
		}
		if in.hasDefault {
			merged[in.name] = in.def
			continue
		}
		return nil, fmt.Errorf("%w: %q", ErrMissingInput, in.name)
	}
	for name := range provided {
		if _, ok := merged[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownInput, name)
		}
	}
	return merged, nil
}
