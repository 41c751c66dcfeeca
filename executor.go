package reactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// stepOutcome is what a worker goroutine reports back to the
// scheduler: the step's terminal result, plus the abort that failed
// the execution when the outcome was not a success.
type stepOutcome struct {
	step   *Step
	result *StepResult
	abort  *AbortError
}

// executor drives a single step to a terminal outcome: argument
// resolution, the attempt loop with its per-attempt timeout, and the
// compensation verdict machinery.
type executor struct {
	r      *Reactor
	exec   *Execution
	logger *slog.Logger
}

func (x *executor) execute(ctx context.Context, step *Step) stepOutcome {
	ec := x.exec.ctx
	logger := x.logger.With("step", step.name)
	started := x.r.clock()

	args, err := resolveArgs(step, x.exec)
	if err != nil {
		// The scheduler only dispatches steps whose references are
		// satisfied, so this indicates a broken invariant. Fail the
		// step without offering compensation.
		stepErr := &StepError{Step: step.name, Attempt: 0, Err: err}
		x.exec.appendError(stepErr)
		logger.Error("argument resolution failed", "error", err)
		return x.abortOutcome(step, stepErr, false, started, 0)
	}

	for attempt := 1; ; attempt++ {
		x.r.observer.StepStarted(ec, step.name, attempt)
		logger.Debug("attempt started", "attempt", attempt)

		data, runErr := x.invokeRun(ctx, step, args)
		if runErr == nil {
			logger.Info("step succeeded", "attempt", attempt)
			return stepOutcome{step: step, result: &StepResult{
				Step:      step.name,
				Status:    StatusSucceeded,
				Data:      data,
				Attempts:  attempt,
				StartedAt: started,
				Duration:  x.r.clock().Sub(started),
			}}
		}

		stepErr := &StepError{Step: step.name, Attempt: attempt, Err: runErr}
		x.exec.appendError(stepErr)
		logger.Warn("attempt failed", "attempt", attempt, "error", runErr)

		if ctx.Err() != nil {
			// The execution is being torn down; compensation is not
			// offered for failures caused by the teardown itself.
			return x.abortOutcome(step, stepErr, false, started, attempt)
		}

		if step.compensate == nil {
			logger.Error("step has no compensation, aborting execution", "error", runErr)
			return x.abortOutcome(step, stepErr, false, started, attempt)
		}

		verdict := x.invokeCompensate(ctx, step, stepErr, args)
		ec.recordCompensation(step.name, attempt, stepErr, verdict)
		x.r.observer.StepCompensated(ec, step.name, verdict, stepErr)
		logger.Info("compensation verdict", "attempt", attempt, "verdict", verdict.String())

		switch verdict.Kind() {
		case VerdictRetry:
			if attempt > step.maxRetries {
				logger.Error("retries exhausted",
					"attempts", attempt,
					"max_retries", step.maxRetries,
				)
				return x.abortOutcome(step, stepErr, true, started, attempt)
			}
			// Loop re-invokes run with the identical resolved args.

		case VerdictSkip:
			return stepOutcome{step: step, result: &StepResult{
				Step:      step.name,
				Status:    StatusSkipped,
				Data:      verdict.Payload(),
				Attempts:  attempt,
				StartedAt: started,
				Duration:  x.r.clock().Sub(started),
			}}

		case VerdictContinue:
			return stepOutcome{step: step, result: &StepResult{
				Step:      step.name,
				Status:    StatusSubstituted,
				Data:      verdict.Payload(),
				Attempts:  attempt,
				StartedAt: started,
				Duration:  x.r.clock().Sub(started),
			}}

		default: // VerdictAbort
			return x.abortOutcome(step, stepErr, false, started, attempt)
		}
	}
}

func (x *executor) abortOutcome(step *Step, cause error, exhausted bool, started time.Time, attempts int) stepOutcome {
	abort := &AbortError{Step: step.name, Err: cause, Exhausted: exhausted}
	return stepOutcome{
		step:  step,
		abort: abort,
		result: &StepResult{
			Step:      step.name,
			Status:    StatusAborted,
			Err:       abort,
			Attempts:  attempts,
			StartedAt: started,
			Duration:  x.r.clock().Sub(started),
		},
	}
}

type attemptResult struct {
	data any
	err  error
}

// invokeRun executes one attempt of the step's run function under the
// step's timeout. The attempt runs in its own goroutine so a timeout
// resolves the outcome without waiting for the function to return; the
// attempt's context is cancelled, but actually stopping in-flight work
// is the step implementation's responsibility.
func (x *executor) invokeRun(ctx context.Context, step *Step, args Args) (any, error) {
	runCtx := ctx
	if step.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, step.timeout)
		defer cancel()
	}

	done := make(chan attemptResult, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				x.logger.Error("step panicked",
					"step", step.name,
					"panic", v,
					"stack", string(debug.Stack()),
				)
				done <- attemptResult{err: fmt.Errorf("%w: %v", ErrStepPanic, v)}
			}
		}()
		data, err := step.run(runCtx, x.exec.ctx, args)
		done <- attemptResult{data: data, err: err}
	}()

	var res attemptResult
	select {
	case res = <-done:
	case <-runCtx.Done():
		// A result that raced in just before the deadline still wins.
		select {
		case res = <-done:
		default:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w after %s", ErrStepTimeout, step.timeout)
		}
	}
	// Steps that return their context's error at the step deadline
	// report the same timeout kind as steps that overrun it.
	if res.err != nil && runCtx.Err() != nil && ctx.Err() == nil &&
		errors.Is(res.err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s", ErrStepTimeout, step.timeout)
	}
	return res.data, res.err
}

// invokeCompensate calls the step's compensate function, converting a
// panic into an abort verdict. Compensation runs under the execution
// context, not the expired attempt context.
func (x *executor) invokeCompensate(ctx context.Context, step *Step, failure error, args Args) (verdict Verdict) {
	defer func() {
		if v := recover(); v != nil {
			x.logger.Error("compensation panicked",
				"step", step.name,
				"panic", v,
				"stack", string(debug.Stack()),
			)
			verdict = Abort()
		}
	}()
	return step.compensate(ctx, x.exec.ctx, failure, args)
}
