package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/reactor"
)

// namespace prefixes every series the observer creates.
const namespace = "reactor"

// ExecutionObserver translates engine lifecycle events into metrics.
// It implements reactor.Observer and works with either registry mode;
// pass it to the builder via reactor.WithObserver.
type ExecutionObserver struct {
	executionsStarted Counter
	executionsDone    CounterVec // state
	executionSeconds  GaugeVec   // state
	stepAttempts      CounterVec // step
	stepsDone         CounterVec // step, status
	stepSeconds       GaugeVec   // step
	compensations     CounterVec // step, verdict
	rollbacks         CounterVec // step, outcome
}

var _ reactor.Observer = (*ExecutionObserver)(nil)

// NewExecutionObserver registers the reactor metric set with reg.
func NewExecutionObserver(reg Registry) (*ExecutionObserver, error) {
	o := &ExecutionObserver{}

	var err error
	o.executionsStarted, err = reg.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "executions_started_total",
		Help:      "Number of executions started.",
	})
	if err != nil {
		return nil, fmt.Errorf("creating executions_started_total: %w", err)
	}

	o.executionsDone, err = reg.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "executions_finished_total",
		Help:      "Number of executions finished, by terminal state.",
	}, []string{"state"})
	if err != nil {
		return nil, fmt.Errorf("creating executions_finished_total: %w", err)
	}

	o.executionSeconds, err = reg.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "execution_duration_seconds",
		Help:      "Wall time of the most recent execution, by terminal state.",
	}, []string{"state"})
	if err != nil {
		return nil, fmt.Errorf("creating execution_duration_seconds: %w", err)
	}

	o.stepAttempts, err = reg.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "step_attempts_total",
		Help:      "Number of run attempts, by step. Retries count separately.",
	}, []string{"step"})
	if err != nil {
		return nil, fmt.Errorf("creating step_attempts_total: %w", err)
	}

	o.stepsDone, err = reg.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "steps_finished_total",
		Help:      "Number of steps reaching a terminal status, by step and status.",
	}, []string{"step", "status"})
	if err != nil {
		return nil, fmt.Errorf("creating steps_finished_total: %w", err)
	}

	o.stepSeconds, err = reg.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "step_duration_seconds",
		Help:      "Wall time of the step's most recent terminal outcome, across all attempts.",
	}, []string{"step"})
	if err != nil {
		return nil, fmt.Errorf("creating step_duration_seconds: %w", err)
	}

	o.compensations, err = reg.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "compensations_total",
		Help:      "Number of compensation verdicts, by step and verdict.",
	}, []string{"step", "verdict"})
	if err != nil {
		return nil, fmt.Errorf("creating compensations_total: %w", err)
	}

	o.rollbacks, err = reg.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rollbacks_total",
		Help:      "Number of undo invocations during rollback, by step and outcome.",
	}, []string{"step", "outcome"})
	if err != nil {
		return nil, fmt.Errorf("creating rollbacks_total: %w", err)
	}

	return o, nil
}

func (o *ExecutionObserver) ExecutionStarted(ec *reactor.Context) {
	o.executionsStarted.Inc()
}

func (o *ExecutionObserver) ExecutionFinished(ec *reactor.Context, state reactor.ExecutionState, elapsed time.Duration) {
	labels := prometheus.Labels{"state": state.String()}
	o.executionsDone.With(labels).Inc()
	o.executionSeconds.With(labels).Set(elapsed.Seconds())
}

func (o *ExecutionObserver) StepStarted(ec *reactor.Context, step string, attempt int) {
	o.stepAttempts.With(prometheus.Labels{"step": step}).Inc()
}

func (o *ExecutionObserver) StepFinished(ec *reactor.Context, result *reactor.StepResult) {
	if !result.Terminal() {
		return
	}
	o.stepsDone.With(prometheus.Labels{
		"step":   result.Step,
		"status": string(result.Status),
	}).Inc()
	o.stepSeconds.With(prometheus.Labels{"step": result.Step}).Set(result.Duration.Seconds())
}

func (o *ExecutionObserver) StepCompensated(ec *reactor.Context, step string, verdict reactor.Verdict, failure error) {
	o.compensations.With(prometheus.Labels{
		"step":    step,
		"verdict": verdict.Kind().String(),
	}).Inc()
}

func (o *ExecutionObserver) StepRolledBack(ec *reactor.Context, step string, undoErr error) {
	outcome := "ok"
	if undoErr != nil {
		outcome = "failed"
	}
	o.rollbacks.With(prometheus.Labels{
		"step":    step,
		"outcome": outcome,
	}).Inc()
}
