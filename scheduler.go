package reactor

import (
	"context"
	"log/slog"
	"sort"
)

// scheduler walks the dependency graph, dispatching steps whose
// dependencies have all completed successfully. At most maxConcurrency
// steps run at once; when several are ready it dispatches them in
// declaration order. An abort stops new dispatch but lets in-flight
// steps run to completion.
type scheduler struct {
	r      *Reactor
	exec   *Execution
	logger *slog.Logger
}

// run executes the graph and reports whether every step reached a
// successful terminal status.
func (s *scheduler) run(ctx context.Context) bool {
	total := len(s.r.steps)
	if total == 0 {
		return true
	}

	degrees := s.r.graph.Indegrees()

	var ready []*Step
	for _, step := range s.r.steps {
		if degrees[step.name] == 0 {
			ready = append(ready, step)
		}
	}

	x := &executor{r: s.r, exec: s.exec, logger: s.logger}
	completions := make(chan stepOutcome, total)

	inFlight := 0
	finished := 0
	succeeded := 0
	aborted := false

	for finished < total {
		for !aborted && ctx.Err() == nil && inFlight < s.r.maxConcurrency && len(ready) > 0 {
			step := ready[0]
			ready = ready[1:]
			inFlight++

			s.exec.storeResult(&StepResult{
				Step:      step.name,
				Status:    StatusRunning,
				StartedAt: s.r.clock(),
			})
			s.logger.Debug("dispatching step",
				"step", step.name,
				"in_flight", inFlight,
				"ready", len(ready),
			)

			go func(st *Step) {
				completions <- x.execute(ctx, st)
			}(step)
		}

		if inFlight == 0 {
			// Nothing running and nothing dispatchable: either the
			// execution aborted or was cancelled with work remaining.
			break
		}

		outcome := <-completions
		inFlight--
		finished++

		s.exec.storeResult(outcome.result)
		s.r.observer.StepFinished(s.exec.ctx, outcome.result)

		if outcome.abort != nil {
			aborted = true
			s.exec.appendError(outcome.abort)
			s.logger.Error("step aborted execution",
				"step", outcome.step.name,
				"error", outcome.abort,
			)
			continue
		}

		succeeded++
		s.logger.Debug("step finished",
			"step", outcome.step.name,
			"status", string(outcome.result.Status),
			"attempts", outcome.result.Attempts,
		)

		if aborted || ctx.Err() != nil {
			continue
		}
		for _, name := range s.r.graph.DependentsOf(outcome.step.name) {
			degrees[name]--
			if degrees[name] == 0 {
				ready = insertByDecl(ready, s.r.stepIndex[name])
			}
		}
	}

	return !aborted && ctx.Err() == nil && succeeded == total
}

// insertByDecl inserts step into ready keeping it sorted by
// declaration order.
func insertByDecl(ready []*Step, step *Step) []*Step {
	i := sort.Search(len(ready), func(i int) bool {
		return ready[i].declIndex > step.declIndex
	})
	ready = append(ready, nil)
	copy(ready[i+1:], ready[i:])
	ready[i] = step
	return ready
}
