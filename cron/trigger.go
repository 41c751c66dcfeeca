// Package cron starts reactor executions on cron schedules.
//
// A Trigger fires a Job according to a single cron expression. The
// Manager builds one Trigger per configured schedule and runs the
// named reactor with the schedule's inputs each time it fires.
//
// Example usage:
//
//	mgr, err := cron.NewManager(cfg.Schedules, []*reactor.Reactor{provision}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mgr.Start(ctx) // Returns immediately, runs in background
//	<-ctx.Done()   // Wait for shutdown signal
package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidCronSpec is returned when the cron specification cannot be parsed.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

// Job is started by a Trigger each time its schedule fires.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a plain function to the Job interface.
type JobFunc func(ctx context.Context) error

// Run calls f.
func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

// Trigger executes a Job according to a cron schedule.
type Trigger struct {
	spec     string
	schedule cron.Schedule
	job      Job
	logger   *slog.Logger
}

// NewTrigger creates a Trigger from the given cron specification.
// The spec follows standard cron format (5 fields: minute, hour, day, month, weekday).
// Returns ErrInvalidCronSpec if the specification cannot be parsed.
func NewTrigger(spec string, job Job, logger *slog.Logger) (*Trigger, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronSpec, err)
	}

	return &Trigger{
		spec:     spec,
		schedule: schedule,
		job:      job,
		logger:   logger,
	}, nil
}

// Start launches a goroutine that fires the job according to the cron
// schedule. Returns immediately. The goroutine exits when ctx is
// cancelled.
func (t *Trigger) Start(ctx context.Context) {
	go t.loop(ctx)
}

// NextRun returns the next scheduled run time from now.
func (t *Trigger) NextRun() time.Time {
	return t.schedule.Next(time.Now())
}

// loop is the main scheduling loop that runs in a goroutine.
func (t *Trigger) loop(ctx context.Context) {
	for {
		nextRun := t.schedule.Next(time.Now())
		waitDuration := time.Until(nextRun)

		t.logger.Debug("waiting for next scheduled run",
			"next_run", nextRun,
			"wait_duration", waitDuration,
		)

		select {
		case <-ctx.Done():
			t.logger.Info("cron trigger shutting down")
			return
		case <-time.After(waitDuration):
			t.fire(ctx)
		}
	}
}

// fire runs the job once and logs a failure to start.
func (t *Trigger) fire(ctx context.Context) {
	t.logger.Info("starting scheduled run")

	if err := t.job.Run(ctx); err != nil {
		t.logger.Warn("scheduled run completed with error", "error", err)
	}
}
