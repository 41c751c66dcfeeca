package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nomis52/reactor"
	"github.com/nomis52/reactor/config"
)

// ErrRunInProgress is returned when a schedule fires while its
// previous run is still executing.
var ErrRunInProgress = errors.New("schedule run already in progress")

// ErrUnknownSchedule is returned when RunNow is given a schedule name
// the manager was not built with.
var ErrUnknownSchedule = errors.New("unknown schedule")

// RunState describes whether a schedule currently has an execution in
// flight.
type RunState string

const (
	RunStateIdle    RunState = "idle"
	RunStateRunning RunState = "running"
)

// RunStatus records the most recent run of a schedule.
type RunStatus struct {
	Schedule    string
	Reactor     string
	State       RunState
	StartedAt   *time.Time
	EndedAt     *time.Time
	ExecutionID string

	// Outcome is the terminal execution state of the last run,
	// "completed" or "failed". Empty until the schedule has run once.
	Outcome string

	// Error is the abort cause of the last failed run, empty on
	// success.
	Error string
}

// Manager owns one Trigger per configured schedule and executes the
// named reactor each time a schedule fires. Runs happen in the
// background; a schedule that fires while its previous run is still
// executing is skipped.
type Manager struct {
	logger    *slog.Logger
	reactors  map[string]*reactor.Reactor
	schedules []config.ScheduleConfig
	triggers  []*Trigger

	mu     sync.Mutex
	status map[string]*RunStatus
}

// NewManager wires each schedule to a registered reactor.
//
// Returns an error if:
//   - Two reactors share a name, or two schedules do
//   - A schedule names a reactor that was not supplied
//   - A schedule's cron expression is invalid
func NewManager(schedules []config.ScheduleConfig, reactors []*reactor.Reactor, logger *slog.Logger) (*Manager, error) {
	index := make(map[string]*reactor.Reactor, len(reactors))
	for _, r := range reactors {
		if _, dup := index[r.Name()]; dup {
			return nil, fmt.Errorf("duplicate reactor %q", r.Name())
		}
		index[r.Name()] = r
	}

	m := &Manager{
		logger:    logger,
		reactors:  index,
		schedules: schedules,
		status:    make(map[string]*RunStatus, len(schedules)),
	}

	for _, s := range schedules {
		if _, dup := m.status[s.Name]; dup {
			return nil, fmt.Errorf("duplicate schedule name %q", s.Name)
		}
		if _, ok := index[s.Reactor]; !ok {
			return nil, fmt.Errorf("unknown reactor %q in schedule %q (available: %s)",
				s.Reactor, s.Name, strings.Join(reactorNames(index), ", "))
		}

		trigger, err := NewTrigger(s.Cron, JobFunc(func(ctx context.Context) error {
			return m.RunNow(ctx, s.Name)
		}), logger.With("schedule", s.Name))
		if err != nil {
			return nil, fmt.Errorf("creating trigger for schedule %q: %w", s.Name, err)
		}

		m.triggers = append(m.triggers, trigger)
		m.status[s.Name] = &RunStatus{Schedule: s.Name, Reactor: s.Reactor, State: RunStateIdle}
	}

	logger.Info("cron trigger manager created", "trigger_count", len(m.triggers))
	for i, trigger := range m.triggers {
		logger.Info("trigger registered",
			"schedule", schedules[i].Name,
			"reactor", schedules[i].Reactor,
			"cron", schedules[i].Cron,
			"next_run", trigger.NextRun(),
		)
	}

	return m, nil
}

// Start launches all triggers. Each trigger runs in its own goroutine.
// Returns immediately. All goroutines exit when ctx is cancelled;
// cancelling ctx also aborts in-flight executions, which roll back as
// usual.
func (m *Manager) Start(ctx context.Context) {
	for _, trigger := range m.triggers {
		trigger.Start(ctx)
	}
}

// NextRun returns the earliest scheduled run time across all triggers.
// Returns zero time if there are no triggers.
func (m *Manager) NextRun() time.Time {
	if len(m.triggers) == 0 {
		return time.Time{}
	}

	earliest := m.triggers[0].NextRun()
	for i := 1; i < len(m.triggers); i++ {
		next := m.triggers[i].NextRun()
		if next.Before(earliest) {
			earliest = next
		}
	}

	return earliest
}

// RunNow starts the named schedule's reactor in the background.
// Returns ErrRunInProgress if the schedule's previous run has not
// finished, and ErrUnknownSchedule if no such schedule exists.
func (m *Manager) RunNow(ctx context.Context, schedule string) error {
	s, ok := m.scheduleByName(schedule)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSchedule, schedule)
	}

	if !m.tryStart(s.Name) {
		m.logger.Warn("previous run still in progress, skipping",
			"schedule", s.Name, "reactor", s.Reactor)
		return ErrRunInProgress
	}

	go func() {
		exec := m.reactors[s.Reactor].Execute(ctx, s.Inputs)
		m.finish(s.Name, exec)
	}()

	return nil
}

// Status returns the most recent run status for the named schedule.
func (m *Manager) Status(schedule string) (RunStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.status[schedule]
	if !ok {
		return RunStatus{}, false
	}
	return *st, true
}

// Statuses returns the run status of every schedule, ordered by
// schedule name.
func (m *Manager) Statuses() []RunStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]RunStatus, 0, len(m.status))
	for _, st := range m.status {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Schedule < out[j].Schedule })
	return out
}

// tryStart attempts to transition the schedule from idle to running.
// Returns true if successful, false if already running.
func (m *Manager) tryStart(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.status[name]
	if st.State == RunStateRunning {
		return false
	}

	now := time.Now()
	*st = RunStatus{
		Schedule:  st.Schedule,
		Reactor:   st.Reactor,
		State:     RunStateRunning,
		StartedAt: &now,
	}
	return true
}

// finish transitions the schedule back to idle and records the
// execution's outcome.
func (m *Manager) finish(name string, exec *reactor.Execution) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.status[name]
	now := time.Now()
	duration := now.Sub(*st.StartedAt)

	st.State = RunStateIdle
	st.EndedAt = &now
	st.ExecutionID = exec.ID()
	st.Outcome = exec.State().String()

	if exec.State() == reactor.ExecutionCompleted {
		st.Error = ""
		m.logger.Info("scheduled run completed",
			"schedule", name, "execution_id", exec.ID(), "duration", duration)
		return
	}

	st.Error = abortCause(exec.Errors())
	m.logger.Error("scheduled run failed",
		"schedule", name, "execution_id", exec.ID(), "duration", duration, "error", st.Error)
}

func (m *Manager) scheduleByName(name string) (config.ScheduleConfig, bool) {
	for _, s := range m.schedules {
		if s.Name == name {
			return s, true
		}
	}
	return config.ScheduleConfig{}, false
}

// abortCause extracts the abort that failed the execution, falling
// back to joining everything recorded.
func abortCause(errs []error) string {
	for _, err := range errs {
		var abort *reactor.AbortError
		if errors.As(err, &abort) {
			return abort.Error()
		}
	}
	if len(errs) == 0 {
		return ""
	}
	return errors.Join(errs...).Error()
}

func reactorNames(index map[string]*reactor.Reactor) []string {
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
