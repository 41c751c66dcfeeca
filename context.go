package reactor

import (
	"net/http"
	"sync"
	"time"
)

// Header names used by InjectHTTP to propagate correlation identifiers
// to outbound calls.
const (
	HeaderTraceID = "X-Trace-Id"
	HeaderSpanID  = "X-Span-Id"
)

// CompensationRecord is one entry in the compensation log: a failed
// attempt that was offered to the step's compensate function, and the
// verdict it returned.
type CompensationRecord struct {
	Step    string
	Attempt int
	Err     error
	Verdict Verdict
	Time    time.Time
}

// UndoRecord is one entry in the undo log: a rollback invocation of a
// completed step. Err is nil when the undo succeeded.
type UndoRecord struct {
	Step string
	Err  error
	Time time.Time
}

// Context carries the per-execution correlation state: identifiers
// generated once before any step runs, the start time, the append-only
// compensation and undo logs, and read access to step results already
// produced in this execution.
//
// The same Context is passed to every run, compensate and undo
// invocation so outbound calls can propagate the execution's
// identifiers. The logs are safe for concurrent writers; accessors
// return copies.
type Context struct {
	executionID string
	traceID     string
	spanID      string
	startTime   time.Time
	now         func() time.Time

	exec *Execution // set by newExecution

	mu            sync.Mutex
	compensations []CompensationRecord
	undos         []UndoRecord
}

func newContext(ids IDGenerator, clock func() time.Time) *Context {
	return &Context{
		executionID: ids.ExecutionID(),
		traceID:     ids.TraceID(),
		spanID:      ids.SpanID(),
		startTime:   clock(),
		now:         clock,
	}
}

// ExecutionID returns the unique identifier of this execution.
func (c *Context) ExecutionID() string { return c.executionID }

// TraceID returns the correlation identifier shared by every step and
// outbound call of this execution. It is stable for the execution's
// lifetime and differs between executions.
func (c *Context) TraceID() string { return c.traceID }

// SpanID returns the execution's span identifier.
func (c *Context) SpanID() string { return c.spanID }

// StartTime returns when the execution was created, before any step
// ran.
func (c *Context) StartTime() time.Time { return c.startTime }

// Result gives steps read access to a sibling step's result without a
// declared argument binding. Intended for cross-cutting concerns such
// as telemetry; data dependencies should be declared with FromStep so
// they order execution.
func (c *Context) Result(step string) (*StepResult, bool) {
	return c.exec.Result(step)
}

// InjectHTTP sets the execution's correlation identifiers on an
// outbound request's headers.
func (c *Context) InjectHTTP(h http.Header) {
	h.Set(HeaderTraceID, c.traceID)
	h.Set(HeaderSpanID, c.spanID)
}

// CompensationLog returns a copy of the compensation decisions taken
// so far, in the order they were made.
func (c *Context) CompensationLog() []CompensationRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CompensationRecord, len(c.compensations))
	copy(out, c.compensations)
	return out
}

// UndoLog returns a copy of the rollback actions taken so far, in the
// order they were invoked.
func (c *Context) UndoLog() []UndoRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]UndoRecord, len(c.undos))
	copy(out, c.undos)
	return out
}

func (c *Context) recordCompensation(step string, attempt int, failure error, verdict Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compensations = append(c.compensations, CompensationRecord{
		Step:    step,
		Attempt: attempt,
		Err:     failure,
		Verdict: verdict,
		Time:    c.now(),
	})
}

func (c *Context) recordUndo(step string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.undos = append(c.undos, UndoRecord{
		Step: step,
		Err:  err,
		Time: c.now(),
	})
}
