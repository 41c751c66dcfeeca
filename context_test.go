package reactor

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubIDs is a deterministic IDGenerator for tests.
type stubIDs struct {
	mu    sync.Mutex
	execs int
}

func (s *stubIDs) ExecutionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs++
	return fmt.Sprintf("exec-%d", s.execs)
}

func (s *stubIDs) TraceID() string { return "trace-fixed" }
func (s *stubIDs) SpanID() string  { return "span-fixed" }

// TestContext_TraceCorrelation tests trace identity within and across executions
func TestContext_TraceCorrelation(t *testing.T) {
	var mu sync.Mutex
	traces := make(map[string]string)

	capture := func(name string) RunFunc {
		return func(ctx context.Context, ec *Context, args Args) (any, error) {
			mu.Lock()
			traces[name] = ec.TraceID()
			mu.Unlock()
			return nil, nil
		}
	}

	r, err := NewBuilder("traced", WithLogger(quietLogger())).
		Step("one", capture("one")).
		Step("two", capture("two"), Bind("prev", FromStep("one"))).
		Build()
	require.NoError(t, err)

	t.Run("SharedWithinExecution", func(t *testing.T) {
		exec := r.Execute(context.Background(), nil)
		require.Equal(t, ExecutionCompleted, exec.State())

		assert.NotEmpty(t, exec.Context().TraceID())
		assert.Equal(t, exec.Context().TraceID(), traces["one"],
			"Steps should see the execution's trace ID")
		assert.Equal(t, traces["one"], traces["two"],
			"All steps in one execution share a trace ID")
	})

	t.Run("DistinctAcrossExecutions", func(t *testing.T) {
		first := r.Execute(context.Background(), nil)
		second := r.Execute(context.Background(), nil)

		assert.NotEqual(t, first.Context().TraceID(), second.Context().TraceID(),
			"Separate executions should get separate trace IDs")
		assert.NotEqual(t, first.ID(), second.ID(),
			"Separate executions should get separate execution IDs")
	})
}

// TestContext_InjectedProviders tests that clock and ID generation are caller-controlled
func TestContext_InjectedProviders(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ids := &stubIDs{}

	r, err := NewBuilder("deterministic",
		WithLogger(quietLogger()),
		WithIDGenerator(ids),
		WithClock(func() time.Time { return fixed }),
	).
		Step("work", failingRun("nope"),
			WithCompensate(alwaysVerdict(Skip())),
		).
		Build()
	require.NoError(t, err)

	exec := r.Execute(context.Background(), nil)
	require.Equal(t, ExecutionCompleted, exec.State())

	assert.Equal(t, "exec-1", exec.ID(), "Execution ID should come from the injected generator")
	assert.Equal(t, "trace-fixed", exec.Context().TraceID())
	assert.Equal(t, "span-fixed", exec.Context().SpanID())
	assert.Equal(t, fixed, exec.Context().StartTime(), "Start time should come from the injected clock")

	res, _ := exec.Result("work")
	assert.Equal(t, fixed, res.StartedAt)
	assert.Zero(t, res.Duration, "A frozen clock should yield zero durations")

	log := exec.Context().CompensationLog()
	require.Len(t, log, 1)
	assert.Equal(t, fixed, log[0].Time, "Log timestamps should come from the injected clock")

	second := r.Execute(context.Background(), nil)
	assert.Equal(t, "exec-2", second.ID(), "The generator sequences execution IDs")
}

// TestContext_InjectHTTP tests propagation of correlation headers
func TestContext_InjectHTTP(t *testing.T) {
	ids := &stubIDs{}
	r, err := NewBuilder("outbound",
		WithLogger(quietLogger()),
		WithIDGenerator(ids),
	).
		Step("call", func(ctx context.Context, ec *Context, args Args) (any, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.invalid/", nil)
			if err != nil {
				return nil, err
			}
			ec.InjectHTTP(req.Header)
			return req.Header, nil
		}).
		Return("call").
		Build()
	require.NoError(t, err)

	exec := r.Execute(context.Background(), nil)
	require.Equal(t, ExecutionCompleted, exec.State())

	out, ok := exec.ReturnValue()
	require.True(t, ok)
	headers := out.(http.Header)

	assert.Equal(t, "trace-fixed", headers.Get(HeaderTraceID))
	assert.Equal(t, "span-fixed", headers.Get(HeaderSpanID))
}

// TestContext_ResultLookup tests in-flight access to another step's result
func TestContext_ResultLookup(t *testing.T) {
	var dependencyStatus StepStatus

	r, err := NewBuilder("lookup", WithLogger(quietLogger())).
		Step("first", stubRun("value")).
		Step("second", func(ctx context.Context, ec *Context, args Args) (any, error) {
			if res, ok := ec.Result("first"); ok {
				dependencyStatus = res.Status
			}
			return nil, nil
		}, Bind("prev", FromStep("first"))).
		Build()
	require.NoError(t, err)

	exec := r.Execute(context.Background(), nil)
	require.Equal(t, ExecutionCompleted, exec.State())
	assert.Equal(t, StatusSucceeded, dependencyStatus,
		"A step should be able to inspect its dependency's result")
}
