// Package reactor provides a workflow orchestration engine with
// declarative step dependencies, bounded concurrent execution,
// compensation-driven failure handling, and saga-style rollback.
//
// A workflow is declared as a set of named steps whose arguments are
// bound to workflow inputs, to the outputs of other steps, or to
// literal values. The bindings form a dependency graph; the engine
// validates the graph once at build time and then executes it as many
// times as needed.
//
// # Core Concepts
//
// A Step is a single unit of work with up to three functions:
//   - run performs the work and produces the step's output
//   - compensate inspects a failure and decides what happens next
//   - undo reverses the step's completed work during rollback
//
// A Builder assembles steps into a Reactor. Build validates the
// definition (malformed declarations, unknown references, dependency
// cycles) and returns an immutable Reactor; Execute never re-runs
// validation.
//
// An Execution is one run of a Reactor against concrete inputs. It
// carries per-step results, the ordered list of captured failures,
// and the compensation and rollback logs.
//
// # Declaring a Workflow
//
//	r, err := reactor.NewBuilder("provision").
//		Input("region").
//		Input("size", reactor.DefaultValue("small")).
//		Step("allocate", allocateVM,
//			reactor.Bind("region", reactor.FromInput("region")),
//			reactor.Bind("size", reactor.FromInput("size")),
//			reactor.WithCompensate(retryAllocation),
//			reactor.WithMaxRetries(3),
//			reactor.WithUndo(releaseVM),
//		).
//		Step("configure", configureVM,
//			reactor.Bind("vm", reactor.FromStep("allocate")),
//		).
//		Return("configure").
//		Build()
//
// Argument bindings are resolved just before each attempt:
//   - FromInput(name) reads a declared workflow input
//   - FromStep(name) reads the output of a completed step
//   - Literal(value) passes the value through unchanged
//
// A FromStep binding makes the referencing step depend on the named
// step; it will not be dispatched until that step has completed
// successfully.
//
// # Execution Model
//
// Execute runs steps concurrently while respecting the dependency
// graph. At most WithMaxConcurrency steps run at once; when more steps
// are ready than slots are free, they are dispatched in declaration
// order. Each step runs in its own goroutine.
//
// Execute always returns a complete *Execution. It never panics:
// panics inside step functions are recovered and converted into step
// failures.
//
//	exec := r.Execute(ctx, map[string]any{"region": "us-east"})
//	if exec.State() == reactor.ExecutionCompleted {
//		out, _ := exec.ReturnValue()
//		fmt.Println(out)
//	}
//	for _, err := range exec.Errors() {
//		fmt.Println(err)
//	}
//
// # Failure Handling
//
// When an attempt fails, the step's compensate function is consulted.
// It returns a Verdict:
//   - Retry() re-invokes run, up to the step's WithMaxRetries budget
//   - Skip() marks the step skipped; dependents receive nil as its output
//   - ContinueWith(v) substitutes v as the step's output
//   - Abort() fails the execution
//
// A step with no compensate function aborts the execution on its
// first failure. Exhausting the retry budget aborts as well. An abort
// stops new dispatch, but steps already in flight run to completion
// and their results are recorded.
//
// Per-step timeouts (WithStepTimeout) fail the attempt like any other
// error and flow through the same compensation path. The attempt's
// context is cancelled at the deadline; stopping the in-flight work
// is the step implementation's responsibility.
//
// # Rollback
//
// When an execution fails, every step that succeeded has its undo
// function invoked, in reverse completion order. Rollback is
// best-effort: an undo failure is recorded on the execution and the
// unwind continues with the remaining steps. Steps that were skipped
// or substituted did not perform their work, so their undo is not
// invoked.
//
// # Identity and Correlation
//
// Each execution receives a unique execution ID, trace ID, and span
// ID, exposed through the Context passed to every step function. Use
// Context.InjectHTTP to propagate the trace across outbound requests:
//
//	func callService(ctx context.Context, ec *reactor.Context, args reactor.Args) (any, error) {
//		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
//		ec.InjectHTTP(req.Header)
//		return http.DefaultClient.Do(req)
//	}
//
// # Thread Safety
//
// A Reactor is immutable after Build and safe for concurrent Execute
// calls; each call produces an independent Execution. Execution
// accessors are safe to call from any goroutine, including while the
// execution is still running.
//
// # Observability
//
// The engine performs no I/O of its own. Structured logging goes
// through the *slog.Logger supplied via WithLogger, and lifecycle
// hooks (execution start/finish, step start/finish, compensation,
// rollback) are delivered to the Observer supplied via WithObserver.
// The metrics subpackage provides a Prometheus-backed Observer.
package reactor
