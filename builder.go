package reactor

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nomis52/reactor/dag"
)

// inputDef is a declared workflow input.
type inputDef struct {
	name       string
	def        any
	hasDefault bool
}

// InputOption configures a workflow input at declaration time.
type InputOption func(*inputDef)

// DefaultValue makes the input optional: executions that omit it
// receive v.
func DefaultValue(v any) InputOption {
	return func(in *inputDef) {
		in.def = v
		in.hasDefault = true
	}
}

// Builder assembles a Reactor definition: inputs, steps with their
// argument bindings and policies, and the return step. Declaration
// methods chain; all validation is deferred to Build, which either
// yields an immutable Reactor or a *BuildError.
type Builder struct {
	name       string
	steps      []*Step
	stepIndex  map[string]*Step
	inputs     []inputDef
	inputNames map[string]bool
	returnStep string
	declErrs   []*BuildError

	maxConcurrency int
	timeout        time.Duration
	logger         *slog.Logger
	clock          func() time.Time
	ids            IDGenerator
	observer       Observer
}

// NewBuilder starts a reactor definition. The name identifies the
// reactor in logs and metrics.
func NewBuilder(name string, opts ...Option) *Builder {
	b := &Builder{
		name:           name,
		stepIndex:      make(map[string]*Step),
		inputNames:     make(map[string]bool),
		maxConcurrency: DefaultMaxConcurrency,
		logger:         slog.Default().With("component", "reactor"),
		clock:          time.Now,
		ids:            uuidGenerator{},
		observer:       nopObserver{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.maxConcurrency < 1 {
		b.maxConcurrency = 1
	}
	return b
}

// Input declares a workflow input. Inputs without a DefaultValue are
// required at Execute time.
func (b *Builder) Input(name string, opts ...InputOption) *Builder {
	if name == "" {
		b.declErr(&BuildError{Detail: "input name must not be empty"})
		return b
	}
	if b.inputNames[name] {
		b.declErr(&BuildError{Detail: fmt.Sprintf("input %q declared twice", name)})
		return b
	}
	in := inputDef{name: name}
	for _, opt := range opts {
		opt(&in)
	}
	b.inputNames[name] = true
	b.inputs = append(b.inputs, in)
	return b
}

// Step declares a unit of work. Argument bindings, compensation, undo,
// retries and timeout are attached through StepOptions. Declaration
// order is the scheduler's tie-break when more steps are ready than
// concurrency slots.
func (b *Builder) Step(name string, run RunFunc, opts ...StepOption) *Builder {
	if name == "" {
		b.declErr(&BuildError{Detail: "step name must not be empty"})
		return b
	}
	if run == nil {
		b.declErr(&BuildError{Step: name, Detail: "run function must not be nil"})
		return b
	}
	if _, exists := b.stepIndex[name]; exists {
		b.declErr(&BuildError{Step: name, Detail: "step declared twice"})
		return b
	}
	step := &Step{
		name:      name,
		declIndex: len(b.steps),
		bindings:  make(map[string]ArgRef),
		run:       run,
	}
	for _, opt := range opts {
		opt(step)
	}
	if step.maxRetries < 0 {
		step.maxRetries = 0
	}
	b.stepIndex[name] = step
	b.steps = append(b.steps, step)
	return b
}

// Return names the step whose output becomes the execution's return
// value. Optional.
func (b *Builder) Return(stepName string) *Builder {
	b.returnStep = stepName
	return b
}

// Build validates the definition and produces an immutable Reactor.
// Validation covers malformed declarations, unknown input and step
// references, and dependency cycles; failures are reported as a
// *BuildError. Execute never re-runs this validation.
func (b *Builder) Build() (*Reactor, error) {
	if len(b.declErrs) > 0 {
		return nil, b.declErrs[0]
	}

	graph := dag.New[*Step]()
	for _, step := range b.steps {
		if err := graph.AddNode(step.name, step); err != nil {
			// Duplicates are rejected at declaration time already.
			return nil, &BuildError{Step: step.name, Detail: err.Error()}
		}
	}

	for _, step := range b.steps {
		for param, ref := range step.bindings {
			switch ref.kind {
			case argInput:
				if !b.inputNames[ref.name] {
					return nil, &BuildError{
						Step:   step.name,
						Detail: fmt.Sprintf("parameter %q references undeclared input %q", param, ref.name),
					}
				}
			case argStep:
				if _, ok := b.stepIndex[ref.name]; !ok {
					return nil, &BuildError{
						Step:   step.name,
						Detail: fmt.Sprintf("parameter %q references unknown step %q", param, ref.name),
					}
				}
				if err := graph.Connect(ref.name, step.name); err != nil {
					if errors.Is(err, dag.ErrSelfReference) {
						return nil, &BuildError{
							Step:   step.name,
							Detail: fmt.Sprintf("parameter %q references the step's own output", param),
						}
					}
					return nil, &BuildError{Step: step.name, Detail: err.Error()}
				}
			}
		}
	}

	if _, err := graph.TopoSort(); err != nil {
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			return nil, &BuildError{Detail: "dependency cycle", Cycle: cycleErr.Cycle}
		}
		return nil, &BuildError{Detail: err.Error()}
	}

	if b.returnStep != "" {
		if _, ok := b.stepIndex[b.returnStep]; !ok {
			return nil, &BuildError{
				Detail: fmt.Sprintf("return step %q does not exist", b.returnStep),
			}
		}
	}

	steps := make([]*Step, len(b.steps))
	copy(steps, b.steps)
	stepIndex := make(map[string]*Step, len(b.stepIndex))
	for name, step := range b.stepIndex {
		stepIndex[name] = step
	}
	inputs := make([]inputDef, len(b.inputs))
	copy(inputs, b.inputs)

	r := &Reactor{
		name:           b.name,
		steps:          steps,
		stepIndex:      stepIndex,
		inputs:         inputs,
		returnStep:     b.returnStep,
		graph:          graph,
		maxConcurrency: b.maxConcurrency,
		timeout:        b.timeout,
		logger:         b.logger.With("reactor", b.name),
		clock:          b.clock,
		ids:            b.ids,
		observer:       b.observer,
	}

	b.logger.Debug("reactor built",
		"reactor", b.name,
		"steps", len(steps),
		"inputs", len(inputs),
		"max_concurrency", b.maxConcurrency,
	)
	return r, nil
}

func (b *Builder) declErr(err *BuildError) {
	b.declErrs = append(b.declErrs, err)
}
