package reactor

import "fmt"

// argKind discriminates the three sources an argument can come from.
type argKind int

const (
	argInput argKind = iota
	argStep
	argLiteral
)

// ArgRef declares where a step argument's value comes from: a workflow
// input, another step's output, or a literal constant fixed at build
// time. References to step outputs are the sole source of inter-step
// dependency edges.
type ArgRef struct {
	kind  argKind
	name  string
	value any
}

// FromInput binds the argument to the workflow input with the given
// name. The input must be declared on the builder.
func FromInput(name string) ArgRef {
	return ArgRef{kind: argInput, name: name}
}

// FromStep binds the argument to the output of the named step and adds
// a dependency edge from that step. The step must exist in the same
// reactor.
func FromStep(name string) ArgRef {
	return ArgRef{kind: argStep, name: name}
}

// Literal binds the argument to a constant value.
func Literal(value any) ArgRef {
	return ArgRef{kind: argLiteral, value: value}
}

// String describes the reference for error messages and logs.
func (r ArgRef) String() string {
	switch r.kind {
	case argInput:
		return fmt.Sprintf("input:%s", r.name)
	case argStep:
		return fmt.Sprintf("step:%s", r.name)
	default:
		return fmt.Sprintf("literal:%v", r.value)
	}
}

// Args holds a step's resolved arguments, keyed by parameter name.
// The engine builds a fresh Args for every run, compensate and undo
// invocation; callbacks may read it freely but should not retain it.
type Args map[string]any
