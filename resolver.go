package reactor

import "fmt"

// resolveArgs materializes a step's declared bindings against the
// execution's merged inputs and the results produced so far. It runs
// immediately before each run invocation and again before undo.
//
// Build-time validation guarantees every reference names a declared
// input or an existing step, and the scheduler guarantees referenced
// steps hold a successful result first; a reference to a skipped step
// resolves to its verdict payload (nil for plain skips) because the
// skip stored that payload as the step's data.
func resolveArgs(step *Step, exec *Execution) (Args, error) {
	args := make(Args, len(step.bindings))
	for param, ref := range step.bindings {
		switch ref.kind {
		case argLiteral:
			args[param] = ref.value
		case argInput:
			value, ok := exec.inputs[ref.name]
			if !ok {
				return nil, fmt.Errorf("parameter %q: input %q not resolved", param, ref.name)
			}
			args[param] = value
		case argStep:
			res, ok := exec.Result(ref.name)
			if !ok || !res.IsSuccess() {
				return nil, fmt.Errorf("parameter %q: step %q has no successful result", param, ref.name)
			}
			args[param] = res.Data
		}
	}
	return args, nil
}
