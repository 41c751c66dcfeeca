package reactor

import "fmt"

// VerdictKind enumerates the decisions a compensation function can reach.
type VerdictKind int

const (
	// VerdictAbort marks the step failed and triggers rollback of the
	// execution. This is the zero value: a compensation function that
	// returns an uninitialized Verdict aborts.
	VerdictAbort VerdictKind = iota

	// VerdictRetry re-invokes the step's run function with identical
	// resolved arguments, bounded by the step's MaxRetries.
	VerdictRetry

	// VerdictSkip marks the step successful with a nil value. Dependent
	// steps proceed and receive nil for arguments bound to this step.
	VerdictSkip

	// VerdictContinue marks the step successful with a substitute value
	// supplied by the compensation function.
	VerdictContinue
)

// String returns the lowercase name of the verdict kind.
func (k VerdictKind) String() string {
	switch k {
	case VerdictAbort:
		return "abort"
	case VerdictRetry:
		return "retry"
	case VerdictSkip:
		return "skip"
	case VerdictContinue:
		return "continue"
	default:
		return "unknown"
	}
}

// Verdict is the decision returned by a step's compensate function
// after a failed attempt. Construct one with Retry, Skip, ContinueWith
// or Abort; the zero value behaves as Abort.
//
// Skip and ContinueWith share one mechanism: both mark the step
// successful with a substitute value visible to dependents. Skip
// substitutes nil, ContinueWith substitutes an explicit payload. The
// compensation log records which of the two was chosen.
type Verdict struct {
	kind    VerdictKind
	payload any
}

// Retry asks the engine to re-invoke the step's run function. Once the
// step's MaxRetries budget is exhausted the verdict degrades to abort.
func Retry() Verdict {
	return Verdict{kind: VerdictRetry}
}

// Skip marks the step successful with a nil value.
func Skip() Verdict {
	return Verdict{kind: VerdictSkip}
}

// ContinueWith marks the step successful with the given substitute
// value; dependents receive it as the step's output.
func ContinueWith(value any) Verdict {
	return Verdict{kind: VerdictContinue, payload: value}
}

// Abort marks the step terminally failed and triggers rollback.
func Abort() Verdict {
	return Verdict{kind: VerdictAbort}
}

// Kind returns the verdict's kind.
func (v Verdict) Kind() VerdictKind {
	return v.kind
}

// Payload returns the substitute value carried by a ContinueWith
// verdict, or nil for every other kind.
func (v Verdict) Payload() any {
	return v.payload
}

// String renders the verdict for logs, including the payload for
// continue verdicts.
func (v Verdict) String() string {
	if v.kind == VerdictContinue {
		return fmt.Sprintf("continue(%v)", v.payload)
	}
	return v.kind.String()
}
