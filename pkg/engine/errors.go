package engine

import "fmt"

// AbortReason says why a script stopped before its last step.
type AbortReason string

const (
	// AbortFatalStep means a step marked fatal did not complete
	AbortFatalStep AbortReason = "fatal_step"
	// AbortEscalation means too many consecutive interaction steps failed
	AbortEscalation AbortReason = "escalation"
	// AbortCanceled means the run context was canceled or hit its deadline
	AbortCanceled AbortReason = "canceled"
	// AbortPanic means a step panicked
	AbortPanic AbortReason = "panic"
)

// AbortError ends a script early. StepIndex is the index of the step that
// triggered the abort.
type AbortError struct {
	Reason    AbortReason
	StepIndex int
	Err       error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("script aborted at step %d (%s): %v", e.StepIndex, e.Reason, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}
