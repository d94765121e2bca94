package engine

import (
	"time"

	"github.com/entrhq/probe/pkg/browser"
	"github.com/entrhq/probe/pkg/testcase"
)

// Outcome classifies how a single step ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeErrored   Outcome = "errored"
	// OutcomeSkipped marks steps never run because the script ended early
	OutcomeSkipped Outcome = "skipped"
)

// Failed reports whether the step ran and did not complete.
func (o Outcome) Failed() bool {
	return o == OutcomeTimedOut || o == OutcomeErrored
}

// StepOutcome records what happened to one step.
type StepOutcome struct {
	Index   int
	Kind    testcase.StepKind
	Target  string
	Outcome Outcome
	Err     error
	Elapsed time.Duration

	// Nav and Frames are set for navigate steps
	Nav    *browser.NavResult
	Frames []browser.FrameNode
}

// Result is everything the step executor hands to the verdict engine.
type Result struct {
	// Outcomes has one entry per step, in script order
	Outcomes []StepOutcome

	// Abort is set when the script stopped on a fatal error
	Abort *AbortError

	// Signaled is set when a fail step ended the script
	Signaled      bool
	SignalIndex   int
	SignalMessage string
}

// Recovered counts steps that failed without ending the script.
func (r Result) Recovered() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Outcome.Failed() {
			n++
		}
	}
	if r.Abort != nil && r.Abort.StepIndex < len(r.Outcomes) && r.Outcomes[r.Abort.StepIndex].Outcome.Failed() {
		n--
	}
	return n
}

// Ran counts steps that were executed.
func (r Result) Ran() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Outcome != OutcomeSkipped {
			n++
		}
	}
	return n
}
