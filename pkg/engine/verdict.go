package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/probe/pkg/browser"
	"github.com/entrhq/probe/pkg/logging"
	"github.com/entrhq/probe/pkg/testcase"
)

// Status is the final result of a run.
type Status string

const (
	StatusPass  Status = "pass"
	StatusFail  Status = "fail"
	StatusError Status = "error"
)

// MessageNoAssertions is the failure message of a script that ran to
// completion without assertions or an explicit failure signal.
const MessageNoAssertions = "no assertions to evaluate"

// Verdict is the single result of one test case run. It is returned by value
// and not modified after it is produced.
type Verdict struct {
	TestCaseID string
	RunID      string
	Status     Status

	// FailingStepIndex is the step that aborted the script or signalled
	// failure; nil when no step is to blame
	FailingStepIndex *int

	Message  string
	Elapsed  time.Duration
	Outcomes []StepOutcome

	// Snapshot is the page state captured when the run did not pass
	Snapshot *browser.PageSnapshot
}

// Passed reports whether the verdict is a pass.
func (v Verdict) Passed() bool {
	return v.Status == StatusPass
}

// RunSummary converts the verdict for console rendering.
func (v Verdict) RunSummary() logging.RunSummary {
	res := Result{Outcomes: v.Outcomes}
	recovered := res.Recovered()
	if v.Status == StatusError && v.FailingStepIndex != nil {
		idx := *v.FailingStepIndex
		if idx < len(v.Outcomes) && v.Outcomes[idx].Outcome.Failed() {
			recovered--
		}
	}
	return logging.RunSummary{
		TestCaseID:  v.TestCaseID,
		RunID:       v.RunID,
		Status:      string(v.Status),
		Message:     v.Message,
		FailingStep: v.FailingStepIndex,
		Elapsed:     v.Elapsed,
		StepsRun:    res.Ran(),
		Recovered:   recovered,
	}
}

func errorVerdict(format string, args ...interface{}) Verdict {
	return Verdict{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

func indexPtr(i int) *int {
	return &i
}

// Evaluate turns the executor result and the assertions into a verdict.
//
// A fatal abort is an error at the aborting step. An explicit failure signal
// is a fail with the signal's message and no assertions are evaluated. With
// no assertions the verdict is a fail. Otherwise assertions are checked in
// order and the first one that does not hold is a fail with its description.
// An assertion whose check returns an error makes the verdict an error.
func Evaluate(ctx context.Context, s *browser.Session, res Result, assertions []testcase.Assertion) Verdict {
	v := Verdict{Outcomes: res.Outcomes}

	if res.Abort != nil {
		v.Status = StatusError
		v.FailingStepIndex = indexPtr(res.Abort.StepIndex)
		v.Message = res.Abort.Error()
		return v
	}

	if res.Signaled {
		v.Status = StatusFail
		v.FailingStepIndex = indexPtr(res.SignalIndex)
		v.Message = res.SignalMessage
		return v
	}

	if len(assertions) == 0 {
		v.Status = StatusFail
		v.Message = MessageNoAssertions
		return v
	}

	for i, a := range assertions {
		ok, err := a.Check(ctx, s)
		if err != nil {
			v.Status = StatusError
			v.Message = fmt.Sprintf("assertion %d (%s) could not be evaluated: %v", i, a.Description, err)
			return v
		}
		if !ok {
			v.Status = StatusFail
			v.Message = a.Description
			return v
		}
	}

	v.Status = StatusPass
	v.Message = fmt.Sprintf("%d assertions held", len(assertions))
	return v
}
