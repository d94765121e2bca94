// Package engine runs test cases against a browser session and produces a
// Verdict for each run.
//
// A run acquires a session, loads the entry URL, executes the steps strictly
// in order, evaluates the assertions and releases the session on every exit
// path. Failures of individual steps are recorded as StepOutcome values and
// recovered from, unless the step is marked fatal or too many interaction
// steps fail in a row; then the run aborts with an AbortError and the verdict
// is an error.
//
// Verdicts distinguish three results:
//
//   - pass: every assertion held
//   - fail: an assertion did not hold, the script signalled failure, or there
//     was nothing to assert
//   - error: the engine could not complete the run (no browser, a fatal step,
//     cancellation, a panic, or an assertion that could not be evaluated)
package engine
