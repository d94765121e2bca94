package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/entrhq/probe/pkg/browser"
	"github.com/entrhq/probe/pkg/config"
	"github.com/entrhq/probe/pkg/logging"
	"github.com/entrhq/probe/pkg/telemetry"
	"github.com/entrhq/probe/pkg/testcase"
)

// Executor runs the steps of a script against one session, strictly in order.
type Executor struct {
	cfg     config.Config
	walker  *browser.FrameWalker
	logger  *logging.Logger
	console *logging.Console
	metrics *telemetry.Metrics
}

// NewExecutor creates an executor for cfg. logger, console and metrics may
// be nil.
func NewExecutor(cfg config.Config, logger *logging.Logger, console *logging.Console, metrics *telemetry.Metrics) (*Executor, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	walker, err := browser.NewFrameWalker(cfg.ReadinessTimeout, cfg.SkipFramePatterns, logger.With("frames"), metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create frame walker: %w", err)
	}
	return &Executor{
		cfg:     cfg,
		walker:  walker,
		logger:  logger,
		console: console,
		metrics: metrics,
	}, nil
}

// Load navigates to url and settles the frame tree. Unlike a navigate step,
// a navigation that does not commit is returned as an error.
func (e *Executor) Load(ctx context.Context, s *browser.Session, url string) (browser.NavResult, []browser.FrameNode, error) {
	ctx, span := telemetry.StartSpan(ctx, "probe.load", telemetry.AttrURL.String(url))
	nav, frames, err := e.navigate(ctx, s, url, e.cfg.NavigationTimeout)
	telemetry.EndSpan(span, err)
	return nav, frames, err
}

// Run executes steps in order and returns their outcomes. Failed steps are
// recovered from unless the step is fatal or the interaction failure limit
// is reached. A fail step ends the script with an explicit failure signal.
// Steps after the point where the script ended are reported as skipped.
func (e *Executor) Run(ctx context.Context, s *browser.Session, steps []testcase.Step) Result {
	var res Result
	failures := 0

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			res.Abort = &AbortError{Reason: AbortCanceled, StepIndex: i, Err: err}
			break
		}

		out, panicErr := e.runStep(ctx, s, i, step)
		res.Outcomes = append(res.Outcomes, out)
		e.report(step, out)

		if panicErr != nil {
			res.Abort = &AbortError{Reason: AbortPanic, StepIndex: i, Err: panicErr}
			break
		}

		if out.Outcome == OutcomeCompleted {
			if step.Kind.IsInteraction() {
				failures = 0
			}
			if step.Kind == testcase.KindFail {
				res.Signaled = true
				res.SignalIndex = i
				res.SignalMessage = step.Message
				break
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			res.Abort = &AbortError{Reason: AbortCanceled, StepIndex: i, Err: err}
			break
		}

		if step.FatalOnError {
			res.Abort = &AbortError{Reason: AbortFatalStep, StepIndex: i, Err: out.Err}
			break
		}

		if step.Kind.IsInteraction() {
			failures++
			if failures >= e.cfg.MaxConsecutiveInteractionFailures {
				res.Abort = &AbortError{
					Reason:    AbortEscalation,
					StepIndex: i,
					Err:       fmt.Errorf("%d consecutive interaction steps failed, last: %w", failures, out.Err),
				}
				break
			}
		}

		e.logger.Warnf("Step %d (%s) %s, continuing: %v", i, step, out.Outcome, out.Err)
		if e.console != nil {
			e.console.Verbosef("Recovered from step %d: %v", i, out.Err)
		}
	}

	for i := len(res.Outcomes); i < len(steps); i++ {
		skipped := StepOutcome{Index: i, Kind: steps[i].Kind, Target: steps[i].Target, Outcome: OutcomeSkipped}
		res.Outcomes = append(res.Outcomes, skipped)
		e.metrics.StepOutcome(string(skipped.Kind), string(skipped.Outcome))
	}

	if res.Abort != nil {
		e.logger.Errorf("%v", res.Abort)
	}
	return res
}

// runStep performs one step and classifies the result. A panic inside the
// step is returned as panicErr.
func (e *Executor) runStep(ctx context.Context, s *browser.Session, index int, step testcase.Step) (out StepOutcome, panicErr error) {
	out = StepOutcome{Index: index, Kind: step.Kind, Target: step.Target}

	ctx, span := telemetry.StartSpan(ctx, "probe.step",
		telemetry.AttrStepIndex.Int(index),
		telemetry.AttrStepKind.String(string(step.Kind)),
		telemetry.AttrStepTarget.String(step.Target),
	)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			panicErr = fmt.Errorf("panic in step %d: %v", index, r)
			e.logger.Errorf("%v\n%s", panicErr, debug.Stack())
			out.Outcome = OutcomeErrored
			out.Err = panicErr
		}
		out.Elapsed = time.Since(start)
		span.SetAttributes(telemetry.AttrOutcome.String(string(out.Outcome)))
		telemetry.EndSpan(span, out.Err)
		e.metrics.StepOutcome(string(step.Kind), string(out.Outcome))
	}()

	e.logger.Debugf("Step %d: %s", index, step)
	err := e.perform(ctx, s, step, &out)
	out.Err = err
	out.Outcome = classify(err)
	return out, nil
}

func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeCompleted
	case browser.IsTimeout(err):
		return OutcomeTimedOut
	default:
		return OutcomeErrored
	}
}

// stepTimeout is the deadline for one step: its own timeout or the default.
func (e *Executor) stepTimeout(step testcase.Step) time.Duration {
	if step.Timeout > 0 {
		return step.Timeout
	}
	return e.cfg.DefaultStepTimeout
}

func (e *Executor) report(step testcase.Step, out StepOutcome) {
	if e.console == nil {
		return
	}
	target := step.Target
	if step.Description != "" {
		target = step.Description
	}
	e.console.Step(out.Index, string(step.Kind), target, string(out.Outcome))
}
