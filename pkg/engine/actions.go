package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/probe/pkg/browser"
	"github.com/entrhq/probe/pkg/telemetry"
	"github.com/entrhq/probe/pkg/testcase"
)

// perform runs the action for step. Navigation uses the navigation timeout
// unless the step sets its own; every other action is bounded by the step
// timeout, except sleep which runs for its duration.
func (e *Executor) perform(ctx context.Context, s *browser.Session, step testcase.Step, out *StepOutcome) error {
	switch step.Kind {
	case testcase.KindNavigate:
		timeout := e.cfg.NavigationTimeout
		if step.Timeout > 0 {
			timeout = step.Timeout
		}
		nav, frames, err := e.navigate(ctx, s, step.Target, timeout)
		out.Nav = &nav
		out.Frames = frames
		return err

	case testcase.KindSleep:
		return sleep(ctx, step.Duration)

	case testcase.KindFail:
		return nil
	}

	timeout := e.stepTimeout(step)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := browser.Target{Selector: step.Target, Frames: step.Frames, Nth: step.Nth}

	switch step.Kind {
	case testcase.KindWait:
		return s.WaitVisible(ctx, target, timeout)

	case testcase.KindScroll:
		if step.Target != "" {
			return s.ScrollIntoView(ctx, target, timeout)
		}
		delta := step.DeltaY
		if delta == 0 {
			delta = float64(s.Viewport.Height)
		}
		return s.Wheel(ctx, delta)

	case testcase.KindClick:
		return s.Click(ctx, target, timeout)

	case testcase.KindType:
		return s.Fill(ctx, target, step.Value, timeout)

	case testcase.KindTap:
		if step.Target == "" {
			return s.TapPoint(ctx, step.X, step.Y)
		}
		return s.Tap(ctx, target, timeout)

	case testcase.KindSetViewport:
		return s.SetViewport(ctx, step.Width, step.Height)
	}

	return fmt.Errorf("unsupported step kind %q", step.Kind)
}

// navigate loads url, then settles the frame tree of the new page. Frames
// that never settle do not fail the navigation.
func (e *Executor) navigate(ctx context.Context, s *browser.Session, url string, timeout time.Duration) (browser.NavResult, []browser.FrameNode, error) {
	readiness := min(e.cfg.ReadinessTimeout, timeout)

	nav, err := browser.Goto(ctx, s, url, timeout, readiness)
	if err != nil {
		return nav, nil, err
	}
	if !nav.ReadyStateReached {
		e.logger.Infof("Page %s did not reach domcontentloaded within %s, continuing", url, readiness)
	}

	frames, err := e.walker.Settle(ctx, s.Page)
	if err != nil {
		return nav, frames, err
	}

	children, unsettled := 0, 0
	for _, f := range frames {
		if !f.IsRoot() {
			children++
		}
		if !f.Settled && !f.Skipped {
			unsettled++
		}
	}
	telemetry.AddEvent(ctx, "frames.settled",
		telemetry.AttrURL.String(nav.URL),
		telemetry.AttrFrameCount.Int(children),
	)
	e.logger.Debugf("Navigated to %s (status %d): %d child frames, %d unsettled", nav.URL, nav.Status, children, unsettled)
	return nav, frames, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
