package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Goto navigates the session's page to url.
//
// The navigation must commit within timeout; otherwise Goto returns an error
// and a result with Committed false. Once committed, Goto waits up to
// readiness for domcontentloaded. Missing that deadline only leaves
// ReadyStateReached false. An error is returned in that phase only when ctx
// itself is done.
func Goto(ctx context.Context, s *Session, url string, timeout, readiness time.Duration) (NavResult, error) {
	result := NavResult{URL: url}

	navCtx, cancel := context.WithTimeout(ctx, timeout)
	resp, err := Await(navCtx, func() (playwright.Response, error) {
		return s.Page.Goto(url, playwright.PageGotoOptions{
			Timeout:   milliseconds(timeout),
			WaitUntil: playwright.WaitUntilStateCommit,
		})
	})
	cancel()
	if err != nil {
		return result, fmt.Errorf("navigation to %s not committed within %s: %w", url, timeout, err)
	}

	result.Committed = true
	if resp != nil {
		result.Status = resp.Status()
	}

	readyCtx, cancel := context.WithTimeout(ctx, readiness)
	err = Call(readyCtx, func() error {
		return s.Page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateDomcontentloaded,
			Timeout: milliseconds(readiness),
		})
	})
	cancel()

	switch {
	case err == nil:
		result.ReadyStateReached = true
	case ctx.Err() != nil:
		return result, ctx.Err()
	}

	if current := s.Page.URL(); current != "" {
		result.URL = current
	}
	return result, nil
}
