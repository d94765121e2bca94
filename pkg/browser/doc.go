// Package browser owns the Playwright side of a verification run.
//
// A run acquires exactly one Session from a Manager: an isolated browser
// process, one context and one page. The session is exclusively owned by the
// run and is released page first, then context, then browser, on every exit
// path. The Manager keeps per-resource acquire/release counts so callers can
// check that no browser process outlived its run.
//
// # Navigation
//
// Goto loads a URL with two deadlines. The outer deadline covers the commit of
// the navigation and failing it fails the navigation. The inner deadline covers
// the page reaching domcontentloaded and is best effort: a page that never gets
// there is still usable for the steps that follow.
//
// # Frames
//
// A FrameWalker snapshots the frame tree of a page into a flat arena of
// FrameNode values and waits for every frame concurrently, each with its own
// readiness timeout. Frames that never settle are recorded as unsettled and do
// not fail the run. Frames whose URL matches a skip pattern, such as embedded
// human-verification challenges, are recorded as skipped without waiting.
//
// # Cancellation
//
// Playwright calls are blocking. Every call made from this package goes through
// Await or Call, which return as soon as the context is done.
//
// # Example Usage
//
//	manager := browser.NewManager(browser.WithLogger(logger))
//	if err := manager.Initialize(); err != nil {
//	    return err
//	}
//	defer manager.Shutdown()
//
//	session, err := manager.Acquire(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer manager.Release(session)
//
//	res, err := browser.Goto(ctx, session, "http://localhost:3000/login", cfg.NavigationTimeout, cfg.ReadinessTimeout)
package browser
