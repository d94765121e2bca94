package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/entrhq/probe/pkg/config"
	"github.com/entrhq/probe/pkg/logging"
	"github.com/entrhq/probe/pkg/telemetry"
	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
)

// Resource types tracked by the Manager.
const (
	ResourceBrowser = telemetry.ResourceBrowser
	ResourceContext = telemetry.ResourceContext
	ResourcePage    = telemetry.ResourcePage
)

// Manager acquires and releases browser sessions. It is safe for concurrent
// use; each run acquires its own Session and sessions are never shared.
type Manager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	stats       Stats
	playwright  *playwright.Playwright
	browserType playwright.BrowserType
	initialized bool

	logger  *logging.Logger
	metrics *telemetry.Metrics
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithBrowserType uses bt to launch browsers instead of the Chromium type of
// the Playwright driver started by Initialize.
func WithBrowserType(bt playwright.BrowserType) ManagerOption {
	return func(m *Manager) {
		m.browserType = bt
	}
}

// WithLogger sets the logger used for lifecycle and teardown errors.
func WithLogger(l *logging.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithMetrics records acquire/release counts in m.
func WithMetrics(metrics *telemetry.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager creates a new session manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		stats: Stats{
			ResourceBrowser: {},
			ResourceContext: {},
			ResourcePage:    {},
		},
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize installs and starts the Playwright driver. It holds no session
// state and is a no-op when already initialized or when a browser type was
// injected with WithBrowserType.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}
	if m.browserType != nil {
		m.initialized = true
		return nil
	}

	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.browserType = pw.Chromium
	m.initialized = true
	m.logger.Infof("Playwright driver started")
	return nil
}

// Acquire launches an isolated browser for cfg and opens one context and one
// page in it. On failure every resource acquired so far is released before an
// *AcquisitionError is returned.
func (m *Manager) Acquire(ctx context.Context, cfg config.Config) (*Session, error) {
	m.mu.Lock()
	bt := m.browserType
	ready := m.initialized
	m.mu.Unlock()

	if !ready || bt == nil {
		return nil, &AcquisitionError{Resource: ResourceBrowser, Err: ErrNotInitialized}
	}

	browser, err := acquire(ctx, func() (playwright.Browser, error) {
		return bt.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(cfg.Headless),
			Args:     cfg.LaunchArgs(),
		})
	}, func(b playwright.Browser) { _ = b.Close() })
	if err != nil {
		return nil, &AcquisitionError{Resource: ResourceBrowser, Err: err}
	}
	m.recordAcquired(ResourceBrowser)

	bctx, err := acquire(ctx, func() (playwright.BrowserContext, error) {
		return browser.NewContext(playwright.BrowserNewContextOptions{
			Viewport: &playwright.Size{
				Width:  cfg.WindowWidth,
				Height: cfg.WindowHeight,
			},
			HasTouch: playwright.Bool(cfg.HasTouch),
		})
	}, func(c playwright.BrowserContext) { _ = c.Close() })
	if err != nil {
		m.closeResource(ResourceBrowser, func() error { return browser.Close() })
		return nil, &AcquisitionError{Resource: ResourceContext, Err: err}
	}
	m.recordAcquired(ResourceContext)

	if cfg.DefaultTimeout > 0 {
		bctx.SetDefaultTimeout(float64(cfg.DefaultTimeout.Milliseconds()))
	}

	page, err := acquire(ctx, func() (playwright.Page, error) {
		return bctx.NewPage()
	}, func(p playwright.Page) { _ = p.Close() })
	if err != nil {
		m.closeResource(ResourceContext, func() error { return bctx.Close() })
		m.closeResource(ResourceBrowser, func() error { return browser.Close() })
		return nil, &AcquisitionError{Resource: ResourcePage, Err: err}
	}
	m.recordAcquired(ResourcePage)

	session := &Session{
		ID:             uuid.New().String(),
		Browser:        browser,
		Context:        bctx,
		Page:           page,
		DefaultTimeout: cfg.DefaultTimeout,
		Viewport:       Viewport{Width: cfg.WindowWidth, Height: cfg.WindowHeight},
		CreatedAt:      time.Now(),
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	m.logger.Debugf("Acquired session %s (%dx%d, headless=%t)", session.ID, cfg.WindowWidth, cfg.WindowHeight, cfg.Headless)
	return session, nil
}

// acquire runs open under ctx. If ctx is done first, a handle that open
// produces later is closed with discard and never counted.
func acquire[T any](ctx context.Context, open func() (T, error), discard func(T)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := open()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil {
				discard(r.v)
			}
		}()
		return zero, ctx.Err()
	}
}

// Release closes the session's page, context and browser in that order. A
// close error is logged and does not stop the remaining closes. Releasing a
// session twice is a no-op.
func (m *Manager) Release(s *Session) error {
	if s == nil {
		return nil
	}

	m.mu.Lock()
	if s.released {
		m.mu.Unlock()
		return nil
	}
	s.released = true
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	var errs []error
	if s.Page != nil {
		errs = append(errs, m.closeResource(ResourcePage, func() error { return s.Page.Close() }))
	}
	if s.Context != nil {
		errs = append(errs, m.closeResource(ResourceContext, func() error { return s.Context.Close() }))
	}
	if s.Browser != nil {
		errs = append(errs, m.closeResource(ResourceBrowser, func() error { return s.Browser.Close() }))
	}

	m.logger.Debugf("Released session %s", s.ID)
	return errors.Join(errs...)
}

// closeResource closes one handle. The release is counted whether or not the
// close succeeded: a handle that fails to close is already gone.
func (m *Manager) closeResource(resource string, closeFn func() error) error {
	err := closeFn()
	m.recordReleased(resource)
	if err != nil {
		m.logger.Warnf("Failed to close %s: %v", resource, err)
		return fmt.Errorf("close %s: %w", resource, err)
	}
	return nil
}

func (m *Manager) recordAcquired(resource string) {
	m.mu.Lock()
	c := m.stats[resource]
	c.Acquired++
	m.stats[resource] = c
	m.mu.Unlock()
	m.metrics.ResourceAcquired(resource)
}

func (m *Manager) recordReleased(resource string) {
	m.mu.Lock()
	c := m.stats[resource]
	c.Released++
	m.stats[resource] = c
	m.mu.Unlock()
	m.metrics.ResourceReleased(resource)
}

// Stats returns a copy of the per-resource acquire/release counts.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(Stats, len(m.stats))
	for k, v := range m.stats {
		out[k] = v
	}
	return out
}

// ActiveSessions returns the number of sessions acquired and not yet released.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown releases every live session and stops the Playwright driver if
// Initialize started one.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range live {
		if err := m.Release(s); err != nil {
			errs = append(errs, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		m.playwright = nil
		m.browserType = nil
	}
	m.initialized = false

	return errors.Join(errs...)
}
