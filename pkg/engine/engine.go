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
	"github.com/google/uuid"
)

// Engine executes test cases. One Engine may run many test cases
// concurrently; each run acquires its own browser session.
type Engine struct {
	cfg      config.Config
	manager  *browser.Manager
	executor *Executor
	logger   *logging.Logger
	console  *logging.Console
	metrics  *telemetry.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithManager uses m to acquire sessions. By default the engine creates its
// own manager backed by the Playwright driver.
func WithManager(m *browser.Manager) Option {
	return func(e *Engine) {
		e.manager = m
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithConsole prints step progress and run summaries to c.
func WithConsole(c *logging.Console) Option {
	return func(e *Engine) {
		e.console = c
	}
}

// WithMetrics records run metrics in m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an engine for cfg.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e := &Engine{cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.Discard()
	}
	if e.manager == nil {
		e.manager = browser.NewManager(
			browser.WithLogger(e.logger.With("browser")),
			browser.WithMetrics(e.metrics),
		)
	}

	executor, err := NewExecutor(cfg, e.logger.With("executor"), e.console, e.metrics)
	if err != nil {
		return nil, err
	}
	e.executor = executor
	return e, nil
}

// Initialize starts the browser driver.
func (e *Engine) Initialize() error {
	return e.manager.Initialize()
}

// Close releases any live sessions and stops the browser driver.
func (e *Engine) Close() error {
	return e.manager.Shutdown()
}

// Manager returns the session manager used by the engine.
func (e *Engine) Manager() *browser.Manager {
	return e.manager
}

// Execute runs tc and returns its verdict. The session acquired for the run
// is released before Execute returns, whatever the outcome. Execute always
// returns exactly one verdict; it never panics.
func (e *Engine) Execute(ctx context.Context, tc *testcase.TestCase) (v Verdict) {
	start := time.Now()
	runID := uuid.New().String()

	var testCaseID string
	if tc != nil {
		testCaseID = tc.ID
	}

	ctx, span := telemetry.StartSpan(ctx, "probe.run",
		telemetry.AttrRunID.String(runID),
		telemetry.AttrTestCaseID.String(testCaseID),
	)

	defer func() {
		v.TestCaseID = testCaseID
		v.RunID = runID
		v.Elapsed = time.Since(start)

		span.SetAttributes(telemetry.AttrVerdict.String(string(v.Status)))
		var spanErr error
		if v.Status == StatusError {
			spanErr = fmt.Errorf("%s", v.Message)
		}
		telemetry.EndSpan(span, spanErr)

		e.metrics.Verdict(string(v.Status), v.Elapsed)
		e.logger.Infof("Run %s of %s finished: %s (%s) in %s", runID, testCaseID, v.Status, v.Message, v.Elapsed)
		if e.console != nil {
			e.console.Summary(v.RunSummary())
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorf("Run %s panicked: %v\n%s", runID, r, debug.Stack())
			outcomes := v.Outcomes
			v = errorVerdict("run panicked: %v", r)
			v.Outcomes = outcomes
		}
	}()

	if tc == nil {
		return errorVerdict("nil test case")
	}
	if err := tc.Validate(); err != nil {
		return errorVerdict("invalid test case: %v", err)
	}
	tc = tc.Clone()

	if e.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RunTimeout)
		defer cancel()
	}

	if e.console != nil {
		e.console.Header(fmt.Sprintf("Running %s", tc.ID))
	}
	e.logger.Infof("Run %s of %s started (%d steps, %d assertions)", runID, tc.ID, len(tc.Steps), len(tc.Assertions))

	session, err := e.manager.Acquire(ctx, e.cfg)
	if err != nil {
		return errorVerdict("session acquisition failed: %v", err)
	}
	defer func() {
		if err := e.manager.Release(session); err != nil {
			e.logger.Warnf("Run %s released with errors: %v", runID, err)
		}
	}()

	if tc.EntryURL != "" {
		if _, _, err := e.executor.Load(ctx, session, tc.EntryURL); err != nil {
			return errorVerdict("entry navigation failed: %v", err)
		}
	}

	res := e.executor.Run(ctx, session, tc.Steps)
	v.Outcomes = res.Outcomes
	v = Evaluate(ctx, session, res, tc.Assertions)
	if !v.Passed() {
		v.Snapshot = e.snapshot(ctx, session)
	}
	return v
}

// snapshot captures the page for diagnostics. It runs even after the run
// context is done, bounded by the readiness timeout.
func (e *Engine) snapshot(ctx context.Context, s *browser.Session) *browser.PageSnapshot {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.ReadinessTimeout)
	defer cancel()

	snap, err := browser.Snapshot(ctx, s, browser.DefaultSnapshotLength)
	if err != nil {
		e.logger.Warnf("Failed to capture page snapshot: %v", err)
		return nil
	}
	return snap
}

// ExecuteTestCase runs tc with a fresh engine for cfg and returns its
// verdict. Configuration and driver start-up failures are error verdicts.
func ExecuteTestCase(ctx context.Context, cfg config.Config, tc *testcase.TestCase, opts ...Option) Verdict {
	e, err := New(cfg, opts...)
	if err != nil {
		return failedStart(tc, err)
	}
	if err := e.Initialize(); err != nil {
		return failedStart(tc, fmt.Errorf("failed to start browser driver: %w", err))
	}
	defer func() {
		if err := e.Close(); err != nil {
			e.logger.Warnf("Engine shutdown: %v", err)
		}
	}()

	return e.Execute(ctx, tc)
}

func failedStart(tc *testcase.TestCase, err error) Verdict {
	v := errorVerdict("%v", err)
	v.RunID = uuid.New().String()
	if tc != nil {
		v.TestCaseID = tc.ID
	}
	return v
}
