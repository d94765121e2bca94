package engine

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/entrhq/probe/pkg/browser"
	"github.com/entrhq/probe/pkg/browser/browsertest"
	"github.com/entrhq/probe/pkg/config"
	"github.com/entrhq/probe/pkg/logging"
	"github.com/entrhq/probe/pkg/telemetry"
	"github.com/entrhq/probe/pkg/testcase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loginPage serves a page with a login form and a dashboard banner.
func loginPage() *browsertest.Page {
	p := browsertest.NewPage()
	p.PageTitle = "Acme"
	p.HTML = `<html><head><title>Acme</title></head><body><h1>Please sign in</h1></body></html>`
	p.AddLocator("#email")
	p.AddLocator("#password")
	p.AddLocator("text=Sign in")
	p.AddLocator("text=Dashboard")
	return p
}

func newTestEngine(t *testing.T, bt *browsertest.BrowserType, cfg config.Config, opts ...Option) *Engine {
	t.Helper()
	m := browser.NewManager(browser.WithBrowserType(bt))
	e, err := New(cfg, append([]Option{WithManager(m)}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func loginCase(t *testing.T) *testcase.TestCase {
	t.Helper()
	tc, err := testcase.New("auth_001", "http://localhost:3000/login",
		[]testcase.Step{
			testcase.Type("#email", "user@example.com"),
			testcase.Type("#password", "secret"),
			testcase.Click("text=Sign in"),
			testcase.Sleep(time.Millisecond),
		},
		[]testcase.Assertion{
			testcase.Visible("text=Dashboard"),
			testcase.TitleContains("Acme"),
		},
	)
	require.NoError(t, err)
	return tc
}

func TestExecute_Pass(t *testing.T) {
	bt := &browsertest.BrowserType{PageFactory: loginPage}
	e := newTestEngine(t, bt, testConfig())

	v := e.Execute(context.Background(), loginCase(t))

	assert.Equal(t, StatusPass, v.Status, v.Message)
	assert.Equal(t, "auth_001", v.TestCaseID)
	assert.NotEmpty(t, v.RunID)
	assert.Nil(t, v.FailingStepIndex)
	assert.Nil(t, v.Snapshot)
	assert.Len(t, v.Outcomes, 4)
	assert.Greater(t, v.Elapsed, time.Duration(0))

	pages := bt.OpenedPages()
	require.Len(t, pages, 1)
	assert.Equal(t, []string{"http://localhost:3000/login"}, pages[0].Visited())
	assert.True(t, e.Manager().Stats().Balanced())
}

func TestExecute_ResourceBalance(t *testing.T) {
	tests := []struct {
		name  string
		steps []testcase.Step
		want  Status
	}{
		{
			name:  "fatal step mid-script",
			steps: []testcase.Step{testcase.Click("#email"), testcase.Wait("#missing").Fatal(), testcase.Click("#email")},
			want:  StatusError,
		},
		{
			name:  "escalation",
			steps: []testcase.Step{testcase.Click("#x"), testcase.Click("#x"), testcase.Click("#x")},
			want:  StatusError,
		},
		{
			name:  "explicit failure",
			steps: []testcase.Step{testcase.Fail("generic failure assertion")},
			want:  StatusFail,
		},
		{
			name:  "panicking assertion",
			steps: []testcase.Step{testcase.Sleep(0)},
			want:  StatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bt := &browsertest.BrowserType{PageFactory: loginPage}
			e := newTestEngine(t, bt, testConfig())

			assertions := []testcase.Assertion{testcase.Visible("text=Dashboard")}
			if tt.name == "panicking assertion" {
				assertions = []testcase.Assertion{testcase.Custom("boom", func(ctx context.Context, s *browser.Session) (bool, error) {
					panic("predicate exploded")
				})}
			}
			tc := testcase.MustNew("tc", "http://localhost:3000/", tt.steps, assertions)

			v := e.Execute(context.Background(), tc)
			assert.Equal(t, tt.want, v.Status, v.Message)

			stats := e.Manager().Stats()
			assert.True(t, stats.Balanced(), "stats: %+v", stats)
			assert.Equal(t, 1, stats[browser.ResourceBrowser].Released)
			assert.Equal(t, 0, e.Manager().ActiveSessions())
			assert.Equal(t, 1, bt.Launched()[0].Closes())
		})
	}
}

func TestExecute_PanickingAssertionKeepsOutcomes(t *testing.T) {
	bt := &browsertest.BrowserType{PageFactory: loginPage}
	e := newTestEngine(t, bt, testConfig())

	tc := testcase.MustNew("tc", "http://localhost:3000/", []testcase.Step{
		testcase.Type("#email", "user@example.com"),
		testcase.Click("text=Sign in"),
	}, []testcase.Assertion{testcase.Custom("boom", func(ctx context.Context, s *browser.Session) (bool, error) {
		panic("predicate exploded")
	})})

	v := e.Execute(context.Background(), tc)

	assert.Equal(t, StatusError, v.Status)
	assert.Contains(t, v.Message, "predicate exploded")
	require.Len(t, v.Outcomes, 2)
	assert.Equal(t, OutcomeCompleted, v.Outcomes[0].Outcome)
	assert.Equal(t, OutcomeCompleted, v.Outcomes[1].Outcome)
	assert.True(t, e.Manager().Stats().Balanced())
}

func TestExecute_ExplicitFailureMessage(t *testing.T) {
	bt := &browsertest.BrowserType{PageFactory: loginPage}
	e := newTestEngine(t, bt, testConfig())

	calls := 0
	tc := testcase.MustNew("auth_002", "http://localhost:3000/", []testcase.Step{
		testcase.Click("text=Sign in"),
		testcase.Fail("generic failure assertion"),
	}, []testcase.Assertion{holds("never evaluated", true, &calls)})

	v := e.Execute(context.Background(), tc)

	assert.Equal(t, StatusFail, v.Status)
	assert.Equal(t, "generic failure assertion", v.Message)
	assert.Equal(t, 1, *v.FailingStepIndex)
	assert.Equal(t, 0, calls)

	require.NotNil(t, v.Snapshot, "failed runs carry a page snapshot")
	assert.Equal(t, "http://localhost:3000/", v.Snapshot.URL)
	assert.Contains(t, v.Snapshot.Text, "Please sign in")
}

func TestExecute_EscalationIndex(t *testing.T) {
	bt := &browsertest.BrowserType{PageFactory: loginPage}
	e := newTestEngine(t, bt, testConfig())

	tc := testcase.MustNew("tc", "http://localhost:3000/", []testcase.Step{
		testcase.Click("#nonexistent"),
		testcase.Click("#nonexistent"),
		testcase.Click("#nonexistent"),
		testcase.Click("#nonexistent"),
	}, []testcase.Assertion{testcase.Visible("text=Dashboard")})

	v := e.Execute(context.Background(), tc)

	assert.Equal(t, StatusError, v.Status)
	require.NotNil(t, v.FailingStepIndex)
	assert.Equal(t, 2, *v.FailingStepIndex)
}

func TestExecute_TouchNeedsTouchContext(t *testing.T) {
	tests := []struct {
		name     string
		hasTouch bool
		want     Outcome
	}{
		{name: "touch enabled", hasTouch: true, want: OutcomeCompleted},
		{name: "touch disabled", hasTouch: false, want: OutcomeErrored},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.HasTouch = tt.hasTouch
			bt := &browsertest.BrowserType{PageFactory: loginPage}
			e := newTestEngine(t, bt, cfg)

			tc := testcase.MustNew("touch", "http://localhost:3000/", []testcase.Step{
				testcase.TapAt(100, 100),
			}, []testcase.Assertion{testcase.TitleContains("Acme")})

			v := e.Execute(context.Background(), tc)
			require.Len(t, v.Outcomes, 1)
			assert.Equal(t, tt.want, v.Outcomes[0].Outcome, "%v", v.Outcomes[0].Err)
		})
	}
}

func TestExecute_AcquisitionFailure(t *testing.T) {
	bt := &browsertest.BrowserType{NewContextErr: errors.New("browser crashed")}
	e := newTestEngine(t, bt, testConfig())

	v := e.Execute(context.Background(), loginCase(t))

	assert.Equal(t, StatusError, v.Status)
	assert.Contains(t, v.Message, "session acquisition failed")
	assert.Nil(t, v.FailingStepIndex)
	assert.Empty(t, v.Outcomes)
	assert.True(t, e.Manager().Stats().Balanced())
}

func TestExecute_EntryNavigationFailure(t *testing.T) {
	bt := &browsertest.BrowserType{PageFactory: func() *browsertest.Page {
		p := loginPage()
		p.GotoFunc = browsertest.Refused
		return p
	}}
	e := newTestEngine(t, bt, testConfig())

	v := e.Execute(context.Background(), loginCase(t))

	assert.Equal(t, StatusError, v.Status)
	assert.Contains(t, v.Message, "entry navigation failed")
	assert.True(t, e.Manager().Stats().Balanced())
}

func TestExecute_RunTimeoutReleasesSession(t *testing.T) {
	cfg := testConfig()
	cfg.RunTimeout = 50 * time.Millisecond
	bt := &browsertest.BrowserType{PageFactory: loginPage}
	e := newTestEngine(t, bt, cfg)

	tc := testcase.MustNew("slow", "http://localhost:3000/", []testcase.Step{
		testcase.Sleep(10 * time.Second),
	}, []testcase.Assertion{testcase.Visible("text=Dashboard")})

	start := time.Now()
	v := e.Execute(context.Background(), tc)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, StatusError, v.Status)
	assert.Contains(t, v.Message, "canceled")
	assert.True(t, e.Manager().Stats().Balanced())
}

func TestExecute_InvalidTestCase(t *testing.T) {
	bt := &browsertest.BrowserType{}
	e := newTestEngine(t, bt, testConfig())

	v := e.Execute(context.Background(), nil)
	assert.Equal(t, StatusError, v.Status)

	v = e.Execute(context.Background(), &testcase.TestCase{ID: "bad", Steps: []testcase.Step{{Kind: "hover"}}})
	assert.Equal(t, StatusError, v.Status)
	assert.Contains(t, v.Message, "invalid test case")
	assert.Empty(t, bt.Launched())
}

func TestExecute_Deterministic(t *testing.T) {
	bt := &browsertest.BrowserType{PageFactory: loginPage}
	e := newTestEngine(t, bt, testConfig())
	tc := loginCase(t)

	first := e.Execute(context.Background(), tc)
	second := e.Execute(context.Background(), tc)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Message, second.Message)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestExecute_ConcurrentRuns(t *testing.T) {
	bt := &browsertest.BrowserType{PageFactory: loginPage}
	e := newTestEngine(t, bt, testConfig())
	tc := loginCase(t)

	const runs = 5
	verdicts := make([]Verdict, runs)
	var wg sync.WaitGroup
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			verdicts[i] = e.Execute(context.Background(), tc)
		}(i)
	}
	wg.Wait()

	for _, v := range verdicts {
		assert.Equal(t, StatusPass, v.Status, v.Message)
	}
	stats := e.Manager().Stats()
	assert.Equal(t, runs, stats[browser.ResourcePage].Acquired)
	assert.True(t, stats.Balanced())
	assert.Len(t, bt.Launched(), runs)
}

func TestExecute_ConsoleAndMetrics(t *testing.T) {
	var out bytes.Buffer
	console := logging.NewConsoleWriter(&out, logging.VerbosityNormal)
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())

	bt := &browsertest.BrowserType{PageFactory: loginPage}
	e := newTestEngine(t, bt, testConfig(), WithConsole(console), WithMetrics(metrics))

	v := e.Execute(context.Background(), loginCase(t))
	require.Equal(t, StatusPass, v.Status, v.Message)

	text := out.String()
	assert.Contains(t, text, "Running auth_001")
	assert.Contains(t, text, "[2] click text=Sign in")
	assert.Contains(t, text, "RUN SUMMARY")
	assert.Contains(t, text, "PASS")
}

func TestExecuteTestCase_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConsecutiveInteractionFailures = 0

	v := ExecuteTestCase(context.Background(), cfg, loginCase(t))

	assert.Equal(t, StatusError, v.Status)
	assert.Equal(t, "auth_001", v.TestCaseID)
	assert.Contains(t, v.Message, "max_consecutive_interaction_failures")
}

func TestExecuteTestCase_WithInjectedManager(t *testing.T) {
	bt := &browsertest.BrowserType{PageFactory: loginPage}
	m := browser.NewManager(browser.WithBrowserType(bt))

	v := ExecuteTestCase(context.Background(), testConfig(), loginCase(t), WithManager(m))

	assert.Equal(t, StatusPass, v.Status, v.Message)
	assert.True(t, m.Stats().Balanced())
}
