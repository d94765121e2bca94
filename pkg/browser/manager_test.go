package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/entrhq/probe/pkg/browser/browsertest"
	"github.com/entrhq/probe/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, bt *browsertest.BrowserType) *Manager {
	t.Helper()
	m := NewManager(WithBrowserType(bt))
	require.NoError(t, m.Initialize())
	return m
}

func TestManager_AcquireRelease(t *testing.T) {
	bt := &browsertest.BrowserType{}
	m := newTestManager(t, bt)

	cfg := config.DefaultConfig()
	cfg.WindowWidth = 375
	cfg.WindowHeight = 667
	cfg.HasTouch = true

	s, err := m.Acquire(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, m.ActiveSessions())
	assert.Equal(t, Viewport{Width: 375, Height: 667}, s.Viewport)

	browsers := bt.Launched()
	require.Len(t, browsers, 1)
	assert.Equal(t, "--window-size=375,667", browsers[0].Options.Args[0])
	assert.True(t, *browsers[0].Options.Headless)

	contexts := browsers[0].OpenedContexts()
	require.Len(t, contexts, 1)
	assert.Equal(t, 375, contexts[0].Options.Viewport.Width)
	assert.True(t, *contexts[0].Options.HasTouch)
	assert.Equal(t, float64(cfg.DefaultTimeout.Milliseconds()), contexts[0].DefaultTimeoutMs())

	require.NoError(t, m.Release(s))
	assert.Equal(t, 0, m.ActiveSessions())
	assert.True(t, m.Stats().Balanced())
	assert.Equal(t, 1, browsers[0].Closes())
	assert.Equal(t, 1, contexts[0].Closes())
	assert.Equal(t, 1, bt.OpenedPages()[0].Closes())
}

func TestManager_ReleaseIsIdempotent(t *testing.T) {
	bt := &browsertest.BrowserType{}
	m := newTestManager(t, bt)

	s, err := m.Acquire(context.Background(), config.DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, m.Release(s))
	require.NoError(t, m.Release(s))
	require.NoError(t, m.Release(nil))

	stats := m.Stats()
	assert.Equal(t, ResourceCounts{Acquired: 1, Released: 1}, stats[ResourceBrowser])
	assert.Equal(t, 1, bt.Launched()[0].Closes())
}

func TestManager_ReleaseContinuesPastCloseErrors(t *testing.T) {
	bt := &browsertest.BrowserType{CloseErr: errors.New("target closed")}
	m := newTestManager(t, bt)

	s, err := m.Acquire(context.Background(), config.DefaultConfig())
	require.NoError(t, err)

	err = m.Release(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close page")
	assert.Contains(t, err.Error(), "close browser")

	// Every handle was still closed and counted
	assert.True(t, m.Stats().Balanced())
	assert.Equal(t, 1, bt.Launched()[0].Closes())
}

func TestManager_AcquireFailures(t *testing.T) {
	tests := []struct {
		name     string
		bt       *browsertest.BrowserType
		resource string
	}{
		{
			name:     "launch fails",
			bt:       &browsertest.BrowserType{LaunchErr: errors.New("executable not found")},
			resource: ResourceBrowser,
		},
		{
			name:     "context fails",
			bt:       &browsertest.BrowserType{NewContextErr: errors.New("browser crashed")},
			resource: ResourceContext,
		},
		{
			name:     "page fails",
			bt:       &browsertest.BrowserType{NewPageErr: errors.New("out of memory")},
			resource: ResourcePage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, tt.bt)

			s, err := m.Acquire(context.Background(), config.DefaultConfig())
			assert.Nil(t, s)

			var acqErr *AcquisitionError
			require.ErrorAs(t, err, &acqErr)
			assert.Equal(t, tt.resource, acqErr.Resource)

			// Partial acquisitions are rolled back
			assert.True(t, m.Stats().Balanced(), "stats: %+v", m.Stats())
			assert.Equal(t, 0, m.ActiveSessions())
			for _, b := range tt.bt.Launched() {
				assert.Equal(t, 1, b.Closes())
			}
		})
	}
}

func TestManager_AcquireBeforeInitialize(t *testing.T) {
	m := NewManager(WithBrowserType(&browsertest.BrowserType{}))

	_, err := m.Acquire(context.Background(), config.DefaultConfig())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestManager_AcquireCanceled(t *testing.T) {
	bt := &browsertest.BrowserType{LaunchDelay: 200 * time.Millisecond}
	m := newTestManager(t, bt)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := m.Acquire(ctx, config.DefaultConfig())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 150*time.Millisecond)

	// The late browser is closed once launch returns and never counted
	assert.Eventually(t, func() bool {
		b := bt.Launched()
		return len(b) == 1 && b[0].Closes() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, ResourceCounts{}, m.Stats()[ResourceBrowser])
}

func TestManager_Shutdown(t *testing.T) {
	bt := &browsertest.BrowserType{}
	m := newTestManager(t, bt)

	for i := 0; i < 3; i++ {
		_, err := m.Acquire(context.Background(), config.DefaultConfig())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, m.ActiveSessions())

	require.NoError(t, m.Shutdown())
	assert.Equal(t, 0, m.ActiveSessions())

	stats := m.Stats()
	assert.True(t, stats.Balanced())
	assert.Equal(t, 3, stats[ResourcePage].Released)
}

func TestStats_Balanced(t *testing.T) {
	assert.True(t, Stats{}.Balanced())
	assert.True(t, Stats{ResourcePage: {Acquired: 2, Released: 2}}.Balanced())
	assert.False(t, Stats{ResourcePage: {Acquired: 2, Released: 1}}.Balanced())
}
