package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/entrhq/probe/pkg/browser/browsertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_ClickInsideNestedFrames(t *testing.T) {
	page := browsertest.NewPage()
	checkbox := page.AddFrameLocator(
		[]string{"iframe[title='reCAPTCHA']"},
		"xpath=//*[@id='recaptcha-anchor']",
	)
	s := newTestSession(page)

	target := Target{
		Selector: "xpath=//*[@id='recaptcha-anchor']",
		Frames:   []string{"iframe[title='reCAPTCHA']"},
	}
	require.NoError(t, s.Click(context.Background(), target, time.Second))

	assert.Equal(t, 1, checkbox.Clicks())
	assert.Equal(t, []int{0}, checkbox.NthCalls())
	assert.Equal(t, "iframe[title='reCAPTCHA'] >> xpath=//*[@id='recaptcha-anchor']", target.String())
}

func TestSession_MissingElementTimesOut(t *testing.T) {
	s := newTestSession(browsertest.NewPage())

	err := s.Click(context.Background(), Target{Selector: "#missing"}, 50*time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.Contains(t, err.Error(), "click #missing failed")
}

func TestSession_ActionErrorIsWrapped(t *testing.T) {
	page := browsertest.NewPage()
	detached := errors.New("element is not attached to the DOM")
	page.AddLocator("#stale").ActErr = detached
	s := newTestSession(page)

	err := s.Click(context.Background(), Target{Selector: "#stale"}, time.Second)
	require.ErrorIs(t, err, detached)
	assert.False(t, IsTimeout(err))

	_, err = s.IsVisible(context.Background(), Target{Selector: "#stale"})
	require.ErrorIs(t, err, detached)
}

func TestSession_HangingElementBoundedByContext(t *testing.T) {
	page := browsertest.NewPage()
	page.AddLocator("#slow").Hang = true
	s := newTestSession(page)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := s.Fill(ctx, Target{Selector: "#slow"}, "hello", time.Second)
	assert.True(t, IsTimeout(err))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSession_FillTapAndText(t *testing.T) {
	page := browsertest.NewPage()
	email := page.AddLocator("#email")
	button := page.AddLocator("text=Sign in")
	banner := page.AddLocator("#banner")
	banner.Text = "Welcome back"
	s := newTestSession(page)
	ctx := context.Background()

	require.NoError(t, s.Fill(ctx, Target{Selector: "#email"}, "user@example.com", time.Second))
	require.NoError(t, s.Tap(ctx, Target{Selector: "text=Sign in"}, time.Second))
	require.NoError(t, s.WaitVisible(ctx, Target{Selector: "#banner"}, time.Second))

	text, err := s.TextContent(ctx, Target{Selector: "#banner"}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Welcome back", text)

	visible, err := s.IsVisible(ctx, Target{Selector: "#nope"})
	require.NoError(t, err)
	assert.False(t, visible)

	assert.Equal(t, []string{"user@example.com"}, email.Fills())
	assert.Equal(t, 1, button.Taps())
}

func TestSession_ViewportWheelAndTouch(t *testing.T) {
	page := browsertest.NewPage()
	s := newTestSession(page)
	ctx := context.Background()

	require.NoError(t, s.SetViewport(ctx, 375, 667))
	assert.Equal(t, Viewport{Width: 375, Height: 667}, s.Viewport)
	assert.Equal(t, 375, page.ViewportSize().Width)

	assert.Error(t, s.SetViewport(ctx, 0, 667))

	require.NoError(t, s.Wheel(ctx, -667))
	assert.Equal(t, []float64{-667}, page.MouseDevice.Deltas())

	require.NoError(t, s.TapPoint(ctx, 100, 100))
	assert.Equal(t, [][2]int{{100, 100}}, page.TouchDevice.Taps())
}

func TestAwait_ReturnsImmediatelyOnDoneContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := Call(ctx, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestAwait_RecoversPanics(t *testing.T) {
	_, err := Await(context.Background(), func() (int, error) {
		panic("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
