package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Target identifies an element, optionally inside nested iframes.
type Target struct {
	Selector string
	Frames   []string
	Nth      int
}

func (t Target) String() string {
	if len(t.Frames) == 0 {
		return t.Selector
	}
	return strings.Join(t.Frames, " >> ") + " >> " + t.Selector
}

func (s *Session) locate(t Target) playwright.Locator {
	return Locate(s.Page, t.Frames, t.Selector, t.Nth)
}

// Click clicks the element matching t.
func (s *Session) Click(ctx context.Context, t Target, timeout time.Duration) error {
	err := Call(ctx, func() error {
		return s.locate(t).Click(playwright.LocatorClickOptions{Timeout: milliseconds(timeout)})
	})
	if err != nil {
		return fmt.Errorf("click %s failed: %w", t, err)
	}
	return nil
}

// Fill fills the input matching t with value.
func (s *Session) Fill(ctx context.Context, t Target, value string, timeout time.Duration) error {
	err := Call(ctx, func() error {
		return s.locate(t).Fill(value, playwright.LocatorFillOptions{Timeout: milliseconds(timeout)})
	})
	if err != nil {
		return fmt.Errorf("fill %s failed: %w", t, err)
	}
	return nil
}

// Tap taps the element matching t. The context must have been created with
// touch support.
func (s *Session) Tap(ctx context.Context, t Target, timeout time.Duration) error {
	err := Call(ctx, func() error {
		return s.locate(t).Tap(playwright.LocatorTapOptions{Timeout: milliseconds(timeout)})
	})
	if err != nil {
		return fmt.Errorf("tap %s failed: %w", t, err)
	}
	return nil
}

// TapPoint taps the viewport at (x, y) through the touchscreen.
func (s *Session) TapPoint(ctx context.Context, x, y int) error {
	err := Call(ctx, func() error {
		return s.Page.Touchscreen().Tap(x, y)
	})
	if err != nil {
		return fmt.Errorf("tap at (%d,%d) failed: %w", x, y, err)
	}
	return nil
}

// WaitVisible waits until the element matching t is visible.
func (s *Session) WaitVisible(ctx context.Context, t Target, timeout time.Duration) error {
	err := Call(ctx, func() error {
		return s.locate(t).WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: milliseconds(timeout),
		})
	})
	if err != nil {
		return fmt.Errorf("wait for %s failed: %w", t, err)
	}
	return nil
}

// ScrollIntoView scrolls the element matching t into the viewport.
func (s *Session) ScrollIntoView(ctx context.Context, t Target, timeout time.Duration) error {
	err := Call(ctx, func() error {
		return s.locate(t).ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{
			Timeout: milliseconds(timeout),
		})
	})
	if err != nil {
		return fmt.Errorf("scroll %s into view failed: %w", t, err)
	}
	return nil
}

// Wheel scrolls the page by deltaY pixels. Negative values scroll up.
func (s *Session) Wheel(ctx context.Context, deltaY float64) error {
	err := Call(ctx, func() error {
		return s.Page.Mouse().Wheel(0, deltaY)
	})
	if err != nil {
		return fmt.Errorf("scroll by %.0f failed: %w", deltaY, err)
	}
	return nil
}

// SetViewport resizes the page viewport.
func (s *Session) SetViewport(ctx context.Context, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("viewport size must be positive, got %dx%d", width, height)
	}
	err := Call(ctx, func() error {
		return s.Page.SetViewportSize(width, height)
	})
	if err != nil {
		return fmt.Errorf("set viewport %dx%d failed: %w", width, height, err)
	}
	s.Viewport = Viewport{Width: width, Height: height}
	return nil
}

// IsVisible reports whether the element matching t is currently visible.
func (s *Session) IsVisible(ctx context.Context, t Target) (bool, error) {
	return Await(ctx, func() (bool, error) {
		return s.locate(t).IsVisible()
	})
}

// TextContent returns the text content of the element matching t.
func (s *Session) TextContent(ctx context.Context, t Target, timeout time.Duration) (string, error) {
	return Await(ctx, func() (string, error) {
		return s.locate(t).TextContent(playwright.LocatorTextContentOptions{Timeout: milliseconds(timeout)})
	})
}

// Title returns the page title.
func (s *Session) Title(ctx context.Context) (string, error) {
	return Await(ctx, func() (string, error) {
		return s.Page.Title()
	})
}

// URL returns the current page URL.
func (s *Session) URL() string {
	return s.Page.URL()
}
