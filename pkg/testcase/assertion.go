package testcase

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/entrhq/probe/pkg/browser"
	"github.com/gobwas/glob"
)

// assertionTimeout bounds element lookups made by the built-in assertions
// when the session has no default timeout.
const assertionTimeout = 5 * time.Second

// Predicate inspects the page state after the script ran. An error means the
// page could not be inspected, not that the expectation failed.
type Predicate func(ctx context.Context, s *browser.Session) (bool, error)

// Assertion is a described expectation about the final page state.
type Assertion struct {
	Description string
	Check       Predicate
}

// Custom builds an assertion from an arbitrary predicate.
func Custom(description string, check Predicate) Assertion {
	return Assertion{Description: description, Check: check}
}

// Visible holds when selector matches a visible element.
func Visible(selector string, frames ...string) Assertion {
	t := browser.Target{Selector: selector, Frames: frames}
	return Assertion{
		Description: fmt.Sprintf("%s is visible", t),
		Check: func(ctx context.Context, s *browser.Session) (bool, error) {
			return s.IsVisible(ctx, t)
		},
	}
}

// Hidden holds when selector matches no visible element.
func Hidden(selector string, frames ...string) Assertion {
	t := browser.Target{Selector: selector, Frames: frames}
	return Assertion{
		Description: fmt.Sprintf("%s is hidden", t),
		Check: func(ctx context.Context, s *browser.Session) (bool, error) {
			visible, err := s.IsVisible(ctx, t)
			return !visible, err
		},
	}
}

// TextContains holds when the text of selector contains substr. A missing
// element does not hold.
func TextContains(selector, substr string) Assertion {
	t := browser.Target{Selector: selector}
	return Assertion{
		Description: fmt.Sprintf("%s contains %q", selector, substr),
		Check: func(ctx context.Context, s *browser.Session) (bool, error) {
			timeout := s.DefaultTimeout
			if timeout <= 0 {
				timeout = assertionTimeout
			}
			text, err := s.TextContent(ctx, t, timeout)
			if err != nil {
				if browser.IsTimeout(err) && ctx.Err() == nil {
					return false, nil
				}
				return false, err
			}
			return strings.Contains(text, substr), nil
		},
	}
}

// URLMatches holds when the page URL matches the glob pattern.
func URLMatches(pattern string) Assertion {
	g, compileErr := glob.Compile(pattern)
	return Assertion{
		Description: fmt.Sprintf("URL matches %s", pattern),
		Check: func(ctx context.Context, s *browser.Session) (bool, error) {
			if compileErr != nil {
				return false, fmt.Errorf("invalid URL pattern %q: %w", pattern, compileErr)
			}
			return g.Match(s.URL()), nil
		},
	}
}

// TitleContains holds when the page title contains substr.
func TitleContains(substr string) Assertion {
	return Assertion{
		Description: fmt.Sprintf("title contains %q", substr),
		Check: func(ctx context.Context, s *browser.Session) (bool, error) {
			title, err := s.Title(ctx)
			if err != nil {
				return false, err
			}
			return strings.Contains(title, substr), nil
		},
	}
}

// PageTextContains holds when the visible text of the page contains substr.
// Scripts, styles and embedded frames are not part of the visible text.
func PageTextContains(substr string) Assertion {
	return Assertion{
		Description: fmt.Sprintf("page text contains %q", substr),
		Check: func(ctx context.Context, s *browser.Session) (bool, error) {
			snap, err := browser.Snapshot(ctx, s, math.MaxInt)
			if err != nil {
				return false, err
			}
			return strings.Contains(snap.Text, substr), nil
		},
	}
}
