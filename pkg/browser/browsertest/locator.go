package browsertest

import (
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Locator is a fake playwright.Locator. Nth and First return the locator
// itself, so every index resolves to the same element.
type Locator struct {
	pwLocator

	Selector string
	Visible  bool
	Text     string

	// ActErr is returned by every action
	ActErr error
	// Hang makes actions block until their timeout
	Hang bool
	// Missing elements fail every action with a Playwright timeout
	Missing bool

	mu     sync.Mutex
	clicks int
	taps   int
	fills  []string
	nth    []int
}

func (l *Locator) act(timeout *float64) error {
	if l.Hang {
		return hang(timeout)
	}
	if l.Missing {
		return fmt.Errorf("%w: waiting for locator(%q)", playwright.ErrTimeout, l.Selector)
	}
	return l.ActErr
}

// Err reports a malformed locator. Fake locators are always well formed.
func (l *Locator) Err() error {
	return nil
}

func (l *Locator) Nth(index int) playwright.Locator {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nth = append(l.nth, index)
	return l
}

func (l *Locator) First() playwright.Locator {
	return l.Nth(0)
}

func (l *Locator) Click(options ...playwright.LocatorClickOptions) error {
	var timeout *float64
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	if err := l.act(timeout); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clicks++
	return nil
}

func (l *Locator) Tap(options ...playwright.LocatorTapOptions) error {
	var timeout *float64
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	if err := l.act(timeout); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.taps++
	return nil
}

func (l *Locator) Fill(value string, options ...playwright.LocatorFillOptions) error {
	var timeout *float64
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	if err := l.act(timeout); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fills = append(l.fills, value)
	return nil
}

func (l *Locator) WaitFor(options ...playwright.LocatorWaitForOptions) error {
	var timeout *float64
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	if err := l.act(timeout); err != nil {
		return err
	}
	if !l.Visible {
		return hang(timeout)
	}
	return nil
}

func (l *Locator) ScrollIntoViewIfNeeded(options ...playwright.LocatorScrollIntoViewIfNeededOptions) error {
	var timeout *float64
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	return l.act(timeout)
}

func (l *Locator) IsVisible(options ...playwright.LocatorIsVisibleOptions) (bool, error) {
	if l.Missing {
		return false, nil
	}
	return l.Visible, l.ActErr
}

func (l *Locator) TextContent(options ...playwright.LocatorTextContentOptions) (string, error) {
	var timeout *float64
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	if err := l.act(timeout); err != nil {
		return "", err
	}
	return l.Text, nil
}

// Clicks returns the number of successful clicks.
func (l *Locator) Clicks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clicks
}

// Taps returns the number of successful taps.
func (l *Locator) Taps() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.taps
}

// Fills returns the values filled in so far.
func (l *Locator) Fills() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.fills...)
}

// NthCalls returns the indexes passed to Nth.
func (l *Locator) NthCalls() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]int(nil), l.nth...)
}
