// Package browsertest provides in-memory Playwright fakes for testing code
// built on package browser, in the spirit of net/http/httptest.
//
// Each fake embeds the Playwright interface it stands in for. Only the
// methods used by the engine are implemented; calling any other method
// panics, which is what a test wants to know about.
package browsertest

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Embedded under local names so that no embedded field shadows an interface
// method of the same name, such as Locator.Locator.
type (
	pwBrowserType    = playwright.BrowserType
	pwBrowser        = playwright.Browser
	pwBrowserContext = playwright.BrowserContext
	pwPage           = playwright.Page
	pwFrame          = playwright.Frame
	pwFrameLocator   = playwright.FrameLocator
	pwLocator        = playwright.Locator
	pwMouse          = playwright.Mouse
	pwTouchscreen    = playwright.Touchscreen
	pwResponse       = playwright.Response
)

// hang blocks for the Playwright timeout carried in an options struct, then
// fails the way Playwright does. Without a timeout it blocks for a minute.
func hang(timeout *float64) error {
	d := time.Minute
	if timeout != nil {
		d = time.Duration(*timeout) * time.Millisecond
	}
	time.Sleep(d)
	return fmt.Errorf("%w: exceeded %s", playwright.ErrTimeout, d)
}

// BrowserType launches fake browsers. Every launch yields a new Browser with
// one context and one page built by PageFactory.
type BrowserType struct {
	pwBrowserType

	LaunchErr     error
	NewContextErr error
	NewPageErr    error
	// CloseErr is returned by every Close on browsers, contexts and pages
	CloseErr error
	// LaunchDelay is slept before Launch returns
	LaunchDelay time.Duration
	// PageFactory builds the page for each new context; defaults to NewPage
	PageFactory func() *Page

	mu       sync.Mutex
	browsers []*Browser
}

func (bt *BrowserType) Launch(options ...playwright.BrowserTypeLaunchOptions) (playwright.Browser, error) {
	if bt.LaunchDelay > 0 {
		time.Sleep(bt.LaunchDelay)
	}
	if bt.LaunchErr != nil {
		return nil, bt.LaunchErr
	}

	b := &Browser{bt: bt}
	if len(options) > 0 {
		b.Options = options[0]
	}

	bt.mu.Lock()
	bt.browsers = append(bt.browsers, b)
	bt.mu.Unlock()
	return b, nil
}

// Launched returns every browser launched so far.
func (bt *BrowserType) Launched() []*Browser {
	bt.mu.Lock()
	defer bt.mu.Unlock()
	return append([]*Browser(nil), bt.browsers...)
}

// OpenedPages returns every page opened so far, in launch order.
func (bt *BrowserType) OpenedPages() []*Page {
	var pages []*Page
	for _, b := range bt.Launched() {
		for _, c := range b.OpenedContexts() {
			pages = append(pages, c.OpenedPages()...)
		}
	}
	return pages
}

// Browser is a fake playwright.Browser.
type Browser struct {
	pwBrowser

	Options playwright.BrowserTypeLaunchOptions

	bt       *BrowserType
	mu       sync.Mutex
	contexts []*Context
	closes   atomic.Int32
}

func (b *Browser) NewContext(options ...playwright.BrowserNewContextOptions) (playwright.BrowserContext, error) {
	if b.bt.NewContextErr != nil {
		return nil, b.bt.NewContextErr
	}
	c := &Context{browser: b}
	if len(options) > 0 {
		c.Options = options[0]
	}

	b.mu.Lock()
	b.contexts = append(b.contexts, c)
	b.mu.Unlock()
	return c, nil
}

// OpenedContexts returns the contexts created in this browser.
func (b *Browser) OpenedContexts() []*Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Context(nil), b.contexts...)
}

func (b *Browser) Close(options ...playwright.BrowserCloseOptions) error {
	b.closes.Add(1)
	return b.bt.CloseErr
}

// Closes returns how many times Close was called.
func (b *Browser) Closes() int {
	return int(b.closes.Load())
}

// Context is a fake playwright.BrowserContext.
type Context struct {
	pwBrowserContext

	Options playwright.BrowserNewContextOptions

	browser        *Browser
	mu             sync.Mutex
	defaultTimeout float64
	pages          []*Page
	closes         atomic.Int32
}

func (c *Context) SetDefaultTimeout(timeout float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultTimeout = timeout
}

// DefaultTimeoutMs returns the value passed to SetDefaultTimeout.
func (c *Context) DefaultTimeoutMs() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaultTimeout
}

func (c *Context) NewPage() (playwright.Page, error) {
	bt := c.browser.bt
	if bt.NewPageErr != nil {
		return nil, bt.NewPageErr
	}

	var p *Page
	if bt.PageFactory != nil {
		p = bt.PageFactory()
	} else {
		p = NewPage()
	}
	p.closeErr = bt.CloseErr
	if p.TouchDevice != nil && (c.Options.HasTouch == nil || !*c.Options.HasTouch) {
		p.TouchDevice.Disabled = true
	}

	c.mu.Lock()
	c.pages = append(c.pages, p)
	c.mu.Unlock()
	return p, nil
}

// OpenedPages returns the pages opened in this context.
func (c *Context) OpenedPages() []*Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Page(nil), c.pages...)
}

func (c *Context) Close(options ...playwright.BrowserContextCloseOptions) error {
	c.closes.Add(1)
	return c.browser.bt.CloseErr
}

// Closes returns how many times Close was called.
func (c *Context) Closes() int {
	return int(c.closes.Load())
}

// Response is a fake playwright.Response.
type Response struct {
	pwResponse
	StatusCode int
}

func (r *Response) Status() int {
	return r.StatusCode
}

// Frame is a fake playwright.Frame.
type Frame struct {
	pwFrame

	FrameURL  string
	FrameName string
	Children  []*Frame
	Detached  bool

	// Hang makes WaitForLoadState block until its timeout
	Hang bool
	// LoadDelay is slept before WaitForLoadState succeeds
	LoadDelay time.Duration

	waits atomic.Int32
}

func (f *Frame) URL() string  { return f.FrameURL }
func (f *Frame) Name() string { return f.FrameName }

func (f *Frame) IsDetached() bool { return f.Detached }

func (f *Frame) ChildFrames() []playwright.Frame {
	out := make([]playwright.Frame, 0, len(f.Children))
	for _, c := range f.Children {
		out = append(out, c)
	}
	return out
}

func (f *Frame) WaitForLoadState(options ...playwright.FrameWaitForLoadStateOptions) error {
	f.waits.Add(1)
	var timeout *float64
	if len(options) > 0 {
		timeout = options[0].Timeout
	}
	if f.Hang {
		return hang(timeout)
	}
	if f.LoadDelay > 0 {
		time.Sleep(f.LoadDelay)
	}
	return nil
}

// Waits returns how many times WaitForLoadState was called.
func (f *Frame) Waits() int {
	return int(f.waits.Load())
}

// Mouse is a fake playwright.Mouse recording wheel deltas.
type Mouse struct {
	pwMouse

	Err error

	mu     sync.Mutex
	deltas []float64
}

func (m *Mouse) Wheel(deltaX float64, deltaY float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deltas = append(m.deltas, deltaY)
	return m.Err
}

// Deltas returns the vertical wheel deltas received so far.
func (m *Mouse) Deltas() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.deltas...)
}

// Touchscreen is a fake playwright.Touchscreen recording tap points.
type Touchscreen struct {
	pwTouchscreen

	Err error
	// Disabled rejects taps, as on a context created without touch support
	Disabled bool

	mu   sync.Mutex
	taps [][2]int
}

func (t *Touchscreen) Tap(x int, y int) error {
	if t.Disabled {
		return errors.New("hasTouch must be enabled on the browser context before using the touchscreen")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.taps = append(t.taps, [2]int{x, y})
	return t.Err
}

// Taps returns the points tapped so far.
func (t *Touchscreen) Taps() [][2]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][2]int(nil), t.taps...)
}

// frameKey joins a frame selector chain and a target selector into the key
// used to register locators inside frames.
func frameKey(frames []string, selector string) string {
	return strings.Join(append(append([]string(nil), frames...), selector), " >> ")
}

// FrameLocator is a fake playwright.FrameLocator resolving against its page.
type FrameLocator struct {
	pwFrameLocator

	page  *Page
	chain []string
}

func (fl *FrameLocator) Locator(selectorOrLocator interface{}, options ...playwright.FrameLocatorLocatorOptions) playwright.Locator {
	sel, _ := selectorOrLocator.(string)
	return fl.page.lookup(frameKey(fl.chain, sel))
}

func (fl *FrameLocator) FrameLocator(selector string) playwright.FrameLocator {
	chain := append(append([]string(nil), fl.chain...), selector)
	return &FrameLocator{page: fl.page, chain: chain}
}

var (
	_ playwright.BrowserType    = (*BrowserType)(nil)
	_ playwright.Browser        = (*Browser)(nil)
	_ playwright.BrowserContext = (*Context)(nil)
	_ playwright.Page           = (*Page)(nil)
	_ playwright.Frame          = (*Frame)(nil)
	_ playwright.FrameLocator   = (*FrameLocator)(nil)
	_ playwright.Locator        = (*Locator)(nil)
	_ playwright.Mouse          = (*Mouse)(nil)
	_ playwright.Touchscreen    = (*Touchscreen)(nil)
	_ playwright.Response       = (*Response)(nil)
)
