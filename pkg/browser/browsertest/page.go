package browsertest

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/playwright-community/playwright-go"
)

// GotoFunc replaces the default navigation behavior of a Page.
type GotoFunc func(url string, options playwright.PageGotoOptions) (playwright.Response, error)

// Unreachable is a GotoFunc for a host that never answers: it blocks until
// the navigation timeout and fails with a Playwright timeout.
func Unreachable(url string, options playwright.PageGotoOptions) (playwright.Response, error) {
	return nil, hang(options.Timeout)
}

// Refused is a GotoFunc for a host that rejects connections immediately.
func Refused(url string, options playwright.PageGotoOptions) (playwright.Response, error) {
	return nil, fmt.Errorf("net::ERR_CONNECTION_REFUSED at %s", url)
}

// Page is a fake playwright.Page. Elements are registered with AddLocator and
// AddFrameLocator; unknown selectors behave like elements that never appear.
type Page struct {
	pwPage

	// GotoFunc overrides navigation; by default Goto commits with status 200
	GotoFunc GotoFunc
	// LoadHang makes WaitForLoadState block until its timeout
	LoadHang bool
	// PageTitle is returned by Title
	PageTitle string
	// HTML is returned by Content
	HTML string

	Main        *Frame
	MouseDevice *Mouse
	TouchDevice *Touchscreen

	mu       sync.Mutex
	url      string
	visited  []string
	viewport *playwright.Size
	locators map[string]*Locator
	closeErr error
	closes   atomic.Int32
}

// NewPage returns a blank page with a main frame and no elements.
func NewPage() *Page {
	return &Page{
		Main:        &Frame{FrameURL: "about:blank"},
		MouseDevice: &Mouse{},
		TouchDevice: &Touchscreen{},
		url:         "about:blank",
		locators:    make(map[string]*Locator),
	}
}

// AddLocator registers a visible element for selector and returns it for
// further configuration.
func (p *Page) AddLocator(selector string) *Locator {
	return p.register(selector)
}

// AddFrameLocator registers a visible element for selector inside the iframe
// chain frames.
func (p *Page) AddFrameLocator(frames []string, selector string) *Locator {
	return p.register(frameKey(frames, selector))
}

func (p *Page) register(key string) *Locator {
	p.mu.Lock()
	defer p.mu.Unlock()
	l := &Locator{Selector: key, Visible: true}
	p.locators[key] = l
	return l
}

func (p *Page) lookup(key string) *Locator {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.locators[key]; ok {
		return l
	}
	return &Locator{Selector: key, Missing: true}
}

func (p *Page) Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error) {
	var opts playwright.PageGotoOptions
	if len(options) > 0 {
		opts = options[0]
	}

	p.mu.Lock()
	p.visited = append(p.visited, url)
	gotoFn := p.GotoFunc
	p.mu.Unlock()

	if gotoFn != nil {
		resp, err := gotoFn(url, opts)
		if err == nil {
			p.setURL(url)
		}
		return resp, err
	}

	p.setURL(url)
	return &Response{StatusCode: 200}, nil
}

func (p *Page) setURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

// Visited returns every URL passed to Goto, including failed navigations.
func (p *Page) Visited() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.visited...)
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) Title() (string, error) {
	return p.PageTitle, nil
}

func (p *Page) Content() (string, error) {
	return p.HTML, nil
}

func (p *Page) WaitForLoadState(options ...playwright.PageWaitForLoadStateOptions) error {
	if p.LoadHang {
		var timeout *float64
		if len(options) > 0 {
			timeout = options[0].Timeout
		}
		return hang(timeout)
	}
	return nil
}

func (p *Page) MainFrame() playwright.Frame {
	return p.Main
}

func (p *Page) Locator(selector string, options ...playwright.PageLocatorOptions) playwright.Locator {
	return p.lookup(selector)
}

func (p *Page) FrameLocator(selector string) playwright.FrameLocator {
	return &FrameLocator{page: p, chain: []string{selector}}
}

func (p *Page) Mouse() playwright.Mouse {
	return p.MouseDevice
}

func (p *Page) Touchscreen() playwright.Touchscreen {
	return p.TouchDevice
}

func (p *Page) SetViewportSize(width, height int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.viewport = &playwright.Size{Width: width, Height: height}
	return nil
}

func (p *Page) ViewportSize() *playwright.Size {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewport
}

func (p *Page) Close(options ...playwright.PageCloseOptions) error {
	p.closes.Add(1)
	return p.closeErr
}

// Closes returns how many times Close was called.
func (p *Page) Closes() int {
	return int(p.closes.Load())
}
