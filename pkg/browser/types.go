package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session is the browser, context and page acquired for a single run.
type Session struct {
	// ID uniquely identifies the session within its Manager
	ID string

	Browser playwright.Browser
	Context playwright.BrowserContext
	Page    playwright.Page

	// DefaultTimeout is the context-wide Playwright timeout
	DefaultTimeout time.Duration

	// Viewport is the current page viewport, updated by SetViewport
	Viewport Viewport

	CreatedAt time.Time

	// released is guarded by the owning Manager's mutex
	released bool
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// FrameNode is one frame in the snapshot taken by a FrameWalker. Nodes live in
// a flat slice indexed by ID; the root page frame has ParentID -1.
type FrameNode struct {
	ID       int
	ParentID int
	URL      string
	Name     string

	// Settled reports whether the frame reached domcontentloaded in time
	Settled bool

	// Skipped frames were never waited on: detached, or matching a skip pattern
	Skipped bool
}

// IsRoot reports whether the node is the page's main frame.
func (n FrameNode) IsRoot() bool {
	return n.ParentID == RootParentID
}

// RootParentID is the ParentID of the main frame.
const RootParentID = -1

// NavResult describes how far a navigation got.
type NavResult struct {
	// URL is the page URL after navigation, or the requested URL on failure
	URL string

	// Committed is true once the navigation was committed
	Committed bool

	// ReadyStateReached is true if the page reached domcontentloaded in time
	ReadyStateReached bool

	// Status is the HTTP status of the main response, 0 when unknown
	Status int
}

// ResourceCounts is the number of acquire and release operations for one
// resource type.
type ResourceCounts struct {
	Acquired int
	Released int
}

// Stats maps a resource type (browser, context, page) to its counts.
type Stats map[string]ResourceCounts

// Balanced reports whether every acquired resource has been released.
func (s Stats) Balanced() bool {
	for _, c := range s {
		if c.Acquired != c.Released {
			return false
		}
	}
	return true
}

// milliseconds converts d to the float milliseconds Playwright expects.
func milliseconds(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}
