package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/probe/pkg/logging"
	"github.com/entrhq/probe/pkg/telemetry"
	"github.com/gobwas/glob"
	"github.com/playwright-community/playwright-go"
	"golang.org/x/sync/errgroup"
)

// FrameWalker discovers the frame tree of a page and waits for each frame to
// reach domcontentloaded.
type FrameWalker struct {
	readiness time.Duration
	skip      []glob.Glob
	patterns  []string
	logger    *logging.Logger
	metrics   *telemetry.Metrics
}

// NewFrameWalker creates a walker that gives every frame up to readiness to
// settle. Frames whose URL matches one of skipPatterns are never waited on.
func NewFrameWalker(readiness time.Duration, skipPatterns []string, logger *logging.Logger, metrics *telemetry.Metrics) (*FrameWalker, error) {
	if readiness <= 0 {
		return nil, fmt.Errorf("frame readiness timeout must be positive, got %s", readiness)
	}
	if logger == nil {
		logger = logging.Discard()
	}

	w := &FrameWalker{
		readiness: readiness,
		patterns:  skipPatterns,
		logger:    logger,
		metrics:   metrics,
	}
	for _, p := range skipPatterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid frame skip pattern %q: %w", p, err)
		}
		w.skip = append(w.skip, g)
	}
	return w, nil
}

// Settle snapshots the frame tree of page in pre-order and waits for all
// frames concurrently. Frames that do not settle in time are reported with
// Settled false. The returned error is non-nil only when ctx is done.
func (w *FrameWalker) Settle(ctx context.Context, page playwright.Page) ([]FrameNode, error) {
	nodes, frames := w.snapshot(page.MainFrame())

	var g errgroup.Group
	for i := range nodes {
		if nodes[i].Skipped {
			w.metrics.FrameSettled("skipped")
			continue
		}
		i := i
		g.Go(func() error {
			nodes[i].Settled = w.settleFrame(ctx, frames[i])
			if nodes[i].Settled {
				w.metrics.FrameSettled("settled")
			} else {
				w.metrics.FrameSettled("unsettled")
				w.logger.Debugf("Frame %d (%s) did not settle within %s", nodes[i].ID, nodes[i].URL, w.readiness)
			}
			return nil
		})
	}
	_ = g.Wait()

	return nodes, ctx.Err()
}

func (w *FrameWalker) settleFrame(ctx context.Context, f playwright.Frame) bool {
	fctx, cancel := context.WithTimeout(ctx, w.readiness)
	defer cancel()

	err := Call(fctx, func() error {
		return f.WaitForLoadState(playwright.FrameWaitForLoadStateOptions{
			State:   playwright.LoadStateDomcontentloaded,
			Timeout: milliseconds(w.readiness),
		})
	})
	return err == nil
}

// snapshot walks the tree depth-first from the main frame. The returned slices
// are parallel: frames[i] is the handle for nodes[i].
func (w *FrameWalker) snapshot(main playwright.Frame) ([]FrameNode, []playwright.Frame) {
	var (
		nodes  []FrameNode
		frames []playwright.Frame
	)

	var walk func(f playwright.Frame, parent int)
	walk = func(f playwright.Frame, parent int) {
		id := len(nodes)
		node := FrameNode{
			ID:       id,
			ParentID: parent,
			URL:      f.URL(),
			Name:     f.Name(),
		}
		if f.IsDetached() || w.shouldSkip(node.URL) {
			node.Skipped = true
		}
		nodes = append(nodes, node)
		frames = append(frames, f)

		for _, child := range f.ChildFrames() {
			walk(child, id)
		}
	}
	if main != nil {
		walk(main, RootParentID)
	}

	return nodes, frames
}

func (w *FrameWalker) shouldSkip(url string) bool {
	for _, g := range w.skip {
		if g.Match(url) {
			return true
		}
	}
	return false
}
