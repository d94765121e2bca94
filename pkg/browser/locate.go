package browser

import "github.com/playwright-community/playwright-go"

// Locate resolves target on page. When frames is non-empty, each entry
// selects an iframe inside the previous one and target is resolved inside
// the innermost frame. nth picks among multiple matches, zero being the first.
func Locate(page playwright.Page, frames []string, target string, nth int) playwright.Locator {
	var loc playwright.Locator
	if len(frames) == 0 {
		loc = page.Locator(target)
	} else {
		fl := page.FrameLocator(frames[0])
		for _, sel := range frames[1:] {
			fl = fl.FrameLocator(sel)
		}
		loc = fl.Locator(target)
	}
	return loc.Nth(nth)
}
