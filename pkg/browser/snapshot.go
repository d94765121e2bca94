package browser

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// DefaultSnapshotLength is the default cap on snapshot text, in bytes.
const DefaultSnapshotLength = 4000

// PageSnapshot is the readable state of a page at one point in time.
type PageSnapshot struct {
	URL         string
	Title       string
	Description string
	// Text is the visible text, one block element per line
	Text      string
	Truncated bool
}

// Snapshot captures the current page of s. Text longer than maxLength is
// truncated.
func Snapshot(ctx context.Context, s *Session, maxLength int) (*PageSnapshot, error) {
	content, err := Await(ctx, func() (string, error) {
		return s.Page.Content()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}

	snap, err := ParseSnapshot(content, maxLength)
	if err != nil {
		return nil, err
	}
	snap.URL = s.Page.URL()
	return snap, nil
}

// ParseSnapshot extracts the title, meta description and visible text from
// an HTML document.
func ParseSnapshot(rawHTML string, maxLength int) (*PageSnapshot, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	if maxLength <= 0 {
		maxLength = DefaultSnapshotLength
	}

	snap := &PageSnapshot{
		Title:       findTitle(doc),
		Description: findMetaDescription(doc),
	}

	w := &textWriter{max: maxLength}
	w.walk(doc)
	snap.Text = strings.TrimSpace(w.b.String())
	snap.Truncated = w.truncated
	return snap, nil
}

type textWriter struct {
	b         strings.Builder
	max       int
	truncated bool
}

func (w *textWriter) walk(n *html.Node) {
	if w.truncated {
		return
	}

	switch n.Type {
	case html.CommentNode:
		return
	case html.TextNode:
		w.text(strings.Join(strings.Fields(n.Data), " "))
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if isHiddenElement(tag) {
			return
		}
		if isBlockElement(tag) {
			w.newline()
		}
		defer func() {
			if isBlockElement(tag) {
				w.newline()
			}
		}()
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *textWriter) text(s string) {
	if s == "" {
		return
	}
	if w.b.Len() > 0 && !strings.HasSuffix(w.b.String(), "\n") {
		s = " " + s
	}
	if w.b.Len()+len(s) > w.max {
		cut := w.max - w.b.Len()
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
		w.truncated = true
	}
	w.b.WriteString(s)
}

func (w *textWriter) newline() {
	if w.b.Len() > 0 && !strings.HasSuffix(w.b.String(), "\n") && w.b.Len() < w.max {
		w.b.WriteString("\n")
	}
}

// isHiddenElement reports elements whose content is never rendered as text.
func isHiddenElement(tag string) bool {
	switch tag {
	case "head", "script", "style", "noscript", "template", "iframe", "embed", "object", "svg":
		return true
	}
	return false
}

func isBlockElement(tag string) bool {
	switch tag {
	case "div", "p", "section", "article", "header", "footer", "nav", "main", "aside",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "table", "tr",
		"form", "fieldset", "blockquote", "pre", "br", "label", "button":
		return true
	}
	return false
}

func findTitle(doc *html.Node) string {
	n := findElement(doc, func(n *html.Node) bool { return n.Data == "title" })
	if n != nil && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
		return strings.TrimSpace(n.FirstChild.Data)
	}
	return ""
}

func findMetaDescription(doc *html.Node) string {
	n := findElement(doc, func(n *html.Node) bool {
		return n.Data == "meta" && attr(n, "name") == "description"
	})
	if n == nil {
		return ""
	}
	return strings.TrimSpace(attr(n, "content"))
}

// findElement returns the first element in document order matching match.
func findElement(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, match); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
