// Package extract pulls the main content out of an HTML page.
//
// It prefers semantic landmarks (<main>, <article>), then falls back to text
// density analysis to locate the subtree with the highest text-to-markup
// ratio, filtering out boilerplate (nav, footer, sidebar, ads).
package extract

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Result is the extracted content of a page.
type Result struct {
	Title  string
	Text   string
	HTML   string
	Links  []string
	Images []string
	Hash   string // SHA-256 of Text
}

// Options configures extraction.
type Options struct {
	// MinTextLen is the minimum text length for a subtree to be considered
	// content. Default: 80.
	MinTextLen int
}

func (o *Options) defaults() {
	if o.MinTextLen <= 0 {
		o.MinTextLen = 80
	}
}

// Extract parses an HTML document and returns its main content.
func Extract(body []byte, opts Options) (*Result, error) {
	opts.defaults()

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := findTitle(doc)
	links := collectAttrs(doc, atom.A, "href")
	images := collectAttrs(doc, atom.Img, "src")

	// Semantic landmarks first.
	if nodes := findLandmarks(doc); len(nodes) > 0 {
		var texts, htmls []string
		for _, n := range nodes {
			if isBoilerplate(n) {
				continue
			}
			text := collectText(n)
			if len(text) >= opts.MinTextLen {
				texts = append(texts, text)
				htmls = append(htmls, renderNode(n))
			}
		}
		if len(texts) > 0 {
			combined := strings.Join(texts, "\n\n")
			return &Result{
				Title:  title,
				Text:   combined,
				HTML:   strings.Join(htmls, "\n"),
				Links:  links,
				Images: images,
				Hash:   hashText(combined),
			}, nil
		}
	}

	// Density scoring on the body.
	body2 := findBody(doc)
	if body2 == nil {
		body2 = doc
	}
	if best := findDensestNode(body2, opts.MinTextLen); best != nil {
		text := collectText(best)
		return &Result{
			Title:  title,
			Text:   text,
			HTML:   renderNode(best),
			Links:  links,
			Images: images,
			Hash:   hashText(text),
		}, nil
	}

	// Last resort: everything minus boilerplate.
	text := collectCleanText(body2)
	return &Result{
		Title:  title,
		Text:   text,
		HTML:   renderNode(body2),
		Links:  links,
		Images: images,
		Hash:   hashText(text),
	}, nil
}

// CleanText normalizes whitespace in extracted text: collapses runs of
// spaces, trims lines, and drops empty lines beyond one.
func CleanText(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func hashText(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h)
}

// findTitle returns the document <title>, or the first <h1> when absent.
func findTitle(doc *html.Node) string {
	if t := firstByTag(doc, atom.Title); t != nil {
		return strings.TrimSpace(collectText(t))
	}
	if h := firstByTag(doc, atom.H1); h != nil {
		return strings.TrimSpace(collectText(h))
	}
	return ""
}

func firstByTag(root *html.Node, tag atom.Atom) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == tag {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return found
}

// findLandmarks returns semantic HTML5 content elements, <main> preferred.
func findLandmarks(doc *html.Node) []*html.Node {
	for _, tag := range []atom.Atom{atom.Main, atom.Article} {
		if nodes := findAllByTag(doc, tag); len(nodes) > 0 {
			return nodes
		}
	}
	return nil
}

func findAllByTag(root *html.Node, tag atom.Atom) []*html.Node {
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == tag {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return results
}

func findBody(doc *html.Node) *html.Node {
	return firstByTag(doc, atom.Body)
}

// collectAttrs gathers non-empty attribute values from all elements of the
// given tag, deduplicated in document order.
func collectAttrs(root *html.Node, tag atom.Atom, key string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, n := range findAllByTag(root, tag) {
		for _, a := range n.Attr {
			if a.Key != key {
				continue
			}
			v := strings.TrimSpace(a.Val)
			if v == "" || strings.HasPrefix(v, "#") || strings.HasPrefix(v, "javascript:") {
				continue
			}
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// collectText extracts all visible text from a subtree.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}

// collectCleanText extracts text excluding boilerplate regions.
func collectCleanText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if isBoilerplate(n) {
				return
			}
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}

func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// boilerplateClasses mark subtrees that are navigation or chrome, not content.
var boilerplateClasses = []string{
	"nav", "navbar", "menu", "sidebar", "footer", "header",
	"advert", "ads", "banner", "cookie", "breadcrumb", "toc",
}

// isBoilerplate reports whether a node is a non-content region.
func isBoilerplate(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Nav, atom.Footer, atom.Aside, atom.Header:
		return true
	}
	idClass := strings.ToLower(getAttr(n, "id") + " " + getAttr(n, "class"))
	for _, marker := range boilerplateClasses {
		if strings.Contains(idClass, marker) {
			return true
		}
	}
	return false
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
