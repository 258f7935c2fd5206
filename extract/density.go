package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// nodeScore holds density analysis for a DOM subtree.
type nodeScore struct {
	node     *html.Node
	textLen  int
	density  float64 // text length / rendered markup length
	linkDens float64 // fraction of text inside <a> tags
}

// isContentTag reports whether an element is worth scoring as a content
// container.
func isContentTag(a atom.Atom) bool {
	switch a {
	case atom.Div, atom.Section, atom.Article, atom.Main, atom.Td, atom.P:
		return true
	}
	return false
}

// findDensestNode walks the DOM and returns the subtree with the best
// composite score: high text density, low link density, long text.
func findDensestNode(root *html.Node, minLen int) *html.Node {
	var candidates []nodeScore

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		if isBoilerplate(n) {
			return
		}
		if isContentTag(n.DataAtom) || n.DataAtom == atom.Body {
			text := collectText(n)
			if len(text) >= minLen {
				markupLen := len(renderNode(n))
				if markupLen == 0 {
					markupLen = 1
				}
				linkLen := len(collectLinkText(n))
				candidates = append(candidates, nodeScore{
					node:     n,
					textLen:  len(text),
					density:  float64(len(text)) / float64(markupLen),
					linkDens: float64(linkLen) / float64(len(text)),
				})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	var best *nodeScore
	var bestScore float64
	for i := range candidates {
		c := &candidates[i]
		if c.linkDens > 0.5 {
			continue // mostly links, probably navigation
		}
		score := c.density * logScale(c.textLen) * (1 - c.linkDens)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if best == nil {
		return nil
	}
	return best.node
}

// logScale grows slowly with text length so longer subtrees win ties
// without a wall of links drowning out a short dense paragraph.
func logScale(n int) float64 {
	if n <= 0 {
		return 0
	}
	scale := 1.0
	for n > 100 {
		scale++
		n /= 2
	}
	return scale
}

// collectLinkText extracts text only from <a> elements within a subtree.
func collectLinkText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node, bool)
	f = func(n *html.Node, inLink bool) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			inLink = true
		}
		if n.Type == html.TextNode && inLink {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c, inLink)
		}
	}
	f(n, false)
	return sb.String()
}
