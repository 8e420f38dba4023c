package document

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/pagetl"
	"golang.org/x/net/html"
)

// Extract walks the page and returns its translation units in document order.
// It clears the registry first, so ids from earlier passes stop resolving.
// The document itself is never modified.
func (p *Page) Extract() []pagetl.Unit {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.registry.Clear()
	p.pass++

	root := p.root()
	if root == nil {
		return nil
	}

	var units []pagetl.Unit
	add := func(n *html.Node, text, fingerprint string, mode Mode) {
		id := fmt.Sprintf("node-%d-%d", p.pass, len(units))
		units = append(units, pagetl.Unit{
			ID:      id,
			Text:    text,
			Locator: Path(n),
		})
		p.registry.put(id, &anchor{node: n, mode: mode, fingerprint: fingerprint})
	}

	switch p.mode {
	case ModeNode:
		p.walkText(root, func(n *html.Node) {
			add(n, strings.TrimSpace(n.Data), pagetl.HashText(n.Data), ModeNode)
		})
	default:
		p.walkBlocks(root, func(n *html.Node) {
			inner := innerHTML(n)
			add(n, inner, pagetl.HashText(inner), ModeBlock)
		})
	}

	return units
}

// walkText visits every non-blank text node outside excluded subtrees.
func (p *Page) walkText(n *html.Node, visit func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				visit(c)
			}
		case html.ElementNode:
			if !p.excluded(c) {
				p.walkText(c, visit)
			}
		}
	}
}

// walkBlocks visits the innermost block containers with enough visible text.
func (p *Page) walkBlocks(n *html.Node, visit func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || p.excluded(c) {
			continue
		}
		if BlockTags[c.Data] && !p.hasNestedBlock(c) {
			if utf8.RuneCountInString(strings.TrimSpace(p.visibleText(c))) >= p.minTextLength {
				visit(c)
			}
			continue
		}
		p.walkBlocks(c, visit)
	}
}

// hasNestedBlock reports whether a block container holds another candidate.
func (p *Page) hasNestedBlock(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || p.excluded(c) {
			continue
		}
		if BlockTags[c.Data] || p.hasNestedBlock(c) {
			return true
		}
	}
	return false
}

// visibleText concatenates the text rendered for n, skipping excluded subtrees.
func (p *Page) visibleText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				b.WriteString(c.Data)
			case html.ElementNode:
				if !p.excluded(c) {
					walk(c)
				}
			}
		}
	}
	walk(n)
	return b.String()
}

// excluded reports whether an element and its subtree must be skipped.
func (p *Page) excluded(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if p.excludedTags[strings.ToLower(n.Data)] {
		return true
	}

	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "hidden", "data-no-translate":
			return true
		case "aria-hidden":
			if strings.EqualFold(strings.TrimSpace(attr.Val), "true") {
				return true
			}
		case "translate":
			if strings.EqualFold(strings.TrimSpace(attr.Val), "no") {
				return true
			}
		case "style":
			if hiddenStyle(attr.Val) {
				return true
			}
		case "class":
			for _, class := range strings.Fields(attr.Val) {
				if p.excludedClasses[strings.ToLower(class)] {
					return true
				}
			}
		}
	}

	for _, sel := range p.selectors {
		if sel.Match(n) {
			return true
		}
	}
	return false
}

// hiddenStyle detects inline styles that keep an element from rendering.
func hiddenStyle(style string) bool {
	compact := strings.ToLower(strings.Join(strings.Fields(style), ""))
	return strings.Contains(compact, "display:none") || strings.Contains(compact, "visibility:hidden")
}

// innerHTML serializes the children of n.
func innerHTML(n *html.Node) string {
	out, err := goquery.NewDocumentFromNode(n).Html()
	if err != nil {
		return ""
	}
	return out
}
