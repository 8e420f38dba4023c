package document

import (
	"context"
	"strings"
	"unicode"

	"github.com/ZaguanLabs/pagetl"
	"golang.org/x/net/html"
)

// Replace writes translated text to the anchor registered under id.
// It returns false, without error, when id is unknown or its anchor has
// changed or left the document since extraction.
func (p *Page) Replace(id, translated string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.replace(id, translated)
}

// ReplaceContent applies a batch of translated units in order.
func (p *Page) ReplaceContent(ctx context.Context, units []pagetl.TranslatedUnit) (pagetl.ReplaceResult, error) {
	var result pagetl.ReplaceResult
	if err := ctx.Err(); err != nil {
		return result, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, u := range units {
		if p.replace(u.ID, u.TranslatedText) {
			result.Applied++
		} else {
			result.Skipped = append(result.Skipped, u.ID)
		}
	}
	return result, nil
}

// Rebind registers units extracted elsewhere, e.g. from another parse of the
// same document, by following their locators. Units whose locator does not
// resolve are left out. It returns the number of units bound.
func (p *Page) Rebind(units []pagetl.Unit) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.registry.Clear()
	root := p.documentNode()

	bound := 0
	for _, u := range units {
		n, ok := Locate(root, u.Locator)
		if !ok {
			p.logger.Debug("locator did not resolve", "id", u.ID, "locator", u.Locator)
			continue
		}
		a := &anchor{node: n, mode: ModeBlock}
		if n.Type == html.TextNode {
			a.mode = ModeNode
		}
		a.fingerprint = fingerprint(a)
		p.registry.put(u.ID, a)
		bound++
	}
	return bound
}

func (p *Page) replace(id, translated string) bool {
	a, ok := p.registry.lookup(id)
	if !ok {
		p.logger.Debug("replacement skipped: unknown id", "id", id)
		return false
	}
	if !attached(a.node) {
		p.logger.Debug("replacement skipped: anchor detached", "id", id)
		return false
	}
	if fingerprint(a) != a.fingerprint {
		p.logger.Debug("replacement skipped: anchor changed since extraction", "id", id)
		return false
	}

	switch a.mode {
	case ModeNode:
		a.node.Data = preserveWhitespace(a.node.Data, strings.TrimSpace(translated))
	default:
		if err := setInnerHTML(a.node, translated); err != nil {
			p.logger.Warn("replacement skipped: translated markup did not parse", "id", id, "error", err)
			return false
		}
	}

	a.fingerprint = fingerprint(a)
	return true
}

// setInnerHTML replaces the children of n with the parsed fragment.
func setInnerHTML(n *html.Node, markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), n)
	if err != nil {
		return err
	}
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

func fingerprint(a *anchor) string {
	if a.mode == ModeNode {
		return pagetl.HashText(a.node.Data)
	}
	return pagetl.HashText(innerHTML(a.node))
}

// attached reports whether n still hangs off a document node.
func attached(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.DocumentNode {
			return true
		}
	}
	return false
}

// preserveWhitespace preserves the original leading/trailing whitespace.
// Whitespace is what strings.TrimSpace removes during extraction, NBSP included.
func preserveWhitespace(original, translated string) string {
	leadingLen := len(original) - len(strings.TrimLeftFunc(original, unicode.IsSpace))
	leading := original[:leadingLen]

	trailingLen := len(original) - len(strings.TrimRightFunc(original, unicode.IsSpace))
	trailing := ""
	if trailingLen > 0 && trailingLen < len(original) {
		trailing = original[len(original)-trailingLen:]
	}

	return leading + translated + trailing
}
