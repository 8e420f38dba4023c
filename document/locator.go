package document

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// textStep is the locator step addressing a text node among its siblings.
const textStep = "text()"

// Path returns the indexed-sibling path of n from the document root, e.g.
// "/html[1]/body[1]/div[2]/p[1]". Text nodes end in "/text()[k]".
// Indexes are 1-based and count only siblings of the same kind.
func Path(n *html.Node) string {
	var steps []string
	for cur := n; cur != nil; cur = cur.Parent {
		switch cur.Type {
		case html.ElementNode:
			steps = append(steps, cur.Data+"["+strconv.Itoa(position(cur))+"]")
		case html.TextNode:
			steps = append(steps, textStep+"["+strconv.Itoa(position(cur))+"]")
		}
	}

	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return "/" + strings.Join(steps, "/")
}

// Locate follows a path produced by Path starting at the document node.
func Locate(root *html.Node, locator string) (*html.Node, bool) {
	if root == nil || !strings.HasPrefix(locator, "/") {
		return nil, false
	}

	cur := root
	for _, step := range strings.Split(strings.TrimPrefix(locator, "/"), "/") {
		name, index, ok := parseStep(step)
		if !ok {
			return nil, false
		}
		next := nthChild(cur, name, index)
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, cur != root
}

// position counts n and its preceding siblings of the same kind.
func position(n *html.Node) int {
	pos := 1
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sameKind(sib, n.Type, n.Data) {
			pos++
		}
	}
	return pos
}

func nthChild(parent *html.Node, name string, index int) *html.Node {
	typ, data := html.ElementNode, name
	if name == textStep {
		typ, data = html.TextNode, ""
	}

	seen := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if sameKind(c, typ, data) {
			seen++
			if seen == index {
				return c
			}
		}
	}
	return nil
}

func sameKind(n *html.Node, typ html.NodeType, data string) bool {
	if n.Type != typ {
		return false
	}
	return typ == html.TextNode || n.Data == data
}

// parseStep splits "name[3]" into its parts.
func parseStep(step string) (string, int, bool) {
	open := strings.LastIndexByte(step, '[')
	if open <= 0 || !strings.HasSuffix(step, "]") {
		return "", 0, false
	}
	index, err := strconv.Atoi(step[open+1 : len(step)-1])
	if err != nil || index < 1 {
		return "", 0, false
	}
	return step[:open], index, true
}
