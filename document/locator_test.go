package document

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func TestPath_Locate_RoundTrip(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div><p>a</p><p>b <b>c</b> d</p></div><div><p>e</p></div>`))
	if err != nil {
		t.Fatal(err)
	}
	root := doc.Nodes[0]

	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode || n.Type == html.TextNode {
			nodes = append(nodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	for _, n := range nodes {
		path := Path(n)
		found, ok := Locate(root, path)
		if !ok || found != n {
			t.Errorf("Locate(%q) did not return the original node", path)
		}
	}
}

func TestPath_Format(t *testing.T) {
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(`<div></div><div><p>x</p><p>y</p></div>`))

	p := doc.Find("div").Last().Find("p").Last().Get(0)
	if got := Path(p); got != "/html[1]/body[1]/div[2]/p[2]" {
		t.Errorf("Path = %q", got)
	}
	if got := Path(p.FirstChild); got != "/html[1]/body[1]/div[2]/p[2]/text()[1]" {
		t.Errorf("Path(text) = %q", got)
	}
}

func TestLocate_Invalid(t *testing.T) {
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(`<p>x</p>`))
	root := doc.Nodes[0]

	tests := []string{
		"",
		"/",
		"html[1]/body[1]",
		"/html[1]/body[1]/p[2]",
		"/html[1]/body[1]/p[0]",
		"/html[1]/body[1]/p[x]",
		"/html[1]/body/p[1]",
	}
	for _, locator := range tests {
		if _, ok := Locate(root, locator); ok {
			t.Errorf("Locate(%q) should fail", locator)
		}
	}
	if _, ok := Locate(nil, "/html[1]"); ok {
		t.Error("Locate(nil) should fail")
	}
}
