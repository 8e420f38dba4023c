package document

import (
	"strings"
	"testing"

	"github.com/ZaguanLabs/pagetl"
)

func mustParse(t *testing.T, src string, opts ...Option) *Page {
	t.Helper()
	p, err := Parse(strings.NewReader(src), opts...)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return p
}

func texts(units []pagetl.Unit) []string {
	out := make([]string, len(units))
	for i, u := range units {
		out[i] = u.Text
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestExtract_Block_Basic(t *testing.T) {
	p := mustParse(t, `<div><h1>Hello World</h1><p>Welcome to <b>our</b> site.</p></div>`)

	units := p.Extract()

	want := []string{"Hello World", "Welcome to <b>our</b> site."}
	if got := texts(units); !equalStrings(got, want) {
		t.Fatalf("texts = %q, want %q", got, want)
	}
	if units[0].Locator != "/html[1]/body[1]/div[1]/h1[1]" {
		t.Errorf("locator = %q", units[0].Locator)
	}
	if p.Registry().Len() != 2 {
		t.Errorf("registry has %d ids, want 2", p.Registry().Len())
	}
}

func TestExtract_Block_DescendsIntoNestedBlocks(t *testing.T) {
	p := mustParse(t, `
		<ul><li>Outer<ul><li>Inner item</li></ul></li></ul>
		<blockquote><p>Quoted text</p></blockquote>
		<table><tr><td>Cell one</td><th>Head</th></tr></table>
		<dl><dt>Term</dt><dd>Definition</dd></dl>`)

	want := []string{"Inner item", "Quoted text", "Cell one", "Head", "Term", "Definition"}
	if got := texts(p.Extract()); !equalStrings(got, want) {
		t.Errorf("texts = %q, want %q", got, want)
	}
}

func TestExtract_Block_InlineCodeTravelsWithUnit(t *testing.T) {
	p := mustParse(t, `<p>Hello <code>world()</code>!</p><p><code>only_code()</code></p>`)

	units := p.Extract()
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d: %q", len(units), texts(units))
	}
	if units[0].Text != "Hello <code>world()</code>!" {
		t.Errorf("text = %q", units[0].Text)
	}
}

func TestExtract_Block_MinTextLength(t *testing.T) {
	src := `<p>a</p><p>ab</p><p>   </p>`

	if got := texts(mustParse(t, src).Extract()); !equalStrings(got, []string{"ab"}) {
		t.Errorf("default min length: got %q", got)
	}
	if got := texts(mustParse(t, src, WithMinTextLength(1)).Extract()); !equalStrings(got, []string{"a", "ab"}) {
		t.Errorf("min length 1: got %q", got)
	}
}

func TestExtract_Exclusions(t *testing.T) {
	p := mustParse(t, `<div>
		<p>Translate me</p>
		<script>doNotTranslate();</script>
		<style>.class { color: red; }</style>
		<pre>preformatted</pre>
		<textarea>form input</textarea>
		<div class="notranslate"><p>Class skipped</p></div>
		<p hidden>Hidden attribute</p>
		<p style="display: none">Display none</p>
		<p style="visibility:hidden">Invisible</p>
		<p aria-hidden="true">Aria hidden</p>
		<section translate="no"><p>Translate no</p></section>
		<p data-no-translate>Opt out</p>
		<svg><text>Vector text</text></svg>
		<p>Translate this</p>
	</div>`)

	for _, mode := range []Mode{ModeBlock, ModeNode} {
		p.mode = mode
		got := texts(p.Extract())
		want := []string{"Translate me", "Translate this"}
		if !equalStrings(got, want) {
			t.Errorf("mode %s: texts = %q, want %q", mode, got, want)
		}
	}
}

func TestExtract_ExcludedSelectors(t *testing.T) {
	p := mustParse(t, `<p>Keep</p><footer id="footer"><p>Footer text</p></footer><div class="ads"><p>Buy now</p></div>`,
		WithExcludedSelectors("#footer", ".ads p"))

	if got := texts(p.Extract()); !equalStrings(got, []string{"Keep"}) {
		t.Errorf("texts = %q, want [Keep]", got)
	}
}

func TestExtract_InvalidSelector(t *testing.T) {
	_, err := Parse(strings.NewReader(`<p>x</p>`), WithExcludedSelectors("p[[["))
	if err == nil {
		t.Fatal("expected error for invalid selector")
	}
}

func TestExtract_OnlyExcludedContent(t *testing.T) {
	p := mustParse(t, `<script>var a = 1;</script><pre>code</pre><style>p{}</style>`)

	if units := p.Extract(); len(units) != 0 {
		t.Errorf("expected no units, got %q", texts(units))
	}
}

func TestExtract_Node(t *testing.T) {
	p := mustParse(t, "<p>Hello <strong>world</strong>!</p>\n<p>  Spaced  </p>", WithMode(ModeNode))

	units := p.Extract()
	want := []string{"Hello", "world", "!", "Spaced"}
	if got := texts(units); !equalStrings(got, want) {
		t.Fatalf("texts = %q, want %q", got, want)
	}

	locators := []string{
		"/html[1]/body[1]/p[1]/text()[1]",
		"/html[1]/body[1]/p[1]/strong[1]/text()[1]",
		"/html[1]/body[1]/p[1]/text()[2]",
		"/html[1]/body[1]/p[2]/text()[1]",
	}
	for i, u := range units {
		if u.Locator != locators[i] {
			t.Errorf("unit %d locator = %q, want %q", i, u.Locator, locators[i])
		}
	}
}

func TestExtract_UniqueIDsPerPass(t *testing.T) {
	p := mustParse(t, `<p>One</p><p>Two</p><p>One</p>`)

	first := p.Extract()
	seen := make(map[string]bool)
	for _, u := range first {
		if seen[u.ID] {
			t.Errorf("duplicate id %s", u.ID)
		}
		seen[u.ID] = true
	}

	second := p.Extract()
	for _, u := range second {
		if seen[u.ID] {
			t.Errorf("id %s reused across passes", u.ID)
		}
	}

	if p.Replace(first[0].ID, "Uno") {
		t.Error("replacement by an id from a previous pass must be a no-op")
	}
	if !p.Replace(second[0].ID, "Uno") {
		t.Error("replacement by a current id should apply")
	}
}

func TestExtract_DoesNotMutate(t *testing.T) {
	p := mustParse(t, `<div><p>Hello <em>there</em></p><ul><li>Item</li></ul></div>`)

	before, _ := p.HTML()
	p.Extract()
	p.mode = ModeNode
	p.Extract()
	after, _ := p.HTML()

	if before != after {
		t.Errorf("extraction changed the document:\n%s\n%s", before, after)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"node", ModeNode, true},
		{"BLOCK", ModeBlock, true},
		{"", ModeBlock, true},
		{"sentence", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseMode(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseMode(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
