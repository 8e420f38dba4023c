// Package document extracts translation units from an HTML page and writes
// translated units back to the nodes they came from.
package document

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/ZaguanLabs/pagetl"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Mode selects the extraction granularity.
type Mode string

const (
	// ModeNode extracts one unit per raw text node.
	ModeNode Mode = "node"
	// ModeBlock extracts one unit per block container, markup included.
	ModeBlock Mode = "block"
)

// ParseMode converts a configuration string to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeNode:
		return ModeNode, true
	case ModeBlock, "":
		return ModeBlock, true
	}
	return "", false
}

// DefaultMinTextLength is the minimum visible text, in runes, of a block unit.
const DefaultMinTextLength = 2

// ExcludedTags contains tags whose whole subtree is never translated.
var ExcludedTags = []string{
	"script", "style", "noscript", "template", "head",
	"code", "pre", "kbd", "samp", "var",
	"textarea", "input", "select", "option",
	"svg", "math", "canvas",
	"iframe", "object", "embed", "video", "audio",
}

// ExcludedClasses contains class names marking content as hidden or untranslatable.
var ExcludedClasses = []string{"notranslate", "sr-only", "visually-hidden"}

// BlockTags contains the containers that become units in ModeBlock.
var BlockTags = map[string]bool{
	"p":          true,
	"li":         true,
	"td":         true,
	"th":         true,
	"h1":         true,
	"h2":         true,
	"h3":         true,
	"h4":         true,
	"h5":         true,
	"h6":         true,
	"caption":    true,
	"figcaption": true,
	"blockquote": true,
	"dt":         true,
	"dd":         true,
}

// Page is an HTML document together with the registry of its latest extraction.
type Page struct {
	doc             *goquery.Document
	mode            Mode
	minTextLength   int
	excludedTags    map[string]bool
	excludedClasses map[string]bool
	selectorSource  []string
	selectors       []cascadia.SelectorGroup
	registry        *Registry
	pass            int
	logger          *slog.Logger
	mu              sync.Mutex
}

// Option configures a Page.
type Option func(*Page)

// WithMode sets the extraction granularity (default: ModeBlock).
func WithMode(mode Mode) Option {
	return func(p *Page) {
		p.mode = mode
	}
}

// WithMinTextLength sets the minimum visible text length of a block unit.
func WithMinTextLength(n int) Option {
	return func(p *Page) {
		p.minTextLength = n
	}
}

// WithExcludedTags replaces the default excluded tag list.
func WithExcludedTags(tags ...string) Option {
	return func(p *Page) {
		p.excludedTags = toSet(tags)
	}
}

// WithExcludedClasses replaces the default class denylist.
func WithExcludedClasses(classes ...string) Option {
	return func(p *Page) {
		p.excludedClasses = toSet(classes)
	}
}

// WithExcludedSelectors adds CSS selectors whose matches are skipped with their subtree.
func WithExcludedSelectors(selectors ...string) Option {
	return func(p *Page) {
		p.selectorSource = append(p.selectorSource, selectors...)
	}
}

// WithLogger sets the logger used for skipped replacements.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Page) {
		p.logger = logger
	}
}

// Parse reads an HTML document.
func Parse(r io.Reader, opts ...Option) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &pagetl.ProcessorError{
			Message:     "failed to parse HTML",
			Cause:       err,
			ContentType: "html",
		}
	}
	return NewPage(doc, opts...)
}

// NewPage wraps an already parsed document.
func NewPage(doc *goquery.Document, opts ...Option) (*Page, error) {
	p := &Page{
		doc:             doc,
		mode:            ModeBlock,
		minTextLength:   DefaultMinTextLength,
		excludedTags:    toSet(ExcludedTags),
		excludedClasses: toSet(ExcludedClasses),
		registry:        NewRegistry(),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}

	for _, src := range p.selectorSource {
		sel, err := cascadia.ParseGroup(src)
		if err != nil {
			return nil, &pagetl.ProcessorError{
				Message:     "invalid excluded selector " + src,
				Cause:       err,
				ContentType: "html",
			}
		}
		p.selectors = append(p.selectors, sel)
	}

	return p, nil
}

// Mode returns the extraction granularity.
func (p *Page) Mode() Mode {
	return p.mode
}

// Registry returns the registry of the latest extraction.
func (p *Page) Registry() *Registry {
	return p.registry
}

// GetPageContent clears the registry and extracts a fresh set of units.
func (p *Page) GetPageContent(ctx context.Context) ([]pagetl.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.Extract(), nil
}

// SetLanguage sets the lang and dir attributes on the <html> tag.
func (p *Page) SetLanguage(lang string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	htmlTag := p.doc.Find("html")
	if htmlTag.Length() > 0 {
		htmlTag.SetAttr("lang", pagetl.ToHTMLLang(lang))
		htmlTag.SetAttr("dir", pagetl.GetDirection(lang))
	}
}

// HTML serializes the current document.
func (p *Page) HTML() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out, err := p.doc.Html()
	if err != nil {
		return "", &pagetl.ProcessorError{
			Message:     "failed to serialize HTML",
			Cause:       err,
			ContentType: "html",
		}
	}
	return out, nil
}

// root returns the node extraction starts from: <body> when present.
func (p *Page) root() *html.Node {
	if body := p.doc.Find("body"); body.Length() > 0 {
		return body.Get(0)
	}
	if len(p.doc.Nodes) > 0 {
		return p.doc.Nodes[0]
	}
	return nil
}

// documentNode returns the top of the tree, the origin of every locator.
func (p *Page) documentNode() *html.Node {
	if len(p.doc.Nodes) == 0 {
		return nil
	}
	n := p.doc.Nodes[0]
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			set[v] = true
		}
	}
	return set
}

// Verify Page implements the content surface contracts
var (
	_ pagetl.ContentSurface = (*Page)(nil)
	_ pagetl.LanguageMarker = (*Page)(nil)
)
