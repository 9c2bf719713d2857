package host

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultPage is the host page used when none is supplied.
const DefaultPage = `<!DOCTYPE html><html><head></head><body></body></html>`

const importMapSelector = `script[type="importmap"][data-importmap]`

// Document is an in-memory host page with a global binding table.
//
// LoadScript fetches a script, records it as a <script> element in the page
// head and binds the globals the script defines. By default scripts run in a
// Runtime owned by the document; WithEvaluator replaces it. A Document is
// safe for concurrent use.
type Document struct {
	mu      sync.RWMutex
	doc     *goquery.Document
	globals map[string]any
	loaded  map[string]bool

	fetcher  Fetcher
	evaluate Evaluator
	runtime  *Runtime
	logger   *slog.Logger
}

// Option configures a Document.
type Option func(*Document)

// WithFetcher sets the asset fetcher.
func WithFetcher(f Fetcher) Option {
	return func(d *Document) {
		if f != nil {
			d.fetcher = f
		}
	}
}

// WithEvaluator replaces the document's Runtime with e.
func WithEvaluator(e Evaluator) Option {
	return func(d *Document) {
		if e != nil {
			d.evaluate = e
			d.runtime = nil
		}
	}
}

// WithRuntime runs scripts in r, which may be shared between documents.
func WithRuntime(r *Runtime) Option {
	return func(d *Document) {
		if r != nil {
			d.runtime = r
			d.evaluate = r.Evaluate
		}
	}
}

// WithLogger sets a logger for host diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithGlobals seeds the global binding table.
func WithGlobals(globals map[string]any) Option {
	return func(d *Document) {
		for k, v := range globals {
			d.globals[k] = v
		}
	}
}

// NewDocument creates a Document over DefaultPage.
func NewDocument(opts ...Option) (*Document, error) {
	return ParseDocument(strings.NewReader(DefaultPage), opts...)
}

// ParseDocument creates a Document over the HTML read from r.
func ParseDocument(r io.Reader, opts ...Option) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse host page: %w", err)
	}

	rt := NewRuntime()
	d := &Document{
		doc:      doc,
		globals:  make(map[string]any),
		loaded:   make(map[string]bool),
		fetcher:  NewHTTPFetcher(),
		evaluate: rt.Evaluate,
		runtime:  rt,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.runtime != nil {
		for name, value := range d.globals {
			if err := d.runtime.Set(name, value); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// LoadScript fetches url and binds the globals its source declares.
// Loading a URL that already loaded successfully is a no-op.
func (d *Document) LoadScript(ctx context.Context, url string) error {
	d.mu.RLock()
	done := d.loaded[url]
	d.mu.RUnlock()
	if done {
		return nil
	}

	source, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("load script %s: %w", url, err)
	}

	bindings, err := d.evaluate(url, source)
	if err != nil {
		return fmt.Errorf("evaluate script %s: %w", url, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loaded[url] {
		return nil
	}
	d.doc.Find("head").AppendNodes(scriptNode(html.Attribute{Key: "src", Val: url}))
	for name, value := range bindings {
		d.globals[name] = value
	}
	d.loaded[url] = true

	d.logger.DebugContext(ctx, "script injected", "url", url, "bindings", len(bindings))
	return nil
}

// Global looks up a binding. Dotted names walk nested objects,
// so "lib.sub" reads member "sub" of global "lib".
func (d *Document) Global(name string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	head, rest, nested := strings.Cut(name, ".")
	value, ok := d.globals[head]
	for ok && nested {
		obj, isObj := value.(map[string]any)
		if !isObj {
			return nil, false
		}
		head, rest, nested = strings.Cut(rest, ".")
		value, ok = obj[head]
	}
	return value, ok
}

// SetGlobal binds value under name, replacing any previous binding. Scripts
// loaded afterward see it as a global.
func (d *Document) SetGlobal(name string, value any) {
	d.mu.Lock()
	d.globals[name] = value
	d.mu.Unlock()

	if d.runtime != nil {
		if err := d.runtime.Set(name, value); err != nil {
			d.logger.Warn("global not visible to scripts", "name", name, "error", err)
		}
	}
}

// Scripts returns the src of every injected script in document order.
func (d *Document) Scripts() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var srcs []string
	d.doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			srcs = append(srcs, src)
		}
	})
	return srcs
}

// SetImportMap writes v as JSON into the page's import map element,
// creating the element in <head> when absent.
func (d *Document) SetImportMap(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal import map: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var node *html.Node
	if el := d.doc.Find(importMapSelector).First(); el.Length() > 0 {
		node = el.Get(0)
	} else {
		node = scriptNode(
			html.Attribute{Key: "type", Val: "importmap"},
			html.Attribute{Key: "data-importmap"},
		)
		d.doc.Find("head").First().PrependNodes(node)
	}

	// Script content is raw text: set the node directly so the JSON is not
	// entity-escaped.
	for c := node.FirstChild; c != nil; c = node.FirstChild {
		node.RemoveChild(c)
	}
	node.AppendChild(&html.Node{Type: html.TextNode, Data: string(data)})
	return nil
}

func scriptNode(attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr:     attrs,
	}
}

// ImportMap returns the raw JSON of the page's import map element, if any.
func (d *Document) ImportMap() (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	el := d.doc.Find(importMapSelector).First()
	if el.Length() == 0 {
		return "", false
	}
	return el.Text(), true
}

// HTML renders the host page.
func (d *Document) HTML() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc.Html()
}
