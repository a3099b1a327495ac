package render

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// StylesheetRef is an external stylesheet hoisted into the shared document.
type StylesheetRef struct {
	Href string
}

// ScriptRef is an external script hoisted into the shared document.
// Scheduling flags and the onload handler are preserved verbatim so load
// order sensitive libraries keep working.
type ScriptRef struct {
	Src    string
	Defer  bool
	Async  bool
	OnLoad string
}

// Mark remembers how much of the shared document existed at some point, so a
// render pass can report what it added.
type Mark struct {
	styles, scripts int
}

// Resources stands in for the shared page scope. The seen set of resource
// URLs is append only for the session lifetime; deferred inline scripts live
// only until the end of the current render pass.
type Resources struct {
	log *zap.Logger

	seen    map[string]struct{}
	styles  []StylesheetRef
	scripts []ScriptRef

	deferred     []string
	deferredSeen map[string]struct{}
}

func NewResources(log *zap.Logger) *Resources {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resources{
		log:          log.Named("resources"),
		seen:         make(map[string]struct{}),
		deferredSeen: make(map[string]struct{}),
	}
}

// Hoist extracts externally loadable resources and inline scripts from an
// HTML fragment, deduplicates them against the shared document and returns
// the fragment with those elements removed. When librariesOnly is set inline
// scripts are left untouched - the preloading pass only harvests library
// references, it never collects arbitrary code.
//
// The returned string is the input itself when nothing was removed, avoiding
// needless re-serialization.
func (r *Resources) Hoist(fragment string, librariesOnly bool) (string, error) {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), fragmentContext())
	if err != nil {
		return "", fmt.Errorf("unable to parse fragment: %w", err)
	}

	modified := false
	kept := nodes[:0]
	for _, n := range nodes {
		if r.hoistNode(n, librariesOnly, &modified) {
			kept = append(kept, n)
		}
	}
	if !modified {
		return fragment, nil
	}

	var b strings.Builder
	for _, n := range kept {
		if err := html.Render(&b, n); err != nil {
			return "", fmt.Errorf("unable to serialize fragment: %w", err)
		}
	}
	return b.String(), nil
}

// hoistNode reports whether the node should be kept in the fragment,
// registering hoisted resources on the way. Check-then-register happens
// within one synchronous step so two cards of a render batch cannot hoist
// the same asset twice.
func (r *Resources) hoistNode(n *html.Node, librariesOnly bool, modified *bool) bool {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Link:
			if strings.EqualFold(nodeAttr(n, "rel"), "stylesheet") {
				if href := nodeAttr(n, "href"); len(href) != 0 {
					// removed even when already registered - a repeat render
					// of the same template must not reapply the stylesheet
					r.registerStylesheet(href)
					*modified = true
					return false
				}
			}
		case atom.Script:
			if src := nodeAttr(n, "src"); len(src) != 0 {
				r.registerScript(ScriptRef{
					Src:    src,
					Defer:  hasAttr(n, "defer"),
					Async:  hasAttr(n, "async"),
					OnLoad: nodeAttr(n, "onload"),
				})
				*modified = true
				return false
			}
			if librariesOnly {
				return true
			}
			r.addDeferred(scriptText(n))
			*modified = true
			return false
		}
	}

	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if !r.hoistNode(c, librariesOnly, modified) {
			n.RemoveChild(c)
		}
		c = next
	}
	return true
}

func (r *Resources) registerStylesheet(href string) {
	if _, ok := r.seen[href]; ok {
		return
	}
	r.seen[href] = struct{}{}
	r.styles = append(r.styles, StylesheetRef{Href: href})
	r.log.Debug("Hoisted stylesheet", zap.String("href", href))
}

func (r *Resources) registerScript(ref ScriptRef) {
	if _, ok := r.seen[ref.Src]; ok {
		return
	}
	r.seen[ref.Src] = struct{}{}
	r.scripts = append(r.scripts, ref)
	r.log.Debug("Hoisted script", zap.String("src", ref.Src), zap.Bool("defer", ref.Defer), zap.Bool("async", ref.Async))
}

// addDeferred collects inline script content to run once after the whole
// deck is rendered, deduplicated by exact text.
func (r *Resources) addDeferred(content string) {
	if len(strings.TrimSpace(content)) == 0 {
		return
	}
	if _, ok := r.deferredSeen[content]; ok {
		return
	}
	r.deferredSeen[content] = struct{}{}
	r.deferred = append(r.deferred, content)
}

// Registered reports whether a resource URL has already been hoisted.
func (r *Resources) Registered(url string) bool {
	_, ok := r.seen[url]
	return ok
}

// Mark captures the current extent of the shared document.
func (r *Resources) Mark() Mark {
	return Mark{styles: len(r.styles), scripts: len(r.scripts)}
}

// Since returns resources hoisted after the mark, in insertion order.
func (r *Resources) Since(m Mark) ([]StylesheetRef, []ScriptRef) {
	styles := make([]StylesheetRef, len(r.styles)-m.styles)
	copy(styles, r.styles[m.styles:])
	scripts := make([]ScriptRef, len(r.scripts)-m.scripts)
	copy(scripts, r.scripts[m.scripts:])
	return styles, scripts
}

// Stylesheets returns every hoisted stylesheet in insertion order.
func (r *Resources) Stylesheets() []StylesheetRef {
	out := make([]StylesheetRef, len(r.styles))
	copy(out, r.styles)
	return out
}

// Scripts returns every hoisted external script in insertion order.
func (r *Resources) Scripts() []ScriptRef {
	out := make([]ScriptRef, len(r.scripts))
	copy(out, r.scripts)
	return out
}

// Deferred returns collected inline scripts in insertion order. Each entry
// is meant to execute exactly once after the full render pass.
func (r *Resources) Deferred() []string {
	out := make([]string, len(r.deferred))
	copy(out, r.deferred)
	return out
}

// ResetDeferred clears the deferred script set at the deck render boundary.
// Hoisted resource registrations survive - registering is a one way
// transition for the page lifetime.
func (r *Resources) ResetDeferred() {
	r.deferred = nil
	r.deferredSeen = make(map[string]struct{})
}

func fragmentContext() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

func nodeAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func scriptText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
