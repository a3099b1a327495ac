package deck

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// HTML parsing for the notes corpus. We want exhaustive parsing of the small
// fixed vocabulary the exporter produces (.cards > .card > .field/.tags/.extra)
// while leaving arbitrary HTML inside field elements untouched.

// ParseNotes recovers note records from a notes markup document. A document
// without a cards container yields an empty sequence - a deck may
// legitimately be empty. Only an unreadable document is an error.
func ParseNotes(r io.Reader, log *zap.Logger) ([]Note, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("unable to parse notes document: %w", err)
	}

	container := findByClass(doc, "cards")
	if container == nil {
		log.Debug("No cards container in notes document")
		return nil, nil
	}

	var notes []Note
	for el := range childElements(container) {
		if !hasClass(el, "card") {
			continue
		}
		notes = append(notes, parseCard(el, log))
	}
	log.Debug("Parsed notes document", zap.Int("notes", len(notes)))
	return notes, nil
}

func parseCard(el *html.Node, log *zap.Logger) Note {
	note := Note{}

	for _, key := range attributeKeys {
		if value, ok := attrValue(el, key); ok {
			if note.Attributes == nil {
				note.Attributes = make(map[string]string)
			}
			note.Attributes[key] = value
		}
	}

	for child := range childElements(el) {
		switch {
		case hasClass(child, "field"):
			note.Fields = append(note.Fields, innerHTML(child))
		case hasClass(child, "tags"):
			note.Tags = strings.Fields(textContent(child))
		case hasClass(child, "extra"):
			key, ok := attrValue(child, "key")
			if !ok || len(key) == 0 {
				log.Warn("Extra element without key, ignoring")
				continue
			}
			if note.Extra == nil {
				note.Extra = make(map[string]any)
			}
			note.Extra[key] = decodeExtraValue(textContent(child))
		}
	}
	return note
}

// decodeExtraValue attempts a strict JSON parse of the element text, falling
// back to the raw text. Numbers are kept as json.Number so large identifiers
// survive verbatim.
func decodeExtraValue(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	// trailing content means the text was not a single JSON value
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		return raw
	}
	return v
}

// findByClass returns the first element in document order carrying the class.
func findByClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

// childElements iterates direct child elements in document order.
func childElements(n *html.Node) func(yield func(*html.Node) bool) {
	return func(yield func(*html.Node) bool) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

func attrValue(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	list, ok := attrValue(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(list) {
		if c == class {
			return true
		}
	}
	return false
}

// innerHTML serializes element children exactly as the structural parser
// yields them.
func innerHTML(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		// serialization of a well-formed tree cannot fail
		_ = html.Render(&b, c)
	}
	return b.String()
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
