package deck

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gosimple/slug"
	"github.com/maruel/natural"
)

// Node is one entry of the deck manifest tree. Paths are relative to the
// corpus root; only DeckPath and NotesHTMLPath participate in rendering,
// NotesPath is carried for the surrounding tooling.
type Node struct {
	Name          string  `json:"name"`
	DeckPath      string  `json:"deckPath"`
	NotesPath     string  `json:"notesPath,omitempty"`
	NotesHTMLPath string  `json:"notesHtmlPath,omitempty"`
	ModelsPath    string  `json:"modelsPath,omitempty"`
	Children      []*Node `json:"children,omitempty"`
}

// ParseManifest decodes a manifest resource. Both the plain JSON object and
// the legacy "window.deckManifest = {...};" JavaScript wrapper are accepted.
// Sibling decks are put into natural order for stable display.
func ParseManifest(data []byte) (*Node, error) {
	payload := stripManifestWrapper(data)

	var root Node
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, fmt.Errorf("unable to decode manifest: %w", err)
	}
	if len(root.Name) == 0 {
		return nil, fmt.Errorf("manifest root has no name")
	}
	sortChildren(&root)
	return &root, nil
}

// stripManifestWrapper cuts an optional assignment prefix and trailing
// semicolon, leaving the JSON object body.
func stripManifestWrapper(data []byte) []byte {
	start := bytes.IndexByte(data, '{')
	end := bytes.LastIndexByte(data, '}')
	if start < 0 || end < start {
		return data
	}
	return data[start : end+1]
}

func sortChildren(n *Node) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		return natural.Less(n.Children[i].Name, n.Children[j].Name)
	})
	for _, c := range n.Children {
		sortChildren(c)
	}
}

// Slug returns URL and file system safe representation of the node name.
func (n *Node) Slug() string {
	return slug.Make(n.Name)
}

// Walk visits the node and all descendants depth first, passing the slug path
// from the root. Traversal stops on the first error.
func (n *Node) Walk(fn func(node *Node, slugPath []string) error) error {
	return n.walk(nil, fn)
}

func (n *Node) walk(prefix []string, fn func(node *Node, slugPath []string) error) error {
	path := append(append([]string(nil), prefix...), n.Slug())
	if err := fn(n, path); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.walk(path, fn); err != nil {
			return err
		}
	}
	return nil
}

// Find resolves a slug path (as produced by Walk, without the root element)
// to a node, returning nil when no node matches.
func (n *Node) Find(slugPath []string) *Node {
	if len(slugPath) == 0 {
		return n
	}
	for _, c := range n.Children {
		if c.Slug() == slugPath[0] {
			return c.Find(slugPath[1:])
		}
	}
	return nil
}
