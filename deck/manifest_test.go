package deck

import (
	"strings"
	"testing"
)

const manifestJSON = `{
	"name": "All Decks",
	"deckPath": "deck.json",
	"children": [
		{"name": "Chapter 10", "deckPath": "c10/deck.json", "notesHtmlPath": "c10/notes.html"},
		{"name": "Chapter 2", "deckPath": "c2/deck.json", "notesHtmlPath": "c2/notes.html",
		 "children": [{"name": "Review", "deckPath": "c2/review/deck.json"}]},
		{"name": "Chapter 1", "deckPath": "c1/deck.json"}
	]
}`

func TestParseManifest_PlainJSON(t *testing.T) {
	root, err := ParseManifest([]byte(manifestJSON))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}
	if root.Name != "All Decks" {
		t.Errorf("root name = %q", root.Name)
	}
	if len(root.Children) != 3 {
		t.Fatalf("root has %d children, want 3", len(root.Children))
	}
}

func TestParseManifest_WindowWrapper(t *testing.T) {
	wrapped := "window.deckManifest = " + manifestJSON + ";\n"
	root, err := ParseManifest([]byte(wrapped))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}
	if root.Name != "All Decks" {
		t.Errorf("root name = %q", root.Name)
	}
}

func TestParseManifest_NaturalOrder(t *testing.T) {
	root, err := ParseManifest([]byte(manifestJSON))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}
	var names []string
	for _, c := range root.Children {
		names = append(names, c.Name)
	}
	want := "Chapter 1,Chapter 2,Chapter 10"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("children order = %q, want %q", got, want)
	}
}

func TestParseManifest_NoRootName(t *testing.T) {
	if _, err := ParseManifest([]byte(`{"deckPath": "deck.json"}`)); err == nil {
		t.Error("ParseManifest() accepted a manifest without a root name")
	}
}

func TestNode_WalkAndFind(t *testing.T) {
	root, err := ParseManifest([]byte(manifestJSON))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}

	var paths []string
	err = root.Walk(func(node *Node, slugPath []string) error {
		paths = append(paths, strings.Join(slugPath, "/"))
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	want := []string{
		"all-decks",
		"all-decks/chapter-1",
		"all-decks/chapter-2",
		"all-decks/chapter-2/review",
		"all-decks/chapter-10",
	}
	if len(paths) != len(want) {
		t.Fatalf("Walk() visited %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("Walk() path %d = %q, want %q", i, paths[i], want[i])
		}
	}

	node := root.Find([]string{"chapter-2", "review"})
	if node == nil || node.Name != "Review" {
		t.Errorf("Find() = %v, want the Review node", node)
	}
	if root.Find([]string{"no-such-deck"}) != nil {
		t.Error("Find() returned a node for an unknown slug path")
	}
}
