package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"text/template"

	"go.uber.org/zap/zaptest"

	"cdv/config"
	"cdv/deck"
	"cdv/fetch"
	"cdv/session"
	"cdv/state"
)

type mapSource map[string]string

func (m mapSource) Fetch(_ context.Context, path string) ([]byte, error) {
	data, ok := m[path]
	if !ok {
		return nil, &fetch.Error{Path: path, Err: os.ErrNotExist}
	}
	return []byte(data), nil
}

const sharedModelJSON = `{"note_models":[{
	"crowdanki_uuid": "m-1",
	"name": "Basic",
	"flds": [{"name": "Front"}, {"name": "Back"}],
	"tmpls": [{"qfmt": "<script src='lib.js'></script><p>{{Front}}</p>", "afmt": "{{FrontSide}}{{Back}}"}]
}]}`

const exportNotesHTML = `<div class="cards"><div class="card" guid="g1" note_model_uuid="m-1">
	<div class="field">q</div><div class="field">a</div></div></div>`

func exportSource() mapSource {
	return mapSource{
		"manifest.json": `{"name": "All Decks", "deckPath": "deck.json", "notesHtmlPath": "notes.html", "children": [
			{"name": "A", "deckPath": "a/deck.json", "notesHtmlPath": "a/notes.html"},
			{"name": "B", "deckPath": "b/deck.json", "notesHtmlPath": "b/notes.html"}]}`,
		"models.json":  sharedModelJSON,
		"deck.json":    `{"name": "All Decks"}`,
		"notes.html":   exportNotesHTML,
		"a/deck.json":  `{"name": "A"}`,
		"a/notes.html": exportNotesHTML,
		"b/deck.json":  `{"name": "B"}`,
		"b/notes.html": exportNotesHTML,
		"lib.js":       "window.lib = true;",
	}
}

func testExporter(t *testing.T, src mapSource, dst string) *exporter {
	t.Helper()
	log := zaptest.NewLogger(t)

	cfg := &config.Config{}
	cfg.Export.PageNameTemplate = "{{.Slug}}/index.html"
	env := &state.LocalEnv{Cfg: cfg, Log: log, Mode: config.RenderModeModel}

	ctrl := session.NewController(fetch.NewCache(src, log), config.RenderModeModel, log)
	root, err := ctrl.LoadManifest(context.Background(), "manifest.json")
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if err := ctrl.LoadRootModels(context.Background(), "models.json"); err != nil {
		t.Fatalf("LoadRootModels() error = %v", err)
	}

	tmpl, err := template.New("page").Parse(pageTmpl)
	if err != nil {
		t.Fatalf("unable to parse page template: %v", err)
	}
	return &exporter{
		log:    log.Named("export"),
		env:    env,
		ctrl:   ctrl,
		page:   tmpl,
		root:   root,
		dst:    dst,
		pages:  make(map[*deck.Node]string),
		copied: make(map[string]struct{}),
	}
}

func readPage(t *testing.T, dst, page string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(page)))
	if err != nil {
		t.Fatalf("unable to read %s: %v", page, err)
	}
	return string(data)
}

// Every page stands alone. A library hoisted while an earlier deck rendered
// must still be referenced by every later page whose cards use it.
func TestExporter_SharedLibraryOnEveryPage(t *testing.T) {
	dst := t.TempDir()
	e := testExporter(t, exportSource(), dst)

	if err := e.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	for _, page := range []string{"a/index.html", "b/index.html"} {
		body := readPage(t, dst, page)
		if !strings.Contains(body, "../lib.js") {
			t.Errorf("%s does not reference the shared library:\n%s", page, body)
		}
	}
	if _, err := os.Stat(filepath.Join(dst, "lib.js")); err != nil {
		t.Errorf("shared library was not copied: %v", err)
	}
}

func TestExporter_IndexLinksRootDeck(t *testing.T) {
	dst := t.TempDir()
	e := testExporter(t, exportSource(), dst)

	if err := e.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	index := readPage(t, dst, "index.html")
	for _, href := range []string{"all-decks/index.html", "a/index.html", "b/index.html"} {
		if !strings.Contains(index, href) {
			t.Errorf("index does not link %s:\n%s", href, index)
		}
	}
}
