// Package export writes a static rendition of a deck corpus: one page per
// deck plus a navigation index, with external assets referenced by the decks
// copied alongside.
package export

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/beevik/etree"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"cdv/config"
	"cdv/deck"
	"cdv/fetch"
	"cdv/session"
	"cdv/state"
)

//go:embed page.gohtml
var pageTmpl string

// Run exports the corpus given as the first argument into the destination
// directory given as the second (working directory when absent).
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("export")

	source := cmd.Args().Get(0)
	if len(source) == 0 {
		return errors.New("no corpus source has been specified")
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.Overwrite = cmd.Bool("overwrite")

	src, err := fetch.New(source, env.Log)
	if err != nil {
		return err
	}
	if c, ok := src.(*fetch.Archive); ok {
		defer func() {
			err = multierr.Append(err, c.Close())
		}()
	}

	log.Info("Export starting", zap.String("source", source), zap.String("destination", dst), zap.Stringer("mode", env.Mode))
	defer func(start time.Time) {
		log.Info("Export completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	e := &exporter{
		log:    log,
		env:    env,
		ctrl:   session.NewController(fetch.NewCache(src, env.Log), env.Mode, env.Log),
		dst:    dst,
		pages:  make(map[*deck.Node]string),
		copied: make(map[string]struct{}),
	}

	tmpl, err := template.New("page").Parse(pageTmpl)
	if err != nil {
		return fmt.Errorf("unable to parse page template: %w", err)
	}
	e.page = tmpl

	root, err := e.ctrl.LoadManifest(ctx, env.Cfg.Corpus.ManifestName)
	if err != nil {
		return err
	}
	if err := e.ctrl.LoadRootModels(ctx, env.Cfg.Corpus.RootModelsName); err != nil {
		return err
	}
	e.root = root

	return e.run(ctx)
}

type exporter struct {
	log  *zap.Logger
	env  *state.LocalEnv
	ctrl *session.Controller
	page *template.Template

	root *deck.Node
	dst  string

	// manifest node to written page name, drives the index
	pages  map[*deck.Node]string
	copied map[string]struct{}
}

func (e *exporter) run(ctx context.Context) error {
	var failed int
	err := e.root.Walk(func(node *deck.Node, slugPath []string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(node.NotesHTMLPath) == 0 {
			return nil
		}
		// Walk puts the root slug first, pages live under destination directly
		if err := e.exportDeck(ctx, node, slugPath[1:]); err != nil {
			failed++
			e.log.Error("Unable to export deck", zap.String("deck", node.Name), zap.Error(err))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := e.writeIndex(); err != nil {
		return err
	}
	if failed != 0 {
		return fmt.Errorf("export finished with failures (%d deck(s))", failed)
	}
	return nil
}

func (e *exporter) exportDeck(ctx context.Context, node *deck.Node, slugPath []string) error {
	// every page is a standalone document, render it against an empty
	// resource scope so libraries hoisted for an earlier deck show up here too
	e.ctrl.ResetResources()
	view, err := e.ctrl.SelectDeck(ctx, node, e.env.Mode)
	if err != nil {
		return err
	}

	// the root deck itself has no path under the root, give it its own slug
	// so its page cannot collide with the navigation index
	if len(slugPath) == 0 {
		slugPath = []string{node.Slug()}
	}
	values := &pageNameValues{
		Name:  node.Name,
		Slug:  strings.Join(slugPath, "/"),
		Depth: len(slugPath),
	}
	pageName, err := expandPageName(config.PageNameTemplateFieldName, e.env.Cfg.Export.PageNameTemplate, values)
	if err != nil {
		return err
	}

	fname := filepath.Join(e.dst, filepath.FromSlash(pageName))
	if _, err := os.Stat(fname); err == nil && !e.env.Overwrite {
		return fmt.Errorf("destination already exists (%s), use overwrite flag to replace it", fname)
	}
	if err := os.MkdirAll(filepath.Dir(fname), 0o755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	prefix := relRoot(pageName)

	data := struct {
		Title, RootName, IndexHref string
		Empty                      bool
		Cards                      []string
		Stylesheets                []string
		Scripts                    []struct {
			Src, OnLoad  string
			Defer, Async bool
		}
		Deferred []string
	}{
		Title:     html.EscapeString(view.Title),
		RootName:  html.EscapeString(e.root.Name),
		IndexHref: prefix + "index.html",
		Empty:     view.Empty,
		Deferred:  view.Deferred,
	}
	for _, c := range view.Cards {
		data.Cards = append(data.Cards, c.HTML)
	}
	for _, st := range view.Stylesheets {
		data.Stylesheets = append(data.Stylesheets, e.assetHref(ctx, st.Href, prefix))
	}
	for _, sc := range view.Scripts {
		data.Scripts = append(data.Scripts, struct {
			Src, OnLoad  string
			Defer, Async bool
		}{Src: e.assetHref(ctx, sc.Src, prefix), OnLoad: sc.OnLoad, Defer: sc.Defer, Async: sc.Async})
	}

	out, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("unable to create page file: %w", err)
	}
	defer out.Close()

	if err := e.page.Execute(out, &data); err != nil {
		return fmt.Errorf("unable to render page: %w", err)
	}

	e.pages[node] = pageName
	e.log.Info("Exported deck", zap.String("deck", node.Name), zap.String("page", pageName), zap.Int("cards", len(view.Cards)))
	return nil
}

// assetHref rewrites a corpus relative asset reference for a page, copying
// the asset into the destination on first use. Absolute references stay
// untouched.
func (e *exporter) assetHref(ctx context.Context, ref, prefix string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "//") {
		return ref
	}
	rel := path.Clean(strings.TrimLeft(ref, "/"))
	if _, done := e.copied[rel]; !done {
		e.copied[rel] = struct{}{}
		if err := e.copyAsset(ctx, rel); err != nil {
			e.log.Warn("Unable to copy deck asset", zap.String("asset", ref), zap.Error(err))
		}
	}
	return prefix + rel
}

func (e *exporter) copyAsset(ctx context.Context, rel string) error {
	data, err := e.ctrl.Fetch(ctx, rel)
	if err != nil {
		return err
	}
	fname := filepath.Join(e.dst, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(fname), 0o755); err != nil {
		return err
	}
	return os.WriteFile(fname, data, 0o644)
}

// writeIndex builds the navigation page linking every exported deck,
// preserving the manifest tree shape.
func (e *exporter) writeIndex() error {
	doc := etree.NewDocument()
	doc.CreateDirective("DOCTYPE html")

	htmlElem := doc.CreateElement("html")
	htmlElem.CreateAttr("lang", "en")

	head := htmlElem.CreateElement("head")
	meta := head.CreateElement("meta")
	meta.CreateAttr("charset", "utf-8")
	title := head.CreateElement("title")
	title.SetText(e.root.Name)
	style := head.CreateElement("style")
	style.SetText("body { margin: 0 auto; max-width: 40em; font-family: sans-serif; padding: 1em 2em; } ul { list-style: none; padding-left: 1em; } a { text-decoration: none; color: #246; }")

	body := htmlElem.CreateElement("body")
	h1 := body.CreateElement("h1")
	if pageName, ok := e.pages[e.root]; ok {
		a := h1.CreateElement("a")
		a.CreateAttr("href", pageName)
		a.SetText(e.root.Name)
	} else {
		h1.SetText(e.root.Name)
	}
	e.buildIndexTree(body, e.root)

	doc.Indent(2)
	fname := filepath.Join(e.dst, "index.html")
	if err := doc.WriteToFile(fname); err != nil {
		return fmt.Errorf("unable to write index: %w", err)
	}
	e.log.Info("Wrote navigation index", zap.String("file", fname), zap.Int("decks", len(e.pages)))
	return nil
}

func (e *exporter) buildIndexTree(parent *etree.Element, node *deck.Node) {
	if len(node.Children) == 0 {
		return
	}
	ul := parent.CreateElement("ul")
	for _, child := range node.Children {
		li := ul.CreateElement("li")
		if pageName, ok := e.pages[child]; ok {
			a := li.CreateElement("a")
			a.CreateAttr("href", pageName)
			a.SetText(child.Name)
		} else {
			span := li.CreateElement("span")
			span.SetText(child.Name)
		}
		e.buildIndexTree(li, child)
	}
}
