// Package session coordinates deck selection: concurrent resource fetches,
// model registry merging and rendering of the full card list, guarded against
// a newer selection superseding a slow one.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cdv/config"
	"cdv/deck"
	"cdv/fetch"
	"cdv/render"
)

// ErrSuperseded is returned when another deck selection started while this
// one was still loading. The stale result must be discarded, not displayed.
var ErrSuperseded = errors.New("deck selection superseded")

// DeckView is the fully rendered state of one deck selection.
type DeckView struct {
	Node  *deck.Node
	Title string
	Token uuid.UUID
	Mode  config.RenderMode
	Cards []render.Card

	// resources hoisted by this render pass, to be injected into the page
	Stylesheets []render.StylesheetRef
	Scripts     []render.ScriptRef
	Deferred    []string

	Empty bool
}

// deckInfo is the slice of the deck resource the viewer cares about.
type deckInfo struct {
	Name        string `json:"name"`
	Description string `json:"desc"`
}

// Controller owns the per-session model registry and resource scope. Both
// are mutated during a selection (model merge, resource hoisting), so the
// whole merge-and-render phase holds renderMu: fetches of different
// selections may overlap, registry and resource access may not.
type Controller struct {
	log       *zap.Logger
	fetcher   *fetch.Cache
	models    *deck.Registry
	resources *render.Resources
	mode      config.RenderMode

	// serializes registry/resource mutation and rendering
	renderMu sync.Mutex

	mu      sync.Mutex
	current uuid.UUID
}

func NewController(fetcher *fetch.Cache, mode config.RenderMode, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("session")
	return &Controller{
		log:       log,
		fetcher:   fetcher,
		models:    deck.NewRegistry(log),
		resources: render.NewResources(log),
		mode:      mode,
	}
}

func (c *Controller) Mode() config.RenderMode {
	return c.mode
}

// ResetResources discards the accumulated resource scope. Callers producing
// standalone documents start every render from an empty scope so each one
// receives the full set of assets its cards reference.
func (c *Controller) ResetResources() {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()
	c.resources = render.NewResources(c.log)
}

// Fetch retrieves a raw corpus resource through the session fetcher.
func (c *Controller) Fetch(ctx context.Context, path string) ([]byte, error) {
	return c.fetcher.Fetch(ctx, path)
}

// LoadManifest fetches and parses the deck manifest.
func (c *Controller) LoadManifest(ctx context.Context, path string) (*deck.Node, error) {
	data, err := c.fetcher.Fetch(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("unable to load manifest: %w", err)
	}
	root, err := deck.ParseManifest(data)
	if err != nil {
		return nil, err
	}
	c.log.Debug("Loaded manifest", zap.String("path", path), zap.String("root", root.Name))
	return root, nil
}

// LoadRootModels seeds the registry with the corpus wide model baseline. A
// missing baseline file is expected for corpora that only ship per-deck
// models and is not an error.
func (c *Controller) LoadRootModels(ctx context.Context, path string) error {
	if len(path) == 0 {
		return nil
	}
	var mf deck.ModelFile
	if err := c.fetcher.FetchJSON(ctx, path, &mf); err != nil {
		if fetch.NotFound(err) {
			c.log.Debug("No root note models", zap.String("path", path))
			return nil
		}
		return fmt.Errorf("unable to load root note models: %w", err)
	}
	c.renderMu.Lock()
	c.models.Merge(mf.NoteModels)
	c.renderMu.Unlock()
	c.log.Info("Loaded root note models", zap.String("path", path), zap.Int("models", len(mf.NoteModels)))
	return nil
}

// SelectDeck loads and renders a deck. Deck data and notes markup are fetched
// concurrently; deck local note models are fetched once both primary fetches
// succeeded and merged before rendering, their absence tolerated. The returned
// view belongs to the selection token current at completion - when a newer
// selection has started in the meantime, ErrSuperseded comes back instead.
func (c *Controller) SelectDeck(ctx context.Context, node *deck.Node, mode config.RenderMode) (*DeckView, error) {
	token := c.begin()

	var (
		info  deckInfo
		notes []deck.Note
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(node.DeckPath) == 0 {
			return nil
		}
		if err := c.fetcher.FetchJSON(gctx, node.DeckPath, &info); err != nil {
			return fmt.Errorf("unable to load deck data: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if len(node.NotesHTMLPath) == 0 {
			return nil
		}
		data, err := c.fetcher.Fetch(gctx, node.NotesHTMLPath)
		if err != nil {
			return fmt.Errorf("unable to load deck notes: %w", err)
		}
		notes, err = deck.ParseNotes(bytes.NewReader(data), c.log)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// deck local models are an optional refinement over the baseline and are
	// only requested once the primary deck resources arrived
	var local []*deck.Model
	if len(node.ModelsPath) != 0 {
		var mf deck.ModelFile
		if err := c.fetcher.FetchJSON(ctx, node.ModelsPath, &mf); err != nil {
			c.log.Debug("Deck note models unavailable", zap.String("path", node.ModelsPath), zap.Error(err))
		} else {
			local = mf.NoteModels
		}
	}

	title := node.Name
	if len(info.Name) != 0 {
		title = info.Name
	}

	view := &DeckView{
		Node:  node,
		Title: title,
		Token: token,
		Mode:  mode,
	}

	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	// merging is additive, so results of an already superseded fetch are
	// still safe to keep
	c.models.Merge(local)
	if !c.isCurrent(token) {
		return nil, ErrSuperseded
	}

	if len(notes) == 0 {
		view.Empty = true
		return view, nil
	}

	renderer := render.NewRenderer(c.models, c.resources, mode, c.log)

	mark := c.resources.Mark()
	c.resources.ResetDeferred()

	// libraries referenced by templates must be registered before any card
	// of this pass renders, keeping their declaration order stable
	if err := renderer.PreloadTemplates(); err != nil {
		return nil, err
	}

	view.Cards = make([]render.Card, 0, len(notes))
	for i := range notes {
		card, err := renderer.RenderNote(i, &notes[i])
		if err != nil {
			return nil, err
		}
		view.Cards = append(view.Cards, card)
	}

	view.Stylesheets, view.Scripts = c.resources.Since(mark)
	view.Deferred = c.resources.Deferred()

	if !c.isCurrent(token) {
		return nil, ErrSuperseded
	}
	c.log.Info("Rendered deck",
		zap.String("deck", node.Name),
		zap.Int("cards", len(view.Cards)),
		zap.Stringer("mode", mode))
	return view, nil
}

func (c *Controller) begin() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = uuid.New()
	return c.current
}

func (c *Controller) isCurrent(token uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == token
}
