// Package server implements the interactive deck viewer: a single shell page
// with the deck tree and a JSON endpoint serving rendered decks.
package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	sprig "github.com/go-task/slim-sprig/v3"
	"go.uber.org/zap"

	"cdv/config"
	"cdv/deck"
	"cdv/fetch"
	"cdv/session"
)

//go:embed shell.gohtml
var shellTmpl string

type Server struct {
	log   *zap.Logger
	cfg   *config.Config
	ctrl  *session.Controller
	root  *deck.Node
	shell *template.Template
}

func NewServer(cfg *config.Config, ctrl *session.Controller, root *deck.Node, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	shell, err := template.New("shell").Funcs(template.FuncMap(sprig.FuncMap())).Parse(shellTmpl)
	if err != nil {
		return nil, fmt.Errorf("unable to parse page template: %w", err)
	}
	return &Server{
		log:   log.Named("server"),
		cfg:   cfg,
		ctrl:  ctrl,
		root:  root,
		shell: shell,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /deck/{path...}", s.handleDeck)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Title string
		Root  *deck.Node
	}{
		Title: s.cfg.Server.PageTitle,
		Root:  s.root,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.shell.Execute(w, data); err != nil {
		s.log.Error("Unable to render page", zap.Error(err))
	}
}

// wire format of the deck endpoint
type (
	stylesheetPayload struct {
		Href string `json:"href"`
	}
	scriptPayload struct {
		Src    string `json:"src"`
		Defer  bool   `json:"defer,omitempty"`
		Async  bool   `json:"async,omitempty"`
		OnLoad string `json:"onload,omitempty"`
	}
	deckPayload struct {
		Title       string              `json:"title"`
		Mode        string              `json:"mode"`
		Empty       bool                `json:"empty,omitempty"`
		Cards       []string            `json:"cards,omitempty"`
		Stylesheets []stylesheetPayload `json:"stylesheets,omitempty"`
		Scripts     []scriptPayload     `json:"scripts,omitempty"`
		Deferred    []string            `json:"deferred,omitempty"`
	}
)

func (s *Server) handleDeck(w http.ResponseWriter, r *http.Request) {
	// an empty path addresses the root deck itself
	var slugPath []string
	if trimmed := strings.Trim(r.PathValue("path"), "/"); len(trimmed) != 0 {
		slugPath = strings.Split(trimmed, "/")
	}
	node := s.root.Find(slugPath)
	if node == nil {
		http.NotFound(w, r)
		return
	}

	mode := s.ctrl.Mode()
	if v := r.URL.Query().Get("mode"); len(v) != 0 {
		var err error
		if mode, err = config.ParseRenderMode(v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	view, err := s.ctrl.SelectDeck(r.Context(), node, mode)
	if err != nil {
		if errors.Is(err, session.ErrSuperseded) {
			// client already moved on, an empty conflict answer is enough
			w.WriteHeader(http.StatusConflict)
			return
		}
		status := http.StatusBadGateway
		if fetch.NotFound(err) {
			status = http.StatusNotFound
		}
		s.log.Error("Unable to load deck", zap.String("deck", node.Name), zap.Error(err))
		http.Error(w, "unable to load deck", status)
		return
	}

	payload := deckPayload{
		Title: view.Title,
		Mode:  view.Mode.String(),
		Empty: view.Empty,
	}
	for _, c := range view.Cards {
		payload.Cards = append(payload.Cards, c.HTML)
	}
	for _, st := range view.Stylesheets {
		payload.Stylesheets = append(payload.Stylesheets, stylesheetPayload{Href: st.Href})
	}
	for _, sc := range view.Scripts {
		payload.Scripts = append(payload.Scripts, scriptPayload{Src: sc.Src, Defer: sc.Defer, Async: sc.Async, OnLoad: sc.OnLoad})
	}
	payload.Deferred = view.Deferred

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(&payload); err != nil {
		s.log.Error("Unable to write deck response", zap.Error(err))
	}
}

// Serve runs the HTTP server until the context is canceled, then shuts it
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Server.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Serving deck viewer", zap.String("listen", s.cfg.Server.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down")
		if err := srv.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("unable to shut down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}
