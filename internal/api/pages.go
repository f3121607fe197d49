package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/joycelee/atelier/internal/apperr"
	"github.com/joycelee/atelier/internal/credentials"
	"github.com/joycelee/atelier/internal/renderer"
	"github.com/joycelee/atelier/internal/workspace"
)

// Pages serves the rendered portfolio pages.
type Pages struct {
	ws       *workspace.Workspace
	renderer *renderer.Renderer
	creds    *credentials.Store
	logger   *slog.Logger
}

// NewPages creates the page handlers.
func NewPages(ws *workspace.Workspace, r *renderer.Renderer, creds *credentials.Store, logger *slog.Logger) *Pages {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pages{ws: ws, renderer: r, creds: creds, logger: logger}
}

func pageOptions(r *http.Request) renderer.PageOptions {
	return renderer.PageOptions{EditRevealed: r.URL.Query().Has("admin")}
}

// Home serves the index page. A one-shot ?setup=<token> query stores the
// token and redirects to the same URL with the secret scrubbed, so it never
// lingers in the address bar or browser history.
func (p *Pages) Home(w http.ResponseWriter, r *http.Request) {
	if token := r.URL.Query().Get("setup"); token != "" {
		if err := p.creds.Set("", token); err != nil {
			p.logger.Error("credential setup failed", slog.String("error", err.Error()))
			http.Error(w, "credential setup failed", http.StatusInternalServerError)
			return
		}
		q := r.URL.Query()
		q.Del("setup")
		u := *r.URL
		u.RawQuery = q.Encode()
		http.Redirect(w, r, u.String(), http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := p.renderer.Render(w, p.ws.Document(), pageOptions(r)); err != nil {
		p.logger.Error("render index failed", slog.String("error", err.Error()))
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

// Project serves the detail page for ?slug=.
func (p *Pages) Project(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	if slug == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := p.renderer.RenderProject(w, p.ws.Document(), slug, pageOptions(r))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		p.logger.Error("render project failed",
			slog.String("slug", slug),
			slog.String("error", err.Error()))
	}
}
