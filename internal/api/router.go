package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joycelee/atelier/internal/credentials"
	"github.com/joycelee/atelier/internal/events"
	"github.com/joycelee/atelier/internal/journal"
	"github.com/joycelee/atelier/internal/renderer"
	"github.com/joycelee/atelier/internal/session"
	"github.com/joycelee/atelier/internal/syncengine"
	"github.com/joycelee/atelier/internal/workspace"
)

// Deps carries everything the router needs. Journal, Broker, and Draft may
// be nil to disable those features.
type Deps struct {
	Workspace   *workspace.Workspace
	Engine      *syncengine.Engine
	Sessions    *session.Manager
	Credentials *credentials.Store
	Journal     *journal.DB
	Broker      *events.Broker
	Renderer    *renderer.Renderer
	Draft       *workspace.DraftFile
	StaticDir   string
	Logger      *slog.Logger
}

// NewRouter wires the pages, the editing API, and the event stream.
func NewRouter(d Deps) chi.Router {
	h := NewHandler(d.Workspace, d.Engine, d.Sessions, d.Credentials, d.Journal, d.Broker, d.Draft)
	pages := NewPages(d.Workspace, d.Renderer, d.Credentials, d.Logger)

	r := chi.NewRouter()
	r.Use(WithSession)

	r.Get("/", pages.Home)
	r.Get("/project", pages.Project)
	if d.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(d.StaticDir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/session/unlock", h.Unlock)
		r.Post("/session/enter", h.Enter)
		r.Post("/session/exit", h.Exit)
		r.Get("/status", h.Status)
		r.Get("/portfolio", h.GetPortfolio)
		r.Get("/history", h.History)
		r.Get("/journal", h.Journal)
		if d.Broker != nil {
			r.Get("/events", d.Broker.ServeHTTP)
		}

		// Everything that mutates requires an active edit session.
		r.Group(func(r chi.Router) {
			r.Use(RequireActive(d.Sessions))

			r.Put("/site", h.UpdateSite)
			r.Put("/settings", h.UpdateSettings)

			r.Post("/projects", h.AddProject)
			r.Post("/projects/move", h.MoveProject)
			r.Route("/projects/{slug}", func(r chi.Router) {
				r.Put("/", h.UpdateProject)
				r.Delete("/", h.RemoveProject)

				r.Post("/descriptions", h.AddDescription)
				r.Put("/descriptions/{index}", h.SetDescription)
				r.Delete("/descriptions/{index}", h.RemoveDescription)

				r.Post("/meta", h.AddMeta)
				r.Put("/meta/{index}", h.SetMeta)
				r.Delete("/meta/{index}", h.RemoveMeta)

				r.Post("/images", h.AddImage)
				r.Put("/images/{index}", h.SetImage)
				r.Delete("/images/{index}", h.RemoveImage)

				r.Put("/related", h.SetRelated)
			})

			r.Post("/publish", h.Publish)
			r.Post("/revert", h.Revert)

			r.Post("/draft", h.SaveDraft)
			r.Delete("/draft", h.ClearDraft)
		})
	})

	return r
}
