// Package api implements the editing REST surface and the rendered pages
// using chi.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/joycelee/atelier/internal/apperr"
	"github.com/joycelee/atelier/internal/credentials"
	"github.com/joycelee/atelier/internal/events"
	"github.com/joycelee/atelier/internal/journal"
	"github.com/joycelee/atelier/internal/models"
	"github.com/joycelee/atelier/internal/session"
	"github.com/joycelee/atelier/internal/syncengine"
	"github.com/joycelee/atelier/internal/workspace"
)

// Handler holds the editing API route handlers.
type Handler struct {
	ws       *workspace.Workspace
	engine   *syncengine.Engine
	sessions *session.Manager
	creds    *credentials.Store
	log      *journal.DB // may be nil
	broker   *events.Broker
	draft    *workspace.DraftFile
}

// NewHandler creates a Handler.
func NewHandler(ws *workspace.Workspace, engine *syncengine.Engine, sessions *session.Manager,
	creds *credentials.Store, log *journal.DB, broker *events.Broker, draft *workspace.DraftFile) *Handler {
	return &Handler{ws: ws, engine: engine, sessions: sessions, creds: creds, log: log, broker: broker, draft: draft}
}

// writeError maps domain errors onto HTTP responses.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verrs validation.Errors
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrBadSecret):
		writeJSON(w, http.StatusUnauthorized, errorBody("incorrect password"))
	case errors.Is(err, apperr.ErrLocked):
		writeJSON(w, http.StatusUnauthorized, errorBody("unlock required"))
	case errors.Is(err, apperr.ErrBusy):
		writeJSON(w, http.StatusConflict, errorBody("publish or revert already in progress"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNoCredential):
		writeJSON(w, http.StatusPreconditionRequired, errorBody("content store credential not configured"))
	case errors.As(err, &verrs):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// changed broadcasts a content change so connected views re-render and
// re-bind their editing hooks; none survive a structural change implicitly.
func (h *Handler) changed(kind, slug string) {
	if h.broker == nil {
		return
	}
	h.broker.PublishEditEvent(kind, slug)
	h.broker.PublishStatus(h.engine.Status(), h.ws.IsDirty())
}

// --- Session ---

// Unlock handles POST /api/session/unlock.
func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.sessions.Unlock(sessionID(r), req.Secret); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Enter handles POST /api/session/enter. Safe to call repeatedly: clients
// re-enter after every structural re-render.
func (h *Handler) Enter(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Enter(sessionID(r)); err != nil {
		h.writeError(w, err)
		return
	}
	if h.broker != nil {
		h.broker.PublishStatus(h.engine.Status(), h.ws.IsDirty())
	}
	w.WriteHeader(http.StatusNoContent)
}

// Exit handles POST /api/session/exit. A plain exit with unsaved changes is
// intercepted: the client must resolve it with discard, publish, or cancel.
func (h *Handler) Exit(w http.ResponseWriter, r *http.Request) {
	var req ExitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	switch req.Action {
	case "":
		if h.ws.IsDirty() {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":   "unsaved changes",
				"choices": []string{"discard", "publish", "cancel"},
			})
			return
		}
	case "cancel":
		w.WriteHeader(http.StatusNoContent)
		return
	case "discard":
		if err := h.ws.Discard(); err != nil {
			h.writeError(w, err)
			return
		}
		h.engine.ResetStatus()
		h.changed("updated", "")
	case "publish":
		if err := h.engine.Publish(r.Context(), ""); err != nil {
			h.writeError(w, err)
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("unknown action"))
		return
	}

	h.sessions.Exit(sessionID(r))
	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /api/status. The navigation guard polls this before
// allowing a navigation away.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Dirty:  h.ws.IsDirty(),
		Busy:   h.engine.Busy(),
		Status: h.engine.Status(),
	})
}

// --- Content ---

// GetPortfolio handles GET /api/portfolio.
func (h *Handler) GetPortfolio(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ws.Document())
}

// UpdateSite handles PUT /api/site.
func (h *Handler) UpdateSite(w http.ResponseWriter, r *http.Request) {
	var req SiteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.ws.SetSite(req)
	h.changed("updated", "")
	w.WriteHeader(http.StatusNoContent)
}

// AddProject handles POST /api/projects.
func (h *Handler) AddProject(w http.ResponseWriter, r *http.Request) {
	var req models.ProjectDraft
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := h.ws.AddProject(req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.changed("added", p.Slug)
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProject handles PUT /api/projects/{slug}.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req ProjectCardRequest
	if !decodeBody(w, r, &req) {
		return
	}
	slug := chi.URLParam(r, "slug")
	if err := h.ws.UpdateProjectCard(slug, req); err != nil {
		h.writeError(w, err)
		return
	}
	h.changed("updated", slug)
	w.WriteHeader(http.StatusNoContent)
}

// RemoveProject handles DELETE /api/projects/{slug}.
func (h *Handler) RemoveProject(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := h.ws.RemoveProject(slug); err != nil {
		h.writeError(w, err)
		return
	}
	h.changed("removed", slug)
	w.WriteHeader(http.StatusNoContent)
}

// MoveProject handles POST /api/projects/move. Out-of-range moves are
// no-ops, mirroring the arrow buttons at either end of the list.
func (h *Handler) MoveProject(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.ws.MoveProject(req.Index, req.Direction)
	h.changed("updated", "")
	w.WriteHeader(http.StatusNoContent)
}

// --- Project sub-resources ---

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid index"))
		return 0, false
	}
	return i, true
}

// AddDescription handles POST /api/projects/{slug}/descriptions.
func (h *Handler) AddDescription(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeBody(w, r, &req) {
		return
	}
	slug := chi.URLParam(r, "slug")
	if err := h.ws.AddDescription(slug, req.Text); err != nil {
		h.writeError(w, err)
		return
	}
	h.changed("updated", slug)
	w.WriteHeader(http.StatusNoContent)
}

// SetDescription handles PUT /api/projects/{slug}/descriptions/{index}.
func (h *Handler) SetDescription(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	var req TextRequest
	if !decodeBody(w, r, &req) {
		return
	}
	slug := chi.URLParam(r, "slug")
	if err := h.ws.SetDescription(slug, i, req.Text); err != nil {
		h.writeError(w, err)
		return
	}
	h.changed("updated", slug)
	w.WriteHeader(http.StatusNoContent)
}

// RemoveDescription handles DELETE /api/projects/{slug}/descriptions/{index}.
func (h *Handler) RemoveDescription(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	slug := chi.URLParam(r, "slug")
	if err := h.ws.RemoveDescription(slug, i); err != nil {
		h.writeError(w, err)
		return
	}
	h.changed("updated", slug)
	w.WriteHeader(http.StatusNoContent)
}

// AddMeta handles POST /api/projects/{slug}/meta.
func (h *Handler) AddMeta(w http.ResponseWriter, r *http.Request) {
	var req models.MetaEntry
	if !decodeBody(w, r, &req) {
		return
	}
	slug := chi.URLParam(r, "slug")
	if err := h.ws.AddMeta(slug, req); err != nil {
		h.writeError(w, err)
		return
	}
	h.changed("updated", slug)
	w.WriteHeader(http.StatusNoContent)
}

// SetMeta handles PUT /api/projects/{slug}/meta/{index}.
func (h *Handler) SetMeta(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	var req models.MetaEntry
	if !decodeBody(w, r, &req) {
		return
	}
	slug := chi.URLParam(r, "slug")
	if err := h.ws.SetMeta(slug, i, req); err != nil {
		h.writeError(w, err)
		return
	}
	h.changed("updated", slug)
	w.WriteHeader(http.StatusNoContent)
}

// RemoveMeta handles DELETE /api/projects/{slug}/meta/{index}.
func (h *Handler) RemoveMeta(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	slug := chi.URLParam(r, "slug")
	if err := h.ws.RemoveMeta(slug, i); err != nil {
		h.writeError(w, err)
		return
	}
	h.changed("updated", slug)
	w.WriteHeader(http.StatusNoContent)
}

// AddImage handles POST /api/projects/{slug}/images.
func (h *Handler) AddImage(w http.ResponseWriter, r *http.Request) {
	var req models.Image
	if !decodeBody(w, r, &req) {
		return
	}
	slug := chi.URLParam(r, "slug")
	if err := h.ws.AddImage(slug, req); err != nil {
		h.writeError(w, err)
		return
	}
	h.changed("updated", slug)
	w.WriteHeader(http.StatusNoContent)
}

// SetImage handles PUT /api/projects/{slug}/images/{index}.
func (h *Handler) SetImage(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	var req models.Image
	if !decodeBody(w, r, &req) {
		return
	}
	slug := chi.URLParam(r, "slug")
	if err := h.ws.SetImage(slug, i, req); err != nil {
		h.writeError(w, err)
		return
	}
	h.changed("updated", slug)
	w.WriteHeader(http.StatusNoContent)
}

// RemoveImage handles DELETE /api/projects/{slug}/images/{index}.
func (h *Handler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	i, ok := indexParam(w, r)
	if !ok {
		return
	}
	slug := chi.URLParam(r, "slug")
	if err := h.ws.RemoveImage(slug, i); err != nil {
		h.writeError(w, err)
		return
	}
	h.changed("updated", slug)
	w.WriteHeader(http.StatusNoContent)
}

// SetRelated handles PUT /api/projects/{slug}/related.
func (h *Handler) SetRelated(w http.ResponseWriter, r *http.Request) {
	var req RelatedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	slug := chi.URLParam(r, "slug")
	if err := h.ws.SetRelated(slug, req.Slugs); err != nil {
		h.writeError(w, err)
		return
	}
	h.changed("updated", slug)
	w.WriteHeader(http.StatusNoContent)
}

// --- Sync ---

// Publish handles POST /api/publish.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.engine.Publish(r.Context(), req.Message); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Dirty:  h.ws.IsDirty(),
		Busy:   h.engine.Busy(),
		Status: h.engine.Status(),
	})
}

// History handles GET /api/history: the versions offered for revert, current
// one excluded.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	versions, err := h.engine.History(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := make([]VersionItem, len(versions))
	for i, v := range versions {
		items[i] = VersionItem{SHA: v.SHA, Message: v.Message, Date: v.Date}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Versions: items})
}

// Revert handles POST /api/revert.
func (h *Handler) Revert(w http.ResponseWriter, r *http.Request) {
	var req RevertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SHA == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("sha is required"))
		return
	}
	if err := h.engine.RevertTo(r.Context(), req.SHA); err != nil {
		h.writeError(w, err)
		return
	}
	h.changed("updated", "")
	writeJSON(w, http.StatusOK, StatusResponse{
		Dirty:  h.ws.IsDirty(),
		Busy:   h.engine.Busy(),
		Status: h.engine.Status(),
	})
}

// Journal handles GET /api/journal.
func (h *Handler) Journal(w http.ResponseWriter, r *http.Request) {
	entries := []journal.Entry{}
	if h.log != nil {
		var err error
		entries, err = h.log.Recent(20)
		if err != nil {
			h.writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// --- Settings & draft ---

// UpdateSettings handles PUT /api/settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Repository == "" && req.Token == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("repository or token is required"))
		return
	}
	if err := h.creds.Set(req.Repository, req.Token); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveDraft handles POST /api/draft.
func (h *Handler) SaveDraft(w http.ResponseWriter, _ *http.Request) {
	if h.draft == nil {
		writeJSON(w, http.StatusNotFound, errorBody("drafts disabled"))
		return
	}
	data, err := h.ws.Serialize()
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.draft.Save(data); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearDraft handles DELETE /api/draft.
func (h *Handler) ClearDraft(w http.ResponseWriter, _ *http.Request) {
	if h.draft == nil {
		writeJSON(w, http.StatusNotFound, errorBody("drafts disabled"))
		return
	}
	if err := h.draft.Clear(); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
