// Package syncengine orchestrates the read-modify-write protocol between the
// workspace and the remote content store: publish commits the working copy,
// revert stages an older version locally without writing it back.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joycelee/atelier/internal/apperr"
	"github.com/joycelee/atelier/internal/contentstore"
	"github.com/joycelee/atelier/internal/events"
	"github.com/joycelee/atelier/internal/journal"
	"github.com/joycelee/atelier/internal/models"
	"github.com/joycelee/atelier/internal/workspace"
)

// Status labels shown while the editor is active.
const (
	StatusEditMode   = "Edit Mode"
	StatusUnsaved    = "Unsaved Changes"
	StatusPublishing = "Publishing..."
	StatusPublished  = "Published"
	StatusReverted   = "Reverted (unpublished)"
)

// DefaultCommitMessage is used when the operator does not supply one.
const DefaultCommitMessage = "Update portfolio content"

const (
	historyPageSize    = 10
	publishedLabelHold = 3 * time.Second
)

// Engine serializes publish and revert against one target path. Overlapping
// attempts are rejected with apperr.ErrBusy rather than queued, so the
// token-check-then-write protocol stays atomic.
type Engine struct {
	store  contentstore.Store
	ws     *workspace.Workspace
	log    *journal.DB // may be nil
	broker *events.Broker
	logger *slog.Logger
	draft  *workspace.DraftFile // may be nil

	mu        sync.Mutex
	busy      bool
	transient string
	holdTimer *time.Timer
}

// New creates an engine. journal may be nil to disable the local log.
func New(store contentstore.Store, ws *workspace.Workspace, log *journal.DB, broker *events.Broker, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, ws: ws, log: log, broker: broker, logger: logger}
}

// AttachDraft makes a successful publish clear the local draft file.
func (e *Engine) AttachDraft(d *workspace.DraftFile) {
	e.draft = d
}

// Load fetches the current document from the store. A missing file is the
// valid zero-state and yields an empty portfolio.
func (e *Engine) Load(ctx context.Context) (*models.Portfolio, error) {
	f, err := e.store.Read(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return &models.Portfolio{Projects: []models.Project{}}, nil
		}
		return nil, err
	}
	return models.Decode(f.Content)
}

// Status returns the current label: a transient protocol label when one is
// active, otherwise "Unsaved Changes" or "Edit Mode" from the dirty flag.
func (e *Engine) Status() string {
	e.mu.Lock()
	transient := e.transient
	e.mu.Unlock()
	if transient != "" {
		return transient
	}
	if e.ws.IsDirty() {
		return StatusUnsaved
	}
	return StatusEditMode
}

// Busy reports whether a publish or revert is in flight.
func (e *Engine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// Publish serializes the working copy and commits it. The version token is
// fetched fresh on every attempt; a 404 means "no prior file" and the write
// proceeds as a create. On failure nothing local changes and the status
// label reverts.
func (e *Engine) Publish(ctx context.Context, message string) error {
	if message == "" {
		message = DefaultCommitMessage
	}
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	e.setTransient(StatusPublishing)

	token := ""
	f, err := e.store.Read(ctx)
	switch {
	case err == nil:
		token = f.SHA
	case errors.Is(err, apperr.ErrNotFound):
		// No prior version; create.
	default:
		e.setTransient("")
		return fmt.Errorf("fetch version token: %w", err)
	}

	payload, err := e.ws.Serialize()
	if err != nil {
		e.setTransient("")
		return err
	}

	commit, err := e.store.Write(ctx, message, payload, token)
	if err != nil {
		e.setTransient("")
		e.logger.Error("publish failed", slog.String("error", err.Error()))
		return fmt.Errorf("publish: %w", err)
	}

	e.ws.CommitSnapshot(payload)
	if e.draft != nil {
		if err := e.draft.Clear(); err != nil {
			e.logger.Warn("draft clear failed", slog.String("error", err.Error()))
		}
	}
	e.record(journal.ActionPublish, commit.SHA, message)
	e.logger.Info("published",
		slog.String("commit", commit.SHA),
		slog.String("message", message))

	// Show "Published" briefly, then fall back to the baseline label.
	e.setTransient(StatusPublished)
	e.mu.Lock()
	if e.holdTimer != nil {
		e.holdTimer.Stop()
	}
	e.holdTimer = time.AfterFunc(publishedLabelHold, func() { e.setTransient("") })
	e.mu.Unlock()

	return nil
}

// History lists prior versions of the document, newest first, excluding the
// current one: reverting to the current version would be a no-op and is not
// offered.
func (e *Engine) History(ctx context.Context) ([]contentstore.Version, error) {
	versions, err := e.store.History(ctx, historyPageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	if len(versions) > 0 {
		versions = versions[1:]
	}
	return versions, nil
}

// RevertTo fetches the document at an older version and stages it as the
// working copy, marked dirty. Nothing is written to the store; the operator
// must publish to make the staged content live.
func (e *Engine) RevertTo(ctx context.Context, sha string) error {
	if err := e.begin(); err != nil {
		return err
	}
	defer e.end()

	f, err := e.store.ReadAt(ctx, sha)
	if err != nil {
		e.setTransient("")
		return fmt.Errorf("fetch version %s: %w", sha, err)
	}
	doc, err := models.Decode(f.Content)
	if err != nil {
		e.setTransient("")
		return fmt.Errorf("parse version %s: %w", sha, err)
	}

	e.ws.Stage(doc)
	e.record(journal.ActionRevert, sha, "")
	e.setTransient(StatusReverted)
	e.logger.Info("reverted", slog.String("version", sha))
	return nil
}

// ResetStatus drops any transient label, returning Status to the baseline.
// Called when staged content is discarded.
func (e *Engine) ResetStatus() {
	e.setTransient("")
}

func (e *Engine) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return apperr.ErrBusy
	}
	e.busy = true
	return nil
}

func (e *Engine) end() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}

func (e *Engine) setTransient(label string) {
	e.mu.Lock()
	e.transient = label
	e.mu.Unlock()
	if e.broker != nil {
		e.broker.PublishStatus(e.Status(), e.ws.IsDirty())
	}
}

func (e *Engine) record(action, sha, message string) {
	if e.log == nil {
		return
	}
	if err := e.log.Record(action, sha, message); err != nil {
		e.logger.Warn("journal record failed", slog.String("error", err.Error()))
	}
}
