// Package workspace owns the live working copy of the portfolio document,
// the last-synced snapshot, and the dirty flag derived from edits.
package workspace

import (
	"fmt"
	"strings"
	"sync"

	"github.com/joycelee/atelier/internal/apperr"
	"github.com/joycelee/atelier/internal/checksum"
	"github.com/joycelee/atelier/internal/models"
)

// ProjectCard carries the card-level fields edited through the project modal.
// Empty Title or Slug keeps the current value; the other fields are written
// as given.
type ProjectCard struct {
	Title     string `json:"title"`
	Slug      string `json:"slug"`
	Type      string `json:"type"`
	CardMeta  string `json:"cardMeta"`
	Thumbnail string `json:"thumbnail"`
}

// Workspace is the single-writer holder of the editable document. Every
// mutation goes through its mutex; the engine and API layers never touch the
// document directly.
type Workspace struct {
	mu       sync.Mutex
	doc      *models.Portfolio
	snapshot []byte
	dirty    bool
}

// New returns a workspace holding an empty document.
func New() *Workspace {
	w := &Workspace{}
	_ = w.Load(&models.Portfolio{Projects: []models.Project{}})
	return w
}

// Load replaces the document and takes a fresh snapshot; the workspace is
// clean afterwards. Used at startup and never partially applied.
func (w *Workspace) Load(doc *models.Portfolio) error {
	data, err := doc.Encode()
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.doc = doc.Clone()
	w.snapshot = data
	w.dirty = false
	return nil
}

// Stage replaces the whole working copy without touching the snapshot and
// marks it dirty. Revert and draft restore use this: the content is staged
// locally and must be published explicitly to become live.
func (w *Workspace) Stage(doc *models.Portfolio) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.doc = doc.Clone()
	w.dirty = true
}

// Document returns a deep copy of the working copy for rendering.
func (w *Workspace) Document() *models.Portfolio {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc.Clone()
}

// Serialize returns the working copy in canonical form.
func (w *Workspace) Serialize() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc.Encode()
}

// Snapshot returns the last-synced serialized document.
func (w *Workspace) Snapshot() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]byte(nil), w.snapshot...)
}

// IsDirty reports whether unpublished edits exist. It is a write-flag, set
// by every mutation, which is deliberately conservative: it may be true for
// a no-op edit but is never false while edits are pending.
func (w *Workspace) IsDirty() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirty
}

// Modified reports whether the serialized working copy actually differs from
// the snapshot (an exact comparison, unlike IsDirty).
func (w *Workspace) Modified() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	data, err := w.doc.Encode()
	if err != nil {
		return true
	}
	return checksum.Sum(data) != checksum.Sum(w.snapshot)
}

// Discard restores the working copy from the snapshot and clears the dirty
// flag. It is a full restore, not a partial undo.
func (w *Workspace) Discard() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc, err := models.Decode(w.snapshot)
	if err != nil {
		return fmt.Errorf("workspace: restore snapshot: %w", err)
	}
	w.doc = doc
	w.dirty = false
	return nil
}

// CommitSnapshot records serialized as the new snapshot after a successful
// publish and clears the dirty flag.
func (w *Workspace) CommitSnapshot(serialized []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.snapshot = append([]byte(nil), serialized...)
	w.dirty = false
}

// SetSite commits the inline-edited site strings. Values arrive trimmed the
// way a focus-loss commit reads them.
func (w *Workspace) SetSite(site models.Site) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.doc.Site = models.Site{
		Title:    strings.TrimSpace(site.Title),
		Subtitle: strings.TrimSpace(site.Subtitle),
		Tagline:  strings.TrimSpace(site.Tagline),
	}
	w.dirty = true
}

// AddProject validates the draft, derives and normalizes the slug, and
// appends the new project. Nothing is mutated when validation fails.
func (w *Workspace) AddProject(draft models.ProjectDraft) (models.Project, error) {
	if err := draft.Validate(); err != nil {
		return models.Project{}, err
	}
	p := draft.Materialize()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.doc.Projects = append(w.doc.Projects, p)
	w.dirty = true
	return p, nil
}

// UpdateProjectCard rewrites the card-level fields of a project.
func (w *Workspace) UpdateProjectCard(slug string, card ProjectCard) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := w.doc.ProjectBySlug(slug)
	if p == nil {
		return apperr.ErrNotFound
	}
	if card.Title != "" {
		p.Title = card.Title
	}
	if card.Slug != "" {
		p.Slug = models.Slugify(card.Slug)
	}
	p.Type = card.Type
	p.CardMeta = card.CardMeta
	p.Thumbnail = card.Thumbnail
	w.dirty = true
	return nil
}

// RemoveProject deletes the first project with the given slug.
func (w *Workspace) RemoveProject(slug string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.doc.IndexBySlug(slug)
	if i < 0 {
		return apperr.ErrNotFound
	}
	w.doc.Projects = append(w.doc.Projects[:i], w.doc.Projects[i+1:]...)
	w.dirty = true
	return nil
}

// MoveProject swaps the project at index with its neighbour at index+delta.
// Moves past either end of the list are no-ops.
func (w *Workspace) MoveProject(index, delta int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	j := index + delta
	if index < 0 || index >= len(w.doc.Projects) || j < 0 || j >= len(w.doc.Projects) {
		return
	}
	w.doc.Projects[index], w.doc.Projects[j] = w.doc.Projects[j], w.doc.Projects[index]
	w.dirty = true
}

// AddDescription appends a paragraph to a project.
func (w *Workspace) AddDescription(slug, text string) error {
	return w.withProject(slug, func(p *models.Project) error {
		p.Descriptions = append(p.Descriptions, text)
		return nil
	})
}

// SetDescription commits an edited paragraph.
func (w *Workspace) SetDescription(slug string, index int, text string) error {
	return w.withProject(slug, func(p *models.Project) error {
		if index < 0 || index >= len(p.Descriptions) {
			return apperr.ErrNotFound
		}
		p.Descriptions[index] = strings.TrimSpace(text)
		return nil
	})
}

// RemoveDescription deletes a paragraph.
func (w *Workspace) RemoveDescription(slug string, index int) error {
	return w.withProject(slug, func(p *models.Project) error {
		if index < 0 || index >= len(p.Descriptions) {
			return apperr.ErrNotFound
		}
		p.Descriptions = append(p.Descriptions[:index], p.Descriptions[index+1:]...)
		return nil
	})
}

// AddMeta appends a label/value pair.
func (w *Workspace) AddMeta(slug string, entry models.MetaEntry) error {
	return w.withProject(slug, func(p *models.Project) error {
		p.Meta = append(p.Meta, entry)
		return nil
	})
}

// SetMeta commits an edited label/value pair.
func (w *Workspace) SetMeta(slug string, index int, entry models.MetaEntry) error {
	return w.withProject(slug, func(p *models.Project) error {
		if index < 0 || index >= len(p.Meta) {
			return apperr.ErrNotFound
		}
		p.Meta[index] = models.MetaEntry{
			Label: strings.TrimSpace(entry.Label),
			Value: strings.TrimSpace(entry.Value),
		}
		return nil
	})
}

// RemoveMeta deletes a label/value pair.
func (w *Workspace) RemoveMeta(slug string, index int) error {
	return w.withProject(slug, func(p *models.Project) error {
		if index < 0 || index >= len(p.Meta) {
			return apperr.ErrNotFound
		}
		p.Meta = append(p.Meta[:index], p.Meta[index+1:]...)
		return nil
	})
}

// AddImage appends an image after validating its layout.
func (w *Workspace) AddImage(slug string, img models.Image) error {
	if img.Layout == "" {
		img.Layout = models.LayoutFull
	}
	if img.Caption == "" {
		img.Caption = "New Image"
	}
	if err := img.Validate(); err != nil {
		return err
	}
	return w.withProject(slug, func(p *models.Project) error {
		p.Images = append(p.Images, img)
		return nil
	})
}

// SetImage commits edited image fields.
func (w *Workspace) SetImage(slug string, index int, img models.Image) error {
	if err := img.Validate(); err != nil {
		return err
	}
	return w.withProject(slug, func(p *models.Project) error {
		if index < 0 || index >= len(p.Images) {
			return apperr.ErrNotFound
		}
		p.Images[index] = img
		return nil
	})
}

// RemoveImage deletes an image.
func (w *Workspace) RemoveImage(slug string, index int) error {
	return w.withProject(slug, func(p *models.Project) error {
		if index < 0 || index >= len(p.Images) {
			return apperr.ErrNotFound
		}
		p.Images = append(p.Images[:index], p.Images[index+1:]...)
		return nil
	})
}

// SetRelated replaces the related-project slugs. These are weak references
// and are not validated against existing projects.
func (w *Workspace) SetRelated(slug string, related []string) error {
	return w.withProject(slug, func(p *models.Project) error {
		p.RelatedProjects = append([]string(nil), related...)
		return nil
	})
}

// withProject runs fn on the first project matching slug under the lock and
// marks the workspace dirty when fn succeeds.
func (w *Workspace) withProject(slug string, fn func(*models.Project) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := w.doc.ProjectBySlug(slug)
	if p == nil {
		return apperr.ErrNotFound
	}
	if err := fn(p); err != nil {
		return err
	}
	w.dirty = true
	return nil
}
