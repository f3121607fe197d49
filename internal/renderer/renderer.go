// Package renderer hydrates the static site pages from the portfolio
// document. Rendering is pure given (document, options): calling it any
// number of times produces the same markup with no accumulated state.
package renderer

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"sync"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/joycelee/atelier/internal/apperr"
	"github.com/joycelee/atelier/internal/models"
)

// PageOptions carries the URL-driven display flags.
type PageOptions struct {
	// EditRevealed shows the edit toggle; set by the admin query flag.
	EditRevealed bool
}

// Renderer renders the index and project pages from on-disk templates.
type Renderer struct {
	dir string
	md  goldmark.Markdown

	mu  sync.RWMutex
	tpl *template.Template
}

type indexData struct {
	Site         models.Site
	Projects     []models.Project
	EditRevealed bool
}

type projectData struct {
	Site         models.Site
	Project      models.Project
	Related      []models.Project
	EditRevealed bool
}

// New creates a renderer from the template directory.
func New(dir string) (*Renderer, error) {
	r := &Renderer{
		dir: dir,
		// Descriptions are operator-authored rich text; raw HTML stays.
		md: goldmark.New(goldmark.WithRendererOptions(gmhtml.WithUnsafe())),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-parses all templates. Safe to call concurrently with rendering.
func (r *Renderer) Reload() error {
	tpl, err := template.New("").Funcs(template.FuncMap{
		"markdown": r.markdown,
	}).ParseGlob(filepath.Join(r.dir, "*.tmpl"))
	if err != nil {
		return fmt.Errorf("renderer: parse templates: %w", err)
	}
	r.mu.Lock()
	r.tpl = tpl
	r.mu.Unlock()
	return nil
}

// Render writes the index page for the document.
func (r *Renderer) Render(w io.Writer, doc *models.Portfolio, opts PageOptions) error {
	return r.execute(w, "index.html.tmpl", indexData{
		Site:         doc.Site,
		Projects:     doc.Projects,
		EditRevealed: opts.EditRevealed,
	})
}

// RenderProject writes the detail page for the first project matching slug.
func (r *Renderer) RenderProject(w io.Writer, doc *models.Portfolio, slug string, opts PageOptions) error {
	p := doc.ProjectBySlug(slug)
	if p == nil {
		return apperr.ErrNotFound
	}

	related := make([]models.Project, 0, len(p.RelatedProjects))
	for _, rs := range p.RelatedProjects {
		if rp := doc.ProjectBySlug(rs); rp != nil {
			related = append(related, *rp)
		}
	}

	return r.execute(w, "project.html.tmpl", projectData{
		Site:         doc.Site,
		Project:      *p,
		Related:      related,
		EditRevealed: opts.EditRevealed,
	})
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	r.mu.RLock()
	tpl := r.tpl
	r.mu.RUnlock()

	// Render into a buffer first so a template error never leaves a
	// half-written page behind.
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("renderer: execute %s: %w", name, err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func (r *Renderer) markdown(s string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(s), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(s))
	}
	return template.HTML(buf.String())
}
