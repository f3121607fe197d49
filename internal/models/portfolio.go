// Package models defines the portfolio content document and its field rules.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Image layouts.
const (
	LayoutFull = "full"
	LayoutHalf = "half"
)

// Site holds the global display strings shown on every page.
type Site struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Tagline  string `json:"tagline"`
}

// MetaEntry is one label/value pair in a project's metadata list.
type MetaEntry struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Image is one entry in a project's image sequence.
type Image struct {
	Src     string `json:"src"`
	Caption string `json:"caption"`
	Layout  string `json:"layout"`
}

// Validate checks the image layout.
func (i Image) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Layout, validation.Required, validation.In(LayoutFull, LayoutHalf)),
	)
}

// Project is a single portfolio entry, identified by its slug.
// Slug lookups are first-match-wins; nothing prevents two projects from
// sharing a slug after manual edits.
type Project struct {
	Slug            string      `json:"slug"`
	Title           string      `json:"title"`
	Type            string      `json:"type"`
	CardMeta        string      `json:"cardMeta"`
	Thumbnail       string      `json:"thumbnail"`
	Descriptions    []string    `json:"descriptions"`
	Meta            []MetaEntry `json:"meta"`
	Images          []Image     `json:"images"`
	RelatedProjects []string    `json:"relatedProjects"`
}

// Portfolio is the full editable content document. It round-trips to a single
// JSON file and is the unit of persistence and version control.
type Portfolio struct {
	Site     Site      `json:"site"`
	Projects []Project `json:"projects"`
}

// ProjectDraft is the user-supplied input for a new project.
type ProjectDraft struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Type        string `json:"type"`
	CardMeta    string `json:"cardMeta"`
	Description string `json:"description"`
}

// Validate checks required fields before any mutation happens.
func (d ProjectDraft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Title, validation.Required),
	)
}

// Materialize builds a Project from the draft, deriving the slug from the
// title when none was given.
func (d ProjectDraft) Materialize() Project {
	slug := d.Slug
	if slug == "" {
		slug = d.Title
	}
	descriptions := []string{""}
	if d.Description != "" {
		descriptions = []string{d.Description}
	}
	return Project{
		Slug:            Slugify(slug),
		Title:           d.Title,
		Type:            d.Type,
		CardMeta:        d.CardMeta,
		Thumbnail:       "",
		Descriptions:    descriptions,
		Meta:            []MetaEntry{},
		Images:          []Image{},
		RelatedProjects: []string{},
	}
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify normalizes a string into a URL-safe slug: lowercase, runs of
// non-alphanumerics collapsed to single hyphens, no leading or trailing hyphen.
func Slugify(s string) string {
	s = slugStrip.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// IndexBySlug returns the index of the first project with the given slug,
// or -1 when absent.
func (p *Portfolio) IndexBySlug(slug string) int {
	for i := range p.Projects {
		if p.Projects[i].Slug == slug {
			return i
		}
	}
	return -1
}

// ProjectBySlug returns a pointer to the first project with the given slug.
func (p *Portfolio) ProjectBySlug(slug string) *Project {
	if i := p.IndexBySlug(slug); i >= 0 {
		return &p.Projects[i]
	}
	return nil
}

// Clone returns a deep copy of the document.
func (p *Portfolio) Clone() *Portfolio {
	out := &Portfolio{Site: p.Site, Projects: make([]Project, len(p.Projects))}
	for i, pr := range p.Projects {
		cp := pr
		cp.Descriptions = append([]string(nil), pr.Descriptions...)
		cp.Meta = append([]MetaEntry(nil), pr.Meta...)
		cp.Images = append([]Image(nil), pr.Images...)
		cp.RelatedProjects = append([]string(nil), pr.RelatedProjects...)
		out.Projects[i] = cp
	}
	return out
}

// Encode serializes the document in its canonical form: two-space indented
// JSON with a trailing newline. Publish and snapshot comparison both depend
// on this formatting being stable.
func (p *Portfolio) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("models: encode portfolio: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a portfolio document from its JSON form.
func Decode(data []byte) (*Portfolio, error) {
	var p Portfolio
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("models: decode portfolio: %w", err)
	}
	if p.Projects == nil {
		p.Projects = []Project{}
	}
	return &p, nil
}
