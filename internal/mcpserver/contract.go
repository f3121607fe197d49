package mcpserver

// DocumentFormatContract describes the canonical portfolio document format
// that LLM consumers should follow when reading or editing content.
const DocumentFormatContract = `# Atelier Portfolio Document Format

The portfolio is one JSON document, published as a single file in the
content repository.

## Structure

` + "```" + `json
{
  "site": {
    "title": "Joyce Lee",
    "subtitle": "Visual artist",
    "tagline": "Selected work 2020-2025"
  },
  "projects": [
    {
      "slug": "sound-garden",
      "title": "Sound Garden",
      "type": "Installation",
      "cardMeta": "2024 - Sound, steel",
      "thumbnail": "/static/img/sound-garden.jpg",
      "descriptions": ["Markdown paragraph...", "Another paragraph..."],
      "meta": [{"label": "Year", "value": "2024"}],
      "images": [{"src": "/static/img/sg-1.jpg", "caption": "Entry view", "layout": "full"}],
      "relatedProjects": ["field-recordings"]
    }
  ]
}
` + "```" + `

## Rules

1. **Slugs** are lowercase kebab-case, derived from the title when omitted.
   Lookups match the first project with a given slug.
2. **descriptions** entries are Markdown paragraphs rendered to HTML.
3. **images[].layout** must be ` + "`" + `full` + "`" + ` or ` + "`" + `half` + "`" + `.
4. **relatedProjects** holds slugs; dangling references are silently dropped
   when rendering.
5. The serialized file is two-space indented JSON with a trailing newline.
   Do not reformat it.
6. Edits stay local until ` + "`" + `publish_portfolio` + "`" + ` commits them to the
   content repository.
`
