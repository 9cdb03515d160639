// Package export renders stories into printable HTML and PDF.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/rkgupta29/assignment-story-creation-app/internal/types"
)

var storyTemplate = template.Must(template.New("story").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: Georgia, serif; max-width: 42em; margin: 3em auto; color: #1a1a1a; }
  h1 { font-size: 2em; margin-bottom: 0.2em; }
  .meta { color: #666; font-size: 0.9em; margin-bottom: 2em; }
  .content { line-height: 1.6; }
  .transcript { border-left: 3px solid #ccc; padding-left: 1em; color: #333; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">By {{.AuthorName}} &middot; {{.Date}}</div>
<div class="content">{{.Content}}</div>
{{if .Transcript}}<h2>Transcript</h2><div class="transcript">{{.Transcript}}</div>{{end}}
</body>
</html>
`))

type storyPage struct {
	Title      string
	AuthorName string
	Date       string
	Content    template.HTML
	Transcript string
}

// RenderHTML renders a story into the printable HTML shell. Story content is
// author-supplied rich HTML and is embedded as-is; transcripts are escaped.
func RenderHTML(story *types.Story) (string, error) {
	page := storyPage{
		Title:      story.Title,
		AuthorName: story.AuthorName,
		Date:       story.CreatedAt.Format("January 2, 2006"),
		Content:    template.HTML(story.Content),
		Transcript: story.AudioTranscript,
	}
	var buf bytes.Buffer
	if err := storyTemplate.Execute(&buf, page); err != nil {
		return "", fmt.Errorf("failed to render story: %w", err)
	}
	return buf.String(), nil
}

// DefaultTimeout bounds a single PDF render.
const DefaultTimeout = 30 * time.Second
