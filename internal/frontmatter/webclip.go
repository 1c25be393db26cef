package frontmatter

import (
	"time"

	"github.com/s2md/slack2md/internal/tmpl"
)

// WebClipContext carries page metadata for the web clip frontmatter
// category.
type WebClipContext struct {
	Title     string
	SourceURL string
	Author    string
	SiteName  string
	Excerpt   string
	Published time.Time
	Captured  time.Time
}

// WebTemplateContext flattens a WebClipContext into template variables.
// Zero-valued optional fields stay absent so templates drop them.
func WebTemplateContext(ctx WebClipContext) tmpl.Context {
	tc := tmpl.Context{
		"title":           ctx.Title,
		"source_category": "web-clip",
		"source_url":      ctx.SourceURL,
		"captured":        ctx.Captured,
	}
	if ctx.Author != "" {
		tc["author"] = ctx.Author
	}
	if ctx.SiteName != "" {
		tc["site_name"] = ctx.SiteName
	}
	if ctx.Excerpt != "" {
		tc["excerpt"] = ctx.Excerpt
	}
	if !ctx.Published.IsZero() {
		tc["published"] = ctx.Published
	}
	return tc
}

// BuildWeb renders the frontmatter block for a web clip.  A nil template
// falls back to the fixed layout.
func BuildWeb(ctx WebClipContext, t *Template) string {
	if t == nil {
		return buildWebFallback(ctx)
	}
	return Serialize(tmpl.ResolveTemplate(t.fields(), WebTemplateContext(ctx)))
}

func buildWebFallback(ctx WebClipContext) string {
	return Serialize([]tmpl.Field{
		{Key: "title", Value: ctx.Title},
		{Key: "source", Value: "web-clip"},
		{Key: "source_url", Value: ctx.SourceURL},
		{Key: "author", Value: ctx.Author},
		{Key: "captured", Value: ctx.Captured.UTC().Format(time.RFC3339)},
		{Key: "tags", Value: []string{"web-clip"}},
	})
}
