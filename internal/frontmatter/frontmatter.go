// Package frontmatter builds the YAML frontmatter block prepended to an
// export.  The field layout comes from a user-editable template store;
// when no template is active a fixed built-in layout is used.
package frontmatter

import (
	"fmt"
	"time"

	"github.com/rusq/slack"

	"github.com/s2md/slack2md/internal/structures"
	"github.com/s2md/slack2md/internal/tmpl"
)

// Context carries everything the template variables can reference for a
// conversation export.
type Context struct {
	Channel      *slack.Channel
	Workspace    string
	Domain       string
	Messages     []slack.Message
	MessageCount int
	ScopeLabel   string
	// Participants holds resolved member names, present only for DMs
	// and group DMs.
	Participants []string
	Captured     time.Time
}

// SourceCategory maps channel flags to the `source` frontmatter value.
// Precedence: DM, then group DM, then private, then public.
func SourceCategory(ch *slack.Channel) string {
	switch {
	case ch.IsIM:
		return "slack-dm"
	case ch.IsMpIM:
		return "slack-group-dm"
	case ch.IsGroup || ch.IsPrivate:
		return "slack-private-channel"
	default:
		return "slack-channel"
	}
}

// ChannelType maps channel flags to the `channel_type` frontmatter
// value, with the same precedence as SourceCategory.
func ChannelType(ch *slack.Channel) string {
	switch {
	case ch.IsIM:
		return "dm"
	case ch.IsMpIM:
		return "group_dm"
	case ch.IsGroup || ch.IsPrivate:
		return "private_channel"
	default:
		return "public_channel"
	}
}

// SourceURL builds the archive permalink for a channel.
func SourceURL(domain, channelID string) string {
	return fmt.Sprintf("https://%s.slack.com/archives/%s", domain, channelID)
}

// DateRange returns the UTC date span of a chronological message list:
// "YYYY-MM-DD to YYYY-MM-DD", a single date when the list spans one day,
// or empty when the list is empty.
func DateRange(msgs []slack.Message) string {
	if len(msgs) == 0 {
		return ""
	}
	first, err := structures.ParseSlackTS(msgs[0].Timestamp)
	if err != nil {
		return ""
	}
	last, err := structures.ParseSlackTS(msgs[len(msgs)-1].Timestamp)
	if err != nil {
		return ""
	}
	fd := first.UTC().Format("2006-01-02")
	ld := last.UTC().Format("2006-01-02")
	if fd == ld {
		return fd
	}
	return fd + " to " + ld
}

// TemplateContext flattens a Context into the variable set templates
// resolve against.  The participants key is absent when there are none,
// so `{{participants|default:...}}` style fallbacks work.
func TemplateContext(ctx Context) tmpl.Context {
	tc := tmpl.Context{
		"channel":          ctx.Channel.Name,
		"channel_id":       ctx.Channel.ID,
		"channel_type":     ChannelType(ctx.Channel),
		"topic":            ctx.Channel.Topic.Value,
		"purpose":          ctx.Channel.Purpose.Value,
		"workspace":        ctx.Workspace,
		"workspace_domain": ctx.Domain,
		"source_category":  SourceCategory(ctx.Channel),
		"source_url":       SourceURL(ctx.Domain, ctx.Channel.ID),
		"captured":         ctx.Captured,
		"date_range":       DateRange(ctx.Messages),
		"message_count":    ctx.MessageCount,
		"export_scope":     ctx.ScopeLabel,
	}
	if len(ctx.Participants) > 0 {
		tc["participants"] = ctx.Participants
	}
	return tc
}

// Build renders the frontmatter block for a conversation export.  A nil
// template falls back to the fixed built-in layout.
func Build(ctx Context, t *Template) string {
	if t == nil {
		return buildFallback(ctx)
	}
	return Serialize(tmpl.ResolveTemplate(t.fields(), TemplateContext(ctx)))
}

// buildFallback is the fixed layout used when no template is active.
func buildFallback(ctx Context) string {
	return Serialize([]tmpl.Field{
		{Key: "title", Value: "#" + ctx.Channel.Name},
		{Key: "source", Value: SourceCategory(ctx.Channel)},
		{Key: "source_url", Value: SourceURL(ctx.Domain, ctx.Channel.ID)},
		{Key: "workspace", Value: ctx.Workspace},
		{Key: "channel", Value: ctx.Channel.Name},
		{Key: "channel_type", Value: ChannelType(ctx.Channel)},
		{Key: "captured", Value: ctx.Captured.UTC().Format(time.RFC3339)},
		{Key: "date_range", Value: DateRange(ctx.Messages)},
		{Key: "message_count", Value: ctx.MessageCount},
		{Key: "tags", Value: []string{"slack"}},
	})
}
