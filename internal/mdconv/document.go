package mdconv

import (
	"fmt"
	"strings"
	"time"

	"github.com/rusq/slack"

	"github.com/s2md/slack2md/internal/structures"
)

// systemSubtypes are message subtypes rendered as italicised event lines
// instead of regular messages.
var systemSubtypes = map[string]bool{
	"channel_join":    true,
	"channel_leave":   true,
	"channel_topic":   true,
	"channel_purpose": true,
	"channel_name":    true,
	"channel_archive": true,
}

const previewLen = 80

// RenderOptions control the document assembly.
type RenderOptions struct {
	ChannelName  string
	UserNames    map[string]string
	ChannelNames map[string]string

	IncludeReactions bool
	IncludeFiles     bool
	IncludeThreads   bool
	// ThreadReplies maps a thread root timestamp to the fetched replies.
	// The first reply is the root itself and is skipped.
	ThreadReplies map[string][]slack.Message

	// SkipHeader suppresses the document header, used when frontmatter is
	// prepended instead.
	SkipHeader bool
	// Now supplies the export timestamp for the header; nil means
	// time.Now.
	Now func() time.Time
}

// RenderMessages assembles the export document: a header, date headings,
// and one formatted entry per message, joined by blank lines.  Messages
// are expected in chronological order.
func RenderMessages(msgs []slack.Message, opts RenderOptions) string {
	r := MapResolver{Users: opts.UserNames, Channels: opts.ChannelNames}

	var sections []string
	if !opts.SkipHeader {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		sections = append(sections, documentHeader(opts.ChannelName, len(msgs), now()))
	}

	var currentDate string
	for _, m := range msgs {
		date, clock := timestampParts(m.Timestamp)
		if date != currentDate {
			currentDate = date
			sections = append(sections, "## "+date)
		}

		if systemSubtypes[m.SubType] {
			sections = append(sections, "*"+Mrkdwn(m.Text, r)+"*")
			continue
		}

		sections = append(sections, authorLine(senderName(&m, r), clock))
		sections = append(sections, messageBody(&m, r))

		if opts.IncludeReactions && len(m.Reactions) > 0 {
			sections = append(sections, reactionLine(m.Reactions))
		}
		if opts.IncludeFiles {
			for _, f := range m.Files {
				sections = append(sections, fileLine(f))
			}
		}
		if opts.IncludeThreads && isThreadRoot(&m) {
			if replies, ok := opts.ThreadReplies[m.Timestamp]; ok {
				sections = append(sections, threadBlock(&m, replies, r))
			}
		}
	}
	return strings.Join(sections, "\n\n")
}

// isThreadRoot reports whether m starts a thread: its own timestamp is the
// thread timestamp and it has replies.
func isThreadRoot(m *slack.Message) bool {
	return m.ThreadTimestamp == m.Timestamp && m.ReplyCount > 0
}

// messageBody converts the message body, preferring the rich text block
// tree and falling back to the legacy text.  Exactly one converter runs:
// feeding the text fallback of a message that also carries a block tree
// through Mrkdwn would double-convert.
func messageBody(m *slack.Message, r Resolver) string {
	for _, b := range m.Blocks.BlockSet {
		if rtb, ok := b.(*slack.RichTextBlock); ok {
			return RichText(rtb, r)
		}
	}
	return Mrkdwn(m.Text, r)
}

func senderName(m *slack.Message, r Resolver) string {
	if m.User != "" {
		return r.UserName(m.User)
	}
	if m.Username != "" {
		return m.Username
	}
	return "Unknown"
}

// threadBlock renders a fetched thread as a single blockquote: a summary
// header, then every reply with its author line and body.
func threadBlock(root *slack.Message, replies []slack.Message, r Resolver) string {
	lines := []string{fmt.Sprintf("> **Thread** (%s to %s — %s: \"%s\"):",
		countOf(root.ReplyCount, "reply", "replies"),
		senderName(root, r),
		clockOf(root.Timestamp),
		preview(root.Text),
	)}
	for i := range replies {
		reply := &replies[i]
		// the first fetched reply is the thread parent itself
		if reply.Timestamp == root.Timestamp {
			continue
		}
		lines = append(lines, "> "+authorLine(senderName(reply, r), clockOf(reply.Timestamp)))
		for _, bodyLine := range strings.Split(messageBody(reply, r), "\n") {
			lines = append(lines, "> "+bodyLine)
		}
	}
	return strings.Join(lines, "\n")
}

// preview shortens the thread root text to a single line of at most
// previewLen characters.
func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= previewLen {
		return text
	}
	return string(runes[:previewLen]) + "…"
}

func countOf(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}

// timestampParts formats a slack timestamp as a UTC date and clock pair.
func timestampParts(ts string) (date, clock string) {
	t, err := structures.ParseSlackTS(ts)
	if err != nil {
		return "", ""
	}
	t = t.UTC()
	return t.Format("2006-01-02"), formatClock(t)
}

func clockOf(ts string) string {
	_, clock := timestampParts(ts)
	return clock
}

func formatClock(t time.Time) string {
	suffix := "a.m."
	if t.Hour() >= 12 {
		suffix = "p.m."
	}
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, t.Minute(), suffix)
}

func authorLine(name, clock string) string {
	return fmt.Sprintf("**%s** — %s", name, clock)
}

func reactionLine(reactions []slack.ItemReaction) string {
	parts := make([]string, 0, len(reactions))
	for _, r := range reactions {
		parts = append(parts, fmt.Sprintf(":%s: %d", r.Name, r.Count))
	}
	return "> " + strings.Join(parts, " · ")
}

func fileLine(f slack.File) string {
	url := f.Permalink
	if url == "" {
		url = f.URLPrivate
	}
	if url == "" {
		return fmt.Sprintf("📎 %s (no public URL)", f.Name)
	}
	return fmt.Sprintf("📎 [%s](%s)", f.Name, url)
}

func documentHeader(channelName string, messageCount int, now time.Time) string {
	return strings.Join([]string{
		"# #" + channelName,
		"",
		fmt.Sprintf("Exported from Slack · %s · Messages: %d", now.UTC().Format("2006-01-02"), messageCount),
		"",
		"---",
	}, "\n")
}
