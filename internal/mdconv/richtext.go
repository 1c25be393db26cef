package mdconv

import (
	"fmt"
	"strings"

	"github.com/rusq/slack"
)

// rte - rich text element, rtse - rich text section element.  The handler
// maps give the closed set of element kinds; anything else renders empty.
var (
	rteHandlers  map[slack.RichTextElementType]func(slack.RichTextElement, Resolver) string
	rtseHandlers map[slack.RichTextSectionElementType]func(slack.RichTextSectionElement, Resolver) string
)

func init() {
	rteHandlers = map[slack.RichTextElementType]func(slack.RichTextElement, Resolver) string{
		slack.RTESection:      rteSection,
		slack.RTEList:         rteList,
		slack.RTEPreformatted: rtePreformatted,
		slack.RTEQuote:        rteQuote,
	}
	rtseHandlers = map[slack.RichTextSectionElementType]func(slack.RichTextSectionElement, Resolver) string{
		slack.RTSEText:      rtseText,
		slack.RTSELink:      rtseLink,
		slack.RTSEEmoji:     rtseEmoji,
		slack.RTSEUser:      rtseUser,
		slack.RTSEChannel:   rtseChannel,
		slack.RTSEUserGroup: rtseUserGroup,
		slack.RTSEBroadcast: rtseBroadcast,
	}
}

// RichText renders a rich text block tree as Markdown.  Top-level elements
// are separated by a blank line.
func RichText(b *slack.RichTextBlock, r Resolver) string {
	parts := make([]string, 0, len(b.Elements))
	for _, el := range b.Elements {
		parts = append(parts, renderElement(el, r))
	}
	return strings.Join(parts, "\n\n")
}

func renderElement(el slack.RichTextElement, r Resolver) string {
	fn, ok := rteHandlers[el.RichTextElementType()]
	if !ok {
		return ""
	}
	return fn(el, r)
}

func rteSection(ie slack.RichTextElement, r Resolver) string {
	e, ok := ie.(*slack.RichTextSection)
	if !ok {
		return ""
	}
	return renderInlines(e.Elements, r)
}

func renderInlines(elements []slack.RichTextSectionElement, r Resolver) string {
	var buf strings.Builder
	for _, el := range elements {
		fn, ok := rtseHandlers[el.RichTextSectionElementType()]
		if !ok {
			continue
		}
		buf.WriteString(fn(el, r))
	}
	return buf.String()
}

func rteList(ie slack.RichTextElement, r Resolver) string {
	e, ok := ie.(*slack.RichTextList)
	if !ok {
		return ""
	}
	indent := strings.Repeat("  ", e.Indent)
	items := make([]string, 0, len(e.Elements))
	for i, item := range e.Elements {
		marker := "-"
		if e.Style == slack.RTEListOrdered {
			marker = fmt.Sprintf("%d.", i+1)
		}
		items = append(items, fmt.Sprintf("%s%s %s", indent, marker, renderElement(item, r)))
	}
	return strings.Join(items, "\n")
}

func rtePreformatted(ie slack.RichTextElement, r Resolver) string {
	e, ok := ie.(*slack.RichTextPreformatted)
	if !ok {
		return ""
	}
	return "```\n" + renderInlines(e.Elements, r) + "\n```"
}

func rteQuote(ie slack.RichTextElement, r Resolver) string {
	e, ok := ie.(*slack.RichTextQuote)
	if !ok {
		return ""
	}
	lines := strings.Split(renderInlines(e.Elements, r), "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}

func rtseText(ie slack.RichTextSectionElement, r Resolver) string {
	e, ok := ie.(*slack.RichTextSectionTextElement)
	if !ok {
		return ""
	}
	return applyStyle(e.Text, e.Style)
}

func rtseLink(ie slack.RichTextSectionElement, r Resolver) string {
	e, ok := ie.(*slack.RichTextSectionLinkElement)
	if !ok {
		return ""
	}
	var link string
	if e.Text != "" {
		link = fmt.Sprintf("[%s](%s)", e.Text, e.URL)
	} else {
		link = fmt.Sprintf("<%s>", e.URL)
	}
	return applyStyle(link, e.Style)
}

func rtseEmoji(ie slack.RichTextSectionElement, r Resolver) string {
	e, ok := ie.(*slack.RichTextSectionEmojiElement)
	if !ok {
		return ""
	}
	return ":" + e.Name + ":"
}

func rtseUser(ie slack.RichTextSectionElement, r Resolver) string {
	e, ok := ie.(*slack.RichTextSectionUserElement)
	if !ok {
		return ""
	}
	return "@" + r.UserName(e.UserID)
}

func rtseChannel(ie slack.RichTextSectionElement, r Resolver) string {
	e, ok := ie.(*slack.RichTextSectionChannelElement)
	if !ok {
		return ""
	}
	return "#" + r.ChannelName(e.ChannelID)
}

func rtseUserGroup(ie slack.RichTextSectionElement, r Resolver) string {
	if _, ok := ie.(*slack.RichTextSectionUserGroupElement); !ok {
		return ""
	}
	// usergroups are not resolvable without an extra API scope
	return "@group"
}

func rtseBroadcast(ie slack.RichTextSectionElement, r Resolver) string {
	e, ok := ie.(*slack.RichTextSectionBroadcastElement)
	if !ok {
		return ""
	}
	return "@" + string(e.Range)
}

// applyStyle wraps text in Markdown emphasis markers.  Code is exclusive
// and suppresses all other styling; strikethrough is applied last.
func applyStyle(text string, style *slack.RichTextSectionTextStyle) string {
	if style == nil {
		return text
	}
	if style.Code {
		return "`" + text + "`"
	}
	switch {
	case style.Bold && style.Italic:
		text = "***" + text + "***"
	case style.Bold:
		text = "**" + text + "**"
	case style.Italic:
		text = "*" + text + "*"
	}
	if style.Strike {
		text = "~~" + text + "~~"
	}
	return text
}
