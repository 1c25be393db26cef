package mdconv

import (
	"regexp"
	"strings"
)

// The legacy mrkdwn dialect embeds markup directly in the message text.
// Conversion is a fixed sequence of rewrites whose order is a behavioural
// contract: mentions, then links, then bold, italic and strikethrough.
// Code spans share syntax between the dialects and pass through verbatim.
var (
	reCodeSpan    = regexp.MustCompile("(?s)```.*?```|`[^`\n]*`")
	reUserMention = regexp.MustCompile(`<@(U[A-Z0-9]+)>`)
	reChanMention = regexp.MustCompile(`<#(C[A-Z0-9]+)\|([^>]+)>`)
	reLinkText    = regexp.MustCompile(`<(https?://[^|>]+)\|([^>]+)>`)
	reBold        = regexp.MustCompile(`\*([^*\n]+)\*`)
	reItalic      = regexp.MustCompile(`_([^_\n]+)_`)
	reStrike      = regexp.MustCompile(`~([^~\n]+)~`)
)

// Mrkdwn rewrites the legacy inline dialect to Markdown.
func Mrkdwn(text string, r Resolver) string {
	// code spans are exempt from the token rewrites; process only the
	// gaps between them.
	var buf strings.Builder
	last := 0
	for _, loc := range reCodeSpan.FindAllStringIndex(text, -1) {
		buf.WriteString(rewriteTokens(text[last:loc[0]], r))
		buf.WriteString(text[loc[0]:loc[1]])
		last = loc[1]
	}
	buf.WriteString(rewriteTokens(text[last:], r))

	// emphasis runs over the whole string so that the adjacency checks
	// in replaceDelim see the code span boundaries.
	s := buf.String()
	s = replaceDelim(s, reBold, "**$1**")
	s = replaceDelim(s, reItalic, "*$1*")
	s = replaceDelim(s, reStrike, "~~$1~~")
	return s
}

func rewriteTokens(s string, r Resolver) string {
	// <@U12345> -> @DisplayName
	s = reUserMention.ReplaceAllStringFunc(s, func(m string) string {
		id := reUserMention.FindStringSubmatch(m)[1]
		return "@" + r.UserName(id)
	})
	// <#C12345|channel-name> -> #channel-name (the fallback name is
	// carried in the token itself)
	s = reChanMention.ReplaceAllString(s, "#$2")
	// <URL|text> -> [text](URL)
	s = reLinkText.ReplaceAllString(s, "[$2]($1)")
	// bare <URL> stays as-is: it is already a valid Markdown autolink
	return s
}

// replaceDelim applies an emphasis rewrite, skipping matches inside code
// spans and matches that touch a backtick or follow a backslash escape.
// RE2 has no lookaround, so the adjacency checks are done on the raw
// indices.
func replaceDelim(s string, re *regexp.Regexp, tmpl string) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	spans := reCodeSpan.FindAllStringIndex(s, -1)
	var buf strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		if inSpan(spans, start) {
			continue
		}
		if start > 0 && (s[start-1] == '`' || s[start-1] == '\\') {
			continue
		}
		if end < len(s) && s[end] == '`' {
			continue
		}
		buf.WriteString(s[last:start])
		buf.Write(re.ExpandString(nil, tmpl, s, m))
		last = end
	}
	buf.WriteString(s[last:])
	return buf.String()
}

func inSpan(spans [][]int, i int) bool {
	for _, sp := range spans {
		if sp[0] <= i && i < sp[1] {
			return true
		}
	}
	return false
}
