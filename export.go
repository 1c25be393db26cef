package slack2md

import (
	"context"
	"errors"
	"fmt"

	"github.com/rusq/slack"

	"github.com/s2md/slack2md/internal/client"
	"github.com/s2md/slack2md/internal/frontmatter"
	"github.com/s2md/slack2md/internal/mdconv"
)

// Progress phases, in pipeline order.
const (
	PhaseFetching        = "fetching"
	PhaseResolvingUsers  = "resolving_users"
	PhaseFetchingThreads = "fetching_threads"
	PhaseConverting      = "converting"
)

// Progress is a point-in-time pipeline status.  Total is zero for phases
// without a known total.
type Progress struct {
	Phase   string
	Current int
	Total   int
}

// Request describes one conversation export.
type Request struct {
	ChannelID string
	Scope     Scope

	IncludeReactions   bool
	IncludeFiles       bool
	IncludeThreads     bool
	IncludeFrontmatter bool

	// OnProgress, if set, receives pipeline status updates.  A panicking
	// callback never aborts the export.
	OnProgress func(Progress)
}

// Result is a finished export.
type Result struct {
	Markdown     string
	MessageCount int
}

var ErrNoChannel = errors.New("no channel ID")

// Export runs the pipeline for one conversation: fetch history, resolve
// user names, optionally fetch thread replies, convert to Markdown and
// optionally prepend frontmatter.
func (s *Session) Export(ctx context.Context, req Request) (*Result, error) {
	if req.ChannelID == "" {
		return nil, ErrNoChannel
	}
	emit := progressFn(req.OnProgress)

	emit(Progress{Phase: PhaseFetching})
	params := req.Scope.params()
	params.OnPage = func(page int) {
		emit(Progress{Phase: PhaseFetching, Current: page})
	}
	msgs, err := s.client.History(ctx, req.ChannelID, params)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	s.lg.InfoContext(ctx, "history fetched", "channel", req.ChannelID, "messages", len(msgs))

	emit(Progress{Phase: PhaseResolvingUsers})
	ids := collectUserIDs(msgs)
	names, err := s.resolver.Resolve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}

	ch, err := s.client.ChannelInfo(ctx, req.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("channel info: %w", err)
	}

	var threads map[string][]slack.Message
	if req.IncludeThreads {
		threads, err = s.fetchThreads(ctx, req.ChannelID, msgs, emit)
		if err != nil {
			return nil, err
		}
		// replies may mention users the main history never did
		names, err = s.resolver.Resolve(ctx, collectThreadUserIDs(ids, threads))
		if err != nil {
			return nil, fmt.Errorf("resolve thread users: %w", err)
		}
	}

	emit(Progress{Phase: PhaseConverting})
	markdown := mdconv.RenderMessages(msgs, mdconv.RenderOptions{
		ChannelName:      ch.Name,
		UserNames:        names,
		IncludeReactions: req.IncludeReactions,
		IncludeFiles:     req.IncludeFiles,
		IncludeThreads:   req.IncludeThreads,
		ThreadReplies:    threads,
		SkipHeader:       req.IncludeFrontmatter,
		Now:              s.now,
	})

	if req.IncludeFrontmatter {
		fm := s.buildFrontmatter(ctx, ch, msgs, req.Scope)
		markdown = fm + "\n\n" + markdown
	}
	return &Result{Markdown: markdown, MessageCount: len(msgs)}, nil
}

// fetchThreads fetches replies for every thread root, keyed by the root
// timestamp.  History pacing applies between thread fetches.
func (s *Session) fetchThreads(ctx context.Context, channelID string, msgs []slack.Message, emit func(Progress)) (map[string][]slack.Message, error) {
	var roots []slack.Message
	for _, m := range msgs {
		if m.ThreadTimestamp == m.Timestamp && m.ReplyCount > 0 {
			roots = append(roots, m)
		}
	}
	emit(Progress{Phase: PhaseFetchingThreads, Total: len(roots)})
	threads := make(map[string][]slack.Message, len(roots))
	for i, root := range roots {
		replies, err := s.client.Replies(ctx, channelID, root.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("fetch thread %s: %w", root.Timestamp, err)
		}
		threads[root.Timestamp] = replies
		emit(Progress{Phase: PhaseFetchingThreads, Current: i + 1, Total: len(roots)})
	}
	return threads, nil
}

// buildFrontmatter assembles the frontmatter block.  Workspace info and
// template failures degrade to empty values and the fixed layout rather
// than failing the export.
func (s *Session) buildFrontmatter(ctx context.Context, ch *slack.Channel, msgs []slack.Message, scope Scope) string {
	var workspace, domain string
	if team, err := s.client.TeamInfo(ctx); err != nil {
		s.lg.WarnContext(ctx, "team info unavailable", "error", err)
	} else {
		workspace, domain = team.Name, team.Domain
	}
	fctx := frontmatter.Context{
		Channel:      ch,
		Workspace:    workspace,
		Domain:       domain,
		Messages:     msgs,
		MessageCount: len(msgs),
		ScopeLabel:   scope.Label(),
		Participants: s.participants(ctx, ch),
		Captured:     s.now(),
	}
	return frontmatter.Build(fctx, s.templates.Active("slack"))
}

// participants resolves conversation members to display names for DMs and
// group DMs.  Failures degrade to no participants.
func (s *Session) participants(ctx context.Context, ch *slack.Channel) []string {
	if !ch.IsIM && !ch.IsMpIM {
		return nil
	}
	ids, err := s.client.Members(ctx, ch.ID)
	if err != nil {
		s.lg.WarnContext(ctx, "members unavailable", "channel", ch.ID, "error", err)
		return nil
	}
	names, err := s.resolver.Resolve(ctx, ids)
	if err != nil {
		s.lg.WarnContext(ctx, "participant resolution failed", "channel", ch.ID, "error", err)
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, names[id])
	}
	return out
}

// collectUserIDs gathers author IDs and rich text user mentions from a
// message list, in first-seen order.
func collectUserIDs(msgs []slack.Message) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, m := range msgs {
		add(m.User)
		for _, b := range m.Blocks.BlockSet {
			rtb, ok := b.(*slack.RichTextBlock)
			if !ok {
				continue
			}
			for _, el := range rtb.Elements {
				addMentions(el, add)
			}
		}
	}
	return ids
}

func addMentions(el slack.RichTextElement, add func(string)) {
	var inlines []slack.RichTextSectionElement
	switch e := el.(type) {
	case *slack.RichTextSection:
		inlines = e.Elements
	case *slack.RichTextQuote:
		inlines = e.Elements
	case *slack.RichTextList:
		for _, item := range e.Elements {
			addMentions(item, add)
		}
		return
	default:
		return
	}
	for _, ie := range inlines {
		if u, ok := ie.(*slack.RichTextSectionUserElement); ok {
			add(u.UserID)
		}
	}
}

// collectThreadUserIDs extends the known ID list with authors of thread
// replies.
func collectThreadUserIDs(ids []string, threads map[string][]slack.Message) []string {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	out := ids
	for _, replies := range threads {
		for _, id := range collectUserIDs(replies) {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// progressFn wraps the user callback, swallowing panics so that a broken
// callback cannot abort an export.
func progressFn(fn func(Progress)) func(Progress) {
	if fn == nil {
		return func(Progress) {}
	}
	return func(p Progress) {
		defer func() {
			_ = recover()
		}()
		fn(p)
	}
}

// interface guard
var _ Slacker = (*client.Client)(nil)
