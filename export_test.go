package slack2md

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rusq/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s2md/slack2md/auth"
	"github.com/s2md/slack2md/internal/client"
)

// fakeSlacker implements Slacker over canned data.
type fakeSlacker struct {
	messages    []slack.Message
	histParams  client.HistoryParams
	replies     map[string][]slack.Message
	repliesFor  []string
	members     []string
	membersErr  error
	channel     *slack.Channel
	team        *slack.TeamInfo
	teamErr     error
	users       map[string]*slack.User
	userLookups []string
}

func (f *fakeSlacker) History(_ context.Context, _ string, p client.HistoryParams) ([]slack.Message, error) {
	f.histParams = p
	if p.OnPage != nil {
		p.OnPage(1)
	}
	return f.messages, nil
}

func (f *fakeSlacker) Replies(_ context.Context, _ string, threadTS string) ([]slack.Message, error) {
	f.repliesFor = append(f.repliesFor, threadTS)
	return f.replies[threadTS], nil
}

func (f *fakeSlacker) Members(context.Context, string) ([]string, error) {
	return f.members, f.membersErr
}

func (f *fakeSlacker) ChannelInfo(context.Context, string) (*slack.Channel, error) {
	return f.channel, nil
}

func (f *fakeSlacker) TeamInfo(context.Context) (*slack.TeamInfo, error) {
	return f.team, f.teamErr
}

func (f *fakeSlacker) UserInfo(_ context.Context, id string) (*slack.User, error) {
	f.userLookups = append(f.userLookups, id)
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("user_not_found")
	}
	return u, nil
}

func user(name string) *slack.User {
	return &slack.User{Profile: slack.UserProfile{DisplayName: name}}
}

func pubChannel(name string) *slack.Channel {
	ch := &slack.Channel{}
	ch.ID = "C024BE91L"
	ch.Name = name
	return ch
}

func testMsg(ts, userID, text string) slack.Message {
	return slack.Message{Msg: slack.Msg{Timestamp: ts, User: userID, Text: text}}
}

func testFake() *fakeSlacker {
	return &fakeSlacker{
		messages: []slack.Message{
			testMsg("1672574400.000100", "U1", "hello"),
			testMsg("1672575000.000200", "U2", "hi <@U1>"),
		},
		channel: pubChannel("general"),
		team:    &slack.TeamInfo{Name: "Acme", Domain: "acme"},
		users: map[string]*slack.User{
			"U1": user("alice"),
			"U2": user("bob"),
			"U3": user("carol"),
		},
	}
}

func testSession(t *testing.T, f *fakeSlacker, opts ...Option) *Session {
	t.Helper()
	prov, err := auth.NewValueAuth("xoxc-test", "xoxd-test")
	require.NoError(t, err)
	s, err := New(prov, append([]Option{WithClient(f)}, opts...)...)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2023, 6, 15, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestSession_Export(t *testing.T) {
	f := testFake()
	s := testSession(t, f)

	res, err := s.Export(context.Background(), Request{ChannelID: "C024BE91L"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.MessageCount)
	assert.Contains(t, res.Markdown, "# #general")
	assert.Contains(t, res.Markdown, "**alice**")
	assert.Contains(t, res.Markdown, "hi @alice")
	// both authors resolved, each exactly once
	assert.ElementsMatch(t, []string{"U1", "U2"}, f.userLookups)
}

func TestSession_Export_noChannel(t *testing.T) {
	s := testSession(t, testFake())
	_, err := s.Export(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoChannel)
}

func TestSession_Export_scope(t *testing.T) {
	f := testFake()
	s := testSession(t, f)

	_, err := s.Export(context.Background(), Request{ChannelID: "C024BE91L", Scope: LastN(50)})
	require.NoError(t, err)
	assert.Equal(t, 50, f.histParams.Limit)

	oldest := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	latest := time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC)
	_, err = s.Export(context.Background(), Request{ChannelID: "C024BE91L", Scope: Between(oldest, latest)})
	require.NoError(t, err)
	assert.NotEmpty(t, f.histParams.Oldest)
	assert.NotEmpty(t, f.histParams.Latest)
	assert.Zero(t, f.histParams.Limit)
}

func TestSession_Export_threads(t *testing.T) {
	f := testFake()
	root := testMsg("1672574400.000100", "U1", "thread here")
	root.ThreadTimestamp = root.Timestamp
	root.ReplyCount = 1
	reply := testMsg("1672575000.000200", "U3", "reply from a new face")
	reply.ThreadTimestamp = root.Timestamp
	f.messages = []slack.Message{root}
	f.replies = map[string][]slack.Message{root.Timestamp: {root, reply}}

	s := testSession(t, f)
	res, err := s.Export(context.Background(), Request{ChannelID: "C024BE91L", IncludeThreads: true})
	require.NoError(t, err)
	assert.Equal(t, []string{root.Timestamp}, f.repliesFor)
	assert.Contains(t, res.Markdown, "> **Thread** (1 reply to alice")
	// U3 appears only in the thread and still resolves
	assert.Contains(t, res.Markdown, "> **carol**")
}

func TestSession_Export_frontmatter(t *testing.T) {
	f := testFake()
	s := testSession(t, f)
	res, err := s.Export(context.Background(), Request{ChannelID: "C024BE91L", IncludeFrontmatter: true})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Markdown, "---\n"))
	assert.Contains(t, res.Markdown, "workspace: Acme")
	assert.Contains(t, res.Markdown, `source_url: "https://acme.slack.com/archives/C024BE91L"`)
	// frontmatter replaces the document header
	assert.NotContains(t, res.Markdown, "# #general")
}

func TestSession_Export_frontmatterTeamInfoFails(t *testing.T) {
	f := testFake()
	f.team = nil
	f.teamErr = errors.New("missing_scope")
	s := testSession(t, f)
	res, err := s.Export(context.Background(), Request{ChannelID: "C024BE91L", IncludeFrontmatter: true})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Markdown, "---\n"))
	assert.NotContains(t, res.Markdown, "workspace:")
}

func TestSession_Export_participants(t *testing.T) {
	f := testFake()
	ch := pubChannel("mpdm-alice--bob-1")
	ch.IsMpIM = true
	f.channel = ch
	f.members = []string{"U1", "U2"}
	s := testSession(t, f)

	res, err := s.Export(context.Background(), Request{ChannelID: "C024BE91L", IncludeFrontmatter: true})
	require.NoError(t, err)
	// the default template has no participants field, but members must
	// not fail the export; switch to the detailed template to see them
	require.NotNil(t, res)

	s.templates.Templates["slack_default"].Enabled = false
	s.templates.Templates["slack_detailed"].Enabled = true
	res, err = s.Export(context.Background(), Request{ChannelID: "C024BE91L", IncludeFrontmatter: true})
	require.NoError(t, err)
	assert.Contains(t, res.Markdown, `participants: "alice, bob"`)
}

func TestSession_Export_progress(t *testing.T) {
	f := testFake()
	s := testSession(t, f)

	var phases []string
	_, err := s.Export(context.Background(), Request{
		ChannelID: "C024BE91L",
		OnProgress: func(p Progress) {
			if len(phases) == 0 || phases[len(phases)-1] != p.Phase {
				phases = append(phases, p.Phase)
			}
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{PhaseFetching, PhaseResolvingUsers, PhaseConverting}, phases)
}

func TestSession_Export_progressPanics(t *testing.T) {
	f := testFake()
	s := testSession(t, f)
	res, err := s.Export(context.Background(), Request{
		ChannelID:  "C024BE91L",
		OnProgress: func(Progress) { panic("broken callback") },
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.MessageCount)
}

func TestScope_Label(t *testing.T) {
	tests := []struct {
		name  string
		scope Scope
		want  string
	}{
		{"zero value", Scope{}, "all"},
		{"all", All(), "all"},
		{"last n", LastN(100), "last_100"},
		{"range", Between(time.Now().Add(-time.Hour), time.Now()), "date_range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scope.Label())
		})
	}
}

func TestNew_invalidLimits(t *testing.T) {
	prov, err := auth.NewValueAuth("xoxc-test", "xoxd-test")
	require.NoError(t, err)
	_, err = New(prov, WithLimits(Limits{Retries: 100, PageSize: 0}))
	assert.Error(t, err)
}

func Test_collectUserIDs(t *testing.T) {
	m := testMsg("1.000", "U1", "hello <@U9>")
	m.Blocks = slack.Blocks{BlockSet: []slack.Block{
		slack.NewRichTextBlock("",
			slack.NewRichTextSection(
				slack.NewRichTextSectionUserElement("U2", nil),
				slack.NewRichTextSectionTextElement(" hi", nil),
			),
			slack.NewRichTextList(slack.RTEListBullet, 0,
				slack.NewRichTextSection(slack.NewRichTextSectionUserElement("U3", nil)),
			),
		),
	}}
	dup := testMsg("2.000", "U1", "again")
	got := collectUserIDs([]slack.Message{m, dup})
	// only authors and rich text mentions are collected; legacy text
	// mentions render with the raw ID when unresolved
	assert.Equal(t, []string{"U1", "U2", "U3"}, got)
}
