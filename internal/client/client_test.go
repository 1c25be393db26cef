package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rusq/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s2md/slack2md/auth"
)

// testAuth is a fake credential provider.
type testAuth struct {
	token       string
	cookie      string
	invalidated bool
}

func (a *testAuth) SlackToken() string { return a.token }
func (a *testAuth) Cookie() string     { return a.cookie }
func (a *testAuth) Invalidate()        { a.invalidated = true; a.token = "" }
func (a *testAuth) Validate() error    { return nil }

var _ auth.Provider = &testAuth{}

func testClient(t *testing.T, h http.HandlerFunc, opts ...Option) (*Client, *testAuth) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	prov := &testAuth{token: "xoxc-test", cookie: "d=xoxd-test"}
	opts = append([]Option{
		WithBaseURL(srv.URL),
		WithPageInterval(time.Millisecond),
	}, opts...)
	return New(prov, opts...), prov
}

func respond(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(err)
	}
}

func Test_call_classification(t *testing.T) {
	tests := []struct {
		name       string
		slackError string
		wantType   any
	}{
		{"invalid_auth is an auth error", "invalid_auth", &AuthError{}},
		{"token_revoked is an auth error", "token_revoked", &AuthError{}},
		{"internal_error is transient", "internal_error", &TransientError{}},
		{"fatal_error is transient", "fatal_error", &TransientError{}},
		{"channel_not_found is permanent", "channel_not_found", &APIError{}},
		{"missing_scope is permanent", "missing_scope", &APIError{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, prov := testClient(t, func(w http.ResponseWriter, r *http.Request) {
				respond(w, map[string]any{"ok": false, "error": tt.slackError})
			})
			var resp baseResponse
			err := c.call(context.Background(), "conversations.info", url.Values{}, &resp)
			require.Error(t, err)
			switch want := tt.wantType.(type) {
			case *AuthError:
				assert.ErrorAs(t, err, &want)
				assert.True(t, prov.invalidated, "auth errors must invalidate the credentials")
			case *TransientError:
				assert.ErrorAs(t, err, &want)
				assert.Zero(t, want.RetryAfter)
			case *APIError:
				assert.ErrorAs(t, err, &want)
				assert.Equal(t, tt.slackError, want.SlackError)
			}
		})
	}
}

func Test_call_missingCredentials(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent without credentials")
	})
	t.Run("no token", func(t *testing.T) {
		c.prov = &testAuth{cookie: "d=xoxd"}
		var resp baseResponse
		err := c.call(context.Background(), "users.info", url.Values{}, &resp)
		assert.ErrorIs(t, err, auth.ErrNoToken)
		assert.False(t, isTransient(err), "configuration errors must not be retried")
	})
	t.Run("no cookie", func(t *testing.T) {
		c.prov = &testAuth{token: "xoxc"}
		var resp baseResponse
		err := c.call(context.Background(), "users.info", url.Values{}, &resp)
		assert.ErrorIs(t, err, auth.ErrNoCookie)
	})
}

func Test_call_rateLimit(t *testing.T) {
	t.Run("retry_after from body", func(t *testing.T) {
		c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintln(w, `{"ok":false,"error":"ratelimited","retry_after":30}`)
		})
		var resp baseResponse
		err := c.call(context.Background(), "conversations.history", url.Values{}, &resp)
		var te *TransientError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, 30*time.Second, te.RetryAfter)
	})
	t.Run("unparseable body falls back to 5s", func(t *testing.T) {
		c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintln(w, "too many requests")
		})
		var resp baseResponse
		err := c.call(context.Background(), "conversations.history", url.Values{}, &resp)
		var te *TransientError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, 5*time.Second, te.RetryAfter)
	})
}

func Test_call_headers(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer xoxc-test", r.Header.Get("Authorization"))
		assert.Equal(t, "d=xoxd-test", r.Header.Get("Cookie"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "C1", r.PostForm.Get("channel"))
		respond(w, map[string]any{"ok": true})
	})
	var resp baseResponse
	require.NoError(t, c.call(context.Background(), "conversations.info", url.Values{"channel": {"C1"}}, &resp))
}

func msg(ts string) slack.Message {
	m := slack.Message{}
	m.Timestamp = ts
	m.Text = "message " + ts
	return m
}

func TestHistory(t *testing.T) {
	t.Run("paginates, reverses and reports pages", func(t *testing.T) {
		// two pages, newest first on the wire
		pages := []map[string]any{
			{
				"ok":                true,
				"messages":          []slack.Message{msg("4.000000"), msg("3.000000")},
				"response_metadata": map[string]any{"next_cursor": "c2"},
			},
			{
				"ok":       true,
				"messages": []slack.Message{msg("2.000000"), msg("1.000000")},
			},
		}
		var call int
		c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			if call == 0 {
				assert.Empty(t, r.PostForm.Get("cursor"))
			} else {
				assert.Equal(t, "c2", r.PostForm.Get("cursor"))
			}
			respond(w, pages[call])
			call++
		})

		var pagesSeen []int
		got, err := c.History(context.Background(), "C1", HistoryParams{
			OnPage: func(page int) { pagesSeen = append(pagesSeen, page) },
		})
		require.NoError(t, err)
		require.Len(t, got, 4)
		for i, want := range []string{"1.000000", "2.000000", "3.000000", "4.000000"} {
			assert.Equal(t, want, got[i].Timestamp)
		}
		assert.Equal(t, []int{1, 2}, pagesSeen)
	})
	t.Run("limit trims to the most recent messages", func(t *testing.T) {
		c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "3", r.PostForm.Get("limit"))
			assert.Equal(t, "true", r.PostForm.Get("inclusive"))
			respond(w, map[string]any{
				"ok":       true,
				"messages": []slack.Message{msg("5.000000"), msg("4.000000"), msg("3.000000"), msg("2.000000")},
			})
		})
		got, err := c.History(context.Background(), "C1", HistoryParams{Limit: 3})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "3.000000", got[0].Timestamp)
		assert.Equal(t, "5.000000", got[2].Timestamp)
	})
	t.Run("date range is passed through", func(t *testing.T) {
		c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "1.000000", r.PostForm.Get("oldest"))
			assert.Equal(t, "2.000000", r.PostForm.Get("latest"))
			respond(w, map[string]any{"ok": true, "messages": []slack.Message{}})
		})
		_, err := c.History(context.Background(), "C1", HistoryParams{Oldest: "1.000000", Latest: "2.000000"})
		require.NoError(t, err)
	})
	t.Run("transient error is retried until success", func(t *testing.T) {
		var call int
		c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			call++
			if call == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintln(w, `{"ok":false,"error":"ratelimited","retry_after":0.01}`)
				return
			}
			respond(w, map[string]any{"ok": true, "messages": []slack.Message{msg("1.000000")}})
		})
		got, err := c.History(context.Background(), "C1", HistoryParams{})
		require.NoError(t, err)
		assert.Equal(t, 2, call)
		assert.Len(t, got, 1)
	})
	t.Run("WithRetries(0) disables retrying", func(t *testing.T) {
		var call int
		c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			call++
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintln(w, `{"ok":false,"error":"ratelimited","retry_after":0.01}`)
		}, WithRetries(0))
		_, err := c.History(context.Background(), "C1", HistoryParams{})
		var te *TransientError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, 1, call)
	})
	t.Run("permanent error is not retried", func(t *testing.T) {
		var call int
		c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			call++
			respond(w, map[string]any{"ok": false, "error": "channel_not_found"})
		})
		_, err := c.History(context.Background(), "C1", HistoryParams{})
		var ae *APIError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, 1, call)
	})
}

func TestReplies(t *testing.T) {
	pages := []map[string]any{
		{
			"ok":                true,
			"messages":          []slack.Message{msg("1.000000"), msg("2.000000")},
			"response_metadata": map[string]any{"next_cursor": "next"},
		},
		{
			"ok":       true,
			"messages": []slack.Message{msg("3.000000")},
		},
	}
	var call int
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "1.000000", r.PostForm.Get("ts"))
		respond(w, pages[call])
		call++
	})
	got, err := c.Replies(context.Background(), "C1", "1.000000")
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 2, call)
}

func TestMembers(t *testing.T) {
	pages := []map[string]any{
		{
			"ok":                true,
			"members":           []string{"U1", "U2"},
			"response_metadata": map[string]any{"next_cursor": "next"},
		},
		{"ok": true, "members": []string{"U3"}},
	}
	var call int
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, pages[call])
		call++
	})
	got, err := c.Members(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, []string{"U1", "U2", "U3"}, got)
}

func TestChannelInfo(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, map[string]any{"ok": true, "channel": map[string]any{
			"id": "C024BE91L", "name": "general", "is_channel": true,
		}})
	})
	ch, err := c.ChannelInfo(context.Background(), "C024BE91L")
	require.NoError(t, err)
	assert.Equal(t, "C024BE91L", ch.ID)
	assert.Equal(t, "general", ch.Name)
	assert.True(t, ch.IsChannel)
}

func TestTeamInfo(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, map[string]any{"ok": true, "team": map[string]any{
			"name": "My Workspace", "domain": "myworkspace",
		}})
	})
	team, err := c.TeamInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "My Workspace", team.Name)
	assert.Equal(t, "myworkspace", team.Domain)
}

func TestUserInfo(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, map[string]any{"ok": true, "user": map[string]any{
			"id": "U1", "real_name": "Alice Kingsleigh",
			"profile": map[string]any{"display_name": "alice"},
		}})
	})
	u, err := c.UserInfo(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Profile.DisplayName)
}
