package client

import (
	"context"
	"net/url"
	"slices"
	"strconv"

	"github.com/rusq/slack"
)

// HistoryParams bound the conversation history fetch.
type HistoryParams struct {
	// Limit is the total number of messages wanted, 0 for all.
	Limit int
	// Oldest and Latest are slack timestamps bounding the range,
	// inclusive.  Empty values are not sent.
	Oldest string
	Latest string
	// OnPage, if set, is called after each fetched page with the 1-based
	// page number.
	OnPage func(page int)
}

type historyResponse struct {
	baseResponse
	Messages         []slack.Message `json:"messages"`
	HasMore          bool            `json:"has_more"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// History drains conversations.history for channelID.  The API returns
// messages newest first; the result is reversed to chronological order
// and, when p.Limit is set, trimmed to the most recent p.Limit messages.
func (c *Client) History(ctx context.Context, channelID string, p HistoryParams) ([]slack.Message, error) {
	var (
		all    []slack.Message
		cursor string
		page   int
	)
	for {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		pageSize := c.pageLimit
		if p.Limit > 0 && p.Limit-len(all) < pageSize {
			pageSize = p.Limit - len(all)
		}
		form := url.Values{
			"channel":   {channelID},
			"limit":     {strconv.Itoa(pageSize)},
			"inclusive": {"true"},
		}
		if p.Oldest != "" {
			form.Set("oldest", p.Oldest)
		}
		if p.Latest != "" {
			form.Set("latest", p.Latest)
		}
		if cursor != "" {
			form.Set("cursor", cursor)
		}

		var resp historyResponse
		if err := c.do(ctx, "conversations.history", form, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Messages...)
		cursor = resp.ResponseMetadata.NextCursor
		page++
		c.lg.DebugContext(ctx, "history page fetched", "channel", channelID, "page", page, "messages", len(resp.Messages))
		if p.OnPage != nil {
			p.OnPage(page)
		}

		if p.Limit > 0 && len(all) >= p.Limit {
			break
		}
		if cursor == "" {
			break
		}
	}

	// newest first on the wire, chronological in the document
	slices.Reverse(all)
	if p.Limit > 0 && len(all) > p.Limit {
		all = all[len(all)-p.Limit:]
	}
	return all, nil
}

// Replies drains conversations.replies for the thread rooted at threadTS.
// The first returned message is always the thread parent.
func (c *Client) Replies(ctx context.Context, channelID, threadTS string) ([]slack.Message, error) {
	var (
		all    []slack.Message
		cursor string
	)
	for {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		form := url.Values{
			"channel": {channelID},
			"ts":      {threadTS},
			"limit":   {strconv.Itoa(c.pageLimit)},
		}
		if cursor != "" {
			form.Set("cursor", cursor)
		}

		var resp historyResponse
		if err := c.do(ctx, "conversations.replies", form, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Messages...)
		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" {
			return all, nil
		}
	}
}

type membersResponse struct {
	baseResponse
	Members          []string `json:"members"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// Members drains conversations.members for channelID.
func (c *Client) Members(ctx context.Context, channelID string) ([]string, error) {
	var (
		all    []string
		cursor string
	)
	for {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		form := url.Values{
			"channel": {channelID},
			"limit":   {strconv.Itoa(c.pageLimit)},
		}
		if cursor != "" {
			form.Set("cursor", cursor)
		}

		var resp membersResponse
		if err := c.do(ctx, "conversations.members", form, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Members...)
		cursor = resp.ResponseMetadata.NextCursor
		if cursor == "" {
			return all, nil
		}
	}
}
