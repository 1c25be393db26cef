package client

import (
	"context"
	"net/url"

	"github.com/rusq/slack"
)

type channelInfoResponse struct {
	baseResponse
	Channel slack.Channel `json:"channel"`
}

// ChannelInfo returns conversation metadata for channelID.
func (c *Client) ChannelInfo(ctx context.Context, channelID string) (*slack.Channel, error) {
	var resp channelInfoResponse
	if err := c.do(ctx, "conversations.info", url.Values{"channel": {channelID}}, &resp); err != nil {
		return nil, err
	}
	return &resp.Channel, nil
}

type teamInfoResponse struct {
	baseResponse
	Team slack.TeamInfo `json:"team"`
}

// TeamInfo returns the workspace name and domain.
func (c *Client) TeamInfo(ctx context.Context) (*slack.TeamInfo, error) {
	var resp teamInfoResponse
	if err := c.do(ctx, "team.info", url.Values{}, &resp); err != nil {
		return nil, err
	}
	return &resp.Team, nil
}

type userInfoResponse struct {
	baseResponse
	User slack.User `json:"user"`
}

// UserInfo returns the user record for userID.
func (c *Client) UserInfo(ctx context.Context, userID string) (*slack.User, error) {
	var resp userInfoResponse
	if err := c.do(ctx, "users.info", url.Values{"user": {userID}}, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}
