// Package mdconv converts Slack message content to Markdown.  Two
// converters cover the two body encodings Slack uses: RichText for the
// structured block tree of modern clients, and Mrkdwn for the legacy
// inline markup dialect.  A message body goes through exactly one of them,
// never both.
package mdconv

// Resolver translates opaque IDs in mentions into names.  Implementations
// must fall back to the raw ID for unknown entities.
type Resolver interface {
	// UserName returns the display name for a user ID.
	UserName(id string) string
	// ChannelName returns the name for a channel ID.
	ChannelName(id string) string
}

// MapResolver is a Resolver over pre-resolved maps.  Missing entries
// resolve to their raw IDs.
type MapResolver struct {
	Users    map[string]string
	Channels map[string]string
}

var _ Resolver = MapResolver{}

func (m MapResolver) UserName(id string) string {
	if name, ok := m.Users[id]; ok && name != "" {
		return name
	}
	return id
}

func (m MapResolver) ChannelName(id string) string {
	if name, ok := m.Channels[id]; ok && name != "" {
		return name
	}
	return id
}
