package structures

// In this file: slack URL parsing functions.

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	ErrNoURL       = errors.New("no url provided")
	ErrNotSlackURL = errors.New("not a slack URL")
	ErrInvalidLink = errors.New("invalid link")
)

var channelIDRe = regexp.MustCompile(`^[CDG][A-Z0-9]+$`)

// ParseChannelArg accepts either a bare conversation ID ("C024BE91L") or a
// slack archive URL ("https://xxx.slack.com/archives/C024BE91L") and
// returns the conversation ID.
func ParseChannelArg(arg string) (string, error) {
	if arg == "" {
		return "", ErrNoURL
	}
	if channelIDRe.MatchString(arg) {
		return arg, nil
	}
	if !strings.Contains(arg, "://") {
		return "", fmt.Errorf("%w: %q", ErrInvalidLink, arg)
	}
	uri, err := url.Parse(arg)
	if err != nil {
		return "", fmt.Errorf("error parsing URL %q: %w", arg, err)
	}
	if !strings.HasSuffix(uri.Host, ".slack.com") {
		return "", ErrNotSlackURL
	}
	parts := strings.Split(strings.TrimPrefix(uri.Path, "/"), "/")
	if len(parts) < 2 || !strings.EqualFold(parts[0], "archives") || parts[1] == "" {
		return "", fmt.Errorf("%w: expected an /archives/ URL", ErrInvalidLink)
	}
	return parts[1], nil
}
