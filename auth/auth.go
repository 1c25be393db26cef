// Package auth supplies Slack credentials to the API client.  It does not
// acquire credentials itself: the token and session cookie must be obtained
// elsewhere (browser dev tools, a secrets file) and handed to one of the
// providers in this package.
package auth

import (
	"errors"
)

var (
	ErrNoToken  = errors.New("no token")
	ErrNoCookie = errors.New("no cookie")
)

// Provider is the source of Slack credentials.  SlackToken and Cookie return
// empty strings once the provider has been invalidated.
type Provider interface {
	// SlackToken returns the Slack client token (xoxc-...).
	SlackToken() string
	// Cookie returns the value of the "d" session cookie (xoxd-...).
	Cookie() string
	// Invalidate discards the stored credentials.  It is called by the API
	// client when Slack reports the token as revoked or invalid.
	Invalidate()
	// Validate returns an error if the token or cookie is missing.
	Validate() error
}

type simpleProvider struct {
	token  string
	cookie string
}

func (s *simpleProvider) SlackToken() string { return s.token }
func (s *simpleProvider) Cookie() string     { return s.cookie }

func (s *simpleProvider) Invalidate() {
	s.token = ""
	s.cookie = ""
}

func (s *simpleProvider) Validate() error {
	if s.token == "" {
		return ErrNoToken
	}
	if s.cookie == "" {
		return ErrNoCookie
	}
	return nil
}
