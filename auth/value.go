package auth

import "strings"

var _ Provider = &ValueAuth{}

// ValueAuth holds a token and cookie given as plain values.
type ValueAuth struct {
	simpleProvider
}

// NewValueAuth returns a ValueAuth for the given token and cookie.  The
// cookie is the value of the "d" cookie, with or without the "d=" prefix.
func NewValueAuth(token, cookie string) (*ValueAuth, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if cookie == "" {
		return nil, ErrNoCookie
	}
	return &ValueAuth{simpleProvider{
		token:  token,
		cookie: "d=" + strings.TrimPrefix(cookie, "d="),
	}}, nil
}
