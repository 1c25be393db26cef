package client

import (
	"fmt"
	"time"
)

// The client classifies every failure into one of three categories, so that
// the caller can decide whether to re-authenticate, retry, or give up:
//
//   - *AuthError: the token is invalid or revoked; terminal, the credential
//     provider has been invalidated.
//   - *TransientError: rate limit, upstream internal error or network
//     failure; retried by the client itself, surfaced only when retries are
//     exhausted.
//   - *APIError: any other error reported by the API; permanent, returned
//     verbatim.

// APIError is an error reported by the Slack API that is neither an
// authentication failure nor transient.
type APIError struct {
	Method     string // API method that failed
	SlackError string // the "error" field of the response envelope
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack api error calling %s: %s", e.Method, e.SlackError)
}

// AuthError indicates a revoked or invalid token.  The caller should prompt
// for re-authentication.
type AuthError struct {
	SlackError string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("slack session expired or token revoked (%s)", e.SlackError)
}

// TransientError is a failure that is worth retrying: HTTP 429, an upstream
// internal error, or a network-level failure.
type TransientError struct {
	Method     string
	SlackError string
	// RetryAfter is the server-supplied delay for rate limit responses,
	// zero otherwise.
	RetryAfter time.Duration
	Err        error // underlying error for network failures
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("network error calling %s: %s", e.Method, e.Err)
	}
	return fmt.Sprintf("transient slack api error calling %s: %s", e.Method, e.SlackError)
}

func (e *TransientError) Unwrap() error { return e.Err }
