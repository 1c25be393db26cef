// Package client implements the subset of the Slack web API needed to
// export a conversation: history and thread pagination, channel, team and
// user lookups.  Calls authenticate with a client token and a session
// cookie, and transient failures are retried with backoff.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/s2md/slack2md/auth"
	"github.com/s2md/slack2md/internal/network"
)

const defBaseURL = "https://slack.com/api"

const (
	// DefPageLimit is the page size for cursor-paginated methods,
	// recommended by Slack.
	DefPageLimit = 200
	// DefPageInterval is the fixed delay between paginated requests.
	DefPageInterval = 1000 * time.Millisecond
	// defRateLimitDelay is used when a 429 response has no parseable
	// retry_after.
	defRateLimitDelay = 5000 * time.Millisecond
)

// Doer is the transport capability.  *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the Slack API client.  Zero value is not usable, construct
// with New.
type Client struct {
	prov  auth.Provider
	httpc Doer
	lg    *slog.Logger

	baseURL   string
	pageLimit int
	retry     network.RetryOptions
	pacer     *network.Pacer
}

// Option is the Client option-setting function.
type Option func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.httpc = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg *slog.Logger) Option {
	return func(c *Client) {
		if lg != nil {
			c.lg = lg
		}
	}
}

// WithBaseURL overrides the API base URL (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithRetries sets the number of retry attempts for transient errors.
// Zero disables retrying, negative values keep the default.
func WithRetries(n int) Option {
	return func(c *Client) {
		switch {
		case n > 0:
			c.retry.MaxRetries = n
		case n == 0:
			c.retry.MaxRetries = network.NoRetries
		}
	}
}

// WithPageLimit sets the pagination page size.
func WithPageLimit(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageLimit = n
		}
	}
}

// WithPageInterval sets the fixed delay between paginated requests.
func WithPageInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pacer = network.NewPacer(d)
		}
	}
}

// New creates a Client authenticating with prov.
func New(prov auth.Provider, opts ...Option) *Client {
	c := &Client{
		prov:      prov,
		httpc:     http.DefaultClient,
		lg:        slog.Default(),
		baseURL:   defBaseURL,
		pageLimit: DefPageLimit,
		pacer:     network.NewPacer(DefPageInterval),
	}
	c.retry = network.RetryOptions{
		ShouldRetry: isTransient,
		RetryAfter:  retryAfter,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func isTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func retryAfter(err error) time.Duration {
	var te *TransientError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}

// envelope is the common part of every API response.
type envelope interface {
	apiOK() bool
	apiError() string
}

type baseResponse struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func (r *baseResponse) apiOK() bool      { return r.Ok }
func (r *baseResponse) apiError() string { return r.Error }

// do wraps a single API call in the retry policy.
func (c *Client) do(ctx context.Context, method string, form url.Values, resp envelope) error {
	return network.Do(ctx, c.retry, func() error {
		return c.call(ctx, method, form, resp)
	})
}

// call performs one API request and classifies the outcome.
func (c *Client) call(ctx context.Context, method string, form url.Values, resp envelope) error {
	token := c.prov.SlackToken()
	if token == "" {
		return fmt.Errorf("calling %s: %w", method, auth.ErrNoToken)
	}
	cookie := c.prov.Cookie()
	if cookie == "" {
		return fmt.Errorf("calling %s: %w", method, auth.ErrNoCookie)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Cookie", cookie)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpc.Do(req)
	if err != nil {
		return &TransientError{Method: method, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		return &TransientError{
			Method:     method,
			SlackError: "ratelimited",
			RetryAfter: parseRetryAfter(res),
		}
	}

	if err := json.NewDecoder(res.Body).Decode(resp); err != nil {
		return fmt.Errorf("error decoding %s response: %w", method, err)
	}
	if resp.apiOK() {
		return nil
	}

	switch apiErr := resp.apiError(); apiErr {
	case "invalid_auth", "token_revoked":
		c.prov.Invalidate()
		return &AuthError{SlackError: apiErr}
	case "internal_error", "fatal_error":
		return &TransientError{Method: method, SlackError: apiErr}
	default:
		return &APIError{Method: method, SlackError: apiErr}
	}
}

// parseRetryAfter extracts the rate limit delay from the 429 response body.
// Slack reports it in seconds.
func parseRetryAfter(res *http.Response) time.Duration {
	var body struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil || body.RetryAfter <= 0 {
		return defRateLimitDelay
	}
	return time.Duration(body.RetryAfter * float64(time.Second))
}
