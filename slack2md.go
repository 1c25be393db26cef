// Package slack2md exports Slack conversations as Markdown documents.
// A Session ties together the API client, the persistent user name cache
// and the frontmatter template store; Export runs the whole pipeline for
// one conversation.
package slack2md

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rusq/slack"

	"github.com/s2md/slack2md/auth"
	"github.com/s2md/slack2md/internal/client"
	"github.com/s2md/slack2md/internal/frontmatter"
	"github.com/s2md/slack2md/internal/store"
	"github.com/s2md/slack2md/internal/users"
)

// Slacker is the subset of the API client the exporter needs, split out
// for mocking in tests.
type Slacker interface {
	History(ctx context.Context, channelID string, p client.HistoryParams) ([]slack.Message, error)
	Replies(ctx context.Context, channelID, threadTS string) ([]slack.Message, error)
	Members(ctx context.Context, channelID string) ([]string, error)
	ChannelInfo(ctx context.Context, channelID string) (*slack.Channel, error)
	TeamInfo(ctx context.Context) (*slack.TeamInfo, error)
	UserInfo(ctx context.Context, userID string) (*slack.User, error)
}

// Limits caps the API usage of a session.
type Limits struct {
	// Retries is the number of retries for transient API errors.  Zero
	// disables retrying.
	Retries int `validate:"gte=0,lte=10"`
	// PageInterval is the delay between history pages and between thread
	// fetches.
	PageInterval time.Duration `validate:"gte=0"`
	// PageSize is the per-page message count for history requests.
	PageSize int `validate:"gt=0,lte=1000"`
}

// DefLimits are the limits used when WithLimits is not given.
var DefLimits = Limits{
	Retries:      3,
	PageInterval: client.DefPageInterval,
	PageSize:     client.DefPageLimit,
}

var limitsValidate = validator.New()

// Validate returns an error if the limits are out of range.
func (l Limits) Validate() error {
	return limitsValidate.Struct(l)
}

// Session stores the exporter dependencies.  Zero value is not usable,
// must be initialised with New.
type Session struct {
	client    Slacker
	resolver  *users.Resolver
	templates *frontmatter.Store
	st        store.Store
	lg        *slog.Logger

	limits Limits
	httpc  client.Doer
	now    func() time.Time
}

// Option is the signature of the option-setting function.
type Option func(*Session)

// WithLogger sets the logger.  The default logs to slog.Default.
func WithLogger(lg *slog.Logger) Option {
	return func(s *Session) {
		if lg != nil {
			s.lg = lg
		}
	}
}

// WithLimits sets the API limits for the session.
func WithLimits(l Limits) Option {
	return func(s *Session) {
		s.limits = l
	}
}

// WithStore sets the persistent store backing the user name cache.  The
// default is an in-memory store that lives for the session only.
func WithStore(st store.Store) Option {
	return func(s *Session) {
		if st != nil {
			s.st = st
		}
	}
}

// WithTemplates sets the frontmatter template store.  The default is the
// built-in template set.
func WithTemplates(ts *frontmatter.Store) Option {
	return func(s *Session) {
		if ts != nil {
			s.templates = ts
		}
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(d client.Doer) Option {
	return func(s *Session) {
		if d != nil {
			s.httpc = d
		}
	}
}

// WithClient replaces the API client entirely.  Used in tests.
func WithClient(cl Slacker) Option {
	return func(s *Session) {
		if cl != nil {
			s.client = cl
		}
	}
}

// New creates a new export session.  The provider must carry both the
// token and the cookie; validation failure is returned before any network
// activity.
func New(prov auth.Provider, opts ...Option) (*Session, error) {
	if err := prov.Validate(); err != nil {
		return nil, fmt.Errorf("auth provider validation error: %w", err)
	}
	s := &Session{
		lg:     slog.Default(),
		limits: DefLimits,
		st:     store.NewMemory(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.limits.Validate(); err != nil {
		var vErr validator.ValidationErrors
		if errors.As(err, &vErr) {
			return nil, fmt.Errorf("limits failed validation: %s", vErr)
		}
		return nil, err
	}
	if s.client == nil {
		copts := []client.Option{
			client.WithLogger(s.lg),
			client.WithRetries(s.limits.Retries),
			client.WithPageLimit(s.limits.PageSize),
			client.WithPageInterval(s.limits.PageInterval),
		}
		if s.httpc != nil {
			copts = append(copts, client.WithHTTPClient(s.httpc))
		}
		s.client = client.New(prov, copts...)
	}
	if s.templates == nil {
		s.templates = frontmatter.Defaults()
	}
	s.resolver = users.NewResolver(s.client, s.st, s.lg)
	return s, nil
}
