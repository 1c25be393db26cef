// Package users resolves opaque Slack user IDs to display names, backed by
// a persistent cache so that repeated exports do not re-fetch known users.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rusq/slack"

	"github.com/s2md/slack2md/internal/store"
)

// cacheKey is the store key for the ID to display-name map.
const cacheKey = "user_display_name_cache"

// UserInfoer is the part of the API client that the resolver needs.
type UserInfoer interface {
	UserInfo(ctx context.Context, userID string) (*slack.User, error)
}

// Resolver maps user IDs to display names.  Cached entries are never
// refetched within the resolver's lifetime; the cache is persisted after
// every batch that contained at least one miss.
type Resolver struct {
	client UserInfoer
	st     store.Store
	lg     *slog.Logger

	cache  map[string]string
	loaded bool
}

func NewResolver(client UserInfoer, st store.Store, lg *slog.Logger) *Resolver {
	if lg == nil {
		lg = slog.Default()
	}
	return &Resolver{client: client, st: st, lg: lg}
}

func (r *Resolver) load() error {
	if r.loaded {
		return nil
	}
	r.cache = make(map[string]string)
	if err := r.st.Get(cacheKey, &r.cache); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to load the user cache: %w", err)
	}
	r.loaded = true
	return nil
}

// Resolve returns the display names for ids.  Cache hits are served
// locally; each miss costs one users.info call.  It is safe to call
// Resolve multiple times within one export: already-resolved IDs are not
// fetched again.
func (r *Resolver) Resolve(ctx context.Context, ids []string) (map[string]string, error) {
	if err := r.load(); err != nil {
		return nil, err
	}

	result := make(map[string]string, len(ids))
	var misses []string
	for _, id := range ids {
		if name, ok := r.cache[id]; ok {
			result[id] = name
		} else {
			misses = append(misses, id)
		}
	}

	for _, id := range misses {
		u, err := r.client.UserInfo(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve user %s: %w", id, err)
		}
		name := displayName(id, u)
		r.cache[id] = name
		result[id] = name
	}

	if len(misses) > 0 {
		r.lg.DebugContext(ctx, "user cache updated", "misses", len(misses), "size", len(r.cache))
		if err := r.st.Set(cacheKey, r.cache); err != nil {
			return nil, fmt.Errorf("failed to persist the user cache: %w", err)
		}
	}
	return result, nil
}

// displayName picks the most specific non-empty name for the user.
func displayName(id string, u *slack.User) string {
	switch {
	case u.Profile.DisplayName != "":
		return u.Profile.DisplayName
	case u.Profile.RealName != "":
		return u.Profile.RealName
	case u.RealName != "":
		return u.RealName
	default:
		return id
	}
}
