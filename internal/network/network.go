// Package network provides the retry and pacing primitives used by the API
// client.  It knows nothing about Slack: any fallible operation can be
// wrapped in Do.
package network

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	defMaxRetries = 3
	defBaseDelay  = 1000 * time.Millisecond
	defMaxDelay   = 30000 * time.Millisecond
)

// NoRetries as MaxRetries disables retrying: the operation runs exactly
// once.  Zero still means "use the default".
const NoRetries = -1

// sleepFn is the suspension function.  It is a variable to reduce the test
// time.
var sleepFn = sleepCtx

// RetryOptions control the behaviour of Do.  The zero value gets the
// defaults of 3 retries, 1s base delay and 30s maximum delay.
type RetryOptions struct {
	// MaxRetries is the number of retry attempts after the initial call.
	// NoRetries disables retrying altogether.
	MaxRetries int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff delay.
	MaxDelay time.Duration
	// ShouldRetry reports whether the error is worth retrying.  If nil,
	// every error is retried.
	ShouldRetry func(error) bool
	// RetryAfter extracts a server-supplied delay from the error.  When it
	// returns a positive duration, that delay is used verbatim instead of
	// the computed backoff.
	RetryAfter func(error) time.Duration
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxRetries == 0 {
		o.MaxRetries = defMaxRetries
	} else if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = defBaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = defMaxDelay
	}
	if o.ShouldRetry == nil {
		o.ShouldRetry = func(error) bool { return true }
	}
	if o.RetryAfter == nil {
		o.RetryAfter = func(error) time.Duration { return 0 }
	}
	return o
}

// Do runs fn, retrying it up to opt.MaxRetries times with exponential
// backoff and jitter.  If the error carries a server-supplied delay, that
// delay is honoured instead of the backoff.  On final failure the last
// error is returned unchanged, so callers can classify it with errors.As.
func Do(ctx context.Context, opt RetryOptions, fn func() error) error {
	opt = opt.withDefaults()

	var lastErr error
	for attempt := 0; attempt <= opt.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt >= opt.MaxRetries || !opt.ShouldRetry(lastErr) {
			return lastErr
		}
		delay := opt.RetryAfter(lastErr)
		if delay <= 0 {
			delay = backoff(opt.BaseDelay, opt.MaxDelay, attempt)
		}
		slog.DebugContext(ctx, "retrying", "attempt", attempt+1, "delay", delay, "error", lastErr)
		if err := sleepFn(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

// backoff computes base * 2^attempt with a jitter factor in [0.5, 1.0),
// capped at max.  The jitter spreads out clients that got rate limited at
// the same instant.
func backoff(base, max time.Duration, attempt int) time.Duration {
	d := time.Duration(float64(base) * float64(int64(1)<<uint(attempt)) * (0.5 + rand.Float64()/2))
	if d > max {
		return max
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
