package network

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces the fixed delay between consecutive paginated API
// requests.  The first call to Wait returns immediately; each subsequent
// call blocks until the interval has elapsed.
type Pacer struct {
	lim *rate.Limiter
}

// NewPacer returns a pacer with one event per interval and a burst of 1.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{lim: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *Pacer) Wait(ctx context.Context) error {
	return p.lim.Wait(ctx)
}
