// Package ratelimit implements a courtesy pacer: a minimum interval between
// successive requests to the platform. The archive endpoints tolerate much
// more, but the library deliberately spaces paginated fetches out.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultInterval is the courtesy delay between paginated requests.
const DefaultInterval = 500 * time.Millisecond

// Prometheus metrics for pacing.
var (
	pacerWaitSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "substack_pacer_wait_seconds_total",
		Help: "Total time spent waiting on the courtesy pacer",
	})
)

// Pacer enforces a minimum interval between successive requests. A single
// Pacer may be shared across collectors so that the interval holds globally,
// not per collection.
type Pacer struct {
	interval time.Duration
	logger   zerolog.Logger

	mu   sync.Mutex
	last time.Time
}

// NewPacer creates a pacer with the given minimum interval. A non-positive
// interval uses DefaultInterval.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Pacer{
		interval: interval,
		logger:   log.With().Str("component", "pacer").Logger(),
	}
}

// Interval returns the configured minimum interval.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until at least the configured interval has passed since the
// previous Wait returned. The first call never blocks. The wait is
// cancellable through ctx.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	now := time.Now()
	var wait time.Duration
	if !p.last.IsZero() {
		if elapsed := now.Sub(p.last); elapsed < p.interval {
			wait = p.interval - elapsed
		}
	}
	p.last = now.Add(wait)
	p.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	pacerWaitSeconds.Add(wait.Seconds())
	p.logger.Debug().Dur("wait", wait).Msg("Pacing request")

	select {
	case <-ctx.Done():
		return fmt.Errorf("pacer wait: %w", ctx.Err())
	case <-time.After(wait):
		return nil
	}
}
