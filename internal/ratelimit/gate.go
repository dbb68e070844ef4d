// Package ratelimit serializes outbound requests to one external API
// behind a minimum-interval gate. Every external target (IGDB, each
// storefront) owns one Gate, injected into whatever calls it; there are
// no singletons.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default minimum intervals between requests to each external API.
// IGDB allows 4 requests per second; the rest are conservative guesses.
const (
	IGDBInterval  = 300 * time.Millisecond
	SteamInterval = 300 * time.Millisecond
	GogInterval   = 300 * time.Millisecond
	ItchInterval  = 500 * time.Millisecond
	EpicInterval  = 10 * time.Millisecond
)

// Gate spaces and serializes calls to a single target. The mutex is held
// for the duration of the call, so two requests to the same target never
// overlap; the limiter enforces the minimum interval between starts.
type Gate struct {
	mu      sync.Mutex
	limiter *rate.Limiter
}

// NewGate returns a Gate enforcing the given minimum interval between
// requests.
func NewGate(minInterval time.Duration) *Gate {
	return &Gate{
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// Do runs fn once the interval since the previous call has elapsed,
// holding the gate for the duration of fn. Waiting respects ctx.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	return fn(ctx)
}
