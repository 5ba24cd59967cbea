package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobagent/internal/model"
)

// Limiter enforces a fixed minimum interval between requests to one source.
// Each source owns its own instance so a slow source never delays another.
// It is a token bucket with a burst of one: the first request goes through
// immediately and every later one waits for the next token.
type Limiter struct {
	lim      *rate.Limiter
	minDelay time.Duration
}

// NewLimiter creates a limiter allowing requestsPerSecond requests per second.
// A non-positive rate disables pacing.
func NewLimiter(requestsPerSecond float64) *Limiter {
	var d time.Duration
	if requestsPerSecond > 0 {
		d = time.Duration(float64(time.Second) / requestsPerSecond)
	}
	return NewLimiterWithDelay(d)
}

// NewLimiterWithDelay creates a limiter with an explicit minimum delay.
func NewLimiterWithDelay(minDelay time.Duration) *Limiter {
	limit := rate.Inf
	if minDelay > 0 {
		limit = rate.Every(minDelay)
	}
	return &Limiter{lim: rate.NewLimiter(limit, 1), minDelay: minDelay}
}

// MinDelay returns the enforced gap between requests.
func (l *Limiter) MinDelay() time.Duration {
	return l.minDelay
}

// Wait blocks until the next request is allowed. The first call never
// blocks. It fails without sleeping when ctx is done or its deadline would
// pass before the next slot.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.lim.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	return nil
}

// RateLimitedGetter is a decorator that waits on the limiter before
// delegating to the wrapped PageGetter.
type RateLimitedGetter struct {
	inner   model.PageGetter
	limiter *Limiter
}

// NewRateLimitedGetter wraps a PageGetter with source-level rate limiting.
func NewRateLimitedGetter(inner model.PageGetter, limiter *Limiter) *RateLimitedGetter {
	return &RateLimitedGetter{inner: inner, limiter: limiter}
}

// Get waits for the limiter to allow a request, then delegates.
func (g *RateLimitedGetter) Get(ctx context.Context, url string) ([]byte, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return g.inner.Get(ctx, url)
}
