package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/amishk599/jobagent/internal/model"
)

// RetryGetter is a decorator that retries transient page-fetch failures with
// exponential backoff and jitter before giving up.
type RetryGetter struct {
	inner      model.PageGetter
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetryGetter wraps a PageGetter with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func NewRetryGetter(inner model.PageGetter, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryGetter {
	return &RetryGetter{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Get fetches url, retrying on transient errors.
func (g *RetryGetter) Get(ctx context.Context, url string) ([]byte, error) {
	policy := g.newPolicy()
	attempt := 0

	body, err := backoff.Retry(ctx,
		func() ([]byte, error) {
			body, err := g.inner.Get(ctx, url)
			if err == nil {
				return body, nil
			}
			if !IsRetryable(err) {
				return nil, backoff.Permanent(err)
			}
			policy.observe(err)
			return nil, err
		},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(max(g.maxRetries, 0))+1),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, delay time.Duration) {
			attempt++
			g.logger.Warn("retrying after transient error",
				"url", url,
				"attempt", attempt,
				"max_retries", g.maxRetries,
				"delay", delay,
				"error", err,
			)
		}),
	)
	if err == nil {
		return body, nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	if cause := context.Cause(ctx); cause != nil && err == cause {
		return nil, fmt.Errorf("retry cancelled: %w", err)
	}
	return nil, err
}

func (g *RetryGetter) newPolicy() *retryAfterBackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = g.baseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0.3
	if limit := g.baseDelay << min(max(g.maxRetries, 0), 10); limit > exp.MaxInterval {
		exp.MaxInterval = limit
	}
	return &retryAfterBackOff{exp: exp}
}

// retryAfterBackOff is an exponential schedule where a Retry-After duration
// from an HTTP 429 takes precedence over the computed delay for that attempt.
type retryAfterBackOff struct {
	exp      *backoff.ExponentialBackOff
	override time.Duration
}

func (b *retryAfterBackOff) observe(err error) {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		b.override = httpErr.RetryAfter
	}
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	if d := b.override; d > 0 {
		b.override = 0
		return d
	}
	return b.exp.NextBackOff()
}

func (b *retryAfterBackOff) Reset() {
	b.override = 0
	b.exp.Reset()
}

// IsRetryable reports whether err represents a transient failure worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}

	// Network, DNS, browser navigation errors.
	return true
}
