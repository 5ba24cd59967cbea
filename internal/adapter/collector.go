package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobagent/internal/model"
	"github.com/amishk599/jobagent/internal/ratelimit"
	"github.com/amishk599/jobagent/internal/retry"
)

// NewSourceGetter composes the fetch chain for one source: every attempt,
// retries included, waits on the source's limiter first.
func NewSourceGetter(base model.PageGetter, limiter *ratelimit.Limiter, maxRetries int, logger *slog.Logger) model.PageGetter {
	limited := ratelimit.NewRateLimitedGetter(base, limiter)
	if maxRetries <= 0 {
		return limited
	}
	return retry.NewRetryGetter(limited, maxRetries, retryBaseDelay, logger)
}

const retryBaseDelay = 2 * time.Second

// queryLog tracks the listing queries of one Collect call. Individual query
// failures are logged and skipped; when every query failed the source as a
// whole is considered down.
type queryLog struct {
	source  string
	logger  *slog.Logger
	total   int
	failed  int
	lastErr error
}

func newQueryLog(source string, logger *slog.Logger) *queryLog {
	return &queryLog{source: source, logger: logger}
}

func (q *queryLog) attempt() { q.total++ }

func (q *queryLog) fail(query string, err error) {
	q.failed++
	q.lastErr = err
	q.logger.Warn("listing fetch failed", "source", q.source, "query", query, "error", err)
}

// err returns the terminal error for the source, or nil.
func (q *queryLog) err() error {
	if q.total == 0 || q.failed < q.total {
		return nil
	}
	return fmt.Errorf("collect %s: all %d listing queries failed: %w", q.source, q.total, q.lastErr)
}

// cancelled reports ctx cancellation as a terminal source error.
func cancelled(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("collect %s: %w", source, err)
	}
	return nil
}
