package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobagent/internal/model"
)

// SourceResult is what one collector produced in a run.
type SourceResult struct {
	Name     string
	Postings []model.RawPosting
	Err      error // terminal source failure, nil on success
	Duration time.Duration
}

// Collect runs every source concurrently and gathers their postings. A
// failing source never affects the others: its terminal error is recorded in
// its result. Results are in source order. A limit of zero or less runs all
// sources at once.
func Collect(ctx context.Context, sources []model.SourceCollector, terms []string, limit int, logger *slog.Logger) []SourceResult {
	results := make([]SourceResult, len(sources))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, src := range sources {
		g.Go(func() error {
			results[i] = collectOne(ctx, src, terms, logger)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func collectOne(ctx context.Context, src model.SourceCollector, terms []string, logger *slog.Logger) SourceResult {
	start := time.Now()
	res := SourceResult{Name: src.Name()}
	for p, err := range src.Collect(ctx, terms) {
		if err != nil {
			res.Err = err
			break
		}
		res.Postings = append(res.Postings, p)
	}
	res.Duration = time.Since(start)

	if res.Err != nil {
		logger.Error("source failed",
			"source", res.Name,
			"postings", len(res.Postings),
			"error", res.Err,
		)
	} else {
		logger.Info("source collected",
			"source", res.Name,
			"postings", len(res.Postings),
			"duration", res.Duration.Round(time.Millisecond),
		)
	}
	return res
}
