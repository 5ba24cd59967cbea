// Package pipeline runs one ingestion cycle: collect, canonicalize, dedup,
// persist, score, select, notify, and mark notified.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobagent/internal/ai"
	"github.com/amishk599/jobagent/internal/canon"
	"github.com/amishk599/jobagent/internal/dedup"
	"github.com/amishk599/jobagent/internal/model"
)

const (
	DefaultScoreLimit    = 50
	DefaultFeedbackLimit = 5
)

// Recorder receives run metrics. *metrics.Collector implements it.
type Recorder interface {
	RecordCollected(source string, n int)
	RecordSourceFailure(source string)
	RecordInserted(n int)
	RecordScored(fallback bool)
	RecordDigest(sent bool)
	RecordNotified(n int64)
	ObserveRun(seconds float64, failed bool)
	SetStats(st model.Stats)
}

// Config holds the per-run parameters.
type Config struct {
	Terms         []string
	Profile       model.Profile
	ScoreLimit    int // max jobs scored per run
	FeedbackLimit int // likes and dislikes fed to each prompt
	MinRelevance  int // threshold reported in stats
	Concurrency   int // max sources collected at once, 0 for all
}

// Report summarizes a run.
type Report struct {
	RunID     string
	Sources   []SourceResult
	Collected int
	Filtered  int // postings dropped by the filter
	Unique    int
	Inserted  int
	Scored    int
	Fallbacks int
	Unscored  int // analyzed without a score because analysis is disabled
	Selected  int
	Notified  int64
	NotifyErr error
	Before    model.Stats
	After     model.Stats
	Duration  time.Duration
}

// FailedSources returns the names of sources that failed as a whole.
func (r Report) FailedSources() []string {
	var names []string
	for _, s := range r.Sources {
		if s.Err != nil {
			names = append(names, s.Name)
		}
	}
	return names
}

// Pipeline composes the collectors, store, scorer, policy, and notifier.
type Pipeline struct {
	sources  []model.SourceCollector
	filter   model.JobFilter
	store    model.JobStore
	scorer   model.RelevanceScorer
	policy   model.DigestPolicy
	notifier model.Notifier
	recorder Recorder
	cfg      Config
	logger   *slog.Logger
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithFilter drops raw postings the filter rejects before canonicalization.
func WithFilter(f model.JobFilter) Option {
	return func(p *Pipeline) { p.filter = f }
}

// WithRecorder reports run metrics to r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// New creates a pipeline wired with all its dependencies.
func New(
	sources []model.SourceCollector,
	store model.JobStore,
	scorer model.RelevanceScorer,
	policy model.DigestPolicy,
	notifier model.Notifier,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) *Pipeline {
	if cfg.ScoreLimit <= 0 {
		cfg.ScoreLimit = DefaultScoreLimit
	}
	if cfg.FeedbackLimit <= 0 {
		cfg.FeedbackLimit = DefaultFeedbackLimit
	}
	p := &Pipeline{
		sources:  sources,
		store:    store,
		scorer:   scorer,
		policy:   policy,
		notifier: notifier,
		recorder: nopRecorder{},
		cfg:      cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one full cycle. Source failures and notification failures
// are logged and recorded in the report; storage failures and
// cancellation abort the run with an error.
func (p *Pipeline) Run(ctx context.Context) (report Report, err error) {
	start := time.Now()
	report.RunID = uuid.NewString()
	logger := p.logger.With("run_id", report.RunID)

	defer func() {
		report.Duration = time.Since(start)
		p.recorder.ObserveRun(report.Duration.Seconds(), err != nil)
		if err != nil {
			logger.Error("run aborted", "duration", report.Duration.Round(time.Millisecond), "error", err)
		}
	}()

	if report.Before, err = p.stats(ctx); err != nil {
		return report, err
	}
	logger.Info("run started", statsAttrs(report.Before)...)

	// Collect, canonicalize, dedup.
	jobs, results, kept := p.gather(ctx, logger)
	report.Sources = results
	for _, r := range results {
		report.Collected += len(r.Postings)
	}
	report.Filtered = report.Collected - kept
	report.Unique = len(jobs)
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("collecting: %w", err)
	}

	// Persist.
	for _, j := range jobs {
		isNew, err := p.store.Insert(ctx, j)
		if err != nil {
			return report, fmt.Errorf("storing jobs: %w", err)
		}
		if isNew {
			report.Inserted++
		}
	}
	p.recorder.RecordInserted(report.Inserted)
	logger.Info("jobs stored", "collected", report.Collected, "unique", report.Unique, "new", report.Inserted)

	// Score.
	if err := p.score(ctx, logger, &report); err != nil {
		return report, err
	}

	// Select and notify.
	selected, err := p.store.SelectForNotification(ctx, p.policy)
	if err != nil {
		return report, fmt.Errorf("selecting digest: %w", err)
	}
	report.Selected = len(selected)

	if len(selected) > 0 {
		if nerr := p.notifier.Notify(ctx, selected); nerr != nil {
			report.NotifyErr = nerr
			p.recorder.RecordDigest(false)
			logger.Error("digest not sent, jobs stay pending", "jobs", len(selected), "error", nerr)
		} else {
			p.recorder.RecordDigest(true)
			ids := make([]string, len(selected))
			for i, j := range selected {
				ids[i] = j.ContentID
			}
			if report.Notified, err = p.store.MarkNotified(ctx, ids); err != nil {
				return report, fmt.Errorf("marking notified: %w", err)
			}
			p.recorder.RecordNotified(report.Notified)
			logger.Info("digest sent", "jobs", len(selected), "marked", report.Notified)
		}
	} else {
		logger.Info("nothing to notify")
	}

	if report.After, err = p.stats(ctx); err != nil {
		return report, err
	}
	logger.Info("run finished", append(statsAttrs(report.After),
		"failed_sources", len(report.FailedSources()),
		"duration", time.Since(start).Round(time.Millisecond),
	)...)
	return report, nil
}

// Gather collects from every source, applies the filter, canonicalizes, and
// dedups in memory. Nothing is written.
func (p *Pipeline) Gather(ctx context.Context) ([]model.Job, []SourceResult) {
	jobs, results, _ := p.gather(ctx, p.logger)
	return jobs, results
}

// gather also returns how many postings passed the filter.
func (p *Pipeline) gather(ctx context.Context, logger *slog.Logger) ([]model.Job, []SourceResult, int) {
	results := Collect(ctx, p.sources, p.cfg.Terms, p.cfg.Concurrency, logger)

	var jobs []model.Job
	for _, r := range results {
		p.recorder.RecordCollected(r.Name, len(r.Postings))
		if r.Err != nil {
			p.recorder.RecordSourceFailure(r.Name)
		}
		for _, posting := range r.Postings {
			if p.filter != nil && !p.filter.Match(posting) {
				continue
			}
			jobs = append(jobs, canon.Canonicalize(posting))
		}
	}
	return dedup.Dedup(jobs), results, len(jobs)
}

func (p *Pipeline) score(ctx context.Context, logger *slog.Logger, report *Report) error {
	pending, err := p.store.GetUnanalyzed(ctx, p.cfg.ScoreLimit)
	if err != nil {
		return fmt.Errorf("loading unanalyzed jobs: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	likes, err := p.store.RecentLikes(ctx, p.cfg.FeedbackLimit)
	if err != nil {
		return fmt.Errorf("loading feedback: %w", err)
	}
	dislikes, err := p.store.RecentDislikes(ctx, p.cfg.FeedbackLimit)
	if err != nil {
		return fmt.Errorf("loading feedback: %w", err)
	}

	logger.Info("scoring jobs", "pending", len(pending), "likes", len(likes), "dislikes", len(dislikes))
	err = ai.ScoreBatch(ctx, p.scorer, pending, p.cfg.Profile, likes, dislikes, func(j model.Job, r model.ScoreResult) error {
		applied, err := p.store.ApplyAnalysis(ctx, j.ContentID, r)
		if err != nil {
			return fmt.Errorf("storing analysis: %w", err)
		}
		if !applied {
			return nil
		}
		if r.Unscored {
			report.Unscored++
			return nil
		}
		fallback := ai.IsFallback(r)
		report.Scored++
		if fallback {
			report.Fallbacks++
		}
		p.recorder.RecordScored(fallback)
		logger.Debug("job scored", "content_id", j.ContentID, "title", j.Title, "score", r.Score)
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("jobs scored", "scored", report.Scored, "fallbacks", report.Fallbacks, "unscored", report.Unscored)
	return nil
}

func (p *Pipeline) stats(ctx context.Context) (model.Stats, error) {
	st, err := p.store.Stats(ctx, p.cfg.MinRelevance)
	if err != nil {
		return model.Stats{}, fmt.Errorf("reading stats: %w", err)
	}
	p.recorder.SetStats(st)
	return st, nil
}

func statsAttrs(st model.Stats) []any {
	return []any{
		"total", st.Total,
		"analyzed", st.Analyzed,
		"above_threshold", st.AboveThreshold,
		"notified", st.Notified,
		"feedback", st.Feedback,
	}
}

// IsCancelled reports whether err comes from context cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

type nopRecorder struct{}

func (nopRecorder) RecordCollected(string, int) {}
func (nopRecorder) RecordSourceFailure(string) {}
func (nopRecorder) RecordInserted(int) {}
func (nopRecorder) RecordScored(bool) {}
func (nopRecorder) RecordDigest(bool) {}
func (nopRecorder) RecordNotified(int64) {}
func (nopRecorder) ObserveRun(float64, bool) {}
func (nopRecorder) SetStats(model.Stats) {}
