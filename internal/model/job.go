package model

import (
	"context"
	"iter"
	"strconv"
	"time"
)

// RawPosting is an unvalidated, source-native job record as produced by a
// SourceCollector, before canonicalization.
type RawPosting struct {
	Title       string
	Company     string
	Location    string
	Description string
	URL         string
	Source      string     // collector name
	Sector      string     // optional; e.g. "offentlig", "konsulent"
	Deadline    string     // free-form, formats vary per source
	PostedAt    *time.Time // nullable (not all sources provide this)
	Salary      string
}

// State is a Job's position in the lifecycle state machine.
type State int

const (
	StateScraped State = iota
	StateAnalyzed
	StateNotified
)

func (s State) String() string {
	switch s {
	case StateScraped:
		return "scraped"
	case StateAnalyzed:
		return "analyzed"
	case StateNotified:
		return "notified"
	default:
		return "unknown"
	}
}

// Job is the canonical record, keyed by ContentID.
type Job struct {
	ContentID   string // digest of normalized (title, company, url|location)
	Title       string
	Company     string
	Location    string
	Description string
	URL         string
	Source      string
	Sector      string
	PostedAt    *time.Time
	Deadline    string
	Salary      string

	// Set by the store.
	RelevanceScore     *int // 0-100; nil until analyzed, and after analysis when scoring is disabled
	RelevanceReasoning string
	Concerns           []string
	Highlights         []string
	ScrapedAt          time.Time  // set once on first insert
	AnalyzedAt         *time.Time // nil until analyzed
	NotifiedAt         *time.Time // nil until a digest containing the job was sent
}

// State derives the lifecycle state from the lifecycle fields.
func (j Job) State() State {
	switch {
	case j.NotifiedAt != nil:
		return StateNotified
	case j.AnalyzedAt != nil, j.RelevanceScore != nil:
		return StateAnalyzed
	default:
		return StateScraped
	}
}

// Score returns the relevance score, or -1 when the job has none.
func (j Job) Score() int {
	if j.RelevanceScore == nil {
		return -1
	}
	return *j.RelevanceScore
}

// Scored reports whether the job carries a relevance score.
func (j Job) Scored() bool {
	return j.RelevanceScore != nil
}

// ScoreLabel renders the score for display, "n/a" when the job has none.
func (j Job) ScoreLabel() string {
	if j.RelevanceScore == nil {
		return "n/a"
	}
	return strconv.Itoa(*j.RelevanceScore)
}

// ScoreResult is the bounded, structured outcome of a relevance analysis.
// Unscored marks an analysis that ran without judging relevance; Score is
// then ignored and the job is stored without one.
type ScoreResult struct {
	Score      int      `json:"score"`
	Reasoning  string   `json:"reasoning"`
	Highlights []string `json:"highlights"`
	Concerns   []string `json:"concerns"`
	Unscored   bool     `json:"-"`
}

// Stats is a snapshot of store counts for operational visibility.
type Stats struct {
	Total          int
	Analyzed       int
	AboveThreshold int
	Notified       int
	Feedback       int
}

// SourceCollector produces raw postings from one external source.
//
// The returned sequence is finite and not restartable. A non-nil error is
// terminal: it is the last element yielded and means the whole source failed.
// Per-item problems are logged and skipped by the collector itself.
type SourceCollector interface {
	Name() string
	Collect(ctx context.Context, terms []string) iter.Seq2[RawPosting, error]
}

// PageGetter fetches the body of a page. Implementations: plain HTTP, a
// headless browser, and the rate-limit / retry decorators around them.
type PageGetter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// JobStore is the durable home of jobs and feedback.
type JobStore interface {
	Insert(ctx context.Context, job Job) (bool, error)
	GetUnanalyzed(ctx context.Context, limit int) ([]Job, error)
	ApplyAnalysis(ctx context.Context, contentID string, result ScoreResult) (bool, error)
	SelectForNotification(ctx context.Context, policy DigestPolicy) ([]Job, error)
	MarkNotified(ctx context.Context, contentIDs []string) (int64, error)
	InsertFeedback(ctx context.Context, fb Feedback) error
	RecentLikes(ctx context.Context, limit int) ([]FeedbackJob, error)
	RecentDislikes(ctx context.Context, limit int) ([]FeedbackJob, error)
	Stats(ctx context.Context, minRelevance int) (Stats, error)
}

// DigestPolicy decides whether an analyzed, not-yet-notified job belongs in
// the next digest.
type DigestPolicy interface {
	Include(job Job) bool
}

// RelevanceScorer judges a job against the candidate profile. It never fails:
// transport and parse problems turn into a neutral fallback result.
type RelevanceScorer interface {
	Score(ctx context.Context, job Job, profile Profile, likes, dislikes []FeedbackJob) ScoreResult
}

// Notifier delivers a digest. A nil error means the digest was sent.
type Notifier interface {
	Notify(ctx context.Context, jobs []Job) error
}

// JobFilter decides whether a raw posting matches the search criteria.
type JobFilter interface {
	Match(p RawPosting) bool
}
