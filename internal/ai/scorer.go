package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/amishk599/jobagent/internal/model"
)

const (
	// FallbackScore is the neutral score given when analysis fails.
	FallbackScore = 50

	// DefaultDescriptionLimit bounds the description sent to the LLM, in runes.
	DefaultDescriptionLimit = 2000
)

const fallbackPrefix = "analysis failed: "

var errEmptyResponse = errors.New("empty response")

// LLMScorer implements model.RelevanceScorer using an LLM.
type LLMScorer struct {
	provider         LLMProvider
	tmpl             *template.Template
	descriptionLimit int
	timeout          time.Duration
	logger           *slog.Logger
}

var _ model.RelevanceScorer = (*LLMScorer)(nil)

// NewLLMScorer creates a scorer. A non-positive descriptionLimit uses
// DefaultDescriptionLimit; a zero timeout leaves calls bounded only by ctx.
func NewLLMScorer(provider LLMProvider, tmpl *template.Template, descriptionLimit int, timeout time.Duration, logger *slog.Logger) *LLMScorer {
	if descriptionLimit <= 0 {
		descriptionLimit = DefaultDescriptionLimit
	}
	return &LLMScorer{
		provider:         provider,
		tmpl:             tmpl,
		descriptionLimit: descriptionLimit,
		timeout:          timeout,
		logger:           logger,
	}
}

// Score judges job against profile. It never fails: a transport or parse
// problem yields the fallback result.
func (s *LLMScorer) Score(ctx context.Context, job model.Job, profile model.Profile, likes, dislikes []model.FeedbackJob) model.ScoreResult {
	result, err := s.score(ctx, job, profile, likes, dislikes)
	if err != nil {
		s.logger.Warn("relevance analysis failed, using fallback score",
			"content_id", job.ContentID,
			"title", job.Title,
			"error", err,
		)
		return Fallback(err)
	}
	return result
}

func (s *LLMScorer) score(ctx context.Context, job model.Job, profile model.Profile, likes, dislikes []model.FeedbackJob) (model.ScoreResult, error) {
	sector := job.Sector
	if sector == "" {
		sector = "Unknown"
	}

	var promptBuf bytes.Buffer
	if err := s.tmpl.Execute(&promptBuf, promptData{
		Profile:     profile.PromptText(),
		Feedback:    model.FormatFeedbackHistory(likes, dislikes),
		Title:       job.Title,
		Company:     job.Company,
		Location:    job.Location,
		Sector:      sector,
		Description: truncate(job.Description, s.descriptionLimit),
	}); err != nil {
		return model.ScoreResult{}, fmt.Errorf("render prompt: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	raw, err := s.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return model.ScoreResult{}, fmt.Errorf("llm complete: %w", err)
	}

	result, err := parseScore(raw)
	if err != nil {
		return model.ScoreResult{}, fmt.Errorf("parse score: %w", err)
	}
	return result, nil
}

// Fallback is the neutral result recorded when analysis of a job fails.
func Fallback(cause error) model.ScoreResult {
	return model.ScoreResult{
		Score:      FallbackScore,
		Reasoning:  fallbackPrefix + cause.Error(),
		Highlights: []string{},
		Concerns:   []string{"Analysis error"},
	}
}

// ScoreBatch scores jobs one at a time and hands each result to apply before
// moving on, so progress survives an interrupted batch. It stops early on
// ctx cancellation or when apply fails.
func ScoreBatch(ctx context.Context, scorer model.RelevanceScorer, jobs []model.Job, profile model.Profile, likes, dislikes []model.FeedbackJob, apply func(model.Job, model.ScoreResult) error) error {
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("scoring batch: %w", err)
		}
		result := scorer.Score(ctx, job, profile, likes, dislikes)
		if err := apply(job, result); err != nil {
			return err
		}
	}
	return nil
}

// rawScore is the JSON shape returned by the LLM (matches relevanceSchema).
type rawScore struct {
	Score      *float64 `json:"score"`
	Reasoning  *string  `json:"reasoning"`
	Highlights []string `json:"highlights"`
	Concerns   []string `json:"concerns"`
}

// parseScore deserializes the LLM response. A surrounding markdown code
// fence is stripped. The score must be an integer in [0, 100] and a
// reasoning must be present; missing lists become empty.
func parseScore(raw string) (model.ScoreResult, error) {
	content := stripCodeFence(raw)
	if content == "" {
		return model.ScoreResult{}, errEmptyResponse
	}

	var rs rawScore
	if err := json.Unmarshal([]byte(content), &rs); err != nil {
		return model.ScoreResult{}, fmt.Errorf("unmarshal score JSON: %w", err)
	}
	if rs.Score == nil {
		return model.ScoreResult{}, fmt.Errorf("missing score")
	}
	if rs.Reasoning == nil {
		return model.ScoreResult{}, fmt.Errorf("missing reasoning")
	}
	score := *rs.Score
	if score != math.Trunc(score) {
		return model.ScoreResult{}, fmt.Errorf("score %v is not an integer", score)
	}
	if score < 0 || score > 100 {
		return model.ScoreResult{}, fmt.Errorf("score %v out of range [0, 100]", score)
	}

	result := model.ScoreResult{
		Score:      int(score),
		Reasoning:  strings.TrimSpace(*rs.Reasoning),
		Highlights: rs.Highlights,
		Concerns:   rs.Concerns,
	}
	if result.Highlights == nil {
		result.Highlights = []string{}
	}
	if result.Concerns == nil {
		result.Concerns = []string{}
	}
	return result, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the info string (e.g. "json") on the opening line.
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		if !strings.ContainsAny(s[:i], "{[") {
			s = s[i+1:]
		}
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// IsFallback reports whether r is a fallback result from a failed analysis.
func IsFallback(r model.ScoreResult) bool {
	return strings.HasPrefix(r.Reasoning, fallbackPrefix)
}
