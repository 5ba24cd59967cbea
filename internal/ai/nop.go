package ai

import (
	"context"

	"github.com/amishk599/jobagent/internal/model"
)

// NopScorer is used when ai.enabled is false. Jobs pass through analysis
// without an LLM call and without a score.
type NopScorer struct{}

// NewNopScorer returns a NopScorer.
func NewNopScorer() *NopScorer {
	return &NopScorer{}
}

// Score returns an unscored result.
func (n *NopScorer) Score(context.Context, model.Job, model.Profile, []model.FeedbackJob, []model.FeedbackJob) model.ScoreResult {
	return model.ScoreResult{
		Unscored:   true,
		Reasoning:  "analysis disabled",
		Highlights: []string{},
		Concerns:   []string{},
	}
}
