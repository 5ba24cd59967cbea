// Package digest decides which analyzed jobs go into the next notification.
package digest

import (
	"github.com/amishk599/jobagent/internal/filter"
	"github.com/amishk599/jobagent/internal/model"
)

// DefaultMinRelevance is the score at or above which a job is included.
const DefaultMinRelevance = 60

// DefaultOverrideKeywords pull a job into the digest regardless of score.
var DefaultOverrideKeywords = []string{
	"cand.scient.pol",
	"statskundskab",
	"ac-fuldmægtig",
	"akademisk fuldmægtig",
	"ac fuldmægtig",
}

// Policy includes a job when its score reaches MinRelevance or its title or
// description mentions an override keyword. Jobs analyzed without a score
// (analysis disabled) have only passed the search filter, so they are all
// included.
type Policy struct {
	minRelevance int
	overrides    *filter.KeywordMatcher
}

var _ model.DigestPolicy = (*Policy)(nil)

// NewPolicy builds a selection policy. A nil keywords slice uses
// DefaultOverrideKeywords; an empty non-nil slice disables overrides.
func NewPolicy(minRelevance int, keywords []string) *Policy {
	if keywords == nil {
		keywords = DefaultOverrideKeywords
	}
	return &Policy{
		minRelevance: minRelevance,
		overrides:    filter.NewKeywordMatcher(keywords),
	}
}

// Include reports whether job belongs in the digest. Unanalyzed jobs never do.
func (p *Policy) Include(job model.Job) bool {
	if job.State() == model.StateScraped {
		return false
	}
	if !job.Scored() {
		return true
	}
	if *job.RelevanceScore >= p.minRelevance {
		return true
	}
	_, ok := p.overrides.Match(job.Title, job.Description)
	return ok
}

// MinRelevance returns the score threshold.
func (p *Policy) MinRelevance() int {
	return p.minRelevance
}
