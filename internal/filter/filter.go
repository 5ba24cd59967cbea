package filter

import (
	"strings"

	"github.com/amishk599/jobagent/internal/model"
)

// TermFilter matches postings whose title or description contains any search
// term and whose location contains any location keyword, unless the title or
// location hits an exclusion. Matching is case-insensitive and Unicode-aware.
// Empty include lists are treated as "match all".
type TermFilter struct {
	terms            []string
	excludeTitle     []string
	locations        []string
	excludeLocations []string
}

// NewTermFilter returns a filter over search terms and location keywords
// with optional title and location exclusions.
func NewTermFilter(terms, excludeTitle, locations, excludeLocations []string) *TermFilter {
	return &TermFilter{
		terms:            lowerAll(terms),
		excludeTitle:     lowerAll(excludeTitle),
		locations:        lowerAll(locations),
		excludeLocations: lowerAll(excludeLocations),
	}
}

// Match reports whether the posting passes the filter. A posting with no
// location passes the location check; its location is unknown, not foreign.
func (f *TermFilter) Match(p model.RawPosting) bool {
	title := strings.ToLower(p.Title)
	location := strings.ToLower(p.Location)

	if containsAny(title, f.excludeTitle) {
		return false
	}
	if len(f.terms) > 0 && !containsAny(title, f.terms) && !containsAny(strings.ToLower(p.Description), f.terms) {
		return false
	}

	if location == "" {
		return true
	}
	if containsAny(location, f.excludeLocations) {
		return false
	}
	if len(f.locations) > 0 && !containsAny(location, f.locations) {
		return false
	}
	return true
}

// KeywordMatcher reports whether any of a fixed set of keywords occurs in a
// piece of text, ignoring case. Danish letters (æ, ø, å) fold like ASCII.
type KeywordMatcher struct {
	keywords []string
}

// NewKeywordMatcher returns a matcher for the given keywords. Blank keywords
// are dropped.
func NewKeywordMatcher(keywords []string) *KeywordMatcher {
	kws := make([]string, 0, len(keywords))
	for _, kw := range lowerAll(keywords) {
		if kw != "" {
			kws = append(kws, kw)
		}
	}
	return &KeywordMatcher{keywords: kws}
}

// Match returns the first keyword found in any of texts, and whether one was.
func (m *KeywordMatcher) Match(texts ...string) (string, bool) {
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, kw := range m.keywords {
			if strings.Contains(lower, kw) {
				return kw, true
			}
		}
	}
	return "", false
}

// Keywords returns the normalized keyword list.
func (m *KeywordMatcher) Keywords() []string {
	return m.keywords
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
