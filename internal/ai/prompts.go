package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/relevance.md
var relevancePromptRaw string

// RelevanceTemplate is the parsed prompt template for relevance scoring.
// Parsed once at package init; reused on every Score call.
var RelevanceTemplate = template.Must(template.New("relevance").Parse(relevancePromptRaw))

// promptData is the input to RelevanceTemplate.
type promptData struct {
	Profile     string
	Feedback    string
	Title       string
	Company     string
	Location    string
	Sector      string
	Description string
}
