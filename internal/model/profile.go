package model

import (
	"fmt"
	"strings"
)

// Profile describes the candidate that jobs are scored against.
type Profile struct {
	Name        string   `yaml:"name"`
	Location    string   `yaml:"location"`
	Education   string   `yaml:"education"`
	Experience  string   `yaml:"experience"`
	Skills      string   `yaml:"skills"`
	Preferences string   `yaml:"preferences"`
	TargetRoles []string `yaml:"target_roles"`
	Avoid       []string `yaml:"avoid"`
}

// PromptText renders the profile as a markdown section for the scoring prompt.
// Empty fields are omitted.
func (p Profile) PromptText() string {
	var b strings.Builder
	b.WriteString("## Candidate Profile\n")
	if p.Name != "" {
		fmt.Fprintf(&b, "\n**Name:** %s\n", p.Name)
	}
	if p.Location != "" {
		fmt.Fprintf(&b, "**Location:** %s\n", p.Location)
	}
	section(&b, "Education", p.Education)
	section(&b, "Experience", p.Experience)
	section(&b, "Skills", p.Skills)
	section(&b, "Preferences", p.Preferences)
	list(&b, "Target Roles", p.TargetRoles)
	list(&b, "Not Interested In", p.Avoid)
	return b.String()
}

func section(b *strings.Builder, heading, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	fmt.Fprintf(b, "\n### %s\n%s\n", heading, body)
}

func list(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n### %s\n", heading)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
}
