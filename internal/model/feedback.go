package model

import (
	"fmt"
	"strings"
	"time"
)

// FeedbackKind is the user's verdict on a job.
type FeedbackKind string

const (
	FeedbackLike    FeedbackKind = "like"
	FeedbackDislike FeedbackKind = "dislike"
)

// ParseFeedbackKind accepts "like"/"dislike" in any case.
func ParseFeedbackKind(s string) (FeedbackKind, error) {
	switch FeedbackKind(strings.ToLower(strings.TrimSpace(s))) {
	case FeedbackLike:
		return FeedbackLike, nil
	case FeedbackDislike:
		return FeedbackDislike, nil
	}
	return "", fmt.Errorf("unknown feedback kind %q (want like or dislike)", s)
}

// Feedback is an append-only verdict referencing a job by identity.
type Feedback struct {
	ContentID string
	Kind      FeedbackKind
	Comment   string
	CreatedAt time.Time
}

// FeedbackJob is the slice of a job that feedback history exposes to scoring.
type FeedbackJob struct {
	Title   string
	Company string
	Sector  string
}

// FormatFeedbackHistory renders liked/disliked jobs for inclusion in a prompt.
func FormatFeedbackHistory(likes, dislikes []FeedbackJob) string {
	if len(likes) == 0 && len(dislikes) == 0 {
		return "No feedback history yet."
	}

	var sections []string
	if len(likes) > 0 {
		sections = append(sections, "### Jobs the candidate LIKED:\n"+feedbackLines(likes))
	}
	if len(dislikes) > 0 {
		sections = append(sections, "### Jobs the candidate DISLIKED:\n"+feedbackLines(dislikes))
	}
	return strings.Join(sections, "\n")
}

func feedbackLines(jobs []FeedbackJob) string {
	var b strings.Builder
	for _, j := range jobs {
		sector := j.Sector
		if sector == "" {
			sector = "unknown sector"
		}
		fmt.Fprintf(&b, "- %s at %s (%s)\n", j.Title, j.Company, sector)
	}
	return b.String()
}
