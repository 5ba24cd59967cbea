// Package dedup collapses a batch of canonical jobs to unique identities.
package dedup

import "github.com/amishk599/jobagent/internal/model"

// Dedup returns jobs unique by ContentID, keeping the first occurrence and the
// input order. The input slice is not modified.
func Dedup(jobs []model.Job) []model.Job {
	seen := make(map[string]struct{}, len(jobs))
	out := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		if _, ok := seen[j.ContentID]; ok {
			continue
		}
		seen[j.ContentID] = struct{}{}
		out = append(out, j)
	}
	return out
}
