// Package canon turns raw postings into canonical jobs with a stable content
// identity.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/amishk599/jobagent/internal/model"
)

// Unknown is the sentinel stored (and hashed) for a missing company or location.
const Unknown = "Unknown"

// Canonicalize normalizes a raw posting into a Job and computes its ContentID.
// It is pure: no I/O and no clock. Lifecycle fields are left for the store.
func Canonicalize(p model.RawPosting) model.Job {
	job := model.Job{
		Title:       strings.TrimSpace(p.Title),
		Company:     orUnknown(p.Company),
		Location:    orUnknown(p.Location),
		Description: collapse(p.Description),
		URL:         strings.TrimSpace(p.URL),
		Source:      strings.TrimSpace(p.Source),
		Sector:      strings.TrimSpace(p.Sector),
		Deadline:    strings.TrimSpace(p.Deadline),
		Salary:      strings.TrimSpace(p.Salary),
		PostedAt:    p.PostedAt,
	}
	job.ContentID = ContentID(job.Title, job.Company, job.URL, job.Location)
	return job
}

// ContentID returns the 16-hex-char SHA-256 identity of a posting. The third
// component is the URL, or the location when the source has no stable URL.
// Each component is lower-cased, trimmed and whitespace-collapsed first.
func ContentID(title, company, url, location string) string {
	third := normalize(url)
	if third == "" {
		third = normalize(orUnknown(location))
	}
	key := normalize(title) + "|" + normalize(orUnknown(company)) + "|" + third
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

func normalize(s string) string {
	return strings.ToLower(collapse(s))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func orUnknown(s string) string {
	s = collapse(s)
	if s == "" {
		return Unknown
	}
	return s
}
