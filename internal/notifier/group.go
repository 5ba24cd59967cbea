package notifier

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/amishk599/jobagent/internal/model"
)

// StrongMatchScore is the score at which a job counts as a strong match.
const StrongMatchScore = 80

const otherSector = "Øvrige"

// sectorNames maps sector keys to display names, in display order.
var sectorNames = []struct{ key, name string }{
	{"konsulent", "Konsulent & Rådgivning"},
	{"offentlig", "Offentlig Sektor"},
	{"interesseorganisation", "Interesseorganisationer"},
	{"velgoerende", "Velgørende Organisationer"},
	{"virksomhed", "Private Virksomheder"},
}

// SectorName returns the display name for a sector key. Unknown keys are
// shown as-is; an empty key is "Øvrige".
func SectorName(sector string) string {
	sector = strings.TrimSpace(sector)
	if sector == "" {
		return otherSector
	}
	for _, s := range sectorNames {
		if s.key == sector {
			return s.name
		}
	}
	return sector
}

// sectorGroup is one heading of a digest.
type sectorGroup struct {
	Name string
	Jobs []model.Job
}

// groupBySector groups jobs under their sector display name. Known sectors
// come first in fixed order, then other sectors alphabetically, then
// "Øvrige". Within a group jobs are sorted by score, highest first.
func groupBySector(jobs []model.Job) []sectorGroup {
	byName := make(map[string][]model.Job)
	for _, j := range jobs {
		name := SectorName(j.Sector)
		byName[name] = append(byName[name], j)
	}

	rank := func(name string) int {
		for i, s := range sectorNames {
			if s.name == name {
				return i
			}
		}
		if name == otherSector {
			return len(sectorNames) + 1
		}
		return len(sectorNames)
	}

	groups := make([]sectorGroup, 0, len(byName))
	for name, js := range byName {
		slices.SortStableFunc(js, func(a, b model.Job) int {
			return cmp.Compare(b.Score(), a.Score())
		})
		groups = append(groups, sectorGroup{Name: name, Jobs: js})
	}
	slices.SortFunc(groups, func(a, b sectorGroup) int {
		if c := cmp.Compare(rank(a.Name), rank(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return groups
}

// strongMatches counts jobs scoring at least StrongMatchScore.
func strongMatches(jobs []model.Job) int {
	n := 0
	for _, j := range jobs {
		if j.Score() >= StrongMatchScore {
			n++
		}
	}
	return n
}

// digestSubject is the headline used for a digest of jobs.
func digestSubject(jobs []model.Job) string {
	if strong := strongMatches(jobs); strong > 0 {
		return fmt.Sprintf("🎯 %d nye jobs - %d stærke matches!", len(jobs), strong)
	}
	return fmt.Sprintf("📋 %d nye relevante jobopslag", len(jobs))
}

// testJob is the synthetic job sent by SendTestMessage.
func testJob(now time.Time) model.Job {
	score := 85
	return model.Job{
		ContentID:          "test-0000000000",
		Title:              "Test notification",
		Company:            "jobagent",
		Location:           "Danmark",
		Description:        "If you can read this, notifications are configured correctly.",
		URL:                "https://www.jobindex.dk",
		Source:             "test",
		Sector:             "offentlig",
		RelevanceScore:     &score,
		RelevanceReasoning: "Synthetic job used to verify the notification channel.",
		Highlights:         []string{"Integration verified"},
		ScrapedAt:          now,
	}
}
