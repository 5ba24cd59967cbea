package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobagent/internal/filter"
	"github.com/amishk599/jobagent/internal/model"
	"github.com/amishk599/jobagent/internal/ratelimit"
)

const workdayPageSize = 20

// Poster sends a JSON request body and returns the response body.
type Poster interface {
	Post(ctx context.Context, url string, payload []byte) ([]byte, error)
}

// workdayListingResponse is the response from the Workday jobs listing endpoint.
type workdayListingResponse struct {
	Total       int              `json:"total"`
	JobPostings []workdayListing `json:"jobPostings"`
}

type workdayListing struct {
	Title         string   `json:"title"`
	ExternalPath  string   `json:"externalPath"`
	LocationsText string   `json:"locationsText"`
	PostedOn      string   `json:"postedOn"`
	BulletFields  []string `json:"bulletFields"`
}

// workdayListingRequest is the POST body for the Workday jobs listing endpoint.
type workdayListingRequest struct {
	AppliedFacets map[string]any `json:"appliedFacets"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
	SearchText    string         `json:"searchText"`
}

// workdayDetailResponse is the response from the Workday job detail endpoint.
type workdayDetailResponse struct {
	JobPostingInfo workdayJobDetail `json:"jobPostingInfo"`
}

type workdayJobDetail struct {
	JobReqID            string   `json:"jobReqId"`
	Title               string   `json:"title"`
	Location            string   `json:"location"`
	PostedOn            string   `json:"postedOn"`
	StartDate           string   `json:"startDate"`
	ExternalURL         string   `json:"externalUrl"`
	JobDescription      string   `json:"jobDescription"`
	AdditionalLocations []string `json:"additionalLocations"`
}

// workdayCollector searches Workday career sites. Each Board.Token is the
// site's CXS endpoint, e.g.
// https://novonordisk.wd3.myworkdayjobs.com/wday/cxs/novonordisk/Novo_Nordisk.
// Listings come from a full-text POST search per term; descriptions need one
// detail GET per listing.
type workdayCollector struct {
	poster    Poster
	getter    model.PageGetter
	limiter   *ratelimit.Limiter
	sites     []Board
	locations *filter.TermFilter
	maxPages  int
	logger    *slog.Logger
}

// NewWorkdayCollector creates a Workday collector. limiter paces the listing
// POSTs and should be the one behind getter so that both share one budget.
func NewWorkdayCollector(poster Poster, getter model.PageGetter, limiter *ratelimit.Limiter, sites []Board, locations []string, maxPages int, logger *slog.Logger) model.SourceCollector {
	if maxPages <= 0 {
		maxPages = 5
	}
	return &workdayCollector{
		poster:    poster,
		getter:    getter,
		limiter:   limiter,
		sites:     sites,
		locations: filter.NewTermFilter(nil, nil, locations, nil),
		maxPages:  maxPages,
		logger:    logger,
	}
}

func (c *workdayCollector) Name() string { return "workday" }

func (c *workdayCollector) Collect(ctx context.Context, terms []string) iter.Seq2[model.RawPosting, error] {
	return func(yield func(model.RawPosting, error) bool) {
		queries := newQueryLog(c.Name(), c.logger)

		for _, site := range c.sites {
			base := strings.TrimRight(site.Token, "/")
			seen := make(map[string]bool)

			for _, term := range terms {
				if err := cancelled(ctx, c.Name()); err != nil {
					yield(model.RawPosting{}, err)
					return
				}

				queries.attempt()
				listings, err := c.search(ctx, base, term)
				if err != nil {
					queries.fail(site.Name+"/"+term, err)
					continue
				}

				for _, l := range listings {
					if l.ExternalPath == "" || seen[l.ExternalPath] {
						continue
					}
					seen[l.ExternalPath] = true
					if !c.listingPassesPreFilter(l) {
						continue
					}
					if !yield(c.posting(ctx, base, site, l), nil) {
						return
					}
				}
			}
		}

		if err := queries.err(); err != nil {
			yield(model.RawPosting{}, err)
		}
	}
}

// search pages through the listing results for one term. Paging stops at
// maxPages, at the reported total, or after a page made up entirely of stale
// listings; Workday sorts by recency, so later pages would be staler still.
func (c *workdayCollector) search(ctx context.Context, base, term string) ([]workdayListing, error) {
	var all []workdayListing
	for page := 0; page < c.maxPages; page++ {
		payload, err := json.Marshal(workdayListingRequest{
			AppliedFacets: map[string]any{},
			Limit:         workdayPageSize,
			Offset:        page * workdayPageSize,
			SearchText:    term,
		})
		if err != nil {
			return nil, fmt.Errorf("workday listing marshal: %w", err)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		body, err := c.poster.Post(ctx, base+"/jobs", payload)
		if err != nil {
			return nil, fmt.Errorf("workday listing fetch: %w", err)
		}

		var resp workdayListingResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("workday listing decode: %w", err)
		}

		fresh := 0
		for _, l := range resp.JobPostings {
			if isStalePosting(l.PostedOn) {
				continue
			}
			fresh++
			all = append(all, l)
		}

		if len(resp.JobPostings) == 0 || fresh == 0 {
			break
		}
		if (page+1)*workdayPageSize >= resp.Total {
			break
		}
	}
	return all, nil
}

// posting builds a RawPosting from a listing, enriched by its detail page.
// A failed detail fetch keeps the listing-level data.
func (c *workdayCollector) posting(ctx context.Context, base string, site Board, l workdayListing) model.RawPosting {
	p := model.RawPosting{
		Title:    l.Title,
		Company:  site.Name,
		Location: l.LocationsText,
		URL:      workdayPublicURL(base, l.ExternalPath),
		Source:   c.Name(),
		Sector:   site.Sector,
		PostedAt: parsePostedOn(l.PostedOn),
	}

	detailURL := base + "/" + strings.TrimPrefix(l.ExternalPath, "/")
	body, err := c.getter.Get(ctx, detailURL)
	if err != nil {
		c.logger.Warn("detail fetch failed, keeping listing data", "source", c.Name(), "url", detailURL, "error", err)
		return p
	}

	var detail workdayDetailResponse
	if err := json.Unmarshal(body, &detail); err != nil {
		c.logger.Warn("detail decode failed, keeping listing data", "source", c.Name(), "url", detailURL, "error", err)
		return p
	}
	info := detail.JobPostingInfo

	// Title and URL stay as listed so the identity of a posting never depends
	// on whether its detail fetch succeeded.
	if info.Location != "" {
		p.Location = info.Location
		if len(info.AdditionalLocations) > 0 {
			p.Location += "; " + strings.Join(info.AdditionalLocations, "; ")
		}
	}
	p.Description = extractText(info.JobDescription)

	// startDate ("2006-01-02") is exact; postedOn is relative.
	if info.StartDate != "" {
		if t, err := time.Parse("2006-01-02", info.StartDate); err == nil {
			p.PostedAt = &t
		}
	}
	return p
}

var ambiguousLocationRegex = regexp.MustCompile(`^\d+ Locations?$`)

// listingPassesPreFilter checks a listing's location before its detail is
// fetched. Ambiguous values like "2 Locations" always pass; the real
// locations are only known from the detail page.
func (c *workdayCollector) listingPassesPreFilter(l workdayListing) bool {
	if isAmbiguousLocation(l.LocationsText) {
		return true
	}
	return c.locations.Match(model.RawPosting{Title: l.Title, Location: l.LocationsText})
}

// isAmbiguousLocation returns true for Workday location strings like
// "2 Locations" or "5 Locations" where the actual location is unknown.
func isAmbiguousLocation(loc string) bool {
	return ambiguousLocationRegex.MatchString(loc)
}

// isStalePosting reports listings Workday marks as older than a month.
func isStalePosting(postedOn string) bool {
	return postedOn == "Posted 30+ Days Ago"
}

// workdayPublicURL turns a CXS endpoint plus an external path into the
// candidate-facing page: .../wday/cxs/{tenant}/{site} + /job/x becomes
// https://{host}/{site}/job/x.
func workdayPublicURL(base, externalPath string) string {
	path := "/" + strings.TrimPrefix(externalPath, "/")
	u, err := url.Parse(base)
	if err != nil {
		return base + path
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 4 && parts[0] == "wday" && parts[1] == "cxs" {
		return fmt.Sprintf("%s://%s/%s%s", u.Scheme, u.Host, parts[3], path)
	}
	return base + path
}

var daysAgoRegex = regexp.MustCompile(`^Posted (\d+) Days? Ago$`)

// parsePostedOn converts a Workday relative date string to an approximate timestamp.
func parsePostedOn(postedOn string) *time.Time {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch postedOn {
	case "Posted Today":
		return &today
	case "Posted Yesterday":
		t := today.AddDate(0, 0, -1)
		return &t
	}

	if n, ok := parseDaysAgo(postedOn); ok {
		t := today.AddDate(0, 0, -n)
		return &t
	}

	// "Posted 30+ Days Ago" or unknown
	return nil
}

func parseDaysAgo(s string) (int, bool) {
	matches := daysAgoRegex.FindStringSubmatch(s)
	if matches == nil {
		return 0, false
	}
	n, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
