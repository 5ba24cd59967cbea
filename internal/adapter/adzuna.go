package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/amishk599/jobagent/internal/model"
)

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50
)

// adzunaResponse mirrors the top-level Adzuna JSON response.
type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

// adzunaResult mirrors a single Adzuna job listing.
type adzunaResult struct {
	ID          json.Number    `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Company     adzunaName     `json:"company"`
	Location    adzunaName     `json:"location"`
	SalaryMin   float64        `json:"salary_min"`
	SalaryMax   float64        `json:"salary_max"`
	RedirectURL string         `json:"redirect_url"`
	Created     string         `json:"created"`
	Category    adzunaCategory `json:"category"`
}

type adzunaName struct {
	DisplayName string `json:"display_name"`
}

type adzunaCategory struct {
	Label string `json:"label"`
}

// AdzunaCollector queries the Adzuna search API for every (term × location).
// Without credentials it yields nothing and logs a warning.
type AdzunaCollector struct {
	getter    model.PageGetter
	appID     string
	appKey    string
	country   string
	locations []string
	maxPages  int
	baseURL   string
	logger    *slog.Logger
}

// NewAdzunaCollector creates a collector for one Adzuna country index
// ("dk", "gb", ...).
func NewAdzunaCollector(getter model.PageGetter, appID, appKey, country string, locations []string, maxPages int, logger *slog.Logger) *AdzunaCollector {
	if country == "" {
		country = "dk"
	}
	if maxPages <= 0 {
		maxPages = 3
	}
	return &AdzunaCollector{
		getter:    getter,
		appID:     appID,
		appKey:    appKey,
		country:   country,
		locations: locations,
		maxPages:  maxPages,
		baseURL:   adzunaBaseURL,
		logger:    logger,
	}
}

func (c *AdzunaCollector) Name() string { return "adzuna" }

// Collect pages through results until a short page, an empty page, or
// maxPages.
func (c *AdzunaCollector) Collect(ctx context.Context, terms []string) iter.Seq2[model.RawPosting, error] {
	return func(yield func(model.RawPosting, error) bool) {
		if c.appID == "" || c.appKey == "" {
			c.logger.Warn("adzuna credentials not set, skipping source", "source", c.Name())
			return
		}

		queries := newQueryLog(c.Name(), c.logger)
		locations := c.locations
		if len(locations) == 0 {
			locations = []string{""}
		}

		for _, term := range terms {
			for _, location := range locations {
				for page := 1; page <= c.maxPages; page++ {
					if err := cancelled(ctx, c.Name()); err != nil {
						yield(model.RawPosting{}, err)
						return
					}

					queries.attempt()
					results, err := c.fetchPage(ctx, term, location, page)
					if err != nil {
						queries.fail(fmt.Sprintf("%s@%s page %d", term, location, page), err)
						break
					}
					for _, r := range results {
						if !yield(c.toPosting(r), nil) {
							return
						}
					}
					if len(results) < adzunaPageSize {
						break
					}
				}
			}
		}

		if err := queries.err(); err != nil {
			yield(model.RawPosting{}, err)
		}
	}
}

func (c *AdzunaCollector) pageURL(term, location string, page int) string {
	params := url.Values{}
	params.Set("app_id", c.appID)
	params.Set("app_key", c.appKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", term)
	if location != "" {
		params.Set("where", location)
	}
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")
	return fmt.Sprintf("%s/%s/search/%d?%s", c.baseURL, c.country, page, params.Encode())
}

func (c *AdzunaCollector) fetchPage(ctx context.Context, term, location string, page int) ([]adzunaResult, error) {
	body, err := c.getter.Get(ctx, c.pageURL(term, location, page))
	if err != nil {
		return nil, err
	}
	var resp adzunaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode adzuna page %d: %w", page, err)
	}
	return resp.Results, nil
}

func (c *AdzunaCollector) toPosting(r adzunaResult) model.RawPosting {
	p := model.RawPosting{
		Title:       extractText(r.Title),
		Company:     r.Company.DisplayName,
		Location:    r.Location.DisplayName,
		Description: extractText(r.Description),
		URL:         adzunaPostingURL(r),
		Source:      c.Name(),
		Salary:      formatSalary(r.SalaryMin, r.SalaryMax),
	}
	if r.Created != "" {
		if t, err := time.Parse(time.RFC3339, r.Created); err == nil {
			p.PostedAt = &t
		}
	}
	return p
}

// adzunaPostingURL returns a stable URL for a result. redirect_url carries
// per-request tracking parameters, so the ad id is used on the redirect's
// host when present; otherwise the redirect loses its query.
func adzunaPostingURL(r adzunaResult) string {
	u, err := url.Parse(r.RedirectURL)
	if err != nil || u.Host == "" {
		return r.RedirectURL
	}
	if id := r.ID.String(); id != "" {
		return fmt.Sprintf("%s://%s/details/%s", u.Scheme, u.Host, url.PathEscape(id))
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func formatSalary(lo, hi float64) string {
	switch {
	case lo > 0 && hi > 0 && hi != lo:
		return fmt.Sprintf("%.0f-%.0f", lo, hi)
	case lo > 0:
		return fmt.Sprintf("%.0f", lo)
	case hi > 0:
		return fmt.Sprintf("%.0f", hi)
	default:
		return ""
	}
}
