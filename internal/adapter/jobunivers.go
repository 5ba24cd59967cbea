package adapter

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/amishk599/jobagent/internal/model"
	"github.com/amishk599/jobagent/internal/ratelimit"
)

const (
	jobuniversBaseURL = "https://www.jobunivers.dk"
	// detailDescriptionLimit bounds descriptions pulled from detail pages.
	detailDescriptionLimit = 2000
)

// JobuniversCollector searches JobUnivers.dk (Djøf's job board), one listing
// page per (term × location), and optionally follows each posting to its
// detail page for the full description.
type JobuniversCollector struct {
	limiter      *ratelimit.Limiter
	locations    []string
	timeout      time.Duration
	fetchDetails bool
	userAgent    string
	baseURL      string
	logger       *slog.Logger
}

// NewJobuniversCollector creates a collector. Every request, detail pages
// included, waits on limiter.
func NewJobuniversCollector(limiter *ratelimit.Limiter, locations []string, timeout time.Duration, fetchDetails bool, logger *slog.Logger) *JobuniversCollector {
	return &JobuniversCollector{
		limiter:      limiter,
		locations:    locations,
		timeout:      timeout,
		fetchDetails: fetchDetails,
		userAgent:    DefaultUserAgent,
		baseURL:      jobuniversBaseURL,
		logger:       logger,
	}
}

func (c *JobuniversCollector) Name() string { return "jobunivers" }

// Collect yields postings for every (term × location) pair.
func (c *JobuniversCollector) Collect(ctx context.Context, terms []string) iter.Seq2[model.RawPosting, error] {
	return func(yield func(model.RawPosting, error) bool) {
		queries := newQueryLog(c.Name(), c.logger)
		descriptions := make(map[string]string)
		locations := c.locations
		if len(locations) == 0 {
			locations = []string{""}
		}

		for _, term := range terms {
			for _, location := range locations {
				if err := cancelled(ctx, c.Name()); err != nil {
					yield(model.RawPosting{}, err)
					return
				}

				listURL := c.searchURL(term, location)
				queries.attempt()
				postings, err := c.scrapeListing(ctx, listURL, location)
				if err != nil {
					if cerr := cancelled(ctx, c.Name()); cerr != nil {
						yield(model.RawPosting{}, cerr)
						return
					}
					queries.fail(listURL, err)
					continue
				}
				c.logger.Debug("listing page parsed", "source", c.Name(), "term", term, "location", location, "postings", len(postings))

				for _, p := range postings {
					if c.fetchDetails {
						desc, ok := descriptions[p.URL]
						if !ok {
							desc, err = c.scrapeDetail(ctx, p.URL)
							if err != nil {
								c.logger.Warn("detail fetch failed", "source", c.Name(), "url", p.URL, "error", err)
							}
							descriptions[p.URL] = desc
						}
						if desc != "" {
							p.Description = desc
						}
					}
					if !yield(p, nil) {
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

func (c *JobuniversCollector) searchURL(term, location string) string {
	q := url.Values{}
	q.Set("LedigStilling", term)
	if location != "" {
		q.Set("LedigStillingLokation", location)
	}
	return c.baseURL + "/job/?" + q.Encode()
}

// newCollector returns a colly collector that paces every request through
// the source limiter and aborts once ctx is done.
func (c *JobuniversCollector) newCollector(ctx context.Context) (*colly.Collector, *error) {
	col := colly.NewCollector(colly.UserAgent(c.userAgent))
	col.SetRequestTimeout(c.timeout)

	var reqErr error
	col.OnRequest(func(r *colly.Request) {
		if err := c.limiter.Wait(ctx); err != nil {
			reqErr = err
			r.Abort()
			return
		}
		r.Headers.Set("Accept-Language", "da-DK,da;q=0.9")
	})
	col.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			reqErr = &model.HTTPError{StatusCode: r.StatusCode, Err: err}
			return
		}
		reqErr = err
	})
	return col, &reqErr
}

func (c *JobuniversCollector) scrapeListing(ctx context.Context, listURL, location string) ([]model.RawPosting, error) {
	col, reqErr := c.newCollector(ctx)

	var postings []model.RawPosting
	col.OnHTML("html", func(e *colly.HTMLElement) {
		postings = c.parseListing(e.DOM, e.Request.URL.String(), location)
	})

	if err := col.Visit(listURL); err != nil && *reqErr == nil {
		return nil, fmt.Errorf("visit %s: %w", listURL, err)
	}
	col.Wait()
	if *reqErr != nil {
		return nil, fmt.Errorf("visit %s: %w", listURL, *reqErr)
	}
	return postings, nil
}

func (c *JobuniversCollector) scrapeDetail(ctx context.Context, detailURL string) (string, error) {
	col, reqErr := c.newCollector(ctx)

	var description string
	col.OnHTML("body", func(e *colly.HTMLElement) {
		description = truncateRunes(textOf(e.DOM, "[class*='description'], [class*='content'], [class*='text'], [class*='body']"), detailDescriptionLimit)
	})

	if err := col.Visit(detailURL); err != nil && *reqErr == nil {
		return "", fmt.Errorf("visit %s: %w", detailURL, err)
	}
	col.Wait()
	if *reqErr != nil {
		return "", fmt.Errorf("visit %s: %w", detailURL, *reqErr)
	}
	return description, nil
}

func (c *JobuniversCollector) parseListing(root *goquery.Selection, pageURL, location string) []model.RawPosting {
	cards := root.Find("div.LedigStilling, article.job-listing, div.job-item")
	if cards.Length() == 0 {
		cards = root.Find("a[href*='/job/?job=']").Closest("div, article, li")
	}

	var out []model.RawPosting
	cards.Each(func(i int, card *goquery.Selection) {
		p, ok := c.parseCard(card, pageURL, location)
		if !ok {
			c.logger.Debug("skipping unparseable card", "source", c.Name(), "url", pageURL, "index", i)
			return
		}
		out = append(out, p)
	})
	return out
}

func (c *JobuniversCollector) parseCard(card *goquery.Selection, pageURL, location string) (model.RawPosting, bool) {
	titleSel := card.Find("h2[class*='title'], h3[class*='title'], a[class*='title'], h2[class*='heading'], h3[class*='heading']").First()
	if titleSel.Length() == 0 {
		titleSel = card.Find("a[href*='/job/?job=']").First()
	}
	title := cleanText(titleSel.Text())
	if len([]rune(title)) < 5 {
		return model.RawPosting{}, false
	}

	href, ok := card.Find("a[href*='/job/']").First().Attr("href")
	if !ok || href == "" {
		return model.RawPosting{}, false
	}

	if loc := textOf(card, "[class*='location'], [class*='lokation'], [class*='sted']"); loc != "" {
		location = loc
	}

	return model.RawPosting{
		Title:    title,
		Company:  textOf(card, "[class*='company'], [class*='employer'], [class*='virksomhed']"),
		Location: location,
		URL:      absoluteURL(pageURL, href),
		Source:   c.Name(),
		Deadline: textOf(card, "[class*='deadline'], [class*='date'], [class*='dato']"),
	}, true
}
