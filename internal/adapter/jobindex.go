package adapter

import (
	"context"
	"iter"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobagent/internal/model"
)

const (
	jobindexBaseURL = "https://www.jobindex.dk"
	// jobindexPageSize is the number of results on a full listing page; a
	// shorter page is the last one.
	jobindexPageSize = 20
)

// JobindexCollector searches Jobindex.dk for full-time positions, once per
// (term × region), following result pages.
type JobindexCollector struct {
	getter   model.PageGetter
	regions  []string // Jobindex subid values; empty means nationwide
	maxPages int
	baseURL  string
	logger   *slog.Logger
}

// NewJobindexCollector creates a collector. getter should already carry the
// source's rate limiter.
func NewJobindexCollector(getter model.PageGetter, regions []string, maxPages int, logger *slog.Logger) *JobindexCollector {
	if maxPages <= 0 {
		maxPages = 10
	}
	return &JobindexCollector{
		getter:   getter,
		regions:  regions,
		maxPages: maxPages,
		baseURL:  jobindexBaseURL,
		logger:   logger,
	}
}

func (c *JobindexCollector) Name() string { return "jobindex" }

// Collect yields postings for every term in every configured region.
func (c *JobindexCollector) Collect(ctx context.Context, terms []string) iter.Seq2[model.RawPosting, error] {
	return func(yield func(model.RawPosting, error) bool) {
		queries := newQueryLog(c.Name(), c.logger)
		regions := c.regions
		if len(regions) == 0 {
			regions = []string{""}
		}

		for _, term := range terms {
			for _, region := range regions {
				for page := 1; page <= c.maxPages; page++ {
					if err := cancelled(ctx, c.Name()); err != nil {
						yield(model.RawPosting{}, err)
						return
					}

					pageURL := c.searchURL(term, region, page)
					queries.attempt()
					body, err := c.getter.Get(ctx, pageURL)
					if err != nil {
						queries.fail(pageURL, err)
						break
					}
					doc, err := parseDocument(body)
					if err != nil {
						queries.fail(pageURL, err)
						break
					}

					postings := c.parseListing(doc, pageURL)
					c.logger.Debug("listing page parsed", "source", c.Name(), "term", term, "region", region, "page", page, "postings", len(postings))
					for _, p := range postings {
						if !yield(p, nil) {
							return
						}
					}
					if len(postings) < jobindexPageSize {
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

func (c *JobindexCollector) searchURL(term, region string, page int) string {
	q := url.Values{}
	q.Set("q", term)
	q.Set("jobtypes", "1") // full-time
	if region != "" {
		q.Set("subid", region)
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return c.baseURL + "/jobsoegning?" + q.Encode()
}

func (c *JobindexCollector) parseListing(doc *goquery.Document, pageURL string) []model.RawPosting {
	cards := doc.Find("div.PaidJob, div.jobsearch-result, article.jix_robotjob")
	if cards.Length() == 0 {
		cards = doc.Find("[id^='jobad-wrapper-']")
	}

	var out []model.RawPosting
	cards.Each(func(i int, card *goquery.Selection) {
		p, ok := c.parseCard(card)
		if !ok {
			c.logger.Debug("skipping unparseable card", "source", c.Name(), "url", pageURL, "index", i)
			return
		}
		out = append(out, p)
	})
	return out
}

func (c *JobindexCollector) parseCard(card *goquery.Selection) (model.RawPosting, bool) {
	link := card.Find("h4 a, a.PaidJob-inner, .jix-toolbar-top__title a").First()
	if link.Length() == 0 {
		link = card.Find("a[href*='/jobannonce/'], a[href*='candidate.hr-manager']").First()
	}
	title := cleanText(link.Text())
	href, _ := link.Attr("href")
	if len([]rune(title)) < 5 || href == "" {
		return model.RawPosting{}, false
	}

	deadline := ""
	if tm := card.Find("time[datetime]").First(); tm.Length() > 0 {
		deadline, _ = tm.Attr("datetime")
		if deadline == "" {
			deadline = cleanText(tm.Text())
		}
	} else {
		deadline = textOf(card, ".jix-toolbar__pubdate, .PaidJob-date")
	}

	return model.RawPosting{
		Title:       title,
		Company:     textOf(card, ".jix-toolbar-top__company a, p.PaidJob-company, .jix_robotjob--company, a[href*='/telefonbog/']"),
		Location:    textOf(card, "span.jix_robotjob--area, .jobad-element-area span, p.PaidJob-location"),
		Description: textOf(card, ".PaidJob-inner p, .jix_robotjob--text, .jobsearch-result__description"),
		URL:         absoluteURL(c.baseURL, href),
		Source:      c.Name(),
		Deadline:    deadline,
	}, true
}
