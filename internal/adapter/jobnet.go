package adapter

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobagent/internal/model"
)

const (
	jobnetBaseURL = "https://job.jobnet.dk"

	jobnetDefaultCompany  = "Offentlig arbejdsgiver"
	jobnetDefaultLocation = "Danmark"
)

// JobnetCollector searches Jobnet.dk, the public employment portal. Listings
// are rendered client-side, so in production the getter is usually a
// BrowserGetter.
type JobnetCollector struct {
	getter   model.PageGetter
	maxPages int
	pageSize int
	baseURL  string
	logger   *slog.Logger
}

// NewJobnetCollector creates a collector. pageSize is the number of results
// on a full page; fewer means the last page.
func NewJobnetCollector(getter model.PageGetter, maxPages, pageSize int, logger *slog.Logger) *JobnetCollector {
	if maxPages <= 0 {
		maxPages = 3
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return &JobnetCollector{
		getter:   getter,
		maxPages: maxPages,
		pageSize: pageSize,
		baseURL:  jobnetBaseURL,
		logger:   logger,
	}
}

func (c *JobnetCollector) Name() string { return "jobnet" }

// Collect yields postings for every term, following result pages.
func (c *JobnetCollector) Collect(ctx context.Context, terms []string) iter.Seq2[model.RawPosting, error] {
	return func(yield func(model.RawPosting, error) bool) {
		queries := newQueryLog(c.Name(), c.logger)

		for _, term := range terms {
			for page := 1; page <= c.maxPages; page++ {
				if err := cancelled(ctx, c.Name()); err != nil {
					yield(model.RawPosting{}, err)
					return
				}

				pageURL := c.searchURL(term, page)
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
				c.logger.Debug("listing page parsed", "source", c.Name(), "term", term, "page", page, "postings", len(postings))
				for _, p := range postings {
					if !yield(p, nil) {
						return
					}
				}
				if len(postings) < c.pageSize {
					break
				}
			}
		}

		if err := queries.err(); err != nil {
			yield(model.RawPosting{}, err)
		}
	}
}

func (c *JobnetCollector) searchURL(term string, page int) string {
	q := url.Values{}
	q.Set("SearchString", term)
	q.Set("Page", strconv.Itoa(page))
	return c.baseURL + "/CV/FindWork/SearchResult.aspx?" + q.Encode()
}

func (c *JobnetCollector) parseListing(doc *goquery.Document, pageURL string) []model.RawPosting {
	cards := doc.Find("div.job-item, article.job-card, div.search-result-item, tr.result-row")
	if cards.Length() == 0 {
		cards = doc.Find("div[class*='job'], div[class*='result']")
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

func (c *JobnetCollector) parseCard(card *goquery.Selection) (model.RawPosting, bool) {
	link := card.Find("a[href*='job'], h2 a, h3 a, .job-title a").First()
	if link.Length() == 0 {
		link = card.Find("a").First()
	}
	title := cleanText(link.Text())
	href, _ := link.Attr("href")
	if len([]rune(title)) < 3 || href == "" {
		return model.RawPosting{}, false
	}

	company := textOf(card, ".company, .employer, .job-company, [class*='company'], [class*='employer']")
	if company == "" {
		company = jobnetDefaultCompany
	}
	location := textOf(card, ".location, .job-location, [class*='location'], [class*='area']")
	if location == "" {
		location = jobnetDefaultLocation
	}

	deadline := textOf(card, ".deadline, .job-deadline, [class*='deadline'], [class*='date']")
	if d, ok := parseDanishDate(deadline); ok {
		deadline = d
	}

	return model.RawPosting{
		Title:       title,
		Company:     company,
		Location:    location,
		Description: textOf(card, ".description, .job-description, .excerpt, p"),
		URL:         absoluteURL(c.baseURL, href),
		Source:      c.Name(),
		Sector:      "offentlig",
		Deadline:    deadline,
	}, true
}

var (
	danishLongDate    = regexp.MustCompile(`(\d{1,2})\.\s*(\p{L}+)\s*(\d{4})`)
	danishNumericDate = regexp.MustCompile(`(\d{1,2})[-/.](\d{1,2})[-/.](\d{4})`)

	danishMonths = map[string]int{
		"januar": 1, "februar": 2, "marts": 3, "april": 4,
		"maj": 5, "juni": 6, "juli": 7, "august": 8,
		"september": 9, "oktober": 10, "november": 11, "december": 12,
	}
)

// parseDanishDate recognizes "15. januar 2026" and "15-01-2026" and returns
// the date as YYYY-MM-DD.
func parseDanishDate(text string) (string, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return "", false
	}

	if m := danishLongDate.FindStringSubmatch(text); m != nil {
		if month, ok := danishMonths[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[3])
			return formatDate(year, month, day)
		}
	}
	if m := danishNumericDate.FindStringSubmatch(text); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return formatDate(year, month, day)
	}
	return "", false
}

func formatDate(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}
