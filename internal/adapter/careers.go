package adapter

import (
	"context"
	"iter"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobagent/internal/model"
)

const (
	careersMaxPerPage        = 20
	careersDescriptionLimit  = 500
	careersDefaultLocation   = "Danmark"
	careersMinTitleRunes     = 5
	careersMaxLinkTitleRunes = 200
	careersMinLinkTitleRunes = 11
)

// CompanyPage is one employer career page to scan.
type CompanyPage struct {
	Name   string
	URL    string
	Sector string
}

// careersListingSelectors are tried in order; the first that matches any
// element is used for the whole page.
var careersListingSelectors = []string{
	"div[class*='job']",
	"article[class*='job']",
	"li[class*='job']",
	"div[class*='position']",
	"div[class*='vacancy']",
	"div[class*='career']",
	"div[class*='opening']",
	"tr[class*='job']",
	"div[class*='card']",
	"a[href*='job']",
	"a[href*='career']",
	"a[href*='position']",
	"a[href*='stilling']",
	"a[href*='ledige']",
}

var (
	// Titles containing these are navigation, not postings.
	careersSkipTitleWords = []string{"login", "sign", "cookie", "privacy", "contact", "about", "home", "menu", "nav", "footer", "header", "search"}
	careersSkipLinkWords  = []string{"login", "sign", "cookie", "privacy", "contact"}
	careersLinkHrefWords  = []string{"job", "career", "position", "stilling", "ledige", "vacancy"}
)

// CareersCollector scans a fixed list of company career pages using
// structural heuristics. Career pages list all openings, so search terms are
// not applied here; relevance scoring sorts them out downstream.
type CareersCollector struct {
	getter    model.PageGetter
	companies []CompanyPage
	logger    *slog.Logger
}

// NewCareersCollector creates a collector over companies.
func NewCareersCollector(getter model.PageGetter, companies []CompanyPage, logger *slog.Logger) *CareersCollector {
	return &CareersCollector{getter: getter, companies: companies, logger: logger}
}

func (c *CareersCollector) Name() string { return "careers" }

// Collect yields the postings found on every company page.
func (c *CareersCollector) Collect(ctx context.Context, _ []string) iter.Seq2[model.RawPosting, error] {
	return func(yield func(model.RawPosting, error) bool) {
		queries := newQueryLog(c.Name(), c.logger)

		for _, company := range c.companies {
			if err := cancelled(ctx, c.Name()); err != nil {
				yield(model.RawPosting{}, err)
				return
			}

			queries.attempt()
			body, err := c.getter.Get(ctx, company.URL)
			if err != nil {
				queries.fail(company.Name, err)
				continue
			}
			doc, err := parseDocument(body)
			if err != nil {
				queries.fail(company.Name, err)
				continue
			}

			postings := extractCareerPostings(doc, company)
			c.logger.Debug("career page parsed", "source", c.Name(), "company", company.Name, "postings", len(postings))
			for _, p := range postings {
				p.Source = c.Name()
				if !yield(p, nil) {
					return
				}
			}
		}

		if err := queries.err(); err != nil {
			yield(model.RawPosting{}, err)
		}
	}
}

// extractCareerPostings applies the listing selectors, falling back to any
// link that looks like it points at a posting.
func extractCareerPostings(doc *goquery.Document, company CompanyPage) []model.RawPosting {
	var out []model.RawPosting

	for _, selector := range careersListingSelectors {
		elems := doc.Find(selector)
		if elems.Length() == 0 {
			continue
		}
		elems.Slice(0, min(elems.Length(), careersMaxPerPage)).Each(func(_ int, elem *goquery.Selection) {
			if p, ok := parseCareerElement(elem, company); ok {
				out = append(out, p)
			}
		})
		break
	}
	if len(out) > 0 {
		return out
	}

	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		text := cleanText(link.Text())
		n := len([]rune(text))
		if n < careersMinLinkTitleRunes || n >= careersMaxLinkTitleRunes {
			return
		}
		if containsAnyFold(text, careersSkipLinkWords) || !containsAnyFold(href, careersLinkHrefWords) {
			return
		}
		out = append(out, model.RawPosting{
			Title:    text,
			Company:  company.Name,
			Location: careersDefaultLocation,
			URL:      absoluteURL(company.URL, href),
			Sector:   company.Sector,
		})
	})
	return out
}

func parseCareerElement(elem *goquery.Selection, company CompanyPage) (model.RawPosting, bool) {
	titleSel := elem.Find("h1, h2, h3, h4, a[href]").First()
	if titleSel.Length() == 0 && goquery.NodeName(elem) == "a" {
		titleSel = elem
	}
	title := cleanText(titleSel.Text())
	if len([]rune(title)) < careersMinTitleRunes || containsAnyFold(title, careersSkipTitleWords) {
		return model.RawPosting{}, false
	}

	link := elem.Find("a[href]").First()
	if link.Length() == 0 && goquery.NodeName(elem) == "a" {
		link = elem
	}
	postingURL := company.URL
	if href, ok := link.Attr("href"); ok && strings.TrimSpace(href) != "" {
		postingURL = absoluteURL(company.URL, href)
	}

	location := textOf(elem, "[class*='location'], [class*='place'], [class*='area']")
	if location == "" {
		location = careersDefaultLocation
	}

	return model.RawPosting{
		Title:       title,
		Company:     company.Name,
		Location:    location,
		Description: truncateRunes(textOf(elem, "[class*='description'], [class*='excerpt'], [class*='summary'], p"), careersDescriptionLimit),
		URL:         postingURL,
		Sector:      company.Sector,
	}, true
}
