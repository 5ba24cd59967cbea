package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobagent/internal/model"
)

const gemBaseURL = "https://api.gem.com/job_board/v0"

type gemJob struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Location       gemLocation `json:"location"`
	AbsoluteURL    string      `json:"absolute_url"`
	FirstPublished string      `json:"first_published_at"`
	UpdatedAt      string      `json:"updated_at"`
	Content        string      `json:"content"`
	ContentPlain   string      `json:"content_plain"`
}

type gemLocation struct {
	Name string `json:"name"`
}

// NewGemCollector creates a collector over Gem public job boards.
func NewGemCollector(getter model.PageGetter, boards []Board, locations []string, logger *slog.Logger) model.SourceCollector {
	return newGemCollector(getter, gemBaseURL, boards, locations, logger)
}

func newGemCollector(getter model.PageGetter, baseURL string, boards []Board, locations []string, logger *slog.Logger) *boardCollector {
	return &boardCollector{
		name:      "gem",
		boards:    boards,
		locations: locations,
		logger:    logger,
		fetch: func(ctx context.Context, board Board) ([]model.RawPosting, error) {
			return fetchGemBoard(ctx, getter, baseURL, board)
		},
	}
}

// fetchGemBoard retrieves every post on a Gem board. The plain-text content
// is preferred; HTML content is stripped when it is the only body present.
func fetchGemBoard(ctx context.Context, getter model.PageGetter, baseURL string, board Board) ([]model.RawPosting, error) {
	url := fmt.Sprintf("%s/%s/job_posts/", baseURL, board.Token)

	body, err := getter.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("gem fetch for %s: %w", board.Token, err)
	}

	var gemJobs []gemJob
	if err := json.Unmarshal(body, &gemJobs); err != nil {
		return nil, fmt.Errorf("gem fetch for %s: %w", board.Token, err)
	}

	postings := make([]model.RawPosting, 0, len(gemJobs))
	for _, gj := range gemJobs {
		p := model.RawPosting{
			Title:    gj.Title,
			Company:  board.Name,
			Location: gj.Location.Name,
			URL:      gj.AbsoluteURL,
		}

		published := gj.FirstPublished
		if published == "" {
			published = gj.UpdatedAt
		}
		if published != "" {
			if t, err := time.Parse(time.RFC3339, published); err == nil {
				p.PostedAt = &t
			}
		}

		p.Description = cleanText(gj.ContentPlain)
		if p.Description == "" && gj.Content != "" {
			p.Description = extractText(gj.Content)
		}

		postings = append(postings, p)
	}
	return postings, nil
}
