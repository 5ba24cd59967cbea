package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobagent/internal/model"
)

const ashbyBaseURL = "https://api.ashbyhq.com/posting-api/job-board"

// ashbyJob represents a single job in the Ashby API response.
type ashbyJob struct {
	Title            string `json:"title"`
	Location         string `json:"location"`
	JobUrl           string `json:"jobUrl"`
	PublishedAt      string `json:"publishedAt"`
	IsListed         bool   `json:"isListed"`
	DescriptionPlain string `json:"descriptionPlain"`
}

// ashbyResponse is the top-level Ashby job board API response.
type ashbyResponse struct {
	Jobs []ashbyJob `json:"jobs"`
}

// NewAshbyCollector creates a collector over Ashby public job boards.
func NewAshbyCollector(getter model.PageGetter, boards []Board, locations []string, logger *slog.Logger) model.SourceCollector {
	return newAshbyCollector(getter, ashbyBaseURL, boards, locations, logger)
}

func newAshbyCollector(getter model.PageGetter, baseURL string, boards []Board, locations []string, logger *slog.Logger) *boardCollector {
	return &boardCollector{
		name:      "ashby",
		boards:    boards,
		locations: locations,
		logger:    logger,
		fetch: func(ctx context.Context, board Board) ([]model.RawPosting, error) {
			return fetchAshbyBoard(ctx, getter, baseURL, board)
		},
	}
}

func fetchAshbyBoard(ctx context.Context, getter model.PageGetter, baseURL string, board Board) ([]model.RawPosting, error) {
	url := fmt.Sprintf("%s/%s", baseURL, board.Token)

	body, err := getter.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("ashby fetch for %s: %w", board.Token, err)
	}

	var ashbyResp ashbyResponse
	if err := json.Unmarshal(body, &ashbyResp); err != nil {
		return nil, fmt.Errorf("ashby fetch for %s: %w", board.Token, err)
	}

	postings := make([]model.RawPosting, 0, len(ashbyResp.Jobs))
	for _, aj := range ashbyResp.Jobs {
		if !aj.IsListed {
			continue
		}

		p := model.RawPosting{
			Title:       aj.Title,
			Company:     board.Name,
			Location:    aj.Location,
			Description: aj.DescriptionPlain,
			URL:         aj.JobUrl,
		}
		if aj.PublishedAt != "" {
			if t, err := time.Parse(time.RFC3339, aj.PublishedAt); err == nil {
				p.PostedAt = &t
			}
		}
		postings = append(postings, p)
	}
	return postings, nil
}
