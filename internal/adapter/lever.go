package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amishk599/jobagent/internal/model"
)

const leverBaseURL = "https://api.lever.co/v0/postings"

// leverCategories represents the categories object in a Lever job.
type leverCategories struct {
	Team         string   `json:"team"`
	Department   string   `json:"department"`
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	AllLocations []string `json:"allLocations"`
}

// leverJob represents a single job in the Lever API response.
type leverJob struct {
	ID               string          `json:"id"`
	Text             string          `json:"text"`
	DescriptionPlain string          `json:"descriptionPlain"`
	Categories       leverCategories `json:"categories"`
	CreatedAt        int64           `json:"createdAt"`
	HostedURL        string          `json:"hostedUrl"`
}

// NewLeverCollector creates a collector over Lever public postings.
func NewLeverCollector(getter model.PageGetter, boards []Board, locations []string, logger *slog.Logger) model.SourceCollector {
	return newLeverCollector(getter, leverBaseURL, boards, locations, logger)
}

func newLeverCollector(getter model.PageGetter, baseURL string, boards []Board, locations []string, logger *slog.Logger) *boardCollector {
	return &boardCollector{
		name:      "lever",
		boards:    boards,
		locations: locations,
		logger:    logger,
		fetch: func(ctx context.Context, board Board) ([]model.RawPosting, error) {
			return fetchLeverBoard(ctx, getter, baseURL, board)
		},
	}
}

func fetchLeverBoard(ctx context.Context, getter model.PageGetter, baseURL string, board Board) ([]model.RawPosting, error) {
	url := fmt.Sprintf("%s/%s?mode=json", baseURL, board.Token)

	body, err := getter.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", board.Token, err)
	}

	var leverJobs []leverJob
	if err := json.Unmarshal(body, &leverJobs); err != nil {
		return nil, fmt.Errorf("lever fetch for %s: %w", board.Token, err)
	}

	postings := make([]model.RawPosting, 0, len(leverJobs))
	for _, lj := range leverJobs {
		// Prefer allLocations if available, fallback to location
		location := lj.Categories.Location
		if len(lj.Categories.AllLocations) > 0 {
			location = strings.Join(lj.Categories.AllLocations, ", ")
		}

		p := model.RawPosting{
			Title:       lj.Text,
			Company:     board.Name,
			Location:    location,
			Description: lj.DescriptionPlain,
			URL:         lj.HostedURL,
		}
		// createdAt is Unix milliseconds
		if lj.CreatedAt > 0 {
			t := time.UnixMilli(lj.CreatedAt)
			p.PostedAt = &t
		}
		postings = append(postings, p)
	}
	return postings, nil
}
