package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobagent/internal/model"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Location    greenhouseLocation `json:"location"`
	AbsoluteURL string             `json:"absolute_url"`
	UpdatedAt   string             `json:"updated_at"`
	Content     string             `json:"content"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response.
type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// NewGreenhouseCollector creates a collector over Greenhouse public boards.
func NewGreenhouseCollector(getter model.PageGetter, boards []Board, locations []string, logger *slog.Logger) model.SourceCollector {
	return newGreenhouseCollector(getter, greenhouseBaseURL, boards, locations, logger)
}

func newGreenhouseCollector(getter model.PageGetter, baseURL string, boards []Board, locations []string, logger *slog.Logger) *boardCollector {
	return &boardCollector{
		name:      "greenhouse",
		boards:    boards,
		locations: locations,
		logger:    logger,
		fetch: func(ctx context.Context, board Board) ([]model.RawPosting, error) {
			return fetchGreenhouseBoard(ctx, getter, baseURL, board)
		},
	}
}

// fetchGreenhouseBoard retrieves all jobs on a board, with descriptions.
func fetchGreenhouseBoard(ctx context.Context, getter model.PageGetter, baseURL string, board Board) ([]model.RawPosting, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true", baseURL, board.Token)

	body, err := getter.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", board.Token, err)
	}

	var ghResp greenhouseResponse
	if err := json.Unmarshal(body, &ghResp); err != nil {
		return nil, fmt.Errorf("greenhouse fetch for %s: %w", board.Token, err)
	}

	postings := make([]model.RawPosting, 0, len(ghResp.Jobs))
	for _, gj := range ghResp.Jobs {
		p := model.RawPosting{
			Title:       gj.Title,
			Company:     board.Name,
			Location:    gj.Location.Name,
			Description: extractText(gj.Content),
			URL:         gj.AbsoluteURL,
		}
		if gj.UpdatedAt != "" {
			if t, err := time.Parse(time.RFC3339, gj.UpdatedAt); err == nil {
				p.PostedAt = &t
			}
		}
		postings = append(postings, p)
	}
	return postings, nil
}
