package adapter

import (
	"context"
	"iter"
	"log/slog"

	"github.com/amishk599/jobagent/internal/filter"
	"github.com/amishk599/jobagent/internal/model"
)

// Board is one company's job board on a hosted ATS.
type Board struct {
	Token  string // board token or company slug
	Name   string // company display name
	Sector string
}

// boardFetcher turns one board into postings. Implemented per ATS.
type boardFetcher func(ctx context.Context, board Board) ([]model.RawPosting, error)

// boardCollector fetches every configured board of one ATS and keeps the
// postings matching the search terms and locations. ATS board APIs return
// every opening, so filtering happens client-side.
type boardCollector struct {
	name      string
	boards    []Board
	locations []string
	fetch     boardFetcher
	logger    *slog.Logger
}

func (c *boardCollector) Name() string { return c.name }

func (c *boardCollector) Collect(ctx context.Context, terms []string) iter.Seq2[model.RawPosting, error] {
	return func(yield func(model.RawPosting, error) bool) {
		queries := newQueryLog(c.name, c.logger)
		match := filter.NewTermFilter(terms, nil, c.locations, nil)

		for _, board := range c.boards {
			if err := cancelled(ctx, c.name); err != nil {
				yield(model.RawPosting{}, err)
				return
			}

			queries.attempt()
			postings, err := c.fetch(ctx, board)
			if err != nil {
				queries.fail(board.Token, err)
				continue
			}

			kept := 0
			for _, p := range postings {
				if !match.Match(p) {
					continue
				}
				kept++
				p.Source = c.name
				if p.Company == "" {
					p.Company = board.Name
				}
				if p.Sector == "" {
					p.Sector = board.Sector
				}
				if !yield(p, nil) {
					return
				}
			}
			c.logger.Debug("board fetched", "source", c.name, "board", board.Token, "postings", len(postings), "matched", kept)
		}

		if err := queries.err(); err != nil {
			yield(model.RawPosting{}, err)
		}
	}
}
