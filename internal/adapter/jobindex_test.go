package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func jobindexCard(i int) string {
	return fmt.Sprintf(`<div class="PaidJob">
		<h4><a href="/jobannonce/%d">Analysekonsulent nummer %d</a></h4>
		<p class="PaidJob-company">KL</p>
		<p class="PaidJob-location">København</p>
		<div class="PaidJob-inner"><p>Beskrivelse %d</p></div>
		<time datetime="2026-03-01">1. marts</time>
	</div>`, i, i, i)
}

func jobindexPage(from, n int) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := from; i < from+n; i++ {
		b.WriteString(jobindexCard(i))
	}
	b.WriteString("</body></html>")
	return b.String()
}

func TestJobindexCollect_ParsesCards(t *testing.T) {
	c := NewJobindexCollector(nil, nil, 10, discardLogger())
	g := &mapGetter{pages: map[string]string{
		c.searchURL("analyse", "", 1): jobindexPage(1, 1),
	}}
	c.getter = g

	postings, err := drain(c.Collect(context.Background(), []string{"analyse"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(postings))
	}
	p := postings[0]
	if p.Title != "Analysekonsulent nummer 1" {
		t.Errorf("unexpected title %q", p.Title)
	}
	if p.URL != "https://www.jobindex.dk/jobannonce/1" {
		t.Errorf("expected absolute URL, got %q", p.URL)
	}
	if p.Company != "KL" || p.Location != "København" {
		t.Errorf("unexpected company/location %q / %q", p.Company, p.Location)
	}
	if p.Description != "Beskrivelse 1" {
		t.Errorf("unexpected description %q", p.Description)
	}
	if p.Deadline != "2026-03-01" {
		t.Errorf("unexpected deadline %q", p.Deadline)
	}
	if p.Source != "jobindex" {
		t.Errorf("unexpected source %q", p.Source)
	}
}

func TestJobindexCollect_StopsOnShortPage(t *testing.T) {
	c := NewJobindexCollector(nil, nil, 10, discardLogger())
	g := &mapGetter{pages: map[string]string{
		c.searchURL("analyse", "", 1): jobindexPage(0, 20),
		c.searchURL("analyse", "", 2): jobindexPage(20, 5),
		c.searchURL("analyse", "", 3): jobindexPage(25, 20),
	}}
	c.getter = g

	postings, err := drain(c.Collect(context.Background(), []string{"analyse"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 25 {
		t.Fatalf("expected 25 postings, got %d", len(postings))
	}
	if len(g.requests) != 2 {
		t.Fatalf("expected 2 page requests, got %d: %v", len(g.requests), g.requests)
	}
}

func TestJobindexCollect_StopsAtMaxPages(t *testing.T) {
	c := NewJobindexCollector(nil, nil, 2, discardLogger())
	g := &mapGetter{pages: map[string]string{
		c.searchURL("analyse", "", 1): jobindexPage(0, 20),
		c.searchURL("analyse", "", 2): jobindexPage(20, 20),
		c.searchURL("analyse", "", 3): jobindexPage(40, 20),
	}}
	c.getter = g

	postings, _ := drain(c.Collect(context.Background(), []string{"analyse"}))
	if len(postings) != 40 {
		t.Fatalf("expected 40 postings, got %d", len(postings))
	}
	if len(g.requests) != 2 {
		t.Fatalf("expected 2 page requests, got %d", len(g.requests))
	}
}

func TestJobindexCollect_EmptyPageStops(t *testing.T) {
	c := NewJobindexCollector(nil, nil, 10, discardLogger())
	g := &mapGetter{pages: map[string]string{
		c.searchURL("analyse", "", 1): "<html><body><p>Ingen resultater</p></body></html>",
	}}
	c.getter = g

	postings, err := drain(c.Collect(context.Background(), []string{"analyse"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 0 || len(g.requests) != 1 {
		t.Fatalf("expected no postings after one request, got %d postings, %d requests", len(postings), len(g.requests))
	}
}

func TestJobindexCollect_OneQueryFailingIsNotTerminal(t *testing.T) {
	c := NewJobindexCollector(nil, []string{"1", "3"}, 10, discardLogger())
	g := &mapGetter{
		pages: map[string]string{
			c.searchURL("analyse", "3", 1): jobindexPage(0, 2),
		},
		failures: map[string]error{
			c.searchURL("analyse", "1", 1): errors.New("connection reset"),
		},
	}
	c.getter = g

	postings, err := drain(c.Collect(context.Background(), []string{"analyse"}))
	if err != nil {
		t.Fatalf("unexpected terminal error: %v", err)
	}
	if len(postings) != 2 {
		t.Fatalf("expected 2 postings from the healthy region, got %d", len(postings))
	}
}

func TestJobindexCollect_AllQueriesFailingIsTerminal(t *testing.T) {
	c := NewJobindexCollector(&mapGetter{}, []string{"1"}, 10, discardLogger())

	postings, err := drain(c.Collect(context.Background(), []string{"analyse", "statskundskab"}))
	if err == nil {
		t.Fatal("expected terminal error when every query fails")
	}
	if len(postings) != 0 {
		t.Fatalf("expected no postings, got %d", len(postings))
	}
}

func TestJobindexCollect_ContextCancelled(t *testing.T) {
	c := NewJobindexCollector(&mapGetter{}, nil, 10, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := drain(c.Collect(ctx, []string{"analyse"}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestJobindexSearchURL(t *testing.T) {
	c := NewJobindexCollector(nil, nil, 10, discardLogger())
	got := c.searchURL("ac fuldmægtig", "4", 2)
	want := "https://www.jobindex.dk/jobsoegning?jobtypes=1&page=2&q=ac+fuldm%C3%A6gtig&subid=4"
	if got != want {
		t.Errorf("searchURL = %s, want %s", got, want)
	}
}
