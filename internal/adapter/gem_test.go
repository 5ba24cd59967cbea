package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGemCollect_Success(t *testing.T) {
	payload := `[
		{
			"id": "abc-123",
			"title": "Policy Analyst",
			"location": {"name": "København"},
			"absolute_url": "https://jobs.gem.com/acme/jobs/abc-123",
			"first_published_at": "2026-02-10T09:00:00Z",
			"updated_at": "2026-02-13T10:00:00Z",
			"content_plain": "  Analyse   af politik.  "
		},
		{
			"id": "def-456",
			"title": "Backend Engineer",
			"location": {"name": "Remote"},
			"absolute_url": "https://jobs.gem.com/acme/jobs/def-456",
			"first_published_at": "2026-02-11T14:00:00Z"
		}
	]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/job_board/v0/acme/job_posts/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := NewGemCollector(newTestGetter(srv), []Board{{Token: "acme", Name: "Acme", Sector: "virksomhed"}}, nil, discardLogger())
	postings, err := drain(c.Collect(context.Background(), []string{"analyst"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 1 {
		t.Fatalf("expected 1 matching posting, got %d", len(postings))
	}

	p := postings[0]
	if p.Title != "Policy Analyst" {
		t.Errorf("expected title Policy Analyst, got %s", p.Title)
	}
	if p.Company != "Acme" {
		t.Errorf("expected company Acme, got %s", p.Company)
	}
	if p.Source != "gem" {
		t.Errorf("expected source gem, got %s", p.Source)
	}
	if p.Sector != "virksomhed" {
		t.Errorf("expected sector from board, got %q", p.Sector)
	}
	if p.Description != "Analyse af politik." {
		t.Errorf("unexpected description %q", p.Description)
	}
	if p.PostedAt == nil || p.PostedAt.Day() != 10 {
		t.Errorf("expected PostedAt from first_published_at, got %v", p.PostedAt)
	}
	if p.URL != "https://jobs.gem.com/acme/jobs/abc-123" {
		t.Errorf("unexpected URL: %s", p.URL)
	}
}

func TestGemCollect_HTMLContentFallback(t *testing.T) {
	payload := `[{"id": "1", "title": "Analyst", "absolute_url": "https://x/1",
		"updated_at": "2026-02-13T10:00:00Z", "content": "<p>Vi <b>søger</b></p>"}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := NewGemCollector(newTestGetter(srv), []Board{{Token: "acme", Name: "Acme"}}, nil, discardLogger())
	postings, err := drain(c.Collect(context.Background(), nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(postings))
	}
	if postings[0].Description != "Vi søger" {
		t.Errorf("unexpected description %q", postings[0].Description)
	}
	if postings[0].PostedAt == nil || postings[0].PostedAt.Day() != 13 {
		t.Errorf("expected PostedAt from updated_at, got %v", postings[0].PostedAt)
	}
}

func TestGemCollect_MissingTimestamp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": "x", "title": "Analyst", "absolute_url": "https://x/1"}]`))
	}))
	defer srv.Close()

	c := NewGemCollector(newTestGetter(srv), []Board{{Token: "acme", Name: "Acme"}}, nil, discardLogger())
	postings, err := drain(c.Collect(context.Background(), nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(postings))
	}
	if postings[0].PostedAt != nil {
		t.Errorf("expected PostedAt to be nil, got %v", postings[0].PostedAt)
	}
}

func TestGemCollect_HTTPErrorIsTerminalForSingleBoard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewGemCollector(newTestGetter(srv), []Board{{Token: "fail-co", Name: "Fail Co"}}, nil, discardLogger())
	if _, err := drain(c.Collect(context.Background(), nil)); err == nil {
		t.Fatal("expected terminal error when the only board fails, got nil")
	}
}
