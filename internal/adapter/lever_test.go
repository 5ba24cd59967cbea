package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLeverCollect_Success(t *testing.T) {
	payload := `[
		{
			"id": "abc-123",
			"text": "Policy Analyst",
			"descriptionPlain": "Analyse af offentlig politik.",
			"categories": {
				"location": "Copenhagen",
				"allLocations": ["Copenhagen", "Aarhus"]
			},
			"createdAt": 1770976800000,
			"hostedUrl": "https://jobs.lever.co/acme/abc-123"
		},
		{
			"id": "def-456",
			"text": "Warehouse Lead",
			"categories": {"location": "Odense"},
			"createdAt": 1770976800000,
			"hostedUrl": "https://jobs.lever.co/acme/def-456"
		}
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v0/postings/acme" || r.URL.Query().Get("mode") != "json" {
			t.Errorf("unexpected request: %s", r.URL.String())
		}
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := NewLeverCollector(newTestGetter(srv), []Board{{Token: "acme", Name: "Acme"}}, nil, discardLogger())
	postings, err := drain(c.Collect(context.Background(), []string{"analyst"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(postings))
	}

	p := postings[0]
	if p.Location != "Copenhagen, Aarhus" {
		t.Errorf("expected joined allLocations, got %q", p.Location)
	}
	if p.Description != "Analyse af offentlig politik." {
		t.Errorf("unexpected description %q", p.Description)
	}
	if p.URL != "https://jobs.lever.co/acme/abc-123" {
		t.Errorf("unexpected URL %s", p.URL)
	}
	if p.Source != "lever" {
		t.Errorf("expected source lever, got %s", p.Source)
	}
	if p.PostedAt == nil {
		t.Fatal("expected PostedAt to be set")
	}
}

func TestLeverCollect_HTTPErrorIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewLeverCollector(newTestGetter(srv), []Board{{Token: "acme", Name: "Acme"}}, nil, discardLogger())
	if _, err := drain(c.Collect(context.Background(), nil)); err == nil {
		t.Fatal("expected terminal error for HTTP 429, got nil")
	}
}
