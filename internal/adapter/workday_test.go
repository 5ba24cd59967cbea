package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/jobagent/internal/canon"
	"github.com/amishk599/jobagent/internal/model"
	"github.com/amishk599/jobagent/internal/ratelimit"
)

const workdaySitePath = "/wday/cxs/acme/Acme_Careers"

// workdayServer fakes a Workday CXS site. listing answers the POST search;
// detail answers the per-job GET.
type workdayServer struct {
	mu       sync.Mutex
	searches []workdayListingRequest
	details  []string
	listing  func(req workdayListingRequest) workdayListingResponse
	detail   func(path string) (workdayDetailResponse, int)
}

func (s *workdayServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Method == http.MethodPost {
		if r.URL.Path != workdaySitePath+"/jobs" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req workdayListingRequest
		json.NewDecoder(r.Body).Decode(&req)
		s.searches = append(s.searches, req)
		json.NewEncoder(w).Encode(s.listing(req))
		return
	}

	path := strings.TrimPrefix(r.URL.Path, workdaySitePath)
	s.details = append(s.details, path)
	if s.detail == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	resp, status := s.detail(path)
	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	json.NewEncoder(w).Encode(resp)
}

func newWorkdayTestCollector(srv *httptest.Server, locations []string, maxPages int) *workdayCollector {
	g := NewHTTPGetter(srv.Client(), "")
	sites := []Board{{Token: srv.URL + workdaySitePath, Name: "Acme", Sector: "virksomhed"}}
	return NewWorkdayCollector(g, g, ratelimit.NewLimiter(0), sites, locations, maxPages, discardLogger()).(*workdayCollector)
}

func TestWorkdayCollect_Success(t *testing.T) {
	fake := &workdayServer{
		listing: func(req workdayListingRequest) workdayListingResponse {
			return workdayListingResponse{Total: 1, JobPostings: []workdayListing{{
				Title:         "Data Analyst",
				ExternalPath:  "/job/Kobenhavn/Data-Analyst_R123",
				LocationsText: "København",
				PostedOn:      "Posted Today",
			}}}
		},
		detail: func(path string) (workdayDetailResponse, int) {
			return workdayDetailResponse{JobPostingInfo: workdayJobDetail{
				JobReqID:            "R123",
				Title:               "Data Analyst (m/f/x)",
				Location:            "København",
				AdditionalLocations: []string{"Aarhus"},
				StartDate:           "2026-02-17",
				ExternalURL:         "https://acme.wd3.myworkdayjobs.com/Acme_Careers/job/Kobenhavn/Data-Analyst_R123",
				JobDescription:      "<p>Analyse af <b>data</b>.</p>",
			}}, http.StatusOK
		},
	}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newWorkdayTestCollector(srv, nil, 5)
	postings, err := drain(c.Collect(context.Background(), []string{"analyst"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(postings))
	}

	if len(fake.searches) != 1 || fake.searches[0].SearchText != "analyst" || fake.searches[0].Limit != workdayPageSize {
		t.Errorf("unexpected search requests: %+v", fake.searches)
	}
	if len(fake.details) != 1 || fake.details[0] != "/job/Kobenhavn/Data-Analyst_R123" {
		t.Errorf("unexpected detail requests: %v", fake.details)
	}

	p := postings[0]
	if p.Company != "Acme" || p.Sector != "virksomhed" || p.Source != "workday" {
		t.Errorf("unexpected attribution: %+v", p)
	}
	if p.Location != "København; Aarhus" {
		t.Errorf("unexpected location %q", p.Location)
	}
	if p.Title != "Data Analyst" {
		t.Errorf("expected listing title, got %q", p.Title)
	}
	if p.URL != srv.URL+"/Acme_Careers/job/Kobenhavn/Data-Analyst_R123" {
		t.Errorf("expected public URL derived from the listing, got %q", p.URL)
	}
	if p.Description != "Analyse af data." {
		t.Errorf("unexpected description %q", p.Description)
	}
	if p.PostedAt == nil || p.PostedAt.Year() != 2026 || p.PostedAt.Month() != time.February || p.PostedAt.Day() != 17 {
		t.Errorf("unexpected PostedAt: %v", p.PostedAt)
	}
}

func TestWorkdayCollect_DedupsAcrossTerms(t *testing.T) {
	fake := &workdayServer{
		listing: func(req workdayListingRequest) workdayListingResponse {
			return workdayListingResponse{Total: 1, JobPostings: []workdayListing{{
				Title: "Policy Analyst", ExternalPath: "/job/x/R1", PostedOn: "Posted Yesterday",
			}}}
		},
	}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newWorkdayTestCollector(srv, nil, 5)
	postings, err := drain(c.Collect(context.Background(), []string{"policy", "analyst"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.searches) != 2 {
		t.Errorf("expected one search per term, got %d", len(fake.searches))
	}
	if len(postings) != 1 {
		t.Fatalf("expected the shared listing once, got %d", len(postings))
	}
}

func TestWorkdayCollect_DetailFailureKeepsListing(t *testing.T) {
	fake := &workdayServer{
		listing: func(req workdayListingRequest) workdayListingResponse {
			return workdayListingResponse{Total: 1, JobPostings: []workdayListing{{
				Title: "Analyst", ExternalPath: "/job/Aarhus/Analyst_R9", LocationsText: "Aarhus", PostedOn: "Posted 3 Days Ago",
			}}}
		},
	}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newWorkdayTestCollector(srv, nil, 5)
	postings, err := drain(c.Collect(context.Background(), []string{"analyst"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(postings))
	}
	p := postings[0]
	if p.Location != "Aarhus" {
		t.Errorf("expected listing location, got %q", p.Location)
	}
	if p.URL != srv.URL+"/Acme_Careers/job/Aarhus/Analyst_R9" {
		t.Errorf("unexpected public URL %q", p.URL)
	}
	if p.PostedAt == nil {
		t.Error("expected PostedAt from the relative postedOn")
	}
}

func TestWorkdayCollect_IdentityIndependentOfDetail(t *testing.T) {
	listing := workdayListing{
		Title:         "Policy Analyst",
		ExternalPath:  "/job/Kobenhavn/Policy-Analyst_R77",
		LocationsText: "København",
		PostedOn:      "Posted Today",
	}
	collect := func(detail func(string) (workdayDetailResponse, int)) model.RawPosting {
		t.Helper()
		fake := &workdayServer{
			listing: func(req workdayListingRequest) workdayListingResponse {
				return workdayListingResponse{Total: 1, JobPostings: []workdayListing{listing}}
			},
			detail: detail,
		}
		srv := httptest.NewServer(fake)
		defer srv.Close()

		postings, err := drain(newWorkdayTestCollector(srv, nil, 5).Collect(context.Background(), []string{"policy"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(postings) != 1 {
			t.Fatalf("expected 1 posting, got %d", len(postings))
		}
		// Servers differ per run; compare on a fixed host.
		p := postings[0]
		p.URL = strings.TrimPrefix(p.URL, srv.URL)
		return p
	}

	enriched := collect(func(string) (workdayDetailResponse, int) {
		return workdayDetailResponse{JobPostingInfo: workdayJobDetail{
			Title:          "Senior Policy Analyst - Copenhagen",
			ExternalURL:    "https://acme.wd3.myworkdayjobs.com/en-US/Acme_Careers/details/Policy-Analyst_R77?src=feed",
			JobDescription: "<p>Regulering.</p>",
		}}, http.StatusOK
	})
	bare := collect(func(string) (workdayDetailResponse, int) {
		return workdayDetailResponse{}, http.StatusServiceUnavailable
	})

	if enriched.Description != "Regulering." {
		t.Errorf("expected description from detail, got %q", enriched.Description)
	}
	if bare.Description != "" {
		t.Errorf("expected no description without detail, got %q", bare.Description)
	}
	if enriched.Title != bare.Title || enriched.URL != bare.URL {
		t.Errorf("identity fields diverged: enriched=(%q, %q) bare=(%q, %q)", enriched.Title, enriched.URL, bare.Title, bare.URL)
	}
	if a, b := canon.Canonicalize(enriched).ContentID, canon.Canonicalize(bare).ContentID; a != b {
		t.Errorf("content id depends on detail fetch: %s vs %s", a, b)
	}
}

func TestWorkdayCollect_PaginationStopsOnStalePage(t *testing.T) {
	fake := &workdayServer{
		listing: func(req workdayListingRequest) workdayListingResponse {
			listings := make([]workdayListing, workdayPageSize)
			for i := range listings {
				posted := "Posted Today"
				if req.Offset > 0 {
					posted = "Posted 30+ Days Ago"
				}
				listings[i] = workdayListing{
					Title:        fmt.Sprintf("Analyst %d", req.Offset+i),
					ExternalPath: fmt.Sprintf("/job/x/R%d", req.Offset+i),
					PostedOn:     posted,
				}
			}
			return workdayListingResponse{Total: 200, JobPostings: listings}
		},
	}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newWorkdayTestCollector(srv, nil, 10)
	postings, err := drain(c.Collect(context.Background(), []string{"analyst"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fake.searches) != 2 {
		t.Errorf("expected paging to stop after the stale page, got %d searches", len(fake.searches))
	}
	if len(postings) != workdayPageSize {
		t.Errorf("expected %d fresh postings, got %d", workdayPageSize, len(postings))
	}
}

func TestWorkdayCollect_PaginationRespectsMaxPagesAndTotal(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		maxPages  int
		wantPages int
	}{
		{"bounded by total", 25, 10, 2},
		{"bounded by max pages", 500, 3, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := &workdayServer{
				listing: func(req workdayListingRequest) workdayListingResponse {
					return workdayListingResponse{Total: tc.total, JobPostings: []workdayListing{{
						Title: "Analyst", ExternalPath: fmt.Sprintf("/job/x/R%d", req.Offset), PostedOn: "Posted Today",
					}}}
				},
			}
			srv := httptest.NewServer(fake)
			defer srv.Close()

			c := newWorkdayTestCollector(srv, nil, tc.maxPages)
			if _, err := drain(c.Collect(context.Background(), []string{"analyst"})); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(fake.searches) != tc.wantPages {
				t.Errorf("expected %d searches, got %d", tc.wantPages, len(fake.searches))
			}
		})
	}
}

func TestWorkdayCollect_LocationPreFilter(t *testing.T) {
	fake := &workdayServer{
		listing: func(req workdayListingRequest) workdayListingResponse {
			return workdayListingResponse{Total: 3, JobPostings: []workdayListing{
				{Title: "Analyst", ExternalPath: "/job/a/R1", LocationsText: "India, Pune", PostedOn: "Posted Today"},
				{Title: "Analyst", ExternalPath: "/job/b/R2", LocationsText: "2 Locations", PostedOn: "Posted Today"},
				{Title: "Analyst", ExternalPath: "/job/c/R3", LocationsText: "Denmark, København", PostedOn: "Posted Today"},
			}}
		},
	}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	c := newWorkdayTestCollector(srv, []string{"København"}, 5)
	postings, err := drain(c.Collect(context.Background(), []string{"analyst"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(postings) != 2 {
		t.Fatalf("expected ambiguous and matching listings, got %d", len(postings))
	}
	if len(fake.details) != 2 {
		t.Errorf("expected no detail fetch for the filtered listing, got %v", fake.details)
	}
}

func TestWorkdayCollect_AllSearchesFailingIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newWorkdayTestCollector(srv, nil, 5)
	if _, err := drain(c.Collect(context.Background(), []string{"analyst", "konsulent"})); err == nil {
		t.Fatal("expected terminal error when every search failed, got nil")
	}
}

func TestWorkdayPublicURL(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{
			"https://acme.wd3.myworkdayjobs.com/wday/cxs/acme/Acme_Careers",
			"/job/Kobenhavn/Analyst_R1",
			"https://acme.wd3.myworkdayjobs.com/Acme_Careers/job/Kobenhavn/Analyst_R1",
		},
		{
			"https://acme.wd3.myworkdayjobs.com/wday/cxs/acme/Acme_Careers",
			"job/Kobenhavn/Analyst_R1",
			"https://acme.wd3.myworkdayjobs.com/Acme_Careers/job/Kobenhavn/Analyst_R1",
		},
		{
			"https://careers.example.com/api",
			"/job/R1",
			"https://careers.example.com/api/job/R1",
		},
	}
	for _, tc := range tests {
		if got := workdayPublicURL(tc.base, tc.path); got != tc.want {
			t.Errorf("workdayPublicURL(%q, %q) = %q, want %q", tc.base, tc.path, got, tc.want)
		}
	}
}

func TestParsePostedOn(t *testing.T) {
	tests := []struct {
		input   string
		wantNil bool
	}{
		{"Posted Today", false},
		{"Posted Yesterday", false},
		{"Posted 3 Days Ago", false},
		{"Posted 1 Day Ago", false},
		{"Posted 30+ Days Ago", true},
		{"Unknown format", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parsePostedOn(tt.input)
			if tt.wantNil {
				if got != nil {
					t.Errorf("expected nil for %q, got %v", tt.input, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected non-nil for %q", tt.input)
			}
		})
	}
}
