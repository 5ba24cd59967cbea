package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amishk599/jobagent/internal/model"
)

func TestEmailNotifier_SendsDigest(t *testing.T) {
	var got resendRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Write([]byte(`{"id":"email-1"}`))
	}))
	defer srv.Close()

	n := NewEmailNotifier(srv.URL, "re_key", "Job Agent <jobs@example.dk>", []string{"me@example.dk"}, srv.Client(), discardLogger())
	n.now = func() time.Time { return time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC) }

	jobs := []model.Job{
		scoredJob("Fuldmægtig <Økonomi>", "Finansministeriet", "offentlig", 64),
		scoredJob("Analysekonsulent", "Epinion", "konsulent", 81),
	}
	if err := n.Notify(context.Background(), jobs); err != nil {
		t.Fatalf("Notify() = %v", err)
	}

	if auth != "Bearer re_key" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.Subject != "🎯 2 nye jobs - 1 stærke matches!" {
		t.Errorf("subject = %q", got.Subject)
	}
	if got.From != "Job Agent <jobs@example.dk>" || len(got.To) != 1 || got.To[0] != "me@example.dk" {
		t.Errorf("unexpected envelope %+v", got)
	}
	for _, want := range []string{
		"Jobdigest 2. March 2026",
		"Konsulent &amp; Rådgivning (1)",
		"Offentlig Sektor (1)",
		"Fuldmægtig &lt;Økonomi&gt;",
		"81/100",
	} {
		if !strings.Contains(got.HTML, want) {
			t.Errorf("html missing %q", want)
		}
	}
	if strings.Index(got.HTML, "Konsulent &amp; Rådgivning") > strings.Index(got.HTML, "Offentlig Sektor") {
		t.Error("expected konsulent section before offentlig section")
	}
}

func TestRenderDigest_UnscoredJob(t *testing.T) {
	analyzed := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	jobs := []model.Job{{Title: "Lagermedarbejder", Company: "Coop", Sector: "virksomhed", AnalyzedAt: &analyzed}}

	html, err := renderDigest("subject", jobs, analyzed)
	if err != nil {
		t.Fatalf("renderDigest() = %v", err)
	}
	if !strings.Contains(html, "ikke vurderet") {
		t.Error("expected unscored label in html")
	}
	if strings.Contains(html, "-1/100") {
		t.Error("unscored job rendered with a sentinel score")
	}
}

func TestEmailNotifier_PlainSubjectWithoutStrongMatches(t *testing.T) {
	if got := digestSubject([]model.Job{scoredJob("A", "B", "", 61)}); got != "📋 1 nye relevante jobopslag" {
		t.Errorf("subject = %q", got)
	}
}

func TestEmailNotifier_MissingAPIKey(t *testing.T) {
	n := NewEmailNotifier("http://unused.invalid", "", "a@b.dk", []string{"c@d.dk"}, http.DefaultClient, discardLogger())
	err := n.Notify(context.Background(), []model.Job{scoredJob("A", "B", "", 70)})
	if !errors.Is(err, errNoAPIKey) {
		t.Fatalf("expected errNoAPIKey, got %v", err)
	}
}

func TestEmailNotifier_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid from address"}`))
	}))
	defer srv.Close()

	n := NewEmailNotifier(srv.URL, "k", "bad", []string{"c@d.dk"}, srv.Client(), discardLogger())
	err := n.Notify(context.Background(), []model.Job{scoredJob("A", "B", "", 70)})
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 HTTPError, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid from address") {
		t.Errorf("error should carry the API message: %v", err)
	}
}

func TestEmailNotifier_NoJobsNoRequest(t *testing.T) {
	n := NewEmailNotifier("http://unused.invalid", "", "a", nil, http.DefaultClient, discardLogger())
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Fatalf("Notify(nil) = %v", err)
	}
}
