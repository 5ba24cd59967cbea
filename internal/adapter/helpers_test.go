package adapter

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/amishk599/jobagent/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// roundTripFunc adapts a function into an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// newTestGetter returns an HTTPGetter whose requests, whatever their host,
// are sent to srv. Collectors keep their production URLs.
func newTestGetter(srv *httptest.Server) *HTTPGetter {
	client := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			req.URL.Scheme = "http"
			req.URL.Host = srv.Listener.Addr().String()
			return http.DefaultTransport.RoundTrip(req)
		}),
	}
	return NewHTTPGetter(client, "")
}

// drain consumes a collector sequence. err is the terminal error, if any.
func drain(seq iter.Seq2[model.RawPosting, error]) (postings []model.RawPosting, err error) {
	for p, e := range seq {
		if e != nil {
			err = e
			continue
		}
		postings = append(postings, p)
	}
	return postings, err
}

// mapGetter serves canned bodies by exact URL and records request order.
type mapGetter struct {
	pages    map[string]string
	failures map[string]error
	requests []string
}

func (g *mapGetter) Get(_ context.Context, url string) ([]byte, error) {
	g.requests = append(g.requests, url)
	if err, ok := g.failures[url]; ok {
		return nil, err
	}
	body, ok := g.pages[url]
	if !ok {
		return nil, &model.HTTPError{StatusCode: http.StatusNotFound}
	}
	return []byte(body), nil
}
