package lastfm

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func newTestService(apiKey, baseURL string) *Service {
	return &Service{
		apiKey:  apiKey,
		limiter: rate.NewLimiter(rate.Inf, 1),
		baseURL: baseURL,
		logger:  log.New(io.Discard, "", 0),
	}
}

func TestLookupTopTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("method") != "track.gettoptags" {
			t.Errorf("unexpected method: %q", q.Get("method"))
		}
		if q.Get("artist") != "Artist One" || q.Get("track") != "First Song" {
			t.Errorf("unexpected artist/track: %q / %q", q.Get("artist"), q.Get("track"))
		}
		if q.Get("api_key") != "key-1" {
			t.Errorf("unexpected api key: %q", q.Get("api_key"))
		}
		if q.Get("format") != "json" {
			t.Errorf("expected format=json, got %q", q.Get("format"))
		}
		w.Write([]byte(`{
			"toptags": {
				"tag": [
					{"name": "indie rock", "count": 100},
					{"name": "melancholy", "count": 64},
					{"name": "2020s", "count": 12}
				]
			}
		}`))
	}))
	defer server.Close()

	service := newTestService("key-1", server.URL)

	tags := service.LookupTopTags(context.Background(), "Artist One", "First Song", 2)
	if len(tags) != 2 {
		t.Fatalf("expected limit to cap tags at 2, got %d", len(tags))
	}
	if tags[0].Name != "indie rock" || tags[0].Count != 100 {
		t.Errorf("unexpected first tag: %+v", tags[0])
	}
	if tags[1].Name != "melancholy" {
		t.Errorf("unexpected second tag: %+v", tags[1])
	}
}

func TestLookupTopTagsWithoutKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no HTTP call expected without an API key")
	}))
	defer server.Close()

	service := newTestService("", server.URL)

	if service.Enabled() {
		t.Error("expected Enabled() to be false without a key")
	}
	if tags := service.LookupTopTags(context.Background(), "Artist", "Song", 10); tags != nil {
		t.Errorf("expected nil tags without a key, got %+v", tags)
	}
}

func TestLookupTopTagsServerErrorIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	service := newTestService("key-1", server.URL)

	if tags := service.LookupTopTags(context.Background(), "Artist", "Song", 10); tags != nil {
		t.Errorf("expected nil on server error, got %+v", tags)
	}
}

func TestLookupTopTagsMissingInputs(t *testing.T) {
	service := newTestService("key-1", "http://unused.invalid")

	if tags := service.LookupTopTags(context.Background(), "", "Song", 10); tags != nil {
		t.Errorf("expected nil without artist, got %+v", tags)
	}
	if tags := service.LookupTopTags(context.Background(), "Artist", "", 10); tags != nil {
		t.Errorf("expected nil without track, got %+v", tags)
	}
}
