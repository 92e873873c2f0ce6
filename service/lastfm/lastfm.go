package lastfm

import (
	"context"
	"log"
	"net/url"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/ntoledo319/nous/httpx"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

// Tag is a crowd-sourced label with a relative weight.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	URL   string `json:"url,omitempty"`
}

type topTagsResponse struct {
	TopTags struct {
		Tag []Tag `json:"tag"`
	} `json:"toptags"`
}

// Service fetches crowd tags for a track. Like the other collectors it
// is best effort: a missing API key or any failure yields an empty
// slice, never an error.
type Service struct {
	apiKey  string
	limiter *rate.Limiter
	baseURL string
	logger  *log.Logger
}

func NewService(apiKey string) *Service {
	return &Service{
		apiKey: apiKey,
		// Last.fm unofficial rate limit is ~5 requests per second
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		baseURL: defaultBaseURL,
		logger:  log.New(os.Stdout, "lastfm: ", log.LstdFlags|log.Lmsgprefix),
	}
}

// Enabled reports whether an API key is configured.
func (s *Service) Enabled() bool {
	return s.apiKey != ""
}

// LookupTopTags returns up to limit crowd tags for an artist/track pair.
func (s *Service) LookupTopTags(ctx context.Context, artist, track string, limit int) []Tag {
	if !s.Enabled() || artist == "" || track == "" {
		return nil
	}
	if limit <= 0 {
		limit = 10
	}

	if err := s.limiter.Wait(ctx); err != nil {
		s.logger.Printf("rate limiter interrupted for %s - %s: %v", artist, track, err)
		return nil
	}

	params := url.Values{}
	params.Set("method", "track.gettoptags")
	params.Set("artist", artist)
	params.Set("track", track)
	params.Set("autocorrect", "1")
	params.Set("api_key", s.apiKey)
	params.Set("format", "json")

	var resp topTagsResponse
	if err := httpx.GetJSON(ctx, s.baseURL, params, nil, &resp); err != nil {
		s.logger.Printf("tag lookup failed for %s - %s: %v", artist, track, err)
		return nil
	}

	tags := resp.TopTags.Tag
	if len(tags) > limit {
		tags = tags[:limit]
	}

	if len(tags) == 0 {
		s.logger.Printf("no tags for %s - %s", artist, track)
	}

	return tags
}
