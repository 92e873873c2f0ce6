package musicbrainz

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/ntoledo319/nous/httpx"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2"

// MusicBrainz requires a descriptive User-Agent on every request.
const userAgent = "nous/0.1 ( https://github.com/ntoledo319/nous )"

type ArtistCredit struct {
	Name   string `json:"name"`
	Artist struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artist"`
}

type Recording struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Length       int            `json:"length,omitempty"` // milliseconds
	ISRCs        []string       `json:"isrcs,omitempty"`
	ArtistCredit []ArtistCredit `json:"artist-credit,omitempty"`
	Score        int            `json:"score,omitempty"`
}

type searchResponse struct {
	Count      int         `json:"count"`
	Recordings []Recording `json:"recordings"`
}

// Service looks up recording metadata by ISRC. Lookups are best effort:
// any failure (network, no match, malformed response) yields nil, never
// an error, so ingestion is never blocked on MusicBrainz.
type Service struct {
	limiter *rate.Limiter
	baseURL string
	logger  *log.Logger
}

func NewService() *Service {
	// MusicBrainz allows 1 request per second
	return &Service{
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		baseURL: defaultBaseURL,
		logger:  log.New(os.Stdout, "musicbrainz: ", log.LstdFlags|log.Lmsgprefix),
	}
}

// LookupRecording returns the best recording match for an ISRC, or nil
// when nothing was found or the lookup failed.
func (s *Service) LookupRecording(ctx context.Context, isrc string) *Recording {
	if isrc == "" {
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		s.logger.Printf("rate limiter interrupted for isrc %s: %v", isrc, err)
		return nil
	}

	params := url.Values{}
	params.Set("query", fmt.Sprintf("isrc:%s", isrc))
	params.Set("fmt", "json")

	var result searchResponse
	headers := map[string]string{"User-Agent": userAgent}
	if err := httpx.GetJSON(ctx, s.baseURL+"/recording", params, headers, &result); err != nil {
		s.logger.Printf("recording lookup failed for isrc %s: %v", isrc, err)
		return nil
	}

	if len(result.Recordings) == 0 {
		s.logger.Printf("no recording found for isrc %s", isrc)
		return nil
	}

	best := result.Recordings[0]
	return &best
}
