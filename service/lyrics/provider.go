package lyrics

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Result is a fetched lyrics text plus the provider that supplied it.
type Result struct {
	Provider string `json:"provider"`
	Lyrics   string `json:"lyrics"`
}

// Provider fetches lyrics for a track. Implementations return (nil, nil)
// when lyrics simply aren't available; errors are reserved for genuine
// failures the caller may want to log.
type Provider interface {
	Fetch(ctx context.Context, artist, title string) (*Result, error)
	Name() string
}

// OvhProvider is the free keyless lyrics.ovh-style endpoint:
// GET /v1/{artist}/{title}.
type OvhProvider struct {
	client  *resty.Client
	baseURL string
	logger  *log.Logger
}

func NewOvhProvider() *OvhProvider {
	return &OvhProvider{
		client:  resty.New().SetTimeout(20 * time.Second),
		baseURL: "https://api.lyrics.ovh",
		logger:  log.New(os.Stdout, "lyrics: ", log.LstdFlags|log.Lmsgprefix),
	}
}

func (p *OvhProvider) Name() string { return "lyrics.ovh" }

func (p *OvhProvider) Fetch(ctx context.Context, artist, title string) (*Result, error) {
	if artist == "" || title == "" {
		return nil, nil
	}

	var body struct {
		Lyrics string `json:"lyrics"`
		Error  string `json:"error"`
	}

	endpoint := fmt.Sprintf("%s/v1/%s/%s", p.baseURL, url.PathEscape(artist), url.PathEscape(title))
	resp, err := p.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetching lyrics for %s - %s: %w", artist, title, err)
	}

	if resp.IsError() || body.Lyrics == "" {
		p.logger.Printf("no lyrics for %s - %s (status %d)", artist, title, resp.StatusCode())
		return nil, nil
	}

	return &Result{Provider: p.Name(), Lyrics: body.Lyrics}, nil
}

// trailingMarker is the footer some keyed providers append to raw lyrics.
const trailingMarker = "*******"

// KeyedProvider is a user-keyed lyrics API with the two-step
// search-then-fetch shape: search by artist/track, then fetch the lyric
// body by id. Anything after the trailing metadata marker is stripped.
type KeyedProvider struct {
	client  *resty.Client
	apiKey  string
	baseURL string
	logger  *log.Logger
}

func NewKeyedProvider(apiKey string) *KeyedProvider {
	return &KeyedProvider{
		client:  resty.New().SetTimeout(20 * time.Second),
		apiKey:  apiKey,
		baseURL: "https://api.lyrics.example.com",
		logger:  log.New(os.Stdout, "lyrics: ", log.LstdFlags|log.Lmsgprefix),
	}
}

func (p *KeyedProvider) Name() string { return "keyed" }

// Enabled reports whether an API key is configured.
func (p *KeyedProvider) Enabled() bool { return p.apiKey != "" }

func (p *KeyedProvider) Fetch(ctx context.Context, artist, title string) (*Result, error) {
	if !p.Enabled() || artist == "" || title == "" {
		return nil, nil
	}

	var search struct {
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"artist":  artist,
			"track":   title,
			"api_key": p.apiKey,
		}).
		SetResult(&search).
		Get(p.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("lyrics search for %s - %s: %w", artist, title, err)
	}
	if resp.IsError() || len(search.Results) == 0 {
		return nil, nil
	}

	var fetched struct {
		Lyrics string `json:"lyrics"`
	}
	resp, err = p.client.R().
		SetContext(ctx).
		SetQueryParam("api_key", p.apiKey).
		SetResult(&fetched).
		Get(p.baseURL + "/lyrics/" + url.PathEscape(search.Results[0].ID))
	if err != nil {
		return nil, fmt.Errorf("lyrics fetch for %s - %s: %w", artist, title, err)
	}
	if resp.IsError() || fetched.Lyrics == "" {
		return nil, nil
	}

	text := fetched.Lyrics
	if idx := strings.Index(text, trailingMarker); idx >= 0 {
		text = strings.TrimSpace(text[:idx])
	}
	if text == "" {
		return nil, nil
	}

	return &Result{Provider: p.Name(), Lyrics: text}, nil
}

// UserProvider serves caller-supplied lyrics text, keyed by artist/title,
// skipping network I/O entirely.
type UserProvider struct {
	texts map[string]string
}

func NewUserProvider() *UserProvider {
	return &UserProvider{texts: make(map[string]string)}
}

func userKey(artist, title string) string {
	return strings.ToLower(artist) + "\x00" + strings.ToLower(title)
}

// Supply registers lyrics text for a track.
func (p *UserProvider) Supply(artist, title, text string) {
	p.texts[userKey(artist, title)] = text
}

func (p *UserProvider) Name() string { return "user" }

func (p *UserProvider) Fetch(ctx context.Context, artist, title string) (*Result, error) {
	text, ok := p.texts[userKey(artist, title)]
	if !ok || text == "" {
		return nil, nil
	}
	return &Result{Provider: p.Name(), Lyrics: text}, nil
}

// Chain tries providers in order and returns the first hit: user-supplied
// text wins over any networked provider.
type Chain struct {
	providers []Provider
	logger    *log.Logger
}

func NewChain(providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		logger:    log.New(os.Stdout, "lyrics: ", log.LstdFlags|log.Lmsgprefix),
	}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Fetch(ctx context.Context, artist, title string) (*Result, error) {
	for _, p := range c.providers {
		result, err := p.Fetch(ctx, artist, title)
		if err != nil {
			c.logger.Printf("provider %s failed for %s - %s: %v", p.Name(), artist, title, err)
			continue
		}
		if result != nil {
			return result, nil
		}
	}
	return nil, nil
}
