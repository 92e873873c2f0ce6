package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	spotifyauth "golang.org/x/oauth2/spotify"

	"github.com/ntoledo319/nous/db"
	"github.com/ntoledo319/nous/httpx"
	"github.com/ntoledo319/nous/models"
)

const defaultAPIBase = "https://api.spotify.com/v1"

// Service wraps the Spotify Web API: the OAuth token lifecycle plus thin
// typed calls for everything the ingestion and ritual pipelines need.
// The config fields are immutable after construction; all persisted
// state lives in the token store.
type Service struct {
	db           *db.DB
	clientID     string
	clientSecret string
	redirectURI  string
	scopes       []string

	// overridable for tests
	authURL  string
	tokenURL string
	apiBase  string

	logger *log.Logger
	now    func() time.Time
}

func NewService(database *db.DB, clientID, clientSecret, redirectURI string, scopes []string) *Service {
	return &Service{
		db:           database,
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		scopes:       scopes,
		authURL:      spotifyauth.Endpoint.AuthURL,
		tokenURL:     spotifyauth.Endpoint.TokenURL,
		apiBase:      defaultAPIBase,
		logger:       log.New(os.Stdout, "spotify: ", log.LstdFlags|log.Lmsgprefix),
		now:          time.Now,
	}
}

// AuthorizeURL builds the authorization redirect. State is caller-supplied;
// CSRF defense is the route layer's job.
func (s *Service) AuthorizeURL(state string, showDialog bool) string {
	cfg := oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		RedirectURL:  s.redirectURI,
		Scopes:       s.scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  s.authURL,
			TokenURL: s.tokenURL,
		},
	}

	var opts []oauth2.AuthCodeOption
	if showDialog {
		opts = append(opts, oauth2.SetAuthURLParam("show_dialog", "true"))
	}

	return cfg.AuthCodeURL(state, opts...)
}

func (s *Service) basicAuth() string {
	creds := s.clientID + ":" + s.clientSecret
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}

// ExchangeCode trades an authorization code for a token. ExpiresAt is
// computed with the 30 second safety margin already applied.
func (s *Service) ExchangeCode(ctx context.Context, code string) (*models.OAuthToken, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", s.redirectURI)

	var resp tokenResponse
	if err := httpx.PostFormJSON(ctx, s.tokenURL, data, map[string]string{"Authorization": s.basicAuth()}, &resp); err != nil {
		return nil, &AuthError{Op: "exchange code", Detail: httpDetail(err), Err: err}
	}

	return s.tokenFromResponse(&resp, ""), nil
}

// Refresh obtains a fresh access token. If the provider omits a new
// refresh token the original one is preserved.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.OAuthToken, error) {
	if refreshToken == "" {
		return nil, &AuthError{Op: "refresh", Detail: "no refresh token"}
	}

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	var resp tokenResponse
	if err := httpx.PostFormJSON(ctx, s.tokenURL, data, map[string]string{"Authorization": s.basicAuth()}, &resp); err != nil {
		return nil, &AuthError{Op: "refresh", Detail: httpDetail(err), Err: err}
	}

	return s.tokenFromResponse(&resp, refreshToken), nil
}

func (s *Service) tokenFromResponse(resp *tokenResponse, previousRefresh string) *models.OAuthToken {
	refresh := resp.RefreshToken
	if refresh == "" {
		refresh = previousRefresh
	}

	return &models.OAuthToken{
		AccessToken:  resp.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    s.now().Unix() + resp.ExpiresIn - int64(models.RefreshMargin/time.Second),
		Scope:        resp.Scope,
		TokenType:    resp.TokenType,
	}
}

// EnsureToken returns a usable access token for the user, refreshing and
// persisting transparently when the stored one has reached its
// margin-adjusted expiry.
func (s *Service) EnsureToken(ctx context.Context, userID int64) (string, error) {
	token, err := s.db.GetTokens(userID)
	if err != nil {
		return "", fmt.Errorf("loading token for user %d: %w", userID, err)
	}
	if token == nil {
		return "", &AuthError{Op: "ensure token", Detail: fmt.Sprintf("no token on file for user %d", userID)}
	}

	if !token.Expired(s.now()) {
		return token.AccessToken, nil
	}

	fresh, err := s.Refresh(ctx, token.RefreshToken)
	if err != nil {
		return "", err
	}

	fresh.UserID = userID
	if err := s.db.SaveTokens(fresh); err != nil {
		return "", fmt.Errorf("saving refreshed token for user %d: %w", userID, err)
	}

	s.logger.Printf("refreshed token for user %d", userID)
	return fresh.AccessToken, nil
}

// httpDetail pulls a provider-supplied detail string out of an httpx error.
func httpDetail(err error) string {
	var he *httpx.Error
	if errors.As(err, &he) && he.Body != "" {
		return he.Body
	}
	return err.Error()
}

func wrapAPI(err error) error {
	if err == nil {
		return nil
	}
	var he *httpx.Error
	if errors.As(err, &he) {
		return &APIError{Status: he.Status, Detail: httpDetail(err), Err: err}
	}
	return &APIError{Detail: err.Error(), Err: err}
}

func (s *Service) get(ctx context.Context, token, path string, params url.Values, out any) error {
	headers := map[string]string{"Authorization": "Bearer " + token}
	return wrapAPI(httpx.GetJSON(ctx, s.apiBase+path, params, headers, out))
}

func (s *Service) postJSON(ctx context.Context, token, path string, body, out any) error {
	headers := map[string]string{"Authorization": "Bearer " + token}
	return wrapAPI(httpx.PostJSON(ctx, s.apiBase+path, body, headers, out))
}

// Me fetches the authenticated user's profile.
func (s *Service) Me(ctx context.Context, token string) (*Profile, error) {
	var profile Profile
	if err := s.get(ctx, token, "/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// RecentlyPlayed returns the user's recently played tracks, newest first.
// The provider caps limit at 50.
func (s *Service) RecentlyPlayed(ctx context.Context, token string, limit int) ([]*models.Track, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Items []struct {
			Track    json.RawMessage `json:"track"`
			PlayedAt time.Time       `json:"played_at"`
		} `json:"items"`
	}
	if err := s.get(ctx, token, "/me/player/recently-played", params, &resp); err != nil {
		return nil, err
	}

	tracks := make([]*models.Track, 0, len(resp.Items))
	for _, item := range resp.Items {
		var obj trackObject
		if err := json.Unmarshal(item.Track, &obj); err != nil {
			s.logger.Printf("skipping malformed played item: %v", err)
			continue
		}
		tracks = append(tracks, obj.toModel(item.Track, item.PlayedAt))
	}

	return tracks, nil
}

// TopTracks returns the user's top tracks for the given time range
// ("short_term", "medium_term", "long_term").
func (s *Service) TopTracks(ctx context.Context, token, timeRange string, limit int) ([]*models.Track, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	params := url.Values{}
	params.Set("time_range", timeRange)
	params.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := s.get(ctx, token, "/me/top/tracks", params, &resp); err != nil {
		return nil, err
	}

	tracks := make([]*models.Track, 0, len(resp.Items))
	for _, raw := range resp.Items {
		var obj trackObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			continue
		}
		tracks = append(tracks, obj.toModel(raw, time.Time{}))
	}

	return tracks, nil
}

// AudioFeatures fetches feature vectors for up to 100 track ids.
func (s *Service) AudioFeatures(ctx context.Context, token string, ids []string) ([]*AudioFeatures, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))

	var resp struct {
		AudioFeatures []*AudioFeatures `json:"audio_features"`
	}
	if err := s.get(ctx, token, "/audio-features", params, &resp); err != nil {
		return nil, err
	}

	// null entries appear for unknown ids
	features := make([]*AudioFeatures, 0, len(resp.AudioFeatures))
	for _, f := range resp.AudioFeatures {
		if f != nil {
			features = append(features, f)
		}
	}

	return features, nil
}

// Recommendations requests tracks for the given seeds with the target's
// tuneable audio-feature constraints passed through verbatim.
func (s *Service) Recommendations(ctx context.Context, token string, seeds Seeds, limit int, tuneables map[string]float64) ([]*models.Track, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if len(seeds.Tracks) > 0 {
		params.Set("seed_tracks", strings.Join(seeds.Tracks, ","))
	}
	if len(seeds.Artists) > 0 {
		params.Set("seed_artists", strings.Join(seeds.Artists, ","))
	}
	if len(seeds.Genres) > 0 {
		params.Set("seed_genres", strings.Join(seeds.Genres, ","))
	}
	for name, value := range tuneables {
		params.Set(name, strconv.FormatFloat(value, 'f', -1, 64))
	}

	var resp struct {
		Tracks []json.RawMessage `json:"tracks"`
	}
	if err := s.get(ctx, token, "/recommendations", params, &resp); err != nil {
		return nil, err
	}

	tracks := make([]*models.Track, 0, len(resp.Tracks))
	for _, raw := range resp.Tracks {
		var obj trackObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			continue
		}
		tracks = append(tracks, obj.toModel(raw, time.Time{}))
	}

	return tracks, nil
}

// CreatePlaylist creates a playlist owned by the given Spotify user.
func (s *Service) CreatePlaylist(ctx context.Context, token, spotifyUserID, name, description string, public bool) (*Playlist, error) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	var resp struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		URI          string `json:"uri"`
		ExternalURLs struct {
			Spotify string `json:"spotify"`
		} `json:"external_urls"`
	}
	path := fmt.Sprintf("/users/%s/playlists", url.PathEscape(spotifyUserID))
	if err := s.postJSON(ctx, token, path, body, &resp); err != nil {
		return nil, err
	}

	return &Playlist{ID: resp.ID, Name: resp.Name, URI: resp.URI, URL: resp.ExternalURLs.Spotify}, nil
}

// AddTracksToPlaylist appends track URIs to an existing playlist.
func (s *Service) AddTracksToPlaylist(ctx context.Context, token, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}

	body := map[string]any{"uris": uris}
	path := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.postJSON(ctx, token, path, body, nil)
}
