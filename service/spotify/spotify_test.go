package spotify

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ntoledo319/nous/db"
	"github.com/ntoledo319/nous/models"
)

// ===== Test Helpers =====

func setupTestDB(t *testing.T) *db.DB {
	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := database.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	return database
}

func newTestService(database *db.DB, serverURL string) *Service {
	return &Service{
		db:           database,
		clientID:     "test-client",
		clientSecret: "test-secret",
		redirectURI:  "http://localhost/callback/spotify",
		scopes:       []string{"user-read-recently-played"},
		authURL:      serverURL + "/authorize",
		tokenURL:     serverURL + "/api/token",
		apiBase:      serverURL,
		logger:       log.New(io.Discard, "", 0),
		now:          time.Now,
	}
}

func expectBasicAuth(t *testing.T, r *http.Request) {
	t.Helper()
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("test-client:test-secret"))
	if got := r.Header.Get("Authorization"); got != want {
		t.Errorf("expected basic auth header %q, got %q", want, got)
	}
}

// ===== AuthorizeURL Tests =====

func TestAuthorizeURL(t *testing.T) {
	service := newTestService(nil, "https://accounts.example.com")

	got := service.AuthorizeURL("state-abc", false)

	for _, fragment := range []string{
		"client_id=test-client",
		"state=state-abc",
		"response_type=code",
		"user-read-recently-played",
	} {
		if !strings.Contains(got, fragment) {
			t.Errorf("authorize URL missing %q: %s", fragment, got)
		}
	}
	if strings.Contains(got, "show_dialog") {
		t.Errorf("show_dialog should be absent: %s", got)
	}

	withDialog := service.AuthorizeURL("state-abc", true)
	if !strings.Contains(withDialog, "show_dialog=true") {
		t.Errorf("expected show_dialog=true: %s", withDialog)
	}
}

// ===== Token Lifecycle Tests =====

func TestExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/token" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		expectBasicAuth(t, r)
		r.ParseForm()
		if r.PostForm.Get("grant_type") != "authorization_code" {
			t.Errorf("expected grant_type=authorization_code, got %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("code") != "auth-code-1" {
			t.Errorf("expected code=auth-code-1, got %q", r.PostForm.Get("code"))
		}
		w.Write([]byte(`{
			"access_token": "acc-1",
			"refresh_token": "ref-1",
			"expires_in": 3600,
			"scope": "user-read-recently-played",
			"token_type": "Bearer"
		}`))
	}))
	defer server.Close()

	service := newTestService(nil, server.URL)
	before := time.Now().Unix()

	token, err := service.ExchangeCode(context.Background(), "auth-code-1")
	if err != nil {
		t.Fatalf("ExchangeCode returned error: %v", err)
	}

	if token.AccessToken != "acc-1" || token.RefreshToken != "ref-1" {
		t.Errorf("unexpected token: %+v", token)
	}
	if token.Scope != "user-read-recently-played" {
		t.Errorf("unexpected scope: %q", token.Scope)
	}

	// expires_at = now + expires_in - 30s margin
	wantMin := before + 3600 - 31
	wantMax := time.Now().Unix() + 3600 - 29
	if token.ExpiresAt < wantMin || token.ExpiresAt > wantMax {
		t.Errorf("expires_at %d outside [%d, %d]", token.ExpiresAt, wantMin, wantMax)
	}
}

func TestExchangeCodeFailureIsAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid_grant"}`))
	}))
	defer server.Close()

	service := newTestService(nil, server.URL)

	_, err := service.ExchangeCode(context.Background(), "bad-code")
	if err == nil {
		t.Fatal("expected error")
	}

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %T: %v", err, err)
	}
	if !strings.Contains(authErr.Detail, "invalid_grant") {
		t.Errorf("expected provider detail in auth error, got %q", authErr.Detail)
	}
}

func TestRefreshPreservesOriginalRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expectBasicAuth(t, r)
		r.ParseForm()
		if r.PostForm.Get("grant_type") != "refresh_token" {
			t.Errorf("expected grant_type=refresh_token, got %q", r.PostForm.Get("grant_type"))
		}
		// provider omits refresh_token in the refresh response
		w.Write([]byte(`{"access_token": "acc-2", "expires_in": 3600, "token_type": "Bearer"}`))
	}))
	defer server.Close()

	service := newTestService(nil, server.URL)

	token, err := service.Refresh(context.Background(), "original-refresh")
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}

	if token.RefreshToken != "original-refresh" {
		t.Errorf("expected original refresh token preserved, got %q", token.RefreshToken)
	}
	if token.AccessToken != "acc-2" {
		t.Errorf("expected new access token, got %q", token.AccessToken)
	}
}

func TestRefreshWithoutTokenIsAuthError(t *testing.T) {
	service := newTestService(nil, "https://accounts.example.com")

	_, err := service.Refresh(context.Background(), "")

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %T", err)
	}
}

func TestEnsureTokenRefreshesExpired(t *testing.T) {
	var refreshCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		w.Write([]byte(`{"access_token": "fresh-acc", "expires_in": 3600, "token_type": "Bearer"}`))
	}))
	defer server.Close()

	database := setupTestDB(t)
	service := newTestService(database, server.URL)

	expired := &models.OAuthToken{
		UserID:       7,
		AccessToken:  "stale-acc",
		RefreshToken: "ref-keep",
		ExpiresAt:    time.Now().Unix() - 100,
		Scope:        "user-read-recently-played",
	}
	if err := database.SaveTokens(expired); err != nil {
		t.Fatalf("failed to seed token: %v", err)
	}

	access, err := service.EnsureToken(context.Background(), 7)
	if err != nil {
		t.Fatalf("EnsureToken returned error: %v", err)
	}
	if access != "fresh-acc" {
		t.Errorf("expected refreshed access token, got %q", access)
	}
	if refreshCalls != 1 {
		t.Errorf("expected 1 refresh call, got %d", refreshCalls)
	}

	stored, err := database.GetTokens(7)
	if err != nil {
		t.Fatalf("GetTokens returned error: %v", err)
	}
	if stored.AccessToken != "fresh-acc" {
		t.Errorf("expected refreshed token persisted, got %q", stored.AccessToken)
	}
	if stored.RefreshToken != "ref-keep" {
		t.Errorf("expected original refresh token preserved, got %q", stored.RefreshToken)
	}
	if stored.ExpiresAt <= time.Now().Unix() {
		t.Errorf("expected expires_at in the future, got %d", stored.ExpiresAt)
	}
}

func TestEnsureTokenUsesValidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no HTTP call expected for a valid token")
	}))
	defer server.Close()

	database := setupTestDB(t)
	service := newTestService(database, server.URL)

	valid := &models.OAuthToken{
		UserID:       3,
		AccessToken:  "still-good",
		RefreshToken: "ref",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
	}
	if err := database.SaveTokens(valid); err != nil {
		t.Fatalf("failed to seed token: %v", err)
	}

	access, err := service.EnsureToken(context.Background(), 3)
	if err != nil {
		t.Fatalf("EnsureToken returned error: %v", err)
	}
	if access != "still-good" {
		t.Errorf("expected stored access token, got %q", access)
	}
}

func TestEnsureTokenWithoutStoredToken(t *testing.T) {
	database := setupTestDB(t)
	service := newTestService(database, "https://accounts.example.com")

	_, err := service.EnsureToken(context.Background(), 99)

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError for unknown user, got %T: %v", err, err)
	}
}

// ===== API Wrapper Tests =====

func TestRecentlyPlayed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/player/recently-played" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "2" {
			t.Errorf("expected limit=2, got %q", got)
		}
		w.Write([]byte(`{
			"items": [
				{
					"played_at": "2026-08-29T08:00:00Z",
					"track": {
						"id": "t1",
						"name": "First Song",
						"uri": "spotify:track:t1",
						"duration_ms": 201000,
						"artists": [{"id": "a1", "name": "Artist One"}],
						"album": {"name": "Album One"},
						"external_ids": {"isrc": "US1234567890"},
						"external_urls": {"spotify": "https://open.spotify.com/track/t1"}
					}
				},
				{
					"played_at": "2026-08-29T07:55:00Z",
					"track": {
						"id": "t2",
						"name": "Second Song",
						"artists": [{"id": "a2", "name": "Artist Two"}],
						"album": {"name": "Album Two"}
					}
				}
			]
		}`))
	}))
	defer server.Close()

	service := newTestService(nil, server.URL)

	tracks, err := service.RecentlyPlayed(context.Background(), "tok", 2)
	if err != nil {
		t.Fatalf("RecentlyPlayed returned error: %v", err)
	}

	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	first := tracks[0]
	if first.ID != "t1" || first.Name != "First Song" || first.ISRC != "US1234567890" {
		t.Errorf("unexpected first track: %+v", first)
	}
	if first.FirstArtist() != "Artist One" {
		t.Errorf("unexpected artist: %q", first.FirstArtist())
	}
	if first.PlayedAt.IsZero() {
		t.Error("expected played_at to be set")
	}
	if len(first.Raw) == 0 {
		t.Error("expected raw payload to be kept")
	}
	if tracks[1].ISRC != "" {
		t.Errorf("expected empty ISRC for second track, got %q", tracks[1].ISRC)
	}
}

func TestAPIErrorCarriesProviderDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"status": 429, "message": "rate limited"}}`))
	}))
	defer server.Close()

	service := newTestService(nil, server.URL)

	_, err := service.RecentlyPlayed(context.Background(), "tok", 10)
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", apiErr.Status)
	}
	if !strings.Contains(apiErr.Detail, "rate limited") {
		t.Errorf("expected provider detail, got %q", apiErr.Detail)
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		t.Error("API error must not satisfy *AuthError")
	}
}

func TestAudioFeatures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio-features" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ids"); got != "t1,t2,t3" {
			t.Errorf("expected ids=t1,t2,t3, got %q", got)
		}
		// unknown ids come back as null entries
		w.Write([]byte(`{
			"audio_features": [
				{"id": "t1", "energy": 0.82, "valence": 0.45, "danceability": 0.7, "tempo": 120.0},
				null,
				{"id": "t3", "energy": 0.2, "valence": 0.9, "acousticness": 0.8, "tempo": 84.0}
			]
		}`))
	}))
	defer server.Close()

	service := newTestService(nil, server.URL)

	features, err := service.AudioFeatures(context.Background(), "tok", []string{"t1", "t2", "t3"})
	if err != nil {
		t.Fatalf("AudioFeatures returned error: %v", err)
	}

	if len(features) != 2 {
		t.Fatalf("expected null entries filtered, got %d features", len(features))
	}
	if features[0].ID != "t1" || features[0].Energy != 0.82 {
		t.Errorf("unexpected first feature: %+v", features[0])
	}
	if features[1].ID != "t3" || features[1].Tempo != 84 {
		t.Errorf("unexpected second feature: %+v", features[1])
	}
}

func TestAudioFeaturesEmptyInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no HTTP call expected for empty ids")
	}))
	defer server.Close()

	service := newTestService(nil, server.URL)

	features, err := service.AudioFeatures(context.Background(), "tok", nil)
	if err != nil || features != nil {
		t.Errorf("expected nil/nil for empty ids, got %v, %v", features, err)
	}
}

func TestRecommendationsPassesSeedsAndTuneables(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("seed_tracks") != "t1,t2" {
			t.Errorf("expected seed_tracks=t1,t2, got %q", q.Get("seed_tracks"))
		}
		if q.Get("min_valence") != "0.6" {
			t.Errorf("expected min_valence=0.6, got %q", q.Get("min_valence"))
		}
		if q.Get("max_tempo") != "110" {
			t.Errorf("expected max_tempo=110, got %q", q.Get("max_tempo"))
		}
		w.Write([]byte(`{"tracks": [{"id": "r1", "name": "Rec One", "uri": "spotify:track:r1"}]}`))
	}))
	defer server.Close()

	service := newTestService(nil, server.URL)

	tracks, err := service.Recommendations(context.Background(), "tok",
		Seeds{Tracks: []string{"t1", "t2"}}, 20,
		map[string]float64{"min_valence": 0.6, "max_tempo": 110})
	if err != nil {
		t.Fatalf("Recommendations returned error: %v", err)
	}
	if len(tracks) != 1 || tracks[0].ID != "r1" {
		t.Errorf("unexpected tracks: %+v", tracks)
	}
}

func TestCreatePlaylistAndAddTracks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/spotify-user/playlists":
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), `"name":"NOUS Ritual: sleep (night)"`) {
				t.Errorf("unexpected create body: %s", body)
			}
			w.Write([]byte(`{"id": "pl1", "name": "NOUS Ritual: sleep (night)", "uri": "spotify:playlist:pl1", "external_urls": {"spotify": "https://open.spotify.com/playlist/pl1"}}`))
		case "/playlists/pl1/tracks":
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), "spotify:track:r1") {
				t.Errorf("unexpected add-tracks body: %s", body)
			}
			w.Write([]byte(`{"snapshot_id": "snap"}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	service := newTestService(nil, server.URL)

	playlist, err := service.CreatePlaylist(context.Background(), "tok", "spotify-user", "NOUS Ritual: sleep (night)", "desc", false)
	if err != nil {
		t.Fatalf("CreatePlaylist returned error: %v", err)
	}
	if playlist.ID != "pl1" {
		t.Errorf("unexpected playlist: %+v", playlist)
	}

	if err := service.AddTracksToPlaylist(context.Background(), "tok", "pl1", []string{"spotify:track:r1"}); err != nil {
		t.Fatalf("AddTracksToPlaylist returned error: %v", err)
	}
}
