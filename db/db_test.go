package db

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ntoledo319/nous/models"
)

func setupTestDB(t *testing.T) *DB {
	database, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := database.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	return database
}

func TestTokenRoundTrip(t *testing.T) {
	database := setupTestDB(t)

	token := &models.OAuthToken{
		UserID:       1,
		AccessToken:  "acc-1",
		RefreshToken: "ref-1",
		ExpiresAt:    time.Now().Add(time.Hour).Unix(),
		Scope:        "user-read-recently-played",
		TokenType:    "Bearer",
	}

	if err := database.SaveTokens(token); err != nil {
		t.Fatalf("SaveTokens returned error: %v", err)
	}

	got, err := database.GetTokens(1)
	if err != nil {
		t.Fatalf("GetTokens returned error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a stored token")
	}
	if got.AccessToken != "acc-1" || got.RefreshToken != "ref-1" {
		t.Errorf("unexpected token: %+v", got)
	}
	if got.ExpiresAt != token.ExpiresAt || got.Scope != token.Scope {
		t.Errorf("unexpected token fields: %+v", got)
	}
}

func TestSaveTokensOverwrites(t *testing.T) {
	database := setupTestDB(t)

	first := &models.OAuthToken{UserID: 1, AccessToken: "old", RefreshToken: "ref", ExpiresAt: 100}
	if err := database.SaveTokens(first); err != nil {
		t.Fatalf("SaveTokens returned error: %v", err)
	}

	second := &models.OAuthToken{UserID: 1, AccessToken: "new", RefreshToken: "ref-2", ExpiresAt: 200}
	if err := database.SaveTokens(second); err != nil {
		t.Fatalf("second SaveTokens returned error: %v", err)
	}

	got, err := database.GetTokens(1)
	if err != nil {
		t.Fatalf("GetTokens returned error: %v", err)
	}
	if got.AccessToken != "new" || got.RefreshToken != "ref-2" || got.ExpiresAt != 200 {
		t.Errorf("expected the second token to win, got %+v", got)
	}
}

func TestGetTokensMissingUser(t *testing.T) {
	database := setupTestDB(t)

	got, err := database.GetTokens(42)
	if err != nil {
		t.Fatalf("GetTokens returned error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for a user without tokens, got %+v", got)
	}
}

func TestDeleteTokens(t *testing.T) {
	database := setupTestDB(t)

	token := &models.OAuthToken{UserID: 1, AccessToken: "acc", RefreshToken: "ref", ExpiresAt: 100}
	if err := database.SaveTokens(token); err != nil {
		t.Fatalf("SaveTokens returned error: %v", err)
	}

	if err := database.DeleteTokens(1); err != nil {
		t.Fatalf("DeleteTokens returned error: %v", err)
	}

	got, err := database.GetTokens(1)
	if err != nil {
		t.Fatalf("GetTokens returned error: %v", err)
	}
	if got != nil {
		t.Errorf("expected tokens gone after delete, got %+v", got)
	}
}

func TestTrackCacheRoundTrip(t *testing.T) {
	database := setupTestDB(t)

	payload := json.RawMessage(`{"id": "t1", "name": "First Song"}`)
	if err := database.UpsertTrack("t1", payload); err != nil {
		t.Fatalf("UpsertTrack returned error: %v", err)
	}

	got, err := database.GetTrack("t1")
	if err != nil {
		t.Fatalf("GetTrack returned error: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("expected payload preserved verbatim, got %s", got)
	}

	miss, err := database.GetTrack("nope")
	if err != nil {
		t.Fatalf("GetTrack returned error: %v", err)
	}
	if miss != nil {
		t.Errorf("expected nil on a miss, got %s", miss)
	}
}

func TestEnrichmentEmptyVsMissing(t *testing.T) {
	database := setupTestDB(t)

	// never looked up: nil record
	got, err := database.GetEnrichment("t1", models.SourceMusicBrainz)
	if err != nil {
		t.Fatalf("GetEnrichment returned error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil before any lookup, got %+v", got)
	}

	// looked up, found nothing: non-nil record with an empty payload
	if err := database.UpsertEnrichment("t1", models.SourceMusicBrainz, nil); err != nil {
		t.Fatalf("UpsertEnrichment returned error: %v", err)
	}
	got, err = database.GetEnrichment("t1", models.SourceMusicBrainz)
	if err != nil {
		t.Fatalf("GetEnrichment returned error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a record marking the lookup as done")
	}
	if !got.Empty() {
		t.Errorf("expected an empty record, got payload %s", got.Payload)
	}

	// a JSON null payload is also treated as empty
	if err := database.UpsertEnrichment("t2", models.SourceMusicBrainz, json.RawMessage("null")); err != nil {
		t.Fatalf("UpsertEnrichment returned error: %v", err)
	}
	got, err = database.GetEnrichment("t2", models.SourceMusicBrainz)
	if err != nil {
		t.Fatalf("GetEnrichment returned error: %v", err)
	}
	if got == nil || !got.Empty() {
		t.Errorf("expected a null payload stored as empty, got %+v", got)
	}
}

func TestEnrichmentPerSource(t *testing.T) {
	database := setupTestDB(t)

	mb := json.RawMessage(`{"id": "mb-rec-1"}`)
	tags := json.RawMessage(`[{"name": "indie rock"}]`)
	if err := database.UpsertEnrichment("t1", models.SourceMusicBrainz, mb); err != nil {
		t.Fatalf("UpsertEnrichment returned error: %v", err)
	}
	if err := database.UpsertEnrichment("t1", models.SourceLastFMTags, tags); err != nil {
		t.Fatalf("UpsertEnrichment returned error: %v", err)
	}

	got, err := database.GetEnrichment("t1", models.SourceMusicBrainz)
	if err != nil {
		t.Fatalf("GetEnrichment returned error: %v", err)
	}
	if got == nil || string(got.Payload) != string(mb) {
		t.Errorf("unexpected musicbrainz payload: %+v", got)
	}

	got, err = database.GetEnrichment("t1", models.SourceLastFMTags)
	if err != nil {
		t.Fatalf("GetEnrichment returned error: %v", err)
	}
	if got == nil || string(got.Payload) != string(tags) {
		t.Errorf("unexpected tags payload: %+v", got)
	}
}

func TestLyricsRoundTrip(t *testing.T) {
	database := setupTestDB(t)

	record := &models.LyricsAnalysis{
		TrackID:  "t1",
		Provider: "ovh",
		Analysis: models.Analysis{
			HasLyrics: true,
			WordCount: 120,
			Sentiment: 0.25,
			Keywords:  []string{"light", "home"},
			Themes:    []string{"hope"},
			Excerpt:   "walking toward the light",
		},
	}

	if err := database.UpsertLyrics(record); err != nil {
		t.Fatalf("UpsertLyrics returned error: %v", err)
	}

	got, err := database.GetLyrics("t1")
	if err != nil {
		t.Fatalf("GetLyrics returned error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a stored analysis")
	}
	if got.Provider != "ovh" || !got.Analysis.HasLyrics || got.Analysis.WordCount != 120 {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.Analysis.Sentiment != 0.25 || len(got.Analysis.Keywords) != 2 {
		t.Errorf("unexpected analysis: %+v", got.Analysis)
	}
	if got.FullLyrics != "" {
		t.Errorf("full lyrics must stay empty unless stored, got %q", got.FullLyrics)
	}

	miss, err := database.GetLyrics("nope")
	if err != nil {
		t.Fatalf("GetLyrics returned error: %v", err)
	}
	if miss != nil {
		t.Errorf("expected nil on a miss, got %+v", miss)
	}
}

func TestMoodEvents(t *testing.T) {
	database := setupTestDB(t)

	older := &models.MoodEvent{UserID: 1, Score: 4, Note: "meh", LoggedAt: time.Now().Add(-48 * time.Hour)}
	newer := &models.MoodEvent{UserID: 1, Score: 7, Note: "better", LoggedAt: time.Now().Add(-1 * time.Hour)}
	ancient := &models.MoodEvent{UserID: 1, Score: 2, LoggedAt: time.Now().Add(-30 * 24 * time.Hour)}
	other := &models.MoodEvent{UserID: 2, Score: 9, LoggedAt: time.Now()}

	for _, event := range []*models.MoodEvent{older, newer, ancient, other} {
		if err := database.AddMoodEvent(event); err != nil {
			t.Fatalf("AddMoodEvent returned error: %v", err)
		}
	}

	events, err := database.RecentMoodEvents(1, time.Now().Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("RecentMoodEvents returned error: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events in the window, got %d", len(events))
	}
	if events[0].Score != 7 || events[1].Score != 4 {
		t.Errorf("expected newest first, got %+v", events)
	}
}

func TestUserLifecycle(t *testing.T) {
	database := setupTestDB(t)

	spotifyID := "spotify-user"
	email := "user@example.com"
	id, err := database.CreateUser(&models.User{
		Username:  "Tester",
		Email:     &email,
		SpotifyID: &spotifyID,
	})
	if err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	byProvider, err := database.GetUserBySpotifyID("spotify-user")
	if err != nil {
		t.Fatalf("GetUserBySpotifyID returned error: %v", err)
	}
	if byProvider == nil || byProvider.ID != id {
		t.Errorf("unexpected user: %+v", byProvider)
	}

	byID, err := database.GetUser(id)
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if byID == nil || byID.Username != "Tester" {
		t.Errorf("unexpected user: %+v", byID)
	}

	missing, err := database.GetUserBySpotifyID("unknown")
	if err != nil {
		t.Fatalf("GetUserBySpotifyID returned error: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for an unknown provider id, got %+v", missing)
	}
}
