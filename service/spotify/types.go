package spotify

import (
	"encoding/json"
	"time"

	"github.com/ntoledo319/nous/models"
)

// Profile is the authenticated user's own profile.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// Playlist is the subset of the playlist object we care about.
type Playlist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
	URL  string `json:"-"`
}

// AudioFeatures is the per-track feature vector the ingestion pipeline
// folds into its semantic documents.
type AudioFeatures struct {
	ID               string  `json:"id"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Speechiness      float64 `json:"speechiness"`
}

// Seeds are the inputs to a recommendations call. At least one of the
// three lists must be non-empty; the provider caps their combined size
// at five.
type Seeds struct {
	Tracks  []string
	Artists []string
	Genres  []string
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

// trackObject mirrors the provider's track JSON.
type trackObject struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URI     string `json:"uri"`
	Artists []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name string `json:"name"`
	} `json:"album"`
	ExternalIDs struct {
		ISRC string `json:"isrc"`
	} `json:"external_ids"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
	DurationMs int64 `json:"duration_ms"`
}

func (t *trackObject) toModel(raw json.RawMessage, playedAt time.Time) *models.Track {
	artists := make([]models.Artist, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, models.Artist{Name: a.Name, ID: a.ID})
	}

	return &models.Track{
		ID:         t.ID,
		Name:       t.Name,
		Artists:    artists,
		Album:      t.Album.Name,
		URL:        t.ExternalURLs.Spotify,
		URI:        t.URI,
		ISRC:       t.ExternalIDs.ISRC,
		DurationMs: t.DurationMs,
		PlayedAt:   playedAt,
		Raw:        raw,
	}
}
