package models

import (
	"encoding/json"
	"time"
)

type Artist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Track is the normalized view of a provider track plus the raw payload
// as returned by the API. Raw is what gets cached; the extracted fields
// exist so that enrichment and seed selection don't have to re-parse it.
type Track struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []Artist        `json:"artists"`
	Album      string          `json:"album"`
	URL        string          `json:"url"`
	URI        string          `json:"uri"`
	ISRC       string          `json:"isrc,omitempty"`
	DurationMs int64           `json:"duration_ms"`
	PlayedAt   time.Time       `json:"played_at,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

// FirstArtist returns the primary artist name, or "" for an empty credit.
func (t *Track) FirstArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].Name
}
