package models

import (
	"encoding/json"
	"time"
)

// Enrichment sources. One row per (track, source) in the cache.
const (
	SourceMusicBrainz = "musicbrainz"
	SourceLastFMTags  = "lastfm_tags"
)

// EnrichmentRecord is a cached lookup result for one track and source.
// An empty Payload is still a valid record: it means the lookup ran and
// found nothing, and the cache should not retry it.
type EnrichmentRecord struct {
	TrackID   string          `json:"track_id"`
	Source    string          `json:"source"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Empty reports whether the cached lookup found no data.
func (e *EnrichmentRecord) Empty() bool {
	return len(e.Payload) == 0 || string(e.Payload) == "null"
}
