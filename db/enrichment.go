package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/ntoledo319/nous/models"
)

// UpsertEnrichment caches a lookup result for one (track, source) pair.
// An empty payload is stored as NULL; the row's existence is what marks
// the lookup as done.
func (db *DB) UpsertEnrichment(trackID, source string, payload json.RawMessage) error {
	var stored any
	if len(payload) > 0 && string(payload) != "null" {
		stored = string(payload)
	}

	_, err := db.Exec(`
	INSERT INTO enrichment_cache (track_id, source, payload, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(track_id, source) DO UPDATE SET
		payload = excluded.payload,
		updated_at = excluded.updated_at`,
		trackID, source, stored, time.Now())

	return err
}

// GetEnrichment returns the cached record for a (track, source) pair, or
// nil when the lookup has never run. A non-nil record with an empty
// payload means "looked up, found nothing".
func (db *DB) GetEnrichment(trackID, source string) (*models.EnrichmentRecord, error) {
	record := &models.EnrichmentRecord{TrackID: trackID, Source: source}
	var payload sql.NullString

	err := db.QueryRow(`
	SELECT payload, updated_at FROM enrichment_cache
	WHERE track_id = ? AND source = ?`, trackID, source).Scan(&payload, &record.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	if payload.Valid {
		record.Payload = json.RawMessage(payload.String)
	}

	return record, nil
}
