package db

import (
	"database/sql"
	"encoding/json"
	"time"
)

// UpsertTrack stores the raw provider payload for a track, overwriting
// any previous payload for the same id.
func (db *DB) UpsertTrack(trackID string, payload json.RawMessage) error {
	_, err := db.Exec(`
	INSERT INTO track_cache (track_id, payload, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(track_id) DO UPDATE SET
		payload = excluded.payload,
		updated_at = excluded.updated_at`,
		trackID, string(payload), time.Now())

	return err
}

// GetTrack returns the cached raw payload for a track, or nil on a miss.
func (db *DB) GetTrack(trackID string) (json.RawMessage, error) {
	var payload string

	err := db.QueryRow(`
	SELECT payload FROM track_cache WHERE track_id = ?`, trackID).Scan(&payload)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return json.RawMessage(payload), nil
}
