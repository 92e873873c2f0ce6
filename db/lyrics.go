package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/ntoledo319/nous/models"
)

// UpsertLyrics caches an analysis for a track. FullLyrics is persisted
// only if the record carries it; callers enforce the storage policy.
func (db *DB) UpsertLyrics(record *models.LyricsAnalysis) error {
	analysis, err := json.Marshal(record.Analysis)
	if err != nil {
		return err
	}

	var fullLyrics any
	if record.FullLyrics != "" {
		fullLyrics = record.FullLyrics
	}

	_, err = db.Exec(`
	INSERT INTO lyrics_cache (track_id, provider, analysis, full_lyrics, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(track_id) DO UPDATE SET
		provider = excluded.provider,
		analysis = excluded.analysis,
		full_lyrics = excluded.full_lyrics,
		updated_at = excluded.updated_at`,
		record.TrackID, record.Provider, string(analysis), fullLyrics, time.Now())

	return err
}

// GetLyrics returns the cached analysis for a track, or nil on a miss.
func (db *DB) GetLyrics(trackID string) (*models.LyricsAnalysis, error) {
	record := &models.LyricsAnalysis{TrackID: trackID}
	var analysis string
	var fullLyrics sql.NullString

	err := db.QueryRow(`
	SELECT provider, analysis, full_lyrics, updated_at FROM lyrics_cache
	WHERE track_id = ?`, trackID).Scan(&record.Provider, &analysis, &fullLyrics, &record.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(analysis), &record.Analysis); err != nil {
		return nil, err
	}

	if fullLyrics.Valid {
		record.FullLyrics = fullLyrics.String
	}

	return record, nil
}
