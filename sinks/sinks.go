// Package sinks provides the default collaborator implementations behind
// the ingestion pipeline's best-effort outputs: a semantic document
// index, a graph store, and an event log, all backed by the same SQLite
// file as the rest of the data. The pipelines only ever see these
// through their own small interfaces.
package sinks

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ntoledo319/nous/db"
	"github.com/ntoledo319/nous/models"
)

type Store struct {
	db *db.DB
}

// New creates the sink store and its tables.
func New(database *db.DB) (*Store, error) {
	s := &Store{db: database}

	_, err := database.Exec(`
	CREATE TABLE IF NOT EXISTS documents (
		doc_id TEXT PRIMARY KEY,
		user_id INTEGER,
		body TEXT NOT NULL,
		updated_at TIMESTAMP
	)`)
	if err != nil {
		return nil, err
	}

	_, err = database.Exec(`
	CREATE TABLE IF NOT EXISTS graph_nodes (
		node_id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		label TEXT,
		updated_at TIMESTAMP
	)`)
	if err != nil {
		return nil, err
	}

	_, err = database.Exec(`
	CREATE TABLE IF NOT EXISTS graph_edges (
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		relation TEXT NOT NULL,
		updated_at TIMESTAMP,
		PRIMARY KEY (from_id, to_id, relation)
	)`)
	if err != nil {
		return nil, err
	}

	_, err = database.Exec(`
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		track_id TEXT,
		subject TEXT,
		created_at TIMESTAMP
	)`)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// UpsertDocument writes a text blob for semantic indexing.
func (s *Store) UpsertDocument(ctx context.Context, docID string, userID int64, body string) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO documents (doc_id, user_id, body, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(doc_id) DO UPDATE SET
		body = excluded.body,
		updated_at = excluded.updated_at`,
		docID, userID, body, time.Now())
	return err
}

// UpsertNode writes a graph node.
func (s *Store) UpsertNode(ctx context.Context, nodeID, kind, label string) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO graph_nodes (node_id, kind, label, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(node_id) DO UPDATE SET
		kind = excluded.kind,
		label = excluded.label,
		updated_at = excluded.updated_at`,
		nodeID, kind, label, time.Now())
	return err
}

// UpsertEdge writes a graph edge.
func (s *Store) UpsertEdge(ctx context.Context, fromID, toID, relation string) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO graph_edges (from_id, to_id, relation, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(from_id, to_id, relation) DO UPDATE SET
		updated_at = excluded.updated_at`,
		fromID, toID, relation, time.Now())
	return err
}

// Publish appends an event to the log.
func (s *Store) Publish(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO events (id, user_id, kind, track_id, subject, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.UserID, event.Kind, event.TrackID, event.Subject, event.CreatedAt)
	return err
}

// RecentlyPlayedTrackIDs returns the most recently played track ids for a
// user from the event log, newest first, deduplicated.
func (s *Store) RecentlyPlayedTrackIDs(ctx context.Context, userID int64, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT track_id FROM events
	WHERE user_id = ? AND kind = ? AND track_id != ''
	ORDER BY created_at DESC
	LIMIT ?`, userID, models.EventTrackPlayed, limit*2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		if len(ids) >= limit {
			break
		}
	}

	return ids, rows.Err()
}
