package db

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// DB is a wrapper around sql.DB
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// Initialize sets up the core tables. Packages that own auxiliary state
// (sessions, sink tables) create their own tables on construction.
func (db *DB) Initialize() error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL,
		email TEXT UNIQUE,
		spotify_id TEXT UNIQUE,
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS tokens (
		user_id INTEGER PRIMARY KEY,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		scope TEXT,
		token_type TEXT,
		updated_at TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id)
	)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS track_cache (
		track_id TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated_at TIMESTAMP
	)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS enrichment_cache (
		track_id TEXT NOT NULL,
		source TEXT NOT NULL,
		payload TEXT,
		updated_at TIMESTAMP,
		PRIMARY KEY (track_id, source)
	)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS lyrics_cache (
		track_id TEXT PRIMARY KEY,
		provider TEXT,
		analysis TEXT NOT NULL,
		full_lyrics TEXT,
		updated_at TIMESTAMP
	)`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS mood_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		score INTEGER NOT NULL,
		note TEXT,
		logged_at TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id)
	)`)

	return err
}
