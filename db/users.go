package db

import (
	"database/sql"
	"time"

	"github.com/ntoledo319/nous/models"
)

// CreateUser adds a new user to the database
func (db *DB) CreateUser(user *models.User) (int64, error) {
	now := time.Now()

	result, err := db.Exec(`
	INSERT INTO users (username, email, spotify_id, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.SpotifyID, now, now)

	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// GetUserBySpotifyID retrieves a user by their Spotify ID
func (db *DB) GetUserBySpotifyID(spotifyID string) (*models.User, error) {
	user := &models.User{}

	err := db.QueryRow(`
	SELECT id, username, email, spotify_id, created_at, updated_at
	FROM users WHERE spotify_id = ?`, spotifyID).Scan(
		&user.ID, &user.Username, &user.Email, &user.SpotifyID,
		&user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return user, nil
}

// GetUser retrieves a user by internal id.
func (db *DB) GetUser(userID int64) (*models.User, error) {
	user := &models.User{}

	err := db.QueryRow(`
	SELECT id, username, email, spotify_id, created_at, updated_at
	FROM users WHERE id = ?`, userID).Scan(
		&user.ID, &user.Username, &user.Email, &user.SpotifyID,
		&user.CreatedAt, &user.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return user, nil
}
