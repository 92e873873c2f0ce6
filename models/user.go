package models

import "time"

// User is an account known to NOUS, linked to a Spotify profile after the
// first successful login.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     *string    `json:"email,omitempty"`
	SpotifyID *string    `json:"spotify_id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
