package models

import "time"

// Event kinds published on the event bus.
const (
	EventTrackPlayed     = "track.played"
	EventPlaylistCreated = "playlist.created"
)

// Event is a best-effort record of something that happened to a user.
type Event struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Kind      string    `json:"kind"`
	TrackID   string    `json:"track_id,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MoodEvent is a user-logged mood score. Valid scores are 1 through 10;
// anything outside that range is ignored by the ritual engine.
type MoodEvent struct {
	UserID   int64     `json:"user_id"`
	Score    int       `json:"score"`
	Note     string    `json:"note,omitempty"`
	LoggedAt time.Time `json:"logged_at"`
}
