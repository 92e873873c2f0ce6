package db

import (
	"time"

	"github.com/ntoledo319/nous/models"
)

// AddMoodEvent records a user-logged mood score.
func (db *DB) AddMoodEvent(event *models.MoodEvent) error {
	loggedAt := event.LoggedAt
	if loggedAt.IsZero() {
		loggedAt = time.Now().UTC()
	}

	_, err := db.Exec(`
	INSERT INTO mood_events (user_id, score, note, logged_at)
	VALUES (?, ?, ?, ?)`,
		event.UserID, event.Score, event.Note, loggedAt)

	return err
}

// RecentMoodEvents returns a user's mood logs since the given time,
// newest first.
func (db *DB) RecentMoodEvents(userID int64, since time.Time) ([]*models.MoodEvent, error) {
	rows, err := db.Query(`
	SELECT user_id, score, note, logged_at FROM mood_events
	WHERE user_id = ? AND logged_at >= ?
	ORDER BY logged_at DESC`, userID, since)

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.MoodEvent

	for rows.Next() {
		event := &models.MoodEvent{}
		if err := rows.Scan(&event.UserID, &event.Score, &event.Note, &event.LoggedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
