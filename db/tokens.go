package db

import (
	"database/sql"
	"time"

	"github.com/ntoledo319/nous/models"
)

// SaveTokens upserts the OAuth token row for a user.
func (db *DB) SaveTokens(token *models.OAuthToken) error {
	_, err := db.Exec(`
	INSERT INTO tokens (user_id, access_token, refresh_token, expires_at, scope, token_type, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		access_token = excluded.access_token,
		refresh_token = excluded.refresh_token,
		expires_at = excluded.expires_at,
		scope = excluded.scope,
		token_type = excluded.token_type,
		updated_at = excluded.updated_at`,
		token.UserID, token.AccessToken, token.RefreshToken, token.ExpiresAt,
		token.Scope, token.TokenType, time.Now())

	return err
}

// GetTokens returns the stored token for a user, or nil if none exists.
func (db *DB) GetTokens(userID int64) (*models.OAuthToken, error) {
	token := &models.OAuthToken{}

	err := db.QueryRow(`
	SELECT user_id, access_token, refresh_token, expires_at, scope, token_type
	FROM tokens WHERE user_id = ?`, userID).Scan(
		&token.UserID, &token.AccessToken, &token.RefreshToken,
		&token.ExpiresAt, &token.Scope, &token.TokenType)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return token, nil
}

// DeleteTokens removes a user's token row, e.g. on disconnect.
func (db *DB) DeleteTokens(userID int64) error {
	_, err := db.Exec(`DELETE FROM tokens WHERE user_id = ?`, userID)
	return err
}
