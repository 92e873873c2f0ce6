package models

import "time"

// OAuthToken holds a user's provider credentials. ExpiresAt is epoch
// seconds with the refresh safety margin already subtracted at write
// time, so callers compare against it directly.
type OAuthToken struct {
	UserID       int64  `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

// RefreshMargin is the safety window subtracted from the provider's
// expiry when ExpiresAt is computed. It is applied exactly once, at
// write time.
const RefreshMargin = 30 * time.Second

// Expired reports whether the access token is unusable at time now.
// ExpiresAt already carries the safety margin, so this is a plain
// comparison.
func (t *OAuthToken) Expired(now time.Time) bool {
	return now.Unix() >= t.ExpiresAt
}
