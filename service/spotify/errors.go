package spotify

import "fmt"

// AuthError means the credentials themselves are unusable: a failed code
// exchange or refresh, or a user with no stored token. Callers should
// treat it as "needs re-login", not as a transient provider failure.
type AuthError struct {
	Op     string
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("spotify auth: %s: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("spotify auth: %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// APIError is any non-2xx or malformed response from the provider's REST
// API, carrying whatever detail the provider returned (truncated).
type APIError struct {
	Status int
	Detail string
	Err    error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify api: status %d: %s", e.Status, e.Detail)
}

func (e *APIError) Unwrap() error { return e.Err }
