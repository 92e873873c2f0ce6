package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/spf13/viper"

	"github.com/ntoledo319/nous/models"
	"github.com/ntoledo319/nous/service/ingest"
	"github.com/ntoledo319/nous/service/ritual"
	"github.com/ntoledo319/nous/service/spotify"
	"github.com/ntoledo319/nous/session"
)

const stateCookie = "oauth_state"

func jsonResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// jsonError writes the {ok: false, error, details?} body used by every
// API route.
func jsonError(w http.ResponseWriter, statusCode int, message, details string) {
	body := map[string]any{"ok": false, "error": message}
	if details != "" {
		body["details"] = details
	}
	jsonResponse(w, statusCode, body)
}

// writeServiceError maps provider errors onto HTTP statuses: auth
// failures mean "log in again" (401), API failures are an upstream
// problem (502).
func writeServiceError(w http.ResponseWriter, err error) {
	var authErr *spotify.AuthError
	if errors.As(err, &authErr) {
		jsonError(w, http.StatusUnauthorized, "spotify authorization required", authErr.Detail)
		return
	}

	var apiErr *spotify.APIError
	if errors.As(err, &apiErr) {
		jsonError(w, http.StatusBadGateway, "spotify api error", apiErr.Detail)
		return
	}

	jsonError(w, http.StatusInternalServerError, "internal error", err.Error())
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")

	if session.IsAuthenticated(r.Context()) {
		w.Write([]byte(`<h1>NOUS</h1>
<p>You're connected.</p>
<ul>
<li><a href="/api/v1/history">Listening history</a></li>
<li>POST /api/v1/sync to ingest recent plays</li>
<li>POST /api/v1/ritual to build a ritual playlist</li>
<li><a href="/logout">Logout</a></li>
</ul>`))
		return
	}

	w.Write([]byte(`<h1>NOUS</h1><p><a href="/login/spotify">Connect Spotify</a> to get started.</p>`))
}

func (app *application) handleLogin(w http.ResponseWriter, r *http.Request) {
	b := make([]byte, 16)
	rand.Read(b)
	state := base64.URLEncoding.EncodeToString(b)

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   300,
	})

	showDialog := r.URL.Query().Get("show_dialog") == "1"
	http.Redirect(w, r, app.spotifyService.AuthorizeURL(state, showDialog), http.StatusSeeOther)
}

func (app *application) handleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		jsonError(w, http.StatusBadRequest, "state mismatch", "")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		jsonError(w, http.StatusBadRequest, "no code provided", "")
		return
	}

	ctx := r.Context()

	token, err := app.spotifyService.ExchangeCode(ctx, code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	profile, err := app.spotifyService.Me(ctx, token.AccessToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	user, err := app.database.GetUserBySpotifyID(profile.ID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "database error", err.Error())
		return
	}

	if user == nil {
		username := profile.DisplayName
		if username == "" {
			username = profile.ID
		}
		newUser := &models.User{Username: username, SpotifyID: &profile.ID}
		if profile.Email != "" {
			newUser.Email = &profile.Email
		}

		userID, err := app.database.CreateUser(newUser)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "could not create user", err.Error())
			return
		}
		newUser.ID = userID
		user = newUser
	}

	token.UserID = user.ID
	if err := app.database.SaveTokens(token); err != nil {
		jsonError(w, http.StatusInternalServerError, "could not persist token", err.Error())
		return
	}

	sess := app.sessionManager.CreateSession(user.ID)
	app.sessionManager.SetSessionCookie(w, sess)

	log.Printf("user %d connected spotify account %s", user.ID, profile.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (app *application) apiSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "POST required", "")
		return
	}

	userID, ok := session.GetUserID(r.Context())
	if !ok {
		jsonError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	summary, err := app.ingestService.SyncRecentlyPlayed(r.Context(), userID, ingest.Options{
		Enrich:               viper.GetBool("enrich.enabled"),
		Lyrics:               viper.GetBool("lyrics.enabled"),
		AllowStoreFullLyrics: viper.GetBool("lyrics.allow_store_full"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{"ok": true, "summary": summary})
}

func (app *application) apiRitual(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "POST required", "")
		return
	}

	userID, ok := session.GetUserID(r.Context())
	if !ok {
		jsonError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	app.runRitual(w, r, userID)
}

func (app *application) runRitual(w http.ResponseWriter, r *http.Request, userID int64) {
	opts := ritual.Options{
		Name:           r.URL.Query().Get("name"),
		CreatePlaylist: r.URL.Query().Get("create") != "0",
		Public:         viper.GetBool("ritual.playlist_public"),
		Limit:          viper.GetInt("ritual.limit"),
	}

	result, err := app.ritualEngine.Run(r.Context(), userID, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{"ok": true, "result": result})
}

// handleCronRitual lets a scheduler trigger the ritual pipeline for any
// user, authenticated by a shared secret instead of a session.
func (app *application) handleCronRitual(w http.ResponseWriter, r *http.Request) {
	secret := viper.GetString("cron.secret")
	if secret == "" || r.Header.Get("X-Nous-Cron-Secret") != secret {
		jsonError(w, http.StatusForbidden, "forbidden", "")
		return
	}

	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		jsonError(w, http.StatusBadRequest, "user_id required", "")
		return
	}

	app.runRitual(w, r, userID)
}

func (app *application) apiMood(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "POST required", "")
		return
	}

	userID, ok := session.GetUserID(r.Context())
	if !ok {
		jsonError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	var body struct {
		Score int    `json:"score"`
		Note  string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}
	if body.Score < 1 || body.Score > 10 {
		jsonError(w, http.StatusBadRequest, "score must be between 1 and 10", "")
		return
	}

	event := &models.MoodEvent{UserID: userID, Score: body.Score, Note: body.Note}
	if err := app.database.AddMoodEvent(event); err != nil {
		jsonError(w, http.StatusInternalServerError, "could not record mood", err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{"ok": true})
}

func (app *application) apiHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := session.GetUserID(r.Context())
	if !ok {
		jsonError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	trackIDs, err := app.sinkStore.RecentlyPlayedTrackIDs(r.Context(), userID, limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "could not load history", err.Error())
		return
	}

	tracks := make([]json.RawMessage, 0, len(trackIDs))
	for _, trackID := range trackIDs {
		payload, err := app.database.GetTrack(trackID)
		if err != nil || payload == nil {
			continue
		}
		tracks = append(tracks, payload)
	}

	jsonResponse(w, http.StatusOK, map[string]any{"ok": true, "tracks": tracks})
}

func (app *application) apiDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, http.StatusMethodNotAllowed, "POST required", "")
		return
	}

	userID, ok := session.GetUserID(r.Context())
	if !ok {
		jsonError(w, http.StatusUnauthorized, "authentication required", "")
		return
	}

	if err := app.database.DeleteTokens(userID); err != nil {
		jsonError(w, http.StatusInternalServerError, "could not disconnect", err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{"ok": true})
}
