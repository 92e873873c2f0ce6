package main

import (
	"net/http"

	"github.com/justinas/alice"

	"github.com/ntoledo319/nous/session"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", session.WithPossibleAuth(app.home, app.sessionManager))

	// OAuth routes
	mux.HandleFunc("/login/spotify", app.handleLogin)
	mux.HandleFunc("/callback/spotify", app.handleCallback)
	mux.HandleFunc("/logout", app.sessionManager.HandleLogout)

	// API routes
	mux.HandleFunc("/api/v1/sync", session.WithAPIAuth(app.apiSync, app.sessionManager))
	mux.HandleFunc("/api/v1/ritual", session.WithAPIAuth(app.apiRitual, app.sessionManager))
	mux.HandleFunc("/api/v1/mood", session.WithAPIAuth(app.apiMood, app.sessionManager))
	mux.HandleFunc("/api/v1/history", session.WithAPIAuth(app.apiHistory, app.sessionManager))
	mux.HandleFunc("/api/v1/disconnect", session.WithAPIAuth(app.apiDisconnect, app.sessionManager))

	// scheduled invocation, shared-secret authenticated
	mux.HandleFunc("/cron/ritual", app.handleCronRitual)

	standard := alice.New()
	return standard.Then(mux)
}
