package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/ntoledo319/nous/config"
	"github.com/ntoledo319/nous/db"
	"github.com/ntoledo319/nous/service/ingest"
	"github.com/ntoledo319/nous/service/lastfm"
	"github.com/ntoledo319/nous/service/lyrics"
	"github.com/ntoledo319/nous/service/musicbrainz"
	"github.com/ntoledo319/nous/service/ritual"
	"github.com/ntoledo319/nous/service/spotify"
	"github.com/ntoledo319/nous/session"
	"github.com/ntoledo319/nous/sinks"
)

type application struct {
	database       *db.DB
	sessionManager *session.SessionManager
	spotifyService *spotify.Service
	ingestService  *ingest.Service
	ritualEngine   *ritual.Engine
	sinkStore      *sinks.Store
}

func main() {
	config.Load()

	os.Mkdir("./data", 0o755)

	database, err := db.New(viper.GetString("db.path"))
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}

	if err := database.Initialize(); err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	sessionManager := session.NewSessionManager(database)

	sinkStore, err := sinks.New(database)
	if err != nil {
		log.Fatalf("Error initializing sink store: %v", err)
	}

	spotifyService := spotify.NewService(
		database,
		viper.GetString("spotify.client_id"),
		viper.GetString("spotify.client_secret"),
		viper.GetString("callback.spotify"),
		strings.Fields(viper.GetString("spotify.scopes")),
	)

	mbService := musicbrainz.NewService()
	tagService := lastfm.NewService(viper.GetString("lastfm.api_key"))

	lyricsChain := buildLyricsChain()

	ingestService := ingest.NewService(database, spotifyService, mbService, tagService, lyricsChain, sinkStore, sinkStore, sinkStore)
	ritualEngine := ritual.NewEngine(database, spotifyService, sinkStore, database, sinkStore, sinkStore)

	app := &application{
		database:       database,
		sessionManager: sessionManager,
		spotifyService: spotifyService,
		ingestService:  ingestService,
		ritualEngine:   ritualEngine,
		sinkStore:      sinkStore,
	}

	serverAddr := fmt.Sprintf("%s:%s", viper.GetString("server.host"), viper.GetString("server.port"))
	fmt.Printf("Server running at: http://%s\n", serverAddr)
	log.Fatal(http.ListenAndServe(serverAddr, app.routes()))
}

// buildLyricsChain wires the lyrics providers in preference order:
// user-supplied text first, then the keyed provider when configured,
// then the free keyless one.
func buildLyricsChain() *lyrics.Chain {
	providers := []lyrics.Provider{lyrics.NewUserProvider()}

	if key := viper.GetString("lyrics.api_key"); key != "" {
		providers = append(providers, lyrics.NewKeyedProvider(key))
	}

	providers = append(providers, lyrics.NewOvhProvider())

	return lyrics.NewChain(providers...)
}
