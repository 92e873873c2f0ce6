package ritual

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/ntoledo319/nous/db"
	"github.com/ntoledo319/nous/models"
	"github.com/ntoledo319/nous/service/ingest"
	"github.com/ntoledo319/nous/service/spotify"
)

const (
	maxSeeds       = 5
	maxHistory     = 200
	moodLookback   = 7 * 24 * time.Hour
	topTracksLimit = 10
)

// ProviderClient is the slice of the Spotify service the engine needs.
type ProviderClient interface {
	EnsureToken(ctx context.Context, userID int64) (string, error)
	TopTracks(ctx context.Context, token, timeRange string, limit int) ([]*models.Track, error)
	Recommendations(ctx context.Context, token string, seeds spotify.Seeds, limit int, tuneables map[string]float64) ([]*models.Track, error)
	Me(ctx context.Context, token string) (*spotify.Profile, error)
	CreatePlaylist(ctx context.Context, token, spotifyUserID, name, description string, public bool) (*spotify.Playlist, error)
	AddTracksToPlaylist(ctx context.Context, token, playlistID string, uris []string) error
}

// HistorySource provides the user's recently played track ids, newest
// first.
type HistorySource interface {
	RecentlyPlayedTrackIDs(ctx context.Context, userID int64, limit int) ([]string, error)
}

// MoodSource provides recent mood-log entries. The engine tolerates a
// nil source: planning then falls back to the time-of-day table.
type MoodSource interface {
	RecentMoodEvents(userID int64, since time.Time) ([]*models.MoodEvent, error)
}

// Options control one ritual run.
type Options struct {
	Name           string
	Description    string
	CreatePlaylist bool
	Public         bool
	Limit          int
}

// Result is the outcome of a ritual run.
type Result struct {
	Plan     *models.PlaylistPlan `json:"plan"`
	Tracks   []*models.Track      `json:"tracks"`
	Playlist *spotify.Playlist    `json:"playlist,omitempty"`
}

// Engine derives a target mood from recent mood logs and time of day,
// picks lyrically compatible seed tracks from listening history, and
// asks the provider for a playlist's worth of recommendations.
type Engine struct {
	db      *db.DB
	spotify ProviderClient
	history HistorySource
	moods   MoodSource
	graph   ingest.GraphStore
	bus     ingest.EventBus
	logger  *log.Logger

	// injectable for deterministic tests
	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
}

func NewEngine(database *db.DB, spotifySvc ProviderClient, history HistorySource, moods MoodSource, graph ingest.GraphStore, bus ingest.EventBus) *Engine {
	return &Engine{
		db:      database,
		spotify: spotifySvc,
		history: history,
		moods:   moods,
		graph:   graph,
		bus:     bus,
		logger:  log.New(os.Stdout, "ritual: ", log.LstdFlags|log.Lmsgprefix),
		now:     time.Now,
		shuffle: rand.Shuffle,
	}
}

// averageMood returns the mean of the user's recent in-range mood
// scores, or nil when there is no usable mood data.
func (e *Engine) averageMood(userID int64) *float64 {
	if e.moods == nil {
		return nil
	}

	events, err := e.moods.RecentMoodEvents(userID, e.now().Add(-moodLookback))
	if err != nil {
		e.logger.Printf("mood lookup failed for user %d: %v", userID, err)
		return nil
	}

	sum, count := 0, 0
	for _, event := range events {
		if event.Score < 1 || event.Score > 10 {
			continue
		}
		sum += event.Score
		count++
	}
	if count == 0 {
		return nil
	}

	avg := float64(sum) / float64(count)
	return &avg
}

// BuildPlan constructs the transient playlist plan: time bucket, mood
// target, tuneables, and seed track ids. It never fails on missing mood
// or history data, only on storage errors.
func (e *Engine) BuildPlan(ctx context.Context, userID int64) (*models.PlaylistPlan, error) {
	bucket := TimeBucket(e.now().Hour())
	avgMood := e.averageMood(userID)
	target := targetFor(avgMood, bucket)
	profile := targetProfiles[target]

	seeds, err := e.selectSeeds(ctx, userID, profile)
	if err != nil {
		return nil, err
	}

	return &models.PlaylistPlan{
		Target:       target,
		Bucket:       bucket,
		AverageMood:  avgMood,
		SeedTrackIDs: seeds,
		Tuneables:    profile.Tuneables,
	}, nil
}

// selectSeeds scores the user's recent history by lyrical-theme overlap
// with the target's allow-list. Tracks matching any blocked theme are
// excluded outright. Candidates are shuffled within each score band so
// equally good tracks are picked fairly; with no lyrics data at all this
// degrades to a random sample of the history.
func (e *Engine) selectSeeds(ctx context.Context, userID int64, profile targetProfile) ([]string, error) {
	if e.history == nil {
		return nil, nil
	}

	trackIDs, err := e.history.RecentlyPlayedTrackIDs(ctx, userID, maxHistory)
	if err != nil {
		return nil, fmt.Errorf("loading history for user %d: %w", userID, err)
	}

	type candidate struct {
		trackID string
		score   int
	}
	var candidates []candidate

	for _, trackID := range trackIDs {
		analysis, err := e.db.GetLyrics(trackID)
		if err != nil {
			return nil, fmt.Errorf("reading lyrics cache for %s: %w", trackID, err)
		}

		score := 0
		if analysis != nil && analysis.Analysis.HasLyrics {
			blocked := false
			for _, theme := range profile.Block {
				if analysis.Analysis.HasTheme(theme) {
					blocked = true
					break
				}
			}
			if blocked {
				continue
			}
			for _, theme := range profile.Allow {
				if analysis.Analysis.HasTheme(theme) {
					score++
				}
			}
		}

		candidates = append(candidates, candidate{trackID: trackID, score: score})
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	// stable sort by score, then shuffle within each score band
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	start := 0
	for start < len(candidates) {
		end := start
		for end < len(candidates) && candidates[end].score == candidates[start].score {
			end++
		}
		band := candidates[start:end]
		e.shuffle(len(band), func(i, j int) {
			band[i], band[j] = band[j], band[i]
		})
		start = end
	}

	seeds := make([]string, 0, maxSeeds)
	for _, c := range candidates {
		seeds = append(seeds, c.trackID)
		if len(seeds) == maxSeeds {
			break
		}
	}

	return seeds, nil
}

// Run executes the full pipeline: plan, seed fallback, recommendations,
// track caching, and (optionally) playlist creation. Sink writes are
// best effort as in ingestion.
func (e *Engine) Run(ctx context.Context, userID int64, opts Options) (*Result, error) {
	token, err := e.spotify.EnsureToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	plan, err := e.BuildPlan(ctx, userID)
	if err != nil {
		return nil, err
	}

	if len(plan.SeedTrackIDs) == 0 {
		top, err := e.spotify.TopTracks(ctx, token, "short_term", topTracksLimit)
		if err != nil {
			return nil, err
		}
		for _, track := range top {
			plan.SeedTrackIDs = append(plan.SeedTrackIDs, track.ID)
			if len(plan.SeedTrackIDs) == maxSeeds {
				break
			}
		}
	}

	tracks, err := e.spotify.Recommendations(ctx, token, spotify.Seeds{Tracks: plan.SeedTrackIDs}, opts.Limit, plan.Tuneables)
	if err != nil {
		return nil, err
	}

	for _, track := range tracks {
		if err := e.db.UpsertTrack(track.ID, track.Raw); err != nil {
			e.logger.Printf("failed to cache recommended track %s: %v", track.ID, err)
		}
	}

	result := &Result{Plan: plan, Tracks: tracks}

	if !opts.CreatePlaylist {
		return result, nil
	}

	profile, err := e.spotify.Me(ctx, token)
	if err != nil {
		return nil, err
	}

	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("NOUS Ritual: %s (%s)", plan.Target, plan.Bucket)
	}
	description := opts.Description
	if description == "" {
		description = fmt.Sprintf("Generated for a %s ritual during the %s.", plan.Target, plan.Bucket)
	}

	playlist, err := e.spotify.CreatePlaylist(ctx, token, profile.ID, name, description, opts.Public)
	if err != nil {
		return nil, err
	}

	uris := make([]string, 0, len(tracks))
	for _, track := range tracks {
		if track.URI != "" {
			uris = append(uris, track.URI)
		}
	}
	if err := e.spotify.AddTracksToPlaylist(ctx, token, playlist.ID, uris); err != nil {
		return nil, err
	}

	if e.graph != nil {
		if err := e.graph.UpsertNode(ctx, "playlist:"+playlist.ID, "playlist", playlist.Name); err != nil {
			e.logger.Printf("graph node upsert failed for playlist %s: %v", playlist.ID, err)
		} else {
			for _, track := range tracks {
				if err := e.graph.UpsertEdge(ctx, "playlist:"+playlist.ID, "track:"+track.ID, "contains"); err != nil {
					e.logger.Printf("graph edge upsert failed for playlist %s: %v", playlist.ID, err)
					break
				}
			}
		}
	}

	if e.bus != nil {
		event := &models.Event{
			UserID:  userID,
			Kind:    models.EventPlaylistCreated,
			Subject: playlist.ID,
		}
		if err := e.bus.Publish(ctx, event); err != nil {
			e.logger.Printf("failed to publish playlist event for %s: %v", playlist.ID, err)
		}
	}

	e.logger.Printf("ritual for user %d: target=%s bucket=%s seeds=%d tracks=%d playlist=%s",
		userID, plan.Target, plan.Bucket, len(plan.SeedTrackIDs), len(tracks), playlist.ID)

	result.Playlist = playlist
	return result, nil
}
