package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ntoledo319/nous/db"
	"github.com/ntoledo319/nous/models"
	"github.com/ntoledo319/nous/service/lastfm"
	"github.com/ntoledo319/nous/service/lyrics"
	"github.com/ntoledo319/nous/service/musicbrainz"
	"github.com/ntoledo319/nous/service/spotify"
)

// The orchestrator's contract with its sinks is best effort: a failed
// upsert is logged and the batch continues.

type SemanticIndex interface {
	UpsertDocument(ctx context.Context, docID string, userID int64, body string) error
}

type GraphStore interface {
	UpsertNode(ctx context.Context, nodeID, kind, label string) error
	UpsertEdge(ctx context.Context, fromID, toID, relation string) error
}

type EventBus interface {
	Publish(ctx context.Context, event *models.Event) error
}

// ProviderClient is the slice of the Spotify service this pipeline needs.
type ProviderClient interface {
	EnsureToken(ctx context.Context, userID int64) (string, error)
	RecentlyPlayed(ctx context.Context, token string, limit int) ([]*models.Track, error)
	AudioFeatures(ctx context.Context, token string, ids []string) ([]*spotify.AudioFeatures, error)
}

type RecordingLookup interface {
	LookupRecording(ctx context.Context, isrc string) *musicbrainz.Recording
}

type TagLookup interface {
	Enabled() bool
	LookupTopTags(ctx context.Context, artist, track string, limit int) []lastfm.Tag
}

// Summary is what a sync reports back. A track counts as ingested as
// soon as its core payload upsert succeeded; enrichment failures only
// reduce richness.
type Summary struct {
	Fetched        int `json:"fetched"`
	UniqueTracks   int `json:"unique_tracks"`
	Ingested       int `json:"ingested"`
	Enriched       int `json:"enriched"`
	LyricsAnalyzed int `json:"lyrics_analyzed"`
}

// Options control one sync run.
type Options struct {
	Limit                int
	Enrich               bool
	Lyrics               bool
	AllowStoreFullLyrics bool
}

type Service struct {
	db         *db.DB
	spotify    ProviderClient
	recordings RecordingLookup
	tags       TagLookup
	lyrics     lyrics.Provider
	semantic   SemanticIndex
	graph      GraphStore
	bus        EventBus
	logger     *log.Logger
}

func NewService(database *db.DB, spotifySvc ProviderClient, recordings RecordingLookup, tags TagLookup, lyricsProvider lyrics.Provider, semantic SemanticIndex, graph GraphStore, bus EventBus) *Service {
	return &Service{
		db:         database,
		spotify:    spotifySvc,
		recordings: recordings,
		tags:       tags,
		lyrics:     lyricsProvider,
		semantic:   semantic,
		graph:      graph,
		bus:        bus,
		logger:     log.New(os.Stdout, "ingest: ", log.LstdFlags|log.Lmsgprefix),
	}
}

// SyncRecentlyPlayed pulls the user's recently played tracks and runs
// each through the cache, audio-feature, enrichment, lyrics, and sink
// stages.
// Authentication and provider errors propagate; everything downstream of
// the core track upsert degrades instead of failing the batch.
func (s *Service) SyncRecentlyPlayed(ctx context.Context, userID int64, opts Options) (*Summary, error) {
	token, err := s.spotify.EnsureToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	plays, err := s.spotify.RecentlyPlayed(ctx, token, opts.Limit)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Fetched: len(plays)}

	unique := make(map[string]*models.Track, len(plays))
	var order []string
	for _, track := range plays {
		if track.ID == "" {
			continue
		}
		if _, seen := unique[track.ID]; !seen {
			unique[track.ID] = track
			order = append(order, track.ID)
		}
	}
	summary.UniqueTracks = len(order)

	var features map[string]*spotify.AudioFeatures
	if opts.Enrich {
		features = s.featuresFor(ctx, token, order)
	}

	for _, trackID := range order {
		track := unique[trackID]

		if err := s.db.UpsertTrack(track.ID, track.Raw); err != nil {
			s.logger.Printf("failed to cache track %s: %v", track.ID, err)
			continue
		}
		summary.Ingested++

		feature := features[trackID]

		var recording *musicbrainz.Recording
		var tags []lastfm.Tag
		if opts.Enrich {
			recording = s.recordingFor(ctx, track)
			tags = s.tagsFor(ctx, track)
			if recording != nil || len(tags) > 0 || feature != nil {
				summary.Enriched++
			}
		}

		var analysis *models.LyricsAnalysis
		if opts.Lyrics {
			var fresh bool
			analysis, fresh = s.lyricsFor(ctx, track, opts.AllowStoreFullLyrics)
			if fresh && analysis != nil && analysis.Analysis.HasLyrics {
				summary.LyricsAnalyzed++
			}
		}

		s.pushToSinks(ctx, userID, track, feature, recording, tags, analysis)
	}

	// one played event per play, not per unique track
	for _, track := range plays {
		if track.ID == "" {
			continue
		}
		event := &models.Event{
			UserID:    userID,
			Kind:      models.EventTrackPlayed,
			TrackID:   track.ID,
			CreatedAt: track.PlayedAt,
		}
		if err := s.bus.Publish(ctx, event); err != nil {
			s.logger.Printf("failed to publish played event for %s: %v", track.ID, err)
		}
	}

	s.logger.Printf("sync for user %d: fetched=%d unique=%d ingested=%d enriched=%d lyrics=%d",
		userID, summary.Fetched, summary.UniqueTracks, summary.Ingested, summary.Enriched, summary.LyricsAnalyzed)

	return summary, nil
}

// featuresFor fetches audio features for the whole batch in one call and
// keys them by track id. A failed fetch only costs the documents their
// feature line, so it is logged and degraded like the other collectors.
func (s *Service) featuresFor(ctx context.Context, token string, trackIDs []string) map[string]*spotify.AudioFeatures {
	if len(trackIDs) == 0 {
		return nil
	}

	list, err := s.spotify.AudioFeatures(ctx, token, trackIDs)
	if err != nil {
		s.logger.Printf("audio features fetch failed: %v", err)
		return nil
	}

	features := make(map[string]*spotify.AudioFeatures, len(list))
	for _, f := range list {
		features[f.ID] = f
	}

	return features
}

// recordingFor resolves MusicBrainz metadata through the cache. A miss
// triggers one lookup and the result is cached either way, so an ISRC
// with no match is not retried on the next sync.
func (s *Service) recordingFor(ctx context.Context, track *models.Track) *musicbrainz.Recording {
	if track.ISRC == "" {
		return nil
	}

	cached, err := s.db.GetEnrichment(track.ID, models.SourceMusicBrainz)
	if err != nil {
		s.logger.Printf("enrichment cache read failed for %s: %v", track.ID, err)
		return nil
	}
	if cached != nil {
		if cached.Empty() {
			return nil
		}
		var recording musicbrainz.Recording
		if err := json.Unmarshal(cached.Payload, &recording); err != nil {
			s.logger.Printf("bad cached recording for %s: %v", track.ID, err)
			return nil
		}
		return &recording
	}

	recording := s.recordings.LookupRecording(ctx, track.ISRC)
	payload, _ := json.Marshal(recording)
	if err := s.db.UpsertEnrichment(track.ID, models.SourceMusicBrainz, payload); err != nil {
		s.logger.Printf("enrichment cache write failed for %s: %v", track.ID, err)
	}

	return recording
}

// tagsFor resolves crowd tags through the cache with the same
// negative-result caching as recordingFor.
func (s *Service) tagsFor(ctx context.Context, track *models.Track) []lastfm.Tag {
	if !s.tags.Enabled() {
		return nil
	}

	cached, err := s.db.GetEnrichment(track.ID, models.SourceLastFMTags)
	if err != nil {
		s.logger.Printf("tag cache read failed for %s: %v", track.ID, err)
		return nil
	}
	if cached != nil {
		if cached.Empty() {
			return nil
		}
		var tags []lastfm.Tag
		if err := json.Unmarshal(cached.Payload, &tags); err != nil {
			s.logger.Printf("bad cached tags for %s: %v", track.ID, err)
			return nil
		}
		return tags
	}

	tags := s.tags.LookupTopTags(ctx, track.FirstArtist(), track.Name, 10)
	payload, _ := json.Marshal(tags)
	if err := s.db.UpsertEnrichment(track.ID, models.SourceLastFMTags, payload); err != nil {
		s.logger.Printf("tag cache write failed for %s: %v", track.ID, err)
	}

	return tags
}

// lyricsFor resolves a lyrics analysis through the cache. Raw lyrics
// text is persisted only when allowStoreFull is set; the analysis alone
// is kept otherwise. The second return value reports whether the
// analysis was freshly computed.
func (s *Service) lyricsFor(ctx context.Context, track *models.Track, allowStoreFull bool) (*models.LyricsAnalysis, bool) {
	cached, err := s.db.GetLyrics(track.ID)
	if err != nil {
		s.logger.Printf("lyrics cache read failed for %s: %v", track.ID, err)
		return nil, false
	}
	if cached != nil {
		return cached, false
	}

	record := &models.LyricsAnalysis{TrackID: track.ID}

	result, err := s.lyrics.Fetch(ctx, track.FirstArtist(), track.Name)
	if err != nil {
		s.logger.Printf("lyrics fetch failed for %s: %v", track.ID, err)
	}
	if result != nil {
		record.Provider = result.Provider
		record.Analysis = lyrics.Analyze(result.Lyrics)
		if allowStoreFull {
			record.FullLyrics = result.Lyrics
		}
	} else {
		record.Analysis = models.Analysis{HasLyrics: false}
	}

	if err := s.db.UpsertLyrics(record); err != nil {
		s.logger.Printf("lyrics cache write failed for %s: %v", track.ID, err)
	}

	return record, true
}

// pushToSinks writes the semantic document and graph rows for one track.
// Every sink call is independent; failures are logged and skipped.
func (s *Service) pushToSinks(ctx context.Context, userID int64, track *models.Track, feature *spotify.AudioFeatures, recording *musicbrainz.Recording, tags []lastfm.Tag, analysis *models.LyricsAnalysis) {
	body := composeDocument(track, feature, recording, tags, analysis)
	if err := s.semantic.UpsertDocument(ctx, "track:"+track.ID, userID, body); err != nil {
		s.logger.Printf("semantic upsert failed for %s: %v", track.ID, err)
	}

	if err := s.graph.UpsertNode(ctx, "track:"+track.ID, "track", track.Name); err != nil {
		s.logger.Printf("graph node upsert failed for %s: %v", track.ID, err)
	}

	for _, artist := range track.Artists {
		if artist.ID == "" {
			continue
		}
		if err := s.graph.UpsertNode(ctx, "artist:"+artist.ID, "artist", artist.Name); err != nil {
			s.logger.Printf("graph node upsert failed for artist %s: %v", artist.ID, err)
			continue
		}
		if err := s.graph.UpsertEdge(ctx, "track:"+track.ID, "artist:"+artist.ID, "performed_by"); err != nil {
			s.logger.Printf("graph edge upsert failed for %s: %v", track.ID, err)
		}
	}

	for _, tag := range tags {
		if err := s.graph.UpsertNode(ctx, "tag:"+tag.Name, "tag", tag.Name); err != nil {
			s.logger.Printf("graph node upsert failed for tag %s: %v", tag.Name, err)
			continue
		}
		if err := s.graph.UpsertEdge(ctx, "track:"+track.ID, "tag:"+tag.Name, "tagged"); err != nil {
			s.logger.Printf("graph edge upsert failed for %s: %v", track.ID, err)
		}
	}

	if recording != nil {
		if err := s.graph.UpsertNode(ctx, "mb:"+recording.ID, "recording", recording.Title); err != nil {
			s.logger.Printf("graph node upsert failed for recording %s: %v", recording.ID, err)
		} else if err := s.graph.UpsertEdge(ctx, "track:"+track.ID, "mb:"+recording.ID, "same_recording"); err != nil {
			s.logger.Printf("graph edge upsert failed for %s: %v", track.ID, err)
		}
	}
}

// composeDocument builds the human-readable blob handed to the semantic
// index from the track plus whatever feature, enrichment, and lyrics
// data the fan-out produced.
func composeDocument(track *models.Track, feature *spotify.AudioFeatures, recording *musicbrainz.Recording, tags []lastfm.Tag, analysis *models.LyricsAnalysis) string {
	var b strings.Builder

	artists := make([]string, len(track.Artists))
	for i, a := range track.Artists {
		artists[i] = a.Name
	}
	fmt.Fprintf(&b, "%s by %s", track.Name, strings.Join(artists, ", "))
	if track.Album != "" {
		fmt.Fprintf(&b, " from the album %s", track.Album)
	}
	b.WriteString(".")

	if feature != nil {
		fmt.Fprintf(&b, " Audio: energy %.2f, valence %.2f, danceability %.2f, tempo %.0f BPM.",
			feature.Energy, feature.Valence, feature.Danceability, feature.Tempo)
	}

	if recording != nil {
		fmt.Fprintf(&b, " MusicBrainz recording: %s.", recording.Title)
	}

	if len(tags) > 0 {
		names := make([]string, len(tags))
		for i, t := range tags {
			names[i] = t.Name
		}
		fmt.Fprintf(&b, " Tags: %s.", strings.Join(names, ", "))
	}

	if analysis != nil && analysis.Analysis.HasLyrics {
		if len(analysis.Analysis.Themes) > 0 {
			fmt.Fprintf(&b, " Lyrical themes: %s.", strings.Join(analysis.Analysis.Themes, ", "))
		}
		fmt.Fprintf(&b, " Sentiment: %.2f.", analysis.Analysis.Sentiment)
		if analysis.Analysis.Excerpt != "" {
			fmt.Fprintf(&b, " Excerpt: %s", analysis.Analysis.Excerpt)
		}
	}

	return b.String()
}
