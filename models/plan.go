package models

// PlaylistPlan is the transient output of the ritual engine's planning
// phase. It is built fresh per request and never persisted.
type PlaylistPlan struct {
	Target       string             `json:"target"`
	Bucket       string             `json:"bucket"`
	AverageMood  *float64           `json:"average_mood,omitempty"`
	SeedTrackIDs []string           `json:"seed_track_ids"`
	Tuneables    map[string]float64 `json:"tuneables"`
}
