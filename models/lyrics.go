package models

import "time"

// LyricsAnalysis is the derived-only view of a track's lyrics. FullLyrics
// is populated only when the caller explicitly allowed storing raw text.
type LyricsAnalysis struct {
	TrackID    string    `json:"track_id"`
	Provider   string    `json:"provider"`
	Analysis   Analysis  `json:"analysis"`
	FullLyrics string    `json:"full_lyrics,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Analysis is the deterministic output of the lyrics analyzer. When
// HasLyrics is false every other field is zero.
type Analysis struct {
	HasLyrics bool     `json:"has_lyrics"`
	WordCount int      `json:"word_count,omitempty"`
	Sentiment float64  `json:"sentiment,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Themes    []string `json:"themes,omitempty"`
	Excerpt   string   `json:"excerpt,omitempty"`
}

// HasTheme reports whether the analysis detected the given theme.
func (a *Analysis) HasTheme(theme string) bool {
	for _, t := range a.Themes {
		if t == theme {
			return true
		}
	}
	return false
}
