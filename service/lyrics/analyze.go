package lyrics

import (
	"sort"
	"strings"
	"unicode"

	"github.com/ntoledo319/nous/models"
)

const (
	maxKeywords   = 15
	maxThemes     = 8
	excerptBudget = 240
	minWordLength = 2
)

// Deliberately crude keyword sentiment, not NLP. The sets are small and
// fixed so the analysis stays deterministic and explainable.
var positiveWords = map[string]bool{
	"love": true, "hope": true, "light": true, "happy": true, "joy": true,
	"free": true, "alive": true, "shine": true, "smile": true, "heal": true,
	"strong": true, "peace": true, "better": true, "home": true,
}

var negativeWords = map[string]bool{
	"hate": true, "pain": true, "dark": true, "cry": true, "lost": true,
	"alone": true, "fear": true, "break": true, "hurt": true, "dead": true,
	"cold": true, "fall": true, "sorry": true,
}

var stopwords = map[string]bool{
	"the": true, "and": true, "you": true, "your": true, "yours": true,
	"that": true, "this": true, "with": true, "for": true, "but": true,
	"not": true, "all": true, "are": true, "was": true, "can": true,
	"cant": true, "dont": true, "wont": true, "what": true, "when": true,
	"where": true, "who": true, "will": true, "just": true, "like": true,
	"get": true, "got": true, "gonna": true, "wanna": true, "out": true,
	"now": true, "one": true, "she": true, "him": true, "her": true,
	"his": true, "they": true, "them": true, "its": true, "ive": true,
	"youre": true, "there": true, "here": true, "our": true, "been": true,
	"had": true, "has": true, "have": true,
	"oh": true, "ooh": true, "yeah": true, "hey": true, "nah": true,
	"let": true, "say": true, "said": true, "know": true, "see": true,
	"come": true, "way": true, "take": true, "make": true, "never": true,
	"every": true, "still": true, "back": true, "down": true, "away": true,
	"into": true, "about": true, "than": true, "then": true, "cause": true,
}

// themeVocab maps each fixed theme category to its vocabulary. A theme
// scores one point per token occurrence in its set.
var themeVocab = map[string]map[string]bool{
	"recovery": {
		"sober": true, "clean": true, "heal": true, "healing": true,
		"recover": true, "rise": true, "again": true, "rebuild": true,
		"survive": true, "stronger": true,
	},
	"grief": {
		"gone": true, "goodbye": true, "miss": true, "grave": true,
		"mourn": true, "funeral": true, "died": true, "death": true,
		"lost": true, "memory": true,
	},
	"anxiety": {
		"worry": true, "panic": true, "shaking": true, "nervous": true,
		"racing": true, "breathe": true, "spiral": true, "overthink": true,
		"fear": true, "afraid": true,
	},
	"anger": {
		"rage": true, "burn": true, "fight": true, "scream": true,
		"hate": true, "fury": true, "war": true, "revenge": true,
	},
	"love": {
		"love": true, "heart": true, "kiss": true, "hold": true,
		"touch": true, "forever": true, "darling": true, "baby": true,
	},
	"self-worth": {
		"enough": true, "worth": true, "worthy": true, "proud": true,
		"mirror": true, "myself": true, "believe": true, "deserve": true,
	},
	"hope": {
		"hope": true, "tomorrow": true, "sunrise": true, "dawn": true,
		"light": true, "dream": true, "wish": true, "someday": true,
	},
	"loneliness": {
		"alone": true, "lonely": true, "empty": true, "nobody": true,
		"isolated": true, "silence": true, "stranger": true,
	},
	"joy": {
		"dance": true, "celebrate": true, "laugh": true, "smile": true,
		"happy": true, "sunshine": true, "alive": true, "golden": true,
	},
	"calm": {
		"quiet": true, "still": true, "breathe": true, "slow": true,
		"gentle": true, "peace": true, "ocean": true, "drift": true,
	},
}

// tokenize splits text into lowercase alphabetic words of at least
// minWordLength characters.
func tokenize(text string) []string {
	var words []string
	var current strings.Builder
	runes := 0 // Builder.Len is bytes; the length filter counts characters

	flush := func() {
		if runes >= minWordLength {
			words = append(words, current.String())
		}
		current.Reset()
		runes = 0
	}

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) {
			current.WriteRune(r)
			runes++
		} else {
			flush()
		}
	}
	flush()

	return words
}

// Analyze derives word counts, a sentiment score, top keywords, theme
// labels, and a short excerpt from raw lyrics text. It is a pure
// function: identical input yields identical output.
func Analyze(text string) models.Analysis {
	words := tokenize(text)
	if len(words) == 0 {
		return models.Analysis{HasLyrics: false}
	}

	counts := make(map[string]int, len(words))
	posHits, negHits := 0, 0
	for _, w := range words {
		counts[w]++
		if positiveWords[w] {
			posHits++
		}
		if negativeWords[w] {
			negHits++
		}
	}

	sentiment := float64(posHits-negHits) / float64(len(words))

	// keywords: non-stopword tokens ranked by frequency, ties broken
	// alphabetically so the ordering is stable
	type wordCount struct {
		word  string
		count int
	}
	ranked := make([]wordCount, 0, len(counts))
	for w, c := range counts {
		if stopwords[w] {
			continue
		}
		ranked = append(ranked, wordCount{w, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})
	if len(ranked) > maxKeywords {
		ranked = ranked[:maxKeywords]
	}
	keywords := make([]string, len(ranked))
	for i, wc := range ranked {
		keywords[i] = wc.word
	}

	// themes: one point per token occurrence in a theme's vocabulary
	type themeScore struct {
		theme string
		score int
	}
	var scored []themeScore
	for theme, vocab := range themeVocab {
		score := 0
		for w, c := range counts {
			if vocab[w] {
				score += c
			}
		}
		if score > 0 {
			scored = append(scored, themeScore{theme, score})
		}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].theme < scored[j].theme
	})
	if len(scored) > maxThemes {
		scored = scored[:maxThemes]
	}
	themes := make([]string, len(scored))
	for i, ts := range scored {
		themes[i] = ts.theme
	}

	return models.Analysis{
		HasLyrics: true,
		WordCount: len(words),
		Sentiment: sentiment,
		Keywords:  keywords,
		Themes:    themes,
		Excerpt:   excerpt(text, excerptBudget),
	}
}

// excerpt concatenates leading non-empty lines up to the character budget.
func excerpt(text string, budget int) string {
	var lines []string
	used := 0

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if used+len(line) > budget {
			break
		}
		lines = append(lines, line)
		used += len(line)
	}

	return strings.Join(lines, " / ")
}
