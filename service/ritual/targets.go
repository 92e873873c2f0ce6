package ritual

// Time-of-day buckets.
const (
	BucketMorning = "morning"
	BucketDay     = "day"
	BucketEvening = "evening"
	BucketNight   = "night"
)

// Mood targets.
const (
	TargetUplift  = "uplift"
	TargetCalm    = "calm"
	TargetFocus   = "focus"
	TargetSleep   = "sleep"
	TargetReflect = "reflect"
)

// TimeBucket maps an hour of day onto a bucket: 5-10 morning, 11-16 day,
// 17-21 evening, everything else night.
func TimeBucket(hour int) string {
	switch {
	case hour >= 5 && hour <= 10:
		return BucketMorning
	case hour >= 11 && hour <= 16:
		return BucketDay
	case hour >= 17 && hour <= 21:
		return BucketEvening
	default:
		return BucketNight
	}
}

// bucketTargets is the fallback table used when no mood data exists.
var bucketTargets = map[string]string{
	BucketMorning: TargetUplift,
	BucketDay:     TargetFocus,
	BucketEvening: TargetCalm,
	BucketNight:   TargetSleep,
}

// midMoodTargets resolves the middle band of the mood threshold table,
// where the right target depends on the time of day.
var midMoodTargets = map[string]string{
	BucketMorning: TargetFocus,
	BucketDay:     TargetFocus,
	BucketEvening: TargetCalm,
	BucketNight:   TargetSleep,
}

// targetFor maps an average recent mood (nil when no mood data exists)
// and a time bucket onto a target.
func targetFor(avgMood *float64, bucket string) string {
	if avgMood == nil {
		return bucketTargets[bucket]
	}
	switch {
	case *avgMood <= 3.5:
		return TargetUplift
	case *avgMood <= 6.0:
		return midMoodTargets[bucket]
	case *avgMood <= 8.5:
		return TargetReflect
	default:
		return TargetUplift
	}
}

// targetProfile holds the fixed audio-feature constraints and lyrical
// theme allow/block lists for one target. Tuneables are passed verbatim
// to the recommendations call.
type targetProfile struct {
	Tuneables map[string]float64
	Allow     []string
	Block     []string
}

var targetProfiles = map[string]targetProfile{
	TargetUplift: {
		Tuneables: map[string]float64{"min_valence": 0.60, "min_energy": 0.55},
		Allow:     []string{"joy", "hope", "love", "self-worth", "recovery"},
		Block:     []string{"grief", "anxiety", "anger"},
	},
	TargetCalm: {
		Tuneables: map[string]float64{"max_energy": 0.50, "max_tempo": 120, "min_acousticness": 0.30},
		Allow:     []string{"calm", "love", "hope"},
		Block:     []string{"anger"},
	},
	TargetFocus: {
		Tuneables: map[string]float64{"max_speechiness": 0.33, "min_instrumentalness": 0.25, "max_energy": 0.70},
		Allow:     []string{"calm", "self-worth"},
		Block:     []string{"anger", "grief"},
	},
	TargetSleep: {
		Tuneables: map[string]float64{"max_energy": 0.35, "max_tempo": 110, "min_acousticness": 0.40},
		Allow:     []string{"calm"},
		Block:     []string{"anger", "anxiety"},
	},
	TargetReflect: {
		Tuneables: map[string]float64{"max_energy": 0.60, "min_acousticness": 0.20},
		Allow:     []string{"grief", "recovery", "loneliness", "self-worth"},
		Block:     nil,
	},
}
