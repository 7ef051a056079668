package browser

import "time"

// Band names an inter-action pause class. Bands model the different kinds of
// hesitation a person shows between form interactions, from a flick of the
// eyes to reading a freshly loaded page.
type Band string

const (
	BandMicro    Band = "micro"
	BandShort    Band = "short"
	BandAction   Band = "action"
	BandThinking Band = "thinking"
	BandPage     Band = "page"
)

type durationRange struct {
	min time.Duration
	max time.Duration
}

var bandRanges = map[Band]durationRange{
	BandMicro:    {50 * time.Millisecond, 150 * time.Millisecond},
	BandShort:    {300 * time.Millisecond, 800 * time.Millisecond},
	BandAction:   {800 * time.Millisecond, 2000 * time.Millisecond},
	BandThinking: {1500 * time.Millisecond, 3500 * time.Millisecond},
	BandPage:     {2500 * time.Millisecond, 4500 * time.Millisecond},
}

// distractionProbability is the chance a non-micro pause stretches beyond its
// normal upper bound, modelling a momentarily distracted user.
const distractionProbability = 0.1

// SpeedProfile names a per-character typing cadence.
type SpeedProfile string

const (
	ProfileFast   SpeedProfile = "fast"
	ProfileNormal SpeedProfile = "normal"
	ProfileSlow   SpeedProfile = "slow"
)

var profileRanges = map[SpeedProfile]durationRange{
	ProfileFast:   {30 * time.Millisecond, 80 * time.Millisecond},
	ProfileNormal: {50 * time.Millisecond, 120 * time.Millisecond},
	ProfileSlow:   {80 * time.Millisecond, 180 * time.Millisecond},
}

// Typing micro-variance parameters. Punctuation takes longer to reach,
// a few keystrokes hesitate, and rhythm speeds up once fingers are rolling.
const (
	punctuationChars       = ".,@!?-_"
	hesitationProbability  = 0.03
	burstProbability       = 0.3
	burstFactor            = 0.85
	burstAfterChars        = 4
	punctuationExtraMin    = 50 * time.Millisecond
	punctuationExtraMax    = 150 * time.Millisecond
	hesitationExtraMin     = 200 * time.Millisecond
	hesitationExtraMax     = 500 * time.Millisecond
	distractionStretchMin  = 500 * time.Millisecond
	distractionStretchMax  = 1500 * time.Millisecond
)
