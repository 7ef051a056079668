package motion

import (
	"math"
	"time"
)

// Base-duration clamp bounds in milliseconds. Motion should never complete
// instantly nor drag on past what a human would take for one mouse sweep.
const (
	minBaseDurationMs = 100
	maxBaseDurationMs = 2000
)

// CalculateDelays produces one delay per consecutive path segment, pacing the
// replay of a trajectory. A path too short to have segments yields a single
// zero sentinel so callers can still range over the result.
//
// The total duration grows sublinearly-with-noise in path length: a random
// exponent and adjustment in [1.1, 1.75] shape it, SpeedFactor scales it, and
// each segment receives a share proportional to its length with +/-20% jitter.
func (s *Synthesizer) CalculateDelays(path []Point) []time.Duration {
	if len(path) < 2 {
		return []time.Duration{0}
	}

	total := pathLength(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	exponent := uniform(s.rng, 1.1, 1.75)
	adjustment := uniform(s.rng, 1.1, 1.75)
	baseMs := math.Pow(total, exponent) / adjustment * s.cfg.SpeedFactor
	baseMs = math.Min(math.Max(baseMs, minBaseDurationMs), maxBaseDurationMs)

	delays := make([]time.Duration, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		proportion := 1 / float64(len(path))
		if total > 0 {
			proportion = path[i].Dist(path[i-1]) / total
		}
		jitter := uniform(s.rng, 0.8, 1.2)
		delays = append(delays, time.Duration(baseMs*proportion*jitter*float64(time.Millisecond)))
	}
	return delays
}
