package motion

import (
	"math/rand"
	"sync"
	"time"
)

// Synthesizer converts a start/end cursor pair into a humanlike trajectory
// and a matching timing profile. It has no I/O and no state across calls
// beyond its pseudo-random source.
type Synthesizer struct {
	cfg Config

	// mu guards rng; *rand.Rand is not safe for concurrent use and a
	// synthesizer may be shared by helpers inside one workflow instance.
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Synthesizer seeded from the wall clock.
func New(cfg Config) (*Synthesizer, error) {
	return NewWithRand(cfg, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand creates a Synthesizer with a caller-supplied random source,
// which makes trajectories reproducible in tests.
func NewWithRand(cfg Config, rng *rand.Rand) (*Synthesizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Synthesizer{cfg: cfg, rng: rng}, nil
}

// Config returns the immutable configuration of the synthesizer.
func (s *Synthesizer) Config() Config { return s.cfg }

// GeneratePath produces the ordered intermediate points of a cursor movement
// from start to end. The last point is always the exact target. Movements
// shorter than one pixel need no synthesis and collapse to the target alone.
func (s *Synthesizer) GeneratePath(start, end Point) []Point {
	dist := start.Dist(end)
	if dist < 1 {
		return []Point{end}
	}

	s.mu.Lock()
	numNodes := s.cfg.MinNodes + s.rng.Intn(s.cfg.MaxNodes-s.cfg.MinNodes+1)
	variance := dist * s.cfg.VarianceFactor
	if variance > s.cfg.MaxVariance {
		variance = s.cfg.MaxVariance
	}
	zigzag := s.rng.Float64() < s.cfg.ZigzagProbability
	s.mu.Unlock()

	var control []Point
	if zigzag {
		control = s.zigzagControlPoints(start, end, numNodes, variance)
	} else {
		control = s.curvedControlPoints(start, end, numNodes, variance)
	}
	return s.fitTrajectory(control)
}

// zigzagControlPoints interpolates numNodes points between start and end and
// perturbs every interior point by independent uniform noise in [-v, v].
func (s *Synthesizer) zigzagControlPoints(start, end Point, numNodes int, variance float64) []Point {
	points := linspace(start, end, numNodes)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 1; i < numNodes-1; i++ {
		points[i].X += uniform(s.rng, -variance, variance)
		points[i].Y += uniform(s.rng, -variance, variance)
	}
	return points
}

// curvedControlPoints interpolates numNodes points and applies Gaussian noise
// (stddev 0.5*v) on both axes, forcing the endpoints back to zero offset so
// the movement still lands exactly on target.
func (s *Synthesizer) curvedControlPoints(start, end Point, numNodes int, variance float64) []Point {
	points := linspace(start, end, numNodes)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 1; i < numNodes-1; i++ {
		points[i].X += s.rng.NormFloat64() * variance * 0.5
		points[i].Y += s.rng.NormFloat64() * variance * 0.5
	}
	return points
}

// fitTrajectory turns control points into the final sampled path. Fewer than
// four control points cannot anchor a cubic spline, so they are linearly
// interpolated in parameter space. A spline failure is never fatal; the
// caller always gets a usable path.
func (s *Synthesizer) fitTrajectory(control []Point) []Point {
	if len(control) < 2 {
		return control
	}
	if len(control) < 4 {
		return resampleLinear(control, s.cfg.SamplesPerPath)
	}
	path, err := splineResample(control, s.cfg.SamplesPerPath)
	if err != nil {
		return resampleLinear(control, s.cfg.SamplesPerPath)
	}
	return path
}

// linspace returns n points evenly interpolated from start to end inclusive.
func linspace(start, end Point, n int) []Point {
	points := make([]Point, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		points[i] = start.Lerp(end, t)
	}
	return points
}

// resampleLinear re-samples a polyline uniformly in parameter space, treating
// the input points as evenly spaced in [0, 1].
func resampleLinear(points []Point, samples int) []Point {
	out := make([]Point, samples)
	last := float64(len(points) - 1)
	for i := 0; i < samples; i++ {
		t := float64(i) / float64(samples-1) * last
		idx := int(t)
		if idx >= len(points)-1 {
			out[i] = points[len(points)-1]
			continue
		}
		out[i] = points[idx].Lerp(points[idx+1], t-float64(idx))
	}
	return out
}

// uniform draws from [min, max).
func uniform(rng *rand.Rand, min, max float64) float64 {
	return min + rng.Float64()*(max-min)
}
