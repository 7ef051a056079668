package motion

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestSynthesizer returns a deterministic synthesizer for tests.
func newTestSynthesizer(t *testing.T, cfg Config, seed int64) *Synthesizer {
	t.Helper()
	s, err := NewWithRand(cfg, rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return s
}

func TestGeneratePath_SubUnitDistance(t *testing.T) {
	s := newTestSynthesizer(t, DefaultConfig(), 1)

	start := Point{X: 100, Y: 100}
	end := Point{X: 100.5, Y: 100.2}

	path := s.GeneratePath(start, end)

	require.Len(t, path, 1, "sub-unit movements need no synthesis")
	assert.Equal(t, end, path[0])
}

func TestGeneratePath_EndsOnTarget(t *testing.T) {
	cfg := DefaultConfig()
	for seed := int64(1); seed <= 25; seed++ {
		s := newTestSynthesizer(t, cfg, seed)
		start := Point{X: 50, Y: 80}
		end := Point{X: 900, Y: 420}

		path := s.GeneratePath(start, end)

		require.Len(t, path, cfg.SamplesPerPath)
		last := path[len(path)-1]
		assert.InDelta(t, end.X, last.X, 1e-6, "seed %d: final X must hit the target", seed)
		assert.InDelta(t, end.Y, last.Y, 1e-6, "seed %d: final Y must hit the target", seed)
	}
}

func TestGeneratePath_CurvedKeepsEndpointsExact(t *testing.T) {
	cfg := DefaultConfig()
	// Force the curved branch; its Gaussian offsets must be zeroed on the
	// endpoints.
	cfg.ZigzagProbability = 0
	s := newTestSynthesizer(t, cfg, 7)

	start := Point{X: 10, Y: 10}
	end := Point{X: 600, Y: 300}
	path := s.GeneratePath(start, end)

	require.Len(t, path, cfg.SamplesPerPath)
	assert.InDelta(t, start.X, path[0].X, 1e-6)
	assert.InDelta(t, start.Y, path[0].Y, 1e-6)
	assert.InDelta(t, end.X, path[len(path)-1].X, 1e-6)
	assert.InDelta(t, end.Y, path[len(path)-1].Y, 1e-6)
}

func TestGeneratePath_ZigzagStaysWithinVarianceBound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ZigzagProbability = 1
	cfg.MinNodes, cfg.MaxNodes = 4, 4
	s := newTestSynthesizer(t, cfg, 3)

	start := Point{X: 0, Y: 0}
	end := Point{X: 400, Y: 0}
	variance := math.Min(start.Dist(end)*cfg.VarianceFactor, cfg.MaxVariance)

	// A horizontal baseline makes the perpendicular bound easy to check: the
	// spline can overshoot perturbed control points slightly, so allow margin.
	path := s.GeneratePath(start, end)
	for _, p := range path {
		assert.LessOrEqual(t, math.Abs(p.Y), variance*1.5,
			"trajectory should stay near the perturbation envelope")
	}
}

func TestGeneratePath_FewControlPointsFallsBackToLinear(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinNodes, cfg.MaxNodes = 2, 3
	cfg.ZigzagProbability = 1
	s := newTestSynthesizer(t, cfg, 11)

	path := s.GeneratePath(Point{X: 0, Y: 0}, Point{X: 120, Y: 50})

	// Linear interpolation still honours the sample count and the target.
	require.Len(t, path, cfg.SamplesPerPath)
	assert.InDelta(t, 120.0, path[len(path)-1].X, 1e-6)
	assert.InDelta(t, 50.0, path[len(path)-1].Y, 1e-6)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "min nodes below two", mutate: func(c *Config) { c.MinNodes = 1 }, wantErr: true},
		{name: "min above max", mutate: func(c *Config) { c.MinNodes = 10; c.MaxNodes = 4 }, wantErr: true},
		{name: "one sample", mutate: func(c *Config) { c.SamplesPerPath = 1 }, wantErr: true},
		{name: "negative factor", mutate: func(c *Config) { c.VarianceFactor = -0.1 }, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplineResample_InterpolatesControlPoints(t *testing.T) {
	control := []Point{{0, 0}, {100, 80}, {200, -40}, {300, 0}, {400, 60}}
	path, err := splineResample(control, 101)
	require.NoError(t, err)
	require.Len(t, path, 101)

	assert.InDelta(t, control[0].X, path[0].X, 1e-9)
	assert.InDelta(t, control[0].Y, path[0].Y, 1e-9)
	last := path[len(path)-1]
	assert.InDelta(t, control[len(control)-1].X, last.X, 1e-9)
	assert.InDelta(t, control[len(control)-1].Y, last.Y, 1e-9)
}

func TestSplineResample_DegenerateInput(t *testing.T) {
	same := Point{X: 5, Y: 5}
	_, err := splineResample([]Point{same, same, same, same}, 10)
	assert.ErrorIs(t, err, errDegenerateControlPoints)
}
