package motion

import "fmt"

// Config holds the parameters shaping synthesized cursor trajectories.
// All fields are read-only once the Synthesizer is constructed.
type Config struct {
	// SpeedFactor scales the total duration of a movement. Lower is faster.
	SpeedFactor float64
	// ZigzagProbability is the chance a path is built from sharp, uniformly
	// perturbed control points instead of a smoother Gaussian curve.
	ZigzagProbability float64
	// MinNodes and MaxNodes bound the number of control points per path.
	MinNodes int
	MaxNodes int
	// VarianceFactor scales perturbation with movement distance; MaxVariance
	// caps it in pixels.
	VarianceFactor float64
	MaxVariance    float64
	// SamplesPerPath is the number of points in the resampled trajectory.
	SamplesPerPath int
}

// DefaultConfig returns the parameters of an average, unhurried user.
func DefaultConfig() Config {
	return Config{
		SpeedFactor:       0.5,
		ZigzagProbability: 0.75,
		MinNodes:          2,
		MaxNodes:          15,
		VarianceFactor:    0.15,
		MaxVariance:       100,
		SamplesPerPath:    100,
	}
}

// Validate reports configurations that cannot produce a trajectory.
func (c Config) Validate() error {
	if c.MinNodes < 2 {
		return fmt.Errorf("motion: min nodes must be >= 2, got %d", c.MinNodes)
	}
	if c.MinNodes > c.MaxNodes {
		return fmt.Errorf("motion: min nodes %d exceeds max nodes %d", c.MinNodes, c.MaxNodes)
	}
	if c.SamplesPerPath < 2 {
		return fmt.Errorf("motion: samples per path must be >= 2, got %d", c.SamplesPerPath)
	}
	if c.SpeedFactor < 0 || c.ZigzagProbability < 0 || c.VarianceFactor < 0 || c.MaxVariance < 0 {
		return fmt.Errorf("motion: factors must be non-negative")
	}
	return nil
}
