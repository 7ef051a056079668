package motion

import "math"

// Point represents a position in a 2D screen coordinate system.
type Point struct {
	X float64
	Y float64
}

// Dist calculates the Euclidean distance between `p` and `other`.
func (p Point) Dist(other Point) float64 {
	// math.Hypot is numerically stable for very large or small components.
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Lerp linearly interpolates between `p` and `other` at parameter t in [0, 1].
func (p Point) Lerp(other Point, t float64) Point {
	return Point{
		X: p.X + (other.X-p.X)*t,
		Y: p.Y + (other.Y-p.Y)*t,
	}
}

// pathLength sums the consecutive segment lengths of a path.
func pathLength(path []Point) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += path[i].Dist(path[i-1])
	}
	return total
}
