package motion

import "errors"

var errDegenerateControlPoints = errors.New("motion: control points have zero total chord length")

// splineResample fits a parametric natural cubic spline through the control
// points, parameterized by normalized chord length, and resamples it into
// `samples` uniformly spaced points. The spline interpolates every control
// point, so the first and last path points match the endpoints exactly.
func splineResample(control []Point, samples int) ([]Point, error) {
	n := len(control)
	params := make([]float64, n)
	var total float64
	for i := 1; i < n; i++ {
		total += control[i].Dist(control[i-1])
		params[i] = total
	}
	if total <= 0 {
		return nil, errDegenerateControlPoints
	}
	for i := range params {
		params[i] /= total
	}
	// Coincident neighbors would produce a zero knot interval and a singular
	// system; let the caller fall back to linear interpolation.
	for i := 1; i < n; i++ {
		if params[i]-params[i-1] <= 1e-12 {
			return nil, errDegenerateControlPoints
		}
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range control {
		xs[i] = p.X
		ys[i] = p.Y
	}
	mx := secondDerivatives(params, xs)
	my := secondDerivatives(params, ys)

	out := make([]Point, samples)
	seg := 0
	for i := 0; i < samples; i++ {
		t := float64(i) / float64(samples-1)
		for seg < n-2 && t > params[seg+1] {
			seg++
		}
		out[i] = Point{
			X: evalCubicSegment(params, xs, mx, seg, t),
			Y: evalCubicSegment(params, ys, my, seg, t),
		}
	}
	return out, nil
}

// secondDerivatives solves the natural cubic spline system for the second
// derivatives at each knot using the Thomas tridiagonal algorithm.
func secondDerivatives(t, y []float64) []float64 {
	n := len(t)
	m := make([]float64, n)
	if n < 3 {
		return m
	}

	// Interior equations; natural boundary keeps m[0] = m[n-1] = 0.
	diag := make([]float64, n)
	rhs := make([]float64, n)
	upper := make([]float64, n)
	for i := 1; i < n-1; i++ {
		h0 := t[i] - t[i-1]
		h1 := t[i+1] - t[i]
		diag[i] = 2 * (h0 + h1)
		upper[i] = h1
		rhs[i] = 6 * ((y[i+1]-y[i])/h1 - (y[i]-y[i-1])/h0)
	}

	// Forward elimination.
	for i := 2; i < n-1; i++ {
		h0 := t[i] - t[i-1]
		factor := h0 / diag[i-1]
		diag[i] -= factor * upper[i-1]
		rhs[i] -= factor * rhs[i-1]
	}

	// Back substitution.
	for i := n - 2; i >= 1; i-- {
		m[i] = (rhs[i] - upper[i]*m[i+1]) / diag[i]
	}
	return m
}

// evalCubicSegment evaluates the spline on segment [t[i], t[i+1]] at parameter x.
func evalCubicSegment(t, y, m []float64, i int, x float64) float64 {
	h := t[i+1] - t[i]
	a := (t[i+1] - x) / h
	b := (x - t[i]) / h
	return a*y[i] + b*y[i+1] +
		((a*a*a-a)*m[i]+(b*b*b-b)*m[i+1])*(h*h)/6
}
