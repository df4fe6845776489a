package raster

import "math"

// Multiply returns p·c: the matrix that applies c first, then p.
func Multiply(p, c [6]float64) [6]float64 {
	return [6]float64{
		p[0]*c[0] + p[2]*c[1],
		p[1]*c[0] + p[3]*c[1],
		p[0]*c[2] + p[2]*c[3],
		p[1]*c[2] + p[3]*c[3],
		p[0]*c[4] + p[2]*c[5] + p[4],
		p[1]*c[4] + p[3]*c[5] + p[5],
	}
}

// Invert returns the inverse of m. ok is false for a singular matrix.
func Invert(m [6]float64) (inv [6]float64, ok bool) {
	det := m[0]*m[3] - m[2]*m[1]
	if math.Abs(det) < 1e-12 {
		return inv, false
	}
	d := 1.0 / det
	a, b := m[3]*d, -m[1]*d
	c, e := -m[2]*d, m[0]*d
	return [6]float64{a, b, c, e, -(a*m[4] + c*m[5]), -(b*m[4] + e*m[5])}, true
}

// Apply maps (x, y) through m.
func Apply(m [6]float64, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}
