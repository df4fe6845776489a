// Package raster holds what the rasterizer backends share: walking vela
// path data as plain move, line, quadratic, cubic and close segments.
package raster

import (
	"math"

	"github.com/phanxgames/vela/morph"
)

// Sink receives path segments in target space.
type Sink interface {
	MoveTo(x, y float64)
	LineTo(x, y float64)
	QuadTo(x1, y1, x, y float64)
	CubicTo(x1, y1, x2, y2, x, y float64)
	Close()
}

// Walk feeds cmds to s after mapping every point through the affine matrix
// m. Smooth curves get their reflected control points and arcs are split
// into cubics, so a Sink only ever sees the five basic segments.
func Walk(cmds []morph.Command, m [6]float64, s Sink) {
	var (
		cx, cy       float64 // current point, local space
		sx, sy       float64 // subpath start
		ctrlX, ctrlY float64 // last control point, for S and T
		started      bool
	)
	prev := morph.MoveTo
	pt := func(x, y float64) (float64, float64) {
		return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
	}
	for _, c := range cmds {
		switch c.Kind {
		case morph.MoveTo:
			s.MoveTo(pt(c.X, c.Y))
			sx, sy = c.X, c.Y
			started = true
		case morph.LineTo, morph.HLineTo, morph.VLineTo:
			s.LineTo(pt(c.X, c.Y))
		case morph.CubicTo:
			x1, y1 := pt(c.X1, c.Y1)
			x2, y2 := pt(c.X2, c.Y2)
			x, y := pt(c.X, c.Y)
			s.CubicTo(x1, y1, x2, y2, x, y)
			ctrlX, ctrlY = c.X2, c.Y2
		case morph.SmoothCubicTo:
			rx, ry := cx, cy
			if prev == morph.CubicTo || prev == morph.SmoothCubicTo {
				rx, ry = 2*cx-ctrlX, 2*cy-ctrlY
			}
			x1, y1 := pt(rx, ry)
			x2, y2 := pt(c.X2, c.Y2)
			x, y := pt(c.X, c.Y)
			s.CubicTo(x1, y1, x2, y2, x, y)
			ctrlX, ctrlY = c.X2, c.Y2
		case morph.QuadTo:
			x1, y1 := pt(c.X1, c.Y1)
			x, y := pt(c.X, c.Y)
			s.QuadTo(x1, y1, x, y)
			ctrlX, ctrlY = c.X1, c.Y1
		case morph.SmoothQuadTo:
			rx, ry := cx, cy
			if prev == morph.QuadTo || prev == morph.SmoothQuadTo {
				rx, ry = 2*cx-ctrlX, 2*cy-ctrlY
			}
			x1, y1 := pt(rx, ry)
			x, y := pt(c.X, c.Y)
			s.QuadTo(x1, y1, x, y)
			ctrlX, ctrlY = rx, ry
		case morph.ArcTo:
			arcToCubics(cx, cy, c, func(x1, y1, x2, y2, x, y float64) {
				ax1, ay1 := pt(x1, y1)
				ax2, ay2 := pt(x2, y2)
				ax, ay := pt(x, y)
				s.CubicTo(ax1, ay1, ax2, ay2, ax, ay)
			})
		case morph.ClosePath:
			if started {
				s.Close()
			}
			cx, cy = sx, sy
			prev = c.Kind
			continue
		}
		cx, cy = c.X, c.Y
		prev = c.Kind
	}
}

// arcToCubics converts an SVG elliptical arc from (x0, y0) into cubic
// segments of at most a quarter turn each. Degenerate radii become a line.
func arcToCubics(x0, y0 float64, c morph.Command, emit func(x1, y1, x2, y2, x, y float64)) {
	x, y := c.X, c.Y
	rx, ry := math.Abs(c.RX), math.Abs(c.RY)
	if x0 == x && y0 == y {
		return
	}
	if rx == 0 || ry == 0 {
		emit(x0, y0, x, y, x, y)
		return
	}
	phi := c.XAxisRotation * math.Pi / 180
	sinPhi, cosPhi := math.Sincos(phi)

	// endpoint to center parameterization
	dx, dy := (x0-x)/2, (y0-y)/2
	x1p := cosPhi*dx + sinPhi*dy
	y1p := -sinPhi*dx + cosPhi*dy

	lambda := x1p*x1p/(rx*rx) + y1p*y1p/(ry*ry)
	if lambda > 1 {
		s := math.Sqrt(lambda)
		rx *= s
		ry *= s
	}
	num := rx*rx*ry*ry - rx*rx*y1p*y1p - ry*ry*x1p*x1p
	den := rx*rx*y1p*y1p + ry*ry*x1p*x1p
	coef := 0.0
	if den != 0 && num > 0 {
		coef = math.Sqrt(num / den)
	}
	large, sweep := c.LargeArc != 0, c.Sweep != 0
	if large == sweep {
		coef = -coef
	}
	cxp := coef * rx * y1p / ry
	cyp := -coef * ry * x1p / rx
	centerX := cosPhi*cxp - sinPhi*cyp + (x0+x)/2
	centerY := sinPhi*cxp + cosPhi*cyp + (y0+y)/2

	theta1 := vectorAngle(1, 0, (x1p-cxp)/rx, (y1p-cyp)/ry)
	dtheta := vectorAngle((x1p-cxp)/rx, (y1p-cyp)/ry, (-x1p-cxp)/rx, (-y1p-cyp)/ry)
	if !sweep && dtheta > 0 {
		dtheta -= 2 * math.Pi
	} else if sweep && dtheta < 0 {
		dtheta += 2 * math.Pi
	}

	n := int(math.Ceil(math.Abs(dtheta) / (math.Pi / 2)))
	if n < 1 {
		n = 1
	}
	step := dtheta / float64(n)
	k := 4.0 / 3.0 * math.Tan(step/4)

	point := func(t float64) (float64, float64) {
		st, ct := math.Sincos(t)
		return centerX + rx*ct*cosPhi - ry*st*sinPhi, centerY + rx*ct*sinPhi + ry*st*cosPhi
	}
	deriv := func(t float64) (float64, float64) {
		st, ct := math.Sincos(t)
		return -rx*st*cosPhi - ry*ct*sinPhi, -rx*st*sinPhi + ry*ct*cosPhi
	}

	t := theta1
	px, py := x0, y0
	for i := 0; i < n; i++ {
		t2 := t + step
		ex, ey := point(t2)
		if i == n-1 {
			ex, ey = x, y
		}
		d1x, d1y := deriv(t)
		d2x, d2y := deriv(t2)
		emit(px+k*d1x, py+k*d1y, ex-k*d2x, ey-k*d2y, ex, ey)
		px, py = ex, ey
		t = t2
	}
}

// vectorAngle returns the signed angle from (ux, uy) to (vx, vy).
func vectorAngle(ux, uy, vx, vy float64) float64 {
	return math.Atan2(ux*vy-uy*vx, ux*vx+uy*vy)
}

// Bounds accumulates the target-space extent of everything a Sink is fed.
// Control points are included, so the result may be slightly larger than
// the curve itself.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
	Empty                  bool
}

// NewBounds returns an empty accumulator.
func NewBounds() *Bounds {
	return &Bounds{Empty: true}
}

func (b *Bounds) add(x, y float64) {
	if b.Empty {
		b.MinX, b.MinY, b.MaxX, b.MaxY = x, y, x, y
		b.Empty = false
		return
	}
	b.MinX = math.Min(b.MinX, x)
	b.MinY = math.Min(b.MinY, y)
	b.MaxX = math.Max(b.MaxX, x)
	b.MaxY = math.Max(b.MaxY, y)
}

func (b *Bounds) MoveTo(x, y float64) { b.add(x, y) }
func (b *Bounds) LineTo(x, y float64) { b.add(x, y) }
func (b *Bounds) QuadTo(x1, y1, x, y float64) {
	b.add(x1, y1)
	b.add(x, y)
}
func (b *Bounds) CubicTo(x1, y1, x2, y2, x, y float64) {
	b.add(x1, y1)
	b.add(x2, y2)
	b.add(x, y)
}
func (b *Bounds) Close() {}

// ScaleFactor returns the factor lengths grow by under m, the square root
// of its determinant. Stroke widths are scaled by it.
func ScaleFactor(m [6]float64) float64 {
	return math.Sqrt(math.Abs(m[0]*m[3] - m[1]*m[2]))
}
