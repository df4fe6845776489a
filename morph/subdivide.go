package morph

import "math"

type point struct{ x, y float64 }

func lerpPoint(a, b point, t float64) point {
	return point{a.x + (b.x-a.x)*t, a.y + (b.y-a.y)*t}
}

// deCasteljau splits the Bézier curve with control polygon pts at t and
// returns the control polygons of both halves.
func deCasteljau(pts []point, t float64) (left, right []point) {
	n := len(pts)
	left = make([]point, n)
	right = make([]point, n)
	tmp := make([]point, n)
	copy(tmp, pts)
	for i := 0; i < n; i++ {
		left[i] = tmp[0]
		right[n-1-i] = tmp[n-1-i]
		for j := 0; j < n-1-i; j++ {
			tmp[j] = lerpPoint(tmp[j], tmp[j+1], t)
		}
	}
	return left, right
}

// splitCurvePoints cuts a curve into count pieces of equal parameter span.
// Each cut is taken from the remainder of the previous one, so the relative
// parameter is re-derived as tInc/(1-tInc*i).
func splitCurvePoints(pts []point, count int) [][]point {
	pieces := make([][]point, 0, count)
	remaining := pts
	tInc := 1 / float64(count)
	for i := 0; i < count-1; i++ {
		tRel := tInc / (1 - tInc*float64(i))
		left, right := deCasteljau(remaining, tRel)
		pieces = append(pieces, left)
		remaining = right
	}
	return append(pieces, remaining)
}

// splittable reports whether a segment ending in k has an interior shape
// that de Casteljau subdivision can cut.
func splittable(k Kind) bool {
	return k == LineTo || k == QuadTo || k == CubicTo
}

// controlPoints returns the control polygon of the segment from start to end.
func controlPoints(start, end Command) []point {
	pts := []point{{start.X, start.Y}}
	switch end.Kind {
	case QuadTo:
		pts = append(pts, point{end.X1, end.Y1})
	case CubicTo:
		pts = append(pts, point{end.X1, end.Y1}, point{end.X2, end.Y2})
	}
	return append(pts, point{end.X, end.Y})
}

// pointsToCommand rebuilds a command from a control polygon of length 2, 3
// or 4 (line, quadratic, cubic).
func pointsToCommand(pts []point) Command {
	last := pts[len(pts)-1]
	c := Command{X: last.x, Y: last.y}
	switch len(pts) {
	case 4:
		c.Kind = CubicTo
		c.X1, c.Y1 = pts[1].x, pts[1].y
		c.X2, c.Y2 = pts[2].x, pts[2].y
	case 3:
		c.Kind = QuadTo
		c.X1, c.Y1 = pts[1].x, pts[1].y
	default:
		c.Kind = LineTo
	}
	return c
}

// segmentLength estimates the length of the segment ending in end by its
// control polygon. Segments that jump (MoveTo) have no drawn length.
func segmentLength(start, end Command) float64 {
	if end.Kind == MoveTo {
		return 0
	}
	pts := controlPoints(start, end)
	var l float64
	for i := 1; i < len(pts); i++ {
		l += math.Hypot(pts[i].x-pts[i-1].x, pts[i].y-pts[i-1].y)
	}
	return l
}

// duplicate returns a degenerate copy of c that draws nothing when the pen
// is already at c's end point.
func duplicate(c Command) Command {
	switch c.Kind {
	case MoveTo, SmoothQuadTo:
		c.Kind = LineTo
	case CubicTo:
		c.X1, c.Y1 = c.X, c.Y
		c.X2, c.Y2 = c.X, c.Y
	case SmoothCubicTo:
		c.X2, c.Y2 = c.X, c.Y
	case QuadTo:
		c.X1, c.Y1 = c.X, c.Y
	}
	return c
}

// splitSegment replaces the segment start→end with count commands.
func splitSegment(start, end Command, count int) []Command {
	if count <= 1 {
		return []Command{end}
	}
	out := make([]Command, 0, count)
	if splittable(end.Kind) {
		for _, piece := range splitCurvePoints(controlPoints(start, end), count) {
			out = append(out, pointsToCommand(piece))
		}
		return out
	}
	dup := duplicate(start)
	for i := 0; i < count-1; i++ {
		out = append(out, dup)
	}
	return append(out, end)
}

// extend lengthens cmds to n commands. Extra commands go to the segments
// whose pieces are currently longest, so repeated splits stay uniform.
func extend(cmds []Command, n int) []Command {
	extra := n - len(cmds)
	if extra <= 0 {
		return cmds
	}
	segs := len(cmds) - 1
	if segs == 0 {
		out := make([]Command, 1, n)
		out[0] = cmds[0]
		dup := duplicate(cmds[0])
		for i := 0; i < extra; i++ {
			out = append(out, dup)
		}
		return out
	}

	lengths := make([]float64, segs)
	counts := make([]int, segs)
	for i := 0; i < segs; i++ {
		lengths[i] = segmentLength(cmds[i], cmds[i+1])
		counts[i] = 1
	}
	for e := 0; e < extra; e++ {
		best := 0
		for i := 1; i < segs; i++ {
			li := lengths[i] / float64(counts[i])
			lb := lengths[best] / float64(counts[best])
			if li > lb || (li == lb && counts[i] < counts[best]) {
				best = i
			}
		}
		counts[best]++
	}

	out := make([]Command, 1, n)
	out[0] = cmds[0]
	for i := 0; i < segs; i++ {
		out = append(out, splitSegment(cmds[i], cmds[i+1], counts[i])...)
	}
	return out
}
