package morph

import "math"

// Interpolate returns a function that morphs path a into path b. The
// returned function yields a exactly at t <= 0 and b exactly at t >= 1; in
// between every numeric field is blended linearly after easing t.
//
// Paths of different lengths are equalized first by subdividing the
// shorter path's segments, and commands are converted pairwise to a common
// kind. A nil easing is linear. The end-point slices are shared between
// calls and must not be modified.
func Interpolate(a, b []Command, easing Easing) func(t float64) []Command {
	origA, origB := Clone(a), Clone(b)
	if easing == nil {
		easing = Linear
	}

	ac, bc := Clone(a), Clone(b)
	if len(ac) == 0 && len(bc) == 0 {
		return func(float64) []Command { return nil }
	}

	addClose := endsClosed(ac) && endsClosed(bc)
	ac = stripClose(ac)
	bc = stripClose(bc)

	switch {
	case len(ac) == 0 && len(bc) == 0:
		closed := []Command{{Kind: ClosePath}}
		return func(float64) []Command { return closed }
	case len(ac) == 0:
		ac = []Command{bc[0]}
	case len(bc) == 0:
		bc = []Command{ac[0]}
	}

	if len(ac) < len(bc) {
		ac = extend(ac, len(bc))
	} else if len(bc) < len(ac) {
		bc = extend(bc, len(ac))
	}

	for i := range ac {
		ac[i], bc[i] = sameKind(ac[i], bc[i])
	}

	return func(t float64) []Command {
		if t <= 0 {
			return origA
		}
		if t >= 1 {
			return origB
		}
		e := easing(t)
		out := make([]Command, len(ac), len(ac)+1)
		for i := range ac {
			blend(&out[i], &ac[i], &bc[i], e)
		}
		if addClose {
			sx, sy := subpathStart(out)
			out = append(out, Command{Kind: ClosePath, X: sx, Y: sy})
		}
		return out
	}
}

// blend writes the interpolation of a and b at t into dst. Arc flags are
// rounded so the result stays a valid path.
func blend(dst, a, b *Command, t float64) {
	*dst = Command{Kind: a.Kind}
	if a.Kind == ClosePath {
		dst.X = (1-t)*a.X + t*b.X
		dst.Y = (1-t)*a.Y + t*b.Y
		return
	}
	fields := a.Kind.fields()
	for _, f := range allFields {
		if fields&f == 0 {
			continue
		}
		v := (1-t)*a.get(f) + t*b.get(f)
		if f == fieldLarge || f == fieldSweep {
			v = math.Round(v)
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
		}
		dst.set(f, v)
	}
}

// subpathStart returns the end point of the last MoveTo in cmds.
func subpathStart(cmds []Command) (float64, float64) {
	for i := len(cmds) - 1; i >= 0; i-- {
		if cmds[i].Kind == MoveTo {
			return cmds[i].X, cmds[i].Y
		}
	}
	if len(cmds) > 0 {
		return cmds[0].X, cmds[0].Y
	}
	return 0, 0
}

func endsClosed(cmds []Command) bool {
	return len(cmds) == 0 || cmds[len(cmds)-1].Kind == ClosePath
}

func stripClose(cmds []Command) []Command {
	if n := len(cmds); n > 0 && cmds[n-1].Kind == ClosePath {
		return cmds[:n-1]
	}
	return cmds
}

// arcOnly lists the fields read from the target when converting to an arc.
const arcOnly = fieldRot | fieldLarge | fieldSweep

// convertTo rewrites src as a command of kind target. Fields src lacks take
// their value from the fallback: end and control points default to src's end
// point (a close's end point is its subpath start), arc rotation and flags
// come from ref, everything else is 0.
func convertTo(src Command, target Kind, ref *Command) Command {
	if src.Kind == target {
		return src
	}
	out := Command{Kind: target}
	for _, f := range allFields {
		if target.fields()&f == 0 {
			continue
		}
		switch {
		case src.hasField(f):
			out.set(f, src.get(f))
		case f&arcOnly != 0:
			out.set(f, ref.get(f))
		case f == fieldX || f == fieldX1 || f == fieldX2:
			out.set(f, src.X)
		case f == fieldY || f == fieldY1 || f == fieldY2:
			out.set(f, src.Y)
		}
	}
	return out
}

// sameKind converts the pair to a shared kind. The first path adopts the
// second's kind, except that a MoveTo target never forces its kind onto a
// drawing command; in that case the MoveTo is converted instead.
func sameKind(a, b Command) (Command, Command) {
	if a.Kind == b.Kind {
		return a, b
	}
	if b.Kind == MoveTo {
		return a, convertTo(b, a.Kind, &a)
	}
	return convertTo(a, b.Kind, &b), b
}
