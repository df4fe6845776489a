package morph

import (
	"math"
	"strings"

	"github.com/tanema/gween/ease"
)

// Easing maps linear progress in [0, 1] to eased progress.
type Easing func(t float64) float64

// Linear is the identity easing.
func Linear(t float64) float64 { return t }

// FromTween adapts a gween easing function to an Easing.
func FromTween(fn ease.TweenFunc) Easing {
	if fn == nil {
		return Linear
	}
	return func(t float64) float64 {
		return float64(fn(float32(t), 0, 1, 1))
	}
}

var namedEasings = map[string]ease.TweenFunc{
	"linear":       ease.Linear,
	"inquad":       ease.InQuad,
	"outquad":      ease.OutQuad,
	"inoutquad":    ease.InOutQuad,
	"incubic":      ease.InCubic,
	"outcubic":     ease.OutCubic,
	"inoutcubic":   ease.InOutCubic,
	"insine":       ease.InSine,
	"outsine":      ease.OutSine,
	"inoutsine":    ease.InOutSine,
	"inexpo":       ease.InExpo,
	"outexpo":      ease.OutExpo,
	"inoutexpo":    ease.InOutExpo,
	"inback":       ease.InBack,
	"outback":      ease.OutBack,
	"inoutback":    ease.InOutBack,
	"inbounce":     ease.InBounce,
	"outbounce":    ease.OutBounce,
	"inoutbounce":  ease.InOutBounce,
	"inelastic":    ease.InElastic,
	"outelastic":   ease.OutElastic,
	"inoutelastic": ease.InOutElastic,
}

// Named resolves an easing by name ("linear", "inOutQuad", "out-cubic", ...).
// Matching ignores case, dashes and underscores.
func Named(name string) (Easing, bool) {
	key := strings.ToLower(name)
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	if key == "linear" {
		return Linear, true
	}
	fn, ok := namedEasings[key]
	if !ok {
		return nil, false
	}
	return FromTween(fn), true
}

// Spline returns the cubic-Bézier easing with control points (x1, y1) and
// (x2, y2) and fixed end points (0, 0) and (1, 1), as used by SMIL
// keySplines.
func Spline(x1, y1, x2, y2 float64) Easing {
	if x1 == y1 && x2 == y2 {
		return Linear
	}
	cx := 3 * x1
	bx := 3*(x2-x1) - cx
	ax := 1 - cx - bx
	cy := 3 * y1
	by := 3*(y2-y1) - cy
	ay := 1 - cy - by

	sampleX := func(s float64) float64 { return ((ax*s+bx)*s + cx) * s }
	sampleY := func(s float64) float64 { return ((ay*s+by)*s + cy) * s }
	slopeX := func(s float64) float64 { return (3*ax*s+2*bx)*s + cx }

	const eps = 1e-7
	solve := func(x float64) float64 {
		s := x
		for i := 0; i < 8; i++ {
			d := sampleX(s) - x
			if math.Abs(d) < eps {
				return s
			}
			slope := slopeX(s)
			if math.Abs(slope) < 1e-6 {
				break
			}
			s -= d / slope
		}
		// Bisection fallback.
		lo, hi := 0.0, 1.0
		s = x
		for lo < hi {
			v := sampleX(s)
			if math.Abs(v-x) < eps {
				return s
			}
			if x > v {
				lo = s
			} else {
				hi = s
			}
			s = (hi-lo)/2 + lo
			if hi-lo < eps {
				break
			}
		}
		return s
	}

	return func(t float64) float64 {
		if t <= 0 {
			return 0
		}
		if t >= 1 {
			return 1
		}
		return sampleY(solve(t))
	}
}

// SplineOf is Spline taking a keySplines entry.
func SplineOf(k [4]float64) Easing {
	return Spline(k[0], k[1], k[2], k[3])
}
