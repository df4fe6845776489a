package morph

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies a path command variant.
type Kind uint8

const (
	MoveTo        Kind = iota // M x y
	LineTo                    // L x y
	HLineTo                   // H x
	VLineTo                   // V y
	CubicTo                   // C x1 y1 x2 y2 x y
	SmoothCubicTo             // S x2 y2 x y
	QuadTo                    // Q x1 y1 x y
	SmoothQuadTo              // T x y
	ArcTo                     // A rx ry rot large sweep x y
	ClosePath                 // Z
)

var kindLetters = [...]byte{'M', 'L', 'H', 'V', 'C', 'S', 'Q', 'T', 'A', 'Z'}

// Letter returns the absolute SVG command letter for k.
func (k Kind) Letter() byte {
	if int(k) < len(kindLetters) {
		return kindLetters[k]
	}
	return '?'
}

func (k Kind) String() string {
	return string(k.Letter())
}

// field is a bit set over the numeric fields of a Command.
type field uint16

const (
	fieldX field = 1 << iota
	fieldY
	fieldX1
	fieldY1
	fieldX2
	fieldY2
	fieldRX
	fieldRY
	fieldRot
	fieldLarge
	fieldSweep
)

// kindFields lists the numeric fields each command kind carries. H and V
// carry both endpoint coordinates once made absolute.
var kindFields = [...]field{
	MoveTo:        fieldX | fieldY,
	LineTo:        fieldX | fieldY,
	HLineTo:       fieldX | fieldY,
	VLineTo:       fieldX | fieldY,
	CubicTo:       fieldX1 | fieldY1 | fieldX2 | fieldY2 | fieldX | fieldY,
	SmoothCubicTo: fieldX2 | fieldY2 | fieldX | fieldY,
	QuadTo:        fieldX1 | fieldY1 | fieldX | fieldY,
	SmoothQuadTo:  fieldX | fieldY,
	ArcTo:         fieldRX | fieldRY | fieldRot | fieldLarge | fieldSweep | fieldX | fieldY,
	ClosePath:     0,
}

func (k Kind) fields() field {
	if int(k) < len(kindFields) {
		return kindFields[k]
	}
	return 0
}

// Command is a single absolute path command. A single flat struct is used for
// every variant; Kind decides which fields are meaningful. Every drawing
// command carries its end point in X, Y.
type Command struct {
	Kind Kind

	X, Y   float64
	X1, Y1 float64
	X2, Y2 float64

	// Arc parameters (ArcTo).
	RX, RY        float64
	XAxisRotation float64
	LargeArc      float64
	Sweep         float64
}

// hasField reports whether the command kind carries field f.
func (c Command) hasField(f field) bool {
	return c.Kind.fields()&f != 0
}

// get returns the value of a single field.
func (c *Command) get(f field) float64 {
	switch f {
	case fieldX:
		return c.X
	case fieldY:
		return c.Y
	case fieldX1:
		return c.X1
	case fieldY1:
		return c.Y1
	case fieldX2:
		return c.X2
	case fieldY2:
		return c.Y2
	case fieldRX:
		return c.RX
	case fieldRY:
		return c.RY
	case fieldRot:
		return c.XAxisRotation
	case fieldLarge:
		return c.LargeArc
	case fieldSweep:
		return c.Sweep
	}
	return 0
}

// set assigns a single field.
func (c *Command) set(f field, v float64) {
	switch f {
	case fieldX:
		c.X = v
	case fieldY:
		c.Y = v
	case fieldX1:
		c.X1 = v
	case fieldY1:
		c.Y1 = v
	case fieldX2:
		c.X2 = v
	case fieldY2:
		c.Y2 = v
	case fieldRX:
		c.RX = v
	case fieldRY:
		c.RY = v
	case fieldRot:
		c.XAxisRotation = v
	case fieldLarge:
		c.LargeArc = v
	case fieldSweep:
		c.Sweep = v
	}
}

// allFields is every numeric field in declaration order.
var allFields = [...]field{
	fieldX, fieldY, fieldX1, fieldY1, fieldX2, fieldY2,
	fieldRX, fieldRY, fieldRot, fieldLarge, fieldSweep,
}

// Clone returns a copy of cmds backed by a new array.
func Clone(cmds []Command) []Command {
	if cmds == nil {
		return nil
	}
	out := make([]Command, len(cmds))
	copy(out, cmds)
	return out
}

// Equal reports whether a and b contain the same commands with identical
// values in every field their kinds carry.
func Equal(a, b []Command) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind {
			return false
		}
		for _, f := range allFields {
			if a[i].hasField(f) && a[i].get(f) != b[i].get(f) {
				return false
			}
		}
	}
	return true
}

// Validate returns an error if any command carries a non-finite value or an
// arc flag other than 0 or 1.
func Validate(cmds []Command) error {
	for i := range cmds {
		c := &cmds[i]
		if c.Kind > ClosePath {
			return &Error{Index: i, Msg: "unknown command kind"}
		}
		for _, f := range allFields {
			if !c.hasField(f) {
				continue
			}
			v := c.get(f)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &Error{Index: i, Msg: "non-finite " + c.Kind.String() + " value"}
			}
		}
		if c.Kind == ArcTo {
			if (c.LargeArc != 0 && c.LargeArc != 1) || (c.Sweep != 0 && c.Sweep != 1) {
				return &Error{Index: i, Msg: "arc flags must be 0 or 1"}
			}
		}
	}
	return nil
}

// Format serializes cmds as absolute SVG path data.
func Format(cmds []Command) string {
	var sb strings.Builder
	for i := range cmds {
		c := &cmds[i]
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(c.Kind.Letter())
		var args []float64
		switch c.Kind {
		case MoveTo, LineTo, SmoothQuadTo:
			args = []float64{c.X, c.Y}
		case HLineTo:
			args = []float64{c.X}
		case VLineTo:
			args = []float64{c.Y}
		case CubicTo:
			args = []float64{c.X1, c.Y1, c.X2, c.Y2, c.X, c.Y}
		case SmoothCubicTo:
			args = []float64{c.X2, c.Y2, c.X, c.Y}
		case QuadTo:
			args = []float64{c.X1, c.Y1, c.X, c.Y}
		case ArcTo:
			args = []float64{c.RX, c.RY, c.XAxisRotation, c.LargeArc, c.Sweep, c.X, c.Y}
		}
		for j, v := range args {
			if j > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	return sb.String()
}

// Bounds returns the bounding box of the command end points and control
// points, reflected ones included. Curves never leave their control polygon,
// so the box contains the rendered path. Arcs contribute the box of their
// circumscribing circle after out-of-range radii are scaled up.
func Bounds(cmds []Command) (minX, minY, maxX, maxY float64, ok bool) {
	add := func(x, y float64) {
		if !ok {
			minX, minY, maxX, maxY = x, y, x, y
			ok = true
			return
		}
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}
	var (
		px, py       float64
		ctrlX, ctrlY float64 // last control point, for S and T
	)
	prev := MoveTo
	for i := range cmds {
		c := &cmds[i]
		switch c.Kind {
		case ClosePath:
			px, py = c.X, c.Y
			prev = ClosePath
			continue
		case CubicTo:
			add(c.X1, c.Y1)
			add(c.X2, c.Y2)
			ctrlX, ctrlY = c.X2, c.Y2
		case SmoothCubicTo:
			if prev == CubicTo || prev == SmoothCubicTo {
				add(2*px-ctrlX, 2*py-ctrlY)
			}
			add(c.X2, c.Y2)
			ctrlX, ctrlY = c.X2, c.Y2
		case QuadTo:
			add(c.X1, c.Y1)
			ctrlX, ctrlY = c.X1, c.Y1
		case SmoothQuadTo:
			if prev == QuadTo || prev == SmoothQuadTo {
				ctrlX, ctrlY = 2*px-ctrlX, 2*py-ctrlY
			} else {
				ctrlX, ctrlY = px, py
			}
			add(ctrlX, ctrlY)
		case ArcTo:
			if cx, cy, r, found := arcCircle(px, py, c); found {
				add(cx-r, cy-r)
				add(cx+r, cy+r)
			}
		}
		add(c.X, c.Y)
		px, py = c.X, c.Y
		prev = c.Kind
	}
	return
}

// arcCircle returns the center of the arc from (x0, y0) and its larger
// radius, scaled up when the radii cannot span the chord. Degenerate arcs
// draw as lines and report false.
func arcCircle(x0, y0 float64, c *Command) (cx, cy, r float64, ok bool) {
	rx, ry := math.Abs(c.RX), math.Abs(c.RY)
	if rx == 0 || ry == 0 || (x0 == c.X && y0 == c.Y) {
		return 0, 0, 0, false
	}
	sinPhi, cosPhi := math.Sincos(c.XAxisRotation * math.Pi / 180)
	dx, dy := (x0-c.X)/2, (y0-c.Y)/2
	x1p := cosPhi*dx + sinPhi*dy
	y1p := -sinPhi*dx + cosPhi*dy
	if lambda := x1p*x1p/(rx*rx) + y1p*y1p/(ry*ry); lambda > 1 {
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
	if (c.LargeArc != 0) == (c.Sweep != 0) {
		coef = -coef
	}
	cxp := coef * rx * y1p / ry
	cyp := -coef * ry * x1p / rx
	cx = cosPhi*cxp - sinPhi*cyp + (x0+c.X)/2
	cy = sinPhi*cxp + cosPhi*cyp + (y0+c.Y)/2
	return cx, cy, math.Max(rx, ry), true
}
