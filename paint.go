package vela

import (
	"fmt"
	"strings"

	"github.com/phanxgames/vela/vdoc"
)

// PaintID identifies a paint record in a scene's paint arena. 0 means
// "no paint": the initial values apply.
type PaintID uint32

// PaintKind selects what a PaintSource draws with.
type PaintKind uint8

const (
	PaintNone         PaintKind = iota // nothing is drawn
	PaintColor                         // solid Color
	PaintServerRef                     // gradient or pattern in Server
	PaintCurrentColor                  // the inherited color property
)

// FillRule selects how path interiors are determined.
type FillRule uint8

const (
	FillRuleNonZero FillRule = iota
	FillRuleEvenOdd
)

// LineCap is the shape at the ends of open strokes.
type LineCap uint8

const (
	LineCapButt LineCap = iota
	LineCapRound
	LineCapSquare
)

// LineJoin is the shape at stroke corners.
type LineJoin uint8

const (
	LineJoinMiter LineJoin = iota
	LineJoinRound
	LineJoinBevel
)

// PaintSource is a fill or stroke.
type PaintSource struct {
	Kind   PaintKind
	Color  Color
	Ref    string       // paint server id for PaintServerRef
	Server *PaintServer // resolved server; nil when the reference dangles
	// Matrix maps paint space to the shape's local space. For servers in
	// bounding-box units it is remapped whenever the geometry changes.
	Matrix [6]float64
}

// Visible reports whether the source draws anything.
func (p PaintSource) Visible() bool {
	switch p.Kind {
	case PaintColor:
		return p.Color.A > 0
	case PaintServerRef:
		return p.Server != nil
	}
	return false
}

type paintProp uint16

const (
	propFill paintProp = 1 << iota
	propStroke
	propFillOpacity
	propStrokeOpacity
	propStrokeWidth
	propLineCap
	propLineJoin
	propMiterLimit
	propDash
	propDashOffset
	propFillRule
	propColor

	allPaintProps = propColor<<1 - 1
)

// Paint is the set of inheritable presentation properties of an element.
// Only properties recorded in set override an inherited paint.
type Paint struct {
	Fill          PaintSource
	Stroke        PaintSource
	FillOpacity   float64
	StrokeOpacity float64
	StrokeWidth   float64
	LineCap       LineCap
	LineJoin      LineJoin
	MiterLimit    float64
	Dash          []float64
	DashOffset    float64
	FillRule      FillRule
	Color         Color // value of currentColor

	set paintProp
}

// InitialPaint returns the paint every chain starts from: black fill, no
// stroke, one-unit stroke width.
func InitialPaint() Paint {
	return Paint{
		Fill:          PaintSource{Kind: PaintColor, Color: ColorBlack},
		FillOpacity:   1,
		StrokeOpacity: 1,
		StrokeWidth:   1,
		MiterLimit:    4,
		Color:         ColorBlack,
	}
}

// over returns base with every property set on p copied over it.
func (p Paint) over(base Paint) Paint {
	out := base
	if p.set&propFill != 0 {
		out.Fill = p.Fill
	}
	if p.set&propStroke != 0 {
		out.Stroke = p.Stroke
	}
	if p.set&propFillOpacity != 0 {
		out.FillOpacity = p.FillOpacity
	}
	if p.set&propStrokeOpacity != 0 {
		out.StrokeOpacity = p.StrokeOpacity
	}
	if p.set&propStrokeWidth != 0 {
		out.StrokeWidth = p.StrokeWidth
	}
	if p.set&propLineCap != 0 {
		out.LineCap = p.LineCap
	}
	if p.set&propLineJoin != 0 {
		out.LineJoin = p.LineJoin
	}
	if p.set&propMiterLimit != 0 {
		out.MiterLimit = p.MiterLimit
	}
	if p.set&propDash != 0 {
		out.Dash = p.Dash
	}
	if p.set&propDashOffset != 0 {
		out.DashOffset = p.DashOffset
	}
	if p.set&propFillRule != 0 {
		out.FillRule = p.FillRule
	}
	if p.set&propColor != 0 {
		out.Color = p.Color
	}
	out.set |= p.set
	return out
}

// paintProperties lists the presentation attributes read from elements.
var paintProperties = []string{
	"fill", "stroke", "fill-opacity", "stroke-opacity", "stroke-width",
	"stroke-linecap", "stroke-linejoin", "stroke-miterlimit",
	"stroke-dasharray", "stroke-dashoffset", "fill-rule", "color",
}

// setProperty applies one presentation property. "inherit" and unknown names leave
// the paint unchanged.
func (p *Paint) setProperty(name, value string) error {
	value = strings.TrimSpace(value)
	if value == "inherit" || value == "" {
		return nil
	}
	num := func() (float64, error) {
		nums := vdoc.ParseNumbers(value)
		if len(nums) != 1 {
			return 0, fmt.Errorf("%s: bad number %q", name, value)
		}
		return nums[0], nil
	}
	var err error
	switch name {
	case "fill":
		var src PaintSource
		if src, err = parsePaintSource(value); err == nil {
			p.Fill = src
			p.set |= propFill
		}
	case "stroke":
		var src PaintSource
		if src, err = parsePaintSource(value); err == nil {
			p.Stroke = src
			p.set |= propStroke
		}
	case "fill-opacity":
		var v float64
		if v, err = num(); err == nil {
			p.FillOpacity = clamp01(v)
			p.set |= propFillOpacity
		}
	case "stroke-opacity":
		var v float64
		if v, err = num(); err == nil {
			p.StrokeOpacity = clamp01(v)
			p.set |= propStrokeOpacity
		}
	case "stroke-width":
		var v float64
		if v, err = num(); err == nil {
			p.StrokeWidth = v
			p.set |= propStrokeWidth
		}
	case "stroke-miterlimit":
		var v float64
		if v, err = num(); err == nil {
			p.MiterLimit = v
			p.set |= propMiterLimit
		}
	case "stroke-dashoffset":
		var v float64
		if v, err = num(); err == nil {
			p.DashOffset = v
			p.set |= propDashOffset
		}
	case "stroke-dasharray":
		if value == "none" {
			p.Dash = nil
		} else {
			p.Dash = vdoc.ParseNumbers(value)
			if len(p.Dash)%2 == 1 {
				p.Dash = append(p.Dash, p.Dash...)
			}
		}
		p.set |= propDash
	case "stroke-linecap":
		switch value {
		case "butt":
			p.LineCap = LineCapButt
		case "round":
			p.LineCap = LineCapRound
		case "square":
			p.LineCap = LineCapSquare
		default:
			return fmt.Errorf("stroke-linecap: unknown value %q", value)
		}
		p.set |= propLineCap
	case "stroke-linejoin":
		switch value {
		case "miter", "miter-clip", "arcs":
			p.LineJoin = LineJoinMiter
		case "round":
			p.LineJoin = LineJoinRound
		case "bevel":
			p.LineJoin = LineJoinBevel
		default:
			return fmt.Errorf("stroke-linejoin: unknown value %q", value)
		}
		p.set |= propLineJoin
	case "fill-rule":
		switch value {
		case "nonzero":
			p.FillRule = FillRuleNonZero
		case "evenodd":
			p.FillRule = FillRuleEvenOdd
		default:
			return fmt.Errorf("fill-rule: unknown value %q", value)
		}
		p.set |= propFillRule
	case "color":
		var c Color
		if c, err = ParseColor(value); err == nil {
			p.Color = c
			p.set |= propColor
		}
	}
	return err
}

// parsePaintSource parses a fill or stroke value: none, currentColor, a
// color, or url(#id) with an optional fallback color.
func parsePaintSource(v string) (PaintSource, error) {
	switch v {
	case "none", "transparent":
		return PaintSource{Kind: PaintNone}, nil
	case "currentColor", "currentcolor":
		return PaintSource{Kind: PaintCurrentColor}, nil
	}
	if strings.HasPrefix(v, "url(") {
		ref, rest, ok := parseURLRef(v)
		if !ok {
			return PaintSource{}, fmt.Errorf("malformed paint reference %q", v)
		}
		src := PaintSource{Kind: PaintServerRef, Ref: ref, Matrix: identityTransform}
		if rest != "" {
			// fallback color used when the server is missing
			if c, err := ParseColor(rest); err == nil {
				src.Color = c
			}
		}
		return src, nil
	}
	c, err := ParseColor(v)
	if err != nil {
		return PaintSource{}, err
	}
	return PaintSource{Kind: PaintColor, Color: c}, nil
}

// parseURLRef splits "url(#id) rest" into the fragment id and the remainder.
func parseURLRef(v string) (id, rest string, ok bool) {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "url(") {
		return "", "", false
	}
	end := strings.IndexByte(v, ')')
	if end < 0 {
		return "", "", false
	}
	inner := strings.Trim(strings.TrimSpace(v[4:end]), `"'`)
	if !strings.HasPrefix(inner, "#") || len(inner) < 2 {
		return "", "", false
	}
	return inner[1:], strings.TrimSpace(v[end+1:]), true
}

// parseStyle splits an inline style attribute into declarations.
func parseStyle(s string) []vdoc.Attr {
	var out []vdoc.Attr
	for _, decl := range strings.Split(s, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important"))
		if name != "" {
			out = append(out, vdoc.Attr{Name: name, Value: value})
		}
	}
	return out
}

// --- Paint arena ---

// paintRecord is either a plain paint (parent == 0) holding the element's
// own properties, or an inherited paint layering the plain record base over
// parent.
type paintRecord struct {
	own      Paint
	parent   PaintID
	base     PaintID
	resolved *Paint
}

type paintArena struct {
	records   []paintRecord
	byElement map[*vdoc.Element]PaintID
}

func (a *paintArena) add(r paintRecord) PaintID {
	a.records = append(a.records, r)
	return PaintID(len(a.records))
}

func (a *paintArena) record(id PaintID) *paintRecord {
	if id == 0 || int(id) > len(a.records) {
		return nil
	}
	return &a.records[id-1]
}

// forElement returns the element's plain paint, creating it with build on
// first reference.
func (a *paintArena) forElement(el *vdoc.Element, build func() Paint) PaintID {
	if id, ok := a.byElement[el]; ok {
		return id
	}
	if a.byElement == nil {
		a.byElement = make(map[*vdoc.Element]PaintID)
	}
	id := a.add(paintRecord{own: build()})
	a.byElement[el] = id
	return id
}

// imported adds a plain record carrying a paint resolved in another
// arena, so a shell scene's chain can start from its referencing context.
func (a *paintArena) imported(p Paint) PaintID {
	p.set = allPaintProps
	return a.add(paintRecord{own: p})
}

// inherit layers the plain record own over parent. A zero parent returns
// own unchanged.
func (a *paintArena) inherit(parent, own PaintID) PaintID {
	if parent == 0 {
		return own
	}
	return a.add(paintRecord{parent: parent, base: own})
}

// resolve walks the chain from id to its root and caches the result.
func (a *paintArena) resolve(id PaintID) Paint {
	out := a.inherited(id)
	resolveCurrentColor(&out.Fill, out.Color)
	resolveCurrentColor(&out.Stroke, out.Color)
	return out
}

// inherited is resolve without the currentColor substitution, which must
// happen against the color in effect at the node that uses the paint.
func (a *paintArena) inherited(id PaintID) Paint {
	rec := a.record(id)
	if rec == nil {
		return InitialPaint()
	}
	if rec.resolved != nil {
		return *rec.resolved
	}
	var out Paint
	if rec.parent == 0 {
		out = rec.own.over(InitialPaint())
	} else {
		own := a.record(rec.base).own
		out = own.over(a.inherited(rec.parent))
	}
	rec = a.record(id)
	rec.resolved = &out
	return out
}

func resolveCurrentColor(src *PaintSource, c Color) {
	if src.Kind == PaintCurrentColor {
		*src = PaintSource{Kind: PaintColor, Color: c}
	}
}

// chainLength counts the records from id to the root of its chain.
func (a *paintArena) chainLength(id PaintID) int {
	n := 0
	for rec := a.record(id); rec != nil; rec = a.record(rec.parent) {
		n++
		if rec.parent == 0 {
			break
		}
	}
	return n
}

// --- Paint servers ---

// PaintServerKind identifies a gradient or pattern element.
type PaintServerKind uint8

const (
	LinearGradient PaintServerKind = iota
	RadialGradient
	Pattern
)

// GradientStop is one color stop of a gradient.
type GradientStop struct {
	Offset float64
	Color  Color
}

// PaintServer describes a gradient or pattern. The engine only positions it;
// rasterizing it is the backend's job.
type PaintServer struct {
	ID   string
	Kind PaintServerKind

	// UserSpace is true for userSpaceOnUse units; otherwise geometry is in
	// the referencing shape's bounding-box space.
	UserSpace bool
	Transform [6]float64

	// Width and Height are the extent of the server's texture in its own
	// units: 1x1 for bounding-box gradients.
	Width, Height float64

	X1, Y1, X2, Y2 float64 // linear
	CX, CY, R      float64 // radial
	FX, FY         float64 // radial focus

	Stops []GradientStop
}

// FallbackColor is a single color approximating the server, for backends
// that do not rasterize gradients.
func (s *PaintServer) FallbackColor() Color {
	switch len(s.Stops) {
	case 0:
		return Color{}
	case 1:
		return s.Stops[0].Color
	}
	return s.Stops[0].Color.Blend(s.Stops[len(s.Stops)-1].Color, 0.5)
}

// remapPaintMatrix positions a bounding-box-unit server on a shape with the
// given local bounds. The server transform is inverted, scaled so one
// texture unit spans the box, inverted back and translated to the box's
// top-left corner.
func remapPaintMatrix(s *PaintServer, box Rect) [6]float64 {
	if s.UserSpace || box.IsEmpty() || s.Width <= 0 || s.Height <= 0 {
		return s.Transform
	}
	inv := invertAffine(s.Transform)
	scaled := multiplyAffine(inv, scaleAffine(s.Width/box.Width, s.Height/box.Height))
	m := invertAffine(scaled)
	return multiplyAffine(translateAffine(box.X, box.Y), m)
}

// applyPaint refreshes the node's resolved paint and, for shapes, remaps
// paint server matrices to the current geometry bounds.
func (n *Node) applyPaint() {
	if n.owner == nil {
		n.style = InitialPaint()
	} else {
		n.style = n.owner.paints.resolve(n.paint)
	}
	if n.Kind == NodeShape {
		n.bounds, n.hasBox = pathBounds(n)
	}
	n.fill = n.style.Fill
	n.stroke = n.style.Stroke
	if n.fill.Kind == PaintServerRef && n.fill.Server != nil {
		n.fill.Matrix = remapPaintMatrix(n.fill.Server, n.geometryBox())
	}
	if n.stroke.Kind == PaintServerRef && n.stroke.Server != nil {
		n.stroke.Matrix = remapPaintMatrix(n.stroke.Server, n.geometryBox())
	}
}

// geometryBox is the fill box paint servers are mapped onto.
func (n *Node) geometryBox() Rect {
	switch n.Kind {
	case NodeShape:
		if b, ok := geometryBounds(n.path); ok {
			return b
		}
	case NodeImage:
		return n.image.Rect
	case NodeText:
		return textBounds(n.text)
	}
	return Rect{}
}
