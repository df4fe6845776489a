package vela

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/tdewolff/parse/v2/strconv"
	"golang.org/x/image/colornames"
)

// ParseColor parses a CSS color: #rgb, #rrggbb, rgb(), rgba() or a named
// color. "transparent" yields a fully transparent black.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Color{}, fmt.Errorf("vela: empty color")
	case s[0] == '#':
		c, err := colorful.Hex(s)
		if err != nil {
			return Color{}, fmt.Errorf("vela: color %q: %w", s, err)
		}
		return Color{c.R, c.G, c.B, 1}, nil
	case strings.HasPrefix(s, "rgb"):
		return parseRGBFunc(s)
	}
	name := strings.ToLower(s)
	if name == "transparent" {
		return Color{}, nil
	}
	if rgba, ok := colornames.Map[name]; ok {
		return Color{
			R: float64(rgba.R) / 255,
			G: float64(rgba.G) / 255,
			B: float64(rgba.B) / 255,
			A: float64(rgba.A) / 255,
		}, nil
	}
	return Color{}, fmt.Errorf("vela: unknown color %q", s)
}

func parseRGBFunc(s string) (Color, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return Color{}, fmt.Errorf("vela: malformed color %q", s)
	}
	args := strings.FieldsFunc(s[open+1:len(s)-1], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/' || r == '\t'
	})
	if len(args) != 3 && len(args) != 4 {
		return Color{}, fmt.Errorf("vela: color %q: want 3 or 4 components", s)
	}
	var v [4]float64
	v[3] = 1
	for i, arg := range args {
		f, n := strconv.ParseFloat([]byte(arg))
		if n == 0 {
			return Color{}, fmt.Errorf("vela: color %q: bad component %q", s, arg)
		}
		pct := strings.HasSuffix(arg, "%")
		switch {
		case i == 3 && pct:
			v[i] = f / 100
		case i == 3:
			v[i] = f
		case pct:
			v[i] = f / 100
		default:
			v[i] = f / 255
		}
		v[i] = clamp01(v[i])
	}
	return Color{v[0], v[1], v[2], v[3]}, nil
}

// Blend mixes c toward o by t in RGB space; alpha is mixed linearly.
func (c Color) Blend(o Color, t float64) Color {
	a := colorful.Color{R: c.R, G: c.G, B: c.B}
	b := colorful.Color{R: o.R, G: o.G, B: o.B}
	m := a.BlendRgb(b, t)
	return Color{m.R, m.G, m.B, c.A + (o.A-c.A)*t}
}

// Hex formats the color as #rrggbb, ignoring alpha.
func (c Color) Hex() string {
	return colorful.Color{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B)}.Hex()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
