package ggraster

import (
	"fmt"
	"image"

	"github.com/gogpu/gg"

	"github.com/phanxgames/vela"
	"github.com/phanxgames/vela/raster"
)

// shader returns the straight-alpha color of a paint at a device pixel
// center.
type shader func(x, y float64) (r, g, b, a float64)

func solid(c vela.Color) shader {
	return func(float64, float64) (float64, float64, float64, float64) {
		return c.R, c.G, c.B, c.A
	}
}

// shaderFor builds the shader for p on a command drawn with transform.
// ok is false when the paint draws nothing.
func shaderFor(p vela.PaintSource, transform [6]float64) (shader, bool) {
	switch p.Kind {
	case vela.PaintColor, vela.PaintCurrentColor:
		if p.Color.A <= 0 {
			return nil, false
		}
		return solid(p.Color), true
	case vela.PaintServerRef:
	default:
		return nil, false
	}
	srv := p.Server
	if srv == nil {
		return nil, false
	}
	if srv.Kind == vela.Pattern || len(srv.Stops) < 2 {
		c := srv.FallbackColor()
		return solid(c), c.A > 0
	}
	// device pixel -> paint space
	inv, ok := raster.Invert(raster.Multiply(transform, p.Matrix))
	if !ok {
		return nil, false
	}
	var colorAt func(x, y float64) gg.RGBA
	switch srv.Kind {
	case vela.LinearGradient:
		g := gg.NewLinearGradientBrush(srv.X1, srv.Y1, srv.X2, srv.Y2)
		for _, s := range srv.Stops {
			g.AddColorStop(s.Offset, toRGBA(s.Color))
		}
		colorAt = g.ColorAt
	case vela.RadialGradient:
		g := gg.NewRadialGradientBrush(srv.CX, srv.CY, 0, srv.R).SetFocus(srv.FX, srv.FY)
		for _, s := range srv.Stops {
			g.AddColorStop(s.Offset, toRGBA(s.Color))
		}
		colorAt = g.ColorAt
	default:
		return nil, false
	}
	return func(x, y float64) (float64, float64, float64, float64) {
		u, v := raster.Apply(inv, x, y)
		c := colorAt(u, v)
		return c.R, c.G, c.B, c.A
	}, true
}

func toRGBA(c vela.Color) gg.RGBA {
	return gg.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// maskSampler reads coverage from a rendered mask surface.
type maskSampler struct {
	pm  *gg.Pixmap
	inv [6]float64 // target pixel -> surface pixel
}

// maskSamplers resolves refs. visible is false when a mask can let nothing
// through, such as one with a singular transform.
func (r *Rasterizer) maskSamplers(refs []vela.MaskRef) (samplers []maskSampler, visible bool, err error) {
	for _, ref := range refs {
		pm, ok := r.surfaces[ref.Surface]
		if !ok {
			return nil, false, fmt.Errorf("ggraster: unknown mask surface %d", ref.Surface)
		}
		inv, ok := raster.Invert(ref.Transform)
		if !ok {
			return nil, false, nil
		}
		samplers = append(samplers, maskSampler{pm: pm, inv: inv})
	}
	return samplers, true, nil
}

// coverage is the mask's luminance times its alpha at target pixel
// (px, py). Pixels are premultiplied, so the luminance of the stored
// channels already carries the alpha. Points outside the surface are fully
// masked.
func (m maskSampler) coverage(px, py int) float64 {
	u, v := raster.Apply(m.inv, float64(px)+0.5, float64(py)+0.5)
	if u < 0 || v < 0 {
		return 0
	}
	x, y := int(u), int(v)
	w, h := m.pm.Width(), m.pm.Height()
	if x >= w || y >= h {
		return 0
	}
	d := m.pm.Data()[(y*w+x)*4:]
	return (0.2125*float64(d[0]) + 0.7154*float64(d[1]) + 0.0721*float64(d[2])) / 255
}

func maskCoverage(masks []maskSampler, px, py int) float64 {
	c := 1.0
	for _, m := range masks {
		if c <= 0 {
			return 0
		}
		c *= m.coverage(px, py)
	}
	return c
}

// composite blends shade over dst inside box, weighted by the coverage in
// the alpha channel of cov, by alpha and by every mask.
func composite(dst *gg.Pixmap, cov []uint8, covStride int, box image.Rectangle, shade shader, alpha float64, masks []maskSampler) {
	data := dst.Data()
	stride := dst.Width() * 4
	for py := box.Min.Y; py < box.Max.Y; py++ {
		for px := box.Min.X; px < box.Max.X; px++ {
			c := cov[py*covStride+px*4+3]
			if c == 0 {
				continue
			}
			a := float64(c) / 255 * alpha
			if len(masks) > 0 {
				a *= maskCoverage(masks, px, py)
			}
			if a <= 0 {
				continue
			}
			r, g, b, sa := shade(float64(px)+0.5, float64(py)+0.5)
			if a *= sa; a <= 0 {
				continue
			}
			over(data[py*stride+px*4:], r, g, b, a)
		}
	}
}

// over composites a straight-alpha color onto a premultiplied RGBA8 pixel.
func over(px []uint8, r, g, b, a float64) {
	if a > 1 {
		a = 1
	}
	k := 1 - a
	px[0] = to8(r*a + float64(px[0])/255*k)
	px[1] = to8(g*a + float64(px[1])/255*k)
	px[2] = to8(b*a + float64(px[2])/255*k)
	px[3] = to8(a + float64(px[3])/255*k)
}

func to8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
