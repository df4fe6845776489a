package ebitenraster

import (
	"slices"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/vela"
)

// maxStops is the number of gradient stops the shader reads. Longer
// gradients keep their first maxStops-1 stops and their last one.
const maxStops = 8

// Ebitengine uses premultiplied alpha; stop colors arrive straight and are
// premultiplied on output.

const gradientShaderSrc = `//kage:unit pixels
package main

var Kind float
var Inv [6]float
var P0 vec2
var P1 vec2
var Radius float
var Alpha float
var Count float
var Offsets [8]float
var Colors [8]vec4

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	cov := imageSrc0At(src).a
	if cov == 0 {
		return vec4(0)
	}
	p := vec2(Inv[0]*dst.x+Inv[2]*dst.y+Inv[4], Inv[1]*dst.x+Inv[3]*dst.y+Inv[5])
	t := 0.0
	if Kind == 0 {
		d := P1 - P0
		l := dot(d, d)
		if l > 0 {
			t = dot(p-P0, d) / l
		}
	} else {
		// P0 is the center, P1 the focus
		cf := P0 - P1
		pf := p - P1
		a := dot(cf, cf) - Radius*Radius
		k := dot(pf, cf)
		c := dot(pf, pf)
		if abs(a) < 0.000001 {
			if k != 0 {
				t = c / (2 * k)
			}
		} else {
			t = (k - sqrt(max(k*k-a*c, 0))) / a
		}
	}
	t = clamp(t, 0, 1)
	col := Colors[0]
	for i := 1; i < 8; i++ {
		if float(i) < Count && t > Offsets[i-1] {
			o0 := Offsets[i-1]
			o1 := Offsets[i]
			w := 1.0
			if o1 > o0 {
				w = clamp((t-o0)/(o1-o0), 0, 1)
			}
			col = mix(Colors[i-1], Colors[i], w)
		}
	}
	a := col.a * cov * Alpha
	return vec4(col.rgb*a, a)
}
`

const luminanceShaderSrc = `//kage:unit pixels
package main

func Fragment(dst vec4, src vec2, color vec4) vec4 {
	c := imageSrc0At(src)
	l := dot(c.rgb, vec3(0.2125, 0.7154, 0.0721))
	return vec4(l)
}
`

var (
	gradientShader  *ebiten.Shader
	luminanceShader *ebiten.Shader
)

func ensureGradientShader() *ebiten.Shader {
	if gradientShader == nil {
		s, err := ebiten.NewShader([]byte(gradientShaderSrc))
		if err != nil {
			panic("ebitenraster: failed to compile gradient shader: " + err.Error())
		}
		gradientShader = s
	}
	return gradientShader
}

func ensureLuminanceShader() *ebiten.Shader {
	if luminanceShader == nil {
		s, err := ebiten.NewShader([]byte(luminanceShaderSrc))
		if err != nil {
			panic("ebitenraster: failed to compile luminance shader: " + err.Error())
		}
		luminanceShader = s
	}
	return luminanceShader
}

// maskBlend keeps the destination scaled by the source alpha.
var maskBlend = ebiten.Blend{
	BlendFactorSourceRGB:        ebiten.BlendFactorZero,
	BlendFactorSourceAlpha:      ebiten.BlendFactorZero,
	BlendFactorDestinationRGB:   ebiten.BlendFactorSourceAlpha,
	BlendFactorDestinationAlpha: ebiten.BlendFactorSourceAlpha,
	BlendOperationRGB:           ebiten.BlendOperationAdd,
	BlendOperationAlpha:         ebiten.BlendOperationAdd,
}

// gradientUniforms packs a gradient for the gradient shader. inv maps
// target pixels to the server's paint space. ok is false for servers the
// shader cannot draw.
func gradientUniforms(srv *vela.PaintServer, inv [6]float64, alpha float64) (map[string]any, bool) {
	stops := srv.Stops
	if len(stops) < 2 {
		return nil, false
	}
	if len(stops) > maxStops {
		stops = append(slices.Clone(stops[:maxStops-1]), stops[len(stops)-1])
	}
	u := map[string]any{
		"Alpha": float32(alpha),
		"Count": float32(len(stops)),
	}
	var invF [6]float32
	for i, v := range inv {
		invF[i] = float32(v)
	}
	u["Inv"] = invF[:]

	switch srv.Kind {
	case vela.LinearGradient:
		u["Kind"] = float32(0)
		u["P0"] = []float32{float32(srv.X1), float32(srv.Y1)}
		u["P1"] = []float32{float32(srv.X2), float32(srv.Y2)}
		u["Radius"] = float32(0)
	case vela.RadialGradient:
		u["Kind"] = float32(1)
		u["P0"] = []float32{float32(srv.CX), float32(srv.CY)}
		u["P1"] = []float32{float32(srv.FX), float32(srv.FY)}
		u["Radius"] = float32(srv.R)
	default:
		return nil, false
	}

	offsets := make([]float32, maxStops)
	colors := make([]float32, maxStops*4)
	for i := range maxStops {
		s := stops[min(i, len(stops)-1)]
		offsets[i] = float32(s.Offset)
		colors[i*4+0] = float32(s.Color.R)
		colors[i*4+1] = float32(s.Color.G)
		colors[i*4+2] = float32(s.Color.B)
		colors[i*4+3] = float32(s.Color.A)
	}
	u["Offsets"] = offsets
	u["Colors"] = colors
	return u, true
}
