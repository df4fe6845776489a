package ebitenraster

import (
	"math"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/phanxgames/vela"
	"github.com/phanxgames/vela/morph"
	"github.com/phanxgames/vela/raster"
	"github.com/phanxgames/vela/vdoc"
)

var identity = [6]float64{1, 0, 0, 1, 0, 0}

func TestGeoMMatchesAffine(t *testing.T) {
	m := [6]float64{2, 0.5, -1, 3, 10, 20}
	g := geoM(m)
	gx, gy := g.Apply(4, 5)
	wx, wy := raster.Apply(m, 4, 5)
	if math.Abs(gx-wx) > 1e-9 || math.Abs(gy-wy) > 1e-9 {
		t.Errorf("GeoM.Apply = (%v, %v), want (%v, %v)", gx, gy, wx, wy)
	}
}

func TestStrokeOptions(t *testing.T) {
	tests := []struct {
		name  string
		st    vela.StrokeStyle
		scale float64
		want  vector.StrokeOptions
	}{
		{"defaults", vela.StrokeStyle{Width: 1}, 1,
			vector.StrokeOptions{Width: 1, MiterLimit: 4, LineCap: vector.LineCapButt, LineJoin: vector.LineJoinMiter}},
		{"scaled", vela.StrokeStyle{Width: 2, MiterLimit: 10}, 3,
			vector.StrokeOptions{Width: 6, MiterLimit: 10, LineCap: vector.LineCapButt, LineJoin: vector.LineJoinMiter}},
		{"round", vela.StrokeStyle{Width: 1, Cap: vela.LineCapRound, Join: vela.LineJoinRound}, 1,
			vector.StrokeOptions{Width: 1, MiterLimit: 4, LineCap: vector.LineCapRound, LineJoin: vector.LineJoinRound}},
		{"square bevel", vela.StrokeStyle{Width: 1, Cap: vela.LineCapSquare, Join: vela.LineJoinBevel}, 1,
			vector.StrokeOptions{Width: 1, MiterLimit: 4, LineCap: vector.LineCapSquare, LineJoin: vector.LineJoinBevel}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := *strokeOptions(tt.st, tt.scale); got != tt.want {
				t.Errorf("strokeOptions = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFillRule(t *testing.T) {
	cmd := &vela.DrawCommand{Type: vela.CommandFillPath, FillRule: vela.FillRuleEvenOdd}
	if fillRule(cmd) != ebiten.FillRuleEvenOdd {
		t.Error("evenodd fill should map to FillRuleEvenOdd")
	}
	cmd.Type = vela.CommandStrokePath
	if fillRule(cmd) != ebiten.FillRuleNonZero {
		t.Error("strokes always use FillRuleNonZero")
	}
}

func TestTextAlign(t *testing.T) {
	tests := []struct {
		anchor vela.TextAnchor
		want   text.Align
	}{
		{vela.TextAnchorStart, text.AlignStart},
		{vela.TextAnchorMiddle, text.AlignCenter},
		{vela.TextAnchorEnd, text.AlignEnd},
	}
	for _, tt := range tests {
		if got := textAlign(tt.anchor); got != tt.want {
			t.Errorf("textAlign(%d) = %v, want %v", tt.anchor, got, tt.want)
		}
	}
}

func TestSolidColor(t *testing.T) {
	red := vela.Color{R: 1, A: 1}
	grad := &vela.PaintServer{Kind: vela.LinearGradient, Stops: []vela.GradientStop{{Color: red}, {Offset: 1, Color: red}}}
	tests := []struct {
		name   string
		paint  vela.PaintSource
		want   vela.Color
		wantOK bool
	}{
		{"color", vela.PaintSource{Kind: vela.PaintColor, Color: red}, red, true},
		{"transparent", vela.PaintSource{Kind: vela.PaintColor}, vela.Color{}, false},
		{"none", vela.PaintSource{Kind: vela.PaintNone, Color: red}, vela.Color{}, false},
		{"dangling", vela.PaintSource{Kind: vela.PaintServerRef, Ref: "x"}, vela.Color{}, false},
		{"gradient", vela.PaintSource{Kind: vela.PaintServerRef, Server: grad}, vela.Color{}, false},
		{"pattern", vela.PaintSource{Kind: vela.PaintServerRef, Server: &vela.PaintServer{
			Kind: vela.Pattern, Stops: []vela.GradientStop{{Color: red}},
		}}, red, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := solidColor(tt.paint)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("solidColor = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func stops(n int) []vela.GradientStop {
	s := make([]vela.GradientStop, n)
	for i := range s {
		s[i] = vela.GradientStop{Offset: float64(i) / float64(n-1), Color: vela.Color{R: float64(i), A: 1}}
	}
	return s
}

func TestGradientUniformsLinear(t *testing.T) {
	srv := &vela.PaintServer{Kind: vela.LinearGradient, X1: 1, Y1: 2, X2: 3, Y2: 4, Stops: stops(3)}
	u, ok := gradientUniforms(srv, identity, 0.5)
	if !ok {
		t.Fatal("linear gradient should be drawable")
	}
	if u["Kind"] != float32(0) || u["Alpha"] != float32(0.5) || u["Count"] != float32(3) {
		t.Errorf("Kind, Alpha, Count = %v, %v, %v", u["Kind"], u["Alpha"], u["Count"])
	}
	p1 := u["P1"].([]float32)
	if p1[0] != 3 || p1[1] != 4 {
		t.Errorf("P1 = %v, want [3 4]", p1)
	}
	offsets := u["Offsets"].([]float32)
	if len(offsets) != maxStops || offsets[2] != 1 || offsets[maxStops-1] != 1 {
		t.Errorf("Offsets = %v, want padded with the last stop", offsets)
	}
	if colors := u["Colors"].([]float32); len(colors) != maxStops*4 {
		t.Errorf("len(Colors) = %d, want %d", len(colors), maxStops*4)
	}
}

func TestGradientUniformsRadial(t *testing.T) {
	srv := &vela.PaintServer{Kind: vela.RadialGradient, CX: 5, CY: 6, R: 7, FX: 1, FY: 2, Stops: stops(2)}
	u, ok := gradientUniforms(srv, identity, 1)
	if !ok {
		t.Fatal("radial gradient should be drawable")
	}
	p0, p1 := u["P0"].([]float32), u["P1"].([]float32)
	if u["Kind"] != float32(1) || u["Radius"] != float32(7) || p0[0] != 5 || p1[1] != 2 {
		t.Errorf("Kind = %v, Radius = %v, P0 = %v, P1 = %v", u["Kind"], u["Radius"], p0, p1)
	}
}

func TestGradientUniformsKeepsLastStop(t *testing.T) {
	srv := &vela.PaintServer{Kind: vela.LinearGradient, X2: 1, Stops: stops(12)}
	u, ok := gradientUniforms(srv, identity, 1)
	if !ok {
		t.Fatal("long gradient should be drawable")
	}
	if u["Count"] != float32(maxStops) {
		t.Errorf("Count = %v, want %d", u["Count"], maxStops)
	}
	colors := u["Colors"].([]float32)
	if last := colors[(maxStops-1)*4]; last != 11 {
		t.Errorf("last stop red = %v, want 11", last)
	}
	if len(srv.Stops) != 12 {
		t.Error("packing must not modify the server")
	}
}

func TestGradientUniformsRejects(t *testing.T) {
	tests := []struct {
		name string
		srv  *vela.PaintServer
	}{
		{"one stop", &vela.PaintServer{Kind: vela.LinearGradient, Stops: []vela.GradientStop{{Color: vela.Color{A: 1}}}}},
		{"pattern", &vela.PaintServer{Kind: vela.Pattern, Stops: stops(2)}},
	}
	for _, tt := range tests {
		if _, ok := gradientUniforms(tt.srv, identity, 1); ok {
			t.Errorf("%s: gradientUniforms should fail", tt.name)
		}
	}
}

func TestSurfaceBookkeeping(t *testing.T) {
	r := New()
	defer r.Close()

	if err := r.AllocateSurface(vela.ScreenSurface, 4, 4); err == nil {
		t.Error("allocating the screen should fail")
	}
	if err := r.AllocateSurface(1, 4, -1); err == nil {
		t.Error("allocating a negative size should fail")
	}
	if err := r.AllocateSurface(1, 8, 8); err != nil {
		t.Fatal(err)
	}
	if r.Surface(1) == nil {
		t.Fatal("surface 1 should exist")
	}
	r.ReleaseSurface(1)
	r.ReleaseSurface(1)
	if r.Surface(1) != nil {
		t.Error("surface 1 should be released")
	}

	if err := r.Submit(vela.ScreenSurface, nil); err == nil {
		t.Error("submitting without a screen should fail")
	}
	if err := r.Submit(5, nil); err == nil {
		t.Error("submitting to an unknown surface should fail")
	}
}

func TestSubmitUnknownMask(t *testing.T) {
	r := New()
	defer r.Close()
	r.SetScreen(ebiten.NewImage(8, 8))
	err := r.Submit(vela.ScreenSurface, []vela.DrawCommand{{
		Type:      vela.CommandFillPath,
		Transform: identity,
		Path:      morph.MustParse("M0 0 L4 0 L4 4 Z"),
		Masks:     []vela.MaskRef{{Surface: 9, Transform: identity}},
	}})
	if err == nil {
		t.Error("an unknown mask surface should fail")
	}
}

func TestSubmitSolidCommands(t *testing.T) {
	r := New(WithImageDir(t.TempDir()))
	defer r.Close()
	if err := r.AllocateSurface(1, 16, 16); err != nil {
		t.Fatal(err)
	}
	blue := vela.PaintSource{Kind: vela.PaintColor, Color: vela.Color{B: 1, A: 1}}
	cmds := []vela.DrawCommand{
		{Type: vela.CommandFillPath, Transform: identity, Alpha: 1, Path: morph.MustParse("M0 0 L8 0 L8 8 Z"), Paint: blue},
		{Type: vela.CommandStrokePath, Transform: identity, Alpha: 1, Path: morph.MustParse("M0 8 L16 8"), Paint: blue,
			Stroke: vela.StrokeStyle{Width: 2}},
		{Type: vela.CommandStrokePath, Transform: identity, Alpha: 1, Path: morph.MustParse("M0 8 L16 8"), Paint: blue},
		{Type: vela.CommandImage, Transform: identity, Alpha: 1,
			Image: vela.ImageData{Href: "missing.png", Rect: vela.Rect{Width: 4, Height: 4}}},
	}
	if err := r.Submit(1, cmds); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, ok := r.images["missing.png"]; !ok {
		t.Error("a failed image load should be remembered")
	}
}

func TestRunViewportDefaultsToWindow(t *testing.T) {
	doc, err := vdoc.DecodeString(`<svg width="40" height="30"><rect width="10" height="10"/></svg>`, "v.svg")
	if err != nil {
		t.Fatal(err)
	}
	s, err := vela.Build(doc, vela.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Destroy()

	g := newGame(s, RunConfig{Width: 40, Height: 30})
	g.raster.Close()
	if got := s.Viewport(); got != (vela.Rect{Width: 40, Height: 30}) {
		t.Errorf("Viewport = %v, want the 40x30 window", got)
	}

	custom := vela.Rect{X: 5, Y: 5, Width: 10, Height: 10}
	s.SetViewport(custom)
	g = newGame(s, RunConfig{Width: 40, Height: 30})
	g.raster.Close()
	if got := s.Viewport(); got != custom {
		t.Errorf("Viewport = %v, want %v kept", got, custom)
	}
}
