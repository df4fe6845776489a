// Package ebitenraster draws vela scenes with Ebitengine.
//
// Solid fills and strokes without masks go straight to the target as
// anti-aliased triangles. Gradients are shaded by a Kage shader over a
// coverage layer, and masked commands are drawn into a scratch layer that
// is multiplied by each mask's luminance before being composited.
// Stroke dashes are not supported and are drawn solid.
package ebitenraster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // decoders for image hrefs
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/phanxgames/vela"
	"github.com/phanxgames/vela/raster"
)

var (
	whiteImage    = ebiten.NewImage(3, 3)
	whiteSubImage = whiteImage.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
)

func init() {
	whiteImage.Fill(color.White)
}

// Option configures a Rasterizer.
type Option func(*Rasterizer)

// WithBackground sets the color the screen is filled with before each
// frame.
func WithBackground(c vela.Color) Option {
	return func(r *Rasterizer) { r.background = c }
}

// WithImageDir resolves relative image hrefs against dir.
func WithImageDir(dir string) Option {
	return func(r *Rasterizer) { r.imageDir = dir }
}

// WithFontSource replaces the built-in Go Regular face.
func WithFontSource(src *text.GoTextFaceSource) Option {
	return func(r *Rasterizer) { r.font = src }
}

// WithLogger sets the logger. The default is vela.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(r *Rasterizer) { r.log = l }
}

// layers are scratch images matching one target size.
type layers struct {
	coverage *ebiten.Image
	color    *ebiten.Image
	mask     *ebiten.Image
}

// Rasterizer implements vela.Rasterizer on ebiten images. The screen is
// whatever image SetScreen last received, normally the one passed to
// Game.Draw.
type Rasterizer struct {
	screen   *ebiten.Image
	surfaces map[vela.SurfaceID]*ebiten.Image
	layers   map[[2]int]*layers
	images   map[string]*ebiten.Image

	background vela.Color
	imageDir   string
	font       *text.GoTextFaceSource
	log        *slog.Logger

	vertices []ebiten.Vertex
	indices  []uint16
}

// New returns a rasterizer with no screen.
func New(opts ...Option) *Rasterizer {
	r := &Rasterizer{
		surfaces: make(map[vela.SurfaceID]*ebiten.Image),
		layers:   make(map[[2]int]*layers),
		images:   make(map[string]*ebiten.Image),
		log:      vela.Logger(),
	}
	for _, o := range opts {
		o(r)
	}
	if r.font == nil {
		src, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
		if err != nil {
			r.log.Warn("ebitenraster: default font", slog.Any("err", err))
		}
		r.font = src
	}
	return r
}

// SetScreen sets the image ScreenSurface draws to.
func (r *Rasterizer) SetScreen(screen *ebiten.Image) {
	r.screen = screen
}

// AllocateSurface creates or replaces an offscreen surface.
func (r *Rasterizer) AllocateSurface(id vela.SurfaceID, w, h int) error {
	if id == vela.ScreenSurface {
		return fmt.Errorf("ebitenraster: cannot allocate the screen surface")
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("ebitenraster: invalid surface size %dx%d", w, h)
	}
	if old, ok := r.surfaces[id]; ok {
		old.Deallocate()
	}
	r.surfaces[id] = ebiten.NewImage(w, h)
	return nil
}

// ReleaseSurface frees an offscreen surface.
func (r *Rasterizer) ReleaseSurface(id vela.SurfaceID) {
	if img, ok := r.surfaces[id]; ok {
		img.Deallocate()
		delete(r.surfaces, id)
	}
}

// Surface returns an offscreen surface, or nil if it does not exist.
func (r *Rasterizer) Surface(id vela.SurfaceID) *ebiten.Image {
	return r.surfaces[id]
}

// Close frees every offscreen surface, scratch layer and cached image.
func (r *Rasterizer) Close() error {
	for id := range r.surfaces {
		r.ReleaseSurface(id)
	}
	for key, l := range r.layers {
		l.coverage.Deallocate()
		l.color.Deallocate()
		l.mask.Deallocate()
		delete(r.layers, key)
	}
	for href, img := range r.images {
		if img != nil {
			img.Deallocate()
		}
		delete(r.images, href)
	}
	return nil
}

func (r *Rasterizer) target(id vela.SurfaceID) (*ebiten.Image, error) {
	if id == vela.ScreenSurface {
		if r.screen == nil {
			return nil, fmt.Errorf("ebitenraster: no screen set")
		}
		return r.screen, nil
	}
	img, ok := r.surfaces[id]
	if !ok {
		return nil, fmt.Errorf("ebitenraster: unknown surface %d", id)
	}
	return img, nil
}

// Submit clears target and draws cmds onto it in order.
func (r *Rasterizer) Submit(target vela.SurfaceID, cmds []vela.DrawCommand) error {
	dst, err := r.target(target)
	if err != nil {
		return err
	}
	dst.Clear()
	if target == vela.ScreenSurface && r.background.A > 0 {
		dst.Fill(toColor(r.background))
	}
	for i := range cmds {
		cmd := &cmds[i]
		for _, m := range cmd.Masks {
			if _, ok := r.surfaces[m.Surface]; !ok {
				return fmt.Errorf("ebitenraster: node %d: unknown mask surface %d", cmd.NodeID, m.Surface)
			}
		}
		switch cmd.Type {
		case vela.CommandFillPath, vela.CommandStrokePath:
			r.drawPath(dst, cmd)
		case vela.CommandImage:
			r.drawImage(dst, cmd)
		case vela.CommandText:
			r.drawText(dst, cmd)
		}
	}
	return nil
}

func (r *Rasterizer) layersFor(dst *ebiten.Image) *layers {
	b := dst.Bounds()
	key := [2]int{b.Dx(), b.Dy()}
	l, ok := r.layers[key]
	if !ok {
		l = &layers{
			coverage: ebiten.NewImage(key[0], key[1]),
			color:    ebiten.NewImage(key[0], key[1]),
			mask:     ebiten.NewImage(key[0], key[1]),
		}
		r.layers[key] = l
	}
	return l
}

// masked runs draw against dst directly when there are no masks, and
// otherwise against a cleared layer that is masked and then composited.
func (r *Rasterizer) masked(dst *ebiten.Image, masks []vela.MaskRef, draw func(target *ebiten.Image)) {
	if len(masks) == 0 {
		draw(dst)
		return
	}
	l := r.layersFor(dst)
	l.color.Clear()
	draw(l.color)
	for _, m := range masks {
		r.renderMask(l.mask, m)
		l.color.DrawImage(l.mask, &ebiten.DrawImageOptions{Blend: maskBlend})
	}
	dst.DrawImage(l.color, nil)
}

// renderMask draws the luminance of a mask surface into out, positioned by
// the ref's transform. Pixels outside the surface end up transparent.
func (r *Rasterizer) renderMask(out *ebiten.Image, m vela.MaskRef) {
	out.Clear()
	src := r.surfaces[m.Surface]
	sb := src.Bounds()
	w, h := float32(sb.Dx()), float32(sb.Dy())
	corner := func(x, y float32) ebiten.Vertex {
		dx, dy := raster.Apply(m.Transform, float64(x), float64(y))
		return ebiten.Vertex{
			DstX: float32(dx), DstY: float32(dy),
			SrcX: float32(sb.Min.X) + x, SrcY: float32(sb.Min.Y) + y,
			ColorR: 1, ColorG: 1, ColorB: 1, ColorA: 1,
		}
	}
	vs := []ebiten.Vertex{corner(0, 0), corner(w, 0), corner(w, h), corner(0, h)}
	is := []uint16{0, 1, 2, 0, 2, 3}
	op := &ebiten.DrawTrianglesShaderOptions{}
	op.Images[0] = src
	out.DrawTrianglesShader(vs, is, ensureLuminanceShader(), op)
}

// buildPath fills r.vertices and r.indices with the triangles of a fill or
// stroke in target space. It reports false when there is nothing to draw.
func (r *Rasterizer) buildPath(cmd *vela.DrawCommand) bool {
	path := &vector.Path{}
	raster.Walk(cmd.Path, cmd.Transform, pathSink{path})
	if cmd.Type == vela.CommandFillPath {
		r.vertices, r.indices = path.AppendVerticesAndIndicesForFilling(r.vertices[:0], r.indices[:0])
	} else {
		op := strokeOptions(cmd.Stroke, raster.ScaleFactor(cmd.Transform))
		if op.Width <= 0 {
			return false
		}
		r.vertices, r.indices = path.AppendVerticesAndIndicesForStroke(r.vertices[:0], r.indices[:0], op)
	}
	return len(r.indices) > 0
}

func (r *Rasterizer) drawPath(dst *ebiten.Image, cmd *vela.DrawCommand) {
	if len(cmd.Path) == 0 || !cmd.Paint.Visible() || !r.buildPath(cmd) {
		return
	}
	rule := fillRule(cmd)
	if c, ok := solidColor(cmd.Paint); ok {
		r.masked(dst, cmd.Masks, func(target *ebiten.Image) {
			r.triangles(target, c, cmd.Alpha, rule)
		})
		return
	}

	inv, ok := raster.Invert(raster.Multiply(cmd.Transform, cmd.Paint.Matrix))
	if !ok {
		return
	}
	uniforms, ok := gradientUniforms(cmd.Paint.Server, inv, cmd.Alpha)
	if !ok {
		return
	}
	l := r.layersFor(dst)
	l.coverage.Clear()
	r.triangles(l.coverage, vela.Color{R: 1, G: 1, B: 1, A: 1}, 1, rule)
	r.masked(dst, cmd.Masks, func(target *ebiten.Image) {
		b := target.Bounds()
		op := &ebiten.DrawRectShaderOptions{Uniforms: uniforms}
		op.Images[0] = l.coverage
		target.DrawRectShader(b.Dx(), b.Dy(), ensureGradientShader(), op)
	})
}

// triangles draws the current vertices in a single straight-alpha color.
func (r *Rasterizer) triangles(target *ebiten.Image, c vela.Color, alpha float64, rule ebiten.FillRule) {
	for i := range r.vertices {
		v := &r.vertices[i]
		v.SrcX, v.SrcY = 1, 1
		v.ColorR = float32(c.R)
		v.ColorG = float32(c.G)
		v.ColorB = float32(c.B)
		v.ColorA = float32(c.A * alpha)
	}
	target.DrawTriangles(r.vertices, r.indices, whiteSubImage, &ebiten.DrawTrianglesOptions{
		AntiAlias: true,
		FillRule:  rule,
	})
}

func (r *Rasterizer) drawImage(dst *ebiten.Image, cmd *vela.DrawCommand) {
	rect := cmd.Image.Rect
	if rect.Width <= 0 || rect.Height <= 0 {
		return
	}
	img := r.loadImage(cmd.Image.Href)
	if img == nil {
		return
	}
	b := img.Bounds()
	op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
	op.GeoM.Scale(rect.Width/float64(b.Dx()), rect.Height/float64(b.Dy()))
	op.GeoM.Translate(rect.X, rect.Y)
	op.GeoM.Concat(geoM(cmd.Transform))
	op.ColorScale.ScaleAlpha(float32(cmd.Alpha))
	r.masked(dst, cmd.Masks, func(target *ebiten.Image) {
		target.DrawImage(img, op)
	})
}

// loadImage decodes href once. Failures are logged once and remembered.
func (r *Rasterizer) loadImage(href string) *ebiten.Image {
	if img, ok := r.images[href]; ok {
		return img
	}
	path := href
	if r.imageDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(r.imageDir, path)
	}
	img, err := decodeImage(path)
	if err != nil {
		r.log.Warn("ebitenraster: image not loaded", slog.String("href", href), slog.Any("err", err))
	}
	r.images[href] = img
	return img
}

func decodeImage(path string) (*ebiten.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return ebiten.NewImageFromImage(src), nil
}

// drawText lays the string out on its baseline at (X, Y) in local space,
// so the glyphs follow the full transform.
func (r *Rasterizer) drawText(dst *ebiten.Image, cmd *vela.DrawCommand) {
	td := cmd.Text
	if td.Content == "" || td.FontSize <= 0 || r.font == nil {
		return
	}
	c, ok := solidColor(cmd.Paint)
	if !ok {
		return
	}
	face := &text.GoTextFace{Source: r.font, Size: td.FontSize}
	op := &text.DrawOptions{}
	op.PrimaryAlign = textAlign(td.Anchor)
	op.GeoM.Translate(td.X, td.Y-face.Metrics().HAscent)
	op.GeoM.Concat(geoM(cmd.Transform))
	a := c.A * cmd.Alpha
	op.ColorScale.Scale(float32(c.R*a), float32(c.G*a), float32(c.B*a), float32(a))
	r.masked(dst, cmd.Masks, func(target *ebiten.Image) {
		text.Draw(target, td.Content, face, op)
	})
}

// pathSink adapts a vector.Path to raster.Sink.
type pathSink struct{ p *vector.Path }

func (s pathSink) MoveTo(x, y float64) { s.p.MoveTo(float32(x), float32(y)) }
func (s pathSink) LineTo(x, y float64) { s.p.LineTo(float32(x), float32(y)) }
func (s pathSink) QuadTo(x1, y1, x, y float64) {
	s.p.QuadTo(float32(x1), float32(y1), float32(x), float32(y))
}
func (s pathSink) CubicTo(x1, y1, x2, y2, x, y float64) {
	s.p.CubicTo(float32(x1), float32(y1), float32(x2), float32(y2), float32(x), float32(y))
}
func (s pathSink) Close() { s.p.Close() }

// solidColor returns the single color a paint draws with. Patterns fall
// back to their approximation; gradients report false.
func solidColor(p vela.PaintSource) (vela.Color, bool) {
	switch p.Kind {
	case vela.PaintColor, vela.PaintCurrentColor:
		return p.Color, p.Color.A > 0
	case vela.PaintServerRef:
		srv := p.Server
		if srv == nil {
			return vela.Color{}, false
		}
		if srv.Kind == vela.Pattern || len(srv.Stops) < 2 {
			c := srv.FallbackColor()
			return c, c.A > 0
		}
	}
	return vela.Color{}, false
}

func fillRule(cmd *vela.DrawCommand) ebiten.FillRule {
	if cmd.Type == vela.CommandStrokePath {
		return ebiten.FillRuleNonZero
	}
	if cmd.FillRule == vela.FillRuleEvenOdd {
		return ebiten.FillRuleEvenOdd
	}
	return ebiten.FillRuleNonZero
}

func strokeOptions(st vela.StrokeStyle, scale float64) *vector.StrokeOptions {
	op := &vector.StrokeOptions{
		Width:      float32(st.Width * scale),
		MiterLimit: float32(st.MiterLimit),
	}
	if op.MiterLimit < 1 {
		op.MiterLimit = 4
	}
	switch st.Cap {
	case vela.LineCapRound:
		op.LineCap = vector.LineCapRound
	case vela.LineCapSquare:
		op.LineCap = vector.LineCapSquare
	default:
		op.LineCap = vector.LineCapButt
	}
	switch st.Join {
	case vela.LineJoinRound:
		op.LineJoin = vector.LineJoinRound
	case vela.LineJoinBevel:
		op.LineJoin = vector.LineJoinBevel
	default:
		op.LineJoin = vector.LineJoinMiter
	}
	return op
}

func textAlign(a vela.TextAnchor) text.Align {
	switch a {
	case vela.TextAnchorMiddle:
		return text.AlignCenter
	case vela.TextAnchorEnd:
		return text.AlignEnd
	}
	return text.AlignStart
}

// geoM converts a vela affine matrix to an ebiten.GeoM.
func geoM(m [6]float64) ebiten.GeoM {
	var g ebiten.GeoM
	g.SetElement(0, 0, m[0])
	g.SetElement(1, 0, m[1])
	g.SetElement(0, 1, m[2])
	g.SetElement(1, 1, m[3])
	g.SetElement(0, 2, m[4])
	g.SetElement(1, 2, m[5])
	return g
}

func toColor(c vela.Color) color.Color {
	return color.NRGBA64{
		R: uint16(c.R * 0xffff),
		G: uint16(c.G * 0xffff),
		B: uint16(c.B * 0xffff),
		A: uint16(c.A * 0xffff),
	}
}
