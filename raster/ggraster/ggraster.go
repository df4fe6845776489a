// Package ggraster is a CPU rasterizer for vela scenes built on gogpu/gg.
//
// gg rasterizes path coverage; compositing is done here so every command
// gets source-over blending, gradient shading and luminance masks
// regardless of which brushes the gg software path supports.
package ggraster

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/phanxgames/vela"
	"github.com/phanxgames/vela/raster"
)

// Option configures a Rasterizer.
type Option func(*Rasterizer)

// WithBackground sets the color the screen is cleared to each frame.
func WithBackground(c vela.Color) Option {
	return func(r *Rasterizer) { r.background = c }
}

// WithImageDir resolves relative image hrefs against dir.
func WithImageDir(dir string) Option {
	return func(r *Rasterizer) { r.imageDir = dir }
}

// WithFontSource replaces the built-in Go Regular face.
func WithFontSource(src *text.FontSource) Option {
	return func(r *Rasterizer) { r.font = src }
}

// WithLogger sets the logger. The default is vela.Logger().
func WithLogger(l *slog.Logger) Option {
	return func(r *Rasterizer) { r.log = l }
}

// scratch holds coverage layers matching one surface size. Both layers are
// kept fully transparent between commands.
type scratch struct {
	pm   *gg.Pixmap
	ctx  *gg.Context
	text *image.RGBA
}

// Rasterizer implements vela.Rasterizer on gg pixmaps. The screen is a
// pixmap of the size passed to New; offscreen surfaces are allocated on
// demand. It is not safe for concurrent use.
type Rasterizer struct {
	surfaces map[vela.SurfaceID]*gg.Pixmap
	scratch  map[[2]int]*scratch

	background vela.Color
	imageDir   string
	images     map[string]*gg.ImageBuf
	font       *text.FontSource
	faces      map[float64]text.Face
	log        *slog.Logger
}

// New returns a rasterizer with a w x h screen.
func New(w, h int, opts ...Option) *Rasterizer {
	r := &Rasterizer{
		surfaces: make(map[vela.SurfaceID]*gg.Pixmap),
		scratch:  make(map[[2]int]*scratch),
		images:   make(map[string]*gg.ImageBuf),
		faces:    make(map[float64]text.Face),
		log:      vela.Logger(),
	}
	for _, o := range opts {
		o(r)
	}
	if r.font == nil {
		src, err := text.NewFontSource(goregular.TTF)
		if err != nil {
			r.log.Warn("ggraster: default font", slog.Any("err", err))
		}
		r.font = src
	}
	r.surfaces[vela.ScreenSurface] = gg.NewPixmap(max(w, 1), max(h, 1))
	return r
}

// AllocateSurface creates or replaces an offscreen surface.
func (r *Rasterizer) AllocateSurface(id vela.SurfaceID, w, h int) error {
	if id == vela.ScreenSurface {
		return fmt.Errorf("ggraster: cannot allocate the screen surface")
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("ggraster: invalid surface size %dx%d", w, h)
	}
	r.surfaces[id] = gg.NewPixmap(w, h)
	return nil
}

// ReleaseSurface frees an offscreen surface. The screen cannot be released.
func (r *Rasterizer) ReleaseSurface(id vela.SurfaceID) {
	if id == vela.ScreenSurface {
		return
	}
	delete(r.surfaces, id)
}

// Pixmap returns the premultiplied pixels of a surface, or nil if it does
// not exist.
func (r *Rasterizer) Pixmap(id vela.SurfaceID) *gg.Pixmap {
	return r.surfaces[id]
}

// Image returns a copy of the screen.
func (r *Rasterizer) Image() *image.RGBA {
	return r.surfaces[vela.ScreenSurface].ToImage()
}

// SavePNG writes the screen to a PNG file.
func (r *Rasterizer) SavePNG(path string) error {
	return r.surfaces[vela.ScreenSurface].SavePNG(path)
}

// EncodePNG writes the screen as PNG to w.
func (r *Rasterizer) EncodePNG(w io.Writer) error {
	return png.Encode(w, r.Image())
}

// Close drops every surface and cache except the screen.
func (r *Rasterizer) Close() error {
	screen := r.surfaces[vela.ScreenSurface]
	for _, s := range r.scratch {
		_ = s.ctx.Close()
	}
	r.surfaces = map[vela.SurfaceID]*gg.Pixmap{vela.ScreenSurface: screen}
	r.scratch = make(map[[2]int]*scratch)
	r.images = make(map[string]*gg.ImageBuf)
	return nil
}

// Submit clears target and draws cmds onto it in order.
func (r *Rasterizer) Submit(target vela.SurfaceID, cmds []vela.DrawCommand) error {
	dst, ok := r.surfaces[target]
	if !ok {
		return fmt.Errorf("ggraster: unknown surface %d", target)
	}
	if target == vela.ScreenSurface {
		bg := r.background
		dst.Clear(gg.RGBA{R: bg.R, G: bg.G, B: bg.B, A: bg.A})
	} else {
		dst.Clear(gg.Transparent)
	}
	sc := r.scratchFor(dst.Width(), dst.Height())
	for i := range cmds {
		cmd := &cmds[i]
		masks, visible, err := r.maskSamplers(cmd.Masks)
		if err != nil {
			return err
		}
		if !visible {
			continue
		}
		switch cmd.Type {
		case vela.CommandFillPath, vela.CommandStrokePath:
			err = r.drawPath(dst, sc, cmd, masks)
		case vela.CommandImage:
			r.drawImage(dst, cmd, masks)
		case vela.CommandText:
			r.drawText(dst, sc, cmd, masks)
		}
		if err != nil {
			return fmt.Errorf("ggraster: node %d: %w", cmd.NodeID, err)
		}
	}
	dst.NotifyPixelsChanged()
	return nil
}

func (r *Rasterizer) scratchFor(w, h int) *scratch {
	key := [2]int{w, h}
	if s, ok := r.scratch[key]; ok {
		return s
	}
	pm := gg.NewPixmap(w, h)
	s := &scratch{
		pm:   pm,
		ctx:  gg.NewContext(w, h, gg.WithPixmap(pm)),
		text: image.NewRGBA(image.Rect(0, 0, w, h)),
	}
	r.scratch[key] = s
	return s
}

// drawPath rasterizes coverage for a fill or stroke, then shades and
// composites it.
func (r *Rasterizer) drawPath(dst *gg.Pixmap, sc *scratch, cmd *vela.DrawCommand, masks []maskSampler) error {
	shade, ok := shaderFor(cmd.Paint, cmd.Transform)
	if !ok || len(cmd.Path) == 0 {
		return nil
	}
	b := raster.NewBounds()
	raster.Walk(cmd.Path, cmd.Transform, b)
	if b.Empty {
		return nil
	}

	ctx := sc.ctx
	ctx.ClearPath()
	ctx.SetRGBA(1, 1, 1, 1)
	raster.Walk(cmd.Path, cmd.Transform, ctxSink{ctx})

	pad := 1.0
	var err error
	if cmd.Type == vela.CommandFillPath {
		if cmd.FillRule == vela.FillRuleEvenOdd {
			ctx.SetFillRule(gg.FillRuleEvenOdd)
		} else {
			ctx.SetFillRule(gg.FillRuleNonZero)
		}
		err = ctx.Fill()
	} else {
		st := cmd.Stroke
		scale := raster.ScaleFactor(cmd.Transform)
		width := st.Width * scale
		if width <= 0 {
			ctx.ClearPath()
			return nil
		}
		ctx.SetLineWidth(width)
		ctx.SetLineCap(lineCap(st.Cap))
		ctx.SetLineJoin(lineJoin(st.Join))
		limit := st.MiterLimit
		if limit < 1 {
			limit = 4
		}
		ctx.SetMiterLimit(limit)
		if len(st.Dash) > 0 {
			dash := make([]float64, len(st.Dash))
			for i, d := range st.Dash {
				dash[i] = d * scale
			}
			ctx.SetDash(dash...)
			ctx.SetDashOffset(st.DashOffset * scale)
		} else {
			ctx.ClearDash()
		}
		pad += width / 2 * math.Max(limit, math.Sqrt2)
		err = ctx.Stroke()
	}
	box := clipBox(b.MinX-pad, b.MinY-pad, b.MaxX+pad, b.MaxY+pad, dst.Width(), dst.Height())
	cov := sc.pm.Data()
	stride := sc.pm.Width() * 4
	composite(dst, cov, stride, box, shade, cmd.Alpha, masks)
	zero(cov, stride, box)
	return err
}

// drawText draws the string with the default face at the device position
// of its anchor point. The glyphs themselves are not transformed; only
// the font size follows the transform's scale.
func (r *Rasterizer) drawText(dst *gg.Pixmap, sc *scratch, cmd *vela.DrawCommand, masks []maskSampler) {
	td := cmd.Text
	if td.Content == "" || td.FontSize <= 0 || r.font == nil {
		return
	}
	shade, ok := shaderFor(cmd.Paint, cmd.Transform)
	if !ok {
		return
	}
	size := td.FontSize * raster.ScaleFactor(cmd.Transform)
	face := r.face(size)
	x, y := raster.Apply(cmd.Transform, td.X, td.Y)
	w, _ := text.Measure(td.Content, face)
	switch td.Anchor {
	case vela.TextAnchorMiddle:
		x -= w / 2
	case vela.TextAnchorEnd:
		x -= w
	}
	text.Draw(sc.text, td.Content, face, x, y, color.White)

	m := face.Metrics()
	pad := 2 + size/4 // glyph overhang
	box := clipBox(x-pad, y-m.Ascent-pad, x+w+pad, y+m.Descent+pad, dst.Width(), dst.Height())
	composite(dst, sc.text.Pix, sc.text.Stride, box, shade, cmd.Alpha, masks)
	zero(sc.text.Pix, sc.text.Stride, box)
}

func (r *Rasterizer) face(size float64) text.Face {
	f, ok := r.faces[size]
	if !ok {
		f = r.font.Face(size)
		r.faces[size] = f
	}
	return f
}

// drawImage maps every covered device pixel back into the image rectangle
// and samples the nearest texel.
func (r *Rasterizer) drawImage(dst *gg.Pixmap, cmd *vela.DrawCommand, masks []maskSampler) {
	rect := cmd.Image.Rect
	if rect.Width <= 0 || rect.Height <= 0 {
		return
	}
	img := r.loadImage(cmd.Image.Href)
	if img == nil {
		return
	}
	inv, ok := raster.Invert(cmd.Transform)
	if !ok {
		return
	}
	b := raster.NewBounds()
	b.MoveTo(raster.Apply(cmd.Transform, rect.X, rect.Y))
	b.LineTo(raster.Apply(cmd.Transform, rect.X+rect.Width, rect.Y))
	b.LineTo(raster.Apply(cmd.Transform, rect.X+rect.Width, rect.Y+rect.Height))
	b.LineTo(raster.Apply(cmd.Transform, rect.X, rect.Y+rect.Height))
	box := clipBox(b.MinX, b.MinY, b.MaxX, b.MaxY, dst.Width(), dst.Height())

	iw, ih := float64(img.Width()), float64(img.Height())
	premul := img.Format().IsPremultiplied()
	data := dst.Data()
	stride := dst.Width() * 4
	for py := box.Min.Y; py < box.Max.Y; py++ {
		for px := box.Min.X; px < box.Max.X; px++ {
			lx, ly := raster.Apply(inv, float64(px)+0.5, float64(py)+0.5)
			u := (lx - rect.X) / rect.Width
			v := (ly - rect.Y) / rect.Height
			if u < 0 || u >= 1 || v < 0 || v >= 1 {
				continue
			}
			cr, cg, cb, ca := img.GetRGBA(int(u*iw), int(v*ih))
			if ca == 0 {
				continue
			}
			a := float64(ca) / 255 * cmd.Alpha * maskCoverage(masks, px, py)
			if a <= 0 {
				continue
			}
			cf, gf, bf := float64(cr)/255, float64(cg)/255, float64(cb)/255
			if premul {
				ua := float64(ca) / 255
				cf, gf, bf = cf/ua, gf/ua, bf/ua
			}
			over(data[py*stride+px*4:], cf, gf, bf, a)
		}
	}
}

// loadImage decodes href once. Failures are logged once and remembered.
func (r *Rasterizer) loadImage(href string) *gg.ImageBuf {
	if img, ok := r.images[href]; ok {
		return img
	}
	path := href
	if r.imageDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(r.imageDir, path)
	}
	img, err := gg.LoadImage(path)
	if err != nil {
		r.log.Warn("ggraster: image not loaded", slog.String("href", href), slog.Any("err", err))
		img = nil
	}
	r.images[href] = img
	return img
}

// ctxSink feeds device-space segments to a gg context.
type ctxSink struct{ ctx *gg.Context }

func (s ctxSink) MoveTo(x, y float64)                  { s.ctx.MoveTo(x, y) }
func (s ctxSink) LineTo(x, y float64)                  { s.ctx.LineTo(x, y) }
func (s ctxSink) QuadTo(x1, y1, x, y float64)          { s.ctx.QuadraticTo(x1, y1, x, y) }
func (s ctxSink) CubicTo(x1, y1, x2, y2, x, y float64) { s.ctx.CubicTo(x1, y1, x2, y2, x, y) }
func (s ctxSink) Close()                               { s.ctx.ClosePath() }

func lineCap(c vela.LineCap) gg.LineCap {
	switch c {
	case vela.LineCapRound:
		return gg.LineCapRound
	case vela.LineCapSquare:
		return gg.LineCapSquare
	}
	return gg.LineCapButt
}

func lineJoin(j vela.LineJoin) gg.LineJoin {
	switch j {
	case vela.LineJoinRound:
		return gg.LineJoinRound
	case vela.LineJoinBevel:
		return gg.LineJoinBevel
	}
	return gg.LineJoinMiter
}

// clipBox returns the integer pixel rectangle covering the given extent,
// clipped to a w x h surface.
func clipBox(x0, y0, x1, y1 float64, w, h int) image.Rectangle {
	r := image.Rect(
		int(math.Floor(x0)), int(math.Floor(y0)),
		int(math.Ceil(x1))+1, int(math.Ceil(y1))+1,
	)
	return r.Intersect(image.Rect(0, 0, w, h))
}

// zero clears box in an RGBA buffer.
func zero(pix []uint8, stride int, box image.Rectangle) {
	for y := box.Min.Y; y < box.Max.Y; y++ {
		row := pix[y*stride+box.Min.X*4 : y*stride+box.Max.X*4]
		clear(row)
	}
}
