package ebitenraster

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/phanxgames/vela"
)

// RunConfig configures the window opened by Run.
type RunConfig struct {
	Title   string
	Width   int
	Height  int
	ShowFPS bool
	// Resizable lets the user resize the window. The scene keeps its logical
	// size; Ebitengine scales the screen to fit.
	Resizable bool
	// ScreenshotDir receives the frames queued with Scene.Screenshot. Empty
	// discards them.
	ScreenshotDir string
	// Update runs once per tick after the scene's own update.
	Update  func() error
	Options []Option
}

// Run opens a window and drives scene from Ebitengine's game loop until the
// window closes or the scene fails to draw. Mouse input is forwarded to the
// scene as pointer 0 and touches as pointers 1-9. A scene without a viewport
// is culled against the window.
func Run(scene *vela.Scene, cfg RunConfig) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		w, h := scene.Size()
		cfg.Width, cfg.Height = int(w), int(h)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("ebitenraster: window size %dx%d", cfg.Width, cfg.Height)
	}
	g := newGame(scene, cfg)
	defer g.raster.Close()

	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	if cfg.Resizable {
		ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	}
	return ebiten.RunGame(g)
}

type game struct {
	scene  *vela.Scene
	raster *Rasterizer
	cfg    RunConfig
	err    error

	touchIDs []ebiten.TouchID
	touchMap [10]ebiten.TouchID
	touchOn  [10]bool
	touchPos [10][2]float64

	fps        *ebiten.Image
	lastUpdate time.Time
}

func newGame(scene *vela.Scene, cfg RunConfig) *game {
	g := &game{scene: scene, raster: New(cfg.Options...), cfg: cfg}
	if scene.Viewport().IsEmpty() {
		scene.SetViewport(vela.Rect{Width: float64(cfg.Width), Height: float64(cfg.Height)})
	}
	if cfg.ShowFPS {
		// 100x32 is enough for "FPS: 60.0\nTPS: 60.0"
		g.fps = ebiten.NewImage(100, 32)
	}
	return g
}

func (g *game) Update() error {
	if g.err != nil {
		return g.err
	}
	injected := g.scene.PendingInput() > 0
	if err := g.scene.Update(); err != nil {
		return err
	}
	if !injected {
		g.pollMouse()
	}
	g.pollTouches()
	if g.cfg.Update != nil {
		return g.cfg.Update()
	}
	return nil
}

func (g *game) pollMouse() {
	mx, my := ebiten.CursorPosition()
	var pressed bool
	var button vela.MouseButton
	switch {
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		pressed, button = true, vela.MouseButtonLeft
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight):
		pressed, button = true, vela.MouseButtonRight
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle):
		pressed, button = true, vela.MouseButtonMiddle
	}
	g.scene.Pointer(0, float64(mx), float64(my), pressed, button)
}

// pollTouches maps touch ids onto pointer slots 1-9 and releases slots whose
// touch ended.
func (g *game) pollTouches() {
	g.touchIDs = ebiten.AppendTouchIDs(g.touchIDs[:0])
	var active [10]bool
	for _, tid := range g.touchIDs {
		slot := g.touchSlot(tid)
		if slot < 0 {
			continue
		}
		active[slot] = true
		tx, ty := ebiten.TouchPosition(tid)
		g.touchPos[slot] = [2]float64{float64(tx), float64(ty)}
		g.scene.Pointer(slot, float64(tx), float64(ty), true, vela.MouseButtonLeft)
	}
	for i := 1; i < len(g.touchOn); i++ {
		if g.touchOn[i] && !active[i] {
			g.scene.Pointer(i, g.touchPos[i][0], g.touchPos[i][1], false, vela.MouseButtonLeft)
			g.touchOn[i] = false
		}
	}
}

func (g *game) touchSlot(tid ebiten.TouchID) int {
	for i := 1; i < len(g.touchOn); i++ {
		if g.touchOn[i] && g.touchMap[i] == tid {
			return i
		}
	}
	for i := 1; i < len(g.touchOn); i++ {
		if !g.touchOn[i] {
			g.touchOn[i] = true
			g.touchMap[i] = tid
			return i
		}
	}
	return -1
}

func (g *game) Draw(screen *ebiten.Image) {
	g.raster.SetScreen(screen)
	if err := g.scene.Draw(g.raster); err != nil && g.err == nil {
		g.err = fmt.Errorf("ebitenraster: draw: %w", err)
	}
	if labels := g.scene.TakeScreenshots(); len(labels) > 0 && g.cfg.ScreenshotDir != "" {
		g.saveScreenshots(screen, labels)
	}
	if g.fps != nil {
		g.drawFPS(screen)
	}
}

// saveScreenshots writes the screen once per label. Failures are logged;
// they do not stop the game.
func (g *game) saveScreenshots(screen *ebiten.Image, labels []string) {
	if err := os.MkdirAll(g.cfg.ScreenshotDir, 0o755); err != nil {
		g.raster.log.Warn("screenshot", "dir", g.cfg.ScreenshotDir, "err", err)
		return
	}
	img := screenNRGBA(screen)
	for _, label := range labels {
		path := filepath.Join(g.cfg.ScreenshotDir, vela.ScreenshotName(label))
		if err := writePNG(path, img); err != nil {
			g.raster.log.Warn("screenshot", "err", err)
		}
	}
}

// screenNRGBA reads the screen and converts its premultiplied pixels to
// straight alpha.
func screenNRGBA(screen *ebiten.Image) *image.NRGBA {
	b := screen.Bounds()
	img := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	screen.ReadPixels(img.Pix)
	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		if a := int(pix[i+3]); a > 0 && a < 255 {
			pix[i] = uint8(min(int(pix[i])*255/a, 255))
			pix[i+1] = uint8(min(int(pix[i+1])*255/a, 255))
			pix[i+2] = uint8(min(int(pix[i+2])*255/a, 255))
		}
	}
	return img
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// drawFPS refreshes the counter image every half second and draws it in the
// top-left corner.
func (g *game) drawFPS(screen *ebiten.Image) {
	if now := time.Now(); now.Sub(g.lastUpdate) >= 500*time.Millisecond {
		g.lastUpdate = now
		g.fps.Clear()
		g.fps.Fill(color.RGBA{0, 0, 0, 128})
		ebitenutil.DebugPrint(g.fps, fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS()))
	}
	screen.DrawImage(g.fps, nil)
}

func (g *game) Layout(_, _ int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}
