// Command vela renders vector animation documents to PNG frames or plays
// them in a window.
//
//	vela render [flags] doc.svg
//	vela play [flags] doc.svg
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/phanxgames/vela"
	"github.com/phanxgames/vela/raster/ebitenraster"
	"github.com/phanxgames/vela/raster/ggraster"
	"github.com/phanxgames/vela/vdoc"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "render":
		err = render(os.Args[2:])
	case "play":
		err = play(os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("vela: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: vela render|play [flags] document")
}

// common holds the flags shared by both subcommands.
type common struct {
	config  *string
	width   *float64
	height  *float64
	bg      *string
	verbose *bool
}

func commonFlags(fs *flag.FlagSet) common {
	return common{
		config:  fs.String("config", "", "YAML options file"),
		width:   fs.Float64("width", 0, "output width (0 uses the document size)"),
		height:  fs.Float64("height", 0, "output height (0 uses the document size)"),
		bg:      fs.String("bg", "white", "background color"),
		verbose: fs.Bool("v", false, "log warnings and per-frame stats"),
	}
}

// load decodes the document named by the first positional argument and
// builds a scene for it.
func (c common) load(fs *flag.FlagSet, clock func() time.Duration) (*vela.Scene, vela.Color, error) {
	if fs.NArg() != 1 {
		return nil, vela.Color{}, errors.New("expected one document")
	}
	path := fs.Arg(0)

	opts := vela.DefaultOptions()
	if *c.config != "" {
		var err error
		if opts, err = vela.LoadOptions(*c.config); err != nil {
			return nil, vela.Color{}, err
		}
	}
	if *c.width > 0 {
		opts.Width = *c.width
	}
	if *c.height > 0 {
		opts.Height = *c.height
	}
	if *c.verbose {
		vela.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		opts.Debug = true
	}
	opts.Clock = clock

	bg, err := vela.ParseColor(*c.bg)
	if err != nil {
		return nil, vela.Color{}, fmt.Errorf("background: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, vela.Color{}, err
	}
	defer f.Close()
	doc, err := vdoc.Decode(f, filepath.ToSlash(path))
	if err != nil {
		return nil, vela.Color{}, err
	}

	dir := filepath.Dir(path)
	opts.Loader = vdoc.NewCachingLoader(vdoc.SchemeFetcher(vdoc.HTTPFetcher(nil), vdoc.FileFetcher(dir)))
	scene, err := vela.Build(doc, opts)
	if err != nil {
		return nil, vela.Color{}, err
	}
	return scene, bg, nil
}

func render(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	c := commonFlags(fs)
	var (
		output = fs.String("o", "frame.png", "output file; with -frames > 1 a pattern like frame%03d.png")
		at     = fs.Duration("at", 0, "timeline position of the first frame")
		frames = fs.Int("frames", 1, "number of frames to render")
		step   = fs.Duration("step", time.Second/vela.DefaultMaxFPS, "time between frames")
		wait   = fs.Duration("wait", 5*time.Second, "how long to wait for external documents")
		script = fs.String("script", "", "YAML playback script; screenshots are written to the -o directory")
	)
	fs.Parse(args)

	// The clock only moves when a script advances it.
	var now time.Duration
	scene, bg, err := c.load(fs, func() time.Duration { return now })
	if err != nil {
		return err
	}
	defer scene.Destroy()

	if err := waitForLoads(scene, *wait); err != nil {
		return err
	}

	w, h := scene.Size()
	if w < 1 || h < 1 {
		return errors.New("document has no size; pass -width and -height")
	}
	if scene.Viewport().IsEmpty() {
		scene.SetViewport(vela.Rect{Width: w, Height: h})
	}
	r := ggraster.New(int(w), int(h), ggraster.WithBackground(bg), ggraster.WithImageDir(filepath.Dir(fs.Arg(0))))
	defer r.Close()

	if *script != "" {
		return runScript(scene, r, *script, filepath.Dir(*output), *step, &now)
	}

	for i := range max(*frames, 1) {
		scene.GotoAndStop(*at + time.Duration(i)*(*step))
		if err := scene.Draw(r); err != nil {
			return err
		}
		out := *output
		if *frames > 1 {
			out = fmt.Sprintf(*output, i)
		}
		if err := r.SavePNG(out); err != nil {
			return err
		}
		log.Printf("wrote %s (%dx%d, %d commands)", out, int(w), int(h), scene.Stats().Commands)
	}
	return nil
}

// maxScriptFrames bounds a script run that never finishes.
const maxScriptFrames = 100000

// runScript plays a script frame by frame, advancing the clock by step per
// frame, and writes every screenshot it asks for into dir.
func runScript(scene *vela.Scene, r *ggraster.Rasterizer, path, dir string, step time.Duration, now *time.Duration) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sc, err := vela.ParseScript(data)
	if err != nil {
		return err
	}
	scene.SetScript(sc)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for frame := 0; !sc.Done(); frame++ {
		if frame >= maxScriptFrames {
			return fmt.Errorf("script %s did not finish after %d frames", path, frame)
		}
		if err := scene.Update(); err != nil {
			return err
		}
		if err := scene.Draw(r); err != nil {
			return err
		}
		for _, label := range scene.TakeScreenshots() {
			out := filepath.Join(dir, vela.ScreenshotName(label))
			if err := r.SavePNG(out); err != nil {
				return err
			}
			log.Printf("frame %d: wrote %s", frame, out)
		}
		*now += step
	}
	return nil
}

// waitForLoads applies external documents until none are pending or the
// timeout passes. Documents still loading after that are drawn empty.
func waitForLoads(scene *vela.Scene, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for scene.PendingLoads() > 0 {
		if time.Now().After(deadline) {
			log.Printf("%d external documents still loading", scene.PendingLoads())
			return nil
		}
		if err := scene.Update(); err != nil {
			return err
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func play(args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	c := commonFlags(fs)
	var (
		title   = fs.String("title", "", "window title (default: document name)")
		showFPS = fs.Bool("fps", false, "show an FPS counter")
		script  = fs.String("script", "", "YAML playback script")
		shots   = fs.String("screenshots", "screenshots", "directory for script screenshots")
	)
	fs.Parse(args)

	start := time.Now()
	scene, bg, err := c.load(fs, func() time.Duration { return time.Since(start) })
	if err != nil {
		return err
	}
	defer scene.Destroy()

	scene.OnLoop(func(frame, iteration int) {
		vela.Logger().Debug("loop", "frame", frame, "iteration", iteration)
	})
	scene.Play()
	if *script != "" {
		data, err := os.ReadFile(*script)
		if err != nil {
			return err
		}
		sc, err := vela.ParseScript(data)
		if err != nil {
			return err
		}
		scene.SetScript(sc)
	}

	if *title == "" {
		*title = filepath.Base(fs.Arg(0))
	}
	w, h := scene.Size()
	ropts := []ebitenraster.Option{
		ebitenraster.WithBackground(bg),
		ebitenraster.WithImageDir(filepath.Dir(fs.Arg(0))),
	}
	return ebitenraster.Run(scene, ebitenraster.RunConfig{
		Title:         *title,
		Width:         int(w),
		Height:        int(h),
		ShowFPS:       *showFPS,
		Resizable:     true,
		ScreenshotDir: *shots,
		Options:       ropts,
	})
}
