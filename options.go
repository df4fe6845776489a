package vela

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/phanxgames/vela/vdoc"
)

// DefaultMaxFPS is the timeline sampling rate used when Options.MaxFPS is 0.
const DefaultMaxFPS = 60

// Options configures Build. The zero value is usable; DefaultOptions
// documents the effective defaults.
type Options struct {
	// Width and Height are the on-screen size of the document. Zero uses the
	// document's viewBox size.
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`

	// AnchorX and AnchorY position the scene relative to its size:
	// (0, 0) is the top-left corner, (0.5, 0.5) the center.
	AnchorX float64 `yaml:"anchor_x"`
	AnchorY float64 `yaml:"anchor_y"`

	// X and Y place the anchor point on the target surface.
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`

	// MaxFPS caps how often animated geometry is re-sampled.
	MaxFPS int `yaml:"max_fps"`

	// Autoplay starts the timeline as soon as the scene is built.
	Autoplay bool `yaml:"autoplay"`

	// Viewport is the screen-space cull rectangle. Empty disables culling.
	Viewport Rect `yaml:"viewport"`

	// Debug logs per-frame stats at debug level.
	Debug bool `yaml:"debug"`

	// Loader resolves external use references. Nil leaves them empty.
	Loader vdoc.Loader `yaml:"-"`

	// Logger overrides the package logger for this scene.
	Logger *slog.Logger `yaml:"-"`

	// Clock returns the current time. Nil uses a monotonic wall clock.
	Clock func() time.Duration `yaml:"-"`
}

// DefaultOptions returns the options Build uses for unset fields.
func DefaultOptions() Options {
	return Options{
		MaxFPS:   DefaultMaxFPS,
		Autoplay: true,
	}
}

// LoadOptions reads YAML-encoded options from path on top of DefaultOptions.
func LoadOptions(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("vela: load options: %w", err)
	}
	return ParseOptions(data)
}

// ParseOptions decodes YAML-encoded options on top of DefaultOptions.
func ParseOptions(data []byte) (Options, error) {
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("vela: parse options: %w", err)
	}
	if err := opts.validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func (o Options) validate() error {
	if o.Width < 0 || o.Height < 0 {
		return fmt.Errorf("vela: negative size %gx%g", o.Width, o.Height)
	}
	if o.MaxFPS < 0 {
		return fmt.Errorf("vela: negative max fps %d", o.MaxFPS)
	}
	return nil
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return Logger()
}

var processStart = time.Now()

func (o Options) clock() func() time.Duration {
	if o.Clock != nil {
		return o.Clock
	}
	return func() time.Duration { return time.Since(processStart) }
}
