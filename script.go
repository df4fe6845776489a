package vela

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ScriptStep is one action of a playback script.
//
// Actions: "click" at (X, Y); "drag" from (FromX, FromY) to (ToX, ToY) over
// Frames updates; "wait" for Frames updates; "seek" to At and stop; "play";
// "stop"; "screenshot" with Label.
type ScriptStep struct {
	Action string        `yaml:"action"`
	Label  string        `yaml:"label,omitempty"`
	X      float64       `yaml:"x,omitempty"`
	Y      float64       `yaml:"y,omitempty"`
	FromX  float64       `yaml:"from_x,omitempty"`
	FromY  float64       `yaml:"from_y,omitempty"`
	ToX    float64       `yaml:"to_x,omitempty"`
	ToY    float64       `yaml:"to_y,omitempty"`
	Frames int           `yaml:"frames,omitempty"`
	At     time.Duration `yaml:"at,omitempty"`
}

// Script sequences injected input, timeline seeks and screenshots across
// updates. Attach it with Scene.SetScript; the scene steps it from Update.
type Script struct {
	steps     []ScriptStep
	cursor    int
	waitCount int
	done      bool
}

// ParseScript decodes a YAML (or JSON) script of the form
// {steps: [{action: click, x: 10, y: 20}, ...]}.
func ParseScript(data []byte) (*Script, error) {
	var doc struct {
		Steps []ScriptStep `yaml:"steps"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("vela: parse script: %w", err)
	}
	if len(doc.Steps) == 0 {
		return nil, errors.New("vela: parse script: no steps")
	}
	for i, st := range doc.Steps {
		switch st.Action {
		case "click", "drag", "wait", "seek", "play", "stop", "screenshot":
		default:
			return nil, fmt.Errorf("vela: parse script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &Script{steps: doc.Steps}, nil
}

// Done reports whether every step has run and its input has been consumed.
func (r *Script) Done() bool { return r.done }

// SetScript attaches r to the scene, replacing any previous script. Nil
// detaches it.
func (s *Scene) SetScript(r *Script) { s.script = r }

// step runs at most one script step. It waits while injected input is
// still queued.
func (r *Script) step(s *Scene) {
	if r.done || len(s.injectQueue) > 0 {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++
	switch st.Action {
	case "screenshot":
		s.Screenshot(st.Label)
	case "click":
		s.InjectClick(st.X, st.Y)
	case "drag":
		s.InjectDrag(st.FromX, st.FromY, st.ToX, st.ToY, st.Frames)
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1 // this update counts as one
		}
	case "seek":
		s.GotoAndStop(st.At)
	case "play":
		s.Play()
	case "stop":
		s.Stop()
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 && len(s.injectQueue) == 0 {
		r.done = true
	}
}

// Screenshot queues a labeled capture of the next drawn frame. Hosts drain
// the queue with TakeScreenshots after Draw.
func (s *Scene) Screenshot(label string) {
	s.screenshotQueue = append(s.screenshotQueue, label)
}

// TakeScreenshots returns and clears the queued screenshot labels.
func (s *Scene) TakeScreenshots() []string {
	if len(s.screenshotQueue) == 0 {
		return nil
	}
	out := s.screenshotQueue
	s.screenshotQueue = nil
	return out
}

// ScreenshotName turns a label into a PNG file name. Characters other than
// ASCII letters, digits, '-' and '.' become '_'; a blank label is named
// "unlabeled".
func ScreenshotName(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled.png"
	}
	var b strings.Builder
	b.Grow(len(label) + 4)
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	b.WriteString(".png")
	return b.String()
}
