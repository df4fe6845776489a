package vela

import (
	"testing"
	"time"
)

func TestParseScript(t *testing.T) {
	data := []byte(`
steps:
  - {action: screenshot, label: initial}
  - {action: click, x: 100, y: 200}
  - {action: wait, frames: 3}
  - {action: seek, at: 1.5s}
  - {action: drag, from_x: 1, from_y: 2, to_x: 3, to_y: 4, frames: 5}
`)
	r, err := ParseScript(data)
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	if len(r.steps) != 5 {
		t.Fatalf("len(steps) = %d, want 5", len(r.steps))
	}
	if st := r.steps[1]; st.Action != "click" || st.X != 100 || st.Y != 200 {
		t.Errorf("step 1 = %+v", st)
	}
	if st := r.steps[3]; st.At != 1500*time.Millisecond {
		t.Errorf("seek At = %v, want 1.5s", st.At)
	}
	if st := r.steps[4]; st.FromY != 2 || st.ToX != 3 || st.Frames != 5 {
		t.Errorf("step 4 = %+v", st)
	}
}

func TestParseScriptJSON(t *testing.T) {
	r, err := ParseScript([]byte(`{"steps": [{"action": "click", "x": 5, "y": 6}]}`))
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	if st := r.steps[0]; st.X != 5 || st.Y != 6 {
		t.Errorf("step = %+v", st)
	}
}

func TestParseScriptErrors(t *testing.T) {
	tests := map[string]string{
		"invalid": `steps: [`,
		"empty":   `steps: []`,
		"unknown": `steps: [{action: jump}]`,
	}
	for name, src := range tests {
		if _, err := ParseScript([]byte(src)); err == nil {
			t.Errorf("%s: ParseScript should fail", name)
		}
	}
}

func mustScript(t *testing.T, src string) *Script {
	t.Helper()
	r, err := ParseScript([]byte(src))
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	return r
}

func TestScriptClick(t *testing.T) {
	s := pointerScene(t)
	clicks := 0
	s.OnClick(func(PointerContext) { clicks++ })
	r := mustScript(t, `steps: [{action: click, x: 25, y: 25}]`)
	s.SetScript(r)

	// The first update queues press and release and consumes the press.
	for range 3 {
		if err := s.Update(); err != nil {
			t.Fatal(err)
		}
	}
	if clicks != 1 {
		t.Errorf("clicks = %d, want 1", clicks)
	}
	if !r.Done() {
		t.Error("script should be done once its input is consumed")
	}
}

func TestScriptWaitAndScreenshot(t *testing.T) {
	s := pointerScene(t)
	r := mustScript(t, `
steps:
  - {action: screenshot, label: a}
  - {action: wait, frames: 2}
  - {action: screenshot, label: b}
`)
	s.SetScript(r)

	var got []string
	for i := 0; i < 6 && !r.Done(); i++ {
		if err := s.Update(); err != nil {
			t.Fatal(err)
		}
		got = append(got, s.TakeScreenshots()...)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("screenshots = %v, want [a b]", got)
	}
	if !r.Done() {
		t.Error("script should be done")
	}
	if s.TakeScreenshots() != nil {
		t.Error("TakeScreenshots should drain the queue")
	}
}

func TestScriptSeek(t *testing.T) {
	s := pointerScene(t)
	s.Play()
	s.SetScript(mustScript(t, `steps: [{action: seek, at: 2s}]`))
	if err := s.Update(); err != nil {
		t.Fatal(err)
	}
	if s.State() != StatePaused || s.Controller().Elapsed() != 2*time.Second {
		t.Errorf("State, Elapsed = %v, %v, want paused at 2s", s.State(), s.Controller().Elapsed())
	}
}

func TestScreenshotName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hello", "hello.png"},
		{"after-spawn", "after-spawn.png"},
		{"frame.01", "frame.01.png"},
		{"has spaces", "has_spaces.png"},
		{"path/to/thing", "path_to_thing.png"},
		{"special!@#", "special___.png"},
		{"", "unlabeled.png"},
		{"   ", "unlabeled.png"},
	}
	for _, tt := range tests {
		if got := ScreenshotName(tt.in); got != tt.want {
			t.Errorf("ScreenshotName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
