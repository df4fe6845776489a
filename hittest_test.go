package vela

import "testing"

const hitDoc = `<svg viewBox="0 0 100 100">
	<rect id="back" width="100" height="100"/>
	<g transform="translate(20 20)">
		<rect id="front" width="10" height="10"/>
	</g>
	<rect id="hidden" width="100" height="100" visibility="hidden"/>
</svg>`

func TestHitTest(t *testing.T) {
	s := buildScene(t, hitDoc, Options{})
	mustDraw(t, s, &recordingRasterizer{})

	tests := []struct {
		x, y float64
		want string
	}{
		{25, 25, "front"},
		{5, 5, "back"},
		{50, 50, "back"},
		{150, 50, ""},
	}
	for _, tt := range tests {
		got := s.HitTest(tt.x, tt.y)
		name := ""
		if got != nil {
			name = got.Name
		}
		if name != tt.want {
			t.Errorf("HitTest(%v, %v) = %q, want %q", tt.x, tt.y, name, tt.want)
		}
	}
}

func TestHitTestAfterCulling(t *testing.T) {
	s := buildScene(t, hitDoc, Options{Viewport: Rect{0, 0, 10, 10}})
	mustDraw(t, s, &recordingRasterizer{})
	if got := s.HitTest(25, 25); got == nil || got.Name != "front" {
		t.Errorf("HitTest = %v, want front", got)
	}
}

func TestHitTestDestroyed(t *testing.T) {
	s := buildScene(t, hitDoc, Options{})
	mustDraw(t, s, &recordingRasterizer{})
	s.Destroy()
	if got := s.HitTest(5, 5); got != nil {
		t.Errorf("HitTest after Destroy = %v, want nil", got)
	}
}
