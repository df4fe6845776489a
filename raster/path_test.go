package raster

import (
	"fmt"
	"math"
	"testing"

	"github.com/phanxgames/vela/morph"
)

var identity = [6]float64{1, 0, 0, 1, 0, 0}

// recorder logs every segment it receives as text.
type recorder struct {
	ops []string
	pts [][2]float64 // end point of each segment
}

func (r *recorder) end(x, y float64) { r.pts = append(r.pts, [2]float64{x, y}) }

func (r *recorder) MoveTo(x, y float64) {
	r.ops = append(r.ops, fmt.Sprintf("M%g,%g", x, y))
	r.end(x, y)
}

func (r *recorder) LineTo(x, y float64) {
	r.ops = append(r.ops, fmt.Sprintf("L%g,%g", x, y))
	r.end(x, y)
}

func (r *recorder) QuadTo(x1, y1, x, y float64) {
	r.ops = append(r.ops, fmt.Sprintf("Q%g,%g %g,%g", x1, y1, x, y))
	r.end(x, y)
}

func (r *recorder) CubicTo(x1, y1, x2, y2, x, y float64) {
	r.ops = append(r.ops, fmt.Sprintf("C%g,%g %g,%g %g,%g", x1, y1, x2, y2, x, y))
	r.end(x, y)
}

func (r *recorder) Close() { r.ops = append(r.ops, "Z") }

func walk(t *testing.T, d string, m [6]float64) *recorder {
	t.Helper()
	r := &recorder{}
	Walk(morph.MustParse(d), m, r)
	return r
}

func TestWalkBasicSegments(t *testing.T) {
	got := walk(t, "M0 0 L10 0 H20 V5 Q25 5 25 10 C25 20 30 20 30 10 Z", identity).ops
	want := []string{"M0,0", "L10,0", "L20,0", "L20,5", "Q25,5 25,10", "C25,20 30,20 30,10", "Z"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
}

func TestWalkAppliesMatrix(t *testing.T) {
	got := walk(t, "M0 0 L10 0", [6]float64{2, 0, 0, 2, 5, 5}).ops
	want := []string{"M5,5", "L25,5"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
}

func TestWalkReflectsSmoothControlPoints(t *testing.T) {
	tests := []struct {
		d    string
		want string
	}{
		{"M0 0 C0 10 10 10 10 0 S20 -10 20 0", "C10,-10 20,-10 20,0"},
		{"M0 0 S10 10 10 0", "C0,0 10,10 10,0"},
		{"M0 0 Q5 10 10 0 T20 0", "Q15,-10 20,0"},
		{"M0 0 T10 0", "Q0,0 10,0"},
	}
	for _, tt := range tests {
		ops := walk(t, tt.d, identity).ops
		if got := ops[len(ops)-1]; got != tt.want {
			t.Errorf("%s: last op = %s, want %s", tt.d, got, tt.want)
		}
	}
}

func TestWalkArcBecomesCubics(t *testing.T) {
	r := walk(t, "M0 0 A10 10 0 0 1 20 0", identity)
	if len(r.ops) != 3 {
		t.Fatalf("ops = %v, want a move and two cubics", r.ops)
	}
	mid := r.pts[1]
	if math.Abs(mid[0]-10) > 1e-9 || math.Abs(mid[1]+10) > 1e-9 {
		t.Errorf("quarter point = %v, want (10, -10)", mid)
	}
	if end := r.pts[2]; end != [2]float64{20, 0} {
		t.Errorf("end = %v, want (20, 0)", end)
	}
}

func TestWalkArcSweepFlag(t *testing.T) {
	r := walk(t, "M0 0 A10 10 0 0 0 20 0", identity)
	if mid := r.pts[1]; math.Abs(mid[1]-10) > 1e-9 {
		t.Errorf("quarter point = %v, want y = 10", mid)
	}
}

func TestWalkDegenerateArc(t *testing.T) {
	r := walk(t, "M0 0 A0 5 0 0 1 10 0", identity)
	if end := r.pts[len(r.pts)-1]; end != [2]float64{10, 0} {
		t.Errorf("end = %v, want (10, 0)", end)
	}
}

func TestWalkArcScalesSmallRadii(t *testing.T) {
	// radius too small for the chord is scaled up to a half circle
	r := walk(t, "M0 0 A1 1 0 0 1 20 0", identity)
	if mid := r.pts[1]; math.Abs(mid[0]-10) > 1e-9 || math.Abs(mid[1]+10) > 1e-9 {
		t.Errorf("quarter point = %v, want (10, -10)", mid)
	}
}

func TestBounds(t *testing.T) {
	b := NewBounds()
	Walk(morph.MustParse("M-5 0 C0 -10 10 -10 10 20"), identity, b)
	if b.Empty {
		t.Fatal("bounds should not be empty")
	}
	if b.MinX != -5 || b.MinY != -10 || b.MaxX != 10 || b.MaxY != 20 {
		t.Errorf("bounds = %+v", *b)
	}
	if !NewBounds().Empty {
		t.Error("new bounds should be empty")
	}
}

func TestScaleFactor(t *testing.T) {
	if got := ScaleFactor([6]float64{2, 0, 0, 8, 3, 4}); got != 4 {
		t.Errorf("ScaleFactor = %v, want 4", got)
	}
	if got := ScaleFactor(identity); got != 1 {
		t.Errorf("ScaleFactor(identity) = %v, want 1", got)
	}
}

func TestMultiplyAndInvert(t *testing.T) {
	scale := [6]float64{2, 0, 0, 3, 0, 0}
	move := [6]float64{1, 0, 0, 1, 10, 20}
	m := Multiply(move, scale) // scale first, then move

	if x, y := Apply(m, 1, 1); x != 12 || y != 23 {
		t.Errorf("Apply = (%v, %v), want (12, 23)", x, y)
	}
	inv, ok := Invert(m)
	if !ok {
		t.Fatal("Invert reported a singular matrix")
	}
	if x, y := Apply(inv, 12, 23); math.Abs(x-1) > 1e-9 || math.Abs(y-1) > 1e-9 {
		t.Errorf("inverse Apply = (%v, %v), want (1, 1)", x, y)
	}
	if _, ok := Invert([6]float64{1, 2, 2, 4, 0, 0}); ok {
		t.Error("Invert of a singular matrix should fail")
	}
}
