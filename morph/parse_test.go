package morph

import (
	"errors"
	"math"
	"testing"
)

func TestParseAbsolute(t *testing.T) {
	got, err := Parse("M0,0 L10,0")
	if err != nil {
		t.Fatal(err)
	}
	want := []Command{
		{Kind: MoveTo, X: 0, Y: 0},
		{Kind: LineTo, X: 10, Y: 0},
	}
	if !Equal(got, want) {
		t.Errorf("Parse = %s, want %s", Format(got), Format(want))
	}
}

func TestParseRelativeResolvesPen(t *testing.T) {
	got := MustParse("m10 10 l5 0 h5 v5 z")
	want := []Command{
		{Kind: MoveTo, X: 10, Y: 10},
		{Kind: LineTo, X: 15, Y: 10},
		{Kind: HLineTo, X: 20, Y: 10},
		{Kind: VLineTo, X: 20, Y: 15},
		{Kind: ClosePath, X: 10, Y: 10},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Kind != want[i].Kind || got[i].X != want[i].X || got[i].Y != want[i].Y {
			t.Errorf("cmd %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseImplicitLineTo(t *testing.T) {
	got := MustParse("M0 0 10 10 20 0")
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[1].Kind != LineTo || got[2].Kind != LineTo {
		t.Errorf("kinds = %v %v, want L L", got[1].Kind, got[2].Kind)
	}
	if got[2].X != 20 || got[2].Y != 0 {
		t.Errorf("last = (%v, %v), want (20, 0)", got[2].X, got[2].Y)
	}
}

func TestParseCurves(t *testing.T) {
	got := MustParse("M0 0 C0 5 10 5 10 0 S20 -5 20 0 Q25 5 30 0 T40 0")
	want := []Kind{MoveTo, CubicTo, SmoothCubicTo, QuadTo, SmoothQuadTo}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, k := range want {
		if got[i].Kind != k {
			t.Errorf("cmd %d kind = %v, want %v", i, got[i].Kind, k)
		}
	}
	if got[1].X1 != 0 || got[1].Y1 != 5 || got[1].X2 != 10 || got[1].Y2 != 5 {
		t.Errorf("cubic controls = %+v", got[1])
	}
	if got[2].X2 != 20 || got[2].Y2 != -5 {
		t.Errorf("smooth cubic control = (%v, %v), want (20, -5)", got[2].X2, got[2].Y2)
	}
}

func TestParsePackedArcFlags(t *testing.T) {
	got := MustParse("M0 0 A5 5 0 1110 10")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	a := got[1]
	if a.Kind != ArcTo || a.RX != 5 || a.RY != 5 || a.LargeArc != 1 || a.Sweep != 1 || a.X != 10 || a.Y != 10 {
		t.Errorf("arc = %+v", a)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"10 10",
		"M0",
		"M0 0 A5 5 0 2 0 1 1",
		"M0 0 Z 5",
	}
	for _, d := range tests {
		_, err := Parse(d)
		var se *SyntaxError
		if !errors.As(err, &se) {
			t.Errorf("Parse(%q) err = %v, want *SyntaxError", d, err)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	d := "M0,0 L10,0 C1,2,3,4,5,6 A5,5,0,1,0,10,10 Z"
	if got := Format(MustParse(d)); got != d {
		t.Errorf("Format = %q, want %q", got, d)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(MustParse("M0 0 A5 5 0 1 0 10 10")); err != nil {
		t.Errorf("valid path: %v", err)
	}
	bad := []Command{{Kind: MoveTo}, {Kind: LineTo, X: math.NaN()}}
	if err := Validate(bad); err == nil {
		t.Error("expected error for NaN")
	}
	flag := []Command{{Kind: MoveTo}, {Kind: ArcTo, RX: 1, RY: 1, LargeArc: 0.5}}
	if err := Validate(flag); err == nil {
		t.Error("expected error for fractional arc flag")
	}
}

func TestBounds(t *testing.T) {
	minX, minY, maxX, maxY, ok := Bounds(MustParse("M-5 0 L10 0 C10 20 0 20 0 0 Z"))
	if !ok {
		t.Fatal("expected bounds")
	}
	if minX != -5 || minY != 0 || maxX != 10 || maxY != 20 {
		t.Errorf("Bounds = (%v, %v, %v, %v), want (-5, 0, 10, 20)", minX, minY, maxX, maxY)
	}
	if _, _, _, _, ok := Bounds(nil); ok {
		t.Error("empty path should have no bounds")
	}
}

func TestBoundsReflectedControlPoints(t *testing.T) {
	// S reflects (0,10) through (0,0) to (0,-10).
	_, minY, _, _, _ := Bounds(MustParse("M-10 0 C-10 10 0 10 0 0 S10 0 10 0"))
	if minY != -10 {
		t.Errorf("cubic minY = %v, want -10", minY)
	}
	// T reflects the quad control (5,10) through (10,0) to (15,-10).
	_, minY, maxX, _, _ := Bounds(MustParse("M0 0 Q5 10 10 0 T20 0"))
	if minY != -10 || maxX != 20 {
		t.Errorf("quad minY, maxX = %v, %v, want -10, 20", minY, maxX)
	}
}

func TestBoundsArc(t *testing.T) {
	// radius 1 cannot span a chord of 10; it scales to 5 around (5,0).
	minX, minY, maxX, maxY, _ := Bounds(MustParse("M0 0 A1 1 0 0 1 10 0"))
	if !near(minX, 0) || !near(minY, -5) || !near(maxX, 10) || !near(maxY, 5) {
		t.Errorf("scaled arc = (%v, %v, %v, %v), want (0, -5, 10, 5)", minX, minY, maxX, maxY)
	}
	// a large arc over a short chord bulges a full diameter away.
	_, minY, _, maxY, _ = Bounds(MustParse("M0 0 A5 5 0 1 1 2 0"))
	if maxY-minY < 9.9 {
		t.Errorf("large arc height = %v, want about 10", maxY-minY)
	}
}
