package vela

import (
	"errors"
	"testing"
)

func TestDrawEmitsFillThenStroke(t *testing.T) {
	s := buildScene(t, `<svg viewBox="0 0 10 10">
		<rect width="4" height="4" fill="red" stroke="blue" stroke-width="2" fill-opacity="0.5"/>
	</svg>`, Options{})
	r := &recordingRasterizer{}
	mustDraw(t, s, r)

	cmds := r.submitted(ScreenSurface)
	if len(cmds) != 2 {
		t.Fatalf("commands = %d, want 2", len(cmds))
	}
	if cmds[0].Type != CommandFillPath || cmds[1].Type != CommandStrokePath {
		t.Errorf("types = %v, %v; want fill, stroke", cmds[0].Type, cmds[1].Type)
	}
	if cmds[0].Paint.Color != (Color{1, 0, 0, 1}) {
		t.Errorf("fill color = %v, want red", cmds[0].Paint.Color)
	}
	if cmds[0].Alpha != 0.5 {
		t.Errorf("fill alpha = %v, want 0.5", cmds[0].Alpha)
	}
	if cmds[1].Paint.Color != (Color{0, 0, 1, 1}) {
		t.Errorf("stroke color = %v, want blue", cmds[1].Paint.Color)
	}
	if cmds[1].Stroke.Width != 2 {
		t.Errorf("stroke width = %v, want 2", cmds[1].Stroke.Width)
	}
}

func TestDrawPainterOrder(t *testing.T) {
	s := buildScene(t, `<svg>
		<rect id="a" width="1" height="1"/>
		<g><rect id="b" width="1" height="1"/></g>
		<rect id="c" width="1" height="1"/>
	</svg>`, Options{})
	r := &recordingRasterizer{}
	mustDraw(t, s, r)

	want := []uint32{s.NodeByID("a").ID, s.NodeByID("b").ID, s.NodeByID("c").ID}
	cmds := r.submitted(ScreenSurface)
	if len(cmds) != len(want) {
		t.Fatalf("commands = %d, want %d", len(cmds), len(want))
	}
	for i, c := range cmds {
		if c.NodeID != want[i] {
			t.Errorf("cmds[%d].NodeID = %d, want %d", i, c.NodeID, want[i])
		}
	}
}

func TestDrawSkipsHiddenAndUnpainted(t *testing.T) {
	s := buildScene(t, `<svg>
		<rect width="1" height="1" display="none"/>
		<g visibility="hidden"><rect width="1" height="1" visibility="visible"/></g>
		<rect width="1" height="1" fill="none"/>
		<rect width="1" height="1" fill="rgba(0,0,0,0)"/>
	</svg>`, Options{})
	r := &recordingRasterizer{}
	mustDraw(t, s, r)

	// the visible child of a hidden group still draws
	if got := len(r.submitted(ScreenSurface)); got != 1 {
		t.Errorf("commands = %d, want 1", got)
	}
}

func TestDrawAlphaMultipliesDownTree(t *testing.T) {
	s := buildScene(t, `<svg><g opacity="0.5"><rect width="1" height="1" opacity="0.5"/></g></svg>`, Options{})
	r := &recordingRasterizer{}
	mustDraw(t, s, r)
	cmds := r.submitted(ScreenSurface)
	if len(cmds) != 1 || cmds[0].Alpha != 0.25 {
		t.Errorf("commands = %+v, want one with alpha 0.25", cmds)
	}
}

func TestDrawImageAndText(t *testing.T) {
	s := buildScene(t, `<svg>
		<image href="cat.png" x="1" y="2" width="3" height="4"/>
		<text x="5" y="6" font-size="10" text-anchor="middle" fill="green">hello</text>
	</svg>`, Options{})
	r := &recordingRasterizer{}
	mustDraw(t, s, r)
	cmds := r.submitted(ScreenSurface)
	if len(cmds) != 2 {
		t.Fatalf("commands = %d, want 2", len(cmds))
	}
	if cmds[0].Type != CommandImage || cmds[0].Image.Href != "cat.png" || cmds[0].Image.Rect != (Rect{1, 2, 3, 4}) {
		t.Errorf("image command = %+v", cmds[0])
	}
	if cmds[1].Type != CommandText || cmds[1].Text.Content != "hello" || cmds[1].Text.Anchor != TextAnchorMiddle {
		t.Errorf("text command = %+v", cmds[1])
	}
	if cmds[1].Text.FontSize != 10 {
		t.Errorf("FontSize = %v, want 10", cmds[1].Text.FontSize)
	}
}

func TestDrawInvisibleRootSubmitsNothing(t *testing.T) {
	s := buildScene(t, `<svg><rect width="1" height="1"/></svg>`, Options{})
	s.Root().Visible = false
	r := &recordingRasterizer{}
	mustDraw(t, s, r)
	if got := r.count("submit"); got != 0 {
		t.Errorf("submits = %d, want 0", got)
	}
}

// --- Masks ---

const maskedDoc = `<svg viewBox="0 0 100 100">
	<defs>
		<mask id="m"><rect x="10" y="10" width="30" height="20" fill="white"/></mask>
	</defs>
	<rect id="a" mask="url(#m)" width="100" height="100"/>
	<rect id="b" mask="url(#m)" x="50" width="50" height="50"/>
</svg>`

func TestMaskServerCachedAcrossShapes(t *testing.T) {
	s := buildScene(t, maskedDoc, Options{})
	if got := s.NumMasks(); got != 1 {
		t.Fatalf("NumMasks = %d, want 1", got)
	}
	a, b := s.NodeByID("a"), s.NodeByID("b")
	if a.MaskID() == 0 || a.MaskID() != b.MaskID() {
		t.Errorf("MaskID a = %d, b = %d; want equal and non-zero", a.MaskID(), b.MaskID())
	}
	ms := s.Mask(a.MaskID())
	if ms.Bounds != (Rect{10, 10, 30, 20}) {
		t.Errorf("mask Bounds = %v, want {10 10 30 20}", ms.Bounds)
	}
	if ms.Root.Kind != NodeMask || ms.Root.Parent != nil {
		t.Error("mask content should hang under its own detached root")
	}
}

func TestMaskRenderedBeforeMainTree(t *testing.T) {
	s := buildScene(t, maskedDoc, Options{})
	r := &recordingRasterizer{}
	mustDraw(t, s, r)

	var ops []string
	for _, c := range r.calls {
		ops = append(ops, c.op)
	}
	if len(r.calls) != 3 {
		t.Fatalf("calls = %v, want alloc, submit, submit", ops)
	}
	if c := r.calls[0]; c.op != "alloc" || c.target == ScreenSurface || c.w != 32 || c.h != 32 {
		t.Errorf("calls[0] = %+v, want a 32x32 allocation", c)
	}
	maskSurface := r.calls[0].target
	if c := r.calls[1]; c.op != "submit" || c.target != maskSurface {
		t.Errorf("calls[1] = %s to %d, want submit to mask surface %d", c.op, c.target, maskSurface)
	}
	if c := r.calls[2]; c.op != "submit" || c.target != ScreenSurface {
		t.Errorf("calls[2] = %s to %d, want submit to screen", c.op, c.target)
	}

	// mask content is drawn relative to its bounds
	content := r.calls[1].cmds
	if len(content) != 1 {
		t.Fatalf("mask commands = %d, want 1", len(content))
	}
	x, y := transformPoint(content[0].Transform, 10, 10)
	if x != 0 || y != 0 {
		t.Errorf("mask content origin = (%v, %v), want (0, 0)", x, y)
	}

	main := r.calls[2].cmds
	if len(main) != 2 {
		t.Fatalf("main commands = %d, want 2", len(main))
	}
	for _, c := range main {
		if len(c.Masks) != 1 || c.Masks[0].Surface != maskSurface {
			t.Fatalf("command masks = %+v, want one on surface %d", c.Masks, maskSurface)
		}
	}
	want := [6]float64{1, 0, 0, 1, 10, 10}
	if got := main[0].Masks[0].Transform; got != want {
		t.Errorf("mask transform = %v, want %v", got, want)
	}
}

func TestMaskSurfaceReusedAcrossFrames(t *testing.T) {
	s := buildScene(t, maskedDoc, Options{})
	r := &recordingRasterizer{}
	mustDraw(t, s, r)
	mustDraw(t, s, r)
	if got := r.count("alloc"); got != 1 {
		t.Errorf("allocations = %d, want 1", got)
	}
	if got := r.count("submit"); got != 4 {
		t.Errorf("submits = %d, want 4", got)
	}
	if got := s.Stats().MasksRendered; got != 1 {
		t.Errorf("MasksRendered = %d, want 1", got)
	}
}

func TestNestedMaskRenderedFirst(t *testing.T) {
	s := buildScene(t, `<svg viewBox="0 0 100 100">
		<mask id="inner"><rect width="8" height="8" fill="white"/></mask>
		<mask id="outer"><rect mask="url(#inner)" width="20" height="20" fill="white"/></mask>
		<rect mask="url(#outer)" width="100" height="100"/>
	</svg>`, Options{})
	r := &recordingRasterizer{}
	mustDraw(t, s, r)

	var targets []SurfaceID
	for _, c := range r.calls {
		if c.op == "submit" {
			targets = append(targets, c.target)
		}
	}
	if len(targets) != 3 || targets[2] != ScreenSurface {
		t.Fatalf("submit targets = %v, want two masks then screen", targets)
	}
	inner := s.Mask(s.Mask(s.Root().ChildAt(0).MaskID()).Root.ChildAt(0).MaskID())
	if targets[0] != inner.Surface {
		t.Errorf("first submit = %d, want inner mask surface %d", targets[0], inner.Surface)
	}
}

func TestEmptyMaskHidesContent(t *testing.T) {
	s := buildScene(t, `<svg viewBox="0 0 10 10">
		<mask id="m"/>
		<rect mask="url(#m)" width="10" height="10"/>
	</svg>`, Options{})
	r := &recordingRasterizer{}
	mustDraw(t, s, r)
	if got := len(r.submitted(ScreenSurface)); got != 0 {
		t.Errorf("commands = %d, want 0", got)
	}
	if got := r.count("alloc"); got != 0 {
		t.Errorf("allocations = %d, want 0", got)
	}
}

func TestMalformedMaskReferenceLeavesNodeUnmasked(t *testing.T) {
	s := buildScene(t, `<svg>
		<rect id="a" mask="url(#missing)" width="1" height="1"/>
		<rect id="b" mask="bogus" width="1" height="1"/>
	</svg>`, Options{})
	for _, id := range []string{"a", "b"} {
		if got := s.NodeByID(id).MaskID(); got != 0 {
			t.Errorf("%s MaskID = %d, want 0", id, got)
		}
	}
}

// --- Culling ---

func TestCullingRevertedAfterDraw(t *testing.T) {
	s := buildScene(t, `<svg viewBox="0 0 100 100">
		<rect id="in" width="10" height="10"/>
		<rect id="out" x="50" y="50" width="10" height="10"/>
	</svg>`, Options{Viewport: Rect{0, 0, 20, 20}})
	r := &recordingRasterizer{}
	mustDraw(t, s, r)

	if got := s.Stats().Culled; got != 1 {
		t.Errorf("Culled = %d, want 1", got)
	}
	cmds := r.submitted(ScreenSurface)
	if len(cmds) != 1 || cmds[0].NodeID != s.NodeByID("in").ID {
		t.Errorf("commands = %+v, want only the node inside the viewport", cmds)
	}
	if !s.NodeByID("out").Renderable {
		t.Error("culled node should be renderable again after Draw")
	}
}

func TestCullingRevertedWhenSubmitFails(t *testing.T) {
	s := buildScene(t, `<svg viewBox="0 0 100 100"><rect id="out" x="50" y="50" width="10" height="10"/></svg>`,
		Options{Viewport: Rect{0, 0, 20, 20}})
	boom := errors.New("boom")
	r := &recordingRasterizer{submitErr: boom}
	if err := s.Draw(r); !errors.Is(err, boom) {
		t.Fatalf("Draw = %v, want %v", err, boom)
	}
	if !s.NodeByID("out").Renderable {
		t.Error("culled node should be renderable again after a failed Draw")
	}
}

func TestCullingLeavesHiddenNodesHidden(t *testing.T) {
	s := buildScene(t, `<svg viewBox="0 0 100 100"><rect id="h" x="50" width="1" height="1" visibility="hidden"/></svg>`,
		Options{Viewport: Rect{0, 0, 20, 20}})
	mustDraw(t, s, &recordingRasterizer{})
	if s.NodeByID("h").Renderable {
		t.Error("uncull should not make a hidden node renderable")
	}
}

func TestEmptyViewportDisablesCulling(t *testing.T) {
	s := buildScene(t, `<svg viewBox="0 0 100 100"><rect x="5000" width="1" height="1"/></svg>`, Options{})
	r := &recordingRasterizer{}
	mustDraw(t, s, r)
	if got := len(r.submitted(ScreenSurface)); got != 1 {
		t.Errorf("commands = %d, want 1", got)
	}
}
