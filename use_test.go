package vela

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/phanxgames/vela/vdoc"
)

// gatedLoader blocks every load until gate is closed.
type gatedLoader struct {
	gate chan struct{}
	docs vdoc.MapLoader
}

func newGatedLoader(docs vdoc.MapLoader) *gatedLoader {
	return &gatedLoader{gate: make(chan struct{}), docs: docs}
}

func (l *gatedLoader) Load(ctx context.Context, url string) (*vdoc.Document, error) {
	select {
	case <-l.gate:
		return l.docs.Load(ctx, url)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// waitForLoads polls s until no external load is pending.
func waitForLoads(t *testing.T, s *Scene) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.PendingLoads() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("%d loads still pending", s.PendingLoads())
		}
		if err := s.Update(); err != nil {
			t.Fatalf("Update: %v", err)
		}
		time.Sleep(time.Millisecond)
	}
}

const libraryDoc = `<svg>
	<g id="star" transform="translate(100 100)" fill="yellow">
		<path d="M0 0 L10 0 L5 8 Z"/>
	</g>
</svg>`

const externalDoc = `<svg viewBox="0 0 100 100">
	<g fill="red">
		<use id="u" href="lib.svg#star" x="5" y="6"/>
	</g>
</svg>`

func TestSameDocumentUse(t *testing.T) {
	s := buildScene(t, `<svg>
		<defs><rect id="r" width="10" height="10" transform="translate(100 0)"/></defs>
		<use id="u" href="#r" x="5" y="6"/>
	</svg>`, Options{})

	u := s.NodeByID("u")
	if !u.Resolved() || u.NumChildren() != 1 {
		t.Fatalf("Resolved = %v, children = %d; want true, 1", u.Resolved(), u.NumChildren())
	}
	if doc, frag := u.Reference(); doc != "" || frag != "r" {
		t.Errorf("Reference = (%q, %q), want (\"\", \"r\")", doc, frag)
	}
	assertMatrix(t, "use transform", u.Transform(), translateAffine(5, 6))
	assertMatrix(t, "target transform", u.ChildAt(0).Transform(), identityTransform)
}

func TestUseMissingTargetStaysEmpty(t *testing.T) {
	var buf bytes.Buffer
	s := buildScene(t, `<svg><use id="u" href="#nope"/><use id="v"/></svg>`, Options{Logger: bufferLogger(&buf)})
	for _, id := range []string{"u", "v"} {
		n := s.NodeByID(id)
		if n.Resolved() || n.NumChildren() != 0 {
			t.Errorf("%s: Resolved = %v, children = %d", id, n.Resolved(), n.NumChildren())
		}
	}
	if !strings.Contains(buf.String(), "nope") {
		t.Errorf("log = %q, want the missing target named", buf.String())
	}
}

func TestUseReferenceCycle(t *testing.T) {
	s := buildScene(t, `<svg><g id="loop"><use href="#loop"/></g></svg>`, Options{})
	use := s.NodeByID("loop").ChildAt(0)
	if use.NumChildren() != 0 {
		t.Errorf("cyclic use built %d children, want 0", use.NumChildren())
	}
}

func TestExternalUseResolves(t *testing.T) {
	lib := decodeDoc(t, libraryDoc, "scenes/lib.svg")
	s, err := Build(decodeDoc(t, externalDoc, "scenes/main.svg"), Options{
		Loader: vdoc.MapLoader{"scenes/lib.svg": lib},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Destroy()

	u := s.NodeByID("u")
	if u.NumChildren() != 0 {
		t.Fatal("external use should start empty")
	}
	if doc, frag := u.Reference(); doc != "scenes/lib.svg" || frag != "star" {
		t.Errorf("Reference = (%q, %q)", doc, frag)
	}

	waitForLoads(t, s)
	if !u.Resolved() || u.NumChildren() != 1 {
		t.Fatalf("Resolved = %v, children = %d; want true, 1", u.Resolved(), u.NumChildren())
	}
	star := u.ChildAt(0)
	assertMatrix(t, "fragment transform", star.Transform(), identityTransform)

	r := &recordingRasterizer{}
	mustDraw(t, s, r)
	cmds := r.submitted(ScreenSurface)
	if len(cmds) != 1 {
		t.Fatalf("commands = %d, want 1", len(cmds))
	}
	if cmds[0].Paint.Color != (Color{1, 1, 0, 1}) {
		t.Errorf("fill = %v, want yellow from the fragment", cmds[0].Paint.Color)
	}
	x, y := transformPoint(cmds[0].Transform, 0, 0)
	if x != 5 || y != 6 {
		t.Errorf("fragment origin = (%v, %v), want (5, 6)", x, y)
	}
}

func TestExternalUseInheritsReferencingPaint(t *testing.T) {
	lib := decodeDoc(t, `<svg><path id="p" d="M0 0 L1 1" stroke="blue"/></svg>`, "lib.svg")
	s, err := Build(decodeDoc(t, `<svg><g fill="red"><use id="u" href="lib.svg#p"/></g></svg>`, "main.svg"), Options{
		Loader: vdoc.MapLoader{"lib.svg": lib},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Destroy()
	waitForLoads(t, s)

	style := s.NodeByID("u").ChildAt(0).Style()
	if style.Fill.Color != (Color{1, 0, 0, 1}) || style.Stroke.Color != (Color{0, 0, 1, 1}) {
		t.Errorf("paint = fill %v stroke %v; want red fill inherited, blue stroke own", style.Fill.Color, style.Stroke.Color)
	}
}

func TestExternalUseMissingFragment(t *testing.T) {
	var buf bytes.Buffer
	lib := decodeDoc(t, `<svg/>`, "scenes/lib.svg")
	s, err := Build(decodeDoc(t, externalDoc, "scenes/main.svg"), Options{
		Loader: vdoc.MapLoader{"scenes/lib.svg": lib},
		Logger: bufferLogger(&buf),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Destroy()
	waitForLoads(t, s)

	u := s.NodeByID("u")
	if u.Resolved() || u.NumChildren() != 0 {
		t.Errorf("Resolved = %v, children = %d; want false, 0", u.Resolved(), u.NumChildren())
	}
	if !strings.Contains(buf.String(), "external reference unresolved") {
		t.Errorf("log = %q, want a resolution warning", buf.String())
	}
	mustDraw(t, s, &recordingRasterizer{})
}

func TestExternalUseWithoutLoader(t *testing.T) {
	s := buildScene(t, externalDoc, Options{})
	if got := s.PendingLoads(); got != 0 {
		t.Errorf("PendingLoads = %d, want 0", got)
	}
}

func TestExternalLoadDiscardedAfterDestroy(t *testing.T) {
	loader := newGatedLoader(vdoc.MapLoader{"scenes/lib.svg": decodeDoc(t, libraryDoc, "scenes/lib.svg")})
	s, err := Build(decodeDoc(t, externalDoc, "scenes/main.svg"), Options{Loader: loader})
	if err != nil {
		t.Fatal(err)
	}
	u := s.NodeByID("u")
	if s.PendingLoads() != 1 {
		t.Fatalf("PendingLoads = %d, want 1", s.PendingLoads())
	}

	s.Destroy()
	close(loader.gate)

	// late completions must not touch the destroyed tree
	time.Sleep(10 * time.Millisecond)
	if err := s.Update(); err != ErrDestroyed {
		t.Errorf("Update = %v, want ErrDestroyed", err)
	}
	if u.NumChildren() != 0 || !u.IsDisposed() {
		t.Errorf("children = %d, disposed = %v; want 0, true", u.NumChildren(), u.IsDisposed())
	}
}

func TestExternalLoadDiscardedOnGenerationChange(t *testing.T) {
	loader := newGatedLoader(vdoc.MapLoader{"scenes/lib.svg": decodeDoc(t, libraryDoc, "scenes/lib.svg")})
	s, err := Build(decodeDoc(t, externalDoc, "scenes/main.svg"), Options{Loader: loader})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Destroy()

	u := s.NodeByID("u")
	u.use.generation++
	close(loader.gate)
	waitForLoads(t, s)

	if u.Resolved() || u.NumChildren() != 0 {
		t.Errorf("Resolved = %v, children = %d; want a stale load discarded", u.Resolved(), u.NumChildren())
	}
}

func TestShellDirtinessPropagatesToUseNode(t *testing.T) {
	lib := decodeDoc(t, libraryDoc, "scenes/lib.svg")
	s, err := Build(decodeDoc(t, externalDoc, "scenes/main.svg"), Options{
		Loader: vdoc.MapLoader{"scenes/lib.svg": lib},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Destroy()
	waitForLoads(t, s)
	r := &recordingRasterizer{}
	mustDraw(t, s, r)
	mustDraw(t, s, r)
	if got := s.Stats().TransformsRecomputed; got != 0 {
		t.Fatalf("steady state recomputed %d, want 0", got)
	}

	shell := s.shells[0].shell
	path := s.NodeByID("u").ChildAt(0).ChildAt(0)
	if path.owner != shell {
		t.Fatal("fragment nodes should belong to the shell scene")
	}
	path.SetAlpha(0.5)
	if !shell.dirty {
		t.Fatal("mutating a fragment node should flag its shell")
	}
	mustDraw(t, s, r)
	// use node, star group and path
	if got := s.Stats().TransformsRecomputed; got != 3 {
		t.Errorf("recomputed %d, want the whole use subtree (3)", got)
	}
	if shell.dirty {
		t.Error("shell dirtiness should be consumed by the poll")
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"scenes/main.svg", "lib.svg", "scenes/lib.svg"},
		{"scenes/main.svg", "../lib.svg", "lib.svg"},
		{"main.svg", "lib.svg", "lib.svg"},
		{"main.svg", "/abs/lib.svg", "/abs/lib.svg"},
		{"", "lib.svg", "lib.svg"},
		{"http://example.com/a/main.svg", "lib.svg", "http://example.com/a/lib.svg"},
		{"scenes/main.svg", "https://cdn.example.com/x.svg", "https://cdn.example.com/x.svg"},
	}
	for _, tt := range tests {
		if got := resolveURL(tt.base, tt.ref); got != tt.want {
			t.Errorf("resolveURL(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
		}
	}
}
