package vela

import (
	"testing"

	"github.com/phanxgames/vela/morph"
)

// --- Constructor defaults ---

func TestNewGroupDefaults(t *testing.T) {
	n := NewGroup("g")
	if n.ID == 0 {
		t.Error("ID should be non-zero")
	}
	if n.Name != "g" {
		t.Errorf("Name = %q, want %q", n.Name, "g")
	}
	if n.Kind != NodeGroup {
		t.Errorf("Kind = %d, want %d", n.Kind, NodeGroup)
	}
	if n.Transform() != identityTransform {
		t.Errorf("Transform = %v, want identity", n.Transform())
	}
	if n.Alpha != 1 {
		t.Errorf("Alpha = %v, want 1", n.Alpha)
	}
	if !n.Visible || !n.Renderable {
		t.Error("new nodes should be visible and renderable")
	}
	if !n.transformDirty {
		t.Error("transformDirty should be true")
	}
	if _, ok := n.LocalBounds(); ok {
		t.Error("a group has no own bounds")
	}
}

func TestUniqueIDs(t *testing.T) {
	a := NewGroup("a")
	b := NewGroup("b")
	c := NewGroup("c")
	if a.ID == b.ID || b.ID == c.ID || a.ID == c.ID {
		t.Errorf("IDs should be unique: %d, %d, %d", a.ID, b.ID, c.ID)
	}
}

// --- AddChild ---

func TestAddChildBasic(t *testing.T) {
	parent := NewGroup("parent")
	child := NewGroup("child")
	parent.AddChild(child)

	if child.Parent != parent {
		t.Error("child.Parent should be parent")
	}
	if parent.NumChildren() != 1 {
		t.Errorf("NumChildren = %d, want 1", parent.NumChildren())
	}
	if parent.ChildAt(0) != child {
		t.Error("ChildAt(0) should be child")
	}
	if child.Depth() != 2 {
		t.Errorf("Depth = %d, want 2", child.Depth())
	}
}

func TestAddChildReparent(t *testing.T) {
	p1 := NewGroup("p1")
	p2 := NewGroup("p2")
	child := NewGroup("child")

	p1.AddChild(child)
	p2.AddChild(child)
	if p1.NumChildren() != 0 {
		t.Error("p1 should have 0 children after reparent")
	}
	if p2.NumChildren() != 1 || child.Parent != p2 {
		t.Error("child should belong to p2")
	}
}

func TestAddChildPanics(t *testing.T) {
	parent := NewGroup("parent")
	child := NewGroup("child")
	grandchild := NewGroup("grandchild")
	parent.AddChild(child)
	child.AddChild(grandchild)

	tests := []struct {
		name string
		fn   func()
	}{
		{"cycle", func() { grandchild.AddChild(parent) }},
		{"self", func() { parent.AddChild(parent) }},
		{"nil", func() { parent.AddChild(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Error("expected panic, got none")
				}
			}()
			tt.fn()
		})
	}
}

// --- RemoveChild ---

func TestRemoveChild(t *testing.T) {
	parent := NewGroup("parent")
	a := NewGroup("a")
	b := NewGroup("b")
	c := NewGroup("c")
	parent.AddChild(a)
	parent.AddChild(b)
	parent.AddChild(c)
	parent.RemoveChild(b)

	if parent.NumChildren() != 2 || parent.ChildAt(0) != a || parent.ChildAt(1) != c {
		t.Error("remaining children should be [a, c]")
	}
	if b.Parent != nil {
		t.Error("b.Parent should be nil")
	}
}

func TestRemoveChildWrongParentPanic(t *testing.T) {
	p1 := NewGroup("p1")
	p2 := NewGroup("p2")
	child := NewGroup("child")
	p1.AddChild(child)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for wrong parent, got none")
		}
	}()
	p2.RemoveChild(child)
}

func TestRemoveFromParentNoOp(t *testing.T) {
	n := NewGroup("orphan")
	n.RemoveFromParent()
	if n.Parent != nil {
		t.Error("Parent should remain nil")
	}
}

// --- Dispose ---

func TestDispose(t *testing.T) {
	root := NewGroup("root")
	parent := NewGroup("parent")
	child := NewGroup("child")
	root.AddChild(parent)
	parent.AddChild(child)

	parent.Dispose()

	if !parent.IsDisposed() || !child.IsDisposed() {
		t.Error("parent and child should be disposed")
	}
	if root.IsDisposed() {
		t.Error("root should not be disposed")
	}
	if root.NumChildren() != 0 {
		t.Error("root should have 0 children after dispose")
	}
	parent.Dispose()
}

func TestDisposeBumpsUseGeneration(t *testing.T) {
	n := newNode(NodeUse, nil, nil)
	n.use = &useRef{URL: "lib.svg", Fragment: "a"}
	n.Dispose()
	if n.use.generation != 1 {
		t.Errorf("generation = %d, want 1", n.use.generation)
	}
}

// --- Dirty propagation ---

func TestDirtyPropagationOnAddChild(t *testing.T) {
	parent := NewGroup("parent")
	child := NewGroup("child")
	grandchild := NewGroup("grandchild")
	child.AddChild(grandchild)

	child.transformDirty = false
	grandchild.transformDirty = false
	parent.AddChild(child)

	if !child.transformDirty || !grandchild.transformDirty {
		t.Error("moved subtree should be dirty after AddChild")
	}
}

func TestDirtyPropagationOnRemoveChild(t *testing.T) {
	parent := NewGroup("parent")
	child := NewGroup("child")
	parent.AddChild(child)

	child.transformDirty = false
	parent.RemoveChild(child)
	if !child.transformDirty {
		t.Error("child should be dirty after RemoveChild")
	}
}

// --- Geometry ---

func TestSetPathUpdatesBounds(t *testing.T) {
	s := buildScene(t, `<svg><path id="p" d="M0 0 L10 10"/></svg>`, Options{})
	p := s.NodeByID("p")
	p.SetPath(morph.MustParse("M-5 -5 L20 30"))

	b, ok := p.LocalBounds()
	if !ok {
		t.Fatal("shape should have bounds")
	}
	if b != (Rect{-5, -5, 25, 35}) {
		t.Errorf("LocalBounds = %v, want {-5 -5 25 35}", b)
	}
}

func TestTextBoundsFollowAnchor(t *testing.T) {
	td := TextData{Content: "abcd", X: 100, Y: 50, FontSize: 10}
	start := textBounds(td)
	td.Anchor = TextAnchorMiddle
	middle := textBounds(td)
	td.Anchor = TextAnchorEnd
	end := textBounds(td)

	assertNear(t, "start.X", start.X, 100)
	assertNear(t, "middle.X", middle.X, 88)
	assertNear(t, "end.X", end.X, 76)
	assertNear(t, "start.Y", start.Y, 40)
}
