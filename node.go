package vela

import (
	"github.com/phanxgames/vela/morph"
	"github.com/phanxgames/vela/vdoc"
)

// nodeIDCounter is a plain counter. Nodes are only created on the update
// goroutine.
var nodeIDCounter uint32

func nextNodeID() uint32 {
	nodeIDCounter++
	return nodeIDCounter
}

// TextAnchor aligns a text run relative to its position.
type TextAnchor uint8

const (
	TextAnchorStart TextAnchor = iota
	TextAnchorMiddle
	TextAnchorEnd
)

// ImageData is the payload of a NodeImage. Decoding the referenced image is
// the rasterizer's job.
type ImageData struct {
	Href string
	Rect Rect
}

// TextData is the payload of a NodeText. Shaping is the rasterizer's job.
type TextData struct {
	Content    string
	X, Y       float64
	FontSize   float64
	FontFamily string
	Anchor     TextAnchor
}

// Node is one element of the render tree. A single flat struct is used for
// every kind; Kind selects which payload fields are meaningful.
type Node struct {
	// Identity
	ID   uint32
	Name string // source element id, if any
	Kind NodeKind

	// Hierarchy
	Parent   *Node
	children []*Node

	// Transform
	local          [6]float64
	worldTransform [6]float64
	worldAlpha     float64
	transformDirty bool

	// Visibility
	Alpha      float64
	Visible    bool
	Renderable bool

	// owner is the scene whose paint and mask arenas this node's ids index.
	// Nodes resolved from an external document belong to a shell scene.
	owner   *Scene
	element *vdoc.Element

	// Shape fields (NodeShape)
	path   []morph.Command
	bounds Rect
	hasBox bool

	// Paint
	paint  PaintID
	style  Paint // resolved paint, refreshed by applyPaint
	fill   PaintSource
	stroke PaintSource

	mask MaskID

	image ImageData
	text  TextData

	use  *useRef
	anim *animatedPath

	disposed bool
}

func newNode(kind NodeKind, owner *Scene, el *vdoc.Element) *Node {
	n := &Node{
		ID:             nextNodeID(),
		Kind:           kind,
		local:          identityTransform,
		Alpha:          1,
		Visible:        true,
		Renderable:     true,
		transformDirty: true,
		owner:          owner,
		element:        el,
	}
	if el != nil {
		n.Name = el.ID()
	}
	return n
}

// NewGroup creates an empty group node owned by no scene. It is mainly useful
// for embedders composing their own trees under a scene's root.
func NewGroup(name string) *Node {
	n := newNode(NodeGroup, nil, nil)
	n.Name = name
	return n
}

// Path returns the node's current geometry. The slice MUST NOT be mutated.
func (n *Node) Path() []morph.Command {
	return n.path
}

// SetPath replaces the node's geometry and re-applies its paint so paint
// server matrices follow the new bounds.
func (n *Node) SetPath(cmds []morph.Command) {
	n.path = cmds
	n.applyPaint()
}

// LocalBounds returns the node's own bounds in local space, excluding
// children. ok is false for kinds without geometry.
func (n *Node) LocalBounds() (Rect, bool) {
	switch n.Kind {
	case NodeShape:
		return n.bounds, n.hasBox
	case NodeImage:
		return n.image.Rect, !n.image.Rect.IsEmpty()
	case NodeText:
		r := textBounds(n.text)
		return r, !r.IsEmpty()
	}
	return Rect{}, false
}

// Image returns the image payload of a NodeImage.
func (n *Node) Image() ImageData { return n.image }

// Text returns the text payload of a NodeText.
func (n *Node) Text() TextData { return n.text }

// PaintID returns the node's paint record in its owning scene.
func (n *Node) PaintID() PaintID { return n.paint }

// MaskID returns the node's mask server, or 0 when unmasked.
func (n *Node) MaskID() MaskID { return n.mask }

// Style returns the node's resolved paint.
func (n *Node) Style() Paint { return n.style }

// Animated reports whether the node's geometry is driven by a clip.
func (n *Node) Animated() bool { return n.anim != nil }

// Depth returns the number of nodes from the root down to n, inclusive.
func (n *Node) Depth() int {
	d := 0
	for p := n; p != nil; p = p.Parent {
		d++
	}
	return d
}

// textBounds approximates a text run's extent from its font size.
func textBounds(t TextData) Rect {
	w := float64(len([]rune(t.Content))) * t.FontSize * 0.6
	x := t.X
	switch t.Anchor {
	case TextAnchorMiddle:
		x -= w / 2
	case TextAnchorEnd:
		x -= w
	}
	return Rect{X: x, Y: t.Y - t.FontSize, Width: w, Height: t.FontSize * 1.2}
}

// --- Tree manipulation ---

// AddChild appends child to this node's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil or child is an ancestor of this node (cycle).
func (n *Node) AddChild(child *Node) {
	if child == nil {
		panic("vela: cannot add nil child")
	}
	if isAncestor(child, n) {
		panic("vela: adding child would create a cycle")
	}
	if child.Parent != nil {
		child.Parent.removeChildByPtr(child)
	}
	child.Parent = n
	n.children = append(n.children, child)
	markSubtreeDirty(child)
}

// RemoveChild detaches child from this node.
// Panics if child.Parent != n.
func (n *Node) RemoveChild(child *Node) {
	if child.Parent != n {
		panic("vela: child's parent is not this node")
	}
	n.removeChildByPtr(child)
	child.Parent = nil
	markSubtreeDirty(child)
}

// RemoveFromParent detaches this node from its parent.
// No-op if this node has no parent.
func (n *Node) RemoveFromParent() {
	if n.Parent == nil {
		return
	}
	n.Parent.RemoveChild(n)
}

// Children returns the child list. The returned slice MUST NOT be mutated by the caller.
func (n *Node) Children() []*Node {
	return n.children
}

// NumChildren returns the number of children.
func (n *Node) NumChildren() int {
	return len(n.children)
}

// ChildAt returns the child at the given index.
func (n *Node) ChildAt(index int) *Node {
	return n.children[index]
}

// --- Disposal ---

// Dispose removes this node from its parent, marks it as disposed,
// and recursively disposes all descendants.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	n.RemoveFromParent()
	n.dispose()
}

func (n *Node) dispose() {
	n.disposed = true
	for _, child := range n.children {
		child.Parent = nil
		child.dispose()
	}
	if n.use != nil {
		n.use.generation++
	}
	n.children = nil
	n.Parent = nil
	n.path = nil
	n.anim = nil
	n.element = nil
}

// IsDisposed returns true if this node has been disposed.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// --- Helpers ---

// isAncestor reports whether candidate is an ancestor of node.
func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from n.children without clearing child.Parent.
func (n *Node) removeChildByPtr(child *Node) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}

// markSubtreeDirty sets transformDirty on node and all its descendants.
func markSubtreeDirty(node *Node) {
	node.transformDirty = true
	for _, child := range node.children {
		markSubtreeDirty(child)
	}
}

// walk calls fn for n and every descendant in painter order.
func walk(n *Node, fn func(*Node)) {
	fn(n)
	for _, child := range n.children {
		walk(child, fn)
	}
}
