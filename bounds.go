package vela

import "github.com/phanxgames/vela/morph"

// geometryBounds is the control-polygon bounding box of a path.
func geometryBounds(path []morph.Command) (Rect, bool) {
	minX, minY, maxX, maxY, ok := morph.Bounds(path)
	if !ok {
		return Rect{}, false
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// pathBounds is a shape's local bounds including half its stroke width.
func pathBounds(n *Node) (Rect, bool) {
	r, ok := geometryBounds(n.path)
	if !ok {
		return Rect{}, false
	}
	if n.style.Stroke.Kind != PaintNone && n.style.StrokeWidth > 0 {
		hw := n.style.StrokeWidth / 2
		r = Rect{X: r.X - hw, Y: r.Y - hw, Width: r.Width + 2*hw, Height: r.Height + 2*hw}
	}
	return r, true
}

// subtreeBounds computes the bounding rectangle of a node and all its
// descendants in the node's local coordinate space.
func subtreeBounds(n *Node) (Rect, bool) {
	var r Rect
	first := true
	subtreeBoundsWalk(n, identityTransform, &r, &first)
	return r, !first
}

func subtreeBoundsWalk(n *Node, transform [6]float64, bounds *Rect, first *bool) {
	if !n.Visible {
		return
	}
	if local, ok := n.LocalBounds(); ok {
		aabb := transformRect(transform, local)
		if *first {
			*bounds = aabb
			*first = false
		} else {
			*bounds = rectUnion(*bounds, aabb)
		}
	}
	for _, child := range n.children {
		subtreeBoundsWalk(child, multiplyAffine(transform, child.local), bounds, first)
	}
}

// worldBounds returns the node's own bounds in world space.
func worldBounds(n *Node) (Rect, bool) {
	local, ok := n.LocalBounds()
	if !ok {
		return Rect{}, false
	}
	return transformRect(n.worldTransform, local), true
}

// shouldCull reports whether n lies entirely outside viewport. Groups and
// nodes without measurable bounds are never culled.
func shouldCull(n *Node, viewport Rect) bool {
	switch n.Kind {
	case NodeGroup, NodeUse, NodeMask:
		return false
	}
	aabb, ok := worldBounds(n)
	if !ok {
		return false
	}
	return !aabb.Intersects(viewport)
}
