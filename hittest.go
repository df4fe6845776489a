package vela

// HitTest returns the topmost renderable node whose bounds contain the
// world-space point (x, y), or nil. World transforms are those of the last
// Draw.
func (s *Scene) HitTest(x, y float64) *Node {
	if s.root == nil || s.state == StateDestroyed {
		return nil
	}
	s.hitBuf = collectHittable(s.root, s.hitBuf[:0])
	for i := len(s.hitBuf) - 1; i >= 0; i-- {
		n := s.hitBuf[i]
		b, ok := n.LocalBounds()
		if !ok {
			continue
		}
		if b.Contains(n.WorldToLocal(x, y)) {
			return n
		}
	}
	return nil
}

// collectHittable appends the drawable nodes under n in painter order.
func collectHittable(n *Node, buf []*Node) []*Node {
	if !n.Visible {
		return buf
	}
	if n.Renderable {
		switch n.Kind {
		case NodeShape, NodeImage, NodeText:
			buf = append(buf, n)
		}
	}
	for _, child := range n.children {
		buf = collectHittable(child, buf)
	}
	return buf
}
