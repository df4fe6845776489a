package vela

import (
	"fmt"
	"math"
	"strings"

	"github.com/phanxgames/vela/vdoc"
)

// identityTransform is the identity affine matrix.
var identityTransform = [6]float64{1, 0, 0, 1, 0, 0}

// matrixEpsilon is the per-component tolerance below which two world
// matrices are treated as unchanged.
const matrixEpsilon = 1e-9

// multiplyAffine multiplies two 2D affine matrices: result = parent * child.
//
//	Matrix layout: [a, b, c, d, tx, ty]
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
func multiplyAffine(p, c [6]float64) [6]float64 {
	return [6]float64{
		p[0]*c[0] + p[2]*c[1],
		p[1]*c[0] + p[3]*c[1],
		p[0]*c[2] + p[2]*c[3],
		p[1]*c[2] + p[3]*c[3],
		p[0]*c[4] + p[2]*c[5] + p[4],
		p[1]*c[4] + p[3]*c[5] + p[5],
	}
}

// invertAffine computes the inverse of a 2D affine matrix.
// Returns the identity matrix if the matrix is singular.
func invertAffine(m [6]float64) [6]float64 {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return identityTransform
	}
	invDet := 1.0 / det
	a := m[3] * invDet
	b := -m[1] * invDet
	c := -m[2] * invDet
	d := m[0] * invDet
	return [6]float64{
		a, b, c, d,
		-(a*m[4] + c*m[5]),
		-(b*m[4] + d*m[5]),
	}
}

// transformPoint applies an affine matrix to a point.
func transformPoint(m [6]float64, x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

func translateAffine(x, y float64) [6]float64 { return [6]float64{1, 0, 0, 1, x, y} }

func scaleAffine(sx, sy float64) [6]float64 { return [6]float64{sx, 0, 0, sy, 0, 0} }

func rotateAffine(rad float64) [6]float64 {
	sin, cos := math.Sincos(rad)
	return [6]float64{cos, sin, -sin, cos, 0, 0}
}

func matricesEqual(a, b [6]float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > matrixEpsilon {
			return false
		}
	}
	return true
}

// transformRect returns the axis-aligned bounds of r after applying m.
func transformRect(m [6]float64, r Rect) Rect {
	x0, y0 := transformPoint(m, r.X, r.Y)
	x1, y1 := transformPoint(m, r.X+r.Width, r.Y)
	x2, y2 := transformPoint(m, r.X+r.Width, r.Y+r.Height)
	x3, y3 := transformPoint(m, r.X, r.Y+r.Height)

	minX := math.Min(math.Min(x0, x1), math.Min(x2, x3))
	minY := math.Min(math.Min(y0, y1), math.Min(y2, y3))
	maxX := math.Max(math.Max(x0, x1), math.Max(x2, x3))
	maxY := math.Max(math.Max(y0, y1), math.Max(y2, y3))

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// updateWorldTransform recomputes world transforms and alphas below n.
// A node is recomputed when it is dirty or when its parent's world values
// changed numerically this frame; a dirty node whose result equals last
// frame's does not force its children. It returns how many nodes were
// recomputed.
func updateWorldTransform(n *Node, parentTransform [6]float64, parentAlpha float64, parentChanged bool) int {
	recomputed := 0
	changed := false
	if n.transformDirty || parentChanged {
		world := multiplyAffine(parentTransform, n.local)
		alpha := parentAlpha * n.Alpha
		changed = !matricesEqual(world, n.worldTransform) || alpha != n.worldAlpha
		n.worldTransform = world
		n.worldAlpha = alpha
		n.transformDirty = false
		recomputed++
	}
	for _, child := range n.children {
		recomputed += updateWorldTransform(child, n.worldTransform, n.worldAlpha, changed)
	}
	return recomputed
}

// --- Transform setters ---

// SetTransform replaces the node's local matrix and marks it dirty.
func (n *Node) SetTransform(m [6]float64) {
	n.local = m
	n.invalidate()
}

// Transform returns the node's local matrix.
func (n *Node) Transform() [6]float64 {
	return n.local
}

// SetPosition sets the translation part of the local matrix.
func (n *Node) SetPosition(x, y float64) {
	n.local[4] = x
	n.local[5] = y
	n.invalidate()
}

// Position returns the translation part of the local matrix.
func (n *Node) Position() (x, y float64) {
	return n.local[4], n.local[5]
}

// SetAlpha sets the node's alpha and marks it dirty.
func (n *Node) SetAlpha(a float64) {
	n.Alpha = a
	n.invalidate()
}

// MarkDirty forces recomputation of the node's world transform on the next
// frame.
func (n *Node) MarkDirty() {
	n.invalidate()
}

// invalidate marks n dirty and flags the scene that owns it. A flagged shell
// scene dirties the use node it hangs under on the next poll.
func (n *Node) invalidate() {
	n.transformDirty = true
	if n.owner != nil {
		n.owner.dirty = true
	}
}

// WorldTransform returns the matrix computed during the last frame.
func (n *Node) WorldTransform() [6]float64 {
	return n.worldTransform
}

// WorldToLocal converts a world-space point to this node's local coordinate space.
func (n *Node) WorldToLocal(wx, wy float64) (lx, ly float64) {
	return transformPoint(invertAffine(n.worldTransform), wx, wy)
}

// LocalToWorld converts a local-space point to world-space.
func (n *Node) LocalToWorld(lx, ly float64) (wx, wy float64) {
	return transformPoint(n.worldTransform, lx, ly)
}

// --- transform attribute ---

// ParseTransform parses an SVG transform list such as
// "translate(10 20) rotate(45)". Functions compose left to right.
func ParseTransform(s string) ([6]float64, error) {
	m := identityTransform
	rest := strings.TrimSpace(s)
	for rest != "" {
		open := strings.IndexByte(rest, '(')
		end := strings.IndexByte(rest, ')')
		if open < 0 || end < open {
			return identityTransform, fmt.Errorf("vela: transform %q: unbalanced parentheses", s)
		}
		name := strings.TrimSpace(strings.Trim(rest[:open], ", \t\n"))
		args := vdoc.ParseNumbers(rest[open+1 : end])
		rest = strings.TrimLeft(rest[end+1:], ", \t\r\n")

		f, err := transformFunc(name, args)
		if err != nil {
			return identityTransform, fmt.Errorf("vela: transform %q: %w", s, err)
		}
		m = multiplyAffine(m, f)
	}
	return m, nil
}

func transformFunc(name string, args []float64) ([6]float64, error) {
	argc := func(counts ...int) error {
		for _, c := range counts {
			if len(args) == c {
				return nil
			}
		}
		return fmt.Errorf("%s: %d arguments", name, len(args))
	}
	switch name {
	case "matrix":
		if err := argc(6); err != nil {
			return identityTransform, err
		}
		return [6]float64{args[0], args[1], args[2], args[3], args[4], args[5]}, nil
	case "translate":
		if err := argc(1, 2); err != nil {
			return identityTransform, err
		}
		if len(args) == 1 {
			return translateAffine(args[0], 0), nil
		}
		return translateAffine(args[0], args[1]), nil
	case "scale":
		if err := argc(1, 2); err != nil {
			return identityTransform, err
		}
		if len(args) == 1 {
			return scaleAffine(args[0], args[0]), nil
		}
		return scaleAffine(args[0], args[1]), nil
	case "rotate":
		if err := argc(1, 3); err != nil {
			return identityTransform, err
		}
		r := rotateAffine(args[0] * math.Pi / 180)
		if len(args) == 3 {
			cx, cy := args[1], args[2]
			r = multiplyAffine(translateAffine(cx, cy), multiplyAffine(r, translateAffine(-cx, -cy)))
		}
		return r, nil
	case "skewX":
		if err := argc(1); err != nil {
			return identityTransform, err
		}
		return [6]float64{1, 0, math.Tan(args[0] * math.Pi / 180), 1, 0, 0}, nil
	case "skewY":
		if err := argc(1); err != nil {
			return identityTransform, err
		}
		return [6]float64{1, math.Tan(args[0] * math.Pi / 180), 0, 1, 0, 0}, nil
	}
	return identityTransform, fmt.Errorf("unknown function %q", name)
}
