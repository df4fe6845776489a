package vela

import "math"

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
type Color struct {
	R, G, B, A float64
}

// ColorBlack is the initial fill of every shape.
var ColorBlack = Color{0, 0, 0, 1}

// WithAlpha returns c with its alpha multiplied by a.
func (c Color) WithAlpha(a float64) Color {
	c.A *= a
	return c
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// rectUnion returns the smallest Rect containing both a and b.
func rectUnion(a, b Rect) Rect {
	minX := math.Min(a.X, b.X)
	minY := math.Min(a.Y, b.Y)
	maxX := math.Max(a.X+a.Width, b.X+b.Width)
	maxY := math.Max(a.Y+a.Height, b.Y+b.Height)
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// NodeKind identifies what a Node draws.
type NodeKind uint8

const (
	NodeGroup NodeKind = iota // container; draws nothing itself
	NodeShape                 // filled and/or stroked path
	NodeImage                 // textured rectangle
	NodeText                  // text run
	NodeUse                   // reference to another fragment, local or external
	NodeMask                  // root of a mask server's content
)

func (k NodeKind) String() string {
	switch k {
	case NodeGroup:
		return "group"
	case NodeShape:
		return "shape"
	case NodeImage:
		return "image"
	case NodeText:
		return "text"
	case NodeUse:
		return "use"
	case NodeMask:
		return "mask"
	}
	return "unknown"
}

// State is the lifecycle state of a Scene.
type State uint8

const (
	StateBuilt     State = iota // built, not yet played
	StatePlaying                // timeline advancing
	StatePaused                 // timeline frozen
	StateDestroyed              // resources released; further calls are no-ops
)

func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateDestroyed:
		return "destroyed"
	}
	return "unknown"
}
