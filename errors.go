package vela

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDestroyed is returned by operations on a destroyed Scene.
	ErrDestroyed = errors.New("vela: scene destroyed")
	// ErrNoRasterizer is returned by Draw when given a nil Rasterizer.
	ErrNoRasterizer = errors.New("vela: no rasterizer")
)

// BuildError reports an element the builder could not turn into a node.
// The element is skipped; the rest of the document still builds.
type BuildError struct {
	Tag string
	ID  string
	Err error
}

func (e *BuildError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("vela: build <%s id=%q>: %v", e.Tag, e.ID, e.Err)
	}
	return fmt.Sprintf("vela: build <%s>: %v", e.Tag, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// ExternalResolutionError reports a use reference whose document could not
// be loaded or whose fragment does not exist. The reference stays empty.
type ExternalResolutionError struct {
	URL      string
	Fragment string
	Err      error
}

func (e *ExternalResolutionError) Error() string {
	return fmt.Sprintf("vela: resolve %s#%s: %v", e.URL, e.Fragment, e.Err)
}

func (e *ExternalResolutionError) Unwrap() error { return e.Err }

// InterpolationError reports a failed geometry tween. The node keeps the
// geometry it had before the failing frame.
type InterpolationError struct {
	NodeID  uint32
	Frame   int
	Elapsed time.Duration
	Value   float64 // fractional keyframe index that failed
	Err     error
}

func (e *InterpolationError) Error() string {
	return fmt.Sprintf("vela: node %d frame %d: interpolate at index %g: %v",
		e.NodeID, e.Frame, e.Value, e.Err)
}

func (e *InterpolationError) Unwrap() error { return e.Err }
