package vela

import (
	"github.com/phanxgames/vela/morph"
)

// Rasterizer turns draw commands into pixels. Implementations live outside
// the engine; see the raster packages.
type Rasterizer interface {
	// AllocateSurface creates an offscreen surface of w x h pixels.
	AllocateSurface(id SurfaceID, w, h int) error
	// ReleaseSurface frees an offscreen surface.
	ReleaseSurface(id SurfaceID)
	// Submit draws cmds onto target in order. Submitting to an offscreen
	// surface replaces its previous contents.
	Submit(target SurfaceID, cmds []DrawCommand) error
}

// CommandType identifies the kind of draw command.
type CommandType uint8

const (
	CommandFillPath   CommandType = iota // fill Path with Paint
	CommandStrokePath                    // stroke Path with Paint and Stroke
	CommandImage                         // draw Image.Href into Image.Rect
	CommandText                          // draw Text
)

func (t CommandType) String() string {
	switch t {
	case CommandFillPath:
		return "fill"
	case CommandStrokePath:
		return "stroke"
	case CommandImage:
		return "image"
	case CommandText:
		return "text"
	}
	return "unknown"
}

// StrokeStyle is the geometry of a stroke.
type StrokeStyle struct {
	Width      float64
	Cap        LineCap
	Join       LineJoin
	MiterLimit float64
	Dash       []float64
	DashOffset float64
}

// MaskRef applies a rendered mask surface to a command. Transform maps
// surface pixels onto the command's target; the mask's luminance times its
// alpha scales the command's coverage.
type MaskRef struct {
	Surface   SurfaceID
	Transform [6]float64
	Width     int
	Height    int
}

// DrawCommand is a single draw instruction emitted during traversal. Slices
// reference node data and are only valid until the next frame.
type DrawCommand struct {
	Type      CommandType
	NodeID    uint32
	Transform [6]float64 // local space to target space
	Alpha     float64    // node opacity times fill or stroke opacity

	Path     []morph.Command
	Paint    PaintSource
	FillRule FillRule
	Stroke   StrokeStyle

	Image ImageData
	Text  TextData

	Masks []MaskRef
}

// emitTree appends commands for n and its visible descendants. pre is
// applied on top of each node's world transform.
func (s *Scene) emitTree(cmds []DrawCommand, n *Node, pre [6]float64, masks []MaskRef) []DrawCommand {
	if !n.Visible {
		return cmds
	}
	if n.mask != 0 {
		ms := n.owner.masks.get(n.mask)
		if ms == nil {
			return cmds
		}
		if ms.surfW == 0 || ms.surfH == 0 {
			// empty mask: nothing below shows through
			return cmds
		}
		world := multiplyAffine(pre, n.worldTransform)
		ref := MaskRef{
			Surface:   ms.Surface,
			Transform: multiplyAffine(world, translateAffine(ms.Bounds.X, ms.Bounds.Y)),
			Width:     ms.surfW,
			Height:    ms.surfH,
		}
		masks = append(masks[:len(masks):len(masks)], ref)
	}
	if n.Renderable {
		cmds = appendNodeCommands(cmds, n, multiplyAffine(pre, n.worldTransform), masks)
	}
	for _, child := range n.children {
		cmds = s.emitTree(cmds, child, pre, masks)
	}
	return cmds
}

// appendNodeCommands emits the commands for a single node.
func appendNodeCommands(cmds []DrawCommand, n *Node, transform [6]float64, masks []MaskRef) []DrawCommand {
	switch n.Kind {
	case NodeShape:
		if len(n.path) == 0 {
			return cmds
		}
		st := &n.style
		if fill := n.fill; fill.Visible() {
			cmds = append(cmds, DrawCommand{
				Type:      CommandFillPath,
				NodeID:    n.ID,
				Transform: transform,
				Alpha:     n.worldAlpha * st.FillOpacity,
				Path:      n.path,
				Paint:     fill,
				FillRule:  st.FillRule,
				Masks:     masks,
			})
		}
		if stroke := n.stroke; stroke.Visible() && st.StrokeWidth > 0 {
			cmds = append(cmds, DrawCommand{
				Type:      CommandStrokePath,
				NodeID:    n.ID,
				Transform: transform,
				Alpha:     n.worldAlpha * st.StrokeOpacity,
				Path:      n.path,
				Paint:     stroke,
				Stroke: StrokeStyle{
					Width:      st.StrokeWidth,
					Cap:        st.LineCap,
					Join:       st.LineJoin,
					MiterLimit: st.MiterLimit,
					Dash:       st.Dash,
					DashOffset: st.DashOffset,
				},
				Masks: masks,
			})
		}
	case NodeImage:
		if n.image.Href == "" || n.image.Rect.IsEmpty() {
			return cmds
		}
		cmds = append(cmds, DrawCommand{
			Type:      CommandImage,
			NodeID:    n.ID,
			Transform: transform,
			Alpha:     n.worldAlpha,
			Image:     n.image,
			Masks:     masks,
		})
	case NodeText:
		if n.text.Content == "" || !n.fill.Visible() {
			return cmds
		}
		cmds = append(cmds, DrawCommand{
			Type:      CommandText,
			NodeID:    n.ID,
			Transform: transform,
			Alpha:     n.worldAlpha * n.style.FillOpacity,
			Paint:     n.fill,
			Text:      n.text,
			Masks:     masks,
		})
	case NodeGroup, NodeUse, NodeMask:
		// containers draw nothing themselves
	}
	return cmds
}

// --- Masks ---

type maskKey struct {
	owner *Scene
	id    MaskID
}

// collectMasks lists, in first-reference order, the mask servers referenced
// by visible nodes under n, including masks used inside other masks.
func (s *Scene) collectMasks(n *Node, seen map[maskKey]bool, out []*MaskServer) []*MaskServer {
	if !n.Visible {
		return out
	}
	if n.mask != 0 && (n.Renderable || len(n.children) > 0) {
		key := maskKey{n.owner, n.mask}
		if !seen[key] {
			seen[key] = true
			if ms := n.owner.masks.get(n.mask); ms != nil {
				out = s.collectMasks(ms.Root, seen, out)
				out = append(out, ms)
			}
		}
	}
	for _, child := range n.children {
		out = s.collectMasks(child, seen, out)
	}
	return out
}

// renderMask re-renders a mask server's surface for the current frame,
// growing the surface through the pool when the content outgrows it.
func (s *Scene) renderMask(r Rasterizer, ms *MaskServer) error {
	if ms.frame == s.frame {
		return nil
	}
	ms.frame = s.frame
	if !ms.measure() {
		if ms.Surface != 0 {
			s.surfaces.Release(ms.Surface)
		}
		ms.Surface, ms.surfW, ms.surfH = 0, 0, 0
		return nil
	}
	w, h := ms.pixelSize()
	if ms.Surface == 0 || w > ms.surfW || h > ms.surfH {
		if ms.Surface != 0 {
			s.surfaces.Release(ms.Surface)
		}
		id, pw, ph, fresh := s.surfaces.Acquire(w, h)
		if fresh {
			if err := r.AllocateSurface(id, pw, ph); err != nil {
				return err
			}
		}
		ms.Surface, ms.surfW, ms.surfH = id, pw, ph
	}
	offset := translateAffine(-ms.Bounds.X, -ms.Bounds.Y)
	s.maskCmds = s.emitTree(s.maskCmds[:0], ms.Root, offset, nil)
	return r.Submit(ms.Surface, s.maskCmds)
}

// --- Culling ---

// cull marks nodes whose world bounds miss the viewport as non-renderable
// and remembers them for uncull. Nodes already non-renderable are left
// alone.
func (s *Scene) cull() int {
	if s.viewport.IsEmpty() {
		return 0
	}
	s.cullWalk(s.root)
	return len(s.culled)
}

func (s *Scene) cullWalk(n *Node) {
	if !n.Visible {
		return
	}
	if n.Renderable && shouldCull(n, s.viewport) {
		n.Renderable = false
		s.culled = append(s.culled, n)
	}
	for _, child := range n.children {
		s.cullWalk(child)
	}
}

// uncull restores every node culled this frame.
func (s *Scene) uncull() {
	for i, n := range s.culled {
		n.Renderable = true
		s.culled[i] = nil
	}
	s.culled = s.culled[:0]
}
