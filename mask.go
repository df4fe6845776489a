package vela

import (
	"math"

	"github.com/phanxgames/vela/vdoc"
)

// MaskID identifies a mask server in a scene's mask arena. 0 means unmasked.
type MaskID uint32

// MaskServer holds the content of one mask element. Its subtree is built
// once, never attached to the visible tree, and rendered into Surface on
// frames where a visible node references it.
type MaskServer struct {
	ID      MaskID
	Root    *Node
	Bounds  Rect // local bounds of Root's subtree
	Surface SurfaceID

	element *vdoc.Element
	surfW   int
	surfH   int
	frame   uint64 // last frame the surface was rendered
}

// SurfaceSize returns the pixel size of the mask's surface.
func (m *MaskServer) SurfaceSize() (w, h int) {
	return m.surfW, m.surfH
}

type maskArena struct {
	servers   []*MaskServer
	byElement map[*vdoc.Element]MaskID
}

func (a *maskArena) get(id MaskID) *MaskServer {
	if id == 0 || int(id) > len(a.servers) {
		return nil
	}
	return a.servers[id-1]
}

// lookup returns the cached server for el.
func (a *maskArena) lookup(el *vdoc.Element) (MaskID, bool) {
	id, ok := a.byElement[el]
	return id, ok
}

func (a *maskArena) add(el *vdoc.Element, root *Node) *MaskServer {
	m := &MaskServer{ID: MaskID(len(a.servers) + 1), Root: root, element: el}
	a.servers = append(a.servers, m)
	if a.byElement == nil {
		a.byElement = make(map[*vdoc.Element]MaskID)
	}
	a.byElement[el] = m.ID
	return m
}

// measure recomputes the mask's local bounds and the surface size they
// need. It reports whether the content has any area.
func (m *MaskServer) measure() bool {
	updateWorldTransform(m.Root, identityTransform, 1, true)
	b, ok := subtreeBounds(m.Root)
	if !ok || b.IsEmpty() {
		m.Bounds = Rect{}
		return false
	}
	m.Bounds = b
	return true
}

// pixelSize is the surface size needed for the current bounds.
func (m *MaskServer) pixelSize() (int, int) {
	return int(math.Ceil(m.Bounds.Width)), int(math.Ceil(m.Bounds.Height))
}
