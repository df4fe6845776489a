package vela

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phanxgames/vela/vdoc"
)

const defaultCommandCap = 256

// Scene owns a render tree built from one document together with its paint
// and mask arenas, its timeline and its pending external loads.
//
// A Scene is not safe for concurrent use. Update and Draw must be called
// from one goroutine; external documents load in the background and are
// applied during those calls.
type Scene struct {
	doc   *vdoc.Document
	opts  Options
	log   *slog.Logger
	state State
	root  *Node

	// parent is the scene that owns the use node this shell scene's root
	// is attached to. nil for top-level scenes.
	parent *Scene

	paints  paintArena
	masks   maskArena
	servers map[*vdoc.Element]*PaintServer
	byName  map[string]*Node

	controller    *AnimationController
	timelineNode  *Node
	maxFPS        int
	clock         func() time.Duration
	onFrameChange func(frame int)
	onLoop        func(frame, iteration int)

	viewBox          vdoc.ViewBox
	width, height    float64
	anchorX, anchorY float64
	x, y             float64
	viewport         Rect

	surfaces *surfacePool
	raster   Rasterizer

	ctx     context.Context
	cancel  context.CancelFunc
	loads   chan loadResult
	pending int
	shells  []shellLink
	dirty   bool

	frame    uint64
	commands []DrawCommand
	maskCmds []DrawCommand
	culled   []*Node
	stats    FrameStats
	hitBuf   []*Node

	handlers     handlerRegistry
	pointers     [maxPointers]pointerState
	injectQueue  []syntheticPointerEvent
	dragDeadZone float64

	script          *Script
	screenshotQueue []string
}

func newScene(doc *vdoc.Document, opts Options) *Scene {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scene{
		doc:        doc,
		opts:       opts,
		log:        opts.logger(),
		servers:    make(map[*vdoc.Element]*PaintServer),
		byName:     make(map[string]*Node),
		controller: NewAnimationController(),
		maxFPS:     opts.MaxFPS,
		clock:      opts.clock(),
		width:      opts.Width,
		height:     opts.Height,
		anchorX:    opts.AnchorX,
		anchorY:    opts.AnchorY,
		x:          opts.X,
		y:          opts.Y,
		viewport:   opts.Viewport,
		surfaces:   &surfacePool{},
		ctx:        ctx,
		cancel:     cancel,
		loads:      make(chan loadResult, 16),
		commands:   make([]DrawCommand, 0, defaultCommandCap),

		dragDeadZone: defaultDragDeadZone,
	}
	if s.maxFPS == 0 {
		s.maxFPS = DefaultMaxFPS
	}
	s.controller.Pause()
	return s
}

// newShellScene creates the scene an external fragment is built into. It
// shares its parent's clock, surfaces and load channel but keeps its own
// paint and mask arenas, indexed against its own document.
func newShellScene(parent *Scene, doc *vdoc.Document) *Scene {
	return &Scene{
		doc:        doc,
		opts:       parent.opts,
		log:        parent.log,
		parent:     parent,
		servers:    make(map[*vdoc.Element]*PaintServer),
		byName:     make(map[string]*Node),
		controller: parent.controller,
		maxFPS:     parent.maxFPS,
		clock:      parent.clock,
		surfaces:   parent.surfaces,
		ctx:        parent.ctx,
		cancel:     func() {},
		loads:      parent.loads,
	}
}

// Build turns a document into a scene. Elements that fail to build are
// logged and skipped; Build itself only fails for a missing document, a
// root that cannot be built, or invalid options.
func Build(doc *vdoc.Document, opts Options) (*Scene, error) {
	if doc == nil || doc.Root == nil {
		return nil, errors.New("vela: nil document")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	s := newScene(doc, opts)
	root := newBuilder(s, doc).build(doc.Root, 0)
	if root == nil {
		s.cancel()
		return nil, fmt.Errorf("vela: root element <%s> did not build", doc.Root.Tag)
	}
	s.root = root
	if vb, ok := doc.ViewBox(); ok {
		s.viewBox = vb
	} else if b, ok := subtreeBounds(root); ok {
		s.viewBox = vdoc.ViewBox{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
	}
	if opts.Autoplay {
		s.Play()
	}
	return s, nil
}

// Root returns the root of the render tree.
func (s *Scene) Root() *Node { return s.root }

// Document returns the document the scene was built from.
func (s *Scene) Document() *vdoc.Document { return s.doc }

// State returns the scene's lifecycle state.
func (s *Scene) State() State { return s.state }

// Controller returns the scene's shared animation clock.
func (s *Scene) Controller() *AnimationController { return s.controller }

// NodeByID returns the first node built from the element with the given id.
func (s *Scene) NodeByID(id string) *Node { return s.byName[id] }

// ResolvePaint returns the fully inherited paint for id.
func (s *Scene) ResolvePaint(id PaintID) Paint { return s.paints.resolve(id) }

// PaintChainLength returns how many paint records id's inheritance chain
// holds, including id itself.
func (s *Scene) PaintChainLength(id PaintID) int { return s.paints.chainLength(id) }

// NumPaints returns the number of records in the paint arena.
func (s *Scene) NumPaints() int { return len(s.paints.records) }

// Mask returns a mask server by id.
func (s *Scene) Mask(id MaskID) *MaskServer { return s.masks.get(id) }

// NumMasks returns the number of mask servers built so far.
func (s *Scene) NumMasks() int { return len(s.masks.servers) }

// --- Playback ---

// Play starts or resumes the timeline.
func (s *Scene) Play() {
	if s.state == StateDestroyed {
		return
	}
	s.state = StatePlaying
	s.controller.Unpause()
}

// Stop pauses the timeline at its current position.
func (s *Scene) Stop() {
	if s.state == StateDestroyed {
		return
	}
	s.state = StatePaused
	s.controller.Pause()
}

// GotoAndPlay seeks the timeline to t and plays from there.
func (s *Scene) GotoAndPlay(t time.Duration) {
	if s.state == StateDestroyed {
		return
	}
	s.seek(t)
	s.Play()
}

// GotoAndStop seeks the timeline to t and pauses there. The new frame is
// sampled on the next Draw.
func (s *Scene) GotoAndStop(t time.Duration) {
	if s.state == StateDestroyed {
		return
	}
	s.seek(t)
	s.Stop()
}

func (s *Scene) seek(t time.Duration) {
	s.controller.Seek(t)
	rewind := func(n *Node) {
		if n.anim != nil {
			n.anim.rewind()
		}
	}
	walk(s.root, rewind)
	for _, sc := range s.scenes() {
		for _, ms := range sc.masks.servers {
			walk(ms.Root, rewind)
		}
	}
}

// OnFrameChange registers fn to run whenever the sampled frame changes.
func (s *Scene) OnFrameChange(fn func(frame int)) { s.onFrameChange = fn }

// OnLoop registers fn to run when the timeline wraps around. It runs
// before the frame change callback of the same frame.
func (s *Scene) OnLoop(fn func(frame, iteration int)) { s.onLoop = fn }

// --- Placement ---

// SetSize sets the on-screen size the viewBox is scaled to.
func (s *Scene) SetSize(w, h float64) {
	s.width, s.height = w, h
	s.root.MarkDirty()
}

// Size returns the on-screen size.
func (s *Scene) Size() (w, h float64) {
	w, h = s.width, s.height
	if w <= 0 {
		w = s.viewBox.Width
	}
	if h <= 0 {
		h = s.viewBox.Height
	}
	return w, h
}

// SetAnchor sets the point of the scene, as a fraction of its size, that
// sits at its position.
func (s *Scene) SetAnchor(x, y float64) {
	s.anchorX, s.anchorY = x, y
	s.root.MarkDirty()
}

// SetPosition places the anchor point on the target surface.
func (s *Scene) SetPosition(x, y float64) {
	s.x, s.y = x, y
	s.root.MarkDirty()
}

// SetMaxFPS caps how often animated geometry is re-sampled.
func (s *Scene) SetMaxFPS(fps int) {
	if fps <= 0 {
		fps = DefaultMaxFPS
	}
	s.maxFPS = fps
}

// SetViewport sets the screen-space cull rectangle. An empty rectangle
// disables culling.
func (s *Scene) SetViewport(r Rect) {
	s.viewport = r
}

// Viewport returns the cull rectangle.
func (s *Scene) Viewport() Rect { return s.viewport }

// rootMatrix maps document user space onto the target surface.
func (s *Scene) rootMatrix() [6]float64 {
	w, h := s.Size()
	sx, sy := 1.0, 1.0
	if s.viewBox.Width > 0 && s.viewBox.Height > 0 {
		sx = w / s.viewBox.Width
		sy = h / s.viewBox.Height
	}
	m := translateAffine(s.x-s.anchorX*w, s.y-s.anchorY*h)
	m = multiplyAffine(m, scaleAffine(sx, sy))
	return multiplyAffine(m, translateAffine(-s.viewBox.X, -s.viewBox.Y))
}

// Bounds returns the world-space bounds of everything visible.
func (s *Scene) Bounds() Rect {
	b, ok := subtreeBounds(s.root)
	if !ok {
		return Rect{}
	}
	return transformRect(s.root.worldTransform, b)
}

// --- Frame ---

// Update applies finished external loads, propagates shell scene dirtiness,
// steps the attached script and feeds one injected pointer event, without
// drawing. Draw applies loads too; Update is for ticks that do not render.
func (s *Scene) Update() error {
	if s.state == StateDestroyed {
		return ErrDestroyed
	}
	s.poll()
	if s.script != nil {
		s.script.step(s)
	}
	s.processInjectedInput()
	return nil
}

// Draw runs one frame of the render pipeline and submits the result to r.
func (s *Scene) Draw(r Rasterizer) error {
	if s.state == StateDestroyed {
		return ErrDestroyed
	}
	if r == nil {
		return ErrNoRasterizer
	}
	s.raster = r
	s.frame++
	st := FrameStats{Frame: s.frame}
	t0 := time.Now()

	st.LoadsApplied = s.poll()
	st.TransformsRecomputed = updateWorldTransform(s.root, s.rootMatrix(), 1, false)

	s.controller.Update(s.clock())
	st.AnimatedNodes = s.advance(s.controller.Elapsed())
	st.UpdateTime = time.Since(t0)
	t0 = time.Now()

	defer s.uncull()
	st.Culled = s.cull()

	var err error
	if s.root.Visible {
		err = s.render(r, &st)
	}
	st.RenderTime = time.Since(t0)
	s.stats = st
	s.dirty = false
	s.debugLog(st)
	return err
}

// advance steps every animated node, in the visible tree and in mask
// content, against the shared elapsed time.
func (s *Scene) advance(elapsed time.Duration) int {
	changed := s.animateTree(s.root, elapsed)
	for _, sc := range s.scenes() {
		for _, ms := range sc.masks.servers {
			changed += s.animateTree(ms.Root, elapsed)
		}
	}
	return changed
}

// render draws masks, then the main tree.
func (s *Scene) render(r Rasterizer, st *FrameStats) error {
	masks := s.collectMasks(s.root, make(map[maskKey]bool), nil)
	for _, ms := range masks {
		if err := s.renderMask(r, ms); err != nil {
			return fmt.Errorf("vela: render mask %d: %w", ms.ID, err)
		}
		st.MasksRendered++
	}
	s.commands = s.emitTree(s.commands[:0], s.root, identityTransform, nil)
	st.Commands = len(s.commands)
	return r.Submit(ScreenSurface, s.commands)
}

// scenes returns s followed by every shell scene attached below it.
func (s *Scene) scenes() []*Scene {
	out := []*Scene{s}
	for _, link := range s.shells {
		out = append(out, link.shell)
	}
	return out
}

// Destroy stops playback, abandons pending external loads and releases
// the scene's surfaces. Further calls to Update and Draw return
// ErrDestroyed.
func (s *Scene) Destroy() {
	if s.state == StateDestroyed {
		return
	}
	s.state = StateDestroyed
	s.controller.Pause()
	s.cancel()

	for _, sc := range s.scenes() {
		sc.state = StateDestroyed
		for _, ms := range sc.masks.servers {
			ms.Root.Dispose()
		}
		sc.masks = maskArena{}
		sc.paints = paintArena{}
	}
	if s.root != nil {
		s.root.Dispose()
	}
	if s.raster != nil {
		for _, id := range s.surfaces.drain() {
			s.raster.ReleaseSurface(id)
		}
	}
	s.shells = nil
	s.byName = nil
	s.commands = nil
	s.maskCmds = nil
	s.timelineNode = nil
}
