package vela

import "math"

const (
	maxPointers         = 10 // pointer 0 = mouse, 1-9 = touch
	defaultDragDeadZone = 4.0
)

// EventType identifies a kind of pointer event.
type EventType uint8

const (
	EventPointerDown  EventType = iota // a pointer button was pressed
	EventPointerUp                     // a pointer button was released
	EventPointerMove                   // the pointer moved with no button held
	EventClick                         // press then release over the same node
	EventDragStart                     // movement exceeded the drag dead zone
	EventDrag                          // each move while dragging
	EventDragEnd                       // release after dragging
	EventPointerEnter                  // the pointer moved onto a node
	EventPointerLeave                  // the pointer moved off a node
)

// MouseButton identifies a mouse button.
type MouseButton uint8

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

// PointerContext describes a pointer event. Node is the topmost drawable
// node under the pointer and may be nil. Global coordinates are in device
// pixels; local coordinates are in Node's space.
type PointerContext struct {
	Node             *Node
	GlobalX, GlobalY float64
	LocalX, LocalY   float64
	Button           MouseButton
	PointerID        int
}

// DragContext describes a drag event on the node the drag started on.
type DragContext struct {
	PointerContext
	StartX, StartY float64
	DeltaX, DeltaY float64 // movement since the previous drag event
}

type pointerState struct {
	down      bool
	startX    float64
	startY    float64
	lastX     float64
	lastY     float64
	hitNode   *Node
	hoverNode *Node
	dragging  bool
	button    MouseButton
}

type handler[T any] struct {
	id uint32
	fn func(T)
}

type handlerRegistry struct {
	pointerDown  []handler[PointerContext]
	pointerUp    []handler[PointerContext]
	pointerMove  []handler[PointerContext]
	pointerEnter []handler[PointerContext]
	pointerLeave []handler[PointerContext]
	click        []handler[PointerContext]
	dragStart    []handler[DragContext]
	drag         []handler[DragContext]
	dragEnd      []handler[DragContext]
	nextID       uint32
}

// CallbackHandle removes a registered pointer callback.
type CallbackHandle struct {
	id    uint32
	reg   *handlerRegistry
	event EventType
}

// Remove unregisters the callback. Removing twice is a no-op.
func (h CallbackHandle) Remove() {
	if h.reg == nil {
		return
	}
	r := h.reg
	switch h.event {
	case EventPointerDown:
		r.pointerDown = removeHandler(r.pointerDown, h.id)
	case EventPointerUp:
		r.pointerUp = removeHandler(r.pointerUp, h.id)
	case EventPointerMove:
		r.pointerMove = removeHandler(r.pointerMove, h.id)
	case EventPointerEnter:
		r.pointerEnter = removeHandler(r.pointerEnter, h.id)
	case EventPointerLeave:
		r.pointerLeave = removeHandler(r.pointerLeave, h.id)
	case EventClick:
		r.click = removeHandler(r.click, h.id)
	case EventDragStart:
		r.dragStart = removeHandler(r.dragStart, h.id)
	case EventDrag:
		r.drag = removeHandler(r.drag, h.id)
	case EventDragEnd:
		r.dragEnd = removeHandler(r.dragEnd, h.id)
	}
}

func removeHandler[T any](s []handler[T], id uint32) []handler[T] {
	for i := range s {
		if s[i].id == id {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = handler[T]{}
			return s[:len(s)-1]
		}
	}
	return s
}

func addHandler[T any](r *handlerRegistry, list *[]handler[T], event EventType, fn func(T)) CallbackHandle {
	r.nextID++
	*list = append(*list, handler[T]{id: r.nextID, fn: fn})
	return CallbackHandle{id: r.nextID, reg: r, event: event}
}

// OnPointerDown registers a callback for pointer presses.
func (s *Scene) OnPointerDown(fn func(PointerContext)) CallbackHandle {
	return addHandler(&s.handlers, &s.handlers.pointerDown, EventPointerDown, fn)
}

// OnPointerUp registers a callback for pointer releases.
func (s *Scene) OnPointerUp(fn func(PointerContext)) CallbackHandle {
	return addHandler(&s.handlers, &s.handlers.pointerUp, EventPointerUp, fn)
}

// OnPointerMove registers a callback for hover movement.
func (s *Scene) OnPointerMove(fn func(PointerContext)) CallbackHandle {
	return addHandler(&s.handlers, &s.handlers.pointerMove, EventPointerMove, fn)
}

// OnPointerEnter registers a callback fired when the pointer moves onto a
// node.
func (s *Scene) OnPointerEnter(fn func(PointerContext)) CallbackHandle {
	return addHandler(&s.handlers, &s.handlers.pointerEnter, EventPointerEnter, fn)
}

// OnPointerLeave registers a callback fired when the pointer moves off a
// node, either onto another node or onto empty space.
func (s *Scene) OnPointerLeave(fn func(PointerContext)) CallbackHandle {
	return addHandler(&s.handlers, &s.handlers.pointerLeave, EventPointerLeave, fn)
}

// OnClick registers a callback for a press and release over the same node
// without a drag in between.
func (s *Scene) OnClick(fn func(PointerContext)) CallbackHandle {
	return addHandler(&s.handlers, &s.handlers.click, EventClick, fn)
}

func (s *Scene) OnDragStart(fn func(DragContext)) CallbackHandle {
	return addHandler(&s.handlers, &s.handlers.dragStart, EventDragStart, fn)
}

func (s *Scene) OnDrag(fn func(DragContext)) CallbackHandle {
	return addHandler(&s.handlers, &s.handlers.drag, EventDrag, fn)
}

func (s *Scene) OnDragEnd(fn func(DragContext)) CallbackHandle {
	return addHandler(&s.handlers, &s.handlers.dragEnd, EventDragEnd, fn)
}

// SetDragDeadZone sets how far in pixels a pointer must move while held
// before a drag starts.
func (s *Scene) SetDragDeadZone(pixels float64) {
	s.dragDeadZone = pixels
}

// Pointer feeds the state of one pointer into the scene. Hosts call it once
// per tick per pointer with device-pixel coordinates; ids outside
// [0, 10) are ignored. Hit testing uses the world transforms of the last
// Draw.
func (s *Scene) Pointer(id int, x, y float64, pressed bool, button MouseButton) {
	if id < 0 || id >= maxPointers || s.state == StateDestroyed || s.root == nil {
		return
	}
	s.processPointer(id, x, y, pressed, button)
}

// processPointer runs the pointer state machine for a single pointer.
func (s *Scene) processPointer(id int, x, y float64, pressed bool, button MouseButton) {
	ps := &s.pointers[id]
	target := s.HitTest(x, y)

	if target != ps.hoverNode {
		if ps.hoverNode != nil {
			s.firePointer(s.handlers.pointerLeave, ps.hoverNode, id, x, y, button)
		}
		if target != nil {
			s.firePointer(s.handlers.pointerEnter, target, id, x, y, button)
		}
		ps.hoverNode = target
	}

	switch {
	case pressed && !ps.down:
		*ps = pointerState{
			down: true, button: button,
			startX: x, startY: y, lastX: x, lastY: y,
			hitNode: target, hoverNode: target,
		}
		s.firePointer(s.handlers.pointerDown, target, id, x, y, button)

	case !pressed && ps.down:
		if ps.dragging {
			s.fireDrag(s.handlers.dragEnd, ps, id, x, y, x-ps.lastX, y-ps.lastY)
		} else if ps.hitNode != nil && ps.hitNode == target {
			s.firePointer(s.handlers.click, target, id, x, y, ps.button)
		}
		s.firePointer(s.handlers.pointerUp, target, id, x, y, ps.button)
		ps.down = false
		ps.hitNode = nil
		ps.dragging = false
		ps.lastX, ps.lastY = x, y

	case pressed && ps.down:
		if x == ps.lastX && y == ps.lastY {
			return
		}
		if !ps.dragging && math.Hypot(x-ps.startX, y-ps.startY) > s.dragDeadZone {
			ps.dragging = true
			s.fireDrag(s.handlers.dragStart, ps, id, x, y, x-ps.startX, y-ps.startY)
		}
		if ps.dragging {
			s.fireDrag(s.handlers.drag, ps, id, x, y, x-ps.lastX, y-ps.lastY)
		}
		ps.lastX, ps.lastY = x, y

	default:
		if x != ps.lastX || y != ps.lastY {
			s.firePointer(s.handlers.pointerMove, target, id, x, y, button)
			ps.lastX, ps.lastY = x, y
		}
	}
}

func pointerContext(node *Node, id int, x, y float64, button MouseButton) PointerContext {
	ctx := PointerContext{Node: node, GlobalX: x, GlobalY: y, Button: button, PointerID: id}
	if node != nil {
		ctx.LocalX, ctx.LocalY = node.WorldToLocal(x, y)
	}
	return ctx
}

func (s *Scene) firePointer(hs []handler[PointerContext], node *Node, id int, x, y float64, button MouseButton) {
	if len(hs) == 0 {
		return
	}
	ctx := pointerContext(node, id, x, y, button)
	for _, h := range hs {
		h.fn(ctx)
	}
}

func (s *Scene) fireDrag(hs []handler[DragContext], ps *pointerState, id int, x, y, dx, dy float64) {
	if len(hs) == 0 {
		return
	}
	ctx := DragContext{
		PointerContext: pointerContext(ps.hitNode, id, x, y, ps.button),
		StartX:         ps.startX,
		StartY:         ps.startY,
		DeltaX:         dx,
		DeltaY:         dy,
	}
	for _, h := range hs {
		h.fn(ctx)
	}
}

// --- Injected input ---

type syntheticPointerEvent struct {
	x, y    float64
	pressed bool
}

// InjectPress queues a left-button press at (x, y). Queued events are
// consumed one per Update, ahead of real input.
func (s *Scene) InjectPress(x, y float64) {
	s.injectQueue = append(s.injectQueue, syntheticPointerEvent{x: x, y: y, pressed: true})
}

// InjectMove queues a move with the button held.
func (s *Scene) InjectMove(x, y float64) {
	s.injectQueue = append(s.injectQueue, syntheticPointerEvent{x: x, y: y, pressed: true})
}

// InjectRelease queues a left-button release at (x, y).
func (s *Scene) InjectRelease(x, y float64) {
	s.injectQueue = append(s.injectQueue, syntheticPointerEvent{x: x, y: y})
}

// InjectClick queues a press and a release at the same point. It takes two
// updates.
func (s *Scene) InjectClick(x, y float64) {
	s.InjectPress(x, y)
	s.InjectRelease(x, y)
}

// InjectDrag queues a press at the start point, frames-2 evenly spaced moves
// and a release at the end point. frames is at least 2.
func (s *Scene) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	frames = max(frames, 2)
	s.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps+1)
		s.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	s.InjectRelease(toX, toY)
}

// PendingInput reports how many injected events are still queued.
func (s *Scene) PendingInput() int { return len(s.injectQueue) }

// processInjectedInput feeds one queued event as pointer 0. It reports
// whether an event was consumed.
func (s *Scene) processInjectedInput() bool {
	if len(s.injectQueue) == 0 {
		return false
	}
	evt := s.injectQueue[0]
	copy(s.injectQueue, s.injectQueue[1:])
	s.injectQueue = s.injectQueue[:len(s.injectQueue)-1]
	s.Pointer(0, evt.x, evt.y, evt.pressed, MouseButtonLeft)
	return true
}
