package vela

import "math"

// SurfaceID names a render surface owned by a Rasterizer. ScreenSurface is
// the backend's main target and is never allocated through the pool.
type SurfaceID uint32

// ScreenSurface is the on-screen target.
const ScreenSurface SurfaceID = 0

// surfacePool hands out offscreen surface ids keyed by power-of-two
// dimensions, so a mask whose bounds wobble from frame to frame keeps
// reusing one backend surface.
type surfacePool struct {
	next      SurfaceID
	buckets   map[uint64][]SurfaceID
	sizes     map[SurfaceID]uint64
	allocated []SurfaceID
}

// poolKey packs power-of-two width and height into a single uint64.
func poolKey(w, h int) uint64 {
	return uint64(w)<<32 | uint64(h)
}

// Acquire returns a surface with at least (w, h) pixels. fresh is true when
// the id is new and the caller must allocate it on the rasterizer.
func (p *surfacePool) Acquire(w, h int) (id SurfaceID, pw, ph int, fresh bool) {
	pw = nextPowerOfTwo(w)
	ph = nextPowerOfTwo(h)
	key := poolKey(pw, ph)

	if stack := p.buckets[key]; len(stack) > 0 {
		id = stack[len(stack)-1]
		p.buckets[key] = stack[:len(stack)-1]
		return id, pw, ph, false
	}

	p.next++
	id = p.next
	if p.sizes == nil {
		p.sizes = make(map[SurfaceID]uint64)
	}
	p.sizes[id] = key
	p.allocated = append(p.allocated, id)
	return id, pw, ph, true
}

// Release returns a surface to the pool for reuse.
func (p *surfacePool) Release(id SurfaceID) {
	key, ok := p.sizes[id]
	if !ok {
		return
	}
	if p.buckets == nil {
		p.buckets = make(map[uint64][]SurfaceID)
	}
	p.buckets[key] = append(p.buckets[key], id)
}

// drain returns every id ever allocated and empties the pool.
func (p *surfacePool) drain() []SurfaceID {
	ids := p.allocated
	p.allocated = nil
	p.buckets = nil
	p.sizes = nil
	return ids
}

// nextPowerOfTwo returns the smallest power of two >= n (minimum 1).
func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << int(math.Ceil(math.Log2(float64(n))))
}
