package vela

import "time"

// AnimationController is the clock shared by every animated node of a
// scene. It only advances when Update is called.
type AnimationController struct {
	lastTime time.Duration
	elapsed  time.Duration
	paused   bool
	started  bool
}

// NewAnimationController returns a running controller with no elapsed time.
func NewAnimationController() *AnimationController {
	return &AnimationController{}
}

// Update advances elapsed time by the wall time since the previous call,
// unless paused. The first call only records now. A clock that steps back
// moves elapsed time back with it, never below zero.
func (c *AnimationController) Update(now time.Duration) {
	if !c.started {
		c.started = true
		c.lastTime = now
		return
	}
	delta := now - c.lastTime
	c.lastTime = now
	if c.paused {
		return
	}
	c.elapsed = max(c.elapsed+delta, 0)
}

// Pause freezes elapsed time. Wall time keeps being tracked so Unpause does
// not jump.
func (c *AnimationController) Pause() { c.paused = true }

// Unpause resumes accumulating elapsed time.
func (c *AnimationController) Unpause() { c.paused = false }

// Paused reports whether the controller is paused.
func (c *AnimationController) Paused() bool { return c.paused }

// Elapsed returns the accumulated unpaused time.
func (c *AnimationController) Elapsed() time.Duration { return c.elapsed }

// Seek sets the elapsed time directly.
func (c *AnimationController) Seek(t time.Duration) {
	if t < 0 {
		t = 0
	}
	c.elapsed = t
}

// Reset clears elapsed time and forgets the last wall time.
func (c *AnimationController) Reset() {
	*c = AnimationController{paused: c.paused}
}

// quantizeFrame maps elapsed time onto the sample grid of a looping clip.
// Samples are spaced time.Second/maxFPS apart across [0, duration); frame is
// the index of the last sample not after the position within the current
// iteration.
func quantizeFrame(elapsed, duration time.Duration, maxFPS int) (frame, iteration int) {
	if duration <= 0 {
		return 0, 0
	}
	if maxFPS <= 0 {
		maxFPS = DefaultMaxFPS
	}
	if elapsed < 0 {
		elapsed = 0
	}
	iteration = int(elapsed / duration)
	pos := elapsed % duration
	step := time.Second / time.Duration(maxFPS)
	if step <= 0 {
		step = 1
	}
	frame = int(pos / step)
	return frame, iteration
}

// frameTime is the clip position of a sample index.
func frameTime(frame, maxFPS int) time.Duration {
	if maxFPS <= 0 {
		maxFPS = DefaultMaxFPS
	}
	return time.Duration(frame) * (time.Second / time.Duration(maxFPS))
}
