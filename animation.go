package vela

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phanxgames/vela/morph"
)

// RepeatForever is the RepeatLimit of a clip that never stops.
const RepeatForever = -1

// AnimationClip is a keyframed path animation.
type AnimationClip struct {
	Duration time.Duration
	// RepeatLimit is the last iteration index that plays. Once the iteration
	// count exceeds it the node stops updating and holds its final keyframe.
	// The zero value plays the clip once.
	RepeatLimit int
	KeyTimes    []float64
	KeySplines  [][4]float64
	Values      [][]morph.Command
}

// Validate checks the clip's structural invariants: key times strictly
// increasing from 0 to 1, one spline per interval and one value per key
// time.
func (c *AnimationClip) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("vela: clip duration %v must be positive", c.Duration)
	}
	if c.RepeatLimit < RepeatForever {
		return fmt.Errorf("vela: bad repeat limit %d", c.RepeatLimit)
	}
	n := len(c.KeyTimes)
	if n < 2 {
		return errors.New("vela: clip needs at least two key times")
	}
	if c.KeyTimes[0] != 0 || c.KeyTimes[n-1] != 1 {
		return fmt.Errorf("vela: key times must span [0, 1], got [%g, %g]", c.KeyTimes[0], c.KeyTimes[n-1])
	}
	for i := 1; i < n; i++ {
		if c.KeyTimes[i] <= c.KeyTimes[i-1] {
			return fmt.Errorf("vela: key times not strictly increasing at %d", i)
		}
	}
	if len(c.KeySplines) != n-1 {
		return fmt.Errorf("vela: %d key splines for %d key times", len(c.KeySplines), n)
	}
	if len(c.Values) != n {
		return fmt.Errorf("vela: %d values for %d key times", len(c.Values), n)
	}
	return nil
}

// animatedPath is the per-node playback state of a clip.
type animatedPath struct {
	clip      *AnimationClip
	tweener   *morph.Tweener
	lastFrame int
	stopped   bool
}

func newAnimatedPath(clip *AnimationClip) *animatedPath {
	return &animatedPath{
		clip:      clip,
		tweener:   morph.NewTweener(clip.KeySplines, clip.Values),
		lastFrame: -1,
	}
}

func (a *animatedPath) rewind() {
	a.lastFrame = -1
	a.stopped = false
}

// SetClip binds a clip to a shape node, replacing any previous one.
func (n *Node) SetClip(clip *AnimationClip) error {
	if n.Kind != NodeShape {
		return fmt.Errorf("vela: clip on %s node", n.Kind)
	}
	if err := clip.Validate(); err != nil {
		return err
	}
	n.anim = newAnimatedPath(clip)
	if n.owner != nil && n.owner.timelineNode == nil {
		n.owner.timelineNode = n
	}
	return nil
}

// Clip returns the node's clip, or nil.
func (n *Node) Clip() *AnimationClip {
	if n.anim == nil {
		return nil
	}
	return n.anim.clip
}

// stepAnimation samples n's clip at the controller's elapsed time and
// replaces its geometry. Only the scene's timeline node fires frame
// callbacks. It reports whether the geometry changed.
func (s *Scene) stepAnimation(n *Node, elapsed time.Duration) bool {
	a := n.anim
	if a == nil || a.stopped {
		return false
	}
	clip := a.clip
	frame, iteration := quantizeFrame(elapsed, clip.Duration, s.maxFPS)

	if clip.RepeatLimit != RepeatForever && iteration > clip.RepeatLimit {
		a.stopped = true
		n.SetPath(clip.Values[len(clip.Values)-1])
		return true
	}
	if frame == a.lastFrame {
		return false
	}

	if n == s.timelineNode {
		if a.lastFrame >= 0 && frame < a.lastFrame && s.onLoop != nil {
			s.onLoop(frame, iteration)
		}
		if s.onFrameChange != nil {
			s.onFrameChange(frame)
		}
	}
	a.lastFrame = frame

	keyTime := float64(frameTime(frame, s.maxFPS)) / float64(clip.Duration)
	fi := morph.ClosestFractionalIndex(keyTime, clip.KeyTimes)
	cmds, err := a.tweener.At(fi)
	if err == nil {
		err = morph.Validate(cmds)
	}
	if err != nil {
		ierr := &InterpolationError{NodeID: n.ID, Frame: frame, Elapsed: elapsed, Value: fi, Err: err}
		s.log.Warn("interpolation failed", slog.Any("err", ierr), slog.String("path", morph.Format(cmds)))
		return false
	}
	n.SetPath(cmds)
	return true
}

// animateTree steps every animated node under n.
func (s *Scene) animateTree(n *Node, elapsed time.Duration) int {
	changed := 0
	walk(n, func(c *Node) {
		if c.anim != nil && s.stepAnimation(c, elapsed) {
			changed++
		}
	})
	return changed
}
