package vela

import (
	"log/slog"
	"time"
)

// FrameStats holds counters for the most recent Draw.
type FrameStats struct {
	Frame                uint64
	TransformsRecomputed int
	AnimatedNodes        int // nodes whose geometry changed
	Culled               int
	MasksRendered        int
	Commands             int
	LoadsApplied         int

	UpdateTime time.Duration // polling, transforms and animation
	RenderTime time.Duration // masks, emission and submission
}

// Stats returns the counters recorded by the last Draw.
func (s *Scene) Stats() FrameStats {
	return s.stats
}

// debugLog writes the frame's stats at debug level.
func (s *Scene) debugLog(st FrameStats) {
	if !s.opts.Debug {
		return
	}
	s.log.Debug("frame",
		slog.Uint64("frame", st.Frame),
		slog.Int("transforms", st.TransformsRecomputed),
		slog.Int("animated", st.AnimatedNodes),
		slog.Int("culled", st.Culled),
		slog.Int("masks", st.MasksRendered),
		slog.Int("commands", st.Commands),
		slog.Int("loads", st.LoadsApplied),
		slog.Duration("update", st.UpdateTime),
		slog.Duration("render", st.RenderTime),
	)
}

// debugMaxTreeDepth is the depth past which Build logs a warning.
const debugMaxTreeDepth = 32

// debugCheckTreeDepth warns about n when it is built depth elements below
// the root. Nodes are attached bottom-up, so n.Depth is not yet final.
func (s *Scene) debugCheckTreeDepth(n *Node, depth int) {
	if !s.opts.Debug || depth != debugMaxTreeDepth+1 {
		return
	}
	s.log.Warn("deep render tree", slog.Int("depth", depth), slog.String("node", n.Name))
}
