package badgekit

import (
	"fmt"
	"log/slog"
	"time"
)

// globalDebug mirrors the most recently set Scene debug flag so that node
// operations (which lack a Scene pointer) can check it cheaply. Only valid
// with a single Scene; multiple Scenes with differing debug modes will
// reflect whichever called SetDebugMode last.
var globalDebug bool

// SetDebugMode enables tree checks and per-frame stats logging.
func (s *Scene) SetDebugMode(enabled bool) {
	s.debug = enabled
	globalDebug = enabled
}

// DebugMode reports whether debug checks are enabled for s.
func (s *Scene) DebugMode() bool {
	return s.debug
}

// frameStats holds per-frame timing and workload metrics. Only populated
// when the scene is in debug mode.
type frameStats struct {
	stepTime     time.Duration
	callbacks    int
	assetResults int
	historyLen   int
	historyAt    int
}

// debugLog reports frame stats at debug level.
func (s *Scene) debugLog(stats frameStats) {
	if !s.debug {
		return
	}
	s.logger.Debug("frame",
		"step", stats.stepTime,
		"callbacks", stats.callbacks,
		"asset_results", stats.assetResults,
		"history_len", stats.historyLen,
		"history_cursor", stats.historyAt,
	)
}

// debugCheckDisposed panics with a descriptive message when a disposed node is
// used in a tree operation. In release mode callers skip this entirely.
func debugCheckDisposed(n *Node, op string) {
	if n.disposed {
		panic(fmt.Sprintf("badgekit debug: %s on disposed node %q (ID was %d)", op, n.Name, n.ID))
	}
}

const (
	debugMaxTreeDepth  = 8
	debugMaxChildCount = 64
)

// debugCheckTree warns when a content subtree is deeper or wider than a
// badge ever needs, which usually means nodes are being re-parented in a
// loop.
func debugCheckTree(logger *slog.Logger, n *Node) {
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if depth > debugMaxTreeDepth {
			logger.Warn("tree depth exceeds threshold", "node", n.Name, "depth", depth, "threshold", debugMaxTreeDepth)
			return
		}
		if len(n.children) > debugMaxChildCount {
			logger.Warn("child count exceeds threshold", "node", n.Name, "children", len(n.children), "threshold", debugMaxChildCount)
		}
		for _, c := range n.children {
			walk(c, depth+1)
		}
	}
	walk(n, 1)
}
