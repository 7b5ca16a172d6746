package badgekit

// GestureState is the state of a DragGesture.
type GestureState uint8

const (
	GestureIdle       GestureState = iota // no drag in progress
	GestureDragging                       // pointer held, history held, guides live
	GestureCommitting                     // drag released, single commit in flight
)

func (g GestureState) String() string {
	switch g {
	case GestureIdle:
		return "idle"
	case GestureDragging:
		return "dragging"
	case GestureCommitting:
		return "committing"
	default:
		return "unknown"
	}
}

// DragGesture coalesces a pointer drag into one history commit.
//
// While Dragging it holds the history (so no intermediate frame is
// committed) and owns guide visibility. End releases the hold, hides the
// guides and commits exactly once. Only one gesture can be active.
type DragGesture struct {
	scene   *Scene
	history *History
	aligner *Aligner

	state  GestureState
	target *Node
	startX float64
	startY float64
}

// NewDragGesture creates an idle gesture bound to a scene and its history.
func NewDragGesture(s *Scene, h *History, a *Aligner) *DragGesture {
	return &DragGesture{scene: s, history: h, aligner: a}
}

// State returns the current gesture state.
func (g *DragGesture) State() GestureState {
	return g.state
}

// Target returns the node being dragged, or nil when idle.
func (g *DragGesture) Target() *Node {
	return g.target
}

// Begin starts dragging target. Fails if a drag is already active.
func (g *DragGesture) Begin(target *Node) bool {
	if g.state != GestureIdle || target == nil {
		return false
	}
	g.state = GestureDragging
	g.target = target
	g.startX, g.startY = target.X, target.Y
	g.history.Hold()
	return true
}

// MoveTo places the target's anchor at (x, y) and snaps it to the guides.
func (g *DragGesture) MoveTo(x, y float64) SnapResult {
	if g.state != GestureDragging || g.target.IsDisposed() {
		return SnapResult{}
	}
	g.target.SetPosition(x, y)
	return g.aligner.Align(g.scene, g.target)
}

// MoveBy offsets the target from where the drag started.
func (g *DragGesture) MoveBy(dx, dy float64) SnapResult {
	return g.MoveTo(g.startX+dx, g.startY+dy)
}

// End finishes the drag: guides are hidden and one commit is recorded.
// Reports whether a commit was made.
func (g *DragGesture) End() bool {
	if g.state != GestureDragging {
		return false
	}
	g.state = GestureCommitting
	g.history.Release()
	g.scene.HideGuides()
	committed := g.history.Commit(g.scene)
	g.state = GestureIdle
	g.target = nil
	return committed
}

// Cancel abandons the drag without committing and puts the target back
// where the drag started.
func (g *DragGesture) Cancel() {
	if g.state == GestureIdle {
		return
	}
	if g.state == GestureDragging {
		g.history.Release()
	}
	if g.target != nil && !g.target.IsDisposed() {
		g.target.SetPosition(g.startX, g.startY)
	}
	g.scene.HideGuides()
	g.state = GestureIdle
	g.target = nil
}
