package badgekit

import "testing"

func gestureFixture() (*Scene, *History, *DragGesture, *Node) {
	s, n := alignScene(60, 60)
	h := NewHistory(0)
	h.Commit(s)
	return s, h, NewDragGesture(s, h, NewAligner(0)), n
}

func TestDragCoalescesIntoOneCommit(t *testing.T) {
	s, h, g, n := gestureFixture()
	if !g.Begin(n) {
		t.Fatal("Begin failed")
	}
	if g.State() != GestureDragging || g.Target() != n {
		t.Fatalf("state = %s, target = %v", g.State(), g.Target())
	}
	for i := range 30 {
		g.MoveTo(60+float64(i)*3, 60)
		// Intermediate frames never reach the history.
		h.Commit(s)
	}
	if h.Len() != 1 {
		t.Fatalf("Len = %d during drag, want 1", h.Len())
	}
	if !g.End() {
		t.Fatal("End should commit")
	}
	if h.Len() != 2 {
		t.Errorf("Len = %d after drag, want 2", h.Len())
	}
	if g.State() != GestureIdle || g.Target() != nil {
		t.Errorf("gesture should be idle after End")
	}
}

func TestDragShowsAndHidesGuides(t *testing.T) {
	s, _, g, n := gestureFixture()
	g.Begin(n)
	res := g.MoveTo(203, 60)
	if res.GuideX != GuideVCenter || n.X != 200 {
		t.Fatalf("snap = %+v, X = %v", res, n.X)
	}
	if len(s.VisibleGuides()) != 1 {
		t.Errorf("visible guides = %v", s.VisibleGuides())
	}
	g.End()
	if len(s.VisibleGuides()) != 0 {
		t.Error("guides should be hidden at drag end")
	}
}

func TestDragMoveByIsRelativeToStart(t *testing.T) {
	_, _, g, n := gestureFixture()
	g.Begin(n)
	g.MoveBy(10, 5)
	g.MoveBy(20, 5)
	if n.X != 80 || n.Y != 65 {
		t.Errorf("position = (%v, %v), want (80, 65)", n.X, n.Y)
	}
}

func TestOnlyOneDragAtATime(t *testing.T) {
	s, _, g, n := gestureFixture()
	other := NewRect("other", nil, 10, 10)
	s.AddContent(other)
	g.Begin(n)
	if g.Begin(other) {
		t.Error("second Begin should fail while dragging")
	}
	if g.Begin(nil) {
		t.Error("Begin(nil) should fail")
	}
}

func TestDragCancelDoesNotCommit(t *testing.T) {
	s, h, g, n := gestureFixture()
	x0, y0 := n.X, n.Y
	g.Begin(n)
	g.MoveTo(203, 60)
	g.Cancel()
	if n.X != x0 || n.Y != y0 {
		t.Errorf("after Cancel = (%v, %v), want start (%v, %v)", n.X, n.Y, x0, y0)
	}
	if h.Len() != 1 {
		t.Errorf("Len = %d, want 1", h.Len())
	}
	if h.Suppressed() {
		t.Error("Cancel must release the history hold")
	}
	if len(s.VisibleGuides()) != 0 {
		t.Error("Cancel should hide guides")
	}
	if g.End() {
		t.Error("End after Cancel should do nothing")
	}
}

func TestDragDisposedTargetIgnored(t *testing.T) {
	_, _, g, n := gestureFixture()
	g.Begin(n)
	n.Dispose()
	if res := g.MoveTo(200, 300); res.Snapped() {
		t.Error("disposed target must not be moved")
	}
	g.Cancel()
}

func TestGestureStateString(t *testing.T) {
	for st, want := range map[GestureState]string{
		GestureIdle:       "idle",
		GestureDragging:   "dragging",
		GestureCommitting: "committing",
		GestureState(9):   "unknown",
	} {
		if st.String() != want {
			t.Errorf("%d.String() = %q, want %q", st, st.String(), want)
		}
	}
}
