package badgekit

import (
	"testing"
)

func ptr[T any](v T) *T { return &v }

func newTestScene() *Scene {
	return NewScene(DefaultCanvasWidth, DefaultCanvasHeight)
}

func TestAddContentIndexesByName(t *testing.T) {
	s := newTestScene()
	n := NewRect("a", nil, 10, 10)
	s.AddContent(n)
	if s.Content("a") != n {
		t.Error("Content(a) should return the node")
	}
	if s.Content("missing") != nil {
		t.Error("unknown name should return nil")
	}
}

func TestAddContentReplacesInPlace(t *testing.T) {
	s := newTestScene()
	s.AddContent(NewRect("a", nil, 1, 1))
	old := NewRect("b", nil, 1, 1)
	s.AddContent(old)
	s.AddContent(NewRect("c", nil, 1, 1))

	repl := NewRect("b", nil, 2, 2)
	s.AddContent(repl)

	if !old.IsDisposed() {
		t.Error("replaced node should be disposed")
	}
	nodes := s.ContentNodes()
	if len(nodes) != 3 {
		t.Fatalf("len(ContentNodes) = %d, want 3", len(nodes))
	}
	if nodes[1] != repl {
		t.Errorf("replacement should keep draw position 1, got %q at 1", nodes[1].Name)
	}
}

func TestAddContentUnnamedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unnamed content")
		}
	}()
	newTestScene().AddContent(NewRect("", nil, 1, 1))
}

func TestTrackPositionsExcludesGuidesAndBackground(t *testing.T) {
	s := newTestScene()
	n := NewRect("a", nil, 10, 10)
	n.SetPosition(5, 6)
	s.AddContent(n)
	s.Guide(GuideVCenter)

	l := s.TrackPositions()
	if len(l) != 1 {
		t.Fatalf("TrackPositions = %v, want only content", l)
	}
	if got := l["a"]; got.Left != 5 || got.Top != 6 {
		t.Errorf("a = %+v, want left 5 top 6", got)
	}
}

func TestApplyLayoutIgnoresUnknownNames(t *testing.T) {
	s := newTestScene()
	s.AddContent(NewRect("a", nil, 10, 10))
	s.ApplyLayout(Layout{
		"a":     centered(50, 60),
		"ghost": centered(1, 1),
	})
	n := s.Content("a")
	if n.X != 50 || n.Y != 60 || n.OriginX != OriginCenter {
		t.Errorf("a not updated: %+v", TransformOf(n))
	}
	if s.Content("ghost") != nil {
		t.Error("ApplyLayout must not create nodes")
	}
}

func TestRebuildPriority(t *testing.T) {
	s := newTestScene()
	defaults := Layout{
		"live":      centered(1, 1),
		"persisted": centered(2, 2),
		"fresh":     centered(3, 3),
	}
	live := NewRect("live", nil, 10, 10)
	s.AddContent(live)
	live.SetPosition(111, 111)

	persisted := PersistedLayout{
		"live":      {Left: ptr(999.0)},
		"persisted": {Left: ptr(222.0)},
	}
	s.Rebuild([]*Node{
		NewRect("live", nil, 10, 10),
		NewRect("persisted", nil, 10, 10),
		NewRect("fresh", nil, 10, 10),
	}, persisted, defaults)

	if n := s.Content("live"); n.X != 111 || n.Y != 111 {
		t.Errorf("live = (%v, %v), want in-memory (111, 111)", n.X, n.Y)
	}
	if n := s.Content("persisted"); n.X != 222 || n.Y != 2 {
		t.Errorf("persisted = (%v, %v), want (222, 2) with top from defaults", n.X, n.Y)
	}
	if n := s.Content("fresh"); n.X != 3 || n.Y != 3 {
		t.Errorf("fresh = (%v, %v), want defaults (3, 3)", n.X, n.Y)
	}
	if !live.IsDisposed() {
		t.Error("old node should be disposed by Rebuild")
	}
}

func TestRebuildDropsMissingNodes(t *testing.T) {
	s := newTestScene()
	s.AddContent(NewRect("a", nil, 1, 1))
	s.AddContent(NewRect("b", nil, 1, 1))
	s.Rebuild([]*Node{NewRect("a", nil, 1, 1)}, nil, nil)
	if s.Content("b") != nil {
		t.Error("b should be gone after rebuild")
	}
	if len(s.ContentNodes()) != 1 {
		t.Errorf("len(ContentNodes) = %d, want 1", len(s.ContentNodes()))
	}
}

func TestRebuildKeepsGuides(t *testing.T) {
	s := newTestScene()
	g := s.Guide(GuideHCenter)
	s.Rebuild([]*Node{NewRect("a", nil, 1, 1)}, nil, nil)
	if s.Guide(GuideHCenter) != g || g.IsDisposed() {
		t.Error("guides must survive a rebuild")
	}
}

func TestHitTestTopmostSelectable(t *testing.T) {
	s := newTestScene()
	bottom := NewRect("bottom", nil, 100, 100)
	bottom.Selectable = true
	top := NewRect("top", nil, 50, 50)
	top.Selectable = true
	s.AddContent(bottom)
	s.AddContent(top)

	if got := s.HitTest(10, 10); got != top {
		t.Errorf("HitTest(10,10) = %v, want top", got)
	}
	if got := s.HitTest(80, 80); got != bottom {
		t.Errorf("HitTest(80,80) = %v, want bottom", got)
	}
	top.Selectable = false
	if got := s.HitTest(10, 10); got != bottom {
		t.Errorf("non-selectable node should be skipped, got %v", got)
	}
	if got := s.HitTest(300, 300); got != nil {
		t.Errorf("HitTest on empty canvas = %v, want nil", got)
	}
}

func TestSceneDispose(t *testing.T) {
	s := newTestScene()
	n := NewRect("a", nil, 1, 1)
	s.AddContent(n)
	g := s.Guide(GuideVCenter)
	s.Dispose()
	if !s.IsDisposed() || !n.IsDisposed() || !g.IsDisposed() {
		t.Error("scene, content and guides should be disposed")
	}
	s.Dispose() // idempotent
}

func TestBuildContentNames(t *testing.T) {
	c := BadgeContent{Fields: []string{"Ada", "Engineer"}, Zones: []Zone{{Name: "lab", Member: true}}}
	nodes := BuildContent(c, Assets{}, 1, DefaultConfig())
	want := []string{NameUserPhoto, "textValue_0", "textValue_1", "textValue_2", NameQRCode, NameZoneGroup}
	if len(nodes) != len(want) {
		t.Fatalf("got %d nodes, want %d", len(nodes), len(want))
	}
	for i, n := range nodes {
		if n.Name != want[i] {
			t.Errorf("node %d = %q, want %q", i, n.Name, want[i])
		}
		if !n.Selectable {
			t.Errorf("%s should be selectable", n.Name)
		}
	}
	zg := nodes[5]
	if zg.NumChildren() != 2 {
		t.Fatalf("zone group children = %d, want cell and label", zg.NumChildren())
	}
	if zg.Children()[1].Name != "labLabel" || zg.Children()[1].Text != "LAB" {
		t.Errorf("zone label = %q %q", zg.Children()[1].Name, zg.Children()[1].Text)
	}
}

func TestBuildContentScalesWithMultiplier(t *testing.T) {
	c := BadgeContent{Fields: []string{"Ada"}}
	one := BuildContent(c, Assets{}, 1, DefaultConfig())
	four := BuildContent(c, Assets{}, 4, DefaultConfig())
	for i := range one {
		if four[i].X != one[i].X*4 || four[i].Y != one[i].Y*4 {
			t.Errorf("%s position (%v,%v) not 4x (%v,%v)", one[i].Name, four[i].X, four[i].Y, one[i].X, one[i].Y)
		}
		if four[i].Kind == KindImage && four[i].Width != one[i].Width*4 {
			t.Errorf("%s width %v not 4x %v", one[i].Name, four[i].Width, one[i].Width)
		}
	}
	if four[1].FontSize != 96 {
		t.Errorf("textValue_0 font size = %v, want 96", four[1].FontSize)
	}
}

func TestDefaultLayoutOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Defaults = Layout{NameQRCode: centered(10, 20)}
	l := DefaultLayout(cfg)
	if l[NameQRCode].Left != 10 {
		t.Errorf("override not applied: %+v", l[NameQRCode])
	}
	if l[NameUserPhoto].Left != 200 {
		t.Errorf("photo default = %+v, want left 200", l[NameUserPhoto])
	}
	if DefaultLayout(DefaultConfig())[NameQRCode].Left != 155 {
		t.Error("override leaked into compiled defaults")
	}
}
