package badgekit

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func assertNear(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > epsilon {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func assertMatrix(t *testing.T, name string, got, want Affine) {
	t.Helper()
	for i := range 6 {
		if math.Abs(got[i]-want[i]) > epsilon {
			t.Errorf("%s[%d] = %v, want %v (full: %v)", name, i, got[i], want[i], got)
			return
		}
	}
}

func assertRect(t *testing.T, name string, got, want Rect) {
	t.Helper()
	if math.Abs(got.X-want.X) > 1e-6 || math.Abs(got.Y-want.Y) > 1e-6 ||
		math.Abs(got.Width-want.Width) > 1e-6 || math.Abs(got.Height-want.Height) > 1e-6 {
		t.Errorf("%s = %+v, want %+v", name, got, want)
	}
}

// --- Local transform ---

func TestLocalTransformIdentity(t *testing.T) {
	n := NewRect("n", nil, 10, 10)
	assertMatrix(t, "local", n.LocalMatrix(), Identity)
}

func TestLocalTransformTranslation(t *testing.T) {
	n := NewRect("n", nil, 10, 10)
	n.SetPosition(30, 40)
	assertMatrix(t, "local", n.LocalMatrix(), Affine{1, 0, 0, 1, 30, 40})
}

func TestLocalTransformScale(t *testing.T) {
	n := NewRect("n", nil, 10, 10)
	n.SetScale(2, 3)
	assertMatrix(t, "local", n.LocalMatrix(), Affine{2, 0, 0, 3, 0, 0})
}

func TestLocalTransformCenterOrigin(t *testing.T) {
	n := NewRect("n", nil, 20, 10)
	n.SetOrigin(OriginCenter, OriginMiddle)
	n.SetPosition(100, 50)
	x, y := n.LocalToCanvas(10, 5)
	assertNear(t, "anchor x", x, 100)
	assertNear(t, "anchor y", y, 50)
	x, y = n.LocalToCanvas(0, 0)
	assertNear(t, "corner x", x, 90)
	assertNear(t, "corner y", y, 45)
}

func TestLocalTransformRotation90(t *testing.T) {
	n := NewRect("n", nil, 10, 10)
	n.Angle = 90
	// Rotating (10, 0) by 90 degrees clockwise in y-down space lands on (0, 10).
	x, y := n.LocalToCanvas(10, 0)
	assertNear(t, "x", x, 0)
	assertNear(t, "y", y, 10)
}

func TestRotationAboutCenterAnchor(t *testing.T) {
	n := NewRect("n", nil, 20, 20)
	n.SetOrigin(OriginCenter, OriginMiddle)
	n.SetPosition(50, 50)
	n.Angle = 45
	x, y := n.LocalToCanvas(10, 10)
	assertNear(t, "anchor x", x, 50)
	assertNear(t, "anchor y", y, 50)
}

// --- Affine math ---

func TestAffineMulIdentity(t *testing.T) {
	m := Affine{2, 1, -1, 3, 5, 7}
	assertMatrix(t, "I*m", Identity.Mul(m), m)
	assertMatrix(t, "m*I", m.Mul(Identity), m)
}

func TestAffineMulTranslations(t *testing.T) {
	got := translateAffine(10, 20).Mul(translateAffine(5, 7))
	assertMatrix(t, "sum", got, translateAffine(15, 27))
}

func TestAffineInvert(t *testing.T) {
	m := Affine{2, 0.5, -1, 3, 10, -4}
	assertMatrix(t, "m*inv", m.Mul(m.Invert()), Identity)
}

func TestAffineInvertSingularReturnsIdentity(t *testing.T) {
	assertMatrix(t, "inv", Affine{0, 0, 0, 0, 5, 5}.Invert(), Identity)
}

func TestScaleFactor(t *testing.T) {
	assertNear(t, "uniform", scaleAffine(4, 4).ScaleFactor(), 4)
	assertNear(t, "mixed", scaleAffine(2, 8).ScaleFactor(), 4)
}

// --- World transform ---

func TestWorldTransformParentChild(t *testing.T) {
	child := NewRect("child", nil, 10, 10)
	child.SetPosition(5, 5)
	parent := NewGroup("parent", child)
	parent.SetPosition(100, 200)

	x, y := child.LocalToCanvas(0, 0)
	// The group anchors top-left of its children's union, which starts at (5, 5).
	assertNear(t, "x", x, 100)
	assertNear(t, "y", y, 200)
}

func TestCanvasToLocalRoundTrip(t *testing.T) {
	n := NewRect("n", nil, 40, 20)
	n.SetOrigin(OriginCenter, OriginMiddle)
	n.SetPosition(120, 80)
	n.SetScale(1.5, 0.75)
	n.Angle = 30
	lx, ly := n.CanvasToLocal(n.LocalToCanvas(7, 13))
	assertNear(t, "lx", lx, 7)
	assertNear(t, "ly", ly, 13)
}

// --- Bounding boxes ---

func TestBoundingBoxLeafTopLeft(t *testing.T) {
	n := NewRect("n", nil, 20, 10)
	n.SetPosition(5, 6)
	n.SetScale(2, 3)
	box, ok := BoundingBox(n)
	if !ok {
		t.Fatal("leaf should have a box")
	}
	assertRect(t, "box", box, Rect{X: 5, Y: 6, Width: 40, Height: 30})
}

func TestBoundingBoxLeafCentered(t *testing.T) {
	n := NewRect("n", nil, 20, 10)
	n.SetOrigin(OriginCenter, OriginMiddle)
	n.SetPosition(100, 100)
	box, _ := BoundingBox(n)
	assertRect(t, "box", box, Rect{X: 90, Y: 95, Width: 20, Height: 10})
	c := box.Center()
	assertNear(t, "cx", c.X, 100)
	assertNear(t, "cy", c.Y, 100)
}

func TestBoundingBoxRotated(t *testing.T) {
	n := NewRect("n", nil, 20, 10)
	n.SetOrigin(OriginCenter, OriginMiddle)
	n.SetPosition(0, 0)
	n.Angle = 90
	box, _ := BoundingBox(n)
	assertRect(t, "box", box, Rect{X: -5, Y: -10, Width: 10, Height: 20})
}

func TestBoundingBoxGroupUnion(t *testing.T) {
	a := NewRect("a", nil, 10, 10)
	b := NewRect("b", nil, 10, 10)
	b.SetPosition(30, 20)
	g := NewGroup("g", a, b)
	g.SetPosition(100, 100)
	box, ok := BoundingBox(g)
	if !ok {
		t.Fatal("group with children should have a box")
	}
	assertRect(t, "box", box, Rect{X: 100, Y: 100, Width: 40, Height: 30})
}

func TestBoundingBoxGroupCenteredScaled(t *testing.T) {
	a := NewRect("a", nil, 10, 10)
	b := NewRect("b", nil, 10, 10)
	b.SetPosition(30, 20)
	g := NewGroup("g", a, b)
	g.SetOrigin(OriginCenter, OriginMiddle)
	g.SetPosition(200, 300)
	g.SetScale(2, 2)
	box, _ := BoundingBox(g)
	assertRect(t, "box", box, Rect{X: 160, Y: 270, Width: 80, Height: 60})
}

func TestBoundingBoxEmptyGroup(t *testing.T) {
	if _, ok := BoundingBox(NewGroup("empty")); ok {
		t.Error("empty group should have no box")
	}
}

func TestTranslateMovesGroupAsUnit(t *testing.T) {
	a := NewRect("a", nil, 10, 10)
	b := NewRect("b", nil, 10, 10)
	b.SetPosition(30, 0)
	g := NewGroup("g", a, b)
	before, _ := BoundingBox(g)

	Translate(g, 12, -4)

	after, _ := BoundingBox(g)
	assertNear(t, "dx", after.X-before.X, 12)
	assertNear(t, "dy", after.Y-before.Y, -4)
	if b.X != 30 || b.Y != 0 {
		t.Errorf("child moved relative to group: (%v, %v)", b.X, b.Y)
	}
	if g.ScaleX != 1 || g.ScaleY != 1 {
		t.Error("Translate must not touch scale")
	}
}

func TestRectUnionAndContains(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 10, Height: 10}.Union(Rect{X: 20, Y: 5, Width: 5, Height: 10})
	assertRect(t, "union", r, Rect{X: 0, Y: 0, Width: 25, Height: 15})
	if !r.Contains(25, 15) {
		t.Error("edge point should be inside")
	}
	if r.Contains(25.1, 0) {
		t.Error("point past the edge should be outside")
	}
}

// --- Benchmarks ---

func BenchmarkBoundingBoxGroup(b *testing.B) {
	g := NewGroup("g")
	for i := range 12 {
		c := NewRect("c", nil, 26, 26)
		c.SetPosition(float64(i%3)*32, float64(i/3)*32)
		g.AddChild(c)
	}
	g.SetOrigin(OriginCenter, OriginMiddle)
	b.ReportAllocs()
	for b.Loop() {
		BoundingBox(g)
	}
}
