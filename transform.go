package badgekit

import "math"

// Affine is a 2D affine matrix laid out as [a, b, c, d, tx, ty]:
//
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
type Affine [6]float64

// Identity is the identity affine matrix.
var Identity = Affine{1, 0, 0, 1, 0, 0}

// Mul returns m * o (o is applied first).
func (m Affine) Mul(o Affine) Affine {
	return Affine{
		m[0]*o[0] + m[2]*o[1],
		m[1]*o[0] + m[3]*o[1],
		m[0]*o[2] + m[2]*o[3],
		m[1]*o[2] + m[3]*o[3],
		m[0]*o[4] + m[2]*o[5] + m[4],
		m[1]*o[4] + m[3]*o[5] + m[5],
	}
}

// Apply maps the point (x, y) through m.
func (m Affine) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// Invert computes the inverse of m.
// Returns the identity matrix if m is singular (determinant ≈ 0).
func (m Affine) Invert() Affine {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return Identity
	}
	invDet := 1.0 / det
	a := m[3] * invDet
	b := -m[1] * invDet
	c := -m[2] * invDet
	d := m[0] * invDet
	return Affine{
		a, b, c, d,
		-(a*m[4] + c*m[5]),
		-(b*m[4] + d*m[5]),
	}
}

// ScaleFactor returns the geometric mean of the matrix axis scales.
func (m Affine) ScaleFactor() float64 {
	return math.Sqrt(math.Abs(m[0]*m[3] - m[2]*m[1]))
}

func scaleAffine(sx, sy float64) Affine {
	return Affine{sx, 0, 0, sy, 0, 0}
}

func translateAffine(tx, ty float64) Affine {
	return Affine{1, 0, 0, 1, tx, ty}
}

// localBounds returns the node's box in its own unscaled coordinate space.
// For groups this is the union of the children's boxes; an empty group has
// no bounds.
func localBounds(n *Node) (Rect, bool) {
	if n.Kind != KindGroup {
		return Rect{Width: n.Width, Height: n.Height}, true
	}
	var out Rect
	found := false
	for _, c := range n.children {
		b, ok := BoundingBox(c)
		if !ok {
			continue
		}
		if !found {
			out = b
			found = true
			continue
		}
		out = out.Union(b)
	}
	return out, found
}

// anchorPoint returns the local point that X/Y refer to.
func anchorPoint(n *Node, lb Rect) (float64, float64) {
	return lb.X + n.OriginX.fraction()*lb.Width, lb.Y + n.OriginY.fraction()*lb.Height
}

// computeLocalTransform computes the matrix mapping the node's local space
// into its parent's space.
//
// Composition order:
//
//	Translate(-anchor) -> Scale -> Rotate -> Translate(X, Y)
func computeLocalTransform(n *Node, lb Rect) Affine {
	ax, ay := anchorPoint(n, lb)
	sin, cos := math.Sincos(n.Angle * math.Pi / 180)
	a := cos * n.ScaleX
	b := sin * n.ScaleX
	c := -sin * n.ScaleY
	d := cos * n.ScaleY
	return Affine{a, b, c, d, n.X - (a*ax + c*ay), n.Y - (b*ax + d*ay)}
}

// LocalMatrix returns the node's local transform. Empty groups use a zero
// box and therefore anchor at their position.
func (n *Node) LocalMatrix() Affine {
	lb, _ := localBounds(n)
	return computeLocalTransform(n, lb)
}

// WorldMatrix returns the transform from the node's local space to canvas
// space, composing every ancestor below the scene root.
func (n *Node) WorldMatrix() Affine {
	m := n.LocalMatrix()
	for p := n.Parent; p != nil && !p.sceneRoot; p = p.Parent {
		m = p.LocalMatrix().Mul(m)
	}
	return m
}

// BoundingBox returns the axis-aligned box of n in its parent's space.
// Leaves use size*scale anchored per origin; groups map the union of their
// children through their own transform. Rotation is accounted for by
// boxing the transformed corners. ok is false for an empty group.
func BoundingBox(n *Node) (box Rect, ok bool) {
	lb, ok := localBounds(n)
	if !ok {
		return Rect{}, false
	}
	m := computeLocalTransform(n, lb)
	xs := [4]float64{}
	ys := [4]float64{}
	xs[0], ys[0] = m.Apply(lb.X, lb.Y)
	xs[1], ys[1] = m.Apply(lb.X+lb.Width, lb.Y)
	xs[2], ys[2] = m.Apply(lb.X+lb.Width, lb.Y+lb.Height)
	xs[3], ys[3] = m.Apply(lb.X, lb.Y+lb.Height)
	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := 1; i < 4; i++ {
		minX = math.Min(minX, xs[i])
		maxX = math.Max(maxX, xs[i])
		minY = math.Min(minY, ys[i])
		maxY = math.Max(maxY, ys[i])
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// Translate moves the node by (dx, dy) in its parent's space. Groups move as
// a unit; children keep their relative offsets. Scale is never touched.
func Translate(n *Node, dx, dy float64) {
	n.X += dx
	n.Y += dy
}

// --- Transform property setters ---

// SetPosition sets the node's anchor position.
func (n *Node) SetPosition(x, y float64) {
	n.X = x
	n.Y = y
}

// SetScale sets the node's ScaleX and ScaleY.
func (n *Node) SetScale(sx, sy float64) {
	n.ScaleX = sx
	n.ScaleY = sy
}

// SetOrigin changes which point of the box X/Y refer to without moving the
// stored coordinates.
func (n *Node) SetOrigin(ox OriginX, oy OriginY) {
	n.OriginX = ox
	n.OriginY = oy
}

// --- Coordinate conversion ---

// CanvasToLocal converts a canvas-space point to this node's local space.
func (n *Node) CanvasToLocal(x, y float64) (lx, ly float64) {
	return n.WorldMatrix().Invert().Apply(x, y)
}

// LocalToCanvas converts a local-space point to canvas space.
func (n *Node) LocalToCanvas(lx, ly float64) (x, y float64) {
	return n.WorldMatrix().Apply(lx, ly)
}
