package badgekit

import (
	"image/color"
	"math"
)

// DefaultSnapThreshold is the distance in canvas units within which a
// dragged node's center snaps onto a guide.
const DefaultSnapThreshold = 15.0

// Guide names. Guides are looked up by name and created on first use.
const (
	GuideVCenter       = "guideVCenter"
	GuideLeftThird     = "guideLeftThird"
	GuideRightThird    = "guideRightThird"
	GuideHCenter       = "guideHCenter"
	GuideTopQuarter    = "guideTopQuarter"
	GuideBottomQuarter = "guideBottomQuarter"
)

// GuideAxis says which coordinate a guide constrains.
type GuideAxis uint8

const (
	AxisX GuideAxis = iota // vertical line at x = fraction * width
	AxisY                  // horizontal line at y = fraction * height
)

type guideSpec struct {
	name     string
	axis     GuideAxis
	fraction float64
}

// guideSpecs is ordered by priority within each axis: the first guide in
// range wins.
var guideSpecs = [...]guideSpec{
	{GuideVCenter, AxisX, 1.0 / 2},
	{GuideLeftThird, AxisX, 1.0 / 3},
	{GuideRightThird, AxisX, 2.0 / 3},
	{GuideHCenter, AxisY, 1.0 / 2},
	{GuideTopQuarter, AxisY, 1.0 / 4},
	{GuideBottomQuarter, AxisY, 3.0 / 4},
}

var guideColor = color.NRGBA{R: 0xff, G: 0x2d, B: 0x95, A: 0xff}

func specFor(name string) (guideSpec, bool) {
	for _, g := range guideSpecs {
		if g.name == name {
			return g, true
		}
	}
	return guideSpec{}, false
}

// GuideCoord returns the canvas coordinate of the named guide.
func (s *Scene) GuideCoord(name string) (float64, GuideAxis, bool) {
	g, ok := specFor(name)
	if !ok {
		return 0, 0, false
	}
	if g.axis == AxisX {
		return g.fraction * s.Width, AxisX, true
	}
	return g.fraction * s.Height, AxisY, true
}

// Guide returns the named guide node, creating it hidden on first use.
// Returns nil for unknown names.
func (s *Scene) Guide(name string) *Node {
	for _, g := range s.guides {
		if g.Name == name {
			return g
		}
	}
	coord, axis, ok := s.GuideCoord(name)
	if !ok {
		return nil
	}
	var g *Node
	if axis == AxisX {
		g = NewRect(name, guideColor, 1, s.Height)
		g.SetOrigin(OriginCenter, OriginTop)
		g.SetPosition(coord, 0)
	} else {
		g = NewRect(name, guideColor, s.Width, 1)
		g.SetOrigin(OriginLeft, OriginMiddle)
		g.SetPosition(0, coord)
	}
	g.guide = true
	g.Opacity = 0
	g.Parent = s.root
	s.guides = append(s.guides, g)
	return g
}

// Guides returns the guides created so far.
func (s *Scene) Guides() []*Node {
	return s.guides
}

// VisibleGuides returns the names of guides currently shown.
func (s *Scene) VisibleGuides() []string {
	var out []string
	for _, g := range s.guides {
		if g.Opacity > 0 {
			out = append(out, g.Name)
		}
	}
	return out
}

// HideGuides sets every guide's opacity to zero. Guides are not destroyed.
func (s *Scene) HideGuides() {
	for _, g := range s.guides {
		g.Opacity = 0
	}
}

// SnapResult reports what an alignment pass did.
type SnapResult struct {
	GuideX string // guide the x axis snapped to, or ""
	GuideY string // guide the y axis snapped to, or ""
	DX, DY float64
}

// Snapped reports whether either axis snapped.
func (r SnapResult) Snapped() bool {
	return r.GuideX != "" || r.GuideY != ""
}

// Aligner snaps a dragged node's bounding-box center onto the canvas guides.
type Aligner struct {
	Threshold float64
}

// NewAligner creates an aligner. threshold <= 0 uses DefaultSnapThreshold.
func NewAligner(threshold float64) *Aligner {
	if threshold <= 0 {
		threshold = DefaultSnapThreshold
	}
	return &Aligner{Threshold: threshold}
}

// Align evaluates every guide against n. For each axis the first guide whose
// coordinate lies strictly within the threshold of n's center is shown and n
// is translated so its center equals the guide coordinate. All other guides
// are hidden. A node without a bounding box (empty group) never snaps.
func (a *Aligner) Align(s *Scene, n *Node) SnapResult {
	var res SnapResult
	box, ok := BoundingBox(n)
	for _, spec := range guideSpecs {
		g := s.Guide(spec.name)
		g.Opacity = 0
		if !ok {
			continue
		}
		c := box.Center()
		if spec.axis == AxisX {
			coord := spec.fraction * s.Width
			if res.GuideX == "" && math.Abs(c.X-coord) < a.Threshold {
				res.DX = centerOn(n, AxisX, coord)
				res.GuideX = spec.name
				g.Opacity = 1
			}
		} else {
			coord := spec.fraction * s.Height
			if res.GuideY == "" && math.Abs(c.Y-coord) < a.Threshold {
				res.DY = centerOn(n, AxisY, coord)
				res.GuideY = spec.name
				g.Opacity = 1
			}
		}
	}
	return res
}

// AlignTo translates n so its center lies on the named guide regardless of
// distance. Reports false for unknown guides or nodes without a box.
func (a *Aligner) AlignTo(s *Scene, n *Node, guide string) bool {
	coord, axis, ok := s.GuideCoord(guide)
	if !ok {
		return false
	}
	if _, ok := BoundingBox(n); !ok {
		return false
	}
	centerOn(n, axis, coord)
	return true
}

// centerOn translates n along axis until its box center equals coord and
// returns the applied delta. A second pass absorbs rounding left by the
// first so the center lands on coord exactly.
func centerOn(n *Node, axis GuideAxis, coord float64) float64 {
	total := 0.0
	for range 2 {
		box, _ := BoundingBox(n)
		c := box.Center()
		var d float64
		if axis == AxisX {
			d = coord - c.X
			Translate(n, d, 0)
		} else {
			d = coord - c.Y
			Translate(n, 0, d)
		}
		total += d
		if d == 0 {
			break
		}
	}
	return total
}
