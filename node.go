package badgekit

import (
	"image"
	"image/color"
	"sync/atomic"
)

// --- ID counter ---

// Export scenes are built off the update goroutine, so IDs are atomic.
var nodeIDCounter atomic.Uint32

func nextNodeID() uint32 {
	return nodeIDCounter.Add(1)
}

// --- Node ---

// Node is the fundamental scene element. A single flat struct is used for
// every kind so the alignment, history and animation code paths never need
// to branch on concrete types.
//
// X and Y locate the node's anchor point (see OriginX/OriginY) in its
// parent's coordinate space. Angle is in degrees and rotates about the
// anchor.
type Node struct {
	// Identity
	ID   uint32
	Name string
	Kind Kind

	// Hierarchy
	Parent   *Node
	children []*Node

	// Transform (local)
	X, Y    float64
	OriginX OriginX
	OriginY OriginY
	ScaleX  float64
	ScaleY  float64
	Angle   float64

	// Visibility & interaction
	Opacity    float64
	Visible    bool
	Selectable bool

	// Intrinsic size of leaf nodes, before scaling.
	Width, Height float64

	// Image fields (KindImage). A nil Image with a Fill draws a solid
	// rectangle; nil for both leaves the slot empty.
	Image      image.Image
	Fill       color.Color
	ClipCircle bool

	// Text fields (KindText)
	Text      string
	FontSize  float64
	TextColor color.Color

	// DefaultScaleX/Y record the scale a node was designed at. Zero means
	// unknown; reset then falls back to the photo slot policy.
	DefaultScaleX float64
	DefaultScaleY float64

	guide     bool
	sceneRoot bool
	disposed  bool
}

// nodeDefaults sets the common default field values shared by all constructors.
func nodeDefaults(n *Node) {
	n.ID = nextNodeID()
	n.ScaleX = 1
	n.ScaleY = 1
	n.Opacity = 1
	n.Visible = true
	n.OriginX = OriginLeft
	n.OriginY = OriginTop
}

// NewImage creates an image node of the given intrinsic size. img may be nil
// while the bitmap is still loading.
func NewImage(name string, img image.Image, width, height float64) *Node {
	n := &Node{Name: name, Kind: KindImage, Image: img, Width: width, Height: height}
	nodeDefaults(n)
	return n
}

// NewRect creates an image node drawn as a solid rectangle.
func NewRect(name string, fill color.Color, width, height float64) *Node {
	n := &Node{Name: name, Kind: KindImage, Fill: fill, Width: width, Height: height}
	nodeDefaults(n)
	return n
}

// NewText creates a text node. Its intrinsic size is measured from the
// built-in face at the given font size.
func NewText(name, text string, fontSize float64) *Node {
	n := &Node{
		Name:      name,
		Kind:      KindText,
		Text:      text,
		FontSize:  fontSize,
		TextColor: color.Black,
	}
	nodeDefaults(n)
	n.measure()
	return n
}

// NewGroup creates a group node containing children. Children positions are
// expressed in the group's local space.
func NewGroup(name string, children ...*Node) *Node {
	n := &Node{Name: name, Kind: KindGroup}
	nodeDefaults(n)
	for _, c := range children {
		n.AddChild(c)
	}
	return n
}

// SetText replaces the text content and re-measures the node.
func (n *Node) SetText(text string) {
	n.Text = text
	n.measure()
}

// SetFontSize changes the font size and re-measures the node.
func (n *Node) SetFontSize(size float64) {
	n.FontSize = size
	n.measure()
}

func (n *Node) measure() {
	if n.Kind != KindText {
		return
	}
	n.Width, n.Height = measureText(n.Text, n.FontSize)
}

// IsGuide reports whether n is an alignment guide rather than content.
func (n *Node) IsGuide() bool {
	return n.guide
}

// --- Tree manipulation ---

// AddChild appends child to this node's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil or child is an ancestor of this node (cycle).
func (n *Node) AddChild(child *Node) {
	if child == nil {
		panic("badgekit: cannot add nil child")
	}
	if globalDebug {
		debugCheckDisposed(n, "AddChild (parent)")
		debugCheckDisposed(child, "AddChild (child)")
	}
	if isAncestor(child, n) {
		panic("badgekit: adding child would create a cycle")
	}
	if child.Parent != nil {
		child.Parent.removeChildByPtr(child)
	}
	child.Parent = n
	n.children = append(n.children, child)
}

// RemoveChild detaches child from this node.
// Panics if child.Parent != n.
func (n *Node) RemoveChild(child *Node) {
	if child.Parent != n {
		panic("badgekit: child's parent is not this node")
	}
	n.removeChildByPtr(child)
	child.Parent = nil
}

// RemoveFromParent detaches this node from its parent.
// No-op if this node has no parent.
func (n *Node) RemoveFromParent() {
	if n.Parent == nil {
		return
	}
	n.Parent.RemoveChild(n)
}

// Children returns the child list. The returned slice MUST NOT be mutated by the caller.
func (n *Node) Children() []*Node {
	return n.children
}

// NumChildren returns the number of children.
func (n *Node) NumChildren() int {
	return len(n.children)
}

// --- Disposal ---

// Dispose removes this node from its parent, marks it as disposed,
// and recursively disposes all descendants.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	n.RemoveFromParent()
	n.dispose()
}

func (n *Node) dispose() {
	n.disposed = true
	n.ID = 0
	for _, child := range n.children {
		child.Parent = nil
		child.dispose()
	}
	n.children = nil
	n.Parent = nil
	n.Image = nil
}

// IsDisposed returns true if this node has been disposed.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// --- Helpers ---

// isAncestor reports whether candidate is an ancestor of node.
func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from n.children without clearing child.Parent.
// Uses copy+nil to avoid retaining a dangling pointer in the backing array.
func (n *Node) removeChildByPtr(child *Node) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}
