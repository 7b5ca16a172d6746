package badgekit

import (
	"image"
	"log/slog"
)

// Scene is the top-level object that owns the canvas, the background, the
// named content nodes and the alignment guides.
//
// Content nodes are indexed by name. Persistence, history and content
// refreshes all join on that name, never on node identity.
type Scene struct {
	Width, Height float64

	root       *Node
	background *Node
	content    map[string]*Node
	guides     []*Node
	logger     *slog.Logger
	debug      bool
	disposed   bool
}

// NewScene creates an empty scene with the given canvas size.
func NewScene(width, height float64) *Scene {
	root := NewGroup("")
	root.sceneRoot = true
	bg := NewImage("", nil, width, height)
	bg.Parent = root
	return &Scene{
		Width:      width,
		Height:     height,
		root:       root,
		background: bg,
		content:    make(map[string]*Node),
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger used for absorbed per-node failures.
func (s *Scene) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Root returns the scene's root container node.
func (s *Scene) Root() *Node {
	return s.root
}

// Background returns the decorative background node. It is never part of
// the content set.
func (s *Scene) Background() *Node {
	return s.background
}

// SetBackground replaces the background bitmap. nil clears it.
func (s *Scene) SetBackground(img image.Image) {
	s.background.Image = img
}

// AddContent adds a named node to the scene. A node already registered
// under the same name is disposed and replaced in place.
// Panics if n has no name.
func (s *Scene) AddContent(n *Node) {
	if n.Name == "" {
		panic("badgekit: content node must have a name")
	}
	if old, ok := s.content[n.Name]; ok && old != n {
		idx := indexOf(s.root.children, old)
		old.Dispose()
		s.content[n.Name] = n
		if idx >= 0 {
			if n.Parent != nil {
				n.Parent.removeChildByPtr(n)
			}
			n.Parent = s.root
			s.root.children = append(s.root.children, nil)
			copy(s.root.children[idx+1:], s.root.children[idx:])
			s.root.children[idx] = n
			return
		}
	}
	s.content[n.Name] = n
	s.root.AddChild(n)
}

// Content returns the content node with the given name, or nil.
func (s *Scene) Content(name string) *Node {
	return s.content[name]
}

// ContentNodes returns the content nodes in draw order.
func (s *Scene) ContentNodes() []*Node {
	out := make([]*Node, 0, len(s.content))
	for _, c := range s.root.children {
		if c.Name != "" && s.content[c.Name] == c {
			out = append(out, c)
		}
	}
	return out
}

// RemoveContent disposes the named content node. Reports whether it existed.
func (s *Scene) RemoveContent(name string) bool {
	n, ok := s.content[name]
	if !ok {
		return false
	}
	delete(s.content, name)
	n.Dispose()
	return true
}

// ClearContent disposes every content node. Guides are kept.
func (s *Scene) ClearContent() {
	for name, n := range s.content {
		n.Dispose()
		delete(s.content, name)
	}
}

// TrackPositions captures the transform of every content node, keyed by name.
// Guides and the background are excluded.
func (s *Scene) TrackPositions() Layout {
	out := make(Layout, len(s.content))
	for name, n := range s.content {
		out[name] = TransformOf(n)
	}
	return out
}

// ApplyLayout writes every entry of l onto the content node of the same name.
// Nodes without an entry keep their transform; entries without a node are
// ignored.
func (s *Scene) ApplyLayout(l Layout) {
	for name, t := range l {
		if n, ok := s.content[name]; ok {
			t.ApplyTo(n)
		}
	}
}

// Rebuild replaces the content set with nodes. Each new node is positioned
// from, in priority order: the in-memory transform of the current node with
// the same name, the persisted entry, or the compiled default. A node found
// in none of them keeps the transform it was built with.
func (s *Scene) Rebuild(nodes []*Node, persisted PersistedLayout, defaults Layout) {
	current := s.TrackPositions()
	s.ClearContent()
	for _, n := range nodes {
		if t, ok := current[n.Name]; ok {
			t.ApplyTo(n)
		} else if p, ok := persisted[n.Name]; ok {
			def, ok := defaults[n.Name]
			if !ok {
				def = TransformOf(n)
			}
			p.Resolve(def).ApplyTo(n)
		} else if d, ok := defaults[n.Name]; ok {
			d.ApplyTo(n)
		}
		s.AddContent(n)
		if s.debug {
			debugCheckTree(s.logger, n)
		}
	}
}

// HitTest returns the topmost selectable content node whose bounding box
// contains the canvas point (x, y), or nil.
func (s *Scene) HitTest(x, y float64) *Node {
	nodes := s.ContentNodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if !n.Visible || !n.Selectable {
			continue
		}
		if box, ok := BoundingBox(n); ok && box.Contains(x, y) {
			return n
		}
	}
	return nil
}

// Dispose tears down every node owned by the scene.
func (s *Scene) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true
	s.ClearContent()
	for _, g := range s.guides {
		g.Dispose()
	}
	s.guides = nil
	s.background.dispose()
	s.root.Dispose()
}

// IsDisposed reports whether Dispose has been called.
func (s *Scene) IsDisposed() bool {
	return s.disposed
}

func indexOf(nodes []*Node, n *Node) int {
	for i, c := range nodes {
		if c == n {
			return i
		}
	}
	return -1
}
