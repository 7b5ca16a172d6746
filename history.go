package badgekit

// DefaultHistoryCapacity is the number of snapshots kept before the oldest
// is evicted.
const DefaultHistoryCapacity = 50

// History is a snapshot-based linear undo/redo stack over a scene's content
// transforms.
//
// Invariants: cursor is -1 when empty and otherwise a valid index; the stack
// never holds more than capacity entries; committing while the cursor is not
// at the tail discards everything after it.
type History struct {
	entries  []Layout
	cursor   int
	capacity int

	restoring bool
	holds     int
}

// NewHistory creates an empty history. capacity <= 0 uses
// DefaultHistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{cursor: -1, capacity: capacity}
}

// Commit snapshots every content node of s and appends it after the cursor.
// Returns false without recording anything while suppressed.
func (h *History) Commit(s *Scene) bool {
	if h.Suppressed() {
		return false
	}
	snap := s.TrackPositions()
	if h.cursor < len(h.entries)-1 {
		clear(h.entries[h.cursor+1:])
		h.entries = h.entries[:h.cursor+1]
	}
	h.entries = append(h.entries, snap)
	if len(h.entries) > h.capacity {
		// Evict oldest.
		copy(h.entries, h.entries[1:])
		h.entries[len(h.entries)-1] = nil
		h.entries = h.entries[:len(h.entries)-1]
	}
	h.cursor = len(h.entries) - 1
	return true
}

// Undo steps back one snapshot and restores it onto s. No-op at the start.
func (h *History) Undo(s *Scene) bool {
	if h.cursor <= 0 {
		return false
	}
	h.cursor--
	h.restore(s, h.entries[h.cursor])
	return true
}

// Redo steps forward one snapshot and restores it onto s. No-op at the tail.
func (h *History) Redo(s *Scene) bool {
	if h.cursor >= len(h.entries)-1 {
		return false
	}
	h.cursor++
	h.restore(s, h.entries[h.cursor])
	return true
}

// restore applies snap with commits suppressed. Nodes missing from snap keep
// their transform.
func (h *History) restore(s *Scene, snap Layout) {
	h.restoring = true
	defer func() { h.restoring = false }()
	s.ApplyLayout(snap)
}

// Hold suppresses commits until a matching Release. Drag gestures hold the
// history so intermediate frames never become entries.
func (h *History) Hold() {
	h.holds++
}

// Release ends one Hold.
func (h *History) Release() {
	if h.holds > 0 {
		h.holds--
	}
}

// Suppressed reports whether Commit is currently a no-op.
func (h *History) Suppressed() bool {
	return h.restoring || h.holds > 0
}

// Len returns the number of stored snapshots.
func (h *History) Len() int {
	return len(h.entries)
}

// Cursor returns the index of the current snapshot, or -1 when empty.
func (h *History) Cursor() int {
	return h.cursor
}

// CanUndo reports whether Undo would change anything.
func (h *History) CanUndo() bool {
	return h.cursor > 0
}

// CanRedo reports whether Redo would change anything.
func (h *History) CanRedo() bool {
	return h.cursor < len(h.entries)-1
}

// At returns a copy of the snapshot at index i.
func (h *History) At(i int) Layout {
	return h.entries[i].Clone()
}

// Reset drops every snapshot.
func (h *History) Reset() {
	clear(h.entries)
	h.entries = h.entries[:0]
	h.cursor = -1
	h.holds = 0
}
