package badgekit

import "time"

// FrameFunc is called once per frame with the frame's delta. Returning false
// unregisters the callback.
type FrameFunc func(dt time.Duration) bool

// FrameHandle identifies a scheduled callback. The zero handle is never
// issued.
type FrameHandle uint64

type frameEntry struct {
	handle FrameHandle
	fn     FrameFunc
}

// Scheduler is an explicit per-frame callback loop. The host advances it
// with Step (ebiten calls it from Update, tests from a simulated clock).
// After Close no callback ever runs again, so nothing can touch a torn-down
// scene.
type Scheduler struct {
	entries  []frameEntry
	next     FrameHandle
	now      time.Duration
	closed   bool
	stepping bool
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule registers fn to run from the next Step. Returns 0 when closed.
func (s *Scheduler) Schedule(fn FrameFunc) FrameHandle {
	if s.closed || fn == nil {
		return 0
	}
	s.next++
	s.entries = append(s.entries, frameEntry{handle: s.next, fn: fn})
	return s.next
}

// Cancel unregisters a callback. Unknown handles are ignored.
func (s *Scheduler) Cancel(h FrameHandle) {
	for i := range s.entries {
		if s.entries[i].handle == h {
			s.entries[i].fn = nil
			return
		}
	}
}

// CancelAll unregisters every callback.
func (s *Scheduler) CancelAll() {
	for i := range s.entries {
		s.entries[i].fn = nil
	}
	s.compact()
}

// Step advances the clock by dt and runs every callback registered before
// the call. Callbacks scheduled during the step first run on the next one.
func (s *Scheduler) Step(dt time.Duration) {
	if s.closed {
		return
	}
	s.now += dt
	s.stepping = true
	defer func() {
		s.stepping = false
		s.compact()
	}()
	n := len(s.entries)
	for i := 0; i < n; i++ {
		if s.closed {
			return
		}
		fn := s.entries[i].fn
		if fn == nil {
			continue
		}
		if !fn(dt) {
			s.entries[i].fn = nil
		}
	}
}

// Now returns the total time stepped so far.
func (s *Scheduler) Now() time.Duration {
	return s.now
}

// Pending returns the number of registered callbacks.
func (s *Scheduler) Pending() int {
	count := 0
	for _, e := range s.entries {
		if e.fn != nil {
			count++
		}
	}
	return count
}

// Close cancels everything and refuses further scheduling.
func (s *Scheduler) Close() {
	s.CancelAll()
	s.closed = true
}

// Closed reports whether Close has been called.
func (s *Scheduler) Closed() bool {
	return s.closed
}

func (s *Scheduler) compact() {
	if s.stepping {
		return
	}
	out := s.entries[:0]
	for _, e := range s.entries {
		if e.fn != nil {
			out = append(out, e)
		}
	}
	clear(s.entries[len(out):])
	s.entries = out
}
