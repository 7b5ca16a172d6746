package badgekit

import "math"

// defaultDragDeadZone is the distance in canvas units a pressed pointer must
// travel before a press becomes a drag.
const defaultDragDeadZone = 4.0

// pointerState tracks the single active pointer.
type pointerState struct {
	down           bool
	dragging       bool
	startX, startY float64
	lastX, lastY   float64
	hit            *Node
}

// pointerEvent is a queued synthetic pointer sample in canvas coordinates.
type pointerEvent struct {
	x, y    float64
	pressed bool
}

// Pointer feeds one pointer sample in canvas coordinates into the editor.
// A press selects the node under the pointer; moving further than the dead
// zone while pressed starts a drag of that node, and releasing ends it with
// a single commit. A press on empty canvas clears the selection.
func (e *Editor) Pointer(x, y float64, pressed bool) {
	if e.state == StateUnmounted || e.scene == nil {
		return
	}
	ps := &e.pointer
	switch {
	case pressed && !ps.down:
		ps.down = true
		ps.dragging = false
		ps.startX, ps.startY = x, y
		ps.lastX, ps.lastY = x, y
		ps.hit = e.SelectAt(x, y)

	case !pressed && ps.down:
		if ps.dragging {
			e.EndDrag()
		}
		*ps = pointerState{lastX: x, lastY: y}

	case pressed && ps.down:
		if x == ps.lastX && y == ps.lastY {
			return
		}
		if !ps.dragging && ps.hit != nil {
			dx, dy := x-ps.startX, y-ps.startY
			if math.Sqrt(dx*dx+dy*dy) > e.dragDeadZone() {
				ps.dragging = e.BeginDrag()
			}
		}
		if ps.dragging {
			e.DragBy(x-ps.startX, y-ps.startY)
		}
		ps.lastX, ps.lastY = x, y

	default:
		ps.lastX, ps.lastY = x, y
	}
}

func (e *Editor) dragDeadZone() float64 {
	if e.cfg.DragDeadZone > 0 {
		return e.cfg.DragDeadZone
	}
	return defaultDragDeadZone
}

// InjectPress queues a pointer press at canvas coordinates. Queued events
// are consumed one per Update.
func (e *Editor) InjectPress(x, y float64) {
	e.injectQueue = append(e.injectQueue, pointerEvent{x: x, y: y, pressed: true})
}

// InjectMove queues a pointer move with the button held.
func (e *Editor) InjectMove(x, y float64) {
	e.injectQueue = append(e.injectQueue, pointerEvent{x: x, y: y, pressed: true})
}

// InjectRelease queues a pointer release.
func (e *Editor) InjectRelease(x, y float64) {
	e.injectQueue = append(e.injectQueue, pointerEvent{x: x, y: y})
}

// InjectClick queues a press followed by a release. Consumes two frames.
func (e *Editor) InjectClick(x, y float64) {
	e.InjectPress(x, y)
	e.InjectRelease(x, y)
}

// InjectDrag queues a full drag: a press at (fromX, fromY), frames-2 moves
// evenly spaced up to and including (toX, toY), and a release there. The
// sequence consumes frames frames; the minimum is 3.
func (e *Editor) InjectDrag(fromX, fromY, toX, toY float64, frames int) {
	if frames < 3 {
		frames = 3
	}
	e.InjectPress(fromX, fromY)
	steps := frames - 2
	for i := 1; i <= steps; i++ {
		t := float64(i) / float64(steps)
		e.InjectMove(fromX+(toX-fromX)*t, fromY+(toY-fromY)*t)
	}
	e.InjectRelease(toX, toY)
}

// PendingInput returns the number of queued pointer events.
func (e *Editor) PendingInput() int {
	return len(e.injectQueue)
}

// processInjected feeds the oldest queued event. Returns true if one was
// consumed.
func (e *Editor) processInjected() bool {
	if len(e.injectQueue) == 0 {
		return false
	}
	evt := e.injectQueue[0]
	copy(e.injectQueue, e.injectQueue[1:])
	e.injectQueue = e.injectQueue[:len(e.injectQueue)-1]
	e.Pointer(evt.x, evt.y, evt.pressed)
	return true
}
