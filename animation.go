package badgekit

import (
	"math"
	"time"

	"github.com/tanema/gween/ease"
)

// Easing maps elapsed time t of duration d onto [b, b+c]. Any gween easing
// function can be used.
type Easing = ease.TweenFunc

// Animation timing defaults.
const (
	DefaultResetDuration  = 800 * time.Millisecond
	DefaultResetStagger   = 150 * time.Millisecond
	DefaultIntroDuration  = 2000 * time.Millisecond
	DefaultIntroIntensity = 18.0
)

// easedProgress applies fn to a normalized progress value. A nil easing is
// linear.
func easedProgress(fn Easing, p float64) float64 {
	if p >= 1 {
		return 1
	}
	if fn == nil {
		return p
	}
	return float64(fn(float32(p), 0, 1, 1))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Tween interpolates a node's numeric transform fields (left, top, angle,
// scaleX, scaleY) from From to To. On the frame progress reaches 1 the exact
// To values are written, so no rounding survives the tween.
//
// If the target node has been disposed, the tween resolves immediately and
// no writes occur.
type Tween struct {
	Node       *Node
	From, To   Transform
	Duration   time.Duration
	Delay      time.Duration
	Easing     Easing
	OnComplete func()

	elapsed time.Duration
	Done    bool
}

// NewTween creates a tween for n. It does nothing until updated.
func NewTween(n *Node, from, to Transform, duration time.Duration, fn Easing) *Tween {
	return &Tween{Node: n, From: from, To: to, Duration: duration, Easing: fn}
}

// Progress returns the linear progress in [0, 1].
func (t *Tween) Progress() float64 {
	active := t.elapsed - t.Delay
	if active <= 0 {
		return 0
	}
	if t.Duration <= 0 {
		return 1
	}
	return clamp01(float64(active) / float64(t.Duration))
}

// Update advances the tween by dt and writes the interpolated values.
// Nothing is written while the start delay has not elapsed. Returns Done.
func (t *Tween) Update(dt time.Duration) bool {
	if t.Done {
		return true
	}
	if t.Node == nil || t.Node.IsDisposed() {
		t.resolve()
		return true
	}
	t.elapsed += dt
	if t.elapsed < t.Delay {
		return false
	}
	p := t.Progress()
	if p >= 1 {
		t.Finish()
		return true
	}
	e := easedProgress(t.Easing, p)
	n := t.Node
	n.X = lerp(t.From.Left, t.To.Left, e)
	n.Y = lerp(t.From.Top, t.To.Top, e)
	n.Angle = lerp(t.From.Angle, t.To.Angle, e)
	n.ScaleX = lerp(t.From.ScaleX, t.To.ScaleX, e)
	n.ScaleY = lerp(t.From.ScaleY, t.To.ScaleY, e)
	return false
}

// Finish writes the exact target values and resolves the tween.
func (t *Tween) Finish() {
	if t.Done {
		return
	}
	if n := t.Node; n != nil && !n.IsDisposed() {
		n.X = t.To.Left
		n.Y = t.To.Top
		n.Angle = t.To.Angle
		n.ScaleX = t.To.ScaleX
		n.ScaleY = t.To.ScaleY
	}
	t.resolve()
}

func (t *Tween) resolve() {
	t.Done = true
	if t.OnComplete != nil {
		t.OnComplete()
	}
}

// Animation is a running effect driven by a Scheduler. It completes once,
// either by running out, by Finish, or not at all if Cancelled.
type Animation struct {
	sched  *Scheduler
	handle FrameHandle
	step   func(dt time.Duration) bool
	finish func()
	onDone func()
	done   bool
}

func startAnimation(sched *Scheduler, step func(time.Duration) bool, finish, onDone func()) *Animation {
	a := &Animation{sched: sched, step: step, finish: finish, onDone: onDone}
	a.handle = sched.Schedule(func(dt time.Duration) bool {
		if a.done {
			return false
		}
		if a.step(dt) {
			a.complete()
			return false
		}
		return true
	})
	return a
}

// Done reports whether the animation has completed or been cancelled.
func (a *Animation) Done() bool {
	return a.done
}

// Finish jumps straight to the final state and completes.
func (a *Animation) Finish() {
	if a.done {
		return
	}
	a.sched.Cancel(a.handle)
	a.finish()
	a.complete()
}

// Cancel stops the animation where it is. The completion callback is not
// called.
func (a *Animation) Cancel() {
	if a.done {
		return
	}
	a.done = true
	a.sched.Cancel(a.handle)
}

func (a *Animation) complete() {
	if a.done {
		return
	}
	a.done = true
	if a.onDone != nil {
		a.onDone()
	}
}

// ResetTarget is the compiled default a node is reset to. FontSize is only
// applied to text nodes and only when positive.
type ResetTarget struct {
	Transform Transform
	FontSize  float64
}

// ResetOptions configures ResetToDefaults.
type ResetOptions struct {
	Duration time.Duration
	Stagger  time.Duration
	Easing   Easing
}

// ResetToDefaults tweens every content node that has a target back to it.
// Node i starts Stagger*i after the first so the reset cascades. When a
// node's tween resolves its anchor and font size are snapped to the target.
// onDone runs once after every node has resolved.
func ResetToDefaults(s *Scene, sched *Scheduler, targets map[string]ResetTarget, opts ResetOptions, onDone func()) *Animation {
	if opts.Duration <= 0 {
		opts.Duration = DefaultResetDuration
	}
	if opts.Easing == nil {
		opts.Easing = ease.OutCubic
	}

	var tweens []*Tween
	for _, n := range s.ContentNodes() {
		target, ok := targets[n.Name]
		if !ok {
			continue
		}
		tw := NewTween(n, TransformOf(n), target.Transform, opts.Duration, opts.Easing)
		tw.Delay = opts.Stagger * time.Duration(len(tweens))
		tw.OnComplete = func() {
			if n.IsDisposed() {
				return
			}
			n.SetOrigin(target.Transform.OriginX, target.Transform.OriginY)
			if n.Kind == KindText && target.FontSize > 0 {
				n.SetFontSize(target.FontSize)
			}
		}
		tweens = append(tweens, tw)
	}

	step := func(dt time.Duration) bool {
		all := true
		for _, tw := range tweens {
			if !tw.Update(dt) {
				all = false
			}
		}
		return all
	}
	finish := func() {
		for _, tw := range tweens {
			tw.Finish()
		}
	}
	return startAnimation(sched, step, finish, onDone)
}

// IntroOptions configures IntroReveal.
type IntroOptions struct {
	Duration  time.Duration
	Intensity float64
}

// IntroReveal plays a decaying horizontal wobble over every content node
// while fading it in from 0.3 to full opacity. Node i is offset by
//
//	sin(i*0.5 + p*4π) * intensity * (1 - 0.7p)
//
// at progress p. At p >= 1 every node is placed back on its exact position
// with full opacity.
func IntroReveal(s *Scene, sched *Scheduler, opts IntroOptions, onDone func()) *Animation {
	if opts.Duration <= 0 {
		opts.Duration = DefaultIntroDuration
	}
	if opts.Intensity == 0 {
		opts.Intensity = DefaultIntroIntensity
	}
	nodes := s.ContentNodes()
	homes := make([]Vec2, len(nodes))
	for i, n := range nodes {
		homes[i] = Vec2{X: n.X, Y: n.Y}
	}

	settle := func() {
		for i, n := range nodes {
			if n.IsDisposed() {
				continue
			}
			n.X, n.Y = homes[i].X, homes[i].Y
			n.Opacity = 1
		}
	}

	for _, n := range nodes {
		n.Opacity = 0.3
	}

	var elapsed time.Duration
	step := func(dt time.Duration) bool {
		elapsed += dt
		p := clamp01(float64(elapsed) / float64(opts.Duration))
		if p >= 1 {
			settle()
			return true
		}
		decay := opts.Intensity * (1 - 0.7*p)
		for i, n := range nodes {
			if n.IsDisposed() {
				continue
			}
			phase := float64(i)*0.5 + p*4*math.Pi
			n.X = homes[i].X + math.Sin(phase)*decay
			n.Y = homes[i].Y
			n.Opacity = 0.3 + 0.7*p
		}
		return false
	}
	return startAnimation(sched, step, settle, onDone)
}
