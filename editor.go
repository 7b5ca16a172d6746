package badgekit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

// ErrUnmounted is returned by every Editor operation after Unmount.
var ErrUnmounted = errors.New("badgekit: editor unmounted")

// State is the lifecycle state of an Editor.
type State uint8

const (
	StateLoading   State = iota // fetching the persisted layout
	StateReady                  // scene built, history seeded
	StateEditing                // user mutations in progress
	StateAnimating              // reset or intro running
	StateUnmounted              // torn down; terminal
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateEditing:
		return "editing"
	case StateAnimating:
		return "animating"
	case StateUnmounted:
		return "unmounted"
	default:
		return "unknown"
	}
}

// Deps are the editor's external collaborators. Any of them may be nil:
// without a Store layouts are neither loaded nor saved, without a Loader or
// QR encoder the corresponding slots stay empty.
type Deps struct {
	Store  LayoutStore
	Loader AssetLoader
	QR     QREncoder
}

type assetResult struct {
	gen      uint64
	assets   Assets
	warnings []error
	err      error
}

// Editor owns one badge's editing session: the live scene, its history, the
// drag gesture, the frame scheduler and the asynchronous asset loads.
//
// Every method must be called from the host's update goroutine. Asset loads
// run on their own goroutines and hand results back through a channel that
// Update drains, so the scene is only ever touched from that one goroutine.
type Editor struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	badgeID   string
	content   BadgeContent
	persisted PersistedLayout
	assets    Assets

	scene    *Scene
	history  *History
	aligner  *Aligner
	gesture  *DragGesture
	sched    *Scheduler
	exporter *Exporter

	state      State
	selected   string
	anim       *Animation
	animKind   string
	introShown bool
	pending    *BadgeContent
	reload     bool

	pointer     pointerState
	injectQueue []pointerEvent

	ctx     context.Context
	cancel  context.CancelFunc
	gen     uint64
	loading bool
	results chan assetResult
}

// NewEditor creates an editor in the Loading state.
func NewEditor(cfg Config, deps Deps) *Editor {
	cfg = cfg.Normalize()
	ctx, cancel := context.WithCancel(context.Background())
	return &Editor{
		cfg:      cfg,
		deps:     deps,
		logger:   cfg.Logger,
		history:  NewHistory(cfg.HistoryCapacity),
		aligner:  NewAligner(cfg.SnapThreshold),
		sched:    NewScheduler(),
		exporter: NewExporter(cfg, deps.Loader, deps.QR),
		state:    StateLoading,
		ctx:      ctx,
		cancel:   cancel,
		results:  make(chan assetResult, 4),
	}
}

// Mount loads the persisted layout for badgeID and builds the scene from
// content. A missing or malformed layout falls back to the compiled
// defaults; only context cancellation fails the mount. The history is
// seeded with one baseline commit, asset loads are started, and the intro
// plays if enabled.
func (e *Editor) Mount(ctx context.Context, badgeID string, content BadgeContent) error {
	if e.state == StateUnmounted {
		return ErrUnmounted
	}
	if e.scene != nil {
		return fmt.Errorf("badgekit: editor already mounted")
	}
	e.badgeID = badgeID
	e.logger = e.cfg.Logger.With("badge", badgeID)

	persisted, err := e.loadLayout(ctx)
	if err != nil {
		return err
	}
	e.persisted = persisted

	e.scene = NewScene(e.cfg.CanvasWidth, e.cfg.CanvasHeight)
	e.scene.SetLogger(e.logger)
	e.scene.SetDebugMode(e.cfg.Debug)
	e.gesture = NewDragGesture(e.scene, e.history, e.aligner)

	e.content = content
	e.scene.Rebuild(BuildContent(content, e.assets, 1, e.cfg), e.persisted, DefaultLayout(e.cfg))
	e.history.Commit(e.scene)
	e.state = StateReady
	e.logger.Info("editor mounted", "nodes", len(e.scene.ContentNodes()), "persisted", len(persisted))

	e.startAssetLoad(content)
	if e.cfg.IntroEnabled {
		e.PlayIntro()
	}
	return nil
}

func (e *Editor) loadLayout(ctx context.Context) (PersistedLayout, error) {
	if e.deps.Store == nil {
		return PersistedLayout{}, nil
	}
	l, err := e.deps.Store.Load(ctx, e.badgeID)
	switch {
	case err == nil:
		return l, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, ErrLayoutNotFound):
		return PersistedLayout{}, nil
	default:
		e.logger.Warn("persisted layout unusable, using defaults", "error", err)
		return PersistedLayout{}, nil
	}
}

// Refresh rebuilds the content nodes from new data. Current transforms are
// carried over by name. While an animation runs the refresh is queued and
// applied once it completes; only the latest queued content is kept.
func (e *Editor) Refresh(content BadgeContent) error {
	switch e.state {
	case StateUnmounted:
		return ErrUnmounted
	case StateLoading:
		return fmt.Errorf("badgekit: editor not mounted")
	case StateAnimating:
		e.pending = &content
		e.logger.Debug("refresh queued behind animation", "animation", e.animKind)
		return nil
	}
	e.applyRefresh(content)
	return nil
}

func (e *Editor) applyRefresh(content BadgeContent) {
	e.gesture.Cancel()
	before := e.scene.TrackPositions().Names()

	refsChanged := content.Background != e.content.Background ||
		content.Photo != e.content.Photo ||
		content.QRPayload != e.content.QRPayload
	if refsChanged {
		e.assets = Assets{}
	}
	e.content = content
	e.scene.Rebuild(BuildContent(content, e.assets, 1, e.cfg), e.persisted, DefaultLayout(e.cfg))

	if e.selected != "" && e.scene.Content(e.selected) == nil {
		e.ClearSelection()
	}
	if !slices.Equal(before, e.scene.TrackPositions().Names()) {
		e.history.Commit(e.scene)
	}
	if refsChanged {
		e.startAssetLoad(content)
	}
}

// ReloadPersisted reads the badge's layout from the store again and moves the
// content nodes onto it, for when the stored layout changed underneath the
// editor. Nodes the stored layout does not mention stay where they are, and
// fields it leaves out come from the compiled defaults. A change is recorded
// as one history commit. While an animation or drag is running the layout is
// applied once it ends.
func (e *Editor) ReloadPersisted(ctx context.Context) error {
	switch {
	case e.state == StateUnmounted:
		return ErrUnmounted
	case e.scene == nil:
		return fmt.Errorf("badgekit: editor not mounted")
	case e.deps.Store == nil:
		return fmt.Errorf("badgekit: no layout store configured")
	}
	l, err := e.deps.Store.Load(ctx, e.badgeID)
	switch {
	case errors.Is(err, ErrLayoutNotFound):
		l = PersistedLayout{}
	case err != nil:
		return fmt.Errorf("reload layout %s: %w", e.badgeID, err)
	}
	e.persisted = l
	if e.busy() {
		e.reload = true
		e.logger.Debug("layout reload queued", "animation", e.animKind, "dragging", e.Dragging())
		return nil
	}
	e.applyPersisted()
	return nil
}

// applyPersisted moves every content node with a persisted entry onto it.
// Other nodes keep their current transform.
func (e *Editor) applyPersisted() {
	e.reload = false
	before := e.scene.TrackPositions()
	defaults := DefaultLayout(e.cfg)
	for _, n := range e.scene.ContentNodes() {
		p, ok := e.persisted[n.Name]
		if !ok {
			continue
		}
		def, ok := defaults[n.Name]
		if !ok {
			def = TransformOf(n)
		}
		p.Resolve(def).ApplyTo(n)
	}
	after := e.scene.TrackPositions()
	for name, t := range after {
		if !before[name].ApproxEqual(t, 1e-9) {
			e.history.Commit(e.scene)
			e.logger.Info("persisted layout reloaded", "nodes", len(e.persisted))
			return
		}
	}
}

// startAssetLoad fetches the bitmaps of c in the background. Results of
// older loads are discarded when they arrive.
func (e *Editor) startAssetLoad(c BadgeContent) {
	if c.Background == "" && c.Photo == "" && c.QRPayload == "" {
		return
	}
	e.gen++
	gen := e.gen
	e.loading = true
	ctx, loader, qr, logger := e.ctx, e.deps.Loader, e.deps.QR, e.logger
	go func() {
		assets, warnings, err := loadAssets(ctx, loader, qr, c, 1, logger)
		select {
		case e.results <- assetResult{gen: gen, assets: assets, warnings: warnings, err: err}:
		case <-ctx.Done():
		}
	}()
}

// applyAssets installs a finished load. Results for an unmounted editor or
// a superseded load are dropped without touching the scene.
func (e *Editor) applyAssets(r assetResult) {
	if e.state == StateUnmounted || r.gen != e.gen {
		return
	}
	e.loading = false
	if r.err != nil {
		e.logger.Warn("asset load aborted", "error", r.err)
		return
	}
	e.assets = r.assets
	e.scene.SetBackground(r.assets.Background)
	if n := e.scene.Content(NameUserPhoto); n != nil {
		n.Image = r.assets.Photo
	}
	if n := e.scene.Content(NameQRCode); n != nil {
		n.Image = r.assets.QR
	}
}

func (e *Editor) drainAssets() int {
	count := 0
	for {
		select {
		case r := <-e.results:
			e.applyAssets(r)
			count++
		default:
			return count
		}
	}
}

// AwaitAssets blocks until the latest asset load has been applied.
func (e *Editor) AwaitAssets(ctx context.Context) error {
	for e.loading {
		if e.state == StateUnmounted {
			return ErrUnmounted
		}
		select {
		case r := <-e.results:
			e.applyAssets(r)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Select makes the named content node the target of drags and alignment
// commands.
func (e *Editor) Select(name string) bool {
	if !e.interactive() {
		return false
	}
	n := e.scene.Content(name)
	if n == nil || !n.Selectable {
		return false
	}
	e.selected = name
	return true
}

// SelectAt selects the topmost selectable node under a canvas point. An
// empty spot clears the selection.
func (e *Editor) SelectAt(x, y float64) *Node {
	if !e.interactive() {
		return nil
	}
	n := e.scene.HitTest(x, y)
	if n == nil {
		e.ClearSelection()
		return nil
	}
	e.selected = n.Name
	return n
}

// ClearSelection drops the selection and hides every guide.
func (e *Editor) ClearSelection() {
	e.selected = ""
	if e.scene != nil {
		e.scene.HideGuides()
	}
}

// Selected returns the selected node, or nil.
func (e *Editor) Selected() *Node {
	if e.selected == "" || e.scene == nil {
		return nil
	}
	return e.scene.Content(e.selected)
}

// BeginDrag starts dragging the selected node. Fails while animating, with
// nothing selected, or if a drag is already active.
func (e *Editor) BeginDrag() bool {
	if !e.interactive() {
		return false
	}
	n := e.Selected()
	if n == nil || !e.gesture.Begin(n) {
		return false
	}
	e.state = StateEditing
	return true
}

// DragTo moves the dragged node's anchor to (x, y) and snaps it.
func (e *Editor) DragTo(x, y float64) SnapResult {
	if e.state == StateUnmounted || e.gesture == nil {
		return SnapResult{}
	}
	return e.gesture.MoveTo(x, y)
}

// DragBy moves the dragged node by an offset from where the drag began.
func (e *Editor) DragBy(dx, dy float64) SnapResult {
	if e.state == StateUnmounted || e.gesture == nil {
		return SnapResult{}
	}
	return e.gesture.MoveBy(dx, dy)
}

// EndDrag finishes the drag with a single history commit.
func (e *Editor) EndDrag() bool {
	if e.state == StateUnmounted || e.gesture == nil {
		return false
	}
	return e.gesture.End()
}

// Dragging reports whether a drag gesture is active.
func (e *Editor) Dragging() bool {
	return e.gesture != nil && e.gesture.State() != GestureIdle
}

// HandleKey runs the command bound to a key press. Reports whether anything
// was applied.
func (e *Editor) HandleKey(key Key, mods KeyModifiers) bool {
	cmd := CommandForKey(key, mods)
	if cmd == CmdNone {
		return false
	}
	return e.Command(cmd)
}

// Command applies cmd. While animating everything but CmdCancel is ignored.
// Alignment commands need a selection and record exactly one commit each.
func (e *Editor) Command(cmd Command) bool {
	if e.state == StateUnmounted || e.state == StateLoading {
		return false
	}
	if cmd == CmdCancel {
		return e.cancelCurrent()
	}
	if e.state == StateAnimating || e.Dragging() {
		e.logger.Debug("command ignored", "command", cmd, "state", e.state)
		return false
	}

	switch cmd {
	case CmdUndo:
		if !e.history.Undo(e.scene) {
			return false
		}
	case CmdRedo:
		if !e.history.Redo(e.scene) {
			return false
		}
	default:
		if !e.align(cmd) {
			return false
		}
		e.history.Commit(e.scene)
	}
	e.state = StateEditing
	return true
}

func (e *Editor) align(cmd Command) bool {
	n := e.Selected()
	if n == nil {
		return false
	}
	var guides []string
	switch cmd {
	case CmdCenterHorizontal:
		guides = []string{GuideVCenter}
	case CmdCenterVertical:
		guides = []string{GuideHCenter}
	case CmdCenterBoth:
		guides = []string{GuideVCenter, GuideHCenter}
	case CmdAlignLeftThird:
		guides = []string{GuideLeftThird}
	case CmdAlignRightThird:
		guides = []string{GuideRightThird}
	default:
		return false
	}
	for _, g := range guides {
		if !e.aligner.AlignTo(e.scene, n, g) {
			return false
		}
	}
	return true
}

// cancelCurrent fast-forwards a running animation, abandons a drag, or
// drops the selection, whichever applies first.
func (e *Editor) cancelCurrent() bool {
	switch {
	case e.anim != nil:
		e.anim.Finish()
		return true
	case e.Dragging():
		e.gesture.Cancel()
		return true
	case e.selected != "":
		e.ClearSelection()
		return true
	}
	return false
}

// Reset animates every content node back to its compiled default. A single
// history commit is recorded once every node has settled.
func (e *Editor) Reset() error {
	if err := e.canAnimate(); err != nil {
		return err
	}
	targets := ResetTargets(e.scene, e.cfg)
	opts := ResetOptions{Duration: e.cfg.ResetDuration, Stagger: e.cfg.ResetStagger}
	e.startAnimation("reset")
	e.anim = ResetToDefaults(e.scene, e.sched, targets, opts, func() {
		e.history.Commit(e.scene)
		e.finishAnimation()
	})
	return nil
}

// PlayIntro runs the intro reveal once per editor. Reports whether it
// started.
func (e *Editor) PlayIntro() bool {
	if e.introShown || e.canAnimate() != nil {
		return false
	}
	opts := IntroOptions{Duration: e.cfg.IntroDuration, Intensity: e.cfg.IntroIntensity}
	e.startAnimation("intro")
	e.anim = IntroReveal(e.scene, e.sched, opts, func() {
		e.introShown = true
		e.finishAnimation()
	})
	return true
}

func (e *Editor) canAnimate() error {
	switch {
	case e.state == StateUnmounted:
		return ErrUnmounted
	case e.state == StateLoading:
		return fmt.Errorf("badgekit: editor not mounted")
	case e.busy():
		return ErrBusy
	}
	return nil
}

// busy reports whether an animation or drag owns the scene.
func (e *Editor) busy() bool {
	return e.state == StateAnimating || e.Dragging()
}

func (e *Editor) startAnimation(kind string) {
	e.ClearSelection()
	e.state = StateAnimating
	e.animKind = kind
	e.logger.Debug("animation started", "animation", kind)
}

func (e *Editor) finishAnimation() {
	if e.state == StateUnmounted {
		return
	}
	e.logger.Debug("animation finished", "animation", e.animKind)
	e.anim = nil
	e.animKind = ""
	e.state = StateReady
	if e.pending != nil {
		c := *e.pending
		e.pending = nil
		e.applyRefresh(c)
	}
}

// Update advances the editor by one frame: finished asset loads are applied
// and scheduled animations stepped by dt.
func (e *Editor) Update(dt time.Duration) error {
	if e.state == StateUnmounted {
		return ErrUnmounted
	}
	start := time.Now()
	applied := e.drainAssets()
	e.processInjected()
	e.sched.Step(dt)
	if e.reload && !e.busy() {
		e.applyPersisted()
	}
	if e.scene != nil {
		e.scene.debugLog(frameStats{
			stepTime:     time.Since(start),
			callbacks:    e.sched.Pending(),
			assetResults: applied,
			historyLen:   e.history.Len(),
			historyAt:    e.history.Cursor(),
		})
	}
	return nil
}

// Save persists the current content transforms. It fails with ErrBusy while
// an animation or drag is in progress.
func (e *Editor) Save(ctx context.Context) error {
	if e.state == StateUnmounted {
		return ErrUnmounted
	}
	if e.scene == nil {
		return fmt.Errorf("badgekit: editor not mounted")
	}
	if e.busy() {
		return ErrBusy
	}
	if e.deps.Store == nil {
		return fmt.Errorf("badgekit: no layout store configured")
	}
	l := e.scene.TrackPositions()
	if err := e.deps.Store.Save(ctx, e.badgeID, l); err != nil {
		return fmt.Errorf("save layout %s: %w", e.badgeID, err)
	}
	e.persisted = l.Persisted()
	e.logger.Info("layout saved", "nodes", len(l))
	return nil
}

// ExportRequest snapshots the live scene into a request that can be handed
// to an Exporter on another goroutine. It fails with ErrBusy while an
// animation or drag is in progress.
func (e *Editor) ExportRequest(m float64) (ExportRequest, error) {
	switch {
	case e.state == StateUnmounted:
		return ExportRequest{}, ErrUnmounted
	case e.scene == nil:
		return ExportRequest{}, fmt.Errorf("badgekit: editor not mounted")
	case e.busy():
		return ExportRequest{}, ErrBusy
	}
	return e.exportRequest(m), nil
}

func (e *Editor) exportRequest(m float64) ExportRequest {
	return ExportRequest{Content: e.content, Multiplier: m, Positions: e.scene.TrackPositions()}
}

// Export renders the current layout at multiplier m (zero uses the
// configured export multiplier). The live scene is not modified. It fails
// with ErrBusy while an animation or drag is in progress.
func (e *Editor) Export(ctx context.Context, m float64) (*Artifact, error) {
	if e.state == StateUnmounted {
		return nil, ErrUnmounted
	}
	if e.scene == nil {
		return nil, fmt.Errorf("badgekit: editor not mounted")
	}
	if e.busy() {
		return nil, ErrBusy
	}
	return e.exporter.Export(ctx, e.exportRequest(m))
}

// Unmount cancels every pending callback and asset load and disposes the
// scene. It is idempotent.
func (e *Editor) Unmount() {
	if e.state == StateUnmounted {
		return
	}
	if e.gesture != nil {
		e.gesture.Cancel()
	}
	if e.anim != nil {
		e.anim.Cancel()
		e.anim = nil
	}
	e.state = StateUnmounted
	e.pending = nil
	e.reload = false
	e.injectQueue = nil
	e.sched.Close()
	e.cancel()
	if e.scene != nil {
		e.scene.Dispose()
	}
	e.logger.Info("editor unmounted")
}

func (e *Editor) interactive() bool {
	return e.state == StateReady || e.state == StateEditing
}

// State returns the lifecycle state.
func (e *Editor) State() State { return e.state }

// Scene returns the live scene, or nil before Mount.
func (e *Editor) Scene() *Scene { return e.scene }

// History returns the editor's history.
func (e *Editor) History() *History { return e.history }

// Scheduler returns the frame scheduler driving animations.
func (e *Editor) Scheduler() *Scheduler { return e.sched }

// Exporter returns the exporter used by Export.
func (e *Editor) Exporter() *Exporter { return e.exporter }

// BadgeID returns the ID the editor was mounted with.
func (e *Editor) BadgeID() string { return e.badgeID }

// Content returns the content the scene was last built from.
func (e *Editor) Content() BadgeContent { return e.content }

// IntroShown reports whether the intro has completed this session.
func (e *Editor) IntroShown() bool { return e.introShown }

// Animating reports which animation runs, or "" if none.
func (e *Editor) Animating() string { return e.animKind }
