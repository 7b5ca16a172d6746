// Package preview runs a badgekit.Editor in an ebiten window.
//
// Mouse drags move the node under the pointer, the editor shortcuts work as
// documented on badgekit.CommandForKey, and a few extra keys drive the rest
// of the editor:
//
// When Options.Reload is set, layouts changed on disk for the mounted badge
// are pulled into the editor as they arrive.
//
//	R          reset to defaults
//	I          replay the intro (once per session)
//	Mod+S      save the layout
//	P          export at the configured multiplier
//	Mod+C      copy the layout JSON to the clipboard
//	Mod+Shift+C copy the last export PNG to the clipboard
//	wheel      zoom around the cursor
//	middle     pan
//	0          reset the view
package preview

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.design/x/clipboard"

	"github.com/phanxgames/badgekit"
)

// Options configures a preview window.
type Options struct {
	Title string
	// Zoom scales the canvas to window pixels. Zero is 1.
	Zoom float64
	// ExportDir receives exports triggered with P. Empty keeps them in
	// memory only.
	ExportDir string
	Logger    *slog.Logger
	// Status prints editor state in the corner of the window.
	Status bool
	// Reload delivers IDs of badges whose stored layout changed, such as
	// store.Watcher.Events. Matching IDs reload the editor's layout.
	Reload <-chan string
}

// Game implements ebiten.Game around a mounted editor.
type Game struct {
	ed     *badgekit.Editor
	opts   Options
	logger *slog.Logger
	cache  *imageCache
	cam    *Camera

	panning    bool
	panX, panY int

	clipboardOK bool
	reload      <-chan string

	exporting  atomic.Bool
	mu         sync.Mutex
	lastExport *badgekit.Artifact
	exportErr  error
}

// New wraps a mounted editor.
func New(ed *badgekit.Editor, opts Options) *Game {
	if opts.Zoom <= 0 {
		opts.Zoom = 1
	}
	if opts.Title == "" {
		opts.Title = "badgekit"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	g := &Game{ed: ed, opts: opts, logger: opts.Logger, cache: newImageCache(), reload: opts.Reload}
	if s := ed.Scene(); s != nil {
		g.cam = NewCamera(s.Width, s.Height, opts.Zoom)
	} else {
		g.cam = NewCamera(badgekit.DefaultCanvasWidth, badgekit.DefaultCanvasHeight, opts.Zoom)
	}
	if err := clipboard.Init(); err != nil {
		g.logger.Warn("clipboard unavailable", "error", err)
	} else {
		g.clipboardOK = true
	}
	return g
}

// Run opens the window and blocks until it is closed. The editor is
// unmounted on return.
func Run(ed *badgekit.Editor, opts Options) error {
	g := New(ed, opts)
	defer ed.Unmount()
	ebiten.SetWindowTitle(g.opts.Title)
	ebiten.SetWindowSize(int(g.cam.ViewportW), int(g.cam.ViewportH))
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}

// Update implements ebiten.Game.
func (g *Game) Update() error {
	dt := time.Second / time.Duration(ebiten.TPS())
	g.updateCamera(float32(dt.Seconds()))

	cx, cy := ebiten.CursorPosition()
	x, y := g.cam.ScreenToCanvas(float64(cx), float64(cy))
	g.ed.Pointer(x, y, ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))

	g.handleKeys()
	g.drainReload()
	return g.ed.Update(dt)
}

// drainReload applies every pending layout change for the mounted badge.
func (g *Game) drainReload() {
	for g.reload != nil {
		select {
		case id, ok := <-g.reload:
			if !ok {
				g.reload = nil
				return
			}
			if id != g.ed.BadgeID() {
				continue
			}
			if err := g.ed.ReloadPersisted(context.Background()); err != nil {
				g.logger.Warn("layout reload failed", "error", err)
			}
		default:
			return
		}
	}
}

func (g *Game) updateCamera(dt float32) {
	cx, cy := ebiten.CursorPosition()
	if _, wy := ebiten.Wheel(); wy != 0 {
		x, y := g.cam.ScreenToCanvas(float64(cx), float64(cy))
		g.cam.ZoomTo(g.cam.Zoom*math.Pow(1.2, wy), x, y, 0.15, nil)
	}
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle) {
		if g.panning {
			g.cam.Pan(float64(cx-g.panX), float64(cy-g.panY))
		}
		g.panning, g.panX, g.panY = true, cx, cy
	} else {
		g.panning = false
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDigit0) {
		s := g.ed.Scene()
		g.cam.ZoomTo(g.opts.Zoom, s.Width/2, s.Height/2, 0, nil)
		g.cam.X, g.cam.Y = s.Width/2, s.Height/2
	}
	g.cam.Update(dt)
}

var shortcutKeys = map[ebiten.Key]badgekit.Key{
	ebiten.KeyZ:      badgekit.KeyZ,
	ebiten.KeyY:      badgekit.KeyY,
	ebiten.KeyE:      badgekit.KeyE,
	ebiten.KeyQ:      badgekit.KeyQ,
	ebiten.KeyW:      badgekit.KeyW,
	ebiten.KeyDigit1: badgekit.Key1,
	ebiten.KeyDigit2: badgekit.Key2,
	ebiten.KeyEscape: badgekit.KeyEscape,
}

func readModifiers() badgekit.KeyModifiers {
	var m badgekit.KeyModifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		m |= badgekit.ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		m |= badgekit.ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		m |= badgekit.ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) {
		m |= badgekit.ModMeta
	}
	return m
}

func (g *Game) handleKeys() {
	mods := readModifiers()
	for ek, k := range shortcutKeys {
		if inpututil.IsKeyJustPressed(ek) {
			g.ed.HandleKey(k, mods)
		}
	}
	withMod := mods&(badgekit.ModCtrl|badgekit.ModMeta) != 0

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		if err := g.ed.Reset(); err != nil {
			g.logger.Debug("reset refused", "error", err)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyI):
		g.ed.PlayIntro()
	case inpututil.IsKeyJustPressed(ebiten.KeyS) && withMod:
		if err := g.ed.Save(context.Background()); err != nil {
			g.logger.Error("save failed", "error", err)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		g.startExport()
	case inpututil.IsKeyJustPressed(ebiten.KeyC) && withMod:
		if mods&badgekit.ModShift != 0 {
			g.copyExport()
		} else {
			g.copyLayout()
		}
	}
}

// startExport renders on a background goroutine from a snapshot of the
// live layout. The export key is ignored while an export runs or while the
// layout is mid-animation or mid-drag.
func (g *Game) startExport() {
	if !g.exporting.CompareAndSwap(false, true) {
		return
	}
	req, err := g.ed.ExportRequest(0)
	if err != nil {
		g.exporting.Store(false)
		g.logger.Info("export refused", "error", err)
		return
	}
	ex := g.ed.Exporter()
	go func() {
		defer g.exporting.Store(false)
		art, err := ex.Export(context.Background(), req)
		if err == nil && g.opts.ExportDir != "" {
			var path string
			path, err = art.WriteFile(g.opts.ExportDir)
			if err == nil {
				g.logger.Info("export written", "path", path)
			}
		}
		if err != nil {
			g.logger.Error("export failed", "error", err)
		}
		g.mu.Lock()
		defer g.mu.Unlock()
		g.exportErr = err
		if art != nil {
			g.lastExport = art
		}
	}()
}

func (g *Game) copyLayout() {
	if !g.clipboardOK {
		return
	}
	raw, err := badgekit.EncodeLayout(g.ed.Scene().TrackPositions())
	if err != nil {
		g.logger.Error("encode layout", "error", err)
		return
	}
	clipboard.Write(clipboard.FmtText, raw)
	g.logger.Info("layout copied to clipboard", "bytes", len(raw))
}

func (g *Game) copyExport() {
	if !g.clipboardOK {
		return
	}
	g.mu.Lock()
	art := g.lastExport
	g.mu.Unlock()
	if art == nil {
		g.logger.Info("nothing exported yet")
		return
	}
	clipboard.Write(clipboard.FmtImage, art.PNG)
	g.logger.Info("export copied to clipboard", "file", art.Filename)
}

// Draw implements ebiten.Game.
func (g *Game) Draw(screen *ebiten.Image) {
	s := g.ed.Scene()
	if s == nil || s.IsDisposed() {
		return
	}
	screen.Fill(color.White)

	zoom := g.cam.GeoM()

	cmds := s.Commands(badgekit.RenderOptions{DrawGuides: true})
	for i := range cmds {
		g.drawCommand(screen, &cmds[i], zoom)
	}
	g.cache.sweep()

	if g.opts.Status {
		ebitenutil.DebugPrint(screen, g.status())
	}
}

func (g *Game) status() string {
	h := g.ed.History()
	line := fmt.Sprintf("%s  history %d/%d  zoom %.2f  FPS %.1f TPS %.1f",
		g.ed.State(), h.Cursor()+1, h.Len(), g.cam.Zoom, ebiten.ActualFPS(), ebiten.ActualTPS())
	if n := g.ed.Selected(); n != nil {
		line += "  selected " + n.Name
	}
	if g.exporting.Load() {
		return line + "\nexporting..."
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.exportErr != nil:
		line += "\nexport failed: " + g.exportErr.Error()
	case g.lastExport != nil:
		line += "\nexported " + g.lastExport.Filename
		if w := len(g.lastExport.Warnings); w > 0 {
			line += fmt.Sprintf(" (%d empty slots)", w)
		}
	}
	return line
}

func (g *Game) drawCommand(screen *ebiten.Image, cmd *badgekit.DrawCommand, zoom ebiten.GeoM) {
	var op ebiten.DrawImageOptions
	op.Filter = ebiten.FilterLinear
	op.ColorScale.ScaleAlpha(float32(cmd.Alpha))

	switch cmd.Kind {
	case badgekit.DrawFill:
		op.GeoM.Scale(cmd.Width, cmd.Height)
		op.GeoM.Concat(matrixGeoM(cmd.Matrix))
		op.GeoM.Concat(zoom)
		r, gr, b, a := cmd.Fill.RGBA()
		if a == 0 {
			return
		}
		op.ColorScale.Scale(float32(r)/float32(a), float32(gr)/float32(a), float32(b)/float32(a), 1)
		op.ColorScale.ScaleAlpha(float32(a) / 0xffff)
		screen.DrawImage(g.cache.whitePixel(), &op)

	case badgekit.DrawImage:
		img := g.cache.source(cmd)
		sw, sh := float64(cmd.SourceRect.Dx()), float64(cmd.SourceRect.Dy())
		op.GeoM.Scale(cmd.Width/sw, cmd.Height/sh)
		op.GeoM.Concat(matrixGeoM(cmd.Matrix))
		op.GeoM.Concat(zoom)
		screen.DrawImage(img, &op)

	case badgekit.DrawText:
		k := max(1, cmd.Matrix.ScaleFactor()*g.cam.Zoom)
		img, m, err := g.cache.text(cmd, k)
		if err != nil {
			g.logger.Warn("text render failed", "node", cmd.Node.Name, "error", err)
			return
		}
		if img == nil {
			return
		}
		op.GeoM.Concat(matrixGeoM(m))
		op.GeoM.Concat(zoom)
		screen.DrawImage(img, &op)
	}
}

// Layout implements ebiten.Game.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.cam.ViewportW, g.cam.ViewportH = float64(outsideWidth), float64(outsideHeight)
	return outsideWidth, outsideHeight
}

// matrixGeoM converts a badgekit affine matrix into an ebiten.GeoM.
func matrixGeoM(m badgekit.Affine) ebiten.GeoM {
	var g ebiten.GeoM
	g.SetElement(0, 0, m[0])
	g.SetElement(1, 0, m[1])
	g.SetElement(0, 1, m[2])
	g.SetElement(1, 1, m[3])
	g.SetElement(0, 2, m[4])
	g.SetElement(1, 2, m[5])
	return g
}
