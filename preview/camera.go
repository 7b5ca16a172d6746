package preview

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/phanxgames/badgekit"
)

// Zoom limits of the preview camera.
const (
	MinZoom = 0.25
	MaxZoom = 8
)

// zoomAnim is an in-flight ZoomTo.
type zoomAnim struct {
	zoom *gween.Tween
	x, y *gween.Tween
}

// Camera controls the view into the badge canvas: the canvas point shown
// at the center of the window and the zoom factor.
type Camera struct {
	// X and Y are the canvas point the camera centers on.
	X, Y float64
	// Zoom is the scale factor from canvas units to window pixels.
	Zoom float64
	// ViewportW and ViewportH are the window size in pixels.
	ViewportW, ViewportH float64

	// Bounds is the canvas rectangle the camera is clamped to. A zero
	// rectangle disables clamping.
	Bounds badgekit.Rect

	anim *zoomAnim
}

// NewCamera returns a camera showing the whole canvas at zoom.
func NewCamera(canvasW, canvasH, zoom float64) *Camera {
	zoom = clampZoom(zoom)
	return &Camera{
		X:         canvasW / 2,
		Y:         canvasH / 2,
		Zoom:      zoom,
		ViewportW: canvasW * zoom,
		ViewportH: canvasH * zoom,
		Bounds:    badgekit.Rect{Width: canvasW, Height: canvasH},
	}
}

func clampZoom(z float64) float64 {
	if z <= 0 {
		return 1
	}
	return math.Max(MinZoom, math.Min(z, MaxZoom))
}

// ZoomTo animates the zoom around the canvas point (x, y), which stays
// under the same window pixel. A zero duration applies it immediately.
func (c *Camera) ZoomTo(zoom, x, y float64, seconds float32, fn ease.TweenFunc) {
	zoom = clampZoom(zoom)
	// Keep (x, y) fixed on screen: solve for the new center.
	sx, sy := c.CanvasToScreen(x, y)
	nx := x - (sx-c.ViewportW/2)/zoom
	ny := y - (sy-c.ViewportH/2)/zoom
	if seconds <= 0 {
		c.anim = nil
		c.Zoom, c.X, c.Y = zoom, nx, ny
		c.clamp()
		return
	}
	if fn == nil {
		fn = ease.OutCubic
	}
	c.anim = &zoomAnim{
		zoom: gween.New(float32(c.Zoom), float32(zoom), seconds, fn),
		x:    gween.New(float32(c.X), float32(nx), seconds, fn),
		y:    gween.New(float32(c.Y), float32(ny), seconds, fn),
	}
}

// Animating reports whether a ZoomTo is in flight.
func (c *Camera) Animating() bool {
	return c.anim != nil
}

// Update advances a running ZoomTo by dt seconds.
func (c *Camera) Update(dt float32) {
	if c.anim != nil {
		z, doneZ := c.anim.zoom.Update(dt)
		x, doneX := c.anim.x.Update(dt)
		y, doneY := c.anim.y.Update(dt)
		c.Zoom, c.X, c.Y = float64(z), float64(x), float64(y)
		if doneZ && doneX && doneY {
			c.anim = nil
		}
	}
	c.clamp()
}

// Pan moves the camera by a window-pixel delta.
func (c *Camera) Pan(dx, dy float64) {
	c.X -= dx / c.Zoom
	c.Y -= dy / c.Zoom
	c.clamp()
}

// clamp keeps the camera center inside Bounds.
func (c *Camera) clamp() {
	b := c.Bounds
	if b.Width <= 0 || b.Height <= 0 {
		return
	}
	c.X = math.Max(b.X, math.Min(c.X, b.X+b.Width))
	c.Y = math.Max(b.Y, math.Min(c.Y, b.Y+b.Height))
}

// View returns the canvas-to-window matrix.
func (c *Camera) View() badgekit.Affine {
	z := c.Zoom
	return badgekit.Affine{z, 0, 0, z, c.ViewportW/2 - z*c.X, c.ViewportH/2 - z*c.Y}
}

// CanvasToScreen converts canvas coordinates to window pixels.
func (c *Camera) CanvasToScreen(x, y float64) (float64, float64) {
	return c.View().Apply(x, y)
}

// ScreenToCanvas converts window pixels to canvas coordinates.
func (c *Camera) ScreenToCanvas(sx, sy float64) (float64, float64) {
	return c.View().Invert().Apply(sx, sy)
}

// GeoM returns View as an ebiten.GeoM.
func (c *Camera) GeoM() ebiten.GeoM {
	return matrixGeoM(c.View())
}
